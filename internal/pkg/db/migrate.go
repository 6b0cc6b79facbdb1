package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// migration is one idempotent schema step.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "users",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				guild_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				coins BIGINT NOT NULL DEFAULT 0,
				xp BIGINT NOT NULL DEFAULT 0,
				level INT NOT NULL DEFAULT 1,
				perm_damage_bonus DOUBLE PRECISION NOT NULL DEFAULT 0,
				daily_claimed_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (guild_id, user_id),
				CONSTRAINT users_coins_non_negative CHECK (coins >= 0)
			);
			CREATE INDEX IF NOT EXISTS idx_users_guild_coins ON users(guild_id, coins DESC);
		`,
	},
	{
		name: "transactions",
		sql: `
			CREATE TABLE IF NOT EXISTS transactions (
				id BIGSERIAL PRIMARY KEY,
				guild_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				amount BIGINT NOT NULL,
				type VARCHAR(50) NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				FOREIGN KEY (guild_id, user_id) REFERENCES users(guild_id, user_id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(guild_id, user_id, created_at DESC);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_settlement
				ON transactions(guild_id, user_id, type, description)
				WHERE type = 'session_payout';
		`,
	},
	{
		name: "inventory",
		sql: `
			CREATE TABLE IF NOT EXISTS inventory (
				guild_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				item_id VARCHAR(64) NOT NULL,
				quantity INT NOT NULL DEFAULT 1,
				PRIMARY KEY (guild_id, user_id, item_id)
			);
		`,
	},
	{
		name: "world_boss",
		sql: `
			CREATE TABLE IF NOT EXISTS world_boss (
				guild_id BIGINT PRIMARY KEY,
				boss_name TEXT NOT NULL,
				current_hp BIGINT NOT NULL,
				max_hp BIGINT NOT NULL,
				channel_id BIGINT NOT NULL DEFAULT 0,
				message_id BIGINT NOT NULL DEFAULT 0,
				spawned_by BIGINT NOT NULL,
				last_hit_by BIGINT,
				spawned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE TABLE IF NOT EXISTS boss_attackers (
				guild_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				total_damage BIGINT NOT NULL DEFAULT 0,
				first_attack_at TIMESTAMPTZ NOT NULL,
				last_attack_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (guild_id, user_id)
			);
		`,
	},
	{
		name: "user_progress",
		sql: `
			CREATE TABLE IF NOT EXISTS user_progress (
				guild_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				event VARCHAR(64) NOT NULL,
				count BIGINT NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (guild_id, user_id, event)
			);
		`,
	},
	{
		name: "active_effects",
		sql: `
			CREATE TABLE IF NOT EXISTS active_effects (
				guild_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				effect VARCHAR(64) NOT NULL,
				expires_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (guild_id, user_id, effect)
			);
		`,
	},
}

// Migrate applies every schema step in order. Each step is idempotent.
func Migrate(ctx context.Context, q Querier) error {
	log.Info().Int("steps", len(migrations)).Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := q.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
