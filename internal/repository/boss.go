package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/db"
)

// Errors for raid encounter persistence.
var (
	ErrBossNotFound     = errors.New("boss not found")
	ErrBossExists       = errors.New("boss already exists")
	ErrAttackOnCooldown = errors.New("attack on cooldown")
)

const bossColumns = `guild_id, boss_name, current_hp, max_hp, channel_id, message_id, spawned_by, last_hit_by, spawned_at`

func scanBoss(row pgx.Row) (*model.Boss, error) {
	var b model.Boss
	err := row.Scan(
		&b.GuildID,
		&b.Name,
		&b.CurrentHP,
		&b.MaxHP,
		&b.ChannelID,
		&b.MessageID,
		&b.SpawnedBy,
		&b.LastHitBy,
		&b.SpawnedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BossRepository persists one raid encounter per guild and its attackers.
type BossRepository struct {
	db db.Querier
}

// NewBossRepository creates a new BossRepository instance.
func NewBossRepository(q db.Querier) *BossRepository {
	return &BossRepository{db: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *BossRepository) WithTx(tx pgx.Tx) *BossRepository {
	return &BossRepository{db: tx}
}

// Create inserts a new encounter. Returns ErrBossExists if the guild already has one.
func (r *BossRepository) Create(ctx context.Context, b model.Boss) (*model.Boss, error) {
	const query = `
		INSERT INTO world_boss (guild_id, boss_name, current_hp, max_hp, channel_id, message_id, spawned_by, spawned_at)
		VALUES ($1, $2, $3, $3, $4, $5, $6, NOW())
		ON CONFLICT (guild_id) DO NOTHING
		RETURNING ` + bossColumns

	created, err := scanBoss(r.db.QueryRow(ctx, query, b.GuildID, b.Name, b.MaxHP, b.ChannelID, b.MessageID, b.SpawnedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBossExists
		}
		return nil, fmt.Errorf("failed to create boss: %w", err)
	}
	return created, nil
}

// Get retrieves the guild's encounter.
func (r *BossRepository) Get(ctx context.Context, guildID int64) (*model.Boss, error) {
	const query = `SELECT ` + bossColumns + ` FROM world_boss WHERE guild_id = $1`

	b, err := scanBoss(r.db.QueryRow(ctx, query, guildID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBossNotFound
		}
		return nil, fmt.Errorf("failed to get boss: %w", err)
	}
	return b, nil
}

// List returns every live or unclaimed encounter.
func (r *BossRepository) List(ctx context.Context) ([]*model.Boss, error) {
	const query = `SELECT ` + bossColumns + ` FROM world_boss ORDER BY spawned_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bosses: %w", err)
	}
	defer rows.Close()

	var bosses []*model.Boss
	for rows.Next() {
		b, err := scanBoss(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan boss: %w", err)
		}
		bosses = append(bosses, b)
	}
	return bosses, rows.Err()
}

// SetMessage records where the encounter is rendered.
func (r *BossRepository) SetMessage(ctx context.Context, guildID, channelID, messageID int64) error {
	const query = `UPDATE world_boss SET channel_id = $2, message_id = $3 WHERE guild_id = $1`

	result, err := r.db.Exec(ctx, query, guildID, channelID, messageID)
	if err != nil {
		return fmt.Errorf("failed to set boss message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBossNotFound
	}
	return nil
}

// RecordAttack adds damage to the member's tally, provided their previous
// attack is at least cooldown older than now. Returns ErrAttackOnCooldown otherwise.
func (r *BossRepository) RecordAttack(ctx context.Context, guildID, userID, damage int64, now time.Time, cooldown time.Duration) (*model.Attacker, error) {
	const query = `
		INSERT INTO boss_attackers (guild_id, user_id, total_damage, first_attack_at, last_attack_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (guild_id, user_id)
		DO UPDATE SET
			total_damage = boss_attackers.total_damage + EXCLUDED.total_damage,
			last_attack_at = EXCLUDED.last_attack_at
		WHERE boss_attackers.last_attack_at <= EXCLUDED.last_attack_at - make_interval(secs => $5)
		RETURNING guild_id, user_id, total_damage, first_attack_at, last_attack_at
	`

	var a model.Attacker
	err := r.db.QueryRow(ctx, query, guildID, userID, damage, now, cooldown.Seconds()).Scan(
		&a.GuildID, &a.UserID, &a.TotalDamage, &a.FirstAttackAt, &a.LastAttackAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttackOnCooldown
		}
		return nil, fmt.Errorf("failed to record attack: %w", err)
	}
	return &a, nil
}

// GetAttacker retrieves one member's tally for the guild's encounter.
func (r *BossRepository) GetAttacker(ctx context.Context, guildID, userID int64) (*model.Attacker, error) {
	const query = `
		SELECT guild_id, user_id, total_damage, first_attack_at, last_attack_at
		FROM boss_attackers
		WHERE guild_id = $1 AND user_id = $2
	`

	var a model.Attacker
	err := r.db.QueryRow(ctx, query, guildID, userID).Scan(
		&a.GuildID, &a.UserID, &a.TotalDamage, &a.FirstAttackAt, &a.LastAttackAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get attacker: %w", err)
	}
	return &a, nil
}

// Strike decrements a live encounter's HP by damage. The member is stamped as
// last hitter only by the decrement that crosses from alive to defeated.
// Returns ErrBossNotFound if there is no live encounter.
func (r *BossRepository) Strike(ctx context.Context, guildID, userID, damage int64) (int64, *int64, error) {
	const query = `
		UPDATE world_boss
		SET current_hp = current_hp - $2,
		    last_hit_by = CASE WHEN current_hp - $2 <= 0 THEN $3 ELSE last_hit_by END
		WHERE guild_id = $1 AND current_hp > 0
		RETURNING current_hp, last_hit_by
	`

	var (
		hp        int64
		lastHitBy *int64
	)
	err := r.db.QueryRow(ctx, query, guildID, damage, userID).Scan(&hp, &lastHitBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, ErrBossNotFound
		}
		return 0, nil, fmt.Errorf("failed to strike boss: %w", err)
	}
	return hp, lastHitBy, nil
}

// Claim deletes a defeated encounter and returns it. Only one caller can
// delete the row, so only one caller ever receives it; every other caller
// gets ErrBossNotFound.
func (r *BossRepository) Claim(ctx context.Context, guildID int64) (*model.Boss, error) {
	const query = `
		DELETE FROM world_boss
		WHERE guild_id = $1 AND current_hp <= 0
		RETURNING ` + bossColumns

	b, err := scanBoss(r.db.QueryRow(ctx, query, guildID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBossNotFound
		}
		return nil, fmt.Errorf("failed to claim boss: %w", err)
	}
	return b, nil
}

// Delete removes the guild's encounter regardless of HP.
func (r *BossRepository) Delete(ctx context.Context, guildID int64) (*model.Boss, error) {
	const query = `DELETE FROM world_boss WHERE guild_id = $1 RETURNING ` + bossColumns

	b, err := scanBoss(r.db.QueryRow(ctx, query, guildID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBossNotFound
		}
		return nil, fmt.Errorf("failed to delete boss: %w", err)
	}
	return b, nil
}

// ListAttackers returns the guild's attackers, highest damage first and
// earliest first attack on ties.
func (r *BossRepository) ListAttackers(ctx context.Context, guildID int64) ([]model.Attacker, error) {
	const query = `
		SELECT guild_id, user_id, total_damage, first_attack_at, last_attack_at
		FROM boss_attackers
		WHERE guild_id = $1
		ORDER BY total_damage DESC, first_attack_at ASC, user_id ASC
	`

	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attackers: %w", err)
	}
	defer rows.Close()

	var attackers []model.Attacker
	for rows.Next() {
		var a model.Attacker
		if err := rows.Scan(&a.GuildID, &a.UserID, &a.TotalDamage, &a.FirstAttackAt, &a.LastAttackAt); err != nil {
			return nil, fmt.Errorf("failed to scan attacker: %w", err)
		}
		attackers = append(attackers, a)
	}
	return attackers, rows.Err()
}

// DeleteAttackers clears the guild's attacker tallies.
func (r *BossRepository) DeleteAttackers(ctx context.Context, guildID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM boss_attackers WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("failed to clear attackers: %w", err)
	}
	return nil
}
