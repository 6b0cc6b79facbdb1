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

// EffectRepository tracks boosters members have used.
type EffectRepository struct {
	db db.Querier
}

// NewEffectRepository creates a new EffectRepository instance.
func NewEffectRepository(q db.Querier) *EffectRepository {
	return &EffectRepository{db: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *EffectRepository) WithTx(tx pgx.Tx) *EffectRepository {
	return &EffectRepository{db: tx}
}

// Activate starts effect until expiresAt unless it is still running at now.
// Returns ErrEffectActive with the running effect in that case.
func (r *EffectRepository) Activate(ctx context.Context, guildID, userID int64, effect string, now, expiresAt time.Time) (*model.ActiveEffect, error) {
	const query = `
		INSERT INTO active_effects (guild_id, user_id, effect, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, user_id, effect)
		DO UPDATE SET expires_at = EXCLUDED.expires_at
		WHERE active_effects.expires_at <= $5
		RETURNING guild_id, user_id, effect, expires_at
	`

	var e model.ActiveEffect
	err := r.db.QueryRow(ctx, query, guildID, userID, effect, expiresAt, now).
		Scan(&e.GuildID, &e.UserID, &e.Effect, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEffectActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to activate effect: %w", err)
	}
	return &e, nil
}

// Active reports whether effect is running for the member at now.
func (r *EffectRepository) Active(ctx context.Context, guildID, userID int64, effect string, now time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM active_effects
			WHERE guild_id = $1 AND user_id = $2 AND effect = $3 AND expires_at > $4
		)
	`

	var active bool
	if err := r.db.QueryRow(ctx, query, guildID, userID, effect, now).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to check effect: %w", err)
	}
	return active, nil
}

// List returns the member's effects still running at now, soonest to expire first.
func (r *EffectRepository) List(ctx context.Context, guildID, userID int64, now time.Time) ([]model.ActiveEffect, error) {
	const query = `
		SELECT guild_id, user_id, effect, expires_at
		FROM active_effects
		WHERE guild_id = $1 AND user_id = $2 AND expires_at > $3
		ORDER BY expires_at
	`

	rows, err := r.db.Query(ctx, query, guildID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list effects: %w", err)
	}
	defer rows.Close()

	var effects []model.ActiveEffect
	for rows.Next() {
		var e model.ActiveEffect
		if err := rows.Scan(&e.GuildID, &e.UserID, &e.Effect, &e.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan effect: %w", err)
		}
		effects = append(effects, e)
	}
	return effects, rows.Err()
}
