package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/db"
)

// ProgressRepository counts quest and achievement events per member.
type ProgressRepository struct {
	db db.Querier
}

// NewProgressRepository creates a new ProgressRepository instance.
func NewProgressRepository(q db.Querier) *ProgressRepository {
	return &ProgressRepository{db: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *ProgressRepository) WithTx(tx pgx.Tx) *ProgressRepository {
	return &ProgressRepository{db: tx}
}

// Increment adds delta to the member's counter for event and returns the new count.
func (r *ProgressRepository) Increment(ctx context.Context, guildID, userID int64, event string, delta int64) (int64, error) {
	const query = `
		INSERT INTO user_progress (guild_id, user_id, event, count, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (guild_id, user_id, event)
		DO UPDATE SET count = user_progress.count + EXCLUDED.count, updated_at = NOW()
		RETURNING count
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, guildID, userID, event, delta).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment progress: %w", err)
	}
	return count, nil
}

// Raise lifts the member's counter for event to value if it is lower, for
// counters that track a high-water mark such as the level reached.
func (r *ProgressRepository) Raise(ctx context.Context, guildID, userID int64, event string, value int64) (int64, error) {
	const query = `
		INSERT INTO user_progress (guild_id, user_id, event, count, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (guild_id, user_id, event)
		DO UPDATE SET count = GREATEST(user_progress.count, EXCLUDED.count), updated_at = NOW()
		RETURNING count
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, guildID, userID, event, value).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to raise progress: %w", err)
	}
	return count, nil
}

// List returns every counter a member has.
func (r *ProgressRepository) List(ctx context.Context, guildID, userID int64) ([]model.Progress, error) {
	const query = `
		SELECT guild_id, user_id, event, count, updated_at
		FROM user_progress
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY event
	`

	rows, err := r.db.Query(ctx, query, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var progress []model.Progress
	for rows.Next() {
		var p model.Progress
		if err := rows.Scan(&p.GuildID, &p.UserID, &p.Event, &p.Count, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}
