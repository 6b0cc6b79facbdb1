// Package repository provides data access layer implementations.
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

// Common errors for repository operations.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDailyNotReady     = errors.New("daily reward not ready")
	ErrEffectActive      = errors.New("effect already active")
)

const userColumns = `guild_id, user_id, coins, xp, level, perm_damage_bonus, daily_claimed_at, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.GuildID,
		&user.UserID,
		&user.Coins,
		&user.XP,
		&user.Level,
		&user.PermDamageBonus,
		&user.DailyClaimedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserRepository handles member economy profiles. Every balance change is a
// single conditional statement so concurrent callers never read-modify-write.
type UserRepository struct {
	db db.Querier
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(q db.Querier) *UserRepository {
	return &UserRepository{db: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

// Get retrieves a member's profile.
// Returns ErrUserNotFound if the member has never been seen in the guild.
func (r *UserRepository) Get(ctx context.Context, guildID, userID int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE guild_id = $1 AND user_id = $2`

	user, err := scanUser(r.db.QueryRow(ctx, query, guildID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetOrCreate retrieves a member's profile, creating an empty one on first sight.
// The boolean reports whether the row was created by this call.
func (r *UserRepository) GetOrCreate(ctx context.Context, guildID, userID int64) (*model.User, bool, error) {
	const insert = `
		INSERT INTO users (guild_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (guild_id, user_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, insert, guildID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	user, err := r.Get(ctx, guildID, userID)
	if err != nil {
		return nil, false, err
	}
	return user, tag.RowsAffected() == 1, nil
}

// Balance returns a member's coins. Unknown members hold 0.
func (r *UserRepository) Balance(ctx context.Context, guildID, userID int64) (int64, error) {
	const query = `SELECT coins FROM users WHERE guild_id = $1 AND user_id = $2`

	var coins int64
	err := r.db.QueryRow(ctx, query, guildID, userID).Scan(&coins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return coins, nil
}

// Debit subtracts amount only if the member can cover it, returning the new balance.
// Returns ErrInsufficientFunds when the balance is short or the member is unknown.
func (r *UserRepository) Debit(ctx context.Context, guildID, userID, amount int64) (int64, error) {
	const query = `
		UPDATE users
		SET coins = coins - $3, updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2 AND coins >= $3
		RETURNING coins
	`

	var coins int64
	err := r.db.QueryRow(ctx, query, guildID, userID, amount).Scan(&coins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientFunds
		}
		return 0, fmt.Errorf("failed to debit user: %w", err)
	}
	return coins, nil
}

// Credit adds amount to a member's coins, creating the profile if needed.
func (r *UserRepository) Credit(ctx context.Context, guildID, userID, amount int64) (int64, error) {
	const query = `
		INSERT INTO users (guild_id, user_id, coins)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, user_id)
		DO UPDATE SET coins = users.coins + EXCLUDED.coins, updated_at = NOW()
		RETURNING coins
	`

	var coins int64
	if err := r.db.QueryRow(ctx, query, guildID, userID, amount).Scan(&coins); err != nil {
		return 0, fmt.Errorf("failed to credit user: %w", err)
	}
	return coins, nil
}

// SetBalance sets a member's coins to an exact value.
// Used primarily for admin operations.
func (r *UserRepository) SetBalance(ctx context.Context, guildID, userID, coins int64) (*model.User, error) {
	const query = `
		INSERT INTO users (guild_id, user_id, coins)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, user_id)
		DO UPDATE SET coins = EXCLUDED.coins, updated_at = NOW()
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, guildID, userID, coins))
	if err != nil {
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}
	return user, nil
}

// AddXP adds experience to a member, creating the profile if needed, and
// returns the updated profile. Inside a transaction the row stays locked
// until commit, so a level-up computed from it cannot race.
func (r *UserRepository) AddXP(ctx context.Context, guildID, userID, xp int64) (*model.User, error) {
	const query = `
		INSERT INTO users (guild_id, user_id, xp)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, user_id)
		DO UPDATE SET xp = users.xp + EXCLUDED.xp, updated_at = NOW()
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, guildID, userID, xp))
	if err != nil {
		return nil, fmt.Errorf("failed to add xp: %w", err)
	}
	return user, nil
}

// SetLevel stores a new level with the experience left over and credits the
// level-up reward.
func (r *UserRepository) SetLevel(ctx context.Context, guildID, userID int64, level int, xp, reward int64) (*model.User, error) {
	const query = `
		UPDATE users
		SET level = $3, xp = $4, coins = coins + $5, updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, guildID, userID, level, xp, reward))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set level: %w", err)
	}
	return user, nil
}

// ClaimDaily stamps the daily claim and credits amount in one statement, only
// if the previous claim is at least cooldown old. Returns the new balance, or
// ErrDailyNotReady with the time of the previous claim.
func (r *UserRepository) ClaimDaily(ctx context.Context, guildID, userID, amount int64, cooldown time.Duration) (int64, *time.Time, error) {
	const query = `
		UPDATE users
		SET coins = coins + $3, daily_claimed_at = NOW(), updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
		  AND (daily_claimed_at IS NULL OR daily_claimed_at <= NOW() - make_interval(secs => $4))
		RETURNING coins
	`

	if _, _, err := r.GetOrCreate(ctx, guildID, userID); err != nil {
		return 0, nil, err
	}

	var coins int64
	err := r.db.QueryRow(ctx, query, guildID, userID, amount, cooldown.Seconds()).Scan(&coins)
	if err == nil {
		return coins, nil, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, fmt.Errorf("failed to claim daily: %w", err)
	}

	user, err := r.Get(ctx, guildID, userID)
	if err != nil {
		return 0, nil, err
	}
	return user.Coins, user.DailyClaimedAt, ErrDailyNotReady
}

// GetTopUsers retrieves the richest members of a guild.
func (r *UserRepository) GetTopUsers(ctx context.Context, guildID int64, limit int) ([]*model.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE guild_id = $1
		ORDER BY coins DESC, user_id ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
