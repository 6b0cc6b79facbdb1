package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/db"
)

// TransactionRepository journals every applied ledger delta.
type TransactionRepository struct {
	db db.Querier
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(q db.Querier) *TransactionRepository {
	return &TransactionRepository{db: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *TransactionRepository) WithTx(tx pgx.Tx) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// Create creates a new transaction record.
func (r *TransactionRepository) Create(ctx context.Context, guildID, userID, amount int64, txType string, description *string) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (guild_id, user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, guild_id, user_id, amount, type, description, created_at
	`

	var tx model.Transaction
	err := r.db.QueryRow(ctx, query, guildID, userID, amount, txType, description).Scan(
		&tx.ID,
		&tx.GuildID,
		&tx.UserID,
		&tx.Amount,
		&tx.Type,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return &tx, nil
}

// Exists reports whether the member already has an entry of txType with
// exactly this description.
func (r *TransactionRepository) Exists(ctx context.Context, guildID, userID int64, txType, description string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE guild_id = $1 AND user_id = $2 AND type = $3 AND description = $4
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, guildID, userID, txType, description).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check transaction: %w", err)
	}
	return exists, nil
}

// GetByUserID retrieves a member's transactions, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, guildID, userID int64, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT id, guild_id, user_id, amount, type, description, created_at
		FROM transactions
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, guildID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		var tx model.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.GuildID,
			&tx.UserID,
			&tx.Amount,
			&tx.Type,
			&tx.Description,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// SumByType returns the net amount journaled for a member under txType.
func (r *TransactionRepository) SumByType(ctx context.Context, guildID, userID int64, txType string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE guild_id = $1 AND user_id = $2 AND type = $3
	`

	var sum int64
	if err := r.db.QueryRow(ctx, query, guildID, userID, txType).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// GetDailyWinners returns the members with the highest positive net game
// result on date's calendar day.
func (r *TransactionRepository) GetDailyWinners(ctx context.Context, guildID int64, date time.Time, limit int) ([]*model.DailyRank, error) {
	const query = `
		SELECT user_id, SUM(amount) AS net_profit
		FROM transactions
		WHERE guild_id = $1 AND type = ANY($2) AND created_at >= $3 AND created_at < $4
		GROUP BY user_id
		HAVING SUM(amount) > 0
		ORDER BY net_profit DESC, user_id ASC
		LIMIT $5
	`
	return r.dailyRanks(ctx, query, guildID, date, limit)
}

// GetDailyLosers returns the members with the largest net game loss on
// date's calendar day, most loss first.
func (r *TransactionRepository) GetDailyLosers(ctx context.Context, guildID int64, date time.Time, limit int) ([]*model.DailyRank, error) {
	const query = `
		SELECT user_id, SUM(amount) AS net_profit
		FROM transactions
		WHERE guild_id = $1 AND type = ANY($2) AND created_at >= $3 AND created_at < $4
		GROUP BY user_id
		HAVING SUM(amount) < 0
		ORDER BY net_profit ASC, user_id ASC
		LIMIT $5
	`
	return r.dailyRanks(ctx, query, guildID, date, limit)
}

func (r *TransactionRepository) dailyRanks(ctx context.Context, query string, guildID int64, date time.Time, limit int) ([]*model.DailyRank, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	rows, err := r.db.Query(ctx, query, guildID, model.GameTxTypes, startOfDay, endOfDay, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily ranks: %w", err)
	}
	defer rows.Close()

	var ranks []*model.DailyRank
	for rows.Next() {
		var rank model.DailyRank
		if err := rows.Scan(&rank.UserID, &rank.NetProfit); err != nil {
			return nil, fmt.Errorf("failed to scan daily rank: %w", err)
		}
		ranks = append(ranks, &rank)
	}
	return ranks, rows.Err()
}
