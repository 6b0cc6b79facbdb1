package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/db"
)

// InventoryRepository handles item stacks owned by members.
type InventoryRepository struct {
	db db.Querier
}

// NewInventoryRepository creates a new InventoryRepository instance
func NewInventoryRepository(q db.Querier) *InventoryRepository {
	return &InventoryRepository{db: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *InventoryRepository) WithTx(tx pgx.Tx) *InventoryRepository {
	return &InventoryRepository{db: tx}
}

// AddItem adds quantity to a member's stack of itemID.
func (r *InventoryRepository) AddItem(ctx context.Context, guildID, userID int64, itemID string, quantity int) error {
	const query = `
		INSERT INTO inventory (guild_id, user_id, item_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, user_id, item_id)
		DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity
	`
	if _, err := r.db.Exec(ctx, query, guildID, userID, itemID, quantity); err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

// GetQuantity returns how many of itemID a member holds.
func (r *InventoryRepository) GetQuantity(ctx context.Context, guildID, userID int64, itemID string) (int, error) {
	const query = `
		SELECT quantity FROM inventory
		WHERE guild_id = $1 AND user_id = $2 AND item_id = $3
	`
	var quantity int
	err := r.db.QueryRow(ctx, query, guildID, userID, itemID).Scan(&quantity)
	if err != nil {
		// No rows means none held
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get item quantity: %w", err)
	}
	return quantity, nil
}

// DecrementItem consumes one of itemID, returns true if one was held.
func (r *InventoryRepository) DecrementItem(ctx context.Context, guildID, userID int64, itemID string) (bool, error) {
	const query = `
		UPDATE inventory
		SET quantity = quantity - 1
		WHERE guild_id = $1 AND user_id = $2 AND item_id = $3 AND quantity > 0
	`
	result, err := r.db.Exec(ctx, query, guildID, userID, itemID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement item: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// GetAllItems returns every non-empty stack a member holds.
func (r *InventoryRepository) GetAllItems(ctx context.Context, guildID, userID int64) ([]model.InventoryItem, error) {
	const query = `
		SELECT guild_id, user_id, item_id, quantity
		FROM inventory
		WHERE guild_id = $1 AND user_id = $2 AND quantity > 0
		ORDER BY item_id
	`
	rows, err := r.db.Query(ctx, query, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var item model.InventoryItem
		if err := rows.Scan(&item.GuildID, &item.UserID, &item.ItemID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
