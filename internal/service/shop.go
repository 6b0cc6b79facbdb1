package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/db"
	"discord-community-bot/internal/pkg/lock"
	"discord-community-bot/internal/repository"
	"discord-community-bot/internal/shop"
)

// ShopService handles item purchases and use.
type ShopService struct {
	db            db.Beginner
	ledger        *LedgerService
	inventoryRepo *repository.InventoryRepository
	progressRepo  *repository.ProgressRepository
	effectRepo    *repository.EffectRepository
	locks         *lock.Keyed[lock.MemberKey]
	now           func() time.Time
}

// NewShopService creates a new ShopService instance
func NewShopService(
	beginner db.Beginner,
	ledger *LedgerService,
	inventoryRepo *repository.InventoryRepository,
	progressRepo *repository.ProgressRepository,
	effectRepo *repository.EffectRepository,
	locks *lock.Keyed[lock.MemberKey],
) *ShopService {
	return &ShopService{
		db:            beginner,
		ledger:        ledger,
		inventoryRepo: inventoryRepo,
		progressRepo:  progressRepo,
		effectRepo:    effectRepo,
		locks:         locks,
		now:           time.Now,
	}
}

// ItemUse is the outcome of using an item.
type ItemUse struct {
	Item   shop.ItemConfig
	Effect *model.ActiveEffect // nil for instant items
}

// GetShopItems returns all available shop items
func (s *ShopService) GetShopItems() []shop.ItemConfig {
	return shop.GetAllItems()
}

// FindItem resolves an item by id or case-insensitive display name.
func FindItem(query string) (shop.ItemConfig, bool) {
	query = strings.TrimSpace(query)
	if item, ok := shop.GetItem(shop.ItemType(query)); ok {
		return item, true
	}
	for _, item := range shop.GetAllItems() {
		if strings.EqualFold(item.Name, query) {
			return item, true
		}
	}
	return shop.ItemConfig{}, false
}

// PurchaseItem debits the price and adds one item to the inventory in one
// unit of work. Returns the new balance.
func (s *ShopService) PurchaseItem(ctx context.Context, guildID, userID int64, itemType shop.ItemType) (int64, error) {
	item, ok := shop.GetItem(itemType)
	if !ok {
		return 0, ErrItemNotFound
	}

	key := lock.MemberKey{GuildID: guildID, UserID: userID}
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	var balance int64
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		balance, err = s.ledger.applyDelta(ctx, tx, guildID, userID, -item.Price, model.TxTypePurchase, "buy "+string(item.Type))
		if err != nil {
			return err
		}
		if err := s.inventoryRepo.WithTx(tx).AddItem(ctx, guildID, userID, string(item.Type), 1); err != nil {
			return err
		}
		_, err = s.progressRepo.WithTx(tx).Increment(ctx, guildID, userID, model.EventShopSpend, item.Price)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// UseItem consumes one item from the inventory. A booster starts its effect
// in the same unit of work; using one while its effect still runs is refused
// and keeps the item.
func (s *ShopService) UseItem(ctx context.Context, guildID, userID int64, itemType shop.ItemType) (*ItemUse, error) {
	item, ok := shop.GetItem(itemType)
	if !ok {
		return nil, ErrItemNotFound
	}
	if !item.Usable {
		return nil, ErrItemNotUsable
	}

	key := lock.MemberKey{GuildID: guildID, UserID: userID}
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	use := &ItemUse{Item: item}
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		held, err := s.inventoryRepo.WithTx(tx).DecrementItem(ctx, guildID, userID, string(item.Type))
		if err != nil {
			return err
		}
		if !held {
			return ErrItemNotOwned
		}
		if !item.IsTimeBased() {
			return nil
		}

		now := s.now()
		use.Effect, err = s.effectRepo.WithTx(tx).Activate(ctx, guildID, userID, item.Effect, now, now.Add(item.Duration))
		if errors.Is(err, repository.ErrEffectActive) {
			return ErrEffectActive
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return use, nil
}

// ReturnItem gives back an instant item whose use failed after it was consumed.
func (s *ShopService) ReturnItem(ctx context.Context, guildID, userID int64, itemType shop.ItemType) error {
	return s.inventoryRepo.AddItem(ctx, guildID, userID, string(itemType), 1)
}

// ActiveEffects lists the member's running boosters.
func (s *ShopService) ActiveEffects(ctx context.Context, guildID, userID int64) ([]model.ActiveEffect, error) {
	return s.effectRepo.List(ctx, guildID, userID, s.now())
}

// boosted applies the member's running booster item to amount.
func boosted(ctx context.Context, effects *repository.EffectRepository, guildID, userID int64, itemType shop.ItemType, amount int64, now time.Time) (int64, error) {
	item, ok := shop.GetItem(itemType)
	if !ok || amount <= 0 {
		return amount, nil
	}
	active, err := effects.Active(ctx, guildID, userID, item.Effect, now)
	if err != nil || !active {
		return amount, err
	}
	return item.Boosted(amount), nil
}
