package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/db"
	"discord-community-bot/internal/pkg/lock"
	"discord-community-bot/internal/repository"
)

// Defaults for the daily reward.
const (
	DefaultDailyMin      int64 = 500
	DefaultDailyMax      int64 = 1500
	DefaultDailyCooldown       = 23*time.Hour + 55*time.Minute
)

// DailyConfig configures the daily reward. Zero values select the defaults.
type DailyConfig struct {
	Min      int64
	Max      int64
	Cooldown time.Duration
	Rand     *rand.Rand
}

// DailyClaim is the result of a daily claim attempt.
type DailyClaim struct {
	Amount  int64
	Balance int64
}

// AccountService handles member profiles and the daily reward.
type AccountService struct {
	db            db.Beginner
	userRepo      *repository.UserRepository
	txRepo        *repository.TransactionRepository
	inventoryRepo *repository.InventoryRepository
	progressRepo  *repository.ProgressRepository
	locks         *lock.Keyed[lock.MemberKey]
	daily         DailyConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	beginner db.Beginner,
	userRepo *repository.UserRepository,
	txRepo *repository.TransactionRepository,
	inventoryRepo *repository.InventoryRepository,
	progressRepo *repository.ProgressRepository,
	locks *lock.Keyed[lock.MemberKey],
	daily DailyConfig,
) *AccountService {
	if daily.Min <= 0 {
		daily.Min = DefaultDailyMin
	}
	if daily.Max < daily.Min {
		daily.Max = max(DefaultDailyMax, daily.Min)
	}
	if daily.Cooldown <= 0 {
		daily.Cooldown = DefaultDailyCooldown
	}
	rng := daily.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &AccountService{
		db:            beginner,
		userRepo:      userRepo,
		txRepo:        txRepo,
		inventoryRepo: inventoryRepo,
		progressRepo:  progressRepo,
		locks:         locks,
		daily:         daily,
		rng:           rng,
	}
}

// EnsureUser ensures a member profile exists, creating one if necessary.
// Returns the user and whether it was newly created.
func (s *AccountService) EnsureUser(ctx context.Context, guildID, userID int64) (*model.User, bool, error) {
	user, created, err := s.userRepo.GetOrCreate(ctx, guildID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}
	return user, created, nil
}

// GetBalance retrieves a member's current balance.
func (s *AccountService) GetBalance(ctx context.Context, guildID, userID int64) (int64, error) {
	balance, err := s.userRepo.Balance(ctx, guildID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// ClaimDaily credits a random reward between the configured bounds at most
// once per cooldown. A claim too early returns *WaitError wrapping
// ErrDailyAlreadyClaimed.
func (s *AccountService) ClaimDaily(ctx context.Context, guildID, userID int64) (*DailyClaim, error) {
	key := lock.MemberKey{GuildID: guildID, UserID: userID}
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	amount := s.rollDaily()
	var (
		balance int64
		last    *time.Time
	)
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		balance, last, err = s.userRepo.WithTx(tx).ClaimDaily(ctx, guildID, userID, amount, s.daily.Cooldown)
		if err != nil {
			return err
		}
		desc := "daily reward"
		_, err = s.txRepo.WithTx(tx).Create(ctx, guildID, userID, amount, model.TxTypeDaily, &desc)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDailyNotReady) {
			return nil, &WaitError{Err: ErrDailyAlreadyClaimed, Remaining: DailyRemaining(last, s.daily.Cooldown, time.Now())}
		}
		return nil, fmt.Errorf("failed to claim daily: %w", err)
	}

	return &DailyClaim{Amount: amount, Balance: balance}, nil
}

func (s *AccountService) rollDaily() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.daily.Min + s.rng.Int64N(s.daily.Max-s.daily.Min+1)
}

// DailyRemaining returns how long until the next claim is allowed.
func DailyRemaining(last *time.Time, cooldown time.Duration, now time.Time) time.Duration {
	if last == nil {
		return 0
	}
	remaining := last.Add(cooldown).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetTopUsers retrieves the richest members of a guild.
func (s *AccountService) GetTopUsers(ctx context.Context, guildID int64, limit int) ([]*model.User, error) {
	return s.userRepo.GetTopUsers(ctx, guildID, limit)
}

// GetUser retrieves a member profile.
func (s *AccountService) GetUser(ctx context.Context, guildID, userID int64) (*model.User, error) {
	return s.userRepo.Get(ctx, guildID, userID)
}

// GetInventory returns a member's items.
func (s *AccountService) GetInventory(ctx context.Context, guildID, userID int64) ([]model.InventoryItem, error) {
	return s.inventoryRepo.GetAllItems(ctx, guildID, userID)
}

// GetProgress returns a member's quest and achievement counters.
func (s *AccountService) GetProgress(ctx context.Context, guildID, userID int64) ([]model.Progress, error) {
	return s.progressRepo.List(ctx, guildID, userID)
}

// GetHistory returns a member's latest ledger entries.
func (s *AccountService) GetHistory(ctx context.Context, guildID, userID int64, limit int) ([]*model.Transaction, error) {
	return s.txRepo.GetByUserID(ctx, guildID, userID, limit)
}
