// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/db"
	"discord-community-bot/internal/repository"
	"discord-community-bot/internal/session"
)

// LedgerService applies coin deltas. Every balance change and its journal
// entry commit together in one database transaction.
type LedgerService struct {
	db       db.Beginner
	userRepo *repository.UserRepository
	txRepo   *repository.TransactionRepository
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(
	beginner db.Beginner,
	userRepo *repository.UserRepository,
	txRepo *repository.TransactionRepository,
) *LedgerService {
	return &LedgerService{
		db:       beginner,
		userRepo: userRepo,
		txRepo:   txRepo,
	}
}

// Balance returns a member's coins.
func (s *LedgerService) Balance(ctx context.Context, guildID, userID int64) (int64, error) {
	return s.userRepo.Balance(ctx, guildID, userID)
}

// DebitAll takes amount from every member or from none of them.
func (s *LedgerService) DebitAll(ctx context.Context, guildID int64, userIDs []int64, amount int64, memo session.Memo) error {
	if amount <= 0 || len(userIDs) == 0 {
		return nil
	}

	return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		txs := s.txRepo.WithTx(tx)
		for _, userID := range userIDs {
			if _, err := users.Debit(ctx, guildID, userID, amount); err != nil {
				if errors.Is(err, repository.ErrInsufficientFunds) {
					return &session.InsufficientFundsError{UserID: userID}
				}
				return err
			}
			if _, err := txs.Create(ctx, guildID, userID, -amount, memo.Type, note(memo)); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreditAll pays every credit in one unit of work. Zero credits are skipped,
// as are members a Once memo has already paid.
func (s *LedgerService) CreditAll(ctx context.Context, guildID int64, credits []session.Credit, memo session.Memo) error {
	return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		txs := s.txRepo.WithTx(tx)
		for _, c := range credits {
			if c.Amount <= 0 {
				continue
			}
			if memo.Once && memo.Note != "" {
				paid, err := txs.Exists(ctx, guildID, c.UserID, memo.Type, memo.Note)
				if err != nil {
					return err
				}
				if paid {
					continue
				}
			}
			if _, err := users.Credit(ctx, guildID, c.UserID, c.Amount); err != nil {
				return err
			}
			if _, err := txs.Create(ctx, guildID, c.UserID, c.Amount, memo.Type, note(memo)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplyDelta adds amount to a member's coins. A negative amount is a debit
// that fails with *session.InsufficientFundsError rather than overdrawing.
// Returns the new balance.
func (s *LedgerService) ApplyDelta(ctx context.Context, guildID, userID, amount int64, txType, description string) (int64, error) {
	var balance int64
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		balance, err = s.applyDelta(ctx, tx, guildID, userID, amount, txType, description)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *LedgerService) applyDelta(ctx context.Context, tx pgx.Tx, guildID, userID, amount int64, txType, description string) (int64, error) {
	users := s.userRepo.WithTx(tx)

	var (
		balance int64
		err     error
	)
	switch {
	case amount < 0:
		balance, err = users.Debit(ctx, guildID, userID, -amount)
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return 0, &session.InsufficientFundsError{UserID: userID}
		}
	case amount > 0:
		balance, err = users.Credit(ctx, guildID, userID, amount)
	default:
		return users.Balance(ctx, guildID, userID)
	}
	if err != nil {
		return 0, err
	}

	if _, err := s.txRepo.WithTx(tx).Create(ctx, guildID, userID, amount, txType, optional(description)); err != nil {
		return 0, err
	}
	return balance, nil
}

// SetBalance overwrites a member's coins and journals the difference.
func (s *LedgerService) SetBalance(ctx context.Context, guildID, userID, coins int64, description string) (*model.User, error) {
	if coins < 0 {
		return nil, ErrInvalidAmount
	}

	var user *model.User
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		before, err := users.Balance(ctx, guildID, userID)
		if err != nil {
			return err
		}
		user, err = users.SetBalance(ctx, guildID, userID, coins)
		if err != nil {
			return err
		}
		_, err = s.txRepo.WithTx(tx).Create(ctx, guildID, userID, coins-before, model.TxTypeAdminSet, optional(description))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}
	return user, nil
}

func note(m session.Memo) *string {
	return optional(m.Note)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
