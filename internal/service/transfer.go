package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/db"
	"discord-community-bot/internal/pkg/lock"
	"discord-community-bot/internal/repository"
)

// TransferService handles member-to-member coin transfers.
type TransferService struct {
	db           db.Beginner
	ledger       *LedgerService
	progressRepo *repository.ProgressRepository
	locks        *lock.Keyed[lock.MemberKey]
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(
	beginner db.Beginner,
	ledger *LedgerService,
	progressRepo *repository.ProgressRepository,
	locks *lock.Keyed[lock.MemberKey],
) *TransferService {
	return &TransferService{
		db:           beginner,
		ledger:       ledger,
		progressRepo: progressRepo,
		locks:        locks,
	}
}

// ValidateTransfer checks a transfer without touching balances.
func ValidateTransfer(fromID, toID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromID == toID {
		return ErrSelfTransfer
	}
	return nil
}

// Transfer moves amount from one member to another in one unit of work.
// A short sender balance returns *session.InsufficientFundsError and moves nothing.
// Returns the sender's new balance.
func (s *TransferService) Transfer(ctx context.Context, guildID, fromID, toID, amount int64) (int64, error) {
	if err := ValidateTransfer(fromID, toID, amount); err != nil {
		return 0, err
	}

	key := lock.MemberKey{GuildID: guildID, UserID: fromID}
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	var balance int64
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		balance, err = s.ledger.applyDelta(ctx, tx, guildID, fromID, -amount, model.TxTypeTransfer, fmt.Sprintf("transfer to %d", toID))
		if err != nil {
			return err
		}
		if _, err := s.ledger.applyDelta(ctx, tx, guildID, toID, amount, model.TxTypeTransfer, fmt.Sprintf("transfer from %d", fromID)); err != nil {
			return err
		}
		_, err = s.progressRepo.WithTx(tx).Increment(ctx, guildID, fromID, model.EventGiveCoin, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}
