package service

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for account operations.
var (
	ErrDailyAlreadyClaimed = errors.New("daily reward already claimed")
	ErrInvalidAmount       = errors.New("invalid amount: must be positive")
	ErrSelfTransfer        = errors.New("cannot transfer to self")
	ErrItemNotFound        = errors.New("item not found")
	ErrUnknownGame         = errors.New("unknown game")
	ErrGameCooldown        = errors.New("game on cooldown")
	ErrItemNotOwned        = errors.New("item not in inventory")
	ErrItemNotUsable       = errors.New("item cannot be used")
	ErrEffectActive        = errors.New("effect already active")
)

// WaitError reports how long a member must wait before retrying.
type WaitError struct {
	Err       error
	Remaining time.Duration
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("%s: %s remaining", e.Err, e.Remaining.Round(time.Second))
}

func (e *WaitError) Unwrap() error {
	return e.Err
}

// IsRejection reports whether err is an expected, user-facing rejection.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrDailyAlreadyClaimed, ErrInvalidAmount, ErrSelfTransfer,
		ErrItemNotFound, ErrUnknownGame, ErrGameCooldown,
		ErrItemNotOwned, ErrItemNotUsable, ErrEffectActive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
