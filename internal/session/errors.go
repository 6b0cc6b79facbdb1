// Package session runs multiplayer staked games: the lobby that gathers
// players, the turn engine that drives play, and the resolver that settles
// stakes against the ledger exactly once.
package session

import (
	"errors"
	"fmt"
)

// Errors returned to callers. All of them are expected, user-facing rejections.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrIllegalAction     = errors.New("illegal action")
	ErrNotHost           = errors.New("only the host can do that")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrNotEnoughPlayers  = errors.New("not enough players")
	ErrSessionClosed     = errors.New("session closed")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInvalidStake      = errors.New("stake must not be negative")
	ErrUnknownGame       = errors.New("unknown game")
)

// InsufficientFundsError names the participant who could not cover a debit.
type InsufficientFundsError struct {
	UserID int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: user %d", e.UserID)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
