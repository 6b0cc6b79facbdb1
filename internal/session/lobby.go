package session

import (
	"context"
	"fmt"
	"time"

	"discord-community-bot/internal/model"
)

// requireLobby rejects lobby operations once the game has moved on.
func (s *Session) requireLobby() error {
	switch s.state {
	case StateLobby:
		return nil
	case StateInProgress:
		return fmt.Errorf("%w: game already started", ErrIllegalAction)
	default:
		return ErrSessionClosed
	}
}

func (s *Session) join(ctx context.Context, ledger Ledger, player int64, now time.Time) error {
	if err := s.requireLobby(); err != nil {
		return err
	}
	if s.isPlayer(player) {
		return ErrAlreadyJoined
	}

	// Courtesy check only; start re-validates inside the debit.
	balance, err := ledger.Balance(ctx, s.guildID, player)
	if err != nil {
		return fmt.Errorf("failed to check balance: %w", err)
	}
	if balance < s.stake {
		return &InsufficientFundsError{UserID: player}
	}

	s.players = append(s.players, player)
	s.touch(now)
	return nil
}

func (s *Session) start(ctx context.Context, ledger Ledger, initiator int64, now time.Time) (*ClosedEvent, error) {
	if err := s.requireLobby(); err != nil {
		return nil, err
	}
	if initiator != s.host {
		return nil, ErrNotHost
	}
	if len(s.players) < s.def.MinPlayers {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughPlayers, s.def.MinPlayers, len(s.players))
	}

	if s.stake > 0 {
		memo := Memo{Type: model.TxTypeStake, Note: s.note()}
		if err := ledger.DebitAll(ctx, s.guildID, s.players, s.stake, memo); err != nil {
			return nil, err
		}
	}

	// Money has moved; nothing below can fail.
	for _, p := range s.players {
		s.held[p] = s.stake
	}
	s.rules.Deal(s.players, s.rng)
	s.cursor = NewTurnCursor(s.players, s.rules.Mode() == Rounds)
	s.cursor.Skip(s.terminal)
	if err := s.transition(StateInProgress); err != nil {
		return nil, err
	}
	s.touch(now)

	return s.settleIfDone(ctx, ledger, ReasonCompleted)
}

func (s *Session) cancel(initiator int64, now time.Time) (*ClosedEvent, error) {
	if s.state == StateInProgress {
		return nil, fmt.Errorf("%w: cannot cancel a started game", ErrInvalidTransition)
	}
	if err := s.requireLobby(); err != nil {
		return nil, err
	}
	if initiator != s.host {
		return nil, ErrNotHost
	}
	return s.close(ReasonCancelled, now)
}

// close ends a session that holds no stakes.
func (s *Session) close(reason CloseReason, now time.Time) (*ClosedEvent, error) {
	if err := s.transition(StateClosed); err != nil {
		return nil, err
	}
	s.reason = reason
	s.touch(now)
	ev := s.closedEvent()
	return &ev, nil
}

func (s *Session) note() string {
	return s.def.Kind + ":" + s.id
}
