package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/model"
)

// Result is the outcome of one accepted action.
type Result struct {
	Snapshot Snapshot
	// View is the private answer to a read-only action.
	View any
	// Closed is set when the action finished the game.
	Closed *ClosedEvent
}

func (s *Session) submit(ctx context.Context, ledger Ledger, player int64, a Action, now time.Time) (Result, error) {
	switch s.state {
	case StateLobby:
		return Result{}, fmt.Errorf("%w: game has not started", ErrIllegalAction)
	case StateResolving, StateClosed:
		return Result{}, ErrSessionClosed
	}
	if !s.isPlayer(player) {
		return Result{}, ErrNotYourTurn
	}

	if s.rules.ReadOnly(a) {
		view, err := s.rules.View(player, a)
		if err != nil {
			return Result{}, err
		}
		return Result{Snapshot: s.snapshot(), View: view}, nil
	}

	if s.rules.Mode() != Simultaneous {
		if cur, ok := s.cursor.Current(); !ok || cur != player {
			return Result{}, ErrNotYourTurn
		}
	}
	if s.terminal(player) {
		return Result{}, fmt.Errorf("%w: already %s", ErrIllegalAction, s.rules.Status(player))
	}

	cost, err := s.rules.Cost(player, a)
	if err != nil {
		return Result{}, err
	}
	if cost < 0 {
		return Result{}, fmt.Errorf("%w: negative cost %d", ErrIllegalAction, cost)
	}
	if cost > 0 {
		memo := Memo{Type: model.TxTypeStake, Note: s.note()}
		if err := ledger.DebitAll(ctx, s.guildID, []int64{player}, cost, memo); err != nil {
			return Result{}, err
		}
	}

	if err := s.rules.Apply(player, a); err != nil {
		if cost > 0 {
			s.refundCost(ctx, ledger, player, cost)
		}
		return Result{}, err
	}
	s.held[player] += cost
	s.acted[player] = true
	s.touch(now)

	switch s.rules.Mode() {
	case Sequential:
		if s.terminal(player) {
			s.cursor.Advance(s.terminal)
		}
	case Rounds:
		s.cursor.Advance(s.terminal)
	}

	ev, err := s.settleIfDone(ctx, ledger, ReasonCompleted)
	return Result{Snapshot: s.snapshot(), Closed: ev}, err
}

// refundCost returns a mid-game debit whose action was then refused.
func (s *Session) refundCost(ctx context.Context, ledger Ledger, player, cost int64) {
	memo := Memo{Type: model.TxTypeRefund, Note: s.note()}
	if err := ledger.CreditAll(ctx, s.guildID, []Credit{{UserID: player, Amount: cost}}, memo); err != nil {
		log.Error().Err(err).
			Str("session_id", s.id).
			Int64("user_id", player).
			Int64("amount", cost).
			Msg("Failed to refund refused action")
	}
}

// expire applies the inactivity policy for the session's current state.
// Lobbies close without ledger effect, idle games forfeit whoever they were
// waiting on and resolve, and stuck resolutions are retried.
func (s *Session) expire(ctx context.Context, ledger Ledger, now time.Time, lobbyTimeout time.Duration) (*ClosedEvent, error) {
	idle := now.Sub(s.touchedAt)

	switch s.state {
	case StateLobby:
		if lobbyTimeout <= 0 || idle < lobbyTimeout {
			return nil, nil
		}
		return s.close(ReasonLobbyExpired, now)

	case StateInProgress:
		if s.def.Timeout <= 0 || idle < s.def.Timeout {
			return nil, nil
		}
		s.timeOut()
		s.touch(now)
		return s.resolve(ctx, ledger, ReasonTimeout)

	case StateResolving:
		return s.finish(ctx, ledger)
	}
	return nil, nil
}

// timeOut forfeits the participants an idle game was waiting on. A
// simultaneous game waits on everyone still playing. A turn-ordered game
// waits only on the awaited seat: seats the turn never reached sit out and
// are refunded, and seats that already acted stay in for the showdown.
func (s *Session) timeOut() {
	cur, hasCur := s.cursor.Current()
	simultaneous := s.rules.Mode() == Simultaneous
	for _, p := range s.players {
		switch {
		case s.terminal(p):
		case simultaneous, hasCur && p == cur:
			s.rules.Forfeit(p)
		case !s.acted[p]:
			s.rules.Forfeit(p)
			s.withdrawn[p] = true
		}
	}
}

// abort force-closes a session, returning every held stake.
func (s *Session) abort(ctx context.Context, ledger Ledger, now time.Time) (*ClosedEvent, error) {
	switch s.state {
	case StateLobby:
		return s.close(ReasonAborted, now)
	case StateResolving:
		return nil, fmt.Errorf("%w: settlement in progress", ErrInvalidTransition)
	case StateClosed:
		return nil, ErrSessionClosed
	}

	settlements := make([]Settlement, 0, len(s.players))
	credits := make([]Credit, 0, len(s.players))
	for _, p := range s.players {
		held := s.held[p]
		settlements = append(settlements, NewSettlement(p, held, held, OutcomeRefund))
		if held > 0 {
			credits = append(credits, Credit{UserID: p, Amount: held})
		}
	}
	if len(credits) > 0 {
		memo := Memo{Type: model.TxTypeRefund, Note: s.note()}
		if err := ledger.CreditAll(ctx, s.guildID, credits, memo); err != nil {
			return nil, fmt.Errorf("failed to refund stakes: %w", err)
		}
	}

	s.settlements = settlements
	return s.close(ReasonAborted, now)
}
