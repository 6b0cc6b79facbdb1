package session

import (
	"context"
	"fmt"
	"maps"

	"discord-community-bot/internal/model"
)

// settleIfDone resolves the session once every participant is terminal.
func (s *Session) settleIfDone(ctx context.Context, ledger Ledger, reason CloseReason) (*ClosedEvent, error) {
	if s.state != StateInProgress || !s.allTerminal() {
		return nil, nil
	}
	return s.resolve(ctx, ledger, reason)
}

// resolve is the only entry into settlement. The InProgress -> Resolving
// transition is the gate: a second caller fails it and never settles.
func (s *Session) resolve(ctx context.Context, ledger Ledger, reason CloseReason) (*ClosedEvent, error) {
	if err := s.transition(StateResolving); err != nil {
		return nil, err
	}
	s.reason = reason
	s.rules.PlayHouse(s.rng)

	// Withdrawn stakes stay out of the game's pot and go back to their owners.
	staked := maps.Clone(s.held)
	for p := range s.withdrawn {
		staked[p] = 0
	}
	settlements := s.rules.Settle(staked, s.players)
	for i := range settlements {
		st := &settlements[i]
		st.Staked = s.held[st.Player]
		if s.withdrawn[st.Player] {
			st.Payout = st.Staked
			st.Outcome = OutcomeRefund
		}
		st.Net = st.Payout - st.Staked
	}
	s.settlements = settlements

	return s.finish(ctx, ledger)
}

// finish credits the computed settlement in one unit of work and closes.
// On failure the session stays Resolving with its settlement intact, so a
// retry credits the very same amounts.
func (s *Session) finish(ctx context.Context, ledger Ledger) (*ClosedEvent, error) {
	if s.state != StateResolving {
		return nil, fmt.Errorf("%w: finish from %s", ErrInvalidTransition, s.state)
	}

	credits := make([]Credit, 0, len(s.settlements))
	for _, st := range s.settlements {
		if st.Payout > 0 {
			credits = append(credits, Credit{UserID: st.Player, Amount: st.Payout})
		}
	}
	if len(credits) > 0 {
		memo := Memo{Type: model.TxTypePayout, Note: s.note(), Once: true}
		if err := ledger.CreditAll(ctx, s.guildID, credits, memo); err != nil {
			return nil, fmt.Errorf("failed to credit settlement: %w", err)
		}
	}

	if err := s.transition(StateClosed); err != nil {
		return nil, err
	}
	ev := s.closedEvent()
	return &ev, nil
}

func (s *Session) closedEvent() ClosedEvent {
	snap := s.snapshot()
	return ClosedEvent{
		Snapshot:    snap,
		Settlements: snap.Settlements,
		Reason:      s.reason,
		Progress:    s.def.Progress,
		Replay:      ReplayOffer{Kind: s.def.Kind, Stake: s.stake},
	}
}
