package session

import "context"

// Memo labels a ledger entry. With Once set, CreditAll pays each member at
// most one entry per Type and Note, so retrying a credit that already
// committed pays nothing.
type Memo struct {
	Type string
	Note string
	Once bool
}

// Credit is one payout in a settlement batch.
type Credit struct {
	UserID int64
	Amount int64
}

// Ledger is the balance store. DebitAll and CreditAll are each one unit of
// work: either every entry applies or none does. DebitAll reports a short
// balance as *InsufficientFundsError.
type Ledger interface {
	Balance(ctx context.Context, guildID, userID int64) (int64, error)
	DebitAll(ctx context.Context, guildID int64, userIDs []int64, amount int64, memo Memo) error
	CreditAll(ctx context.Context, guildID int64, credits []Credit, memo Memo) error
}

// ReplayOffer invites the table to play again.
type ReplayOffer struct {
	Kind  string
	Stake int64
}

// ClosedEvent is emitted once per session after it reaches StateClosed.
type ClosedEvent struct {
	Snapshot    Snapshot
	Settlements []Settlement
	Reason      CloseReason
	Progress    string
	Replay      ReplayOffer
}

// Listener receives closed sessions. Implementations must not block for long;
// they run on the goroutine that closed the session.
type Listener interface {
	SessionClosed(ctx context.Context, ev ClosedEvent)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev ClosedEvent)

func (f ListenerFunc) SessionClosed(ctx context.Context, ev ClosedEvent) {
	f(ctx, ev)
}
