// Package sessiontest provides an in-memory ledger and helpers for driving
// game rules through a real session.Manager in tests.
package sessiontest

import (
	"context"
	"maps"
	"math/rand/v2"
	"sync"

	"discord-community-bot/internal/session"
)

// Guild is the guild id used by helpers.
const Guild int64 = 7

// Ledger is an all-or-nothing in-memory ledger.
type Ledger struct {
	mu       sync.Mutex
	balances map[int64]int64
	credited map[int64]int64
}

// NewLedger seeds a ledger with balances.
func NewLedger(balances map[int64]int64) *Ledger {
	return &Ledger{balances: maps.Clone(balances), credited: make(map[int64]int64)}
}

func (l *Ledger) Balance(_ context.Context, _ int64, userID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *Ledger) DebitAll(_ context.Context, _ int64, userIDs []int64, amount int64, _ session.Memo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range userIDs {
		if l.balances[u] < amount {
			return &session.InsufficientFundsError{UserID: u}
		}
	}
	for _, u := range userIDs {
		l.balances[u] -= amount
	}
	return nil
}

func (l *Ledger) CreditAll(_ context.Context, _ int64, credits []session.Credit, _ session.Memo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range credits {
		l.balances[c.UserID] += c.Amount
		l.credited[c.UserID] += c.Amount
	}
	return nil
}

// BalanceOf returns a user's current balance.
func (l *Ledger) BalanceOf(userID int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

// Credited returns the total credited to a user.
func (l *Ledger) Credited(userID int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credited[userID]
}

// Total sums every balance.
func (l *Ledger) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int64
	for _, b := range l.balances {
		sum += b
	}
	return sum
}

// Catalog serves a fixed set of definitions.
type Catalog map[string]session.Definition

func (c Catalog) Definition(kind string) (session.Definition, bool) {
	d, ok := c[kind]
	return d, ok
}

// TB is the slice of testing.TB the helpers need, so rapid.T fits too.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Table is a manager with a single game definition.
type Table struct {
	M      *session.Manager
	Ledger *Ledger
	Kind   string
}

// NewTable builds a manager serving def, seeded deterministically.
func NewTable(t TB, def session.Definition, balances map[int64]int64, seed uint64) *Table {
	t.Helper()
	ledger := NewLedger(balances)
	m, err := session.NewManager(ledger, Catalog{def.Kind: def}, session.Options{
		Rand: func() *rand.Rand { return rand.New(rand.NewPCG(seed, seed)) },
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return &Table{M: m, Ledger: ledger, Kind: def.Kind}
}

// Start opens a lobby for host, seats the others and starts it.
func (tb *Table) Start(t TB, stake int64, host int64, others ...int64) session.Snapshot {
	t.Helper()
	ctx := context.Background()
	snap, err := tb.M.Open(ctx, session.OpenRequest{Kind: tb.Kind, GuildID: Guild, ChannelID: 1, Host: host, Stake: stake})
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	for _, p := range others {
		if _, err := tb.M.Join(ctx, snap.ID, p); err != nil {
			t.Fatalf("failed to join %d: %v", p, err)
		}
	}
	snap, err = tb.M.Start(ctx, snap.ID, host)
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	return snap
}

// Submit sends an action and fails the test on error.
func (tb *Table) Submit(t TB, id string, player int64, a session.Action) session.Result {
	t.Helper()
	res, err := tb.M.Submit(context.Background(), id, player, a)
	if err != nil {
		t.Fatalf("submit %q by %d failed: %v", a.Name, player, err)
	}
	return res
}
