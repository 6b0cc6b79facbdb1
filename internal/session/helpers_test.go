package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"sync"
	"time"
)

const testGuild int64 = 99

var errLedgerDown = errors.New("ledger unavailable")

// memLedger is an all-or-nothing in-memory ledger.
type memLedger struct {
	mu          sync.Mutex
	balances    map[int64]int64
	failCredits int
	debitCalls  int
	creditCalls int
	credited    map[int64]int64
	// lostReplies commits the next credits but reports failure anyway.
	lostReplies int
	paid        map[string]bool
}

func newMemLedger(balances map[int64]int64) *memLedger {
	return &memLedger{balances: maps.Clone(balances), credited: make(map[int64]int64), paid: make(map[string]bool)}
}

func (l *memLedger) Balance(_ context.Context, _ int64, userID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *memLedger) DebitAll(_ context.Context, _ int64, userIDs []int64, amount int64, _ Memo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range userIDs {
		if l.balances[u] < amount {
			return &InsufficientFundsError{UserID: u}
		}
	}
	for _, u := range userIDs {
		l.balances[u] -= amount
	}
	l.debitCalls++
	return nil
}

func (l *memLedger) CreditAll(_ context.Context, _ int64, credits []Credit, memo Memo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failCredits > 0 {
		l.failCredits--
		return errLedgerDown
	}
	for _, c := range credits {
		key := fmt.Sprintf("%s/%s/%d", memo.Type, memo.Note, c.UserID)
		if memo.Once && l.paid[key] {
			continue
		}
		l.paid[key] = true
		l.balances[c.UserID] += c.Amount
		l.credited[c.UserID] += c.Amount
	}
	l.creditCalls++
	if l.lostReplies > 0 {
		l.lostReplies--
		return errLedgerDown
	}
	return nil
}

func (l *memLedger) balance(userID int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

func (l *memLedger) total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int64
	for _, b := range l.balances {
		sum += b
	}
	return sum
}

// tallyRules is a minimal game: "step" counts, "stop" stands, "win" stands
// as a winner, "peek" is read-only and "bump" raises the stake by Amount.
// Winners are paid double their stake; everyone else gets nothing.
type tallyRules struct {
	mode       TurnMode
	counts     map[int64]int
	status     map[int64]Status
	winners    map[int64]bool
	housePlays int
}

func newTally(mode TurnMode) *tallyRules {
	return &tallyRules{mode: mode}
}

func (r *tallyRules) Mode() TurnMode { return r.mode }

func (r *tallyRules) Deal(players []int64, _ *rand.Rand) {
	r.counts = make(map[int64]int)
	r.status = make(map[int64]Status)
	r.winners = make(map[int64]bool)
	for _, p := range players {
		r.status[p] = StatusPlaying
	}
}

func (r *tallyRules) Status(p int64) Status { return r.status[p] }

func (r *tallyRules) ReadOnly(a Action) bool { return a.Name == "peek" }

func (r *tallyRules) View(p int64, _ Action) (any, error) { return r.counts[p], nil }

func (r *tallyRules) Cost(_ int64, a Action) (int64, error) {
	switch a.Name {
	case "bump":
		if a.Amount <= 0 {
			return 0, ErrIllegalAction
		}
		return a.Amount, nil
	case "step", "stop", "win":
		return 0, nil
	}
	return 0, ErrIllegalAction
}

func (r *tallyRules) Apply(p int64, a Action) error {
	switch a.Name {
	case "step", "bump":
		r.counts[p]++
	case "stop":
		r.status[p] = StatusStood
	case "win":
		r.status[p] = StatusWon
		r.winners[p] = true
	default:
		return ErrIllegalAction
	}
	return nil
}

func (r *tallyRules) Forfeit(p int64) { r.status[p] = StatusForfeited }

func (r *tallyRules) PlayHouse(_ *rand.Rand) { r.housePlays++ }

func (r *tallyRules) Settle(staked map[int64]int64, order []int64) []Settlement {
	out := make([]Settlement, 0, len(order))
	for _, p := range order {
		switch {
		case r.winners[p]:
			out = append(out, NewSettlement(p, staked[p], staked[p]*2, OutcomeWin))
		case r.status[p] == StatusForfeited:
			out = append(out, NewSettlement(p, staked[p], 0, OutcomeForfeit))
		default:
			out = append(out, NewSettlement(p, staked[p], 0, OutcomeLose))
		}
	}
	return out
}

func (r *tallyRules) Table() any { return maps.Clone(r.counts) }

type mapCatalog map[string]Definition

func (c mapCatalog) Definition(kind string) (Definition, bool) {
	d, ok := c[kind]
	return d, ok
}

// fakeClock is a settable clock shared with the manager under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	m      *Manager
	ledger *memLedger
	clock  *fakeClock
	rules  []*tallyRules
	events []ClosedEvent
	evMu   sync.Mutex
}

// newHarness builds a manager with one "tally" game in the given mode.
func newHarness(mode TurnMode, minPlayers int, balances map[int64]int64) *harness {
	h := &harness{
		ledger: newMemLedger(balances),
		clock:  &fakeClock{now: time.Unix(1_700_000_000, 0)},
	}
	var rulesMu sync.Mutex
	def := Definition{
		Kind:       "tally",
		Name:       "Tally",
		MinPlayers: minPlayers,
		Timeout:    time.Minute,
		Progress:   "TALLY_WIN",
		New: func() Rules {
			r := newTally(mode)
			rulesMu.Lock()
			h.rules = append(h.rules, r)
			rulesMu.Unlock()
			return r
		},
	}
	m, err := NewManager(h.ledger, mapCatalog{"tally": def}, Options{
		LobbyTimeout: 2 * time.Minute,
		Now:          h.clock.Now,
		Rand:         func() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) },
	})
	if err != nil {
		panic(err)
	}
	m.AddListener(ListenerFunc(func(_ context.Context, ev ClosedEvent) {
		h.evMu.Lock()
		h.events = append(h.events, ev)
		h.evMu.Unlock()
	}))
	h.m = m
	return h
}

func (h *harness) closedEvents() []ClosedEvent {
	h.evMu.Lock()
	defer h.evMu.Unlock()
	return append([]ClosedEvent(nil), h.events...)
}

// started opens a lobby for host, seats the rest and starts it.
func (h *harness) started(ctx context.Context, stake int64, host int64, others ...int64) (string, error) {
	snap, err := h.m.Open(ctx, OpenRequest{Kind: "tally", GuildID: testGuild, ChannelID: 1, Host: host, Stake: stake})
	if err != nil {
		return "", err
	}
	for _, p := range others {
		if _, err := h.m.Join(ctx, snap.ID, p); err != nil {
			return "", err
		}
	}
	_, err = h.m.Start(ctx, snap.ID, host)
	return snap.ID, err
}
