package session

import (
	"math/rand/v2"
	"time"
)

// TurnMode selects how the engine orders participant actions.
type TurnMode int

const (
	// Sequential games accept actions only from the cursor's participant,
	// who keeps the turn until they become terminal.
	Sequential TurnMode = iota
	// Rounds games pass the cursor around the table after every action
	// until the game marks everyone terminal.
	Rounds
	// Simultaneous games let every non-terminal participant act once, in any order.
	Simultaneous
)

// Action is one participant input. Amount and Choice are game specific.
type Action struct {
	Name   string
	Amount int64
	Choice string
}

// Settlement is the resolved result for one participant.
// Payout is the gross credit; Net is Payout minus everything Staked.
type Settlement struct {
	Player  int64
	Staked  int64
	Payout  int64
	Net     int64
	Outcome Outcome
}

// NewSettlement fills in Net.
func NewSettlement(player, staked, payout int64, outcome Outcome) Settlement {
	return Settlement{Player: player, Staked: staked, Payout: payout, Net: payout - staked, Outcome: outcome}
}

// Rules is the game-specific half of a session. The engine owns ordering,
// stakes and state; Rules owns hands, legality and the payout comparator.
// Implementations are only ever called with the session lock held.
type Rules interface {
	// Mode reports how turns are ordered.
	Mode() TurnMode

	// Deal sets up per-player state once stakes are debited.
	Deal(players []int64, rng *rand.Rand)

	// Status returns the participant's current standing.
	Status(player int64) Status

	// ReadOnly reports whether the action only inspects state.
	ReadOnly(a Action) bool

	// View answers a read-only action for the participant.
	View(player int64, a Action) (any, error)

	// Cost quotes any extra stake the action needs debited before it applies.
	Cost(player int64, a Action) (int64, error)

	// Apply validates and applies the action. Returning ErrIllegalAction
	// leaves state untouched.
	Apply(player int64, a Action) error

	// Forfeit marks a non-responding participant terminal.
	Forfeit(player int64)

	// PlayHouse runs the house sub-turn once every participant is terminal.
	PlayHouse(rng *rand.Rand)

	// Settle computes one settlement per participant from terminal state and
	// the stakes each participant has put in. It must be deterministic.
	Settle(staked map[int64]int64, order []int64) []Settlement

	// Table returns an immutable, renderable copy of the public game state.
	Table() any
}

// Definition registers a game kind with the session manager.
type Definition struct {
	Kind       string
	Name       string
	MinPlayers int
	// Timeout is the inactivity window after which idle participants forfeit.
	Timeout time.Duration
	// Progress is the event recorded for each winning participant, if any.
	Progress string
	New      func() Rules
}

// Catalog looks up game definitions by kind.
type Catalog interface {
	Definition(kind string) (Definition, bool)
}
