// Package taixiu implements tai-xiu: players call high, low or seven on the
// sum of two dice.
package taixiu

import (
	"fmt"
	"math/rand/v2"
	"time"

	"discord-community-bot/internal/game/pick"
	"discord-community-bot/internal/model"
	"discord-community-bot/internal/session"
)

const (
	Kind = "taixiu"

	DefaultTimeout = 60 * time.Second
)

// Calls.
const (
	Tai = "tai" // total above 7
	Xiu = "xiu" // total below 7
	Hoa = "hoa" // total of exactly 7
)

// Multipliers on the stake for a correct call.
const (
	SideMultiplier  = 2
	SevenMultiplier = 5
)

// Outcome names the call a total satisfies.
func Outcome(total int) string {
	switch {
	case total > 7:
		return Tai
	case total < 7:
		return Xiu
	default:
		return Hoa
	}
}

// Payout returns the gross credit for a call against the dice total.
func Payout(call string, total int, stake int64) (int64, session.Outcome) {
	if call == "" {
		return 0, session.OutcomeForfeit
	}
	if call != Outcome(total) {
		return 0, session.OutcomeLose
	}
	if call == Hoa {
		return stake * SevenMultiplier, session.OutcomeSpecialWin
	}
	return stake * SideMultiplier, session.OutcomeWin
}

func Definition(timeout time.Duration) session.Definition {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return session.Definition{
		Kind:       Kind,
		Name:       "Tài Xỉu",
		MinPlayers: 2,
		Timeout:    timeout,
		Progress:   model.EventTaiXiuWin,
		New:        func() session.Rules { return New() },
	}
}

// Game is one roll of the dice.
type Game struct {
	*pick.Board
	dice   [2]int
	fixed  bool
	rolled bool
}

func New() *Game {
	return &Game{Board: pick.NewBoard(Tai, Xiu, Hoa)}
}

// NewWithDice creates a game whose roll is fixed in advance.
func NewWithDice(d1, d2 int) *Game {
	g := New()
	g.dice = [2]int{d1, d2}
	g.fixed = true
	return g
}

func (g *Game) Mode() session.TurnMode { return session.Simultaneous }

func (g *Game) Deal(players []int64, _ *rand.Rand) {
	g.Seat(players)
}

func (g *Game) ReadOnly(a session.Action) bool {
	return a.Name == pick.ActionMine
}

func (g *Game) Cost(player int64, a session.Action) (int64, error) {
	if a.Name != pick.ActionPick {
		return 0, fmt.Errorf("%w: %q", session.ErrIllegalAction, a.Name)
	}
	return 0, g.Validate(player, a.Choice)
}

func (g *Game) Apply(player int64, a session.Action) error {
	return g.Pick(player, a.Choice)
}

// PlayHouse rolls both dice.
func (g *Game) PlayHouse(rng *rand.Rand) {
	if !g.fixed {
		g.dice = [2]int{rng.IntN(6) + 1, rng.IntN(6) + 1}
	}
	g.rolled = true
}

// Total sums the dice.
func (g *Game) Total() int {
	return g.dice[0] + g.dice[1]
}

func (g *Game) Settle(staked map[int64]int64, order []int64) []session.Settlement {
	out := make([]session.Settlement, 0, len(order))
	for _, p := range order {
		call, _ := g.Choice(p)
		payout, outcome := Payout(call, g.Total(), staked[p])
		out = append(out, session.NewSettlement(p, staked[p], payout, outcome))
	}
	return out
}

// TableView is the public board. Dice are zero until rolled.
type TableView struct {
	Entries []pick.Entry
	Dice    [2]int
	Total   int
	Result  string
	Picks   map[int64]string
}

func (g *Game) Table() any {
	view := TableView{Entries: g.Entries()}
	if g.rolled {
		view.Dice = g.dice
		view.Total = g.Total()
		view.Result = Outcome(view.Total)
		view.Picks = make(map[int64]string)
		for _, p := range g.Order() {
			if c, ok := g.Choice(p); ok {
				view.Picks[p] = c
			}
		}
	}
	return view
}
