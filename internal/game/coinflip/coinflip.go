// Package coinflip implements a group coin toss: everyone calls heads or
// tails, and the losers' stakes are shared among the winners.
package coinflip

import (
	"fmt"
	"math/rand/v2"
	"time"

	"discord-community-bot/internal/game/pick"
	"discord-community-bot/internal/model"
	"discord-community-bot/internal/session"
)

const (
	Kind = "coinflip"

	DefaultTimeout = 60 * time.Second

	Heads = "heads"
	Tails = "tails"
)

// Definition registers coin-flip with the session manager.
func Definition(timeout time.Duration) session.Definition {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return session.Definition{
		Kind:       Kind,
		Name:       "Coin Flip",
		MinPlayers: 2,
		Timeout:    timeout,
		Progress:   model.EventFlipWin,
		New:        func() session.Rules { return New() },
	}
}

// Game is one coin toss.
type Game struct {
	*pick.Board
	result string
	fixed  bool
	tossed bool
}

func New() *Game {
	return &Game{Board: pick.NewBoard(Heads, Tails)}
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

// PlayHouse tosses the coin.
func (g *Game) PlayHouse(rng *rand.Rand) {
	if !g.fixed {
		g.result = Heads
		if rng.IntN(2) == 1 {
			g.result = Tails
		}
	}
	g.tossed = true
}

// SetResult fixes how the coin will land.
func (g *Game) SetResult(side string) {
	g.result = side
	g.fixed = true
}

// Settle splits the losers' stakes among the winners. Participants without a
// pick lose. With no winners or no losers everyone gets their stake back.
func (g *Game) Settle(staked map[int64]int64, order []int64) []session.Settlement {
	return Settle(g.result, order, staked, g.Choice)
}

// Settle is the pure comparator for a landed coin.
func Settle(result string, order []int64, staked map[int64]int64, choice func(int64) (string, bool)) []session.Settlement {
	var winners, losers []int64
	var lost int64
	for _, p := range order {
		if c, ok := choice(p); ok && c == result {
			winners = append(winners, p)
		} else {
			losers = append(losers, p)
			lost += staked[p]
		}
	}

	out := make([]session.Settlement, 0, len(order))
	if len(winners) == 0 || len(losers) == 0 {
		for _, p := range order {
			out = append(out, session.NewSettlement(p, staked[p], staked[p], session.OutcomeRefund))
		}
		return out
	}

	weights := make(map[int64]int64, len(winners))
	for _, w := range winners {
		weights[w] = 1
	}
	shares := pick.Split(lost, winners, weights)

	isWinner := make(map[int64]bool, len(winners))
	for _, w := range winners {
		isWinner[w] = true
	}
	for _, p := range order {
		switch {
		case isWinner[p]:
			out = append(out, session.NewSettlement(p, staked[p], staked[p]+shares[p], session.OutcomeWin))
		default:
			outcome := session.OutcomeLose
			if _, ok := choice(p); !ok {
				outcome = session.OutcomeForfeit
			}
			out = append(out, session.NewSettlement(p, staked[p], 0, outcome))
		}
	}
	return out
}

// TableView is the public board.
type TableView struct {
	Entries []pick.Entry
	Result  string
	Picks   map[int64]string
}

func (g *Game) Table() any {
	view := TableView{Entries: g.Entries()}
	if g.tossed {
		view.Result = g.result
		view.Picks = make(map[int64]string)
		for _, p := range g.Order() {
			if c, ok := g.Choice(p); ok {
				view.Picks[p] = c
			}
		}
	}
	return view
}
