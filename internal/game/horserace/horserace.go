// Package horserace implements a pari-mutuel horse race. Each player backs
// one horse, optionally adding to their stake, and the backers of the
// winning horse share the whole pot.
package horserace

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"discord-community-bot/internal/game/pick"
	"discord-community-bot/internal/model"
	"discord-community-bot/internal/session"
)

const (
	Kind = "horserace"

	DefaultTimeout     = 120 * time.Second
	DefaultHorses      = 6
	DefaultTrackLength = 20

	// MaxStride is the most a horse advances in one tick.
	MaxStride = 3
)

// Emojis labels the horses in lane order.
var Emojis = []string{"🐎", "🏇", "🦓", "🦄", "🐴", "🎠", "🦒", "🐘", "🐖", "🐄"}

// Options configures a race.
type Options struct {
	Timeout     time.Duration
	Horses      int
	TrackLength int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Horses < 2 {
		o.Horses = DefaultHorses
	}
	if o.Horses > len(Emojis) {
		o.Horses = len(Emojis)
	}
	if o.TrackLength <= 0 {
		o.TrackLength = DefaultTrackLength
	}
	return o
}

// Definition registers the race with the session manager.
func Definition(opts Options) session.Definition {
	opts = opts.withDefaults()
	return session.Definition{
		Kind:       Kind,
		Name:       "Horse Race",
		MinPlayers: 1,
		Timeout:    opts.Timeout,
		Progress:   model.EventHorseWin,
		New:        func() session.Rules { return New(opts) },
	}
}

// Lane names horse i as its 1-based lane number.
func Lane(i int) string {
	return strconv.Itoa(i + 1)
}

// Game is one race.
type Game struct {
	*pick.Board
	track     int
	positions []int
	ticks     int
	winner    int
	finished  bool
}

func New(opts Options) *Game {
	opts = opts.withDefaults()
	lanes := make([]string, opts.Horses)
	for i := range lanes {
		lanes[i] = Lane(i)
	}
	return &Game{
		Board:     pick.NewBoard(lanes...),
		track:     opts.TrackLength,
		positions: make([]int, opts.Horses),
		winner:    -1,
	}
}

func (g *Game) Mode() session.TurnMode { return session.Simultaneous }

func (g *Game) Deal(players []int64, _ *rand.Rand) {
	g.Seat(players)
}

func (g *Game) ReadOnly(a session.Action) bool {
	return a.Name == pick.ActionMine
}

// Cost is the optional extra stake placed with the pick.
func (g *Game) Cost(player int64, a session.Action) (int64, error) {
	if a.Name != pick.ActionPick {
		return 0, fmt.Errorf("%w: %q", session.ErrIllegalAction, a.Name)
	}
	if a.Amount < 0 {
		return 0, fmt.Errorf("%w: negative bet", session.ErrIllegalAction)
	}
	if err := g.Validate(player, a.Choice); err != nil {
		return 0, err
	}
	return a.Amount, nil
}

func (g *Game) Apply(player int64, a session.Action) error {
	return g.Pick(player, a.Choice)
}

// PlayHouse runs the race. Every tick each horse advances 1..MaxStride in
// lane order; the first horse to reach the line in a tick wins it.
func (g *Game) PlayHouse(rng *rand.Rand) {
	if g.finished {
		return
	}
	for g.winner < 0 {
		g.ticks++
		for i := range g.positions {
			g.positions[i] = min(g.track, g.positions[i]+rng.IntN(MaxStride)+1)
			if g.positions[i] >= g.track && g.winner < 0 {
				g.winner = i
			}
		}
	}
	g.finished = true
}

// Winner returns the winning lane index, or -1 before the race.
func (g *Game) Winner() int {
	return g.winner
}

// Settle shares the pot among the winner's backers in proportion to their
// stakes. If nobody backed the winner the house keeps the pot.
func (g *Game) Settle(staked map[int64]int64, order []int64) []session.Settlement {
	var pot int64
	var backers []int64
	for _, p := range order {
		pot += staked[p]
		if c, ok := g.Choice(p); ok && c == Lane(g.winner) {
			backers = append(backers, p)
		}
	}
	shares := pick.Split(pot, backers, staked)

	out := make([]session.Settlement, 0, len(order))
	for _, p := range order {
		share, won := shares[p]
		outcome := session.OutcomeLose
		switch {
		case won:
			outcome = session.OutcomeWin
		case g.Status(p) == session.StatusForfeited:
			outcome = session.OutcomeForfeit
		}
		out = append(out, session.NewSettlement(p, staked[p], share, outcome))
	}
	return out
}

// TableView is the public race card.
type TableView struct {
	Entries   []pick.Entry
	Track     int
	Positions []int
	Ticks     int
	Winner    int
	Picks     map[int64]string
}

func (g *Game) Table() any {
	view := TableView{
		Entries:   g.Entries(),
		Track:     g.track,
		Positions: append([]int(nil), g.positions...),
		Ticks:     g.ticks,
		Winner:    g.winner,
		Picks:     make(map[int64]string),
	}
	for _, p := range g.Order() {
		if c, ok := g.Choice(p); ok {
			view.Picks[p] = c
		}
	}
	return view
}
