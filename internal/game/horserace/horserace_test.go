package horserace

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"discord-community-bot/internal/game/pick"
	"discord-community-bot/internal/session"
	"discord-community-bot/internal/session/sessiontest"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestPlayHouse_DeterministicForSeed(t *testing.T) {
	a, b := New(Options{}), New(Options{})
	a.PlayHouse(seeded(42))
	b.PlayHouse(seeded(42))

	assert.Equal(t, a.Winner(), b.Winner())
	assert.Equal(t, a.positions, b.positions)
	assert.Len(t, a.positions, DefaultHorses)
}

func TestSettle_ProportionalToStake(t *testing.T) {
	g := New(Options{Horses: 4})
	g.Deal([]int64{1, 2, 3}, nil)
	g.PlayHouse(seeded(7))

	win := Lane(g.Winner())
	lose := Lane((g.Winner() + 1) % 4)
	require.NoError(t, g.Pick(1, win))
	require.NoError(t, g.Pick(2, win))
	require.NoError(t, g.Pick(3, lose))

	out := g.Settle(map[int64]int64{1: 100, 2: 300, 3: 100}, []int64{1, 2, 3})
	assert.Equal(t, int64(125), out[0].Payout)
	assert.Equal(t, int64(375), out[1].Payout)
	assert.Equal(t, int64(0), out[2].Payout)
	assert.Equal(t, session.OutcomeLose, out[2].Outcome)
}

func TestSettle_NobodyBackedWinner(t *testing.T) {
	g := New(Options{Horses: 3})
	g.Deal([]int64{1, 2}, nil)
	g.PlayHouse(seeded(1))

	lose := Lane((g.Winner() + 1) % 3)
	require.NoError(t, g.Pick(1, lose))
	g.Forfeit(2)

	out := g.Settle(map[int64]int64{1: 100, 2: 100}, []int64{1, 2})
	assert.Equal(t, int64(0), out[0].Payout+out[1].Payout, "house keeps the pot")
	assert.Equal(t, session.OutcomeForfeit, out[1].Outcome)
}

func TestGame_ExtraStakeThroughManager(t *testing.T) {
	table := sessiontest.NewTable(t, Definition(Options{Horses: 2}), map[int64]int64{1: 1000, 2: 1000}, 5)
	snap := table.Start(t, 100, 1, 2)

	res := table.Submit(t, snap.ID, 1, session.Action{Name: pick.ActionPick, Choice: Lane(0), Amount: 200})
	seat, _ := res.Snapshot.Seat(1)
	assert.Equal(t, int64(300), seat.Held)
	assert.Equal(t, int64(700), table.Ledger.BalanceOf(1))

	res = table.Submit(t, snap.ID, 2, session.Action{Name: pick.ActionPick, Choice: Lane(1)})
	require.NotNil(t, res.Closed)
	assert.Equal(t, int64(2000), table.Ledger.Total(), "both lanes backed, so the pot is paid out in full")

	view := res.Snapshot.Table.(TableView)
	assert.Equal(t, view.Track, view.Positions[view.Winner])
}

// TestRaceAlwaysFinishesProperty: the race ends with exactly the reported
// winner at the line, and no horse past it.
func TestRaceAlwaysFinishesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		horses := rapid.IntRange(2, len(Emojis)).Draw(t, "horses")
		track := rapid.IntRange(1, 50).Draw(t, "track")
		g := New(Options{Horses: horses, TrackLength: track})
		g.PlayHouse(seeded(rapid.Uint64().Draw(t, "seed")))

		w := g.Winner()
		if w < 0 || w >= horses {
			t.Fatalf("winner %d out of range", w)
		}
		if g.positions[w] != track {
			t.Fatalf("winner at %d, track %d", g.positions[w], track)
		}
		for i, p := range g.positions {
			if p > track {
				t.Fatalf("horse %d past the line", i)
			}
			if i < w && p >= track {
				t.Fatalf("earlier lane %d also finished but did not win", i)
			}
		}
		if g.ticks > track {
			t.Fatalf("race took %d ticks on a track of %d", g.ticks, track)
		}
	})
}
