package taixiu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-community-bot/internal/game/pick"
	"discord-community-bot/internal/session"
	"discord-community-bot/internal/session/sessiontest"
)

func TestPayout(t *testing.T) {
	tests := []struct {
		call    string
		total   int
		payout  int64
		outcome session.Outcome
	}{
		{Tai, 8, 200, session.OutcomeWin},
		{Tai, 12, 200, session.OutcomeWin},
		{Tai, 7, 0, session.OutcomeLose},
		{Xiu, 2, 200, session.OutcomeWin},
		{Xiu, 6, 200, session.OutcomeWin},
		{Xiu, 8, 0, session.OutcomeLose},
		{Hoa, 7, 500, session.OutcomeSpecialWin},
		{Hoa, 6, 0, session.OutcomeLose},
		{"", 7, 0, session.OutcomeForfeit},
	}
	for _, tt := range tests {
		payout, outcome := Payout(tt.call, tt.total, 100)
		assert.Equal(t, tt.payout, payout, "%s on %d", tt.call, tt.total)
		assert.Equal(t, tt.outcome, outcome, "%s on %d", tt.call, tt.total)
	}
}

func TestGame_ThroughManager(t *testing.T) {
	def := Definition(0)
	def.New = func() session.Rules { return NewWithDice(3, 4) }
	table := sessiontest.NewTable(t, def, map[int64]int64{1: 1000, 2: 1000}, 1)
	snap := table.Start(t, 100, 1, 2)

	res := table.Submit(t, snap.ID, 1, session.Action{Name: pick.ActionPick, Choice: Hoa})
	assert.Zero(t, res.Snapshot.Table.(TableView).Total, "dice hidden until everyone has called")

	res = table.Submit(t, snap.ID, 2, session.Action{Name: pick.ActionPick, Choice: Tai})
	require.NotNil(t, res.Closed)

	view := res.Snapshot.Table.(TableView)
	assert.Equal(t, 7, view.Total)
	assert.Equal(t, Hoa, view.Result)
	assert.Equal(t, int64(1400), table.Ledger.BalanceOf(1))
	assert.Equal(t, int64(900), table.Ledger.BalanceOf(2))
}

func TestPlayHouse_RollsInRange(t *testing.T) {
	table := sessiontest.NewTable(t, Definition(0), map[int64]int64{1: 1000, 2: 1000}, 9)
	snap := table.Start(t, 10, 1, 2)
	table.Submit(t, snap.ID, 1, session.Action{Name: pick.ActionPick, Choice: Xiu})
	res := table.Submit(t, snap.ID, 2, session.Action{Name: pick.ActionPick, Choice: Xiu})

	view := res.Snapshot.Table.(TableView)
	for _, d := range view.Dice {
		assert.GreaterOrEqual(t, d, 1)
		assert.LessOrEqual(t, d, 6)
	}
	assert.Equal(t, Outcome(view.Total), view.Result)
}
