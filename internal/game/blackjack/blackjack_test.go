package blackjack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-community-bot/internal/game/cards"
	"discord-community-bot/internal/session"
	"discord-community-bot/internal/session/sessiontest"
)

func c(rank string) cards.Card { return cards.Card{Rank: rank, Suit: "♠"} }

func handOf(ranks ...string) []cards.Card {
	out := make([]cards.Card, len(ranks))
	for i, r := range ranks {
		out[i] = c(r)
	}
	return out
}

func TestScore(t *testing.T) {
	tests := []struct {
		hand []string
		want int
	}{
		{[]string{"A", "K"}, 21},
		{[]string{"A", "A"}, 12},
		{[]string{"A", "A", "9"}, 21},
		{[]string{"A", "5", "K"}, 16},
		{[]string{"K", "Q", "2"}, 22},
		{[]string{"7", "8"}, 15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Score(handOf(tt.hand...)), "%v", tt.hand)
	}
}

func TestPayout(t *testing.T) {
	tests := []struct {
		name    string
		hand    []string
		dealer  []string
		status  session.Status
		payout  int64
		outcome session.Outcome
	}{
		{"bust", []string{"K", "Q", "5"}, []string{"K", "Q", "5"}, session.StatusBusted, 0, session.OutcomeLose},
		{"five card", []string{"2", "3", "2", "4", "A"}, []string{"K", "Q"}, session.StatusStood, 300, session.OutcomeSpecialWin},
		{"five card vs dealer natural", []string{"2", "3", "2", "4", "A"}, []string{"A", "K"}, session.StatusStood, 0, session.OutcomeLose},
		{"natural", []string{"A", "K"}, []string{"K", "9"}, session.StatusWon, 250, session.OutcomeSpecialWin},
		{"natural vs natural", []string{"A", "K"}, []string{"A", "Q"}, session.StatusWon, 100, session.OutcomePush},
		{"dealer bust", []string{"K", "2"}, []string{"K", "6", "9"}, session.StatusStood, 200, session.OutcomeWin},
		{"higher", []string{"K", "9"}, []string{"K", "8"}, session.StatusStood, 200, session.OutcomeWin},
		{"lower", []string{"K", "7"}, []string{"K", "8"}, session.StatusStood, 0, session.OutcomeLose},
		{"equal", []string{"K", "8"}, []string{"9", "9"}, session.StatusStood, 100, session.OutcomePush},
		{"three card 21 vs natural", []string{"7", "7", "7"}, []string{"A", "K"}, session.StatusStood, 100, session.OutcomePush},
		{"forfeit", []string{"A", "K"}, []string{"K", "9"}, session.StatusForfeited, 0, session.OutcomeForfeit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payout, outcome := Payout(handOf(tt.hand...), handOf(tt.dealer...), tt.status, 100)
			assert.Equal(t, tt.payout, payout)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}

func TestDeal_NaturalStandsImmediately(t *testing.T) {
	g := NewWithDeck(cards.Stacked(c("K"), c("9"), c("A"), c("K"), c("5"), c("6")))
	g.Deal([]int64{1, 2}, nil)

	assert.Equal(t, session.StatusWon, g.Status(1))
	assert.Equal(t, session.StatusPlaying, g.Status(2))
	assert.Equal(t, 19, Score(g.dealer), "dealer is dealt first")
}

func TestTable_HidesHoleCardUntilHousePlays(t *testing.T) {
	g := NewWithDeck(cards.Stacked(c("K"), c("6"), c("9"), c("8"), c("5")))
	g.Deal([]int64{1}, nil)

	view := g.Table().(TableView)
	assert.True(t, view.HoleHidden)
	assert.Len(t, view.Dealer, 1)

	g.PlayHouse(nil)
	view = g.Table().(TableView)
	assert.False(t, view.HoleHidden)
	assert.Equal(t, 21, view.DealerScore)
}

func stackedDefinition(deck *cards.Deck) session.Definition {
	def := Definition(0)
	def.New = func() session.Rules { return NewWithDeck(deck) }
	return def
}

func TestGame_NaturalAndBustThroughManager(t *testing.T) {
	const alice, bob int64 = 1, 2
	deck := cards.Stacked(
		c("10"), c("9"), // dealer 19
		c("A"), c("K"), // alice natural
		c("10"), c("6"), // bob 16
		c("K"), // bob's hit
	)
	table := sessiontest.NewTable(t, stackedDefinition(deck), map[int64]int64{alice: 1000, bob: 1000}, 1)

	snap := table.Start(t, 1000, alice, bob)
	require.Equal(t, session.StateInProgress, snap.State)
	assert.Equal(t, bob, snap.Current, "natural is skipped")

	_, err := table.M.Submit(context.Background(), snap.ID, alice, session.Action{Name: ActionHit})
	assert.ErrorIs(t, err, session.ErrNotYourTurn)

	res := table.Submit(t, snap.ID, bob, session.Action{Name: ActionHand})
	assert.Equal(t, 16, res.View.(HandView).Score)

	res = table.Submit(t, snap.ID, bob, session.Action{Name: ActionHit})
	require.NotNil(t, res.Closed)
	assert.Equal(t, session.ReasonCompleted, res.Closed.Reason)

	a, _ := res.Snapshot.Settlement(alice)
	assert.Equal(t, int64(2500), a.Payout)
	assert.Equal(t, session.OutcomeSpecialWin, a.Outcome)
	b, _ := res.Snapshot.Settlement(bob)
	assert.Equal(t, int64(0), b.Payout)
	assert.Equal(t, session.OutcomeLose, b.Outcome)

	assert.Equal(t, int64(2500), table.Ledger.BalanceOf(alice))
	assert.Equal(t, int64(0), table.Ledger.BalanceOf(bob))
	assert.Equal(t, 19, res.Snapshot.Table.(TableView).DealerScore)
}

func TestGame_StandAndDealerDraws(t *testing.T) {
	const alice int64 = 1
	deck := cards.Stacked(
		c("10"), c("5"), // dealer 15
		c("10"), c("8"), // alice 18
		c("4"), // dealer draws to 19
	)
	table := sessiontest.NewTable(t, stackedDefinition(deck), map[int64]int64{alice: 500}, 1)

	snap := table.Start(t, 200, alice)
	res := table.Submit(t, snap.ID, alice, session.Action{Name: ActionStand})
	require.NotNil(t, res.Closed)

	st, _ := res.Snapshot.Settlement(alice)
	assert.Equal(t, session.OutcomeLose, st.Outcome)
	assert.Equal(t, int64(-200), st.Net)
	assert.Equal(t, int64(300), table.Ledger.BalanceOf(alice))
}
