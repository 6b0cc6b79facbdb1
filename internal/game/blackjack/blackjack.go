// Package blackjack implements multiplayer blackjack against a house dealer.
package blackjack

import (
	"fmt"
	"math/rand/v2"
	"time"

	"discord-community-bot/internal/game/cards"
	"discord-community-bot/internal/model"
	"discord-community-bot/internal/session"
)

const (
	Kind = "blackjack"

	// DefaultTimeout is the inactivity window before idle players forfeit.
	DefaultTimeout = 300 * time.Second

	// DealerStandsOn is the score at which the dealer stops drawing.
	DealerStandsOn = 17

	// FiveCardHand is the hand size that pays triple when not bust.
	FiveCardHand = 5
)

// Action names.
const (
	ActionHit   = "hit"
	ActionStand = "stand"
	ActionHand  = "hand"
)

// Score totals a hand. Aces count 11, dropping to 1 while the hand is over 21.
func Score(hand []cards.Card) int {
	score, aces := 0, 0
	for _, c := range hand {
		switch {
		case c.Rank == "A":
			score += 11
			aces++
		default:
			score += c.Pip()
		}
	}
	for score > 21 && aces > 0 {
		score -= 10
		aces--
	}
	return score
}

// Natural reports a two-card 21.
func Natural(hand []cards.Card) bool {
	return len(hand) == 2 && Score(hand) == 21
}

// Payout compares a terminal hand with the dealer's. Precedence: bust loses,
// a five-card hand pays triple unless the dealer has a natural, a natural
// pays 2.5x or pushes against a dealer natural, a dealer bust pays double,
// then higher score pays double and equal scores push.
func Payout(hand, dealer []cards.Card, status session.Status, stake int64) (int64, session.Outcome) {
	if status == session.StatusForfeited {
		return 0, session.OutcomeForfeit
	}

	score, dealerScore := Score(hand), Score(dealer)
	dealerNatural := Natural(dealer)

	switch {
	case score > 21:
		return 0, session.OutcomeLose
	case len(hand) >= FiveCardHand:
		if dealerNatural {
			return 0, session.OutcomeLose
		}
		return stake * 3, session.OutcomeSpecialWin
	case Natural(hand):
		if dealerNatural {
			return stake, session.OutcomePush
		}
		return stake * 5 / 2, session.OutcomeSpecialWin
	case dealerScore > 21:
		return stake * 2, session.OutcomeWin
	case score > dealerScore:
		return stake * 2, session.OutcomeWin
	case score < dealerScore:
		return 0, session.OutcomeLose
	default:
		return stake, session.OutcomePush
	}
}

// Definition registers blackjack with the session manager.
func Definition(timeout time.Duration) session.Definition {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return session.Definition{
		Kind:       Kind,
		Name:       "Blackjack",
		MinPlayers: 1,
		Timeout:    timeout,
		Progress:   model.EventBlackjackWin,
		New:        func() session.Rules { return New() },
	}
}

type hand struct {
	cards  []cards.Card
	status session.Status
}

// Game is one blackjack table.
type Game struct {
	deck      *cards.Deck
	dealer    []cards.Card
	hands     map[int64]*hand
	order     []int64
	houseDone bool
}

// New creates a table that shuffles a fresh deck at the deal.
func New() *Game {
	return &Game{hands: make(map[int64]*hand)}
}

// NewWithDeck creates a table dealing from d.
func NewWithDeck(d *cards.Deck) *Game {
	return &Game{deck: d, hands: make(map[int64]*hand)}
}

func (g *Game) Mode() session.TurnMode { return session.Sequential }

// Deal gives the dealer two cards, then every player two cards in seat order.
// A natural stands immediately.
func (g *Game) Deal(players []int64, rng *rand.Rand) {
	if g.deck == nil {
		g.deck = cards.Shuffled(rng)
	}
	g.order = append([]int64(nil), players...)
	g.dealer = []cards.Card{g.deck.Draw(), g.deck.Draw()}
	for _, p := range players {
		h := &hand{cards: []cards.Card{g.deck.Draw(), g.deck.Draw()}, status: session.StatusPlaying}
		if Natural(h.cards) {
			h.status = session.StatusWon
		}
		g.hands[p] = h
	}
}

func (g *Game) Status(player int64) session.Status {
	if h, ok := g.hands[player]; ok {
		return h.status
	}
	return session.StatusPlaying
}

func (g *Game) ReadOnly(a session.Action) bool {
	return a.Name == ActionHand
}

// HandView is a player's private view of their own hand.
type HandView struct {
	Cards []cards.Card
	Score int
}

func (g *Game) View(player int64, _ session.Action) (any, error) {
	h, ok := g.hands[player]
	if !ok {
		return nil, session.ErrIllegalAction
	}
	return HandView{Cards: cards.Clone(h.cards), Score: Score(h.cards)}, nil
}

func (g *Game) Cost(_ int64, a session.Action) (int64, error) {
	switch a.Name {
	case ActionHit, ActionStand:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %q", session.ErrIllegalAction, a.Name)
}

func (g *Game) Apply(player int64, a session.Action) error {
	h, ok := g.hands[player]
	if !ok || h.status.Terminal() {
		return session.ErrIllegalAction
	}
	switch a.Name {
	case ActionHit:
		h.cards = append(h.cards, g.deck.Draw())
		if Score(h.cards) > 21 {
			h.status = session.StatusBusted
		}
	case ActionStand:
		h.status = session.StatusStood
	default:
		return session.ErrIllegalAction
	}
	return nil
}

func (g *Game) Forfeit(player int64) {
	if h, ok := g.hands[player]; ok {
		h.status = session.StatusForfeited
	}
}

// PlayHouse draws for the dealer while below DealerStandsOn.
func (g *Game) PlayHouse(_ *rand.Rand) {
	for Score(g.dealer) < DealerStandsOn {
		g.dealer = append(g.dealer, g.deck.Draw())
	}
	g.houseDone = true
}

func (g *Game) Settle(staked map[int64]int64, order []int64) []session.Settlement {
	out := make([]session.Settlement, 0, len(order))
	for _, p := range order {
		h := g.hands[p]
		payout, outcome := Payout(h.cards, g.dealer, h.status, staked[p])
		out = append(out, session.NewSettlement(p, staked[p], payout, outcome))
	}
	return out
}

// SeatView is one player's public hand.
type SeatView struct {
	Player int64
	Cards  []cards.Card
	Score  int
	Status session.Status
}

// TableView is the public table. The dealer's hole card stays hidden until
// the house has played.
type TableView struct {
	Dealer      []cards.Card
	DealerScore int
	HoleHidden  bool
	Seats       []SeatView
}

func (g *Game) Table() any {
	view := TableView{HoleHidden: !g.houseDone}
	if g.houseDone {
		view.Dealer = cards.Clone(g.dealer)
		view.DealerScore = Score(g.dealer)
	} else if len(g.dealer) > 0 {
		view.Dealer = []cards.Card{g.dealer[0]}
		view.DealerScore = Score(view.Dealer)
	}
	for _, p := range g.order {
		h := g.hands[p]
		view.Seats = append(view.Seats, SeatView{
			Player: p,
			Cards:  cards.Clone(h.cards),
			Score:  Score(h.cards),
			Status: h.status,
		})
	}
	return view
}
