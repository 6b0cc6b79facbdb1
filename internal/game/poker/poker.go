// Package poker implements three-card poker (ba cây) against a house hand,
// with call, raise and fold betting rounds.
package poker

import (
	"fmt"
	"math/rand/v2"
	"time"

	"discord-community-bot/internal/game/cards"
	"discord-community-bot/internal/model"
	"discord-community-bot/internal/session"
)

const (
	Kind = "poker"

	DefaultTimeout = 300 * time.Second

	// HandSize is the number of cards dealt to every hand.
	HandSize = 3

	// AllFace is the score of a hand made only of J, Q and K.
	AllFace = 10

	// MaxRaise bounds a single raise.
	MaxRaise int64 = 1_000_000_000
)

const (
	ActionCall  = "call"
	ActionRaise = "raise"
	ActionFold  = "fold"
	ActionHand  = "hand"
)

// Score is the card sum mod 10, with A=1 and 10/J/Q/K=10.
// A hand of three face cards beats every other score.
func Score(hand []cards.Card) int {
	if len(hand) == 0 {
		return 0
	}
	allFace := true
	sum := 0
	for _, c := range hand {
		if !c.Face() {
			allFace = false
		}
		sum += c.Pip()
	}
	if allFace {
		return AllFace
	}
	return sum % 10
}

// Definition registers poker with the session manager.
func Definition(timeout time.Duration) session.Definition {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return session.Definition{
		Kind:       Kind,
		Name:       "Ba Cây",
		MinPlayers: 1,
		Timeout:    timeout,
		Progress:   model.EventPokerWin,
		New:        func() session.Rules { return New() },
	}
}

type seat struct {
	hand   []cards.Card
	bet    int64
	acted  bool
	status session.Status
}

// Game is one poker table.
type Game struct {
	deck     *cards.Deck
	dealer   []cards.Card
	seats    map[int64]*seat
	order    []int64
	toMatch  int64
	showdown bool
}

func New() *Game {
	return &Game{seats: make(map[int64]*seat)}
}

// NewWithDeck creates a table dealing from d.
func NewWithDeck(d *cards.Deck) *Game {
	return &Game{deck: d, seats: make(map[int64]*seat)}
}

func (g *Game) Mode() session.TurnMode { return session.Rounds }

// Deal gives the dealer three cards and then every player three cards.
// Bets start at zero; the entry stake is tracked by the session.
func (g *Game) Deal(players []int64, rng *rand.Rand) {
	if g.deck == nil {
		g.deck = cards.Shuffled(rng)
	}
	g.order = append([]int64(nil), players...)
	for i := 0; i < HandSize; i++ {
		g.dealer = append(g.dealer, g.deck.Draw())
	}
	for _, p := range players {
		s := &seat{status: session.StatusPlaying}
		for i := 0; i < HandSize; i++ {
			s.hand = append(s.hand, g.deck.Draw())
		}
		g.seats[p] = s
	}
}

func (g *Game) Status(player int64) session.Status {
	if s, ok := g.seats[player]; ok {
		return s.status
	}
	return session.StatusPlaying
}

func (g *Game) ReadOnly(a session.Action) bool {
	return a.Name == ActionHand
}

// HandView is a player's private hand.
type HandView struct {
	Cards []cards.Card
	Score int
}

func (g *Game) View(player int64, _ session.Action) (any, error) {
	s, ok := g.seats[player]
	if !ok || s.status == session.StatusFolded {
		return nil, fmt.Errorf("%w: no hand to show", session.ErrIllegalAction)
	}
	return HandView{Cards: cards.Clone(s.hand), Score: Score(s.hand)}, nil
}

// Cost quotes what the player must add on top of their stake so far:
// the difference to the bet to match, plus the raise.
func (g *Game) Cost(player int64, a session.Action) (int64, error) {
	s, ok := g.seats[player]
	if !ok {
		return 0, session.ErrIllegalAction
	}
	switch a.Name {
	case ActionFold:
		return 0, nil
	case ActionCall:
		return g.toMatch - s.bet, nil
	case ActionRaise:
		if a.Amount <= 0 {
			return 0, fmt.Errorf("%w: raise must be positive", session.ErrIllegalAction)
		}
		if a.Amount > MaxRaise {
			return 0, fmt.Errorf("%w: raise above %d", session.ErrIllegalAction, MaxRaise)
		}
		return g.toMatch - s.bet + a.Amount, nil
	}
	return 0, fmt.Errorf("%w: %q", session.ErrIllegalAction, a.Name)
}

func (g *Game) Apply(player int64, a session.Action) error {
	s, ok := g.seats[player]
	if !ok || s.status.Terminal() {
		return session.ErrIllegalAction
	}
	cost, err := g.Cost(player, a)
	if err != nil {
		return err
	}

	switch a.Name {
	case ActionFold:
		s.status = session.StatusFolded
	case ActionCall:
		s.bet += cost
	case ActionRaise:
		s.bet += cost
		g.toMatch = s.bet
	}
	s.acted = true

	if g.bettingDone() {
		for _, p := range g.order {
			if st := g.seats[p]; st.status == session.StatusPlaying {
				st.status = session.StatusStood
			}
		}
	}
	return nil
}

// bettingDone reports whether at most one player is still in, or every
// active player has acted and matched the current bet.
func (g *Game) bettingDone() bool {
	active, pending := 0, false
	for _, p := range g.order {
		s := g.seats[p]
		if s.status != session.StatusPlaying {
			continue
		}
		active++
		if !s.acted || s.bet < g.toMatch {
			pending = true
		}
	}
	return active <= 1 || !pending
}

// Forfeit drops an idle player's hand.
func (g *Game) Forfeit(player int64) {
	if s, ok := g.seats[player]; ok {
		s.status = session.StatusForfeited
	}
}

// PlayHouse reveals every hand.
func (g *Game) PlayHouse(_ *rand.Rand) {
	g.showdown = true
}

// Settle pays the pot. A lone remaining player takes it all. Otherwise the
// best hands at or above the dealer split it, the remainder going to the
// earliest winner. With no winner the house keeps the pot.
func (g *Game) Settle(staked map[int64]int64, order []int64) []session.Settlement {
	var pot int64
	var live []int64
	for _, p := range order {
		pot += staked[p]
		if st := g.seats[p].status; st != session.StatusFolded && st != session.StatusForfeited {
			live = append(live, p)
		}
	}

	var winners []int64
	if len(live) == 1 {
		winners = live
	} else {
		dealerScore, best := Score(g.dealer), -1
		for _, p := range live {
			score := Score(g.seats[p].hand)
			if score < dealerScore {
				continue
			}
			switch {
			case score > best:
				best, winners = score, []int64{p}
			case score == best:
				winners = append(winners, p)
			}
		}
	}

	payouts := make(map[int64]int64, len(winners))
	if len(winners) > 0 {
		share := pot / int64(len(winners))
		for _, w := range winners {
			payouts[w] = share
		}
		payouts[winners[0]] += pot - share*int64(len(winners))
	}

	out := make([]session.Settlement, 0, len(order))
	for _, p := range order {
		outcome := session.OutcomeLose
		_, won := payouts[p]
		switch {
		case won:
			outcome = session.OutcomeWin
		case g.seats[p].status == session.StatusForfeited:
			outcome = session.OutcomeForfeit
		}
		out = append(out, session.NewSettlement(p, staked[p], payouts[p], outcome))
	}
	return out
}

// SeatView is one player's public seat. Cards stay hidden until showdown.
type SeatView struct {
	Player int64
	Bet    int64
	Status session.Status
	Cards  []cards.Card
	Score  int
}

// TableView is the public table.
type TableView struct {
	ToMatch     int64
	Showdown    bool
	Dealer      []cards.Card
	DealerScore int
	Seats       []SeatView
}

func (g *Game) Table() any {
	view := TableView{ToMatch: g.toMatch, Showdown: g.showdown}
	if g.showdown {
		view.Dealer = cards.Clone(g.dealer)
		view.DealerScore = Score(g.dealer)
	}
	for _, p := range g.order {
		s := g.seats[p]
		sv := SeatView{Player: p, Bet: s.bet, Status: s.status}
		if g.showdown && s.status != session.StatusFolded {
			sv.Cards = cards.Clone(s.hand)
			sv.Score = Score(s.hand)
		}
		view.Seats = append(view.Seats, sv)
	}
	return view
}
