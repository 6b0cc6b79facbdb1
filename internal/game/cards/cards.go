// Package cards provides a standard 52-card deck for the card games.
package cards

import "math/rand/v2"

// Suits in display order.
var Suits = []string{"♠", "♥", "♦", "♣"}

// Ranks in display order.
var Ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Card is one playing card.
type Card struct {
	Rank string
	Suit string
}

func (c Card) String() string {
	return c.Rank + c.Suit
}

// Face reports whether the card is a J, Q or K.
func (c Card) Face() bool {
	return c.Rank == "J" || c.Rank == "Q" || c.Rank == "K"
}

// Pip returns the card's base value: A=1, 2..10 at face value, J/Q/K=10.
func (c Card) Pip() int {
	switch c.Rank {
	case "A":
		return 1
	case "J", "Q", "K", "10":
		return 10
	}
	return int(c.Rank[0] - '0')
}

// Full returns the 52 cards in suit-major order.
func Full() []Card {
	cards := make([]Card, 0, len(Suits)*len(Ranks))
	for _, s := range Suits {
		for _, r := range Ranks {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return cards
}

// Deck deals cards from the top. An exhausted deck refills itself with a
// fresh shuffled pack.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// Shuffled returns a full deck shuffled with rng.
func Shuffled(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.refill()
	return d
}

// Stacked returns a deck that deals exactly the given cards in order,
// then continues with an unshuffled full pack.
func Stacked(top ...Card) *Deck {
	cards := make([]Card, len(top))
	copy(cards, top)
	return &Deck{cards: cards}
}

func (d *Deck) refill() {
	d.cards = Full()
	if d.rng != nil {
		d.rng.Shuffle(len(d.cards), func(i, j int) {
			d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
		})
	}
}

// Draw deals the top card.
func (d *Deck) Draw() Card {
	if len(d.cards) == 0 {
		d.refill()
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c
}

// Len returns the cards left before a refill.
func (d *Deck) Len() int {
	return len(d.cards)
}

// Clone copies a hand so callers cannot alias game state.
func Clone(hand []Card) []Card {
	if hand == nil {
		return nil
	}
	out := make([]Card, len(hand))
	copy(out, hand)
	return out
}
