// Package pick holds the shared state of simultaneous-choice games, where
// every participant makes one pick and is then done.
package pick

import (
	"fmt"
	"slices"

	"discord-community-bot/internal/session"
)

// ActionPick records a participant's choice.
const ActionPick = "pick"

// ActionMine shows a participant their own pick.
const ActionMine = "mine"

// Board tracks who picked what.
type Board struct {
	options []string
	order   []int64
	picks   map[int64]string
	status  map[int64]session.Status
}

// NewBoard creates a board accepting only the given options.
func NewBoard(options ...string) *Board {
	return &Board{
		options: options,
		picks:   make(map[int64]string),
		status:  make(map[int64]session.Status),
	}
}

// Seat registers the participants in turn order.
func (b *Board) Seat(players []int64) {
	b.order = append([]int64(nil), players...)
	for _, p := range players {
		b.status[p] = session.StatusPlaying
	}
}

// Options returns the accepted choices.
func (b *Board) Options() []string {
	return slices.Clone(b.options)
}

// Order returns the participants in turn order.
func (b *Board) Order() []int64 {
	return slices.Clone(b.order)
}

func (b *Board) Status(player int64) session.Status {
	if st, ok := b.status[player]; ok {
		return st
	}
	return session.StatusPlaying
}

// Validate checks a pick without recording it.
func (b *Board) Validate(player int64, choice string) error {
	st, ok := b.status[player]
	if !ok || st.Terminal() {
		return session.ErrIllegalAction
	}
	if !slices.Contains(b.options, choice) {
		return fmt.Errorf("%w: unknown choice %q", session.ErrIllegalAction, choice)
	}
	return nil
}

// Pick records choice and makes the participant terminal.
func (b *Board) Pick(player int64, choice string) error {
	if err := b.Validate(player, choice); err != nil {
		return err
	}
	b.picks[player] = choice
	b.status[player] = session.StatusStood
	return nil
}

// Choice returns the participant's pick, if any.
func (b *Board) Choice(player int64) (string, bool) {
	c, ok := b.picks[player]
	return c, ok
}

// Forfeit ends an idle participant's turn without a pick.
func (b *Board) Forfeit(player int64) {
	if _, ok := b.status[player]; ok {
		b.status[player] = session.StatusForfeited
	}
}

// Picked returns how many participants have chosen.
func (b *Board) Picked() int {
	return len(b.picks)
}

// View answers ActionMine.
func (b *Board) View(player int64, _ session.Action) (any, error) {
	c, ok := b.picks[player]
	if !ok {
		return "", nil
	}
	return c, nil
}

// Entry is one participant's line on the board.
type Entry struct {
	Player int64
	Picked bool
	Status session.Status
}

// Entries lists the board without revealing choices.
func (b *Board) Entries() []Entry {
	out := make([]Entry, 0, len(b.order))
	for _, p := range b.order {
		_, picked := b.picks[p]
		out = append(out, Entry{Player: p, Picked: picked, Status: b.status[p]})
	}
	return out
}

// Split divides amount among winners in proportion to weights. The integer
// remainder goes one unit at a time to the earliest winners.
func Split(amount int64, winners []int64, weights map[int64]int64) map[int64]int64 {
	out := make(map[int64]int64, len(winners))
	var total int64
	for _, w := range winners {
		total += weights[w]
	}
	if total <= 0 {
		return out
	}

	var paid int64
	for _, w := range winners {
		share := amount * weights[w] / total
		out[w] = share
		paid += share
	}
	for i := 0; paid < amount; i = (i + 1) % len(winners) {
		if weights[winners[i]] > 0 {
			out[winners[i]]++
			paid++
		}
	}
	return out
}
