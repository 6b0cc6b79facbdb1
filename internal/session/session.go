package session

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// Seat is one participant's public standing in a snapshot.
type Seat struct {
	Player int64
	Status Status
	Held   int64
}

// Snapshot is an immutable copy of a session, handed to rendering.
type Snapshot struct {
	ID          string
	Kind        string
	Name        string
	GuildID     int64
	ChannelID   int64
	MessageID   int64
	Host        int64
	Stake       int64
	MinPlayers  int
	Mode        TurnMode
	State       State
	Seats       []Seat
	Current     int64 // 0 when no single participant is awaited
	Table       any
	Settlements []Settlement
	Reason      CloseReason
	Version     int
	UpdatedAt   time.Time
}

// Players returns the participant order.
func (s Snapshot) Players() []int64 {
	players := make([]int64, len(s.Seats))
	for i, seat := range s.Seats {
		players[i] = seat.Player
	}
	return players
}

// Seat returns the named participant's seat.
func (s Snapshot) Seat(player int64) (Seat, bool) {
	for _, seat := range s.Seats {
		if seat.Player == player {
			return seat, true
		}
	}
	return Seat{}, false
}

// Settlement returns the named participant's settlement once resolved.
func (s Snapshot) Settlement(player int64) (Settlement, bool) {
	for _, st := range s.Settlements {
		if st.Player == player {
			return st, true
		}
	}
	return Settlement{}, false
}

// Session is one game instance. Every field is guarded by mu.
type Session struct {
	mu sync.Mutex

	id        string
	def       Definition
	guildID   int64
	channelID int64
	messageID int64
	host      int64
	stake     int64

	state   State
	reason  CloseReason
	players []int64
	held    map[int64]int64
	// acted marks participants with an accepted action. withdrawn marks
	// those a timeout reached before their first turn; they are refunded.
	acted     map[int64]bool
	withdrawn map[int64]bool

	rules       Rules
	cursor      *TurnCursor
	settlements []Settlement
	rng         *rand.Rand

	version   int
	createdAt time.Time
	touchedAt time.Time
}

// transition moves the state machine, refusing anything not in the table.
func (s *Session) transition(next State) error {
	if !s.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, next)
	}
	s.state = next
	s.version++
	return nil
}

func (s *Session) touch(now time.Time) {
	s.touchedAt = now
	s.version++
}

func (s *Session) isPlayer(player int64) bool {
	return slices.Contains(s.players, player)
}

func (s *Session) terminal(player int64) bool {
	return s.rules.Status(player).Terminal()
}

func (s *Session) allTerminal() bool {
	for _, p := range s.players {
		if !s.terminal(p) {
			return false
		}
	}
	return true
}

// current returns the awaited participant of a turn-ordered game.
func (s *Session) current() (int64, bool) {
	if s.state != StateInProgress || s.rules == nil || s.rules.Mode() == Simultaneous {
		return 0, false
	}
	return s.cursor.Current()
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		Kind:        s.def.Kind,
		Name:        s.def.Name,
		GuildID:     s.guildID,
		ChannelID:   s.channelID,
		MessageID:   s.messageID,
		Host:        s.host,
		Stake:       s.stake,
		MinPlayers:  s.def.MinPlayers,
		State:       s.state,
		Seats:       make([]Seat, len(s.players)),
		Reason:      s.reason,
		Version:     s.version,
		UpdatedAt:   s.touchedAt,
		Settlements: slices.Clone(s.settlements),
	}
	for i, p := range s.players {
		seat := Seat{Player: p, Held: s.held[p]}
		if s.rules != nil {
			seat.Status = s.rules.Status(p)
		}
		snap.Seats[i] = seat
	}
	if s.rules != nil {
		snap.Mode = s.rules.Mode()
		snap.Table = s.rules.Table()
	}
	if p, ok := s.current(); ok {
		snap.Current = p
	}
	return snap
}
