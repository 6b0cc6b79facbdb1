package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/pkg/cache"
)

const (
	// DefaultLobbyTimeout closes lobbies nobody started.
	DefaultLobbyTimeout = 120 * time.Second

	// DefaultClosedCacheSize bounds how many closed session ids are remembered.
	DefaultClosedCacheSize = 1024
)

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	LobbyTimeout    time.Duration
	ClosedCacheSize int
	Now             func() time.Time
	Rand            func() *rand.Rand
}

// OpenRequest describes a new lobby.
type OpenRequest struct {
	Kind      string
	GuildID   int64
	ChannelID int64
	Host      int64
	Stake     int64
}

// SweepReport counts what one Sweep did.
type SweepReport struct {
	Expired  int // lobbies closed for inactivity
	Resolved int // games forfeited and settled, or stuck settlements completed
	Failed   int
}

// Manager owns every live session. Sessions are looked up under a read lock
// and then mutated under their own mutex, so unrelated tables never contend.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   *cache.LRU[string, struct{}]

	ledger    Ledger
	catalog   Catalog
	listeners []Listener

	lobbyTimeout time.Duration
	now          func() time.Time
	newRand      func() *rand.Rand
}

// NewManager creates a session manager backed by ledger.
func NewManager(ledger Ledger, catalog Catalog, opts Options) (*Manager, error) {
	if opts.LobbyTimeout <= 0 {
		opts.LobbyTimeout = DefaultLobbyTimeout
	}
	if opts.ClosedCacheSize <= 0 {
		opts.ClosedCacheSize = DefaultClosedCacheSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}

	closed, err := cache.NewLRU[string, struct{}](opts.ClosedCacheSize, 0)
	if err != nil {
		return nil, err
	}

	return &Manager{
		sessions:     make(map[string]*Session),
		closed:       closed,
		ledger:       ledger,
		catalog:      catalog,
		lobbyTimeout: opts.LobbyTimeout,
		now:          opts.Now,
		newRand:      opts.Rand,
	}, nil
}

// AddListener subscribes l to closed sessions.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Open creates a lobby with the host already seated.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (Snapshot, error) {
	def, ok := m.catalog.Definition(req.Kind)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownGame, req.Kind)
	}
	if req.Stake < 0 {
		return Snapshot{}, ErrInvalidStake
	}

	balance, err := m.ledger.Balance(ctx, req.GuildID, req.Host)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to check balance: %w", err)
	}
	if balance < req.Stake {
		return Snapshot{}, &InsufficientFundsError{UserID: req.Host}
	}

	now := m.now()
	s := &Session{
		id:        uuid.NewString(),
		def:       def,
		guildID:   req.GuildID,
		channelID: req.ChannelID,
		host:      req.Host,
		stake:     req.Stake,
		state:     StateLobby,
		players:   []int64{req.Host},
		held:      make(map[int64]int64),
		acted:     make(map[int64]bool),
		withdrawn: make(map[int64]bool),
		rules:     def.New(),
		rng:       m.newRand(),
		createdAt: now,
		touchedAt: now,
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	log.Debug().
		Str("session_id", s.id).
		Str("kind", def.Kind).
		Int64("guild_id", req.GuildID).
		Int64("host", req.Host).
		Int64("stake", req.Stake).
		Msg("Lobby opened")

	return s.snapshot(), nil
}

// Join seats player in the lobby.
func (m *Manager) Join(ctx context.Context, id string, player int64) (Snapshot, error) {
	return m.with(ctx, id, func(s *Session) (*ClosedEvent, error) {
		return nil, s.join(ctx, m.ledger, player, m.now())
	})
}

// Start debits every participant and deals. Only the host may start.
func (m *Manager) Start(ctx context.Context, id string, initiator int64) (Snapshot, error) {
	return m.with(ctx, id, func(s *Session) (*ClosedEvent, error) {
		return s.start(ctx, m.ledger, initiator, m.now())
	})
}

// Cancel closes a lobby. Only the host may cancel, and only before start.
func (m *Manager) Cancel(ctx context.Context, id string, initiator int64) (Snapshot, error) {
	return m.with(ctx, id, func(s *Session) (*ClosedEvent, error) {
		return s.cancel(initiator, m.now())
	})
}

// Abort force-closes a session and refunds held stakes.
func (m *Manager) Abort(ctx context.Context, id string) (Snapshot, error) {
	return m.with(ctx, id, func(s *Session) (*ClosedEvent, error) {
		return s.abort(ctx, m.ledger, m.now())
	})
}

// Submit applies a participant action.
func (m *Manager) Submit(ctx context.Context, id string, player int64, a Action) (Result, error) {
	s, err := m.lookup(id)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	res, err := s.submit(ctx, m.ledger, player, a, m.now())
	s.mu.Unlock()

	m.closeOut(ctx, s, res.Closed)
	if err != nil {
		m.logFailure(s, "submit", err)
	}
	return res, err
}

// Get returns the session's current snapshot.
func (m *Manager) Get(id string) (Snapshot, error) {
	s, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// Bind records the message that renders the session.
func (m *Manager) Bind(id string, messageID int64) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageID = messageID
	return nil
}

// Active returns the number of sessions not yet closed.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep applies inactivity timeouts and retries stuck settlements.
// It is meant to be called periodically by a scheduler.
func (m *Manager) Sweep(ctx context.Context) SweepReport {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	var report SweepReport
	for _, s := range sessions {
		if ctx.Err() != nil {
			break
		}

		s.mu.Lock()
		before := s.state
		ev, err := s.expire(ctx, m.ledger, m.now(), m.lobbyTimeout)
		s.mu.Unlock()

		if err != nil {
			report.Failed++
			m.logFailure(s, "sweep", err)
			continue
		}
		if ev == nil {
			continue
		}
		if before == StateLobby {
			report.Expired++
		} else {
			report.Resolved++
		}
		m.closeOut(ctx, s, ev)
	}

	if report != (SweepReport{}) {
		log.Info().
			Int("expired", report.Expired).
			Int("resolved", report.Resolved).
			Int("failed", report.Failed).
			Msg("Session sweep completed")
	}
	return report
}

func (m *Manager) lookup(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	if m.closed.Contains(id) {
		return nil, ErrSessionClosed
	}
	return nil, ErrSessionNotFound
}

// with runs op under the session lock and returns the resulting snapshot.
func (m *Manager) with(ctx context.Context, id string, op func(s *Session) (*ClosedEvent, error)) (Snapshot, error) {
	s, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	ev, err := op(s)
	snap := s.snapshot()
	s.mu.Unlock()

	m.closeOut(ctx, s, ev)
	if err != nil {
		m.logFailure(s, "lobby", err)
	}
	return snap, err
}

// closeOut retires a closed session and notifies listeners.
func (m *Manager) closeOut(ctx context.Context, s *Session, ev *ClosedEvent) {
	if ev == nil {
		return
	}

	// Tombstone first, so a concurrent lookup never sees neither.
	m.closed.Add(s.id, struct{}{})
	m.mu.Lock()
	if m.sessions[s.id] == s {
		delete(m.sessions, s.id)
	}
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	log.Info().
		Str("session_id", s.id).
		Str("kind", ev.Snapshot.Kind).
		Int64("guild_id", ev.Snapshot.GuildID).
		Str("reason", string(ev.Reason)).
		Int("settlements", len(ev.Settlements)).
		Msg("Session closed")

	for _, l := range listeners {
		l.SessionClosed(ctx, *ev)
	}
}

// logFailure logs unexpected errors. Expected rejections stay quiet.
func (m *Manager) logFailure(s *Session, op string, err error) {
	if IsRejection(err) {
		return
	}
	log.Error().Err(err).
		Str("session_id", s.id).
		Str("kind", s.def.Kind).
		Str("op", op).
		Msg("Session operation failed")
}

// IsRejection reports whether err is an expected, user-facing rejection
// rather than a collaborator failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInsufficientFunds, ErrNotYourTurn, ErrIllegalAction, ErrNotHost,
		ErrAlreadyJoined, ErrNotEnoughPlayers, ErrSessionClosed, ErrSessionNotFound,
		ErrInvalidTransition, ErrInvalidStake, ErrUnknownGame,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
