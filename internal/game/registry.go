package game

import (
	"fmt"
	"sort"
	"sync"

	"discord-community-bot/internal/session"
)

// Registry manages solo games and session game definitions.
// It is safe for concurrent use and serves as the session manager's catalog.
type Registry struct {
	games    map[string]Game
	sessions map[string]session.Definition
	mu       sync.RWMutex
}

// NewRegistry creates a new game registry.
func NewRegistry() *Registry {
	return &Registry{
		games:    make(map[string]Game),
		sessions: make(map[string]session.Definition),
	}
}

// Register adds a solo game to the registry.
// If a game with the same command already exists, it will be replaced.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if g.Command() == "" {
		return fmt.Errorf("game command cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.Command()] = g
	return nil
}

// RegisterSession adds a multiplayer game definition.
func (r *Registry) RegisterSession(def session.Definition) error {
	if def.Kind == "" {
		return fmt.Errorf("session kind cannot be empty")
	}
	if def.New == nil {
		return fmt.Errorf("session %s has no rules constructor", def.Kind)
	}
	if def.MinPlayers < 1 {
		return fmt.Errorf("session %s needs at least one player", def.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[def.Kind] = def
	return nil
}

// Get retrieves a solo game by its command.
func (r *Registry) Get(command string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[command]
	return g, ok
}

// Definition implements session.Catalog.
func (r *Registry) Definition(kind string) (session.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.sessions[kind]
	return d, ok
}

// List returns all solo games sorted by command.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Command() < games[j].Command() })
	return games
}

// Sessions returns all session definitions sorted by kind.
func (r *Registry) Sessions() []session.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]session.Definition, 0, len(r.sessions))
	for _, d := range r.sessions {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Kind < defs[j].Kind })
	return defs
}

// Count returns the number of registered solo and session games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games) + len(r.sessions)
}

// Unregister removes a solo game or session definition by name.
// Returns true if anything was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, solo := r.games[name]
	_, multi := r.sessions[name]
	delete(r.games, name)
	delete(r.sessions, name)
	return solo || multi
}
