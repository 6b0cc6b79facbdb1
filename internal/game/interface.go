// Package game defines the solo game interface and the registry that serves
// both solo games and multiplayer session definitions.
package game

import "context"

// GameResult represents the outcome of a solo play.
type GameResult struct {
	Payout      int64          // Net payout (positive = win, negative = loss, 0 = push)
	Description string         // Human-readable result description
	Details     map[string]any // Additional game-specific details
}

// Game is a single-player game settled in one step against the house.
// Adding a solo game only requires implementing this interface.
type Game interface {
	// Name returns the game's display name (e.g., "Slot Machine")
	Name() string

	// Command returns the slash command that triggers this game (e.g., "slots")
	Command() string

	// Description returns a brief description of the game
	Description() string

	// Play runs the game for userID and returns the net result.
	// params carries game-specific options such as a called side.
	Play(ctx context.Context, userID int64, bet int64, params map[string]any) (*GameResult, error)

	// ValidateBet checks if the bet amount and parameters are valid.
	ValidateBet(bet int64, params map[string]any) error

	// MaxBet returns the maximum allowed bet, or 0 if there is no maximum.
	MaxBet() int64

	// Cooldown returns the cooldown in seconds between plays, or 0.
	Cooldown() int
}
