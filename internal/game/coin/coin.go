// Package coin implements the solo coin toss against the house.
package coin

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"discord-community-bot/internal/game"
)

const (
	// DefaultMaxBet is the maximum allowed bet for a coin toss
	DefaultMaxBet = 50000

	// DefaultCooldown is the cooldown between tosses in seconds
	DefaultCooldown = 3
)

// Sides of the coin.
const (
	Heads = "heads"
	Tails = "tails"
)

// Errors for coin game
var (
	ErrInvalidBet  = errors.New("bet amount must not be negative")
	ErrBetTooHigh  = errors.New("bet exceeds maximum allowed")
	ErrInvalidSide = errors.New("side must be heads or tails")
)

// CoinGame implements the Game interface for a single coin toss.
// A zero bet just tosses the coin.
type CoinGame struct {
	maxBet   int64
	cooldown int

	mu  sync.Mutex
	rng *rand.Rand
}

// Config holds configuration for the coin game.
type Config struct {
	MaxBet   int64
	Cooldown int
	Rand     *rand.Rand
}

// New creates a new CoinGame with the given configuration.
func New(cfg *Config) *CoinGame {
	maxBet := int64(DefaultMaxBet)
	cooldown := DefaultCooldown
	var rng *rand.Rand

	if cfg != nil {
		if cfg.MaxBet > 0 {
			maxBet = cfg.MaxBet
		}
		if cfg.Cooldown > 0 {
			cooldown = cfg.Cooldown
		}
		rng = cfg.Rand
	}

	return &CoinGame{
		maxBet:   maxBet,
		cooldown: cooldown,
		rng:      rng,
	}
}

// Name returns the game's display name.
func (c *CoinGame) Name() string {
	return "Coin Toss"
}

// Command returns the command that triggers this game.
func (c *CoinGame) Command() string {
	return "coin"
}

// Description returns a brief description of the game.
func (c *CoinGame) Description() string {
	return "Toss a coin. Call it right to double your bet, or bet nothing just to toss"
}

// MaxBet returns the maximum allowed bet.
func (c *CoinGame) MaxBet() int64 {
	return c.maxBet
}

// Cooldown returns the cooldown duration in seconds.
func (c *CoinGame) Cooldown() int {
	return c.cooldown
}

// ValidateBet checks if the bet amount and parameters are valid.
func (c *CoinGame) ValidateBet(bet int64, params map[string]any) error {
	if bet < 0 {
		return ErrInvalidBet
	}
	if bet > c.maxBet {
		return fmt.Errorf("%w: max bet is %d", ErrBetTooHigh, c.maxBet)
	}
	if _, err := extractSide(params); err != nil {
		return err
	}
	return nil
}

// Play tosses the coin. The player's side defaults to heads.
func (c *CoinGame) Play(ctx context.Context, userID int64, bet int64, params map[string]any) (*game.GameResult, error) {
	if err := c.ValidateBet(bet, params); err != nil {
		return nil, err
	}
	side, _ := extractSide(params)

	landed := c.Toss()
	payout := CalculatePayout(side, landed, bet)

	var description string
	switch {
	case bet == 0:
		description = fmt.Sprintf("🪙 The coin landed on **%s**!", landed)
	case payout > 0:
		description = fmt.Sprintf("🪙 %s!\n🎉 You won %d coins!", landed, payout)
	default:
		description = fmt.Sprintf("🪙 %s!\n😢 You lost %d coins.", landed, -payout)
	}

	return &game.GameResult{
		Payout:      payout,
		Description: description,
		Details: map[string]any{
			"side":   side,
			"landed": landed,
			"bet":    bet,
		},
	}, nil
}

// Toss flips the coin.
func (c *CoinGame) Toss() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	if c.rng == nil {
		n = rand.IntN(2)
	} else {
		n = c.rng.IntN(2)
	}
	if n == 0 {
		return Heads
	}
	return Tails
}

// CalculatePayout returns +bet when the call matches and -bet otherwise.
func CalculatePayout(side, landed string, bet int64) int64 {
	if side == landed {
		return bet
	}
	return -bet
}

func extractSide(params map[string]any) (string, error) {
	v, ok := params["side"]
	if !ok {
		return Heads, nil
	}
	side, ok := v.(string)
	if !ok || (side != Heads && side != Tails) {
		return "", ErrInvalidSide
	}
	return side, nil
}
