// Package slot implements the three-reel slot machine.
package slot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"discord-community-bot/internal/game"
)

const (
	// DefaultMaxBet is the maximum allowed bet for slot game
	DefaultMaxBet = 100000

	// DefaultCooldown is the cooldown between spins in seconds
	DefaultCooldown = 5

	// Reels is the number of reels spun per play.
	Reels = 3
)

// Symbols on the reels.
const (
	Cherry     = "🍒"
	Orange     = "🍊"
	Strawberry = "🍓"
	MoneyBag   = "💰"
	Diamond    = "💎"
	Seven      = "7️⃣"
)

// Symbol is one reel symbol with its draw weight and triple multiplier.
type Symbol struct {
	Face       string
	Weight     int
	Multiplier int64
}

// Table lists every symbol. Weights are relative draw odds.
var Table = []Symbol{
	{Cherry, 40, 3},
	{Orange, 30, 5},
	{Strawberry, 20, 10},
	{MoneyBag, 10, 20},
	{Diamond, 5, 50},
	{Seven, 2, 100},
}

// Errors for slot game
var (
	ErrInvalidBet = errors.New("bet amount must be positive")
	ErrBetTooHigh = errors.New("bet exceeds maximum allowed")
)

// SlotGame implements the Game interface for slot machine gambling.
type SlotGame struct {
	maxBet   int64
	cooldown int

	mu  sync.Mutex
	rng *rand.Rand
}

// Config holds configuration for the slot game.
type Config struct {
	MaxBet   int64
	Cooldown int
	// Rand overrides the reel source. Nil uses the runtime's generator.
	Rand *rand.Rand
}

// New creates a new SlotGame with the given configuration.
func New(cfg *Config) *SlotGame {
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

	return &SlotGame{
		maxBet:   maxBet,
		cooldown: cooldown,
		rng:      rng,
	}
}

// Name returns the game's display name.
func (s *SlotGame) Name() string {
	return "Slot Machine"
}

// Command returns the command that triggers this game.
func (s *SlotGame) Command() string {
	return "slots"
}

// Description returns a brief description of the game.
func (s *SlotGame) Description() string {
	return "Spin three reels! Three of a kind pays up to 100x, two cherries pay 1.5x"
}

// MaxBet returns the maximum allowed bet.
func (s *SlotGame) MaxBet() int64 {
	return s.maxBet
}

// Cooldown returns the cooldown duration in seconds.
func (s *SlotGame) Cooldown() int {
	return s.cooldown
}

// ValidateBet checks if the bet amount and parameters are valid.
func (s *SlotGame) ValidateBet(bet int64, params map[string]any) error {
	if bet <= 0 {
		return ErrInvalidBet
	}
	if bet > s.maxBet {
		return fmt.Errorf("%w: max bet is %d", ErrBetTooHigh, s.maxBet)
	}
	return nil
}

// Play spins the reels and settles the bet.
func (s *SlotGame) Play(ctx context.Context, userID int64, bet int64, params map[string]any) (*game.GameResult, error) {
	if err := s.ValidateBet(bet, params); err != nil {
		return nil, err
	}

	reels := s.Spin()
	gross := CalculatePayout(reels, bet)
	payout := gross - bet

	display := strings.Join(reels[:], " | ")
	var description string
	switch {
	case reels[0] == Seven && reels[1] == Seven && reels[2] == Seven:
		description = fmt.Sprintf("🎰 [ %s ]\n🎊 JACKPOT! You won %d coins!", display, gross)
	case gross > 0:
		description = fmt.Sprintf("🎰 [ %s ]\n🎉 You won %d coins!", display, gross)
	default:
		description = fmt.Sprintf("🎰 [ %s ]\n😢 No luck. You lost %d coins.", display, bet)
	}

	return &game.GameResult{
		Payout:      payout,
		Description: description,
		Details: map[string]any{
			"reels": reels,
			"gross": gross,
			"bet":   bet,
		},
	}, nil
}

// Spin draws one symbol per reel by weight.
func (s *SlotGame) Spin() [Reels]string {
	var out [Reels]string
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range out {
		out[i] = Draw(s.intN)
	}
	return out
}

func (s *SlotGame) intN(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}
	return s.rng.IntN(n)
}

// Draw picks a symbol by weight using intN as the source.
func Draw(intN func(int) int) string {
	total := 0
	for _, sym := range Table {
		total += sym.Weight
	}
	n := intN(total)
	for _, sym := range Table {
		if n < sym.Weight {
			return sym.Face
		}
		n -= sym.Weight
	}
	return Table[len(Table)-1].Face
}

// Multiplier returns the triple multiplier for face, or 0 if unknown.
func Multiplier(face string) int64 {
	for _, sym := range Table {
		if sym.Face == face {
			return sym.Multiplier
		}
	}
	return 0
}

// CalculatePayout returns the gross credit for a spin:
//   - three of a kind: bet times the symbol's multiplier
//   - exactly two cherries: int(1.5 * bet)
//   - anything else: 0
func CalculatePayout(reels [Reels]string, bet int64) int64 {
	if reels[0] == reels[1] && reels[1] == reels[2] {
		return bet * Multiplier(reels[0])
	}
	cherries := 0
	for _, r := range reels {
		if r == Cherry {
			cherries++
		}
	}
	if cherries == 2 {
		return bet * 3 / 2
	}
	return 0
}
