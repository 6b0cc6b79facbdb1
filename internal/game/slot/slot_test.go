// Package slot tests for the slot machine game.
package slot

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"pgregory.net/rapid"
)

func TestCalculatePayout_ThreeOfAKind(t *testing.T) {
	tests := []struct {
		face string
		want int64
	}{
		{Seven, 10000},
		{Diamond, 5000},
		{MoneyBag, 2000},
		{Strawberry, 1000},
		{Orange, 500},
		{Cherry, 300},
	}

	for _, tt := range tests {
		t.Run(tt.face, func(t *testing.T) {
			got := CalculatePayout([Reels]string{tt.face, tt.face, tt.face}, 100)
			if got != tt.want {
				t.Errorf("CalculatePayout(%s x3, 100) = %d, want %d", tt.face, got, tt.want)
			}
		})
	}
}

func TestCalculatePayout_Mixed(t *testing.T) {
	tests := []struct {
		name  string
		reels [Reels]string
		bet   int64
		want  int64
	}{
		{"two cherries", [Reels]string{Cherry, Cherry, Seven}, 100, 150},
		{"two cherries apart", [Reels]string{Cherry, Orange, Cherry}, 101, 151},
		{"two oranges", [Reels]string{Orange, Orange, Cherry}, 100, 0},
		{"one cherry", [Reels]string{Cherry, Orange, Diamond}, 100, 0},
		{"all different", [Reels]string{Seven, Diamond, MoneyBag}, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculatePayout(tt.reels, tt.bet); got != tt.want {
				t.Errorf("CalculatePayout(%v, %d) = %d, want %d", tt.reels, tt.bet, got, tt.want)
			}
		})
	}
}

func TestDraw_WeightBoundaries(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, Cherry},
		{39, Cherry},
		{40, Orange},
		{69, Orange},
		{70, Strawberry},
		{90, MoneyBag},
		{100, Diamond},
		{105, Seven},
		{106, Seven},
	}

	for _, tt := range tests {
		got := Draw(func(total int) int {
			if total != 107 {
				t.Fatalf("total weight = %d, want 107", total)
			}
			return tt.n
		})
		if got != tt.want {
			t.Errorf("Draw(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestSlotGame_ValidateBet(t *testing.T) {
	g := New(&Config{MaxBet: 1000})

	if err := g.ValidateBet(0, nil); !errors.Is(err, ErrInvalidBet) {
		t.Errorf("ValidateBet(0) = %v, want ErrInvalidBet", err)
	}
	if err := g.ValidateBet(1001, nil); !errors.Is(err, ErrBetTooHigh) {
		t.Errorf("ValidateBet(1001) = %v, want ErrBetTooHigh", err)
	}
	if err := g.ValidateBet(1000, nil); err != nil {
		t.Errorf("ValidateBet(1000) = %v, want nil", err)
	}
}

func TestSlotGame_Interface(t *testing.T) {
	g := New(nil)
	if g.Command() != "slots" {
		t.Errorf("Command() = %s, want slots", g.Command())
	}
	if g.MaxBet() != DefaultMaxBet {
		t.Errorf("MaxBet() = %d, want %d", g.MaxBet(), DefaultMaxBet)
	}
	if g.Cooldown() != DefaultCooldown {
		t.Errorf("Cooldown() = %d, want %d", g.Cooldown(), DefaultCooldown)
	}
}

// TestSlotPlayNetPayoutProperty: the net result of a play is always the
// gross credit of its reels minus the bet.
func TestSlotPlayNetPayoutProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		bet := rapid.Int64Range(1, DefaultMaxBet).Draw(t, "bet")
		g := New(&Config{Rand: rand.New(rand.NewPCG(seed, seed))})

		result, err := g.Play(context.Background(), 1, bet, nil)
		if err != nil {
			t.Fatalf("Play failed: %v", err)
		}
		reels := result.Details["reels"].([Reels]string)
		if want := CalculatePayout(reels, bet) - bet; result.Payout != want {
			t.Fatalf("net payout %d, want %d for %v", result.Payout, want, reels)
		}
		if result.Payout < -bet {
			t.Fatalf("lost more than the bet: %d", result.Payout)
		}
	})
}
