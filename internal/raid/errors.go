package raid

import (
	"errors"
	"fmt"
	"time"
)

// Errors for raid encounters.
var (
	ErrOnCooldown        = errors.New("attack on cooldown")
	ErrEncounterNotFound = errors.New("no live encounter")
	ErrEncounterExists   = errors.New("an encounter is already active")
	ErrInvalidHP         = errors.New("encounter hp must be positive")
)

// CooldownError reports how long a member must wait before attacking again.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %s remaining", ErrOnCooldown, e.Remaining.Round(time.Second))
}

// Unwrap lets errors.Is match ErrOnCooldown.
func (e *CooldownError) Unwrap() error {
	return ErrOnCooldown
}
