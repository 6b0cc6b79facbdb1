package raid

import (
	"context"
	"time"

	"discord-community-bot/internal/model"
)

// Fighter is what the damage roll needs to know about an attacker.
type Fighter struct {
	Level        int
	DamageBonus  float64    // permanent bonus, 0.10 = +10%
	LastAttackAt *time.Time // nil before the member's first attack on this encounter
}

// Hit is the result of one recorded attack.
type Hit struct {
	Attacker  model.Attacker
	HP        int64  // authoritative HP after the decrement
	LastHitBy *int64 // set once HP crossed to zero or below
}

// Plan computes the rewards of a claimed encounter inside the claim's unit of work.
type Plan func(boss model.Boss, attackers []model.Attacker) Rewards

// Store persists encounters. Strike and Claim are each one unit of work.
//
// Strike records the attack only if the member's cooldown has elapsed
// (ErrOnCooldown otherwise) and decrements HP only while HP > 0
// (ErrEncounterNotFound otherwise); if either guard fails nothing is written.
//
// Claim deletes the encounter only if its HP is at or below zero, so exactly
// one caller wins it. The winner's plan is credited in the same unit of work
// and the attackers are cleared. Every other caller gets ErrEncounterNotFound.
type Store interface {
	Spawn(ctx context.Context, boss model.Boss) (*model.Boss, error)
	Encounter(ctx context.Context, guildID int64) (*model.Boss, error)
	Encounters(ctx context.Context) ([]*model.Boss, error)
	Attackers(ctx context.Context, guildID int64) ([]model.Attacker, error)
	Fighter(ctx context.Context, guildID, userID int64) (Fighter, error)
	Strike(ctx context.Context, guildID, userID, damage int64, now time.Time, cooldown time.Duration) (*Hit, error)
	Claim(ctx context.Context, guildID int64, plan Plan) (*Rewards, error)
	Remove(ctx context.Context, guildID int64) (*model.Boss, error)
	SetMessage(ctx context.Context, guildID, channelID, messageID int64) error
}

// Announcer publishes raid outcomes. Delivery is best effort: rewards are
// already credited when it is called.
type Announcer interface {
	Defeated(ctx context.Context, rewards Rewards) error
	Expired(ctx context.Context, boss model.Boss) error
}
