// Package raid arbitrates concurrent attacks on a guild's shared boss.
//
// Correctness does not come from a lock: HP is decremented by one conditional
// statement and the defeat is claimed by a compare-and-delete, so exactly one
// caller distributes rewards however many attacks land together. The keyed
// in-process lock only turns a member's double click into a cooldown reply.
package raid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/pkg/lock"
	"discord-community-bot/internal/shop"
)

// Defaults for raid configuration.
const (
	DefaultAttackCooldown      = 10 * time.Second
	DefaultMVPBonusPercent     = 10
	DefaultLastHitBonusPercent = 5
	DefaultDropChance          = 0.20

	// Base damage is uniform in [MinBaseDamage, MaxBaseDamage].
	MinBaseDamage = 50
	MaxBaseDamage = 150
	// DamagePerLevel is added to the base roll per attacker level.
	DamagePerLevel = 10
)

// Config configures an Arbiter. Zero durations and percentages select the
// defaults. A DropChance outside [0,1] selects the default.
type Config struct {
	AttackCooldown      time.Duration
	MVPBonusPercent     int64
	LastHitBonusPercent int64
	DropChance          float64
	// EncounterTTL expires encounters nobody finished. 0 never expires.
	EncounterTTL time.Duration

	Rand *rand.Rand
	Now  func() time.Time
}

// Attack is the outcome of one accepted attack.
type Attack struct {
	Damage  int64
	HP      int64
	MaxHP   int64
	Name    string
	Total   int64    // the attacker's cumulative damage
	Defeat  *Rewards // set when this caller won the defeat claim
	Claimed bool     // HP reached zero but another caller won the claim
}

// Status is an encounter with its attackers, highest damage first.
type Status struct {
	Boss      model.Boss
	Attackers []model.Attacker
}

// SweepReport counts what one Sweep did.
type SweepReport struct {
	Expired int
	Claimed int
	Failed  int
}

// Arbiter runs boss raids for every guild.
type Arbiter struct {
	store     Store
	announcer Announcer
	inflight  *lock.Keyed[lock.MemberKey]
	cfg       Config

	mu  sync.Mutex // guards rng
	rng *rand.Rand

	// damage is swapped by tests for fixed rolls.
	damage func(f Fighter) int64
}

// NewArbiter creates an Arbiter. announcer may be nil.
func NewArbiter(store Store, announcer Announcer, cfg Config) *Arbiter {
	if cfg.AttackCooldown <= 0 {
		cfg.AttackCooldown = DefaultAttackCooldown
	}
	if cfg.MVPBonusPercent <= 0 {
		cfg.MVPBonusPercent = DefaultMVPBonusPercent
	}
	if cfg.LastHitBonusPercent <= 0 {
		cfg.LastHitBonusPercent = DefaultLastHitBonusPercent
	}
	if cfg.DropChance < 0 || cfg.DropChance > 1 {
		cfg.DropChance = DefaultDropChance
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	a := &Arbiter{
		store:     store,
		announcer: announcer,
		inflight:  lock.NewKeyed[lock.MemberKey](),
		cfg:       cfg,
		rng:       rng,
	}
	a.damage = a.roll
	return a
}

// Cooldown returns the per-member attack cooldown.
func (a *Arbiter) Cooldown() time.Duration {
	return a.cfg.AttackCooldown
}

// Spawn creates the guild's encounter at full HP.
func (a *Arbiter) Spawn(ctx context.Context, guildID int64, name string, hp int64, spawnedBy, channelID int64) (*model.Boss, error) {
	if hp <= 0 {
		return nil, ErrInvalidHP
	}

	boss, err := a.store.Spawn(ctx, model.Boss{
		GuildID:   guildID,
		Name:      name,
		CurrentHP: hp,
		MaxHP:     hp,
		ChannelID: channelID,
		SpawnedBy: spawnedBy,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("guild_id", guildID).
		Str("boss", name).
		Int64("hp", hp).
		Int64("user_id", spawnedBy).
		Msg("Boss spawned")
	return boss, nil
}

// Bind records the message the encounter is rendered in.
func (a *Arbiter) Bind(ctx context.Context, guildID, channelID, messageID int64) error {
	return a.store.SetMessage(ctx, guildID, channelID, messageID)
}

// Despawn removes the guild's encounter without rewards.
func (a *Arbiter) Despawn(ctx context.Context, guildID int64) (*model.Boss, error) {
	boss, err := a.store.Remove(ctx, guildID)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("guild_id", guildID).Str("boss", boss.Name).Msg("Boss despawned")
	return boss, nil
}

// Status returns the guild's encounter and its damage board.
func (a *Arbiter) Status(ctx context.Context, guildID int64) (*Status, error) {
	boss, err := a.store.Encounter(ctx, guildID)
	if err != nil {
		return nil, err
	}
	attackers, err := a.store.Attackers(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attackers: %w", err)
	}
	RankAttackers(attackers)
	return &Status{Boss: *boss, Attackers: attackers}, nil
}

// Attack lands one hit from userID on the guild's encounter. If the hit
// brings HP to zero the caller attempts the defeat claim.
func (a *Arbiter) Attack(ctx context.Context, guildID, userID int64) (*Attack, error) {
	key := lock.MemberKey{GuildID: guildID, UserID: userID}
	if !a.inflight.TryLock(key) {
		return nil, &CooldownError{Remaining: a.cfg.AttackCooldown}
	}
	defer a.inflight.Unlock(key)

	boss, err := a.store.Encounter(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if boss.CurrentHP <= 0 {
		a.settle(ctx, guildID)
		return nil, ErrEncounterNotFound
	}

	fighter, err := a.store.Fighter(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attacker: %w", err)
	}

	now := a.cfg.Now()
	if remaining := a.remaining(fighter, now); remaining > 0 {
		return nil, &CooldownError{Remaining: remaining}
	}

	damage := a.damage(fighter)
	hit, err := a.store.Strike(ctx, guildID, userID, damage, now, a.cfg.AttackCooldown)
	switch {
	case errors.Is(err, ErrOnCooldown):
		var cd *CooldownError
		if !errors.As(err, &cd) {
			err = &CooldownError{Remaining: a.cfg.AttackCooldown}
		}
		return nil, err
	case errors.Is(err, ErrEncounterNotFound):
		// Another hit finished the encounter first.
		a.settle(ctx, guildID)
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("failed to strike: %w", err)
	}

	out := &Attack{
		Damage: damage,
		HP:     hit.HP,
		MaxHP:  boss.MaxHP,
		Name:   boss.Name,
		Total:  hit.Attacker.TotalDamage,
	}

	log.Debug().
		Int64("guild_id", guildID).
		Int64("user_id", userID).
		Int64("damage", damage).
		Int64("hp", hit.HP).
		Msg("Boss hit")

	if hit.HP <= 0 {
		out.Defeat = a.settle(ctx, guildID)
		out.Claimed = out.Defeat == nil
	}
	return out, nil
}

// Sweep expires encounters older than the TTL and retries claims for
// encounters left at zero HP.
func (a *Arbiter) Sweep(ctx context.Context) SweepReport {
	var report SweepReport

	bosses, err := a.store.Encounters(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list encounters for sweep")
		report.Failed++
		return report
	}

	now := a.cfg.Now()
	for _, boss := range bosses {
		if ctx.Err() != nil {
			break
		}
		switch {
		case boss.CurrentHP <= 0:
			if _, err := a.claim(ctx, boss.GuildID); err != nil {
				if !errors.Is(err, ErrEncounterNotFound) {
					report.Failed++
				}
				continue
			}
			report.Claimed++
		case a.cfg.EncounterTTL > 0 && now.Sub(boss.SpawnedAt) >= a.cfg.EncounterTTL:
			removed, err := a.store.Remove(ctx, boss.GuildID)
			if err != nil {
				if !errors.Is(err, ErrEncounterNotFound) {
					log.Error().Err(err).Int64("guild_id", boss.GuildID).Msg("Failed to expire boss")
					report.Failed++
				}
				continue
			}
			report.Expired++
			a.announceExpired(ctx, *removed)
		}
	}

	if report != (SweepReport{}) {
		log.Info().
			Int("expired", report.Expired).
			Int("claimed", report.Claimed).
			Int("failed", report.Failed).
			Msg("Raid sweep completed")
	}
	return report
}

// settle attempts the claim and returns the rewards if this caller won it.
// Losing the claim is expected and silent.
func (a *Arbiter) settle(ctx context.Context, guildID int64) *Rewards {
	rewards, err := a.claim(ctx, guildID)
	if err != nil {
		return nil
	}
	return rewards
}

func (a *Arbiter) claim(ctx context.Context, guildID int64) (*Rewards, error) {
	rewards, err := a.store.Claim(ctx, guildID, a.plan)
	if err != nil {
		if !errors.Is(err, ErrEncounterNotFound) {
			log.Error().Err(err).Int64("guild_id", guildID).Msg("Failed to claim defeated boss")
		}
		return nil, err
	}

	log.Info().
		Int64("guild_id", guildID).
		Str("boss", rewards.Boss.Name).
		Int64("pool", rewards.Pool).
		Int64("total_damage", rewards.TotalDamage).
		Int("attackers", len(rewards.Rewards)).
		Msg("Boss defeated")

	if a.announcer != nil {
		if err := a.announcer.Defeated(ctx, *rewards); err != nil {
			log.Warn().Err(err).Int64("guild_id", guildID).Msg("Failed to announce boss defeat")
		}
	}
	return rewards, nil
}

func (a *Arbiter) plan(boss model.Boss, attackers []model.Attacker) Rewards {
	opts := Options{
		MVPBonusPercent:     a.cfg.MVPBonusPercent,
		LastHitBonusPercent: a.cfg.LastHitBonusPercent,
	}
	return Distribute(boss, attackers, opts, a.drop)
}

func (a *Arbiter) drop(int64) (shop.ItemType, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rng.Float64() >= a.cfg.DropChance {
		return "", false
	}
	return shop.RandomDrop(a.rng), true
}

// roll computes (base + level*10) * (1 + bonus), truncated.
func (a *Arbiter) roll(f Fighter) int64 {
	a.mu.Lock()
	base := MinBaseDamage + a.rng.IntN(MaxBaseDamage-MinBaseDamage+1)
	a.mu.Unlock()
	return Damage(base, f.Level, f.DamageBonus)
}

// Damage applies level and bonus to a base roll.
func Damage(base, level int, bonus float64) int64 {
	return int64(math.Trunc(float64(base+level*DamagePerLevel) * (1 + bonus)))
}

func (a *Arbiter) remaining(f Fighter, now time.Time) time.Duration {
	if f.LastAttackAt == nil {
		return 0
	}
	return f.LastAttackAt.Add(a.cfg.AttackCooldown).Sub(now)
}

func (a *Arbiter) announceExpired(ctx context.Context, boss model.Boss) {
	log.Info().Int64("guild_id", boss.GuildID).Str("boss", boss.Name).Msg("Boss expired")
	if a.announcer == nil {
		return
	}
	if err := a.announcer.Expired(ctx, boss); err != nil {
		log.Warn().Err(err).Int64("guild_id", boss.GuildID).Msg("Failed to announce boss expiry")
	}
}

// IsRejection reports whether err is an expected, user-facing rejection.
func IsRejection(err error) bool {
	return errors.Is(err, ErrOnCooldown) ||
		errors.Is(err, ErrEncounterNotFound) ||
		errors.Is(err, ErrEncounterExists) ||
		errors.Is(err, ErrInvalidHP)
}
