package raid

import (
	"sort"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/shop"
)

// XPPerDamage is the damage needed for one XP point.
const XPPerDamage = 5

// Options are the reward knobs of a defeat.
type Options struct {
	MVPBonusPercent     int64
	LastHitBonusPercent int64
}

// Reward is what one attacker receives for a defeat.
type Reward struct {
	UserID  int64
	Damage  int64
	Share   int64 // proportional part of the pool
	Bonus   int64 // MVP and last hit bonuses
	Boost   int64 // coin booster extra, set when paid
	XP      int64
	Item    shop.ItemType // empty when nothing dropped
	MVP     bool
	LastHit bool
}

// Coins is the total coin credit.
func (r Reward) Coins() int64 {
	return r.Share + r.Bonus + r.Boost
}

// Rewards is the outcome of one defeat.
type Rewards struct {
	Boss        model.Boss
	Pool        int64
	TotalDamage int64
	Rewards     []Reward // highest damage first
}

// Empty reports whether the defeat pays nothing.
func (r *Rewards) Empty() bool {
	return len(r.Rewards) == 0
}

// DropFunc decides the item an attacker receives, if any.
type DropFunc func(userID int64) (shop.ItemType, bool)

// Distribute computes the rewards of a defeated encounter. The pool is the
// encounter's max HP, shared by damage over the actual total dealt. The MVP
// is the highest cumulative damage, earliest first attack on ties. With no
// damage recorded nothing is paid.
func Distribute(boss model.Boss, attackers []model.Attacker, opts Options, drop DropFunc) Rewards {
	out := Rewards{Boss: boss, Pool: boss.MaxHP}

	ranked := make([]model.Attacker, 0, len(attackers))
	for _, a := range attackers {
		if a.TotalDamage > 0 {
			ranked = append(ranked, a)
			out.TotalDamage += a.TotalDamage
		}
	}
	if out.TotalDamage == 0 {
		return out
	}
	RankAttackers(ranked)

	out.Rewards = make([]Reward, 0, len(ranked))
	for i, a := range ranked {
		r := Reward{
			UserID: a.UserID,
			Damage: a.TotalDamage,
			Share:  out.Pool * a.TotalDamage / out.TotalDamage,
			XP:     a.TotalDamage / XPPerDamage,
			MVP:    i == 0,
		}
		if r.MVP {
			r.Bonus += out.Pool * opts.MVPBonusPercent / 100
		}
		if boss.LastHitBy != nil && *boss.LastHitBy == a.UserID {
			r.LastHit = true
			r.Bonus += out.Pool * opts.LastHitBonusPercent / 100
		}
		if drop != nil {
			if item, ok := drop(a.UserID); ok {
				r.Item = item
			}
		}
		out.Rewards = append(out.Rewards, r)
	}
	return out
}

// RankAttackers orders attackers by damage, then first attack, then user id.
func RankAttackers(attackers []model.Attacker) {
	sort.SliceStable(attackers, func(i, j int) bool {
		a, b := attackers[i], attackers[j]
		if a.TotalDamage != b.TotalDamage {
			return a.TotalDamage > b.TotalDamage
		}
		if !a.FirstAttackAt.Equal(b.FirstAttackAt) {
			return a.FirstAttackAt.Before(b.FirstAttackAt)
		}
		return a.UserID < b.UserID
	})
}
