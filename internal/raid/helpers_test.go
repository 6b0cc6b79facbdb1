package raid

import (
	"context"
	"sync"
	"time"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/shop"
)

// memStore keeps encounters in memory with the same guards as the database.
type memStore struct {
	mu        sync.Mutex
	bosses    map[int64]*model.Boss
	attackers map[int64]map[int64]*model.Attacker
	fighters  map[int64]Fighter

	coins  map[int64]int64
	xp     map[int64]int64
	items  map[int64][]shop.ItemType
	claims int

	afterStrike func(userID int64)
}

func newMemStore() *memStore {
	return &memStore{
		bosses:    make(map[int64]*model.Boss),
		attackers: make(map[int64]map[int64]*model.Attacker),
		fighters:  make(map[int64]Fighter),
		coins:     make(map[int64]int64),
		xp:        make(map[int64]int64),
		items:     make(map[int64][]shop.ItemType),
	}
}

func (m *memStore) Spawn(_ context.Context, b model.Boss) (*model.Boss, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bosses[b.GuildID]; ok {
		return nil, ErrEncounterExists
	}
	if b.SpawnedAt.IsZero() {
		b.SpawnedAt = time.Unix(1_700_000_000, 0)
	}
	m.bosses[b.GuildID] = &b
	m.attackers[b.GuildID] = make(map[int64]*model.Attacker)
	out := b
	return &out, nil
}

func (m *memStore) Encounter(_ context.Context, guildID int64) (*model.Boss, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bosses[guildID]
	if !ok {
		return nil, ErrEncounterNotFound
	}
	out := *b
	return &out, nil
}

func (m *memStore) Encounters(context.Context) ([]*model.Boss, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Boss
	for _, b := range m.bosses {
		c := *b
		out = append(out, &c)
	}
	return out, nil
}

func (m *memStore) Attackers(_ context.Context, guildID int64) ([]model.Attacker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attackersLocked(guildID), nil
}

func (m *memStore) attackersLocked(guildID int64) []model.Attacker {
	var out []model.Attacker
	for _, a := range m.attackers[guildID] {
		out = append(out, *a)
	}
	return out
}

func (m *memStore) Fighter(_ context.Context, guildID, userID int64) (Fighter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.fighters[userID]
	if a, ok := m.attackers[guildID][userID]; ok {
		at := a.LastAttackAt
		f.LastAttackAt = &at
	}
	return f, nil
}

func (m *memStore) Strike(_ context.Context, guildID, userID, damage int64, now time.Time, cooldown time.Duration) (*Hit, error) {
	m.mu.Lock()
	a, seen := m.attackers[guildID][userID]
	if seen && now.Before(a.LastAttackAt.Add(cooldown)) {
		m.mu.Unlock()
		return nil, ErrOnCooldown
	}
	b, ok := m.bosses[guildID]
	if !ok || b.CurrentHP <= 0 {
		m.mu.Unlock()
		return nil, ErrEncounterNotFound
	}

	if !seen {
		a = &model.Attacker{GuildID: guildID, UserID: userID, FirstAttackAt: now}
		m.attackers[guildID][userID] = a
	}
	a.TotalDamage += damage
	a.LastAttackAt = now

	b.CurrentHP -= damage
	if b.CurrentHP <= 0 {
		id := userID
		b.LastHitBy = &id
	}
	hit := &Hit{Attacker: *a, HP: b.CurrentHP, LastHitBy: b.LastHitBy}
	hook := m.afterStrike
	m.mu.Unlock()

	if hook != nil {
		hook(userID)
	}
	return hit, nil
}

func (m *memStore) Claim(_ context.Context, guildID int64, plan Plan) (*Rewards, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bosses[guildID]
	if !ok || b.CurrentHP > 0 {
		return nil, ErrEncounterNotFound
	}
	delete(m.bosses, guildID)

	rewards := plan(*b, m.attackersLocked(guildID))
	for _, r := range rewards.Rewards {
		m.coins[r.UserID] += r.Coins()
		m.xp[r.UserID] += r.XP
		if r.Item != "" {
			m.items[r.UserID] = append(m.items[r.UserID], r.Item)
		}
	}
	delete(m.attackers, guildID)
	m.claims++
	return &rewards, nil
}

func (m *memStore) Remove(_ context.Context, guildID int64) (*model.Boss, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bosses[guildID]
	if !ok {
		return nil, ErrEncounterNotFound
	}
	delete(m.bosses, guildID)
	delete(m.attackers, guildID)
	return b, nil
}

func (m *memStore) SetMessage(_ context.Context, guildID, channelID, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bosses[guildID]
	if !ok {
		return ErrEncounterNotFound
	}
	b.ChannelID, b.MessageID = channelID, messageID
	return nil
}

func (m *memStore) hp(guildID int64) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bosses[guildID]
	if !ok {
		return 0, false
	}
	return b.CurrentHP, true
}

// recorder counts announcements.
type recorder struct {
	mu       sync.Mutex
	defeated []Rewards
	expired  []model.Boss
	fail     bool
}

func (r *recorder) Defeated(_ context.Context, rewards Rewards) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defeated = append(r.defeated, rewards)
	if r.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (r *recorder) Expired(_ context.Context, boss model.Boss) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, boss)
	return nil
}

func (r *recorder) defeats() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.defeated)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const guild = int64(42)

// newTestArbiter returns an arbiter whose hits deal Level*10 damage and
// never drop items.
func newTestArbiter(store *memStore, ann Announcer, clock *fakeClock) *Arbiter {
	a := NewArbiter(store, ann, Config{Now: clock.Now})
	a.damage = func(f Fighter) int64 { return int64(f.Level) * 10 }
	return a
}
