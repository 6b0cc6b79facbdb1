package raid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestSingleDefeatProperty: however many attacks land together, a defeat is
// claimed at most once and only when the damage dealt reaches max HP.
func TestSingleDefeatProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		n := rapid.IntRange(2, 16).Draw(t, "attackers")
		hp := rapid.Int64Range(1, 3000).Draw(t, "hp")

		store := newMemStore()
		var dealt int64
		for i := 1; i <= n; i++ {
			level := rapid.IntRange(5, 30).Draw(t, "level")
			store.fighters[int64(i)] = Fighter{Level: level}
			dealt += int64(level) * 10
		}
		ann := &recorder{}
		a := newTestArbiter(store, ann, newClock())
		if _, err := a.Spawn(ctx, guild, "Hydra", hp, 99, 5); err != nil {
			t.Fatalf("spawn: %v", err)
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			defeats  int
			failures []error
		)
		for i := 1; i <= n; i++ {
			wg.Add(1)
			go func(user int64) {
				defer wg.Done()
				res, err := a.Attack(ctx, guild, user)
				if err != nil {
					if !errors.Is(err, ErrEncounterNotFound) {
						mu.Lock()
						failures = append(failures, err)
						mu.Unlock()
					}
					return
				}
				if res.Defeat != nil {
					mu.Lock()
					defeats++
					mu.Unlock()
				}
			}(int64(i))
		}
		wg.Wait()

		if len(failures) > 0 {
			t.Fatalf("unexpected attack errors: %v", failures)
		}
		if store.claims > 1 || ann.defeats() > 1 || defeats > 1 {
			t.Fatalf("defeat claimed %d times, announced %d, returned %d", store.claims, ann.defeats(), defeats)
		}
		if dealt >= hp && store.claims != 1 {
			t.Fatalf("dealt %d >= hp %d but claims = %d", dealt, hp, store.claims)
		}
		if dealt < hp && store.claims != 0 {
			t.Fatalf("dealt %d < hp %d but boss was claimed", dealt, hp)
		}

		var paid int64
		for _, c := range store.coins {
			paid += c
		}
		if limit := hp + hp*15/100; paid > limit {
			t.Fatalf("paid %d exceeds pool plus bonuses %d", paid, limit)
		}
	})
}

// TestCooldownMonotonicityProperty: a second attack inside the cooldown is
// rejected and leaves HP unchanged; one at or after it is accepted.
func TestCooldownMonotonicityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := newMemStore()
		store.fighters[userX] = Fighter{Level: 1}
		clock := newClock()
		a := newTestArbiter(store, nil, clock)
		if _, err := a.Spawn(ctx, guild, "Golem", 1_000_000, 99, 5); err != nil {
			t.Fatalf("spawn: %v", err)
		}
		if _, err := a.Attack(ctx, guild, userX); err != nil {
			t.Fatalf("first attack: %v", err)
		}

		cooldown := a.Cooldown()
		wait := time.Duration(rapid.Int64Range(0, int64(2*cooldown)).Draw(t, "wait"))
		clock.Advance(wait)
		before, _ := store.hp(guild)

		_, err := a.Attack(ctx, guild, userX)
		after, _ := store.hp(guild)

		if wait < cooldown {
			var cd *CooldownError
			if !errors.As(err, &cd) {
				t.Fatalf("attack after %v: got %v, want cooldown", wait, err)
			}
			if cd.Remaining != cooldown-wait {
				t.Fatalf("remaining %v, want %v", cd.Remaining, cooldown-wait)
			}
			if after != before {
				t.Fatalf("rejected attack changed hp %d -> %d", before, after)
			}
			return
		}
		if err != nil {
			t.Fatalf("attack after %v: %v", wait, err)
		}
		if after != before-10 {
			t.Fatalf("hp %d -> %d, want -10", before, after)
		}
	})
}
