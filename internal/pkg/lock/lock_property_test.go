// Property-based tests for keyed locking.
package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestKeyedSerializesSameKeyProperty: concurrent read-modify-write under the
// same key ends with the sequential result.
func TestKeyedSerializesSameKeyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(1000, 100000).Draw(t, "initial")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")
		key := MemberKey{
			GuildID: rapid.Int64Range(1, 1000).Draw(t, "guild"),
			UserID:  rapid.Int64Range(1, 1000000).Draw(t, "user"),
		}

		expected := initial
		for _, a := range amounts {
			expected += a
		}

		kl := NewKeyed[MemberKey]()
		balance := initial

		var wg sync.WaitGroup
		wg.Add(len(amounts))
		for _, a := range amounts {
			go func(amount int64) {
				defer wg.Done()
				_ = kl.WithLock(key, func() error {
					balance += amount
					return nil
				})
			}(a)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d (initial=%d, ops=%d)",
				expected, balance, initial, len(amounts))
		}
		if kl.Len() != 0 {
			t.Fatalf("expected no retained keys after all holders released, got %d", kl.Len())
		}
	})
}

// TestKeyedIndependentKeysProperty: keys in different guilds never share a mutex.
func TestKeyedIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numMembers := rapid.IntRange(2, 10).Draw(t, "numMembers")
		opsPerMember := rapid.IntRange(5, 20).Draw(t, "opsPerMember")

		kl := NewKeyed[MemberKey]()
		counts := make([]int, numMembers)

		var wg sync.WaitGroup
		wg.Add(numMembers * opsPerMember)
		for i := 0; i < numMembers; i++ {
			for j := 0; j < opsPerMember; j++ {
				go func(idx int) {
					defer wg.Done()
					key := MemberKey{GuildID: int64(idx), UserID: 7}
					kl.Lock(key)
					defer kl.Unlock(key)
					counts[idx]++
				}(i)
			}
		}
		wg.Wait()

		for i, c := range counts {
			if c != opsPerMember {
				t.Fatalf("member %d: expected %d ops, got %d", i, opsPerMember, c)
			}
		}
	})
}

// TestTryLockSingleHolderProperty: while a key is held, every TryLock fails.
func TestTryLockSingleHolderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.Int64Range(1, 1000000).Draw(t, "key")
		attempts := rapid.IntRange(5, 20).Draw(t, "attempts")

		kl := NewKeyed[int64]()
		if !kl.TryLock(key) {
			t.Fatal("first TryLock on a free key must succeed")
		}

		var acquired atomic.Int32
		var wg sync.WaitGroup
		wg.Add(attempts)
		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				if kl.TryLock(key) {
					acquired.Add(1)
					kl.Unlock(key)
				}
			}()
		}
		wg.Wait()

		if acquired.Load() != 0 {
			t.Fatalf("TryLock succeeded %d times while key was held", acquired.Load())
		}

		kl.Unlock(key)
		if !kl.TryLock(key) {
			t.Fatal("key should be free after release")
		}
		kl.Unlock(key)
	})
}

func TestLockWithTimeout_GivesUp(t *testing.T) {
	kl := NewKeyed[string]()
	kl.Lock("s")

	start := time.Now()
	ok := kl.LockWithTimeout(context.Background(), "s", 20*time.Millisecond)
	if ok {
		t.Fatal("expected timeout while key is held")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("returned before the timeout elapsed")
	}

	kl.Unlock("s")
	if !kl.LockWithTimeout(context.Background(), "s", time.Second) {
		t.Fatal("expected to acquire after release")
	}
	kl.Unlock("s")
}

func TestWithLockContext_Timeout(t *testing.T) {
	kl := NewKeyed[string]()
	kl.Lock("s")
	defer kl.Unlock("s")

	err := kl.WithLockContext(context.Background(), "s", 10*time.Millisecond, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	if err != ErrLockTimeout {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}
