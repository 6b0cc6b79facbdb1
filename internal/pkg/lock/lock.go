// Package lock provides keyed mutual exclusion, e.g. one in-flight raid
// attack per member or one daily claim per member.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a key stays held past the wait deadline.
var ErrLockTimeout = errors.New("lock wait timed out")

// keyMutex is a mutex shared by every caller holding the same key.
type keyMutex struct {
	mu   sync.Mutex
	refs int // holders plus waiters; guarded by Keyed.mu
}

// Keyed provides a mutex per key. Entries are dropped once no goroutine
// holds or waits on them, so the map stays proportional to live contention.
type Keyed[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyMutex
}

// NewKeyed creates an empty keyed lock.
func NewKeyed[K comparable]() *Keyed[K] {
	return &Keyed[K]{locks: make(map[K]*keyMutex)}
}

func (k *Keyed[K]) acquire(key K) *keyMutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &keyMutex{}
		k.locks[key] = m
	}
	m.refs++
	return m
}

func (k *Keyed[K]) release(key K, m *keyMutex) {
	k.mu.Lock()
	defer k.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
}

// Lock blocks until the key's lock is held.
func (k *Keyed[K]) Lock(key K) {
	m := k.acquire(key)
	m.mu.Lock()
}

// Unlock releases the key's lock. Unlocking a key that is not held panics,
// the same as sync.Mutex.
func (k *Keyed[K]) Unlock(key K) {
	k.mu.Lock()
	m, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		panic("lock: unlock of unlocked key")
	}
	m.mu.Unlock()
	k.release(key, m)
}

// TryLock acquires the key's lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (k *Keyed[K]) TryLock(key K) bool {
	m := k.acquire(key)
	if m.mu.TryLock() {
		return true
	}
	k.release(key, m)
	return false
}

// LockWithTimeout attempts to acquire the key's lock until timeout or ctx ends.
func (k *Keyed[K]) LockWithTimeout(ctx context.Context, key K, timeout time.Duration) bool {
	m := k.acquire(key)

	done := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// The waiter still acquires eventually; hand the lock straight back.
		go func() {
			<-done
			m.mu.Unlock()
			k.release(key, m)
		}()
		return false
	}
}

// WithLock executes fn while holding the key's lock.
func (k *Keyed[K]) WithLock(key K, fn func() error) error {
	k.Lock(key)
	defer k.Unlock(key)
	return fn()
}

// WithLockContext executes fn while holding the key's lock, giving up with
// ErrLockTimeout if the lock is not acquired within timeout.
func (k *Keyed[K]) WithLockContext(ctx context.Context, key K, timeout time.Duration, fn func() error) error {
	if !k.LockWithTimeout(ctx, key, timeout) {
		return ErrLockTimeout
	}
	defer k.Unlock(key)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}

// Len reports how many keys are currently held or awaited.
func (k *Keyed[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// MemberKey identifies a member within a guild.
type MemberKey struct {
	GuildID int64
	UserID  int64
}
