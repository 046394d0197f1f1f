// Package lock serialises read-modify-write work on a single ledger record.
// The session service holds a key for the whole load, settle and save sequence
// so two settlements of one session never interleave inside this process.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex is a mutex with a count of holders and waiters.
type keyMutex struct {
	mu   sync.Mutex
	refs int
}

// KeyedLock provides one mutex per int64 key.
// Entries are dropped once nobody holds or waits on them.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[int64]*keyMutex
	pool  sync.Pool
}

// NewKeyedLock creates a new KeyedLock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{
		locks: make(map[int64]*keyMutex),
		pool: sync.Pool{
			New: func() any {
				return &keyMutex{}
			},
		},
	}
}

// acquire returns the entry for key with its reference taken.
func (kl *KeyedLock) acquire(key int64) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	km, ok := kl.locks[key]
	if !ok {
		km = kl.pool.Get().(*keyMutex)
		km.refs = 0
		kl.locks[key] = km
	}
	km.refs++
	return km
}

// release drops a reference and recycles the entry when it was the last one.
func (kl *KeyedLock) release(key int64, km *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	km.refs--
	if km.refs == 0 {
		delete(kl.locks, key)
		kl.pool.Put(km)
	}
}

// Lock acquires the lock for key.
func (kl *KeyedLock) Lock(key int64) {
	kl.acquire(key).mu.Lock()
}

// Unlock releases the lock for key.
func (kl *KeyedLock) Unlock(key int64) {
	kl.mu.Lock()
	km, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}
	km.mu.Unlock()
	kl.release(key, km)
}

// TryLock attempts to acquire the lock without blocking.
func (kl *KeyedLock) TryLock(key int64) bool {
	km := kl.acquire(key)
	if km.mu.TryLock() {
		return true
	}
	kl.release(key, km)
	return false
}

// LockWithTimeout attempts to acquire the lock until timeout or ctx expires.
// Returns true if the lock was acquired.
func (kl *KeyedLock) LockWithTimeout(ctx context.Context, key int64, timeout time.Duration) bool {
	km := kl.acquire(key)

	done := make(chan struct{})
	go func() {
		km.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// the waiter still owns a reference; it unlocks once it gets through
		go func() {
			<-done
			km.mu.Unlock()
			kl.release(key, km)
		}()
		return false
	}
}

// WithLock executes fn while holding the lock for key.
func (kl *KeyedLock) WithLock(key int64, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext executes fn while holding the lock for key, giving up with
// ErrLockTimeout when the lock is not acquired within timeout.
func (kl *KeyedLock) WithLockContext(ctx context.Context, key int64, timeout time.Duration, fn func() error) error {
	if !kl.LockWithTimeout(ctx, key, timeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLockTimeout
	}
	defer kl.Unlock(key)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// IsLocked reports whether key is currently held.
// The answer may change immediately after.
func (kl *KeyedLock) IsLocked(key int64) bool {
	kl.mu.Lock()
	km, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return false
	}
	if km.mu.TryLock() {
		km.mu.Unlock()
		return false
	}
	return true
}

// Len returns the number of keys currently tracked.
func (kl *KeyedLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
