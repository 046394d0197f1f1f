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

// TestConcurrentSettlementSafetyProperty checks that concurrent read-modify-write
// work on one key ends with the sequential result.
func TestConcurrentSettlementSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")
		key := rapid.Int64Range(1, 1000000).Draw(t, "key")

		expected := initial
		amounts := make([]int64, numOps)
		for i := range amounts {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		kl := NewKeyedLock()
		total := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				kl.Lock(key)
				defer kl.Unlock(key)
				total += amount
			}(amount)
		}
		wg.Wait()

		if total != expected {
			t.Fatalf("expected %d, got %d (initial=%d, numOps=%d)", expected, total, initial, numOps)
		}
	})
}

// TestWithLockSettlesOnceProperty checks that only the first of many concurrent
// settle attempts on a key sees the record active.
func TestWithLockSettlesOnceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAttempts := rapid.IntRange(2, 30).Draw(t, "numAttempts")
		key := rapid.Int64Range(1, 1000000).Draw(t, "key")

		kl := NewKeyedLock()
		active := true
		var settled atomic.Int32

		var wg sync.WaitGroup
		wg.Add(numAttempts)
		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				_ = kl.WithLock(key, func() error {
					if active {
						active = false
						settled.Add(1)
					}
					return nil
				})
			}()
		}
		wg.Wait()

		if settled.Load() != 1 {
			t.Fatalf("expected exactly one settlement, got %d", settled.Load())
		}
	})
}

// TestIndependentKeysProperty checks that keys do not interfere with each other.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numKeys := rapid.IntRange(2, 10).Draw(t, "numKeys")
		opsPerKey := rapid.IntRange(5, 20).Draw(t, "opsPerKey")

		kl := NewKeyedLock()
		counters := make(map[int64]*int64, numKeys)
		for k := int64(1); k <= int64(numKeys); k++ {
			counters[k] = new(int64)
		}

		var wg sync.WaitGroup
		wg.Add(numKeys * opsPerKey)
		for k := int64(1); k <= int64(numKeys); k++ {
			for j := 0; j < opsPerKey; j++ {
				go func(key int64) {
					defer wg.Done()
					kl.Lock(key)
					defer kl.Unlock(key)
					*counters[key]++
				}(k)
			}
		}
		wg.Wait()

		for k, c := range counters {
			if *c != int64(opsPerKey) {
				t.Fatalf("key %d: expected %d, got %d", k, opsPerKey, *c)
			}
		}
		if kl.Len() != 0 {
			t.Fatalf("expected no tracked keys after release, got %d", kl.Len())
		}
	})
}

// TestTryLockExclusiveProperty checks TryLock never grants a held key and
// leaves the key free once every holder is done.
func TestTryLockExclusiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.Int64Range(1, 1000000).Draw(t, "key")
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")

		kl := NewKeyedLock()
		var holders, maxHolders atomic.Int32

		var wg sync.WaitGroup
		wg.Add(numAttempts)
		start := make(chan struct{})
		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if kl.TryLock(key) {
					n := holders.Add(1)
					for {
						m := maxHolders.Load()
						if n <= m || maxHolders.CompareAndSwap(m, n) {
							break
						}
					}
					holders.Add(-1)
					kl.Unlock(key)
				}
			}()
		}
		close(start)
		wg.Wait()

		if maxHolders.Load() > 1 {
			t.Fatalf("TryLock granted %d holders at once", maxHolders.Load())
		}
		if !kl.TryLock(key) {
			t.Fatal("lock should be available after all holders finished")
		}
		kl.Unlock(key)
	})
}

// TestLockUnlockSymmetryProperty checks that balanced cycles leave nothing behind.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.Int64Range(1, 1000000).Draw(t, "key")
		numCycles := rapid.IntRange(1, 50).Draw(t, "numCycles")

		kl := NewKeyedLock()
		for i := 0; i < numCycles; i++ {
			kl.Lock(key)
			kl.Unlock(key)
		}

		if kl.IsLocked(key) {
			t.Fatal("lock should be free after symmetric cycles")
		}
		if kl.Len() != 0 {
			t.Fatalf("expected no tracked keys, got %d", kl.Len())
		}
	})
}

func TestWithLockContext_Timeout(t *testing.T) {
	kl := NewKeyedLock()
	kl.Lock(7)

	err := kl.WithLockContext(context.Background(), 7, 20*time.Millisecond, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	if err != ErrLockTimeout {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}

	kl.Unlock(7)
	// the abandoned waiter gets through and releases
	deadline := time.Now().Add(time.Second)
	for kl.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if kl.Len() != 0 {
		t.Fatalf("abandoned waiter leaked a key entry")
	}
}

func TestWithLockContext_Cancelled(t *testing.T) {
	kl := NewKeyedLock()
	kl.Lock(9)
	defer kl.Unlock(9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kl.WithLockContext(ctx, 9, time.Second, func() error { return nil })
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
