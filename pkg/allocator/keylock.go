package allocator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/plotline/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed allocation lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyLocks serializes work per key inside one process and, when a DistributedLocker is
// configured, across processes. Entries are reference counted so unused keys are dropped.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

func newKeyLocks(locker ports.DistributedLocker, ttl time.Duration, logger *slog.Logger) *keyLocks {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &keyLocks{
		locks:  make(map[string]*lockEntry),
		locker: locker,
		ttl:    ttl,
		logger: logger,
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (k *keyLocks) acquire(key string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, exists := k.locks[key]
	if !exists {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (k *keyLocks) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, exists := k.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(k.locks, key)
	}
}

// size reports how many keys currently hold an entry.
func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// withLock executes fn while holding the lock for key.
func (k *keyLocks) withLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := k.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		k.release(key)
	}()

	if k.locker != nil {
		unlock, err := k.locker.Lock(ctx, "alloc:"+key, k.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The run context may already be cancelled; release with a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := unlock(releaseCtx); err != nil {
				k.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
