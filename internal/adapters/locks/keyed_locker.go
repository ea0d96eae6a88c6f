package locks

import (
	"context"
	"sync"

	"github.com/caldermed/chartsync/internal/domain/providers"
)

// KeyedLocker is an in-process lock table keyed by
// (patient, category, entity-identity). Unrelated keys never contend;
// entries are dropped once the last waiter releases.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// NewKeyedLocker creates a new in-process keyed locker
func NewKeyedLocker() providers.EntityLocker {
	return &KeyedLocker{
		locks: make(map[string]*lockEntry),
	}
}

// Acquire blocks until the lock for key is held or ctx is done
func (l *KeyedLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-entry.sem
				l.drop(key, entry)
			})
		}
		return release, nil
	case <-ctx.Done():
		l.drop(key, entry)
		return nil, ctx.Err()
	}
}

func (l *KeyedLocker) drop(key string, entry *lockEntry) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
