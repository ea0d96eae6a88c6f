package locks_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/caldermed/chartsync/internal/adapters/locks"
)

func TestKeyedLocker_MutualExclusionPerKey(t *testing.T) {
	locker := locks.NewKeyedLocker()
	ctx := context.Background()

	var mu sync.Mutex
	inCritical, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "pat-1:vitals:enc:1")
			assert.NoError(t, err)
			defer release()

			mu.Lock()
			inCritical++
			if inCritical > peak {
				peak = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, peak)
}

func TestKeyedLocker_IndependentKeysDoNotContend(t *testing.T) {
	locker := locks.NewKeyedLocker()
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "pat-1:vitals:enc:1")
	assert.NoError(t, err)
	defer releaseA()

	acquired := make(chan struct{})
	go func() {
		releaseB, err := locker.Acquire(ctx, "pat-2:vitals:enc:1")
		assert.NoError(t, err)
		defer releaseB()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("unrelated key blocked behind a held lock")
	}
}

func TestKeyedLocker_AcquireRespectsContext(t *testing.T) {
	locker := locks.NewKeyedLocker()

	release, err := locker.Acquire(context.Background(), "key")
	assert.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(ctx, "key")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeyedLocker_ReleaseIsIdempotent(t *testing.T) {
	locker := locks.NewKeyedLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "key")
	assert.NoError(t, err)
	release()
	release()

	again, err := locker.Acquire(ctx, "key")
	assert.NoError(t, err)
	again()
}
