package allocation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexLockerEvictsReleasedEntries(t *testing.T) {
	locker := newMutexLocker()
	ctx := context.Background()

	for courseID := uint64(1); courseID <= 100; courseID++ {
		release, err := locker.Lock(ctx, courseID)
		require.NoError(t, err)
		release()
	}

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Empty(t, locker.locks)
}

func TestMutexLockerKeepsEntryWhileContended(t *testing.T) {
	locker := newMutexLocker()
	ctx := context.Background()

	release, err := locker.Lock(ctx, 1)
	require.NoError(t, err)

	acquired := make(chan func())
	go func() {
		r, err := locker.Lock(ctx, 1)
		assert.NoError(t, err)
		acquired <- r
	}()

	// Releasing while another holder may be waiting must never strand
	// the waiter; once both release, the entry is gone.
	release()
	(<-acquired)()

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Empty(t, locker.locks)
}

func TestMutexLockerSerializesConcurrentHolders(t *testing.T) {
	locker := newMutexLocker()
	ctx := context.Background()

	var held, max int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(ctx, 7)
			assert.NoError(t, err)
			mu.Lock()
			held++
			if held > max {
				max = held
			}
			mu.Unlock()
			mu.Lock()
			held--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, max)

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Empty(t, locker.locks)
}
