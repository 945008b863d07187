package allocation

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avorland/course-registration/internal/model"
)

// fakeStore is an in-memory stand-in for the course and signup
// repositories.  All mutations go through the same mutex so the
// conditional semantics of PromoteWaiting match the real bulk update.
type fakeStore struct {
	mu      sync.Mutex
	spots   map[uint64]int
	signups map[uint64]*fakeSignup
}

type fakeSignup struct {
	id       uint64
	courseID uint64
	nethz    string
	status   string
	updated  time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		spots:   make(map[uint64]int),
		signups: make(map[uint64]*fakeSignup),
	}
}

func (f *fakeStore) Spots(_ context.Context, courseID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spots[courseID], nil
}

func (f *fakeStore) CountTaken(_ context.Context, courseID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.signups {
		if s.courseID == courseID && s.status != model.StatusWaiting {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) OldestWaiting(_ context.Context, courseID uint64, limit int) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	waiting := make([]*fakeSignup, 0)
	for _, s := range f.signups {
		if s.courseID == courseID && s.status == model.StatusWaiting {
			waiting = append(waiting, s)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		if !waiting[i].updated.Equal(waiting[j].updated) {
			return waiting[i].updated.Before(waiting[j].updated)
		}
		return waiting[i].nethz < waiting[j].nethz
	})
	if len(waiting) > limit {
		waiting = waiting[:limit]
	}
	ids := make([]uint64, 0, len(waiting))
	for _, s := range waiting {
		ids = append(ids, s.id)
	}
	return ids, nil
}

func (f *fakeStore) PromoteWaiting(_ context.Context, ids []uint64) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	promoted := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if s, ok := f.signups[id]; ok && s.status == model.StatusWaiting {
			s.status = model.StatusReserved
			promoted = append(promoted, id)
		}
	}
	return promoted, nil
}

func (f *fakeStore) add(id, courseID uint64, nethz, status string, updated time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signups[id] = &fakeSignup{id: id, courseID: courseID, nethz: nethz, status: status, updated: updated}
}

func (f *fakeStore) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.signups, id)
}

func (f *fakeStore) countNonWaiting(courseID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.signups {
		if s.courseID == courseID && s.status != model.StatusWaiting {
			n++
		}
	}
	return n
}

func newTestEngine(store *fakeStore) *Engine {
	return NewEngine(store, store, newMutexLocker())
}

func TestRebalanceNoCapacity(t *testing.T) {
	store := newFakeStore()
	store.spots[1] = 2
	base := time.Date(2019, 1, 9, 8, 0, 0, 0, time.UTC)
	store.add(1, 1, "alice", model.StatusReserved, base)
	store.add(2, 1, "bob", model.StatusAccepted, base)
	store.add(3, 1, "carol", model.StatusWaiting, base)

	promoted, err := newTestEngine(store).Rebalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, promoted)
	assert.Equal(t, model.StatusWaiting, store.signups[3].status)
}

func TestRebalancePromotionOrder(t *testing.T) {
	store := newFakeStore()
	store.spots[1] = 1
	base := time.Date(2019, 1, 9, 8, 0, 0, 0, time.UTC)
	// W1 updated later than W2: W2 must win the single seat.
	store.add(1, 1, "alice", model.StatusWaiting, base.Add(time.Hour))
	store.add(2, 1, "bob", model.StatusWaiting, base)

	promoted, err := newTestEngine(store).Rebalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, promoted)
	assert.Equal(t, model.StatusReserved, store.signups[2].status)
	assert.Equal(t, model.StatusWaiting, store.signups[1].status)
}

func TestRebalanceTieBreakOnNethz(t *testing.T) {
	store := newFakeStore()
	store.spots[1] = 1
	base := time.Date(2019, 1, 9, 8, 0, 0, 0, time.UTC)
	store.add(1, 1, "zorro", model.StatusWaiting, base)
	store.add(2, 1, "adam", model.StatusWaiting, base)

	promoted, err := newTestEngine(store).Rebalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, promoted)
}

func TestRebalancePromotesUpToAvailable(t *testing.T) {
	store := newFakeStore()
	store.spots[1] = 5
	base := time.Date(2019, 1, 9, 8, 0, 0, 0, time.UTC)
	store.add(1, 1, "alice", model.StatusReserved, base)
	store.add(2, 1, "bob", model.StatusWaiting, base.Add(1*time.Minute))
	store.add(3, 1, "carol", model.StatusWaiting, base.Add(2*time.Minute))
	store.add(4, 1, "dave", model.StatusWaiting, base.Add(3*time.Minute))

	promoted, err := newTestEngine(store).Rebalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 4}, promoted)
	assert.Equal(t, 4, store.countNonWaiting(1))
}

func TestRebalanceAfterDeletePromotesNext(t *testing.T) {
	store := newFakeStore()
	store.spots[1] = 1
	base := time.Date(2019, 1, 9, 8, 0, 0, 0, time.UTC)
	store.add(1, 1, "alice", model.StatusReserved, base)
	store.add(2, 1, "bob", model.StatusWaiting, base.Add(1*time.Minute))
	store.add(3, 1, "carol", model.StatusWaiting, base.Add(2*time.Minute))

	engine := newTestEngine(store)
	ctx := context.Background()

	promoted, err := engine.Rebalance(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, promoted)

	// Deleting the reserved signup frees exactly one seat for the
	// next signup in order.
	store.remove(1)
	promoted, err = engine.Rebalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, promoted)
	assert.Equal(t, model.StatusWaiting, store.signups[3].status)
}

func TestRebalanceAfterSpotIncrease(t *testing.T) {
	store := newFakeStore()
	store.spots[1] = 1
	base := time.Date(2019, 1, 9, 8, 0, 0, 0, time.UTC)
	store.add(1, 1, "alice", model.StatusReserved, base)
	store.add(2, 1, "bob", model.StatusWaiting, base.Add(1*time.Minute))
	store.add(3, 1, "carol", model.StatusWaiting, base.Add(2*time.Minute))

	engine := newTestEngine(store)
	store.spots[1] = 3
	promoted, err := engine.Rebalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, promoted)
}

func TestRebalanceAllDeduplicatesCourses(t *testing.T) {
	store := newFakeStore()
	store.spots[1] = 1
	store.spots[2] = 1
	base := time.Date(2019, 1, 9, 8, 0, 0, 0, time.UTC)
	store.add(1, 1, "alice", model.StatusWaiting, base)
	store.add(2, 2, "bob", model.StatusWaiting, base)
	store.add(3, 2, "carol", model.StatusWaiting, base.Add(time.Minute))

	promoted, err := newTestEngine(store).RebalanceAll(context.Background(), 1, 2, 1, 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{1, 2}, promoted)
	assert.Equal(t, 1, store.countNonWaiting(1))
	assert.Equal(t, 1, store.countNonWaiting(2))
}

// vanishingStore deletes one signup right before the first promotion
// write, simulating a signup that is removed between selection and the
// conditional update.
type vanishingStore struct {
	*fakeStore
	vanishID uint64
	once     sync.Once
}

func (v *vanishingStore) PromoteWaiting(ctx context.Context, ids []uint64) ([]uint64, error) {
	v.once.Do(func() { v.remove(v.vanishID) })
	return v.fakeStore.PromoteWaiting(ctx, ids)
}

func TestRebalanceReportsPromotionsWhenSelectedSignupVanishes(t *testing.T) {
	store := newFakeStore()
	store.spots[1] = 2
	base := time.Date(2019, 1, 9, 8, 0, 0, 0, time.UTC)
	store.add(1, 1, "alice", model.StatusWaiting, base)
	store.add(2, 1, "bob", model.StatusWaiting, base.Add(time.Minute))

	// Signup 2 disappears inside the first promotion; signup 1 is
	// still promoted and that flip must be visible in the result.
	vanishing := &vanishingStore{fakeStore: store, vanishID: 2}
	engine := NewEngine(store, vanishing, newMutexLocker())

	promoted, err := engine.Rebalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, promoted)
	assert.Equal(t, model.StatusReserved, store.signups[1].status)
}

func TestConcurrentRebalancesNeverExceedSpots(t *testing.T) {
	store := newFakeStore()
	store.spots[1] = 3
	base := time.Date(2019, 1, 9, 8, 0, 0, 0, time.UTC)
	for i := uint64(1); i <= 20; i++ {
		store.add(i, 1, "user"+string(rune('a'+i)), model.StatusWaiting, base.Add(time.Duration(i)*time.Second))
	}

	engine := newTestEngine(store)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Rebalance(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, store.countNonWaiting(1))
}
