package allocation

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewLocker returns a distributed per-course locker backed by Redis, or
// an in-process locker when no Redis client is configured.  The
// in-process fallback is only safe for a single server instance; with
// multiple instances Redis must be available, otherwise two instances
// could rebalance the same course concurrently.
func NewLocker(rdb *redis.Client) Locker {
	if rdb == nil {
		return newMutexLocker()
	}
	return &redisLocker{rdb: rdb, ttl: 10 * time.Second}
}

// redisLocker implements Locker with a SET NX lock per course.  The
// lock value is unique per acquisition so release cannot delete a lock
// taken over by someone else after this holder's TTL expired.
type redisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

func (l *redisLocker) Lock(ctx context.Context, courseID uint64) (func(), error) {
	key := "rebalance:lock:" + strconv.FormatUint(courseID, 10)
	val := strconv.FormatInt(time.Now().UnixNano(), 10)
	for {
		ok, err := l.rdb.SetNX(ctx, key, val, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
	release := func() {
		_, _ = releaseScript.Run(context.Background(), l.rdb, []string{key}, val).Result()
	}
	return release, nil
}

// mutexLocker serializes rebalances per course within a single process.
// Entries are reference-counted and removed once the last holder
// releases, so the map does not accumulate one mutex per course ever
// rebalanced.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[uint64]*courseLock
}

type courseLock struct {
	mu   sync.Mutex
	refs int
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[uint64]*courseLock)}
}

func (l *mutexLocker) Lock(_ context.Context, courseID uint64) (func(), error) {
	l.mu.Lock()
	cl, ok := l.locks[courseID]
	if !ok {
		cl = &courseLock{}
		l.locks[courseID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	release := func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, courseID)
		}
		l.mu.Unlock()
	}
	return release, nil
}
