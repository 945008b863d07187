// Package allocation implements the waiting-list engine: it decides
// which waiting signups of a course are promoted to reserved whenever
// capacity changes.  The engine owns no state of its own; it reads and
// conditionally updates signups through the store interfaces and runs
// synchronously inside the request that triggered it.
package allocation

import "context"

// CourseStore is the course-side read the engine needs.
type CourseStore interface {
	// Spots returns the seat capacity of the course.
	Spots(ctx context.Context, courseID uint64) (int, error)
}

// SignupStore provides the waiting-list primitives.  PromoteWaiting
// must only flip signups that are still waiting at write time and
// report which rows it changed; that predicate is the backstop that
// keeps two racing rebalances from promoting a signup twice.
type SignupStore interface {
	CountTaken(ctx context.Context, courseID uint64) (int, error)
	OldestWaiting(ctx context.Context, courseID uint64, limit int) ([]uint64, error)
	PromoteWaiting(ctx context.Context, ids []uint64) ([]uint64, error)
}

// Locker serializes rebalances per course.  Lock blocks until the
// course lock is held or the context is done and returns a release
// function.  Rebalances of different courses run in parallel.
type Locker interface {
	Lock(ctx context.Context, courseID uint64) (func(), error)
}

// Engine promotes waiting signups as spots become available.  It must
// be invoked after every operation that can change a course's capacity
// balance: signup creation, deletion, course reassignment, and spot
// count changes.
type Engine struct {
	courses CourseStore
	signups SignupStore
	locker  Locker
}

// NewEngine constructs an Engine and panics if any dependency is nil.
func NewEngine(courses CourseStore, signups SignupStore, locker Locker) *Engine {
	if courses == nil || signups == nil || locker == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{courses: courses, signups: signups, locker: locker}
}

// rebalanceAttempts bounds the internal retry on a lost promotion race.
const rebalanceAttempts = 3

// Rebalance updates the waiting list for one course.  It counts the
// signups occupying a spot (status not waiting), and promotes up to
// spots-taken waiting signups in deterministic order: oldest update
// first, nethz as tie-breaker.  The returned IDs are the signups that
// were promoted, so the caller can reflect the new status in the
// response it is about to send.
//
// The caller's surrounding layer guarantees the course exists.  The
// whole count-select-promote sequence runs under the per-course lock;
// if the conditional promotion changes fewer rows than selected (a
// signup vanished between select and update), the attempt is recomputed
// from fresh counts.  Promotions that did land in an earlier attempt
// are kept and reported regardless of how the retry loop exits, so
// every status flip the engine persisted reaches the caller.
func (e *Engine) Rebalance(ctx context.Context, courseID uint64) ([]uint64, error) {
	release, err := e.locker.Lock(ctx, courseID)
	if err != nil {
		return nil, err
	}
	defer release()

	promoted := make([]uint64, 0)
	for attempt := 0; attempt < rebalanceAttempts; attempt++ {
		spots, err := e.courses.Spots(ctx, courseID)
		if err != nil {
			return promoted, err
		}
		taken, err := e.signups.CountTaken(ctx, courseID)
		if err != nil {
			return promoted, err
		}
		available := spots - taken
		if available <= 0 {
			return promoted, nil
		}
		ids, err := e.signups.OldestWaiting(ctx, courseID, available)
		if err != nil {
			return promoted, err
		}
		if len(ids) == 0 {
			return promoted, nil
		}
		done, err := e.signups.PromoteWaiting(ctx, ids)
		if err != nil {
			return append(promoted, done...), err
		}
		promoted = append(promoted, done...)
		if len(done) == len(ids) {
			return promoted, nil
		}
		// Lost a race despite the lock (e.g. a selected signup was
		// deleted after selection); recompute from fresh counts.
	}
	return promoted, nil
}

// RebalanceAll rebalances each distinct course exactly once and returns
// the union of promoted signup IDs.  Batch signup creation passes all
// referenced courses here so no course is rebalanced twice.
func (e *Engine) RebalanceAll(ctx context.Context, courseIDs ...uint64) ([]uint64, error) {
	seen := make(map[uint64]struct{}, len(courseIDs))
	promoted := make([]uint64, 0)
	for _, id := range courseIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids, err := e.Rebalance(ctx, id)
		if err != nil {
			return promoted, err
		}
		promoted = append(promoted, ids...)
	}
	return promoted, nil
}
