// Package validation implements the conflict validator: the closed set
// of rules that reject a course, signup, selection or payment write
// when its time intervals or references clash with already committed
// state.  Every rule reports a field-scoped violation; any violation
// rejects the whole write and nothing is applied.
package validation

import (
	"context"

	"github.com/avorland/course-registration/internal/model"
)

// Collection kinds for the registration rules.  Signups and selections
// share the same uniqueness and overlap rules; the kind selects which
// collection the validator checks against.
const (
	KindSignups    = "signups"
	KindSelections = "selections"
)

// Identity carries the two authorization facts the validator consumes,
// resolved by the surrounding request layer and passed in explicitly.
type Identity struct {
	Nethz string
	Admin bool
}

// Violation names the offending field and a human-readable reason.
// Handlers return violations verbatim in a 422 response body.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// CourseStore is what the validator reads about courses: their
// intervals and the other courses sharing a uniqueness scope.
type CourseStore interface {
	Datetimes(ctx context.Context, courseID uint64) ([]model.Timespan, error)
	ByRoomExcluding(ctx context.Context, room string, excludeID uint64) ([]model.Course, error)
	ByAssistantExcluding(ctx context.Context, assistant string, excludeID uint64) ([]model.Course, error)
}

// RegistrationStore answers owner-scoped questions over one collection
// kind: the courses the owner is already registered for and whether a
// registration to a specific course exists.
type RegistrationStore interface {
	CourseIDsByOwner(ctx context.Context, kind, nethz string, excludeID uint64) ([]uint64, error)
	Exists(ctx context.Context, kind, nethz string, courseID, excludeID uint64) (bool, error)
}

// SignupStatusStore resolves the current status of signups, needed by
// the payment rules.
type SignupStatusStore interface {
	StatusByIDs(ctx context.Context, ids []uint64) (map[uint64]string, error)
}

// Validator evaluates all rules against the store.  Reads are
// unlocked; the database uniqueness keys on (nethz, course) and the
// payment token are the backstop for writes that race past a check.
type Validator struct {
	courses       CourseStore
	registrations RegistrationStore
	statuses      SignupStatusStore
}

// NewValidator constructs a Validator and panics if any dependency is nil.
func NewValidator(courses CourseStore, registrations RegistrationStore, statuses SignupStatusStore) *Validator {
	if courses == nil || registrations == nil || statuses == nil {
		panic("nil dependency passed to NewValidator")
	}
	return &Validator{courses: courses, registrations: registrations, statuses: statuses}
}
