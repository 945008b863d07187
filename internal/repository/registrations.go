package repository

import (
	"context"
	"fmt"
)

// Registrations dispatches owner-scoped lookups to the signup or
// selection repository depending on the collection kind.  The conflict
// validator runs the same overlap and uniqueness rules over both
// collections; this adapter keeps the rule set in one place instead of
// duplicating it per collection.
type Registrations struct {
	Signups    *SignupRepo
	Selections *SelectionRepo
}

// CourseIDsByOwner returns the course references of the owner's other
// registrations in the named collection ("signups" or "selections").
func (r Registrations) CourseIDsByOwner(ctx context.Context, kind, nethz string, excludeID uint64) ([]uint64, error) {
	switch kind {
	case "signups":
		return r.Signups.CourseIDsByOwnerExcluding(ctx, nethz, excludeID)
	case "selections":
		return r.Selections.CourseIDsByOwnerExcluding(ctx, nethz, excludeID)
	}
	return nil, fmt.Errorf("unknown collection kind %q", kind)
}

// Exists reports whether the owner already has a registration to the
// course in the named collection.
func (r Registrations) Exists(ctx context.Context, kind, nethz string, courseID, excludeID uint64) (bool, error) {
	switch kind {
	case "signups":
		return r.Signups.ExistsForOwnerAndCourse(ctx, nethz, courseID, excludeID)
	case "selections":
		return r.Selections.ExistsForOwnerAndCourse(ctx, nethz, courseID, excludeID)
	}
	return false, fmt.Errorf("unknown collection kind %q", kind)
}
