package validation

import (
	"context"

	"github.com/avorland/course-registration/internal/model"
)

// SignupCandidate is a signup or selection create or update as
// submitted by the client, after the handler has normalized the course
// reference to a bare identifier.  Nil pointer fields mean "not
// supplied" on a partial update and resolve from the existing record.
type SignupCandidate struct {
	ID       uint64
	Nethz    *string
	CourseID *uint64
}

// ValidateSignup runs the registration rules for the given collection
// kind (KindSignups or KindSelections).  Pass a nil existing record
// for creation.  The rules are: non-admins may only use their own
// nethz, the (nethz, course) combination must be unique within the
// collection, and the target course must not overlap any course the
// owner is already registered for in the same collection.
func (v *Validator) ValidateSignup(ctx context.Context, candidate SignupCandidate, existing *model.Signup, kind string, ident Identity) ([]Violation, error) {
	nethz, courseID := resolveSignupFields(candidate, existing)
	violations := make([]Violation, 0)

	if nethz == "" {
		violations = append(violations, Violation{
			Field:  "nethz",
			Reason: "nethz is required",
		})
		return violations, nil
	}
	if !ident.Admin && nethz != ident.Nethz {
		violations = append(violations, Violation{
			Field:  "nethz",
			Reason: "you can only use your own nethz to sign up",
		})
	}
	if courseID == 0 {
		return violations, nil
	}

	duplicate, err := v.registrations.Exists(ctx, kind, nethz, courseID, candidate.ID)
	if err != nil {
		return nil, err
	}
	if duplicate {
		violations = append(violations, Violation{
			Field:  "course",
			Reason: "a registration for this nethz and course already exists",
		})
	}

	candidateTimes, err := v.courses.Datetimes(ctx, courseID)
	if err != nil {
		return nil, err
	}
	otherCourses, err := v.registrations.CourseIDsByOwner(ctx, kind, nethz, candidate.ID)
	if err != nil {
		return nil, err
	}
	for _, otherID := range otherCourses {
		if otherID == courseID {
			continue // the duplicate rule already covers this
		}
		theirs, err := v.courses.Datetimes(ctx, otherID)
		if err != nil {
			return nil, err
		}
		if spansOverlap(candidateTimes, theirs) {
			violations = append(violations, Violation{
				Field:  "course",
				Reason: "course overlaps with an already chosen course",
			})
			break
		}
	}
	return violations, nil
}

// resolveSignupFields merges a partial candidate with the stored record.
func resolveSignupFields(candidate SignupCandidate, existing *model.Signup) (nethz string, courseID uint64) {
	if candidate.Nethz != nil {
		nethz = *candidate.Nethz
	} else if existing != nil {
		nethz = existing.Nethz
	}
	if candidate.CourseID != nil {
		courseID = *candidate.CourseID
	} else if existing != nil {
		courseID = existing.CourseID
	}
	return nethz, courseID
}

// spansOverlap reports whether any interval of a overlaps any of b.
func spansOverlap(a, b []model.Timespan) bool {
	for _, ours := range a {
		for _, theirs := range b {
			if ours.Overlaps(theirs) {
				return true
			}
		}
	}
	return false
}
