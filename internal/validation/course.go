package validation

import (
	"context"
	"fmt"

	"github.com/avorland/course-registration/internal/model"
)

// CourseCandidate is a course create or update as submitted by the
// client.  Nil pointer fields mean "not supplied" on a partial update
// and are resolved from the existing record before the rules run: a
// partial update can still introduce a conflict against the unchanged
// sibling field.
type CourseCandidate struct {
	ID        uint64
	Room      *string
	Assistant *string
	Datetimes []model.Timespan // nil means not supplied
}

// ValidateCourse runs all course rules against the candidate.  Pass a
// nil existing record for creation.  It returns the collected
// violations, empty when the write is valid.
func (v *Validator) ValidateCourse(ctx context.Context, candidate CourseCandidate, existing *model.Course) ([]Violation, error) {
	room, assistant, datetimes := resolveCourseFields(candidate, existing)
	violations := make([]Violation, 0)

	for _, span := range datetimes {
		if !span.Valid() {
			violations = append(violations, Violation{
				Field:  "datetimes",
				Reason: "start time must be before end time",
			})
			// Malformed intervals make the overlap checks meaningless.
			return violations, nil
		}
	}
	if model.HasOverlap(datetimes...) {
		violations = append(violations, Violation{
			Field:  "datetimes",
			Reason: "time slots of a course must not overlap",
		})
	}

	if room != "" && len(datetimes) > 0 {
		others, err := v.courses.ByRoomExcluding(ctx, room, candidate.ID)
		if err != nil {
			return nil, err
		}
		if overlapsAny(datetimes, others) {
			violations = append(violations, Violation{
				Field:  "room",
				Reason: fmt.Sprintf("room %q is already booked during these times", room),
			})
		}
	}
	if assistant != "" && len(datetimes) > 0 {
		others, err := v.courses.ByAssistantExcluding(ctx, assistant, candidate.ID)
		if err != nil {
			return nil, err
		}
		if overlapsAny(datetimes, others) {
			violations = append(violations, Violation{
				Field:  "assistant",
				Reason: fmt.Sprintf("assistant %q is already booked during these times", assistant),
			})
		}
	}
	return violations, nil
}

// resolveCourseFields merges a partial candidate with the stored
// record so every rule sees the values the write would commit.
func resolveCourseFields(candidate CourseCandidate, existing *model.Course) (room, assistant string, datetimes []model.Timespan) {
	if candidate.Room != nil {
		room = *candidate.Room
	} else if existing != nil {
		room = existing.Room
	}
	if candidate.Assistant != nil {
		assistant = *candidate.Assistant
	} else if existing != nil {
		assistant = existing.Assistant
	}
	if candidate.Datetimes != nil {
		datetimes = candidate.Datetimes
	} else if existing != nil {
		datetimes = existing.Datetimes
	}
	return room, assistant, datetimes
}

// overlapsAny reports whether any candidate interval overlaps any
// interval of the given courses.
func overlapsAny(candidate []model.Timespan, others []model.Course) bool {
	for _, other := range others {
		for _, theirs := range other.Datetimes {
			for _, ours := range candidate {
				if ours.Overlaps(theirs) {
					return true
				}
			}
		}
	}
	return false
}
