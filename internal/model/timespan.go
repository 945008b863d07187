package model

import "time"

// Timespan is a half-open time interval [Start, End).  All comparisons are
// performed on UTC-normalized instants so that intervals stored with
// different zone offsets compare correctly.
//
// Fields:
//
//	Start – beginning of the interval (inclusive).
//	End   – end of the interval (exclusive), must be after Start.
type Timespan struct {
	Start time.Time `json:"start"` // course_times.starts_at
	End   time.Time `json:"end"`   // course_times.ends_at
}

// Valid reports whether the interval is well formed, i.e. Start is
// strictly before End.
func (t Timespan) Valid() bool {
	return t.Start.UTC().Before(t.End.UTC())
}

// Overlaps reports whether two intervals overlap.  Intervals that merely
// touch at an endpoint (one's End equals the other's Start) do not overlap.
func (t Timespan) Overlaps(other Timespan) bool {
	return t.End.UTC().After(other.Start.UTC()) && t.Start.UTC().Before(other.End.UTC())
}

// HasOverlap reports whether any two intervals in the given set overlap.
// It is used both for the self-consistency of a single course's datetimes
// and for conflicts across resources sharing a room, assistant or user.
func HasOverlap(spans ...Timespan) bool {
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].Overlaps(spans[j]) {
				return true
			}
		}
	}
	return false
}
