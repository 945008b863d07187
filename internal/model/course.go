package model

import "time"

// Course represents a scheduled course offering with a fixed number of
// spots.  A course belongs to exactly one lecture (immutable after
// creation), takes place in a room during one or more disjoint time
// intervals, and is optionally run by an assistant.  The datetimes
// sequence must be pairwise non-overlapping; the room and assistant act
// as uniqueness scopes for the conflict validator.
//
// Fields:
//
//	ID          – primary key identifier.
//	LectureID   – lecture this course belongs to (immutable).
//	Assistant   – nethz of the assistant running the course (optional).
//	Room        – room the course takes place in.
//	Spots       – fixed seat capacity, at least 1.
//	Signup      – time window during which signups are open.
//	Datetimes   – disjoint intervals the course takes place in.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Course struct {
	ID        uint64     // courses.id
	LectureID uint64     // courses.lecture_id
	Assistant string     // courses.assistant
	Room      string     // courses.room
	Spots     int        // courses.spots
	Signup    Timespan   // courses.signup_start / courses.signup_end
	Datetimes []Timespan // course_times rows
	CreatedAt time.Time  // courses.created_at
	UpdatedAt time.Time  // courses.updated_at
}
