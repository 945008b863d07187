package model

import "time"

// Signup status values.  A signup is created waiting, promoted to
// reserved by the allocation engine when capacity allows, and promoted
// to accepted by a successful payment.  Deleting a payment demotes its
// signups back to reserved.  The status is system-managed and never
// client-settable.
const (
	StatusWaiting  = "waiting"
	StatusReserved = "reserved"
	StatusAccepted = "accepted"
)

// Signup records a user's registration intent for a course.  The
// combination (nethz, course) is unique, and nethz is immutable after
// creation.  The update timestamp is the primary promotion order of the
// waiting list, with nethz as tie-breaker.
//
// Fields:
//
//	ID        – primary key identifier.
//	Nethz     – owner identity (immutable).
//	CourseID  – course being signed up for.
//	Status    – waiting, reserved or accepted.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp, promotion order key.
type Signup struct {
	ID        uint64    // signups.id
	Nethz     string    // signups.nethz
	CourseID  uint64    // signups.course_id
	Status    string    // signups.status
	CreatedAt time.Time // signups.created_at
	UpdatedAt time.Time // signups.updated_at
}

// Selection is a user's preliminary course choice made before signups
// open.  It is structurally a signup without a status and shares the
// same uniqueness and overlap rules.
//
// Fields:
//
//	ID        – primary key identifier.
//	Nethz     – owner identity (immutable).
//	CourseID  – chosen course.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Selection struct {
	ID        uint64    // selections.id
	Nethz     string    // selections.nethz
	CourseID  uint64    // selections.course_id
	CreatedAt time.Time // selections.created_at
	UpdatedAt time.Time // selections.updated_at
}
