package model

import "time"

// Lecture represents a university lecture for which preparation courses
// are offered.  Lectures group courses; only admins manage them.  This
// struct corresponds to a row in the `lectures` table, with the
// assistants list stored in `lecture_assistants`.
//
// Fields:
//
//	ID         – primary key identifier.
//	Title      – unique lecture title.
//	Department – owning department ("itet" or "mavt").
//	Year       – study year (1..3).
//	Assistants – nethz identifiers of assistants available for the lecture.
//	CreatedAt  – timestamp when the lecture was created.
//	UpdatedAt  – timestamp of last update.
type Lecture struct {
	ID         uint64    // lectures.id
	Title      string    // lectures.title
	Department string    // lectures.department
	Year       int       // lectures.year
	Assistants []string  // lecture_assistants.nethz
	CreatedAt  time.Time // lectures.created_at
	UpdatedAt  time.Time // lectures.updated_at
}
