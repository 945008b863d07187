// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrConflict signals that an operation cannot proceed due to
// existing dependent records (e.g. deleting a course that still has
// signups), while ErrDuplicate indicates a uniqueness violation such as
// a second signup of the same user to the same course.
package repository

import "errors"

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a course that still has signups. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert or update violates a
// uniqueness constraint, such as the (nethz, course) combination on
// signups and selections or a reused payment token. Handlers should
// translate this into an HTTP 422 response naming the offending field.
var ErrDuplicate = errors.New("duplicate")
