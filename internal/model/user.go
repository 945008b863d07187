package model

import "time"

// User represents an application account as stored in the `users`
// table.  Users authenticate with their nethz and a password; the
// admin flag is the single authorization fact consumed by the
// validation layer.  Handlers define separate response types with
// JSON tags where needed.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Nethz        – unique nethz identity.
//	PasswordHash – bcrypt hashed password.
//	IsAdmin      – whether the user may manage lectures, courses and payments.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Nethz        string    // users.nethz
	PasswordHash string    // users.password_hash
	IsAdmin      bool      // users.is_admin
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
