package auth

import "time"

// User represents a registered account. PasswordHash is the only
// credential material ever persisted; the raw password never leaves the
// registration/login handlers.
type User struct {
	ID           int64
	Handle       string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
