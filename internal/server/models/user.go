// Package models defines the server-side data model: users, sessions,
// the audit log, and per-callsign card configuration.
package models

import "time"

// User is an account that may own at most one callsign. Usernames are
// stored lowercase; the password is kept only as a bcrypt hash.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Callsign     *string
	IsAdmin      bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}
