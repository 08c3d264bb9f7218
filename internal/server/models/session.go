package models

import "time"

// Session is an opaque bearer token bound to a user. Expiry is fixed at
// issue time; sessions are never renewed on use.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionContext is the resolved identity behind a valid token: everything
// a handler needs for an authorization decision in one lookup.
type SessionContext struct {
	Token    string
	UserID   string
	Username string
	Callsign *string
	IsAdmin  bool
}
