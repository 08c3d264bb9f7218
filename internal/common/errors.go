// Package common defines shared constants and sentinel errors used across
// the QSL card generator components. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Validation errors.
	ErrValidation   = errors.New("validation error")
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// Auth errors. ErrInvalidCredentials deliberately covers both an unknown
	// username and a wrong password so the two are indistinguishable outward.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAdminRequired      = errors.New("admin required")

	// Callsign ownership errors.
	ErrCallsignTaken = errors.New("callsign already assigned")
)
