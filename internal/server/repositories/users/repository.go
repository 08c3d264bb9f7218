// Package users declares the repository contract for user accounts.
package users

import (
	"context"
	"time"

	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

// Repository defines persistence operations for users. Implementations
// translate driver-specific errors into the sentinels in internal/common:
// ErrNotFound for missing rows, ErrAlreadyExists for a duplicate username,
// ErrCallsignTaken for a callsign bound to another user.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)

	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// UpdateCallsign is a single atomic conditional update; the uniqueness
	// invariant is re-checked by the storage engine at write time, not just
	// validated beforehand.
	UpdateCallsign(ctx context.Context, id string, callsign *string) error

	SetAdmin(ctx context.Context, id string, isAdmin bool) error
	SetLastLogin(ctx context.Context, id string, t time.Time) error
	Delete(ctx context.Context, id string) error
}
