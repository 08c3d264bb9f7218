// Package sessions declares the repository contract for bearer-token
// sessions.
package sessions

import (
	"context"
	"time"

	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

// Repository defines persistence operations for sessions. Find joins the
// session to its user so callers get identity, callsign, and admin flag in
// one lookup; a missing or dangling token yields common.ErrNotFound.
// Expiry is not checked here — the service layer compares against the clock
// so correctness never depends on sweep timing.
type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	Find(ctx context.Context, token string) (*models.Session, *models.User, error)
	Delete(ctx context.Context, token string) error
	DeleteAllExcept(ctx context.Context, userID, keepToken string) error
	DeleteForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
