package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/achildrenmile/qslcardgenerator/internal/common"
	"github.com/achildrenmile/qslcardgenerator/internal/server/auth"
	"github.com/achildrenmile/qslcardgenerator/internal/server/config"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
	"github.com/achildrenmile/qslcardgenerator/internal/server/repositories"
)

// SessionService owns the session lifecycle: Created → Valid →
// expired-by-time or revoked, nothing else.
type SessionService struct {
	db  *sql.DB
	rm  repositories.Manager
	ttl time.Duration

	// now is swappable in tests.
	now func() time.Time
}

func NewSessionService(db *sql.DB, rm repositories.Manager, cfg *config.Config) *SessionService {
	return &SessionService{db: db, rm: rm, ttl: cfg.SessionTTL, now: time.Now}
}

// Issue creates a session for the user and returns its opaque token.
// Expiry is fixed at issuance; it does not slide on use.
func (s *SessionService) Issue(ctx context.Context, userID string) (string, error) {
	token, err := auth.GenerateToken()
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	err = s.rm.Sessions(s.db).Create(ctx, &models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Resolve maps a token to its session context. Missing, expired, and
// dangling tokens all come back as (nil, nil): callers must treat nil
// uniformly as unauthenticated and never learn which case it was. Expiry is
// checked live against the clock, so correctness never depends on the
// background sweep.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.SessionContext, error) {
	if token == "" {
		return nil, nil
	}

	session, user, err := s.rm.Sessions(s.db).Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !s.now().UTC().Before(session.ExpiresAt) {
		return nil, nil
	}

	return &models.SessionContext{
		Token:    session.Token,
		UserID:   user.ID,
		Username: user.Username,
		Callsign: user.Callsign,
		IsAdmin:  user.IsAdmin,
	}, nil
}

// Revoke is single-session logout. Revoking an unknown token is not an
// error.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	return s.rm.Sessions(s.db).Delete(ctx, token)
}

// RevokeAllExcept invalidates every other session of the user, the
// blast-radius containment used on password change.
func (s *SessionService) RevokeAllExcept(ctx context.Context, userID, keepToken string) error {
	return s.rm.Sessions(s.db).DeleteAllExcept(ctx, userID, keepToken)
}

// SweepExpired removes sessions whose expiry has passed and returns how
// many were dropped. Housekeeping only.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	return s.rm.Sessions(s.db).DeleteExpired(ctx, s.now().UTC())
}
