// Package services implements the application services on top of the
// repositories: credential management, sessions, and the audit recorder.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/achildrenmile/qslcardgenerator/internal/common"
	"github.com/achildrenmile/qslcardgenerator/internal/dbx"
	"github.com/achildrenmile/qslcardgenerator/internal/server/config"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
	"github.com/achildrenmile/qslcardgenerator/internal/server/repositories"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// dummyHash is compared against when the username does not exist, so a
// login attempt costs the same bcrypt work either way.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// UserService implements the credential store operations.
type UserService struct {
	db         *sql.DB
	rm         repositories.Manager
	bcryptCost int
}

func NewUserService(db *sql.DB, rm repositories.Manager, cfg *config.Config) *UserService {
	return &UserService{db: db, rm: rm, bcryptCost: cfg.BcryptCost}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func normalizeCallsign(callsign *string) *string {
	if callsign == nil {
		return nil
	}
	c := strings.ToLower(strings.TrimSpace(*callsign))
	if c == "" {
		return nil
	}
	return &c
}

// CreateUser registers a new account. The username is normalized to
// lowercase, the password is checked against the minimum-length policy and
// stored only as a bcrypt hash. Uniqueness of username and callsign is
// enforced by the storage engine at write time.
func (s *UserService) CreateUser(ctx context.Context, username, password string, callsign *string, isAdmin bool) (*models.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, common.ErrValidation
	}
	if len(password) < MinPasswordLength {
		return nil, common.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Callsign:     normalizeCallsign(callsign),
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.rm.Users(s.db).Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies a username/password pair. An unknown username and a
// wrong password are indistinguishable to the caller: both cost one bcrypt
// comparison and both return ErrInvalidCredentials. On success the user's
// last-login timestamp is updated.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	repo := s.rm.Users(s.db)

	user, err := repo.GetByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := repo.SetLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return user, nil
}

// ChangePassword re-verifies the current password, stores a new hash, and
// revokes every other session of the user in the same transaction, keeping
// only the acting token.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, newPassword, keepToken string) error {
	if len(newPassword) < MinPasswordLength {
		return common.ErrWeakPassword
	}

	user, err := s.rm.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return common.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Users(tx).UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
			return err
		}
		return s.rm.Sessions(tx).DeleteAllExcept(ctx, userID, keepToken)
	})
}

// SetPassword overwrites a user's password without verifying the old one
// and revokes all of their sessions. Admin/bootstrap use only.
func (s *UserService) SetPassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return common.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Users(tx).UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
			return err
		}
		return s.rm.Sessions(tx).DeleteForUser(ctx, userID)
	})
}

// UpdateCallsign rebinds (or clears, with nil) a user's callsign. The
// uniqueness invariant is enforced by the conditional update itself, so two
// racing reassignments cannot both succeed. Reassigning a user's own
// callsign to the same value is a no-op.
func (s *UserService) UpdateCallsign(ctx context.Context, userID string, callsign *string) error {
	return s.rm.Users(s.db).UpdateCallsign(ctx, userID, normalizeCallsign(callsign))
}

func (s *UserService) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	return s.rm.Users(s.db).SetAdmin(ctx, userID, isAdmin)
}

// DeleteUser removes the account and purges its sessions transactionally.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Sessions(tx).DeleteForUser(ctx, userID); err != nil {
			return err
		}
		return s.rm.Users(tx).Delete(ctx, userID)
	})
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.rm.Users(s.db).GetByID(ctx, userID)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.rm.Users(s.db).GetByUsername(ctx, normalizeUsername(username))
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.rm.Users(s.db).List(ctx)
}
