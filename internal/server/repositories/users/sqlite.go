package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/achildrenmile/qslcardgenerator/internal/common"
	"github.com/achildrenmile/qslcardgenerator/internal/dbx"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// translateConstraint maps SQLite unique-constraint violations onto the
// shared sentinels. modernc.org/sqlite reports these as plain error strings.
func translateConstraint(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return common.ErrAlreadyExists
	case strings.Contains(msg, "users.callsign"):
		return common.ErrCallsignTaken
	default:
		return err
	}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, username, password_hash, callsign, is_admin, created_at, last_login_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.PasswordHash, nullString(user.Callsign),
		user.IsAdmin, user.CreatedAt, nullTime(user.LastLoginAt))
	if err != nil {
		if terr := translateConstraint(err); terr != err {
			return terr
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const selectUser = `SELECT id, username, password_hash, callsign, is_admin, created_at, last_login_at FROM users`

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE username = ?`, username)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	user, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	return user, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
}

func (r *SQLiteRepository) UpdateCallsign(ctx context.Context, id string, callsign *string) error {
	err := r.exec(ctx, `UPDATE users SET callsign = ? WHERE id = ?`, nullString(callsign), id)
	if err != nil {
		return translateConstraint(err)
	}
	return nil
}

func (r *SQLiteRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	return r.exec(ctx, `UPDATE users SET is_admin = ? WHERE id = ?`, isAdmin, id)
}

func (r *SQLiteRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	return r.exec(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, t, id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
}

// exec runs a single-row mutation and maps a zero-row result to ErrNotFound.
func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

type scanFunc func(dest ...any) error

func scanUser(scan scanFunc) (*models.User, error) {
	var (
		user      models.User
		callsign  sql.NullString
		lastLogin sql.NullTime
	)
	err := scan(&user.ID, &user.Username, &user.PasswordHash, &callsign,
		&user.IsAdmin, &user.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	if callsign.Valid {
		user.Callsign = &callsign.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLoginAt = &t
	}
	return &user, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
