package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

func (r *SQLiteRepository) Create(ctx context.Context, s *models.Session) error {
	query := `INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, s.Token, s.UserID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Find(ctx context.Context, token string) (*models.Session, *models.User, error) {
	query := `SELECT s.token, s.user_id, s.created_at, s.expires_at,
	                 u.id, u.username, u.callsign, u.is_admin
	          FROM sessions s INNER JOIN users u ON s.user_id = u.id
	          WHERE s.token = ?`

	var (
		s        models.Session
		u        models.User
		callsign sql.NullString
	)
	row := r.db.QueryRowContext(ctx, query, token)
	err := row.Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt,
		&u.ID, &u.Username, &callsign, &u.IsAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, common.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to select session: %w", err)
	}
	if callsign.Valid {
		u.Callsign = &callsign.String
	}
	return &s, &u, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllExcept(ctx context.Context, userID, keepToken string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ? AND token <> ?`, userID, keepToken)
	if err != nil {
		return fmt.Errorf("failed to delete sibling sessions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
