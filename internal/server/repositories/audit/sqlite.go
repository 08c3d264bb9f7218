package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

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

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.AuditEntry) error {
	query := `INSERT INTO audit_log (id, ts, user_id, username, callsign, action, details, source_addr)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Timestamp, nullString(e.UserID), nullString(e.Username),
		nullString(e.Callsign), e.Action, e.Details, e.SourceAddr)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	query := `SELECT id, ts, user_id, username, callsign, action, details, source_addr
	          FROM audit_log ORDER BY ts DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*models.AuditEntry, error) {
	var result []*models.AuditEntry
	for rows.Next() {
		var (
			e        models.AuditEntry
			userID   sql.NullString
			username sql.NullString
			callsign sql.NullString
			ts       time.Time
		)
		err := rows.Scan(&e.ID, &ts, &userID, &username, &callsign,
			&e.Action, &e.Details, &e.SourceAddr)
		if err != nil {
			return nil, err
		}
		e.Timestamp = ts
		if userID.Valid {
			e.UserID = &userID.String
		}
		if username.Valid {
			e.Username = &username.String
		}
		if callsign.Valid {
			e.Callsign = &callsign.String
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
