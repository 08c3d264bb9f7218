package audit

import (
	"context"
	"fmt"

	"github.com/achildrenmile/qslcardgenerator/internal/dbx"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

// PostgresRepository implements Repository against PostgreSQL via the pgx
// database/sql adapter.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, e *models.AuditEntry) error {
	query := `INSERT INTO audit_log (id, ts, user_id, username, callsign, action, details, source_addr)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Timestamp, nullString(e.UserID), nullString(e.Username),
		nullString(e.Callsign), e.Action, e.Details, e.SourceAddr)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	query := `SELECT id, ts, user_id, username, callsign, action, details, source_addr
	          FROM audit_log ORDER BY ts DESC, id DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}
