// Package repositories picks the storage backend for the relational stores.
// The same repository interfaces are served by SQLite (modernc.org/sqlite,
// the default) or PostgreSQL (pgx), selected from the database DSN.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/achildrenmile/qslcardgenerator/internal/dbx"
	"github.com/achildrenmile/qslcardgenerator/internal/server/migrations"
	"github.com/achildrenmile/qslcardgenerator/internal/server/repositories/audit"
	"github.com/achildrenmile/qslcardgenerator/internal/server/repositories/sessions"
	"github.com/achildrenmile/qslcardgenerator/internal/server/repositories/users"
)

// Manager constructs backend-specific repositories over a DBTX, so services
// can run the same operations on a plain connection or inside a transaction.
type Manager interface {
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Audit(db dbx.DBTX) audit.Repository

	// Dialect is the goose dialect name for this backend.
	Dialect() string
}

// IsPostgresDSN reports whether the DSN selects the PostgreSQL backend.
// Anything else is treated as an SQLite file path.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// NewManager returns the Manager matching the DSN.
func NewManager(dsn string) Manager {
	if IsPostgresDSN(dsn) {
		return &PostgresManager{}
	}
	return &SQLiteManager{}
}

// Open opens the database handle for the DSN using the matching driver
// (registered by the caller's blank imports).
func Open(dsn string) (*sql.DB, error) {
	if IsPostgresDSN(dsn) {
		return sql.Open("pgx", dsn)
	}
	return sql.Open("sqlite", dsn)
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB, m Manager) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect(m.Dialect()); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

type SQLiteManager struct{}

func (m *SQLiteManager) Users(db dbx.DBTX) users.Repository       { return users.NewSQLiteRepository(db) }
func (m *SQLiteManager) Sessions(db dbx.DBTX) sessions.Repository { return sessions.NewSQLiteRepository(db) }
func (m *SQLiteManager) Audit(db dbx.DBTX) audit.Repository       { return audit.NewSQLiteRepository(db) }
func (m *SQLiteManager) Dialect() string                          { return "sqlite3" }

type PostgresManager struct{}

func (m *PostgresManager) Users(db dbx.DBTX) users.Repository       { return users.NewPostgresRepository(db) }
func (m *PostgresManager) Sessions(db dbx.DBTX) sessions.Repository { return sessions.NewPostgresRepository(db) }
func (m *PostgresManager) Audit(db dbx.DBTX) audit.Repository       { return audit.NewPostgresRepository(db) }
func (m *PostgresManager) Dialect() string                          { return "postgres" }
