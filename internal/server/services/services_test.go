package services

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/achildrenmile/qslcardgenerator/internal/logging"
	"github.com/achildrenmile/qslcardgenerator/internal/server/config"
	"github.com/achildrenmile/qslcardgenerator/internal/server/repositories"
)

func setupDB(t *testing.T) (*sql.DB, repositories.Manager) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a pooled connection would get its own empty in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	rm := &repositories.SQLiteManager{}
	require.NoError(t, repositories.RunMigrations(context.Background(), db, rm))
	return db, rm
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	// keep the hashing fast in tests
	cfg.BcryptCost = 4
	return cfg
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func newServices(t *testing.T) (*UserService, *SessionService, *AuditService) {
	t.Helper()
	db, rm := setupDB(t)
	cfg := testConfig()
	return NewUserService(db, rm, cfg), NewSessionService(db, rm, cfg), NewAuditService(db, rm, testLogger())
}

// fixedClock pins a SessionService to a controllable time.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time         { return c.t }
func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
