package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/achildrenmile/qslcardgenerator/internal/logging"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
	"github.com/achildrenmile/qslcardgenerator/internal/server/repositories"
)

// auditQueueSize bounds the fire-and-forget buffer. When it fills, entries
// are dropped and the drop is logged: auditing is best-effort observability,
// never a reason to block or fail a request.
const auditQueueSize = 256

// AuditService appends records of privileged actions and serves the admin
// audit listing.
type AuditService struct {
	db     *sql.DB
	rm     repositories.Manager
	logger logging.Logger

	queue chan *models.AuditEntry
	done  chan struct{}
}

func NewAuditService(db *sql.DB, rm repositories.Manager, logger logging.Logger) *AuditService {
	return &AuditService{
		db:     db,
		rm:     rm,
		logger: logger.With("module", "audit"),
		queue:  make(chan *models.AuditEntry, auditQueueSize),
		done:   make(chan struct{}),
	}
}

// Record enqueues one audit entry. It never blocks and never returns an
// error; action must be one of the models.Action* constants. The actor may
// be nil for unauthenticated events such as failed logins.
func (s *AuditService) Record(actor *models.SessionContext, action, callsign, details, sourceAddr string) {
	e := &models.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Action:     action,
		Details:    details,
		SourceAddr: sourceAddr,
	}
	if actor != nil {
		e.UserID = &actor.UserID
		e.Username = &actor.Username
	}
	if callsign != "" {
		e.Callsign = &callsign
	}

	select {
	case s.queue <- e:
	default:
		s.logger.Warn(context.Background(), "audit queue full, dropping entry", "action", action)
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
// Insert failures are logged and swallowed.
func (s *AuditService) Run(ctx context.Context) {
	defer close(s.done)

	repo := s.rm.Audit(s.db)
	for {
		select {
		case e := <-s.queue:
			if err := repo.Insert(context.Background(), e); err != nil {
				s.logger.Error(ctx, "failed to write audit entry", "action", e.Action, "error", err)
			}
		case <-ctx.Done():
			for {
				select {
				case e := <-s.queue:
					if err := repo.Insert(context.Background(), e); err != nil {
						s.logger.Error(ctx, "failed to write audit entry", "action", e.Action, "error", err)
					}
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has flushed and returned.
func (s *AuditService) Wait() {
	<-s.done
}

// ListRecent returns the newest entries first. The limit is clamped to
// 1..1000 and defaults to 100 when zero or negative.
func (s *AuditService) ListRecent(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.rm.Audit(s.db).ListRecent(ctx, limit)
}
