// Package audit declares the repository contract for the append-only audit
// log.
package audit

import (
	"context"

	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

// Repository defines persistence operations for audit entries. The log is
// append-only: there are no update or delete operations.
type Repository interface {
	Insert(ctx context.Context, e *models.AuditEntry) error

	// ListRecent returns at most limit entries, newest first. The caller is
	// responsible for clamping limit.
	ListRecent(ctx context.Context, limit int) ([]*models.AuditEntry, error)
}
