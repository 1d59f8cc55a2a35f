// Package cleanup implements the reclamation job for review drafts: marking
// past-due drafts expired, deleting reclaimable and excess drafts with an
// audit trail, and removing orphans. A dry run walks the identical selection
// queries without issuing writes, so its counts match what a real run against
// the same dataset would do.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quillshelf/backend/internal/config"
	"github.com/quillshelf/backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type draftRepo interface {
	MarkExpired(ctx context.Context, asOf time.Time) (int64, error)
	FindReclaimable(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time) ([]domain.Draft, error)
	ListActiveAsOf(ctx context.Context, asOf time.Time) ([]domain.Draft, error)
	FindOrphaned(ctx context.Context, limit int) ([]domain.Draft, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountPastDue(ctx context.Context, asOf time.Time) (int, error)
	CountExpired(ctx context.Context, asOf time.Time) (int, error)
	CountOrphaned(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[domain.DraftStatus]int, error)
}

type auditRepo interface {
	Create(ctx context.Context, e *domain.AuditLogEntry) (*domain.AuditLogEntry, error)
	CountRecentCleanup(ctx context.Context, since time.Time) (int, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the cleanup job and its status introspection.
type Service struct {
	log    *slog.Logger
	drafts draftRepo
	audit  auditRepo
	tx     txManager
	cfg    config.DraftsConfig
	jobCfg config.CleanupConfig
}

// NewService creates a new Cleanup service.
func NewService(
	logger *slog.Logger,
	drafts draftRepo,
	audit auditRepo,
	tx txManager,
	cfg config.DraftsConfig,
	jobCfg config.CleanupConfig,
) *Service {
	return &Service{
		log:    logger.With("service", "cleanup"),
		drafts: drafts,
		audit:  audit,
		tx:     tx,
		cfg:    cfg,
		jobCfg: jobCfg,
	}
}
