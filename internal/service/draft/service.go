// Package draft implements the review-draft editing service: creation,
// autosave with optimistic versioning, deadline extension and the terminal
// lifecycle transitions. Every mutation is committed together with its audit
// entry.
package draft

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
	Get(ctx context.Context, id uuid.UUID) (*domain.Draft, error)
	ListByUser(ctx context.Context, userID uuid.UUID, includeExpired bool) ([]domain.Draft, error)
	Create(ctx context.Context, d *domain.Draft) (*domain.Draft, error)
	Update(ctx context.Context, id uuid.UUID, expectedVersion int, patch domain.DraftPatch, at time.Time) (*domain.Draft, error)
	UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt, at time.Time) (*domain.Draft, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to domain.DraftStatus, at time.Time) error
	TouchLastAccessed(ctx context.Context, id uuid.UUID, at time.Time) error
}

type auditRepo interface {
	Create(ctx context.Context, e *domain.AuditLogEntry) (*domain.AuditLogEntry, error)
	ListByDraft(ctx context.Context, draftID uuid.UUID, limit int) ([]domain.AuditLogEntry, error)
}

type userRepo interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the draft editing business logic.
type Service struct {
	log    *slog.Logger
	drafts draftRepo
	audit  auditRepo
	users  userRepo
	tx     txManager
	cfg    config.DraftsConfig
}

// NewService creates a new Draft service.
func NewService(
	logger *slog.Logger,
	drafts draftRepo,
	audit auditRepo,
	users userRepo,
	tx txManager,
	cfg config.DraftsConfig,
) *Service {
	return &Service{
		log:    logger.With("service", "draft"),
		drafts: drafts,
		audit:  audit,
		users:  users,
		tx:     tx,
		cfg:    cfg,
	}
}

// getOwned loads a draft and verifies ownership. A draft owned by someone
// else reports ErrNotFound so callers cannot probe for foreign draft IDs.
func (s *Service) getOwned(ctx context.Context, userID, draftID uuid.UUID) (*domain.Draft, error) {
	d, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return d, nil
}
