// Package notifier implements the expiration notification scan: it walks the
// active drafts, classifies each against the warning tier table, resolves
// owners and book titles in batches, and hands due notifications to a Sender.
// Deliveries are recorded in the audit trail and deduped per tier, so the
// scan can run on any schedule without repeating alerts.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quillshelf/backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type draftRepo interface {
	ListActive(ctx context.Context) ([]domain.Draft, error)
}

type userRepo interface {
	GetContactsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.UserContact, error)
}

type bookRepo interface {
	GetTitlesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type auditRepo interface {
	Create(ctx context.Context, e *domain.AuditLogEntry) (*domain.AuditLogEntry, error)
	LastNotifiedTier(ctx context.Context, draftID uuid.UUID) (domain.NotificationTier, bool, error)
}

// Sender delivers one notification. Implementations decide the transport:
// the Redis channel publisher in production, a log sink when Redis is not
// configured.
type Sender interface {
	Send(ctx context.Context, n domain.ExpirationNotification) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the notification scheduler.
type Service struct {
	log    *slog.Logger
	drafts draftRepo
	users  userRepo
	books  bookRepo
	audit  auditRepo
	sender Sender
}

// NewService creates a new Notifier service.
func NewService(
	logger *slog.Logger,
	drafts draftRepo,
	users userRepo,
	books bookRepo,
	audit auditRepo,
	sender Sender,
) *Service {
	return &Service{
		log:    logger.With("service", "notifier"),
		drafts: drafts,
		users:  users,
		books:  books,
		audit:  audit,
		sender: sender,
	}
}

// ScanResult summarizes one notification pass.
type ScanResult struct {
	Scanned   int           `json:"scanned"`
	Due       int           `json:"due"`
	Sent      int           `json:"sent"`
	Skipped   int           `json:"skipped"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}

// WasNotified reports whether a draft already received a notification at the
// given tier or a more urgent one. The scan consults it before delivering,
// and external schedulers can use it directly.
func (s *Service) WasNotified(ctx context.Context, draftID uuid.UUID, tier domain.NotificationTier) (bool, error) {
	last, ok, err := s.audit.LastNotifiedTier(ctx, draftID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return tierRank(last) >= tierRank(tier), nil
}

// tierRank orders tiers by urgency for the already-notified comparison.
func tierRank(t domain.NotificationTier) int {
	switch t {
	case domain.TierWarning:
		return 1
	case domain.TierFinalWarning:
		return 2
	case domain.TierExpired:
		return 3
	}
	return 0
}
