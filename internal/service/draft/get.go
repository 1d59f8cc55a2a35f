package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillshelf/backend/internal/domain"
	"github.com/quillshelf/backend/pkg/ctxutil"
)

// Get returns one of the caller's drafts. Opening a draft is genuine user
// activity, so last_accessed is refreshed.
func (s *Service) Get(ctx context.Context, draftID uuid.UUID) (*domain.Draft, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if draftID == uuid.Nil {
		return nil, domain.NewValidationError("draft_id", "required")
	}

	d, err := s.getOwned(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}

	if d.IsActive() {
		now := time.Now().UTC()
		if err := s.drafts.TouchLastAccessed(ctx, draftID, now); err != nil {
			return nil, fmt.Errorf("touch draft: %w", err)
		}
		d.LastAccessed = now
	}
	return d, nil
}

// List returns the caller's drafts, newest activity first. Listing is a
// passive read and does not count as activity on any particular draft.
func (s *Service) List(ctx context.Context, includeExpired bool) ([]domain.Draft, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return s.drafts.ListByUser(ctx, userID, includeExpired)
}

// History returns a draft's audit trail, newest first. The draft must belong
// to the caller.
func (s *Service) History(ctx context.Context, draftID uuid.UUID, limit int) ([]domain.AuditLogEntry, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if draftID == uuid.Nil {
		return nil, domain.NewValidationError("draft_id", "required")
	}

	if _, err := s.getOwned(ctx, userID, draftID); err != nil {
		return nil, err
	}
	return s.audit.ListByDraft(ctx, draftID, limit)
}
