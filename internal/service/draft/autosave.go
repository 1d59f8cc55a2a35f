package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/quillshelf/backend/internal/domain"
	"github.com/quillshelf/backend/pkg/ctxutil"
)

// Autosave applies a content patch if the caller's version matches the stored
// one. On success the version increments and an UPDATED audit entry is
// committed with the mutation. A stale version yields ErrVersionConflict and
// leaves the draft untouched; the client must re-read and retry.
func (s *Service) Autosave(ctx context.Context, input AutosaveInput) (*domain.Draft, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}
	body := ""
	if input.Patch.Body != nil {
		body = *input.Patch.Body
	}
	if err := s.checkSizes(body, input.Patch.Metadata); err != nil {
		return nil, err
	}

	before, err := s.getOwned(ctx, userID, input.DraftID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// An empty patch is a keepalive: record the activity, change nothing.
	if input.Patch.IsEmpty() {
		if err := s.drafts.TouchLastAccessed(ctx, input.DraftID, now); err != nil {
			return nil, fmt.Errorf("touch draft: %w", err)
		}
		before.LastAccessed = now
		return before, nil
	}

	var updated *domain.Draft
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var updateErr error
		updated, updateErr = s.drafts.Update(txCtx, input.DraftID, input.ExpectedVersion, input.Patch, now)
		if updateErr != nil {
			return updateErr
		}

		if _, auditErr := s.audit.Create(txCtx, &domain.AuditLogEntry{
			DraftID: updated.ID,
			Actor:   domain.UserActor(userID),
			Action:  domain.AuditActionUpdated,
			OldData: snapshot(before),
			NewData: snapshot(updated),
		}); auditErr != nil {
			return fmt.Errorf("audit autosave: %w", auditErr)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.log.Debug("draft autosaved",
		"draft_id", updated.ID,
		"version", updated.Version,
	)
	return updated, nil
}
