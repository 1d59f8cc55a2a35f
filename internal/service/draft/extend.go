package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quillshelf/backend/internal/domain"
	"github.com/quillshelf/backend/pkg/ctxutil"
)

// Extend resets a draft's deadline to the given number of days from now and
// records the change as an UPDATED audit entry. Only active drafts can be
// extended; a terminal draft yields ErrInvalidState.
func (s *Service) Extend(ctx context.Context, input ExtendInput) (*domain.Draft, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}
	days := input.Days
	if days == 0 {
		days = s.cfg.ExpiryDays
	}

	before, err := s.getOwned(ctx, userID, input.DraftID)
	if err != nil {
		return nil, err
	}
	if !before.IsActive() {
		return nil, fmt.Errorf("draft %s is %s: %w", before.ID, before.Status, domain.ErrInvalidState)
	}

	now := time.Now().UTC()
	newDeadline := domain.ExpiryDate(now, days)

	var updated *domain.Draft
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var updateErr error
		updated, updateErr = s.drafts.UpdateExpiry(txCtx, input.DraftID, newDeadline, now)
		if updateErr != nil {
			return updateErr
		}

		oldData, _ := json.Marshal(map[string]any{"expires_at": before.ExpiresAt})
		newData, _ := json.Marshal(map[string]any{"expires_at": updated.ExpiresAt})
		if _, auditErr := s.audit.Create(txCtx, &domain.AuditLogEntry{
			DraftID: updated.ID,
			Actor:   domain.UserActor(userID),
			Action:  domain.AuditActionUpdated,
			OldData: oldData,
			NewData: newData,
		}); auditErr != nil {
			return fmt.Errorf("audit extend: %w", auditErr)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.log.Info("draft deadline extended",
		"draft_id", updated.ID,
		"expires_at", updated.ExpiresAt,
	)
	return updated, nil
}
