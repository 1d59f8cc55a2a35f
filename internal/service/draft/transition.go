package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillshelf/backend/internal/domain"
	"github.com/quillshelf/backend/pkg/ctxutil"
)

// Abandon marks a draft as deliberately given up by its owner.
func (s *Service) Abandon(ctx context.Context, draftID uuid.UUID) (*domain.Draft, error) {
	return s.transition(ctx, draftID, domain.DraftStatusAbandoned)
}

// Migrate marks a draft as promoted into a published review. The published
// review itself lives outside this subsystem; the terminal state here only
// records that the content left the draft lifecycle.
func (s *Service) Migrate(ctx context.Context, draftID uuid.UUID) (*domain.Draft, error) {
	return s.transition(ctx, draftID, domain.DraftStatusMigrated)
}

func (s *Service) transition(ctx context.Context, draftID uuid.UUID, to domain.DraftStatus) (*domain.Draft, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if draftID == uuid.Nil {
		return nil, domain.NewValidationError("draft_id", "required")
	}

	before, err := s.getOwned(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	if !before.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("transition %s -> %s: %w", before.Status, to, domain.ErrInvalidState)
	}

	now := time.Now().UTC()

	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.drafts.SetStatus(txCtx, draftID, before.Status, to, now); err != nil {
			return err
		}

		oldData, _ := json.Marshal(map[string]any{"status": before.Status})
		newData, _ := json.Marshal(map[string]any{"status": to})
		if _, auditErr := s.audit.Create(txCtx, &domain.AuditLogEntry{
			DraftID: draftID,
			Actor:   domain.UserActor(userID),
			Action:  domain.AuditActionUpdated,
			OldData: oldData,
			NewData: newData,
		}); auditErr != nil {
			return fmt.Errorf("audit transition: %w", auditErr)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.log.Info("draft transitioned",
		"draft_id", draftID,
		"from", before.Status,
		"to", to,
	)

	after := *before
	after.Status = to
	after.UpdatedAt = now
	return &after, nil
}
