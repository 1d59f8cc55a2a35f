package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillshelf/backend/internal/domain"
	"github.com/quillshelf/backend/pkg/ctxutil"
)

// Create creates a new draft for the authenticated user with the configured
// lifetime and writes the CREATED audit entry in the same transaction.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Draft, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkSizes(input.Body, input.Metadata); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, domain.ErrUnauthorized
	}

	var created *domain.Draft
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := time.Now().UTC()
		d := &domain.Draft{
			ID:           uuid.New(),
			UserID:       userID,
			BookID:       input.BookID,
			Title:        input.Title,
			Body:         input.Body,
			Metadata:     input.Metadata,
			Status:       domain.DraftStatusDraft,
			Version:      1,
			CreatedAt:    now,
			UpdatedAt:    now,
			LastAccessed: now,
			ExpiresAt:    domain.ExpiryDate(now, s.cfg.ExpiryDays),
		}

		var createErr error
		created, createErr = s.drafts.Create(txCtx, d)
		if createErr != nil {
			return fmt.Errorf("create draft: %w", createErr)
		}

		if _, auditErr := s.audit.Create(txCtx, &domain.AuditLogEntry{
			DraftID: created.ID,
			Actor:   domain.UserActor(userID),
			Action:  domain.AuditActionCreated,
			NewData: snapshot(created),
		}); auditErr != nil {
			return fmt.Errorf("audit create: %w", auditErr)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.log.Info("draft created",
		"draft_id", created.ID,
		"user_id", userID,
		"expires_at", created.ExpiresAt,
	)
	return created, nil
}

// checkSizes enforces the configured payload limits.
func (s *Service) checkSizes(body string, metadata []byte) error {
	var errs []domain.FieldError
	if len(body) > s.cfg.MaxBodyBytes {
		errs = append(errs, domain.FieldError{
			Field:   "body",
			Message: fmt.Sprintf("too long (max %d bytes)", s.cfg.MaxBodyBytes),
		})
	}
	if len(metadata) > s.cfg.MaxMetadataBytes {
		errs = append(errs, domain.FieldError{
			Field:   "metadata",
			Message: fmt.Sprintf("too large (max %d bytes)", s.cfg.MaxMetadataBytes),
		})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
