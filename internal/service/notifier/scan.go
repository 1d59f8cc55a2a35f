package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader/v7"

	"github.com/quillshelf/backend/internal/domain"
)

// dueDraft pairs a draft with its tier and the pending batched lookups.
type dueDraft struct {
	draft domain.Draft
	tier  domain.NotificationTier

	contact dataloader.Thunk[*domain.UserContact]
	title   dataloader.Thunk[*string]
}

// Scan runs one notification pass over the active drafts: classify, resolve,
// deliver, record. Drafts whose owner no longer exists are skipped (they are
// the cleanup job's problem, not the notifier's), as are drafts already
// notified at the same or a more urgent tier, so re-running the scan on a
// schedule never duplicates alerts. Per-draft failures are collected and do
// not stop the pass.
func (s *Service) Scan(ctx context.Context) (*ScanResult, error) {
	start := time.Now()
	now := start.UTC()

	drafts, err := s.drafts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active drafts: %w", err)
	}

	result := &ScanResult{StartedAt: now, Scanned: len(drafts)}
	l := newLoaders(s.users, s.books)

	// Register every lookup before resolving any thunk so the loaders batch
	// the whole pass into single queries.
	var due []dueDraft
	for _, d := range drafts {
		tier, ok := domain.TierFor(&d, now)
		if !ok {
			continue
		}

		item := dueDraft{
			draft:   d,
			tier:    tier,
			contact: l.contactByUserID.Load(ctx, d.UserID),
		}
		if d.BookID != nil {
			item.title = l.titleByBookID.Load(ctx, *d.BookID)
		}
		due = append(due, item)
	}
	result.Due = len(due)

	for _, item := range due {
		if err := s.deliver(ctx, item, now, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("draft %s: %v", item.draft.ID, err))
		}
	}

	result.Duration = time.Since(start)

	s.log.Info("notification pass finished",
		"scanned", result.Scanned,
		"due", result.Due,
		"sent", result.Sent,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Service) deliver(ctx context.Context, item dueDraft, now time.Time, result *ScanResult) error {
	already, err := s.WasNotified(ctx, item.draft.ID, item.tier)
	if err != nil {
		return fmt.Errorf("check prior notification: %w", err)
	}
	if already {
		result.Skipped++
		return nil
	}

	contact, err := item.contact()
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}
	if contact == nil {
		result.Skipped++
		s.log.Warn("skipping notification for orphaned draft",
			"draft_id", item.draft.ID,
			"user_id", item.draft.UserID,
		)
		return nil
	}

	bookTitle := domain.FallbackBookTitle
	if item.title != nil {
		title, err := item.title()
		if err != nil {
			return fmt.Errorf("resolve book: %w", err)
		}
		if title != nil {
			bookTitle = *title
		}
	}

	n := domain.ExpirationNotification{
		DraftID:         item.draft.ID,
		UserID:          contact.ID,
		Email:           contact.Email,
		BookTitle:       bookTitle,
		ExpiresAt:       item.draft.ExpiresAt,
		DaysUntilExpiry: domain.DaysUntilExpiry(&item.draft, now),
		Tier:            item.tier,
	}
	if err := s.sender.Send(ctx, n); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	if err := s.recordDelivered(ctx, item.draft.ID, item.tier); err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}

	result.Sent++
	return nil
}

// recordDelivered appends the delivery to the audit trail; WasNotified reads
// this entry back on later passes.
func (s *Service) recordDelivered(ctx context.Context, draftID uuid.UUID, tier domain.NotificationTier) error {
	newData, _ := json.Marshal(map[string]any{"notified_tier": tier})

	_, err := s.audit.Create(ctx, &domain.AuditLogEntry{
		DraftID: draftID,
		Actor:   domain.ActorCronNotify,
		Action:  domain.AuditActionUpdated,
		NewData: newData,
	})
	return err
}
