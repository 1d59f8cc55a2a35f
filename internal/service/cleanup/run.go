package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quillshelf/backend/internal/domain"
)

// Run executes one reclamation pass under the given criteria. Unset criteria
// fields are filled from the configured defaults. The phases are independent:
// a failure that prevents a phase from running is recorded in the result's
// error list and the remaining phases still execute. Only malformed criteria
// abort the pass, before any work is performed.
//
// Phases, in order:
//  1. mark every DRAFT past its deadline as EXPIRED (single statement,
//     not batch-capped)
//  2. delete drafts in a target status whose last update precedes the
//     abandonment threshold, each with an audit entry
//  3. delete per-user excess over the active-draft quota, least recently
//     accessed first, each with an audit entry
//  4. delete drafts whose owner no longer exists (no audit entry: there is
//     no actor to attribute and no owner to notify)
func (s *Service) Run(ctx context.Context, criteria domain.CleanupCriteria) (*domain.CleanupResult, error) {
	start := time.Now()
	asOf := start.UTC()

	if criteria.BatchSize == 0 {
		criteria.BatchSize = s.jobCfg.BatchSize
	}
	criteria = criteria.Normalize(asOf, s.cfg.ExpiryDays)
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	s.log.Info("cleanup pass starting",
		"dry_run", criteria.DryRun,
		"older_than", criteria.OlderThan,
		"statuses", criteria.Statuses,
		"batch_size", criteria.BatchSize,
	)

	result := &domain.CleanupResult{DryRun: criteria.DryRun}

	if err := s.markExpired(ctx, criteria, asOf, result); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("phase mark-expired: %v", err))
	}
	if err := s.deleteReclaimable(ctx, criteria, asOf, result); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("phase delete-reclaimable: %v", err))
	}
	if err := s.deleteExcess(ctx, criteria, asOf, result); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("phase delete-excess: %v", err))
	}
	if err := s.deleteOrphaned(ctx, criteria, result); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("phase delete-orphaned: %v", err))
	}

	result.TotalProcessed = result.ExpiredMarked + result.DeletedTotal()
	result.Duration = time.Since(start)

	s.log.Info("cleanup pass finished",
		"dry_run", result.DryRun,
		"expired_marked", result.ExpiredMarked,
		"expired_deleted", result.ExpiredDeleted,
		"excess_deleted", result.ExcessDeleted,
		"orphaned_deleted", result.OrphanedDeleted,
		"audit_entries", result.AuditEntriesCreated,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)
	return result, nil
}

// markExpired is phase 1. A dry run counts the drafts a real run would mark.
func (s *Service) markExpired(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time, result *domain.CleanupResult) error {
	if criteria.DryRun {
		n, err := s.drafts.CountPastDue(ctx, asOf)
		if err != nil {
			return err
		}
		result.ExpiredMarked = n
		return nil
	}

	marked, err := s.drafts.MarkExpired(ctx, asOf)
	if err != nil {
		return err
	}
	result.ExpiredMarked = int(marked)
	return nil
}

// deleteReclaimable is phase 2. The selection query already accounts for
// drafts phase 1 would have marked, so dry-run counts agree with a real run.
func (s *Service) deleteReclaimable(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time, result *domain.CleanupResult) error {
	found, err := s.drafts.FindReclaimable(ctx, criteria, asOf)
	if err != nil {
		return err
	}

	if criteria.DryRun {
		result.ExpiredDeleted = len(found)
		return nil
	}

	for _, d := range found {
		if err := s.deleteWithAudit(ctx, d, domain.ActorCronCleanup, nil); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete draft %s: %v", d.ID, err))
			continue
		}
		result.ExpiredDeleted++
		result.AuditEntriesCreated++
	}
	return nil
}

// deleteExcess is phase 3. Quota victims are selected per user from the
// drafts that remain active after phase 1, least recently accessed first,
// then capped by the batch size across all users.
func (s *Service) deleteExcess(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time, result *domain.CleanupResult) error {
	active, err := s.drafts.ListActiveAsOf(ctx, asOf)
	if err != nil {
		return err
	}

	victims := selectAllEvictions(active, s.cfg.MaxDraftsPerUser)
	if len(victims) > criteria.BatchSize {
		victims = victims[:criteria.BatchSize]
	}

	if criteria.DryRun {
		result.ExcessDeleted = len(victims)
		return nil
	}

	reason := domain.ReasonMaxDraftsExceeded
	for _, d := range victims {
		if err := s.deleteWithAudit(ctx, d, domain.ActorCronCleanupExcess, &reason); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete excess draft %s: %v", d.ID, err))
			continue
		}
		result.ExcessDeleted++
		result.AuditEntriesCreated++
	}
	return nil
}

// deleteOrphaned is phase 4. Orphan deletions carry no audit entry.
func (s *Service) deleteOrphaned(ctx context.Context, criteria domain.CleanupCriteria, result *domain.CleanupResult) error {
	found, err := s.drafts.FindOrphaned(ctx, criteria.BatchSize)
	if err != nil {
		return err
	}

	if criteria.DryRun {
		result.OrphanedDeleted = len(found)
		return nil
	}

	for _, d := range found {
		if err := s.drafts.Delete(ctx, d.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete orphaned draft %s: %v", d.ID, err))
			continue
		}
		result.OrphanedDeleted++
	}
	return nil
}

// deleteWithAudit commits the audit entry and the deletion atomically:
// a deletion must never be observable without its trail entry.
func (s *Service) deleteWithAudit(ctx context.Context, d domain.Draft, actor string, reason *string) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.audit.Create(txCtx, &domain.AuditLogEntry{
			DraftID: d.ID,
			Actor:   actor,
			Action:  domain.AuditActionDeleted,
			OldData: snapshot(&d),
			Reason:  reason,
		}); err != nil {
			return fmt.Errorf("audit delete: %w", err)
		}
		return s.drafts.Delete(txCtx, d.ID)
	})
}

// selectAllEvictions groups active drafts by owner and collects each owner's
// quota evictions. The input comes ordered by user, so grouping is a single
// pass and the combined victim order is deterministic.
func selectAllEvictions(active []domain.Draft, maxPerUser int) []domain.Draft {
	var victims []domain.Draft
	for start := 0; start < len(active); {
		end := start
		for end < len(active) && active[end].UserID == active[start].UserID {
			end++
		}
		victims = append(victims, domain.SelectQuotaEvictions(active[start:end], maxPerUser)...)
		start = end
	}
	return victims
}

// snapshot serializes a draft's mutable state for an audit entry.
func snapshot(d *domain.Draft) json.RawMessage {
	data := map[string]any{
		"title":      d.Title,
		"body":       d.Body,
		"metadata":   d.Metadata,
		"status":     d.Status,
		"version":    d.Version,
		"expires_at": d.ExpiresAt,
	}
	if d.BookID != nil {
		data["book_id"] = d.BookID.String()
	}

	raw, _ := json.Marshal(data)
	return raw
}
