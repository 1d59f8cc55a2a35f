package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/quillshelf/backend/internal/domain"
)

// recentWindow bounds the "recent cleanup activity" count in the status report.
const recentWindow = 24 * time.Hour

// Status assembles the read-only introspection snapshot: pending work per
// phase, recent cleanup activity and the urgency tier derived from the
// expired backlog.
func (s *Service) Status(ctx context.Context) (*domain.CleanupStatusReport, error) {
	now := time.Now().UTC()

	expired, err := s.drafts.CountExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("count expired: %w", err)
	}

	byStatus, err := s.drafts.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}

	active, err := s.drafts.ListActiveAsOf(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	excess := len(selectAllEvictions(active, s.cfg.MaxDraftsPerUser))

	orphaned, err := s.drafts.CountOrphaned(ctx)
	if err != nil {
		return nil, fmt.Errorf("count orphaned: %w", err)
	}

	recent, err := s.audit.CountRecentCleanup(ctx, now.Add(-recentWindow))
	if err != nil {
		return nil, fmt.Errorf("count recent cleanup audits: %w", err)
	}

	return &domain.CleanupStatusReport{
		ExpiredCount:        expired,
		AbandonedCount:      byStatus[domain.DraftStatusAbandoned],
		ExcessCount:         excess,
		OrphanedCount:       orphaned,
		RecentCleanupAudits: recent,
		Urgency:             domain.UrgencyFor(expired),
	}, nil
}
