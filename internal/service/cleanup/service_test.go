package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillshelf/backend/internal/config"
	"github.com/quillshelf/backend/internal/domain"
)

// ===========================================================================
// Manual mocks (moq-style with func fields)
// ===========================================================================

type mockDraftRepo struct {
	MarkExpiredFunc     func(ctx context.Context, asOf time.Time) (int64, error)
	FindReclaimableFunc func(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time) ([]domain.Draft, error)
	ListActiveAsOfFunc  func(ctx context.Context, asOf time.Time) ([]domain.Draft, error)
	FindOrphanedFunc    func(ctx context.Context, limit int) ([]domain.Draft, error)
	DeleteFunc          func(ctx context.Context, id uuid.UUID) error
	CountPastDueFunc    func(ctx context.Context, asOf time.Time) (int, error)
	CountExpiredFunc    func(ctx context.Context, asOf time.Time) (int, error)
	CountOrphanedFunc   func(ctx context.Context) (int, error)
	CountByStatusFunc   func(ctx context.Context) (map[domain.DraftStatus]int, error)

	deleted []uuid.UUID
}

func (m *mockDraftRepo) MarkExpired(ctx context.Context, asOf time.Time) (int64, error) {
	if m.MarkExpiredFunc != nil {
		return m.MarkExpiredFunc(ctx, asOf)
	}
	return 0, nil
}

func (m *mockDraftRepo) FindReclaimable(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time) ([]domain.Draft, error) {
	if m.FindReclaimableFunc != nil {
		return m.FindReclaimableFunc(ctx, criteria, asOf)
	}
	return nil, nil
}

func (m *mockDraftRepo) ListActiveAsOf(ctx context.Context, asOf time.Time) ([]domain.Draft, error) {
	if m.ListActiveAsOfFunc != nil {
		return m.ListActiveAsOfFunc(ctx, asOf)
	}
	return nil, nil
}

func (m *mockDraftRepo) FindOrphaned(ctx context.Context, limit int) ([]domain.Draft, error) {
	if m.FindOrphanedFunc != nil {
		return m.FindOrphanedFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockDraftRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDraftRepo) CountPastDue(ctx context.Context, asOf time.Time) (int, error) {
	if m.CountPastDueFunc != nil {
		return m.CountPastDueFunc(ctx, asOf)
	}
	return 0, nil
}

func (m *mockDraftRepo) CountExpired(ctx context.Context, asOf time.Time) (int, error) {
	if m.CountExpiredFunc != nil {
		return m.CountExpiredFunc(ctx, asOf)
	}
	return 0, nil
}

func (m *mockDraftRepo) CountOrphaned(ctx context.Context) (int, error) {
	if m.CountOrphanedFunc != nil {
		return m.CountOrphanedFunc(ctx)
	}
	return 0, nil
}

func (m *mockDraftRepo) CountByStatus(ctx context.Context) (map[domain.DraftStatus]int, error) {
	if m.CountByStatusFunc != nil {
		return m.CountByStatusFunc(ctx)
	}
	return map[domain.DraftStatus]int{}, nil
}

type mockAuditRepo struct {
	CreateFunc             func(ctx context.Context, e *domain.AuditLogEntry) (*domain.AuditLogEntry, error)
	CountRecentCleanupFunc func(ctx context.Context, since time.Time) (int, error)

	created []domain.AuditLogEntry
}

func (m *mockAuditRepo) Create(ctx context.Context, e *domain.AuditLogEntry) (*domain.AuditLogEntry, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, e)
	}
	m.created = append(m.created, *e)
	return e, nil
}

func (m *mockAuditRepo) CountRecentCleanup(ctx context.Context, since time.Time) (int, error) {
	if m.CountRecentCleanupFunc != nil {
		return m.CountRecentCleanupFunc(ctx, since)
	}
	return 0, nil
}

type mockTxManager struct{}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ===========================================================================
// Helpers
// ===========================================================================

func testConfig() config.DraftsConfig {
	return config.DraftsConfig{
		ExpiryDays:       7,
		MaxDraftsPerUser: 2,
	}
}

func testJobConfig() config.CleanupConfig {
	return config.CleanupConfig{BatchSize: 100}
}

func newTestService(drafts *mockDraftRepo, audit *mockAuditRepo) *Service {
	return NewService(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		drafts,
		audit,
		&mockTxManager{},
		testConfig(),
		testJobConfig(),
	)
}

func draftOwnedBy(userID uuid.UUID, lastAccessed time.Time) domain.Draft {
	return domain.Draft{
		ID:           uuid.New(),
		UserID:       userID,
		Status:       domain.DraftStatusDraft,
		Version:      1,
		UpdatedAt:    lastAccessed,
		LastAccessed: lastAccessed,
	}
}

// ===========================================================================
// Run
// ===========================================================================

func TestRun_FullPass(t *testing.T) {
	now := time.Now().UTC()
	userA := uuid.New()

	reclaimable := []domain.Draft{
		{ID: uuid.New(), UserID: userA, Status: domain.DraftStatusExpired},
		{ID: uuid.New(), UserID: userA, Status: domain.DraftStatusAbandoned},
	}
	// Three active drafts, quota 2: oldest access evicted.
	active := []domain.Draft{
		draftOwnedBy(userA, now.Add(-3*time.Hour)),
		draftOwnedBy(userA, now.Add(-2*time.Hour)),
		draftOwnedBy(userA, now.Add(-1*time.Hour)),
	}
	orphans := []domain.Draft{
		{ID: uuid.New(), UserID: uuid.New(), Status: domain.DraftStatusDraft},
	}

	drafts := &mockDraftRepo{
		MarkExpiredFunc: func(ctx context.Context, asOf time.Time) (int64, error) { return 4, nil },
		FindReclaimableFunc: func(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time) ([]domain.Draft, error) {
			return reclaimable, nil
		},
		ListActiveAsOfFunc: func(ctx context.Context, asOf time.Time) ([]domain.Draft, error) {
			return active, nil
		},
		FindOrphanedFunc: func(ctx context.Context, limit int) ([]domain.Draft, error) {
			return orphans, nil
		},
	}
	audit := &mockAuditRepo{}
	svc := newTestService(drafts, audit)

	result, err := svc.Run(context.Background(), domain.CleanupCriteria{})
	require.NoError(t, err)

	assert.False(t, result.DryRun)
	assert.Equal(t, 4, result.ExpiredMarked)
	assert.Equal(t, 2, result.ExpiredDeleted)
	assert.Equal(t, 1, result.ExcessDeleted)
	assert.Equal(t, 1, result.OrphanedDeleted)
	assert.Equal(t, 4, result.DeletedTotal())
	assert.Equal(t, 8, result.TotalProcessed)
	assert.Empty(t, result.Errors)

	// Reclaimable and excess deletions carry audit entries; orphans do not.
	assert.Equal(t, 3, result.AuditEntriesCreated)
	require.Len(t, audit.created, 3)

	assert.Equal(t, domain.ActorCronCleanup, audit.created[0].Actor)
	assert.Equal(t, domain.ActorCronCleanup, audit.created[1].Actor)
	assert.Equal(t, domain.ActorCronCleanupExcess, audit.created[2].Actor)
	require.NotNil(t, audit.created[2].Reason)
	assert.Equal(t, domain.ReasonMaxDraftsExceeded, *audit.created[2].Reason)

	// The quota victim is the least recently accessed active draft.
	assert.Contains(t, drafts.deleted, active[0].ID)

	for _, e := range audit.created {
		assert.Equal(t, domain.AuditActionDeleted, e.Action)
		assert.NotNil(t, e.OldData, "deletion entries must snapshot the draft")
	}
}

func TestRun_DryRun_NoWrites(t *testing.T) {
	now := time.Now().UTC()
	userA := uuid.New()

	drafts := &mockDraftRepo{
		MarkExpiredFunc: func(ctx context.Context, asOf time.Time) (int64, error) {
			t.Fatal("dry run must not mark")
			return 0, nil
		},
		DeleteFunc: func(ctx context.Context, id uuid.UUID) error {
			t.Fatal("dry run must not delete")
			return nil
		},
		CountPastDueFunc: func(ctx context.Context, asOf time.Time) (int, error) { return 4, nil },
		FindReclaimableFunc: func(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time) ([]domain.Draft, error) {
			return []domain.Draft{{ID: uuid.New()}, {ID: uuid.New()}}, nil
		},
		ListActiveAsOfFunc: func(ctx context.Context, asOf time.Time) ([]domain.Draft, error) {
			return []domain.Draft{
				draftOwnedBy(userA, now.Add(-3*time.Hour)),
				draftOwnedBy(userA, now.Add(-2*time.Hour)),
				draftOwnedBy(userA, now.Add(-1*time.Hour)),
			}, nil
		},
		FindOrphanedFunc: func(ctx context.Context, limit int) ([]domain.Draft, error) {
			return []domain.Draft{{ID: uuid.New()}}, nil
		},
	}
	audit := &mockAuditRepo{
		CreateFunc: func(ctx context.Context, e *domain.AuditLogEntry) (*domain.AuditLogEntry, error) {
			t.Fatal("dry run must not write audit entries")
			return nil, nil
		},
	}
	svc := newTestService(drafts, audit)

	result, err := svc.Run(context.Background(), domain.CleanupCriteria{DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 4, result.ExpiredMarked)
	assert.Equal(t, 2, result.ExpiredDeleted)
	assert.Equal(t, 1, result.ExcessDeleted)
	assert.Equal(t, 1, result.OrphanedDeleted)
	assert.Zero(t, result.AuditEntriesCreated)
}

func TestRun_PerItemErrorsCollected(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()

	drafts := &mockDraftRepo{
		FindReclaimableFunc: func(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time) ([]domain.Draft, error) {
			return []domain.Draft{
				{ID: bad, Status: domain.DraftStatusExpired},
				{ID: good, Status: domain.DraftStatusExpired},
			}, nil
		},
		DeleteFunc: func(ctx context.Context, id uuid.UUID) error {
			if id == bad {
				return errors.New("deadlock detected")
			}
			return nil
		},
	}
	audit := &mockAuditRepo{}
	svc := newTestService(drafts, audit)

	result, err := svc.Run(context.Background(), domain.CleanupCriteria{})
	require.NoError(t, err, "per-item failures must not fail the pass")

	assert.Equal(t, 1, result.ExpiredDeleted)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], bad.String())
}

func TestRun_PhaseFailureDoesNotAbortLaterPhases(t *testing.T) {
	now := time.Now().UTC()
	userA := uuid.New()

	var listedActive, foundOrphans bool
	drafts := &mockDraftRepo{
		MarkExpiredFunc: func(ctx context.Context, asOf time.Time) (int64, error) { return 2, nil },
		FindReclaimableFunc: func(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time) ([]domain.Draft, error) {
			return nil, errors.New("relation temporarily unavailable")
		},
		ListActiveAsOfFunc: func(ctx context.Context, asOf time.Time) ([]domain.Draft, error) {
			listedActive = true
			return []domain.Draft{
				draftOwnedBy(userA, now.Add(-3*time.Hour)),
				draftOwnedBy(userA, now.Add(-2*time.Hour)),
				draftOwnedBy(userA, now.Add(-1*time.Hour)),
			}, nil
		},
		FindOrphanedFunc: func(ctx context.Context, limit int) ([]domain.Draft, error) {
			foundOrphans = true
			return []domain.Draft{{ID: uuid.New()}}, nil
		},
	}
	svc := newTestService(drafts, &mockAuditRepo{})

	result, err := svc.Run(context.Background(), domain.CleanupCriteria{})
	require.NoError(t, err, "a phase failure must not fail the pass")

	assert.True(t, listedActive, "quota eviction must run after a failed deletion phase")
	assert.True(t, foundOrphans, "orphan removal must run after a failed deletion phase")
	assert.Equal(t, 2, result.ExpiredMarked)
	assert.Equal(t, 1, result.ExcessDeleted)
	assert.Equal(t, 1, result.OrphanedDeleted)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "delete-reclaimable")
}

func TestRun_ConfiguredBatchSizeIsDefault(t *testing.T) {
	var got domain.CleanupCriteria
	drafts := &mockDraftRepo{
		FindReclaimableFunc: func(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time) ([]domain.Draft, error) {
			got = criteria
			return nil, nil
		},
	}
	svc := NewService(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		drafts,
		&mockAuditRepo{},
		&mockTxManager{},
		testConfig(),
		config.CleanupConfig{BatchSize: 17},
	)

	_, err := svc.Run(context.Background(), domain.CleanupCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 17, got.BatchSize, "unset batch size must fall back to the configured value")

	// An explicit override still wins.
	_, err = svc.Run(context.Background(), domain.CleanupCriteria{BatchSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, got.BatchSize)
}

func TestRun_BatchCapsExcess(t *testing.T) {
	now := time.Now().UTC()
	userA := uuid.New()
	userB := uuid.New()

	// Quota 2: userA has 2 excess, userB has 1; batch size 2 keeps one behind.
	active := []domain.Draft{
		draftOwnedBy(userA, now.Add(-4*time.Hour)),
		draftOwnedBy(userA, now.Add(-3*time.Hour)),
		draftOwnedBy(userA, now.Add(-2*time.Hour)),
		draftOwnedBy(userA, now.Add(-1*time.Hour)),
		draftOwnedBy(userB, now.Add(-3*time.Hour)),
		draftOwnedBy(userB, now.Add(-2*time.Hour)),
		draftOwnedBy(userB, now.Add(-1*time.Hour)),
	}

	drafts := &mockDraftRepo{
		ListActiveAsOfFunc: func(ctx context.Context, asOf time.Time) ([]domain.Draft, error) {
			return active, nil
		},
	}
	svc := newTestService(drafts, &mockAuditRepo{})

	result, err := svc.Run(context.Background(), domain.CleanupCriteria{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ExcessDeleted)
}

func TestRun_RejectsDraftTarget(t *testing.T) {
	svc := newTestService(&mockDraftRepo{}, &mockAuditRepo{})

	_, err := svc.Run(context.Background(), domain.CleanupCriteria{
		Statuses: []domain.DraftStatus{domain.DraftStatusDraft},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ===========================================================================
// Status
// ===========================================================================

func TestStatus(t *testing.T) {
	now := time.Now().UTC()
	userA := uuid.New()

	drafts := &mockDraftRepo{
		CountExpiredFunc: func(ctx context.Context, asOf time.Time) (int, error) { return 120, nil },
		CountByStatusFunc: func(ctx context.Context) (map[domain.DraftStatus]int, error) {
			return map[domain.DraftStatus]int{
				domain.DraftStatusDraft:     10,
				domain.DraftStatusAbandoned: 3,
			}, nil
		},
		ListActiveAsOfFunc: func(ctx context.Context, asOf time.Time) ([]domain.Draft, error) {
			return []domain.Draft{
				draftOwnedBy(userA, now.Add(-3*time.Hour)),
				draftOwnedBy(userA, now.Add(-2*time.Hour)),
				draftOwnedBy(userA, now.Add(-1*time.Hour)),
			}, nil
		},
		CountOrphanedFunc: func(ctx context.Context) (int, error) { return 2, nil },
	}
	audit := &mockAuditRepo{
		CountRecentCleanupFunc: func(ctx context.Context, since time.Time) (int, error) { return 7, nil },
	}
	svc := newTestService(drafts, audit)

	report, err := svc.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 120, report.ExpiredCount)
	assert.Equal(t, 3, report.AbandonedCount)
	assert.Equal(t, 1, report.ExcessCount)
	assert.Equal(t, 2, report.OrphanedCount)
	assert.Equal(t, 7, report.RecentCleanupAudits)
	assert.Equal(t, domain.UrgencyHigh, report.Urgency)
}

// ===========================================================================
// Eviction grouping
// ===========================================================================

func TestSelectAllEvictions_GroupsByUser(t *testing.T) {
	now := time.Now().UTC()
	userA := uuid.New()
	userB := uuid.New()

	active := []domain.Draft{
		draftOwnedBy(userA, now.Add(-3*time.Hour)),
		draftOwnedBy(userA, now.Add(-2*time.Hour)),
		draftOwnedBy(userA, now.Add(-1*time.Hour)),
		draftOwnedBy(userB, now.Add(-1*time.Hour)),
	}

	victims := selectAllEvictions(active, 2)
	require.Len(t, victims, 1)
	assert.Equal(t, active[0].ID, victims[0].ID)
	assert.Equal(t, userA, victims[0].UserID)
}
