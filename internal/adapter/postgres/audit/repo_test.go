package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quillshelf/backend/internal/adapter/postgres/audit"
	"github.com/quillshelf/backend/internal/adapter/postgres/testhelper"
	"github.com/quillshelf/backend/internal/domain"
)

func TestRepo_CreateAndListByDraft(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := audit.New(pool)
	ctx := context.Background()

	draftID := uuid.New()
	actor := domain.UserActor(uuid.New())

	first, err := repo.Create(ctx, &domain.AuditLogEntry{
		DraftID: draftID,
		Actor:   actor,
		Action:  domain.AuditActionCreated,
		NewData: []byte(`{"body":"v1"}`),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.ID == uuid.Nil {
		t.Fatal("expected generated entry ID")
	}

	_, err = repo.Create(ctx, &domain.AuditLogEntry{
		DraftID:   draftID,
		Actor:     actor,
		Action:    domain.AuditActionUpdated,
		OldData:   []byte(`{"body":"v1"}`),
		NewData:   []byte(`{"body":"v2"}`),
		CreatedAt: time.Now().UTC().Add(time.Second),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entries, err := repo.ListByDraft(ctx, draftID, 0)
	if err != nil {
		t.Fatalf("ListByDraft: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != domain.AuditActionUpdated {
		t.Errorf("expected newest entry first, got %s", entries[0].Action)
	}
	if entries[1].OldData != nil {
		t.Errorf("expected NULL old_data on creation entry, got %s", entries[1].OldData)
	}
}

func TestRepo_CountRecentCleanup(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := audit.New(pool)
	ctx := context.Background()

	// Use a window starting just before our inserts so entries from other
	// tests sharing the database stay out of scope.
	since := time.Now().UTC()

	reason := domain.ReasonMaxDraftsExceeded
	for _, e := range []domain.AuditLogEntry{
		{DraftID: uuid.New(), Actor: domain.ActorCronCleanup, Action: domain.AuditActionDeleted},
		{DraftID: uuid.New(), Actor: domain.ActorCronCleanupExcess, Action: domain.AuditActionDeleted, Reason: &reason},
		{DraftID: uuid.New(), Actor: domain.UserActor(uuid.New()), Action: domain.AuditActionDeleted},
	} {
		entry := e
		entry.CreatedAt = since.Add(time.Millisecond)
		if _, err := repo.Create(ctx, &entry); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	n, err := repo.CountRecentCleanup(ctx, since)
	if err != nil {
		t.Fatalf("CountRecentCleanup: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 cleanup entries, got %d", n)
	}
}

func TestRepo_LastNotifiedTier(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := audit.New(pool)
	ctx := context.Background()

	draftID := uuid.New()

	_, ok, err := repo.LastNotifiedTier(ctx, draftID)
	if err != nil {
		t.Fatalf("LastNotifiedTier: %v", err)
	}
	if ok {
		t.Fatal("expected no tier for never-notified draft")
	}

	base := time.Now().UTC()
	for i, tier := range []domain.NotificationTier{
		domain.TierWarning,
		domain.TierFinalWarning,
	} {
		_, err := repo.Create(ctx, &domain.AuditLogEntry{
			DraftID:   draftID,
			Actor:     domain.ActorCronCleanup,
			Action:    domain.AuditActionUpdated,
			NewData:   []byte(`{"notified_tier":"` + string(tier) + `"}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tier, ok, err := repo.LastNotifiedTier(ctx, draftID)
	if err != nil {
		t.Fatalf("LastNotifiedTier: %v", err)
	}
	if !ok {
		t.Fatal("expected a recorded tier")
	}
	if tier != domain.TierFinalWarning {
		t.Fatalf("expected FINAL_WARNING, got %s", tier)
	}
}
