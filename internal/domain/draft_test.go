package domain

import (
	"testing"
	"time"
)

func TestDraftStatus_IsValid(t *testing.T) {
	t.Parallel()

	valid := []DraftStatus{DraftStatusDraft, DraftStatusExpired, DraftStatusAbandoned, DraftStatusMigrated}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if DraftStatus("PUBLISHED").IsValid() {
		t.Error("PUBLISHED should not be valid")
	}
	if DraftStatus("").IsValid() {
		t.Error("empty status should not be valid")
	}
}

func TestDraftStatus_Transitions(t *testing.T) {
	t.Parallel()

	// DRAFT may move to any terminal state.
	for _, next := range []DraftStatus{DraftStatusExpired, DraftStatusAbandoned, DraftStatusMigrated} {
		if !DraftStatusDraft.CanTransitionTo(next) {
			t.Errorf("DRAFT -> %s should be allowed", next)
		}
	}

	// No transition ever leaves a terminal state.
	for _, from := range []DraftStatus{DraftStatusExpired, DraftStatusAbandoned, DraftStatusMigrated} {
		for _, next := range []DraftStatus{DraftStatusDraft, DraftStatusExpired, DraftStatusAbandoned, DraftStatusMigrated} {
			if from.CanTransitionTo(next) {
				t.Errorf("%s -> %s should be forbidden", from, next)
			}
		}
	}

	if DraftStatusDraft.CanTransitionTo(DraftStatusDraft) {
		t.Error("DRAFT -> DRAFT is not a transition")
	}
	if DraftStatusDraft.CanTransitionTo(DraftStatus("bogus")) {
		t.Error("transition to unknown status should be forbidden")
	}
}

func TestDraftStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	if DraftStatusDraft.IsTerminal() {
		t.Error("DRAFT is not terminal")
	}
	for _, s := range []DraftStatus{DraftStatusExpired, DraftStatusAbandoned, DraftStatusMigrated} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if DraftStatus("bogus").IsTerminal() {
		t.Error("unknown status should not report terminal")
	}
}

func TestDraft_IsExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := &Draft{ExpiresAt: now}

	if d.IsExpired(now) {
		t.Error("a draft expiring exactly now is not yet expired")
	}
	if !d.IsExpired(now.Add(time.Nanosecond)) {
		t.Error("a draft past its deadline should be expired")
	}
	if d.IsExpired(now.Add(-time.Hour)) {
		t.Error("a draft before its deadline should not be expired")
	}
}

func TestDraftPatch_IsEmpty(t *testing.T) {
	t.Parallel()

	if !(DraftPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}

	body := "updated"
	if (DraftPatch{Body: &body}).IsEmpty() {
		t.Error("patch with body should not be empty")
	}
	if (DraftPatch{Metadata: []byte(`{"words":12}`)}).IsEmpty() {
		t.Error("patch with metadata should not be empty")
	}
}
