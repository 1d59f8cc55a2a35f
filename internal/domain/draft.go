// Package domain contains the core types and pure business rules of the
// review-draft lifecycle: the draft state machine, expiration policy, quota
// eviction, audit records, and expiry notifications.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DraftStatus represents the lifecycle state of a review draft.
// DRAFT is the only mutable state; all others are terminal.
type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "DRAFT"
	DraftStatusExpired   DraftStatus = "EXPIRED"
	DraftStatusAbandoned DraftStatus = "ABANDONED"
	DraftStatusMigrated  DraftStatus = "MIGRATED"
)

func (s DraftStatus) String() string { return string(s) }

func (s DraftStatus) IsValid() bool {
	switch s {
	case DraftStatusDraft, DraftStatusExpired, DraftStatusAbandoned, DraftStatusMigrated:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s DraftStatus) IsTerminal() bool {
	return s.IsValid() && s != DraftStatusDraft
}

// CanTransitionTo reports whether the state machine allows s -> next.
// The only legal transitions are DRAFT -> {EXPIRED, ABANDONED, MIGRATED}.
func (s DraftStatus) CanTransitionTo(next DraftStatus) bool {
	return s == DraftStatusDraft && next.IsValid() && next != DraftStatusDraft
}

// Draft is a persisted, unpublished, user-owned review-in-progress with a
// bounded lifetime.
//
// Metadata is an opaque producer-defined JSON payload (word count, time
// spent, autosave counter, ...). It is stored and returned byte-for-byte and
// never interpreted here.
type Draft struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	BookID   *uuid.UUID
	Title    *string
	Body     string
	Metadata json.RawMessage

	Status  DraftStatus
	Version int

	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastAccessed time.Time
	ExpiresAt    time.Time
}

// IsActive reports whether the draft is still editable.
func (d *Draft) IsActive() bool {
	return d.Status == DraftStatusDraft
}

// IsExpired reports whether the draft's deadline has passed at the given instant.
func (d *Draft) IsExpired(now time.Time) bool {
	return d.ExpiresAt.Before(now)
}

// DraftPatch describes a partial content update applied by an autosave.
// Nil fields are left unchanged. Setting BookID to a non-nil pointer holding
// uuid.Nil clears the book association.
type DraftPatch struct {
	Title    *string
	Body     *string
	BookID   *uuid.UUID
	Metadata json.RawMessage
}

// IsEmpty reports whether the patch changes nothing.
func (p DraftPatch) IsEmpty() bool {
	return p.Title == nil && p.Body == nil && p.BookID == nil && p.Metadata == nil
}
