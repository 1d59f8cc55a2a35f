package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies the kind of mutation an audit entry records.
type AuditAction string

const (
	AuditActionCreated AuditAction = "CREATED"
	AuditActionUpdated AuditAction = "UPDATED"
	AuditActionDeleted AuditAction = "DELETED"
)

func (a AuditAction) String() string { return string(a) }

func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionCreated, AuditActionUpdated, AuditActionDeleted:
		return true
	}
	return false
}

// Reserved actor identifiers for system-initiated mutations. User-initiated
// mutations carry the user's UUID in string form instead.
const (
	ActorCronCleanup       = "CRON_CLEANUP"
	ActorCronCleanupExcess = "CRON_CLEANUP_EXCESS"
	ActorCronNotify        = "CRON_NOTIFY"
)

// Audit entry reasons attached by the cleanup job.
const (
	ReasonMaxDraftsExceeded = "MAX_DRAFTS_EXCEEDED"
)

// AuditLogEntry is an immutable record of a mutating action taken against a
// draft. DraftID is a weak reference: entries outlive the draft's deletion.
type AuditLogEntry struct {
	ID      uuid.UUID
	DraftID uuid.UUID
	Actor   string
	Action  AuditAction

	// OldData and NewData are opaque before/after snapshots.
	OldData json.RawMessage
	NewData json.RawMessage
	Reason  *string

	CreatedAt time.Time
}

// UserActor renders a user ID as an audit actor string.
func UserActor(userID uuid.UUID) string {
	return userID.String()
}
