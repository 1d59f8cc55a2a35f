package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationTier classifies how urgently a user should be alerted about an
// impending or past draft expiry.
type NotificationTier string

const (
	TierWarning      NotificationTier = "WARNING"
	TierFinalWarning NotificationTier = "FINAL_WARNING"
	TierExpired      NotificationTier = "EXPIRED"
)

func (t NotificationTier) String() string { return string(t) }

func (t NotificationTier) IsValid() bool {
	switch t {
	case TierWarning, TierFinalWarning, TierExpired:
		return true
	}
	return false
}

// ExpirationNotification is one deliverable alert about a single draft.
// Delivery transport is an external collaborator's concern.
type ExpirationNotification struct {
	DraftID   uuid.UUID        `json:"draft_id"`
	UserID    uuid.UUID        `json:"user_id"`
	Email     string           `json:"email"`
	BookTitle string           `json:"book_title"`
	ExpiresAt time.Time        `json:"expires_at"`
	// DaysUntilExpiry is negative once the draft is already expired.
	DaysUntilExpiry int              `json:"days_until_expiry"`
	Tier            NotificationTier `json:"tier"`
}
