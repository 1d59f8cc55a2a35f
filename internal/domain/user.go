package domain

import "github.com/google/uuid"

// UserContact is the read-only projection of a user this subsystem needs:
// identity plus a deliverable contact address. A draft whose owner cannot be
// resolved to a UserContact is orphaned.
type UserContact struct {
	ID       uuid.UUID
	Email    string
	Username string
	Name     string
}
