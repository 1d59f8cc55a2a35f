package draft

import (
	"encoding/json"
	"time"

	"github.com/quillshelf/backend/internal/domain"
)

// draftSnapshot is the audit-entry representation of a draft's mutable state.
type draftSnapshot struct {
	Title     *string         `json:"title,omitempty"`
	Body      string          `json:"body"`
	BookID    *string         `json:"book_id,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Status    string          `json:"status"`
	Version   int             `json:"version"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// snapshot serializes a draft for an audit entry's old_data/new_data field.
func snapshot(d *domain.Draft) json.RawMessage {
	s := draftSnapshot{
		Title:     d.Title,
		Body:      d.Body,
		Metadata:  d.Metadata,
		Status:    string(d.Status),
		Version:   d.Version,
		ExpiresAt: d.ExpiresAt,
	}
	if d.BookID != nil {
		id := d.BookID.String()
		s.BookID = &id
	}

	// A draft snapshot is always serializable; the fields are plain values.
	raw, _ := json.Marshal(s)
	return raw
}
