package domain

import "github.com/google/uuid"

// Book is the read-only projection of a book used for notification display.
type Book struct {
	ID     uuid.UUID
	Title  string
	Author *string
}

// FallbackBookTitle is rendered when a draft has no book assigned or its book
// can no longer be resolved. Both cases deliberately share one display path.
const FallbackBookTitle = "(no book selected)"
