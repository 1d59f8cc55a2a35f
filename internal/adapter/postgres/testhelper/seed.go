package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillshelf/backend/internal/domain"
)

// SeedUser inserts a user row and returns its ID. Email and username are
// derived from the ID to stay unique across tests sharing one container.
func SeedUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email, username, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())`,
		id, id.String()+"@example.com", "user-"+id.String()[:8], "Test User",
	)
	if err != nil {
		t.Fatalf("testhelper: seed user: %v", err)
	}
	return id
}

// SeedBook inserts a book row with the given title and returns its ID.
func SeedBook(t *testing.T, pool *pgxpool.Pool, title string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO books (id, title, created_at) VALUES ($1, $2, now())`,
		id, title,
	)
	if err != nil {
		t.Fatalf("testhelper: seed book: %v", err)
	}
	return id
}

// SeedDraft inserts a draft row exactly as given, bypassing all service-level
// rules. Zero timestamps default to now; zero version defaults to 1; empty
// status defaults to DRAFT.
func SeedDraft(t *testing.T, pool *pgxpool.Pool, d domain.Draft) domain.Draft {
	t.Helper()

	now := time.Now().UTC()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = domain.DraftStatusDraft
	}
	if d.Version == 0 {
		d.Version = 1
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = now
	}
	if d.LastAccessed.IsZero() {
		d.LastAccessed = now
	}
	if d.ExpiresAt.IsZero() {
		d.ExpiresAt = now.Add(7 * 24 * time.Hour)
	}
	metadata := []byte(d.Metadata)
	if len(metadata) == 0 {
		metadata = []byte(`{}`)
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO review_drafts
		   (id, user_id, book_id, title, body, metadata, status, version,
		    created_at, updated_at, last_accessed, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.UserID, d.BookID, d.Title, d.Body, metadata, d.Status, d.Version,
		d.CreatedAt, d.UpdatedAt, d.LastAccessed, d.ExpiresAt,
	)
	if err != nil {
		t.Fatalf("testhelper: seed draft: %v", err)
	}
	return d
}
