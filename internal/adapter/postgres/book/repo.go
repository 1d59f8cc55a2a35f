// Package book implements the read-only book title lookup.
package book

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/quillshelf/backend/internal/adapter/postgres"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides read access to book display data.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new book repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) q(ctx context.Context) postgres.Querier {
	return postgres.QuerierFromCtx(ctx, r.pool)
}

// GetTitlesByIDs resolves book IDs to titles in one round trip. IDs with no
// matching book are absent from the result; callers fall back to a
// placeholder title.
func (r *Repo) GetTitlesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	sql, args, err := psql.Select("id", "title").
		From("books").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get book titles: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("get book titles: %w", err)
	}
	defer rows.Close()

	titles := make(map[uuid.UUID]string, len(ids))
	for rows.Next() {
		var (
			id    uuid.UUID
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan book title: %w", err)
		}
		titles[id] = title
	}
	return titles, rows.Err()
}
