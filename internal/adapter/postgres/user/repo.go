// Package user implements the read-only user contact lookup.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/quillshelf/backend/internal/adapter/postgres"
	"github.com/quillshelf/backend/internal/domain"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides read access to user contact data.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new user repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) q(ctx context.Context) postgres.Querier {
	return postgres.QuerierFromCtx(ctx, r.pool)
}

// GetContactsByIDs resolves user IDs to contacts in one round trip. IDs with
// no matching user are simply absent from the result; callers treat missing
// owners as orphaned drafts.
func (r *Repo) GetContactsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.UserContact, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]domain.UserContact{}, nil
	}

	sql, args, err := psql.Select("id", "email", "username", "name").
		From("users").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get user contacts: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("get user contacts: %w", err)
	}
	defer rows.Close()

	contacts := make(map[uuid.UUID]domain.UserContact, len(ids))
	for rows.Next() {
		var c domain.UserContact
		if err := rows.Scan(&c.ID, &c.Email, &c.Username, &c.Name); err != nil {
			return nil, fmt.Errorf("scan user contact: %w", err)
		}
		contacts[c.ID] = c
	}
	return contacts, rows.Err()
}

// Exists reports whether a user with the given ID exists.
func (r *Repo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	sql, args, err := psql.Select("1").From("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build user exists: %w", err)
	}

	var one int
	err = r.q(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return true, nil
}
