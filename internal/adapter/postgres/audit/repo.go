// Package audit implements the append-only draft audit log store.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/quillshelf/backend/internal/adapter/postgres"
	"github.com/quillshelf/backend/internal/domain"
)

const table = "draft_audit_log"

var columns = []string{
	"id", "draft_id", "actor", "action", "old_data", "new_data", "reason", "created_at",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides persistence for draft audit entries.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new audit repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) q(ctx context.Context) postgres.Querier {
	return postgres.QuerierFromCtx(ctx, r.pool)
}

// Create appends an audit entry. ID and CreatedAt are assigned here if unset.
func (r *Repo) Create(ctx context.Context, e *domain.AuditLogEntry) (*domain.AuditLogEntry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	sql, args, err := psql.Insert(table).
		Columns(columns...).
		Values(e.ID, e.DraftID, e.Actor, e.Action,
			rawOrNil(e.OldData), rawOrNil(e.NewData), e.Reason, e.CreatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build create audit entry: %w", err)
	}

	if _, err := r.q(ctx).Exec(ctx, sql, args...); err != nil {
		return nil, fmt.Errorf("create audit entry: %w", err)
	}
	return e, nil
}

// ListByDraft returns a draft's audit history, newest first. Deleted drafts
// keep their history, so a missing draft is not an error here.
func (r *Repo) ListByDraft(ctx context.Context, draftID uuid.UUID, limit int) ([]domain.AuditLogEntry, error) {
	query := psql.Select(columns...).From(table).
		Where(squirrel.Eq{"draft_id": draftID}).
		OrderBy("created_at DESC", "id ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit entries: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditLogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// CountRecentCleanup returns the number of cleanup-job entries recorded since
// the given instant, across both the expiry and quota actors.
func (r *Repo) CountRecentCleanup(ctx context.Context, since time.Time) (int, error) {
	sql, args, err := psql.Select("count(*)").From(table).
		Where(squirrel.Eq{"actor": []string{domain.ActorCronCleanup, domain.ActorCronCleanupExcess}}).
		Where(squirrel.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count recent cleanup entries: %w", err)
	}

	var n int
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recent cleanup entries: %w", err)
	}
	return n, nil
}

// LastNotifiedTier returns the most recently recorded notification tier for a
// draft, or ok=false when the draft has never been notified. Deliveries are
// recorded as UPDATED entries whose new_data carries a notified_tier key.
func (r *Repo) LastNotifiedTier(ctx context.Context, draftID uuid.UUID) (domain.NotificationTier, bool, error) {
	sql, args, err := psql.Select("new_data ->> 'notified_tier'").From(table).
		Where(squirrel.Eq{"draft_id": draftID, "action": domain.AuditActionUpdated}).
		Where("new_data -> 'notified_tier' IS NOT NULL").
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build last notified tier: %w", err)
	}

	var tier string
	err = r.q(ctx).QueryRow(ctx, sql, args...).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("last notified tier: %w", err)
	}
	return domain.NotificationTier(tier), true, nil
}

func scanEntry(rows pgx.Rows) (*domain.AuditLogEntry, error) {
	var e domain.AuditLogEntry
	err := rows.Scan(
		&e.ID, &e.DraftID, &e.Actor, &e.Action,
		&e.OldData, &e.NewData, &e.Reason, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// rawOrNil keeps empty snapshots as SQL NULL rather than empty jsonb.
func rawOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
