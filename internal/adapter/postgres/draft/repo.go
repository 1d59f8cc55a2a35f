// Package draft implements the review-draft store using PostgreSQL.
// It owns the optimistic-concurrency versioning contract: every content
// mutation is a compare-and-swap on the integer version column.
package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/quillshelf/backend/internal/adapter/postgres"
	"github.com/quillshelf/backend/internal/domain"
)

const table = "review_drafts"

// columns is the canonical select list; scanDraft must stay in sync with it.
var columns = []string{
	"id", "user_id", "book_id", "title", "body", "metadata",
	"status", "version", "created_at", "updated_at", "last_accessed", "expires_at",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides review-draft persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new draft repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) q(ctx context.Context) postgres.Querier {
	return postgres.QuerierFromCtx(ctx, r.pool)
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Get returns a draft by ID. This is a system read: it does not touch
// last_accessed; callers representing genuine user activity must call
// TouchLastAccessed separately.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*domain.Draft, error) {
	sql, args, err := psql.Select(columns...).From(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get draft: %w", err)
	}

	d, err := scanDraft(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err, id)
	}
	return d, nil
}

// ListByUser returns a user's drafts, newest activity first. With
// includeExpired false only status DRAFT is returned; otherwise terminal
// states are included as well.
func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID, includeExpired bool) ([]domain.Draft, error) {
	query := psql.Select(columns...).From(table).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("last_accessed DESC", "id ASC")
	if !includeExpired {
		query = query.Where(squirrel.Eq{"status": domain.DraftStatusDraft})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list drafts by user: %w", err)
	}
	return r.queryDrafts(ctx, sql, args)
}

// ListActiveAsOf returns every draft in status DRAFT whose deadline has not
// passed at the given instant, ordered deterministically. The cleanup job's
// quota phase and its dry-run both read through this one query so their
// inputs are identical by construction.
func (r *Repo) ListActiveAsOf(ctx context.Context, asOf time.Time) ([]domain.Draft, error) {
	sql, args, err := psql.Select(columns...).From(table).
		Where(squirrel.Eq{"status": domain.DraftStatusDraft}).
		Where(squirrel.GtOrEq{"expires_at": asOf}).
		OrderBy("user_id ASC", "last_accessed ASC", "updated_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list active drafts: %w", err)
	}
	return r.queryDrafts(ctx, sql, args)
}

// ListActive returns every draft in status DRAFT regardless of deadline.
// Used by the notification scan, which classifies past-due drafts itself.
func (r *Repo) ListActive(ctx context.Context) ([]domain.Draft, error) {
	sql, args, err := psql.Select(columns...).From(table).
		Where(squirrel.Eq{"status": domain.DraftStatusDraft}).
		OrderBy("expires_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list active drafts: %w", err)
	}
	return r.queryDrafts(ctx, sql, args)
}

// CountByUser returns the number of drafts a user holds in status DRAFT.
func (r *Repo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	sql, args, err := psql.Select("count(*)").From(table).
		Where(squirrel.Eq{"user_id": userID, "status": domain.DraftStatusDraft}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count drafts by user: %w", err)
	}

	var n int
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count drafts by user: %w", err)
	}
	return n, nil
}

// CountByStatus returns draft counts grouped by status.
func (r *Repo) CountByStatus(ctx context.Context) (map[domain.DraftStatus]int, error) {
	sql, args, err := psql.Select("status", "count(*)").From(table).GroupBy("status").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count drafts by status: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("count drafts by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.DraftStatus]int)
	for rows.Next() {
		var (
			status domain.DraftStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountPastDue returns the number of DRAFT drafts past their deadline at the
// given instant: the set a real cleanup run's mark phase would transition.
func (r *Repo) CountPastDue(ctx context.Context, asOf time.Time) (int, error) {
	sql, args, err := psql.Select("count(*)").From(table).
		Where(squirrel.Eq{"status": domain.DraftStatusDraft}).
		Where(squirrel.Lt{"expires_at": asOf}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count past due drafts: %w", err)
	}

	var n int
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count past due drafts: %w", err)
	}
	return n, nil
}

// CountExpired returns the number of cleanup-relevant expired drafts at the
// given instant: already marked EXPIRED, or still DRAFT but past deadline.
func (r *Repo) CountExpired(ctx context.Context, asOf time.Time) (int, error) {
	sql, args, err := psql.Select("count(*)").From(table).
		Where(squirrel.Or{
			squirrel.Eq{"status": domain.DraftStatusExpired},
			squirrel.And{
				squirrel.Eq{"status": domain.DraftStatusDraft},
				squirrel.Lt{"expires_at": asOf},
			},
		}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count expired drafts: %w", err)
	}

	var n int
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expired drafts: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Create inserts a new draft. The caller supplies a fully-populated draft
// (status DRAFT, version 1, all timestamps set); the row is returned as
// persisted.
func (r *Repo) Create(ctx context.Context, d *domain.Draft) (*domain.Draft, error) {
	metadata := d.Metadata
	if len(metadata) == 0 {
		metadata = []byte(`{}`)
	}

	sql, args, err := psql.Insert(table).
		Columns(columns...).
		Values(d.ID, d.UserID, uuidPtrToPgUUID(d.BookID), d.Title, d.Body, metadata,
			d.Status, d.Version, d.CreatedAt, d.UpdatedAt, d.LastAccessed, d.ExpiresAt).
		Suffix("RETURNING " + selectList()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build create draft: %w", err)
	}

	created, err := scanDraft(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err, d.ID)
	}
	return created, nil
}

// Update applies a content patch if and only if expectedVersion matches the
// stored version, incrementing the version and touching updated_at and
// last_accessed. A stale expectedVersion yields domain.ErrVersionConflict;
// the stored draft is left unchanged and the caller must re-read and retry.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, expectedVersion int, patch domain.DraftPatch, at time.Time) (*domain.Draft, error) {
	update := psql.Update(table).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", at).
		Set("last_accessed", at).
		Where(squirrel.Eq{
			"id":      id,
			"status":  domain.DraftStatusDraft,
			"version": expectedVersion,
		}).
		Suffix("RETURNING " + selectList())

	if patch.Title != nil {
		update = update.Set("title", *patch.Title)
	}
	if patch.Body != nil {
		update = update.Set("body", *patch.Body)
	}
	if patch.BookID != nil {
		if *patch.BookID == uuid.Nil {
			update = update.Set("book_id", nil)
		} else {
			update = update.Set("book_id", *patch.BookID)
		}
	}
	if patch.Metadata != nil {
		update = update.Set("metadata", []byte(patch.Metadata))
	}

	sql, args, err := update.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update draft: %w", err)
	}

	updated, err := scanDraft(r.q(ctx).QueryRow(ctx, sql, args...))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError(err, id)
	}
	return nil, r.disambiguateUpdateMiss(ctx, id, expectedVersion)
}

// disambiguateUpdateMiss explains why a guarded UPDATE matched zero rows.
func (r *Repo) disambiguateUpdateMiss(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != domain.DraftStatusDraft {
		return fmt.Errorf("draft %s is %s: %w", id, current.Status, domain.ErrInvalidState)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("draft %s at version %d, expected %d: %w",
			id, current.Version, expectedVersion, domain.ErrVersionConflict)
	}
	return fmt.Errorf("draft %s: %w", id, domain.ErrNotFound)
}

// UpdateExpiry sets a new deadline on an active draft, touching last_accessed
// only. It does not bump the version: an extension is not a content mutation.
func (r *Repo) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt, at time.Time) (*domain.Draft, error) {
	sql, args, err := psql.Update(table).
		Set("expires_at", expiresAt).
		Set("last_accessed", at).
		Where(squirrel.Eq{"id": id, "status": domain.DraftStatusDraft}).
		Suffix("RETURNING " + selectList()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update draft expiry: %w", err)
	}

	updated, err := scanDraft(r.q(ctx).QueryRow(ctx, sql, args...))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError(err, id)
	}

	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("draft %s is %s: %w", id, current.Status, domain.ErrInvalidState)
}

// SetStatus transitions a draft from one status to another. The transition
// must be legal per the state machine; an illegal or already-applied
// transition yields domain.ErrInvalidState.
func (r *Repo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.DraftStatus, at time.Time) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("transition %s -> %s: %w", from, to, domain.ErrInvalidState)
	}

	sql, args, err := psql.Update(table).
		Set("status", to).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set draft status: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, id)
	}
	if tag.RowsAffected() == 0 {
		current, getErr := r.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("draft %s is %s: %w", id, current.Status, domain.ErrInvalidState)
	}
	return nil
}

// TouchLastAccessed records genuine user activity on an active draft.
// Touching a terminal draft is a no-op, not an error.
func (r *Repo) TouchLastAccessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	sql, args, err := psql.Update(table).
		Set("last_accessed", at).
		Where(squirrel.Eq{"id": id, "status": domain.DraftStatusDraft}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch draft: %w", err)
	}
	if _, err := r.q(ctx).Exec(ctx, sql, args...); err != nil {
		return mapError(err, id)
	}
	return nil
}

// Delete permanently removes a draft. Audit entries referencing it survive.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := psql.Delete(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete draft: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("draft %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Cleanup-phase queries
// ---------------------------------------------------------------------------

// MarkExpired transitions every DRAFT draft past its deadline at asOf to
// EXPIRED in a single statement and returns the number marked. It leaves
// updated_at untouched: marking is a system transition, and the deletion
// phase's abandonment threshold compares against the last genuine update.
func (r *Repo) MarkExpired(ctx context.Context, asOf time.Time) (int64, error) {
	sql, args, err := psql.Update(table).
		Set("status", domain.DraftStatusExpired).
		Where(squirrel.Eq{"status": domain.DraftStatusDraft}).
		Where(squirrel.Lt{"expires_at": asOf}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build mark expired: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("mark expired drafts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindReclaimable returns up to limit drafts eligible for the deletion phase
// under the given criteria: drafts already in a target status, plus — when
// EXPIRED is a target — DRAFT drafts past their deadline at asOf that a real
// run's mark phase would have transitioned. Both the real pass and the
// dry-run read through this query so their selections agree on an unchanged
// dataset. Selection order is deterministic.
func (r *Repo) FindReclaimable(ctx context.Context, criteria domain.CleanupCriteria, asOf time.Time) ([]domain.Draft, error) {
	statusPred := squirrel.Or{squirrel.Eq{"status": statusStrings(criteria.Statuses)}}
	if criteria.HasStatus(domain.DraftStatusExpired) {
		statusPred = append(statusPred, squirrel.And{
			squirrel.Eq{"status": domain.DraftStatusDraft},
			squirrel.Lt{"expires_at": asOf},
		})
	}

	sql, args, err := psql.Select(columns...).From(table).
		Where(statusPred).
		Where(squirrel.Lt{"updated_at": criteria.OlderThan}).
		OrderBy("updated_at ASC", "id ASC").
		Limit(uint64(criteria.BatchSize)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find reclaimable: %w", err)
	}
	return r.queryDrafts(ctx, sql, args)
}

// FindOrphaned returns up to limit drafts whose owning user no longer exists,
// in deterministic order.
func (r *Repo) FindOrphaned(ctx context.Context, limit int) ([]domain.Draft, error) {
	sql, args, err := psql.Select(qualified(columns)...).From(table + " d").
		LeftJoin("users u ON u.id = d.user_id").
		Where("u.id IS NULL").
		OrderBy("d.updated_at ASC", "d.id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find orphaned: %w", err)
	}
	return r.queryDrafts(ctx, sql, args)
}

// CountOrphaned returns the total number of orphaned drafts.
func (r *Repo) CountOrphaned(ctx context.Context) (int, error) {
	sql, args, err := psql.Select("count(*)").From(table + " d").
		LeftJoin("users u ON u.id = d.user_id").
		Where("u.id IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count orphaned: %w", err)
	}

	var n int
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orphaned drafts: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Scanning and helpers
// ---------------------------------------------------------------------------

func (r *Repo) queryDrafts(ctx context.Context, sql string, args []any) ([]domain.Draft, error) {
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	var drafts []domain.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		drafts = append(drafts, *d)
	}
	return drafts, rows.Err()
}

func scanDraft(row pgx.Row) (*domain.Draft, error) {
	var (
		d      domain.Draft
		bookID pgtype.UUID
	)
	err := row.Scan(
		&d.ID, &d.UserID, &bookID, &d.Title, &d.Body, &d.Metadata,
		&d.Status, &d.Version, &d.CreatedAt, &d.UpdatedAt, &d.LastAccessed, &d.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if bookID.Valid {
		id := uuid.UUID(bookID.Bytes)
		d.BookID = &id
	}
	return &d, nil
}

// mapError converts pgx errors into domain errors with draft context.
func mapError(err error, id uuid.UUID) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("draft %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("draft %s: %w", id, err)
}

func uuidPtrToPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func statusStrings(statuses []domain.DraftStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func selectList() string {
	list := columns[0]
	for _, c := range columns[1:] {
		list += ", " + c
	}
	return list
}

func qualified(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = "d." + c
	}
	return out
}
