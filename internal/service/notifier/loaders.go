package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader/v7"

	"github.com/quillshelf/backend/internal/domain"
)

const (
	maxBatch = 100
	wait     = 2 * time.Millisecond
)

// loaders batches the per-draft owner and book lookups of a single scan into
// bulk queries. Created per scan: the cache must not outlive one pass.
type loaders struct {
	contactByUserID *dataloader.Loader[uuid.UUID, *domain.UserContact]
	titleByBookID   *dataloader.Loader[uuid.UUID, *string]
}

func newLoaders(users userRepo, books bookRepo) *loaders {
	return &loaders{
		contactByUserID: newLoader(newContactsBatchFn(users)),
		titleByBookID:   newLoader(newTitlesBatchFn(books)),
	}
}

// newLoader creates a dataloader.Loader with standard batch parameters.
func newLoader[V any](batchFn dataloader.BatchFunc[uuid.UUID, V]) *dataloader.Loader[uuid.UUID, V] {
	return dataloader.NewBatchedLoader(
		batchFn,
		dataloader.WithWait[uuid.UUID, V](wait),
		dataloader.WithBatchCapacity[uuid.UUID, V](maxBatch),
	)
}

// newContactsBatchFn resolves user IDs to contacts; a missing user yields a
// nil contact, which the scan treats as an orphaned draft.
func newContactsBatchFn(repo userRepo) dataloader.BatchFunc[uuid.UUID, *domain.UserContact] {
	return func(ctx context.Context, keys []uuid.UUID) []*dataloader.Result[*domain.UserContact] {
		contacts, err := repo.GetContactsByIDs(ctx, keys)
		if err != nil {
			return errorResults[*domain.UserContact](len(keys), err)
		}

		grouped := make(map[uuid.UUID]*domain.UserContact, len(contacts))
		for id, c := range contacts {
			contact := c
			grouped[id] = &contact
		}

		return mapResults(keys, grouped, func() *domain.UserContact { return nil })
	}
}

// newTitlesBatchFn resolves book IDs to titles; a missing book yields nil and
// the scan falls back to the placeholder title.
func newTitlesBatchFn(repo bookRepo) dataloader.BatchFunc[uuid.UUID, *string] {
	return func(ctx context.Context, keys []uuid.UUID) []*dataloader.Result[*string] {
		titles, err := repo.GetTitlesByIDs(ctx, keys)
		if err != nil {
			return errorResults[*string](len(keys), err)
		}

		grouped := make(map[uuid.UUID]*string, len(titles))
		for id, t := range titles {
			title := t
			grouped[id] = &title
		}

		return mapResults(keys, grouped, func() *string { return nil })
	}
}

// errorResults returns n results all carrying the same error.
func errorResults[V any](n int, err error) []*dataloader.Result[V] {
	results := make([]*dataloader.Result[V], n)
	for i := range results {
		results[i] = &dataloader.Result[V]{Error: err}
	}
	return results
}

// mapResults maps grouped results back to key order, using defaultFn for missing keys.
func mapResults[V any](keys []uuid.UUID, grouped map[uuid.UUID]V, defaultFn func() V) []*dataloader.Result[V] {
	results := make([]*dataloader.Result[V], len(keys))
	for i, key := range keys {
		if v, ok := grouped[key]; ok {
			results[i] = &dataloader.Result[V]{Data: v}
		} else {
			results[i] = &dataloader.Result[V]{Data: defaultFn()}
		}
	}
	return results
}
