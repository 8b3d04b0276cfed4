package store

import (
	"context"
	"fmt"
	"slices"
)

// Entity is anything stored in a keyed collection.
type Entity interface {
	Key() string
}

// Repository is CRUD over one keyed collection. Every mutation is a locked
// whole-document rewrite.
type Repository[T Entity] struct {
	store      *Store
	collection Collection
	notFound   error
	exists     error
}

func NewRepository[T Entity](s *Store, c Collection, notFound, exists error) *Repository[T] {
	return &Repository[T]{store: s, collection: c, notFound: notFound, exists: exists}
}

func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	return Load[T](ctx, r.store, r.collection)
}

func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	i := slices.IndexFunc(records, func(rec T) bool { return rec.Key() == id })
	if i < 0 {
		return nil, r.notFound
	}
	return &records[i], nil
}

func (r *Repository[T]) Add(ctx context.Context, rec T) error {
	return Mutate(ctx, r.store, r.collection, func(records []T) ([]T, error) {
		if slices.ContainsFunc(records, func(existing T) bool { return existing.Key() == rec.Key() }) {
			return nil, fmt.Errorf("%w: %s", r.exists, rec.Key())
		}
		return append(records, rec), nil
	})
}

// Update runs fn on the record with id. Unknown ids fail with the
// repository's not-found error.
func (r *Repository[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	var updated T
	err := Mutate(ctx, r.store, r.collection, func(records []T) ([]T, error) {
		i := slices.IndexFunc(records, func(rec T) bool { return rec.Key() == id })
		if i < 0 {
			return nil, r.notFound
		}

		current := records[i]
		if err := fn(&current); err != nil {
			return nil, err
		}
		records[i] = current
		updated = current
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Remove drops the record with id. Removing an unknown id is not an error.
func (r *Repository[T]) Remove(ctx context.Context, id string) error {
	return Mutate(ctx, r.store, r.collection, func(records []T) ([]T, error) {
		return slices.DeleteFunc(records, func(rec T) bool { return rec.Key() == id }), nil
	})
}

func (r *Repository[T]) ReplaceAll(ctx context.Context, records []T) error {
	return r.store.WithLock([]Collection{r.collection}, func() error {
		return SaveAll(ctx, r.store, r.collection, records)
	})
}
