// Package store persists each storefront collection as one JSON document.
//
// Every read goes to the backend, every write replaces the whole document.
// Writers serialize per collection through Mutate or WithLock; readers never
// lock because backends replace documents atomically.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/im7mortal/kmutex"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/apperr"
)

type Collection string

const (
	Orders     Collection = "orders"
	Users      Collection = "users"
	Products   Collection = "products"
	Categories Collection = "categories"
	Config     Collection = "config"
)

func (c Collection) String() string {
	return string(c)
}

// ErrNoDocument is returned by a Backend when the collection was never written.
var ErrNoDocument = errors.New("store: document does not exist")

// Backend reads and atomically replaces raw collection documents.
type Backend interface {
	Read(ctx context.Context, c Collection) ([]byte, error)
	Write(ctx context.Context, c Collection, data []byte) error
	Close() error
}

type Store struct {
	backend Backend
	locks   *kmutex.Kmutex
}

func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		locks:   kmutex.New(),
	}
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// WithLock runs fn while holding the write locks of every listed collection.
// Locks are taken in name order so overlapping callers cannot deadlock.
// Load and SaveAll may be called inside fn; Mutate may not.
func (s *Store) WithLock(cols []Collection, fn func() error) error {
	keys := slices.Clone(cols)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	for _, c := range keys {
		s.locks.Lock(c)
	}
	defer func() {
		for i := len(keys) - 1; i >= 0; i-- {
			s.locks.Unlock(keys[i])
		}
	}()

	return fn()
}

// Load returns the records of c. An absent document yields an empty slice.
func Load[T any](ctx context.Context, s *Store, c Collection) ([]T, error) {
	data, err := s.read(ctx, c)
	if err != nil {
		return nil, err
	}

	records := make([]T, 0)
	if data == nil {
		return records, nil
	}

	if err := json.Unmarshal(data, &records); err != nil {
		log.Error().Err(err).Stringer("collection", c).Msg("store: document is corrupt")
		return nil, apperr.Persistence(fmt.Sprintf("store: decode %s", c), err)
	}
	if records == nil {
		records = make([]T, 0)
	}

	return records, nil
}

// SaveAll replaces the document of c with records.
func SaveAll[T any](ctx context.Context, s *Store, c Collection, records []T) error {
	if records == nil {
		records = make([]T, 0)
	}
	return s.write(ctx, c, records)
}

// LoadDocument decodes a singleton document. ok is false when it was never written.
func LoadDocument[T any](ctx context.Context, s *Store, c Collection) (doc T, ok bool, err error) {
	data, err := s.read(ctx, c)
	if err != nil || data == nil {
		return doc, false, err
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		log.Error().Err(err).Stringer("collection", c).Msg("store: document is corrupt")
		return doc, false, apperr.Persistence(fmt.Sprintf("store: decode %s", c), err)
	}

	return doc, true, nil
}

func SaveDocument[T any](ctx context.Context, s *Store, c Collection, doc T) error {
	return s.write(ctx, c, doc)
}

// Mutate runs a locked read-modify-write cycle over c. The slice fn returns
// is persisted unless fn fails, in which case nothing is written.
func Mutate[T any](ctx context.Context, s *Store, c Collection, fn func([]T) ([]T, error)) error {
	return s.WithLock([]Collection{c}, func() error {
		records, err := Load[T](ctx, s, c)
		if err != nil {
			return err
		}

		updated, err := fn(records)
		if err != nil {
			return err
		}

		return SaveAll(ctx, s, c, updated)
	})
}

func (s *Store) read(ctx context.Context, c Collection) ([]byte, error) {
	data, err := s.backend.Read(ctx, c)
	if errors.Is(err, ErrNoDocument) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Stringer("collection", c).Msg("store: read failed")
		return nil, apperr.Persistence(fmt.Sprintf("store: read %s", c), err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return data, nil
}

func (s *Store) write(ctx context.Context, c Collection, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Persistence(fmt.Sprintf("store: encode %s", c), err)
	}

	if err := s.backend.Write(ctx, c, data); err != nil {
		log.Error().Err(err).Stringer("collection", c).Msg("store: write failed")
		return apperr.Persistence(fmt.Sprintf("store: write %s", c), err)
	}

	return nil
}
