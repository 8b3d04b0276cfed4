package store_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/apperr"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/store"
)

type record struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type singleton struct {
	Address string   `json:"address"`
	Ads     []string `json:"ads"`
}

func newTestStore(t *testing.T) (*store.Store, *store.FileBackend) {
	t.Helper()

	backend, err := store.OpenFileBackend(t.TempDir())
	require.NoError(t, err)

	s := store.New(backend)
	t.Cleanup(func() { _ = s.Close() })
	return s, backend
}

func TestLoad_MissingDocumentIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	records, err := store.Load[record](context.Background(), s, store.Products)
	require.NoError(t, err)
	require.NotNil(t, records)
	assert.Empty(t, records)
}

func TestSaveAll_RoundTripPreservesOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	want := []record{
		{ID: "p3", Name: "Headset", Price: 59.99},
		{ID: "p1", Name: "Keyboard", Price: 120},
		{ID: "p2", Name: "Mouse", Price: 25.5},
	}

	require.NoError(t, store.SaveAll(ctx, s, store.Products, want))

	got, err := store.Load[record](ctx, s, store.Products)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_IsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAll(ctx, s, store.Orders, []record{{ID: "a"}, {ID: "b"}}))

	first, err := store.Load[record](ctx, s, store.Orders)
	require.NoError(t, err)
	second, err := store.Load[record](ctx, s, store.Orders)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSaveAll_NilWritesEmptyArray(t *testing.T) {
	s, backend := newTestStore(t)

	require.NoError(t, store.SaveAll[record](context.Background(), s, store.Orders, nil))

	data, err := os.ReadFile(backend.Path(store.Orders))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSaveAll_WritesIndentedJSON(t *testing.T) {
	s, backend := newTestStore(t)

	require.NoError(t, store.SaveAll(context.Background(), s, store.Products, []record{{ID: "p1", Name: "Pad", Price: 5}}))

	data, err := os.ReadFile(backend.Path(store.Products))
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"id\": \"p1\",\n    \"name\": \"Pad\",\n    \"price\": 5\n  }\n]", string(data))
}

func TestLoad_CorruptDocument(t *testing.T) {
	s, backend := newTestStore(t)

	require.NoError(t, os.WriteFile(backend.Path(store.Users), []byte(`[{"id": "u1",`), 0o644))

	_, err := store.Load[record](context.Background(), s, store.Users)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestLoad_BlankDocumentIsEmpty(t *testing.T) {
	s, backend := newTestStore(t)

	require.NoError(t, os.WriteFile(backend.Path(store.Users), []byte("  \n"), 0o644))

	records, err := store.Load[record](context.Background(), s, store.Users)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDocument_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadDocument[singleton](ctx, s, store.Config)
	require.NoError(t, err)
	assert.False(t, ok)

	want := singleton{Address: "12 Main St", Ads: []string{"a.png", "b.png"}}
	require.NoError(t, store.SaveDocument(ctx, s, store.Config, want))

	got, ok, err := store.LoadDocument[singleton](ctx, s, store.Config)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestMutate_FailureLeavesDocumentUntouched(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAll(ctx, s, store.Products, []record{{ID: "keep"}}))

	err := store.Mutate(ctx, s, store.Products, func(records []record) ([]record, error) {
		return nil, apperr.Invalid("id", "rejected")
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	got, err := store.Load[record](ctx, s, store.Products)
	require.NoError(t, err)
	assert.Equal(t, []record{{ID: "keep"}}, got)
}

func TestMutate_ConcurrentAppendsAllSurvive(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Mutate(ctx, s, store.Orders, func(records []record) ([]record, error) {
				return append(records, record{ID: fmt.Sprintf("o-%d", i)}), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.Load[record](ctx, s, store.Orders)
	require.NoError(t, err)
	require.Len(t, got, writers)

	seen := make(map[string]bool, writers)
	for _, r := range got {
		seen[r.ID] = true
	}
	assert.Len(t, seen, writers)
}

func TestWithLock_CrossCollection(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			err := s.WithLock([]store.Collection{store.Products, store.Categories}, func() error {
				return bump(ctx, s, store.Categories, store.Products)
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			err := s.WithLock([]store.Collection{store.Categories, store.Products, store.Categories}, func() error {
				return bump(ctx, s, store.Products, store.Categories)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, c := range []store.Collection{store.Products, store.Categories} {
		got, err := store.Load[record](ctx, s, c)
		require.NoError(t, err)
		assert.Len(t, got, 40, c.String())
	}
}

func bump(ctx context.Context, s *store.Store, cols ...store.Collection) error {
	for _, c := range cols {
		records, err := store.Load[record](ctx, s, c)
		if err != nil {
			return err
		}
		records = append(records, record{ID: fmt.Sprintf("%s-%d", c, len(records))})
		if err := store.SaveAll(ctx, s, c, records); err != nil {
			return err
		}
	}
	return nil
}
