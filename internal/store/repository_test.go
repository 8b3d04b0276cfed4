package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/store"
)

type widget struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

func (w widget) Key() string { return w.ID }

var (
	errWidgetNotFound = errors.New("widget not found")
	errWidgetExists   = errors.New("widget exists")
)

func TestRepository_CRUD(t *testing.T) {
	s, _ := newTestStore(t)
	repo := store.NewRepository[widget](s, store.Collection("widgets"), errWidgetNotFound, errWidgetExists)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, widget{ID: "w1", Color: "red"}))
	require.NoError(t, repo.Add(ctx, widget{ID: "w2", Color: "blue"}))
	assert.ErrorIs(t, repo.Add(ctx, widget{ID: "w1"}), errWidgetExists)

	updated, err := repo.Update(ctx, "w2", func(w *widget) error {
		w.Color = "green"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "green", updated.Color)

	_, err = repo.Update(ctx, "w9", func(w *widget) error { return nil })
	assert.ErrorIs(t, err, errWidgetNotFound)

	got, err := repo.Get(ctx, "w2")
	require.NoError(t, err)
	assert.Equal(t, widget{ID: "w2", Color: "green"}, *got)

	require.NoError(t, repo.Remove(ctx, "w1"))
	require.NoError(t, repo.Remove(ctx, "w1"))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []widget{{ID: "w2", Color: "green"}}, all)

	require.NoError(t, repo.ReplaceAll(ctx, []widget{{ID: "w3"}}))
	_, err = repo.Get(ctx, "w2")
	assert.ErrorIs(t, err, errWidgetNotFound)
}
