package settings_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/apperr"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/settings"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/store"
)

func newTestService(t *testing.T) (settings.Service, string) {
	t.Helper()

	dir := t.TempDir()
	backend, err := store.OpenFileBackend(dir)
	require.NoError(t, err)
	s := store.New(backend)
	t.Cleanup(func() { _ = s.Close() })

	return settings.NewService(s), dir
}

func TestSettings_DefaultWhenMissing(t *testing.T) {
	svc, _ := newTestService(t)

	doc, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &settings.Document{}, doc)

	creds, err := svc.EmailCredentials(context.Background())
	require.NoError(t, err)
	assert.False(t, creds.Configured())
}

func TestSettings_ReplaceLastWriteWins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := settings.Document{
		EmailConfig: settings.EmailConfig{Email: "shop@gamergear.com", AppPassword: "abcd efgh"},
		StoreConfig: settings.StoreConfig{Address: "1 Store Rd", Ads: []string{"banner.png"}},
	}
	require.NoError(t, svc.Replace(ctx, first))

	second := settings.Document{
		StoreConfig: settings.StoreConfig{
			Address:     "2 Market St",
			SocialMedia: settings.SocialMedia{Instagram: "@gamergear", Phone: "555-0199"},
		},
	}
	require.NoError(t, svc.Replace(ctx, second))

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(second, *got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	address, err := svc.StoreAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2 Market St", address)
}

func TestSettings_CorruptDocument(t *testing.T) {
	svc, dir := newTestService(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o644))

	_, err := svc.Get(context.Background())
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}
