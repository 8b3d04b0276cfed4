package client_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/client"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
)

func TestCart_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cart.json")

	cart, err := client.OpenCart(path)
	require.NoError(t, err)
	require.NoError(t, cart.Add(order.Item{ID: "kb-1", Name: "Keyboard", Price: 10, Quantity: 2}))
	require.NoError(t, cart.Add(order.Item{ID: "kb-1", Name: "Keyboard", Price: 10, Quantity: 1}))
	require.NoError(t, cart.Add(order.Item{ID: "pad-1", Name: "Pad", Price: 5}))

	reopened, err := client.OpenCart(path)
	require.NoError(t, err)
	items := reopened.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, 35.0, reopened.Total())
}

func TestCart_EmptyCartHasNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")

	cart, err := client.OpenCart(path)
	require.NoError(t, err)
	require.NoError(t, cart.Add(order.Item{ID: "kb-1", Price: 10, Quantity: 1}))
	require.FileExists(t, path)

	require.NoError(t, cart.SetQuantity("kb-1", 0))
	assert.NoFileExists(t, path)
	assert.Equal(t, 0, cart.Len())

	require.NoError(t, cart.Add(order.Item{ID: "kb-1", Price: 10, Quantity: 1}))
	require.NoError(t, cart.Clear())
	assert.NoFileExists(t, path)
	require.NoError(t, cart.Clear(), "clearing twice is fine")
}

func TestCart_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	cart, err := client.OpenCart(path)
	require.NoError(t, err)
	assert.Empty(t, cart.Items())
}

func TestCart_RemoveUnknownLine(t *testing.T) {
	cart, err := client.OpenCart(filepath.Join(t.TempDir(), "cart.json"))
	require.NoError(t, err)

	require.NoError(t, cart.Remove("nope"))
	require.NoError(t, cart.Add(order.Item{ID: "kb-1", Price: 10, Quantity: 4}))
	require.NoError(t, cart.SetQuantity("kb-1", 2))
	assert.Equal(t, 20.0, cart.Total())
}
