package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/juju/utils/v4"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
)

// Cart is the shopping cart. It lives only on the client and is written to
// disk after every change so it survives a restart.
type Cart struct {
	path string

	mu    sync.Mutex
	items []order.Item
}

// OpenCart loads the cart at path. A missing or unreadable file gives an
// empty cart.
func OpenCart(path string) (*Cart, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("client: failed to create cart dir: %w", err)
	}

	c := &Cart{path: path, items: []order.Item{}}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("client: failed to read cart: %w", err)
	}

	var items []order.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("client: cart file is corrupt, starting empty")
		return c, nil
	}
	if items != nil {
		c.items = items
	}
	return c, nil
}

// Add puts quantity units of item in the cart, merging with an existing line.
func (c *Cart) Add(item order.Item) error {
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(item.ID); i >= 0 {
		c.items[i].Quantity += item.Quantity
	} else {
		c.items = append(c.items, item)
	}
	return c.persist()
}

// SetQuantity changes a line's quantity. Zero or less removes the line.
func (c *Cart) SetQuantity(id string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return nil
	}
	if quantity <= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	} else {
		c.items[i].Quantity = quantity
	}
	return c.persist()
}

func (c *Cart) Remove(id string) error {
	return c.SetQuantity(id, 0)
}

func (c *Cart) Items() []order.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cart) Total() float64 {
	return order.CalculateTotal(c.Items())
}

func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = []order.Item{}
	return c.persist()
}

func (c *Cart) index(id string) int {
	return slices.IndexFunc(c.items, func(it order.Item) bool { return it.ID == id })
}

// persist must be called with mu held. An empty cart has no file.
func (c *Cart) persist() error {
	if len(c.items) == 0 {
		if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("client: failed to remove cart: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(c.items, "", "  ")
	if err != nil {
		return fmt.Errorf("client: failed to encode cart: %w", err)
	}
	if err := utils.AtomicWriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("client: failed to write cart: %w", err)
	}
	return nil
}
