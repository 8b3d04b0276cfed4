package order

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/juju/clock"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/apperr"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/store"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrOrderExists   = fmt.Errorf("order %w", apperr.ErrConflict)
)

type Repository interface {
	Create(ctx context.Context, o *Order) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	// Update applies fn to the stored order under the collection lock.
	// Nothing is written when fn fails.
	Update(ctx context.Context, id string, fn func(*Order) error) (*Order, error)
	Delete(ctx context.Context, id string) error
}

// repository adds clock-stamped ids to the generic collection repository;
// List and Update come from store.Repository unchanged.
type repository struct {
	*store.Repository[Order]
	store *store.Store
	clock clock.Clock
}

func NewRepository(s *store.Store, clk clock.Clock) Repository {
	return &repository{
		Repository: store.NewRepository[Order](s, store.Orders, ErrOrderNotFound, ErrOrderExists),
		store:      s,
		clock:      clk,
	}
}

// Create stamps the order with an id and creation date from the repository
// clock. A millisecond already taken is bumped until the id is free.
func (r *repository) Create(ctx context.Context, o *Order) (*Order, error) {
	created := *o
	created.Items = slices.Clone(o.Items)

	err := store.Mutate(ctx, r.store, store.Orders, func(orders []Order) ([]Order, error) {
		now := r.clock.Now().UTC()
		millis := now.UnixMilli()

		taken := make(map[string]bool, len(orders))
		for _, existing := range orders {
			taken[existing.ID] = true
		}
		for taken[orderID(millis)] {
			millis++
		}

		created.ID = orderID(millis)
		created.Date = now
		return append(orders, created), nil
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", o.UserID).Msg("repository: failed to create order")
		return nil, fmt.Errorf("repository: failed to create order: %w", err)
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	return r.Get(ctx, id)
}

// Delete is idempotent: removing an unknown id succeeds.
func (r *repository) Delete(ctx context.Context, id string) error {
	if err := r.Remove(ctx, id); err != nil {
		log.Error().Err(err).Str("order_id", id).Msg("repository: failed to delete order")
		return fmt.Errorf("repository: failed to delete order: %w", err)
	}
	return nil
}

func orderID(millis int64) string {
	return "ORD-" + strconv.FormatInt(millis, 10)
}
