package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/catalog"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/settings"
)

const (
	DefaultPollInterval  = 5 * time.Second
	DefaultFetchAttempts = 3
	DefaultRetryDelay    = time.Second
)

// Outcome tells the caller whether a mutation reached the server.
type Outcome int

const (
	// OutcomeSynced means the server accepted the change.
	OutcomeSynced Outcome = iota
	// OutcomeSavedLocally means the change is only in the local view.
	OutcomeSavedLocally
)

func (o Outcome) String() string {
	if o == OutcomeSynced {
		return "synced"
	}
	return "saved locally"
}

type Options struct {
	Clock         clock.Clock
	PollInterval  time.Duration
	FetchAttempts int
	RetryDelay    time.Duration
	// UserID limits the order mirror to one customer. Empty mirrors all orders.
	UserID string
	// OnOrders is called with the merged order view after every refresh.
	OnOrders func([]order.Order)
	// OnReverted is called when a refresh replaces a status change the
	// server never accepted.
	OnReverted func(Revert)
}

// Revert describes a local status change lost to the server copy.
type Revert struct {
	OrderID string
	Local   order.Status
	Server  order.Status
}

// Mirror holds a local copy of server state. Local mutations are applied
// immediately and kept even when the server write fails; polling replaces
// the server-held orders but never drops orders that only exist locally.
type Mirror struct {
	api  *API
	opts Options

	mu         sync.RWMutex
	orders     []order.Order
	localOnly  []order.Order
	pending    map[string]order.Status
	products   []catalog.Product
	categories []catalog.Category
	config     settings.Document
}

func NewMirror(api *API, opts Options) *Mirror {
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FetchAttempts <= 0 {
		opts.FetchAttempts = DefaultFetchAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Mirror{
		api:        api,
		opts:       opts,
		orders:     []order.Order{},
		localOnly:  []order.Order{},
		pending:    map[string]order.Status{},
		products:   []catalog.Product{},
		categories: []catalog.Category{},
	}
}

// Run loads everything and then refreshes orders every PollInterval until
// ctx is done. A failed load is logged and retried on the next tick instead
// of ending the loop, so a client started while the server is down catches
// up once it returns.
func (m *Mirror) Run(ctx context.Context) error {
	loaded := m.load(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.opts.Clock.After(m.opts.PollInterval):
			if !loaded {
				loaded = m.load(ctx)
				continue
			}
			if err := m.RefreshOrders(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("client: order poll failed")
			}
		}
	}
}

func (m *Mirror) load(ctx context.Context) bool {
	err := m.Load(ctx)
	if err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("client: load incomplete, retrying on next poll")
	}
	return err == nil
}

// Load fetches orders, products, categories and config in parallel. Each
// collection that arrives replaces its local copy even when another one
// fails; the returned error names the first failure.
func (m *Mirror) Load(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error {
		orders, err := fetch(ctx, m, "orders", func(ctx context.Context) ([]order.Order, error) {
			return m.api.ListOrders(ctx, m.opts.UserID)
		})
		if err != nil {
			return err
		}
		m.applyOrders(orders)
		return nil
	})
	g.Go(func() error {
		products, err := fetch(ctx, m, "products", m.api.ListProducts)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.products = nonNil(products)
		m.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		categories, err := fetch(ctx, m, "categories", m.api.ListCategories)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.categories = nonNil(categories)
		m.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		config, err := fetch(ctx, m, "config", m.api.GetConfig)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.config = *config
		m.mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("client: load failed: %w", err)
	}

	m.mu.RLock()
	log.Info().
		Int("orders", len(m.orders)).
		Int("products", len(m.products)).
		Int("categories", len(m.categories)).
		Msg("client: mirror loaded")
	m.mu.RUnlock()
	return nil
}

func (m *Mirror) RefreshOrders(ctx context.Context) error {
	orders, err := m.api.ListOrders(ctx, m.opts.UserID)
	if err != nil {
		return err
	}
	m.applyOrders(orders)
	return nil
}

// applyOrders replaces the server-held orders. A local status the server
// refused earlier is reported through OnReverted before it is replaced.
func (m *Mirror) applyOrders(orders []order.Order) {
	orders = nonNil(orders)

	m.mu.Lock()
	for id := range m.pending {
		if !slices.ContainsFunc(orders, func(o order.Order) bool { return o.ID == id }) {
			delete(m.pending, id)
		}
	}
	var reverted []Revert
	for _, o := range orders {
		local, ok := m.pending[o.ID]
		if !ok {
			continue
		}
		delete(m.pending, o.ID)
		if local != o.Status {
			reverted = append(reverted, Revert{OrderID: o.ID, Local: local, Server: o.Status})
		}
	}
	m.orders = orders
	view := m.orderView()
	m.mu.Unlock()

	for _, r := range reverted {
		log.Warn().
			Str("order_id", r.OrderID).
			Str("local_status", r.Local.String()).
			Str("server_status", r.Server.String()).
			Msg("client: unsynced status change replaced by server copy")
		if m.opts.OnReverted != nil {
			m.opts.OnReverted(r)
		}
	}
	m.notifyOrders(view)
}

// fetch retries transport failures and 5xx answers; other errors are final.
func fetch[T any](ctx context.Context, m *Mirror, what string, call func(context.Context) (T, error)) (T, error) {
	var result T
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			result, err = call(ctx)
			return err
		},
		IsFatalError: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.Code < http.StatusInternalServerError
			}
			return ctx.Err() != nil
		},
		NotifyFunc: func(err error, attempt int) {
			log.Debug().Err(err).Str("collection", what).Int("attempt", attempt).Msg("client: fetch failed, retrying")
		},
		Attempts: m.opts.FetchAttempts,
		Delay:    m.opts.RetryDelay,
		Clock:    m.opts.Clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		// Fatal errors come back as they were returned; only the retry
		// package's own errors need unwrapping.
		if retry.IsAttemptsExceeded(err) || retry.IsDurationExceeded(err) || retry.IsRetryStopped(err) {
			err = retry.LastError(err)
		}
		return result, fmt.Errorf("fetch %s: %w", what, err)
	}
	return result, nil
}

func (m *Mirror) Orders() []order.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orderView()
}

func (m *Mirror) Products() []catalog.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.products)
}

func (m *Mirror) Categories() []catalog.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.categories)
}

func (m *Mirror) Config() settings.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// orderView must be called with mu held.
func (m *Mirror) orderView() []order.Order {
	view := make([]order.Order, 0, len(m.orders)+len(m.localOnly))
	view = append(view, m.orders...)
	return append(view, m.localOnly...)
}

func (m *Mirror) notifyOrders(view []order.Order) {
	if m.opts.OnOrders != nil {
		m.opts.OnOrders(view)
	}
}

// UpdateOrderStatus applies the new status locally first. A failed server
// write leaves the local status in place and reports OutcomeSavedLocally.
func (m *Mirror) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (Outcome, error) {
	m.mu.Lock()
	updateOrder(m.orders, id, func(o *order.Order) { o.Status = status })
	updateOrder(m.localOnly, id, func(o *order.Order) { o.Status = status })
	m.mu.Unlock()

	updated, err := m.api.UpdateOrder(ctx, id, order.UpdateRequest{Status: &status})
	if err != nil {
		m.mu.Lock()
		if slices.ContainsFunc(m.orders, func(o order.Order) bool { return o.ID == id }) {
			m.pending[id] = status
		}
		m.mu.Unlock()
		log.Error().Err(err).Str("order_id", id).Str("status", status.String()).Msg("client: status update saved locally only")
		return OutcomeSavedLocally, err
	}

	m.mu.Lock()
	delete(m.pending, id)
	updateOrder(m.orders, id, func(o *order.Order) { *o = *updated })
	m.mu.Unlock()
	return OutcomeSynced, nil
}

// DeleteOrder removes the order locally only after the server confirms.
func (m *Mirror) DeleteOrder(ctx context.Context, id string) error {
	if err := m.api.DeleteOrder(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
	m.orders = slices.DeleteFunc(m.orders, func(o order.Order) bool { return o.ID == id })
	m.localOnly = slices.DeleteFunc(m.localOnly, func(o order.Order) bool { return o.ID == id })
	return nil
}

// PlaceOrder submits the cart. When the server cannot be reached the order
// is kept in the local view and the cart is still cleared; a rejection by
// the server keeps the cart untouched.
func (m *Mirror) PlaceOrder(ctx context.Context, cart *Cart, req CheckoutRequest) (*order.Order, Outcome, error) {
	req.Items = cart.Items()
	if len(req.Items) == 0 {
		return nil, OutcomeSynced, errors.New("client: cart is empty")
	}

	created, err := m.api.CreateOrder(ctx, req)
	if err == nil {
		m.mu.Lock()
		m.orders = append(m.orders, *created)
		m.mu.Unlock()

		if clearErr := cart.Clear(); clearErr != nil {
			log.Error().Err(clearErr).Msg("client: failed to clear cart")
		}
		return created, OutcomeSynced, nil
	}

	if !IsTransportError(err) {
		return nil, OutcomeSynced, err
	}

	now := m.opts.Clock.Now().UTC()
	local := order.Order{
		ID:              fmt.Sprintf("ORD-%d", now.UnixMilli()),
		UserID:          req.UserID,
		UserName:        req.UserName,
		UserPhone:       req.UserPhone,
		Items:           req.Items,
		Total:           order.CalculateTotal(req.Items),
		Date:            now,
		Status:          order.StatusPending,
		PaymentMethod:   req.PaymentMethod,
		DeliveryAddress: req.DeliveryAddress,
	}

	m.mu.Lock()
	m.localOnly = append(m.localOnly, local)
	m.mu.Unlock()

	if clearErr := cart.Clear(); clearErr != nil {
		log.Error().Err(clearErr).Msg("client: failed to clear cart")
	}
	log.Error().Err(err).Str("order_id", local.ID).Msg("client: order saved locally, server unreachable")
	return &local, OutcomeSavedLocally, err
}

func (m *Mirror) AddProduct(ctx context.Context, p catalog.Product) (Outcome, error) {
	m.mu.Lock()
	m.products = append(m.products, p)
	m.mu.Unlock()

	created, err := m.api.AddProduct(ctx, p)
	if err != nil {
		log.Error().Err(err).Str("product_id", p.ID).Msg("client: new product saved locally only")
		return OutcomeSavedLocally, err
	}
	m.replaceProduct(*created)
	return OutcomeSynced, nil
}

func (m *Mirror) RemoveProduct(ctx context.Context, id string) (Outcome, error) {
	m.mu.Lock()
	m.products = slices.DeleteFunc(m.products, func(p catalog.Product) bool { return p.ID == id })
	m.mu.Unlock()

	if err := m.api.DeleteProduct(ctx, id); err != nil {
		log.Error().Err(err).Str("product_id", id).Msg("client: product removal saved locally only")
		return OutcomeSavedLocally, err
	}
	return OutcomeSynced, nil
}

func (m *Mirror) UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (Outcome, error) {
	m.mu.Lock()
	if i := slices.IndexFunc(m.products, func(p catalog.Product) bool { return p.ID == id }); i >= 0 {
		patch.Apply(&m.products[i])
	}
	m.mu.Unlock()

	updated, err := m.api.UpdateProduct(ctx, id, patch)
	if err != nil {
		log.Error().Err(err).Str("product_id", id).Msg("client: product edit saved locally only")
		return OutcomeSavedLocally, err
	}
	m.replaceProduct(*updated)
	return OutcomeSynced, nil
}

func (m *Mirror) RateProduct(ctx context.Context, id, userID string, rating int) (Outcome, error) {
	m.mu.Lock()
	if i := slices.IndexFunc(m.products, func(p catalog.Product) bool { return p.ID == id }); i >= 0 {
		p := m.products[i]
		ratings := slices.Clone(p.Ratings)
		if j := slices.IndexFunc(ratings, func(r catalog.Rating) bool { return r.UserID == userID }); j >= 0 {
			ratings[j].Rating = catalog.Score(rating)
		} else {
			ratings = append(ratings, catalog.Rating{UserID: userID, Rating: catalog.Score(rating)})
		}
		p.Ratings = ratings
		m.products[i] = p
	}
	m.mu.Unlock()

	updated, err := m.api.RateProduct(ctx, id, userID, rating)
	if err != nil {
		log.Error().Err(err).Str("product_id", id).Msg("client: rating saved locally only")
		return OutcomeSavedLocally, err
	}
	m.replaceProduct(*updated)
	return OutcomeSynced, nil
}

func (m *Mirror) AddCategory(ctx context.Context, c catalog.Category) (Outcome, error) {
	if c.ID == "" {
		c.ID = catalog.Slug(c.Name)
	}

	m.mu.Lock()
	m.categories = append(m.categories, c)
	m.mu.Unlock()

	if _, err := m.api.AddCategory(ctx, c); err != nil {
		log.Error().Err(err).Str("category_id", c.ID).Msg("client: new category saved locally only")
		return OutcomeSavedLocally, err
	}
	return OutcomeSynced, nil
}

// RemoveCategory drops the category and moves its products to
// catalog.OtherCategoryID in the local view, as the server does.
func (m *Mirror) RemoveCategory(ctx context.Context, id string) (Outcome, error) {
	m.mu.Lock()
	m.categories = slices.DeleteFunc(m.categories, func(c catalog.Category) bool { return c.ID == id })
	if id != catalog.OtherCategoryID {
		for i := range m.products {
			if m.products[i].Category == id {
				m.products[i].Category = catalog.OtherCategoryID
			}
		}
	}
	m.mu.Unlock()

	if _, err := m.api.DeleteCategory(ctx, id); err != nil {
		log.Error().Err(err).Str("category_id", id).Msg("client: category removal saved locally only")
		return OutcomeSavedLocally, err
	}
	return OutcomeSynced, nil
}

func (m *Mirror) UpdateCategory(ctx context.Context, id string, patch catalog.CategoryPatch) (Outcome, error) {
	m.mu.Lock()
	if i := slices.IndexFunc(m.categories, func(c catalog.Category) bool { return c.ID == id }); i >= 0 {
		patch.Apply(&m.categories[i])
	}
	m.mu.Unlock()

	updated, err := m.api.UpdateCategory(ctx, id, patch)
	if err != nil {
		log.Error().Err(err).Str("category_id", id).Msg("client: category edit saved locally only")
		return OutcomeSavedLocally, err
	}

	m.mu.Lock()
	if i := slices.IndexFunc(m.categories, func(c catalog.Category) bool { return c.ID == id }); i >= 0 {
		m.categories[i] = *updated
	}
	m.mu.Unlock()
	return OutcomeSynced, nil
}

func (m *Mirror) SaveConfig(ctx context.Context, doc settings.Document) (Outcome, error) {
	m.mu.Lock()
	m.config = doc
	m.mu.Unlock()

	if err := m.api.PutConfig(ctx, doc); err != nil {
		log.Error().Err(err).Msg("client: config saved locally only")
		return OutcomeSavedLocally, err
	}
	return OutcomeSynced, nil
}

func (m *Mirror) replaceProduct(p catalog.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := slices.IndexFunc(m.products, func(existing catalog.Product) bool { return existing.ID == p.ID }); i >= 0 {
		m.products[i] = p
	}
}

func updateOrder(orders []order.Order, id string, fn func(*order.Order)) {
	for i := range orders {
		if orders[i].ID == id {
			fn(&orders[i])
			return
		}
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
