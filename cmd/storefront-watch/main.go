// Command storefront-watch mirrors a running storefront and logs order
// activity as it appears: new orders, status changes and removals.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/client"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/config"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Log.JSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "storefront-watch").Logger()

	cart, err := client.OpenCart(cfg.Client.CartPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cart")
	}
	if cart.Len() > 0 {
		log.Info().Int("lines", cart.Len()).Float64("total", cart.Total()).Msg("Cart restored")
	}

	w := &watcher{seen: map[string]order.Status{}}
	mirror := client.NewMirror(
		client.NewAPI(cfg.Client.BaseURL, cfg.Client.RequestTimeout),
		client.Options{
			PollInterval: cfg.Client.PollInterval,
			UserID:       cfg.Client.UserID,
			OnOrders:     w.observe,
			OnReverted: func(r client.Revert) {
				log.Warn().
					Str("order_id", r.OrderID).
					Str("local", r.Local.String()).
					Str("server", r.Server.String()).
					Msg("Status change was not saved")
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("base_url", cfg.Client.BaseURL).Dur("poll_interval", cfg.Client.PollInterval).Msg("Watching storefront")
	if err := mirror.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Mirror stopped")
	}
	log.Info().Msg("Watcher stopped")
}

// watcher diffs successive order views. Callbacks come from the single
// Run goroutine.
type watcher struct {
	seen   map[string]order.Status
	primed bool
}

func (w *watcher) observe(orders []order.Order) {
	current := make(map[string]order.Status, len(orders))
	for _, o := range orders {
		current[o.ID] = o.Status

		prev, known := w.seen[o.ID]
		switch {
		case !w.primed:
		case !known:
			log.Info().
				Str("order_id", o.ID).
				Str("user_id", o.UserID).
				Float64("total", o.Total).
				Str("payment", o.PaymentMethod.String()).
				Msg("New order")
		case prev != o.Status:
			log.Info().
				Str("order_id", o.ID).
				Str("from", prev.String()).
				Str("to", o.Status.String()).
				Msg("Order status changed")
		}
	}

	if w.primed {
		for id := range w.seen {
			if _, ok := current[id]; !ok {
				log.Info().Str("order_id", id).Msg("Order removed")
			}
		}
	} else {
		log.Info().Int("orders", len(orders)).Msg("Initial orders loaded")
	}

	w.seen = current
	w.primed = true
}
