package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/catalog"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/config"
	storefrontHttp "github.com/vasiliy-maslov/gamergear-storefront/internal/handler/http"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/metrics"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/notify"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/settings"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/store"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/store/postgres"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogging(cfg.Log)

	log.Info().Str("env", cfg.Env).Msg("Storefront starting...")
	log.Debug().Interface("config_loaded", cfg.HTTP).Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to open storage")
	}
	s := store.New(backend)

	clk := clock.WallClock
	m := metrics.New()

	settingsSvc := settings.NewService(s)
	dispatcher := notify.NewDispatcher(
		notify.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port),
		settingsSvc,
		m,
		notify.Options{StoreName: cfg.SMTP.StoreName, QueueSize: cfg.SMTP.QueueSize},
	)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		dispatcher.Run(dispatchCtx)
		close(dispatchDone)
	}()

	orderSvc := order.NewService(
		order.NewRepository(s, clk),
		metrics.NewPublisher(dispatcher, m),
		clk,
		order.Pricing{DeliveryFee: cfg.Checkout.DeliveryFee, Address: settingsSvc},
	)
	userSvc := user.NewService(s, clk, dispatcher)

	err = userSvc.EnsureAdmin(ctx, user.Registration{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed admin user")
	}

	router := storefrontHttp.NewRouter(storefrontHttp.RouterDeps{
		Orders:         orderSvc,
		Catalog:        catalog.NewService(s),
		Settings:       settingsSvc,
		Users:          userSvc,
		Notifier:       dispatcher,
		Metrics:        m,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		BodyLimit:      cfg.HTTP.BodyLimit,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTP.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}

	stopDispatch()
	<-dispatchDone

	if err := s.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close storage")
	}
	log.Info().Msg("Storefront stopped")
}

func setupLogging(cfg config.Log) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.JSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "storefront").Logger()
}

func openBackend(ctx context.Context, cfg config.Storage) (store.Backend, error) {
	if cfg.Driver == config.DriverPostgres {
		backend, err := postgres.New(ctx, postgres.Config{
			URL:      cfg.PostgresURL,
			MaxConns: cfg.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		return backend, nil
	}

	backend, err := store.OpenFileBackend(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return backend, nil
}
