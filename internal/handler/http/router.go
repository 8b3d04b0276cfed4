package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/catalog"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/metrics"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/settings"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/user"
)

type RouterDeps struct {
	Orders   order.Service
	Catalog  catalog.Service
	Settings settings.Service
	Users    user.Service
	Notifier Notifier
	Metrics  *metrics.Metrics

	AllowedOrigins []string
	BodyLimit      int64
}

// NewRouter mounts the storefront API under /api and metrics at /metrics.
func NewRouter(deps RouterDeps) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(AccessLog)
	router.Use(middleware.Recoverer)

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	router.Route("/api", func(api chi.Router) {
		api.Use(deps.Metrics.Middleware)
		if deps.BodyLimit > 0 {
			api.Use(middleware.RequestSize(deps.BodyLimit))
		}

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		if deps.Orders != nil {
			NewOrderHandler(deps.Orders).RegisterRoutes(api)
		}
		if deps.Catalog != nil {
			NewCatalogHandler(deps.Catalog).RegisterRoutes(api)
		}
		if deps.Settings != nil {
			NewSettingsHandler(deps.Settings).RegisterRoutes(api)
		}
		if deps.Users != nil {
			NewAuthHandler(deps.Users).RegisterRoutes(api)
		}
		if deps.Notifier != nil {
			NewNotificationHandler(deps.Notifier).RegisterRoutes(api)
		}
	})

	return router
}

// AccessLog writes one zerolog event per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
