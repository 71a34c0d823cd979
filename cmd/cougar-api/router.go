package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luifiio/cougar/cmd/cougar-api/handlers"
	"github.com/luifiio/cougar/cmd/cougar-api/middleware"
	"github.com/luifiio/cougar/internal/observability"
)

// RouterConfig holds what the router needs besides the handlers' collaborators.
type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	StaticDir      string
	MediaDir       string
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg RouterConfig, c handlers.Catalog, resolver handlers.Resolver) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", handlers.Health)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	cars := handlers.NewCarsHandler(logger, c, resolver)
	r.Get("/cars", cars.Search)
	r.Get("/data/cars.json", cars.DataFile)

	r.Get("/index.html", handlers.File(cfg.StaticDir, "index.html", "text/html; charset=utf-8"))
	r.Get("/results.html", handlers.File(cfg.StaticDir, "results.html", "text/html; charset=utf-8"))
	r.Get("/favicon.ico", handlers.File(cfg.StaticDir, "favicon.ico", "image/x-icon"))
	r.Handle("/static/*", handlers.Dir("/static/", cfg.StaticDir))
	r.Handle("/api/media/*", handlers.Dir("/api/media/", cfg.MediaDir))

	return r
}
