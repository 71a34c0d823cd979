// Package app wires configuration into the enrichment components shared by
// the API server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luifiio/cougar/internal/cache"
	"github.com/luifiio/cougar/internal/catalog"
	"github.com/luifiio/cougar/internal/claims"
	"github.com/luifiio/cougar/internal/config"
	"github.com/luifiio/cougar/internal/enrich"
	"github.com/luifiio/cougar/internal/ingest"
	"github.com/luifiio/cougar/internal/observability"
	"github.com/luifiio/cougar/internal/scoring"
	"github.com/luifiio/cougar/internal/wiki"
)

// App holds the constructed components.
type App struct {
	Config   *config.Config
	Logger   *observability.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Store    cache.Client
	Cache    *enrich.Cache
	Source   *wiki.Client
	Claims   *claims.Extractor
	Scorer   *scoring.Scorer
	Resolver *enrich.Resolver
	Catalog  *catalog.Store
}

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	logger *observability.Logger
	store  cache.Client
	source *wiki.Client
}

// WithLogger replaces the logger built from config.
func WithLogger(l *observability.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// WithStore replaces the configured cache backend.
func WithStore(c cache.Client) Option {
	return func(o *buildOptions) { o.store = c }
}

// WithSource replaces the knowledge-source client.
func WithSource(c *wiki.Client) Option {
	return func(o *buildOptions) { o.source = c }
}

// Build creates every component from cfg. The caller must Close the App.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	logger := bo.logger
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{
			Level:  cfg.Observability.LogLevel,
			Format: cfg.Observability.LogFormat,
		})
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	} else {
		metrics = observability.NewMetrics(nil)
	}

	store := bo.store
	if store == nil {
		var err error
		store, err = cache.Open(ctx, cache.Options{
			Driver:     cfg.Cache.Driver,
			Path:       cfg.CacheDSN(),
			DSN:        cfg.CacheDSN(),
			Table:      cfg.Cache.SQL.Table,
			MaxEntries: cfg.Cache.MaxEntries,
			MaxConns:   cfg.Cache.SQL.MaxOpenConns,
			Redis: cache.RedisConfig{
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
				PoolSize: cfg.Cache.Redis.PoolSize,
				Prefix:   cfg.Cache.Redis.Prefix,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
	}

	source := bo.source
	if source == nil {
		source = wiki.NewClient(wiki.Config{
			WikipediaAPI:  cfg.Source.WikipediaAPI,
			WikipediaREST: cfg.Source.WikipediaREST,
			WikipediaPage: cfg.Source.WikipediaPage,
			WikidataAPI:   cfg.Source.WikidataAPI,
			UserAgent:     cfg.Source.UserAgent,
			Timeout:       cfg.Source.Timeout,
			RatePerSecond: cfg.Source.RatePerSecond,
			Burst:         cfg.Source.Burst,
		}, logger, metrics)
	}

	ec := enrich.NewCache(store, cfg.Cache.TTL, enrich.WithCacheObservability(logger, metrics))
	extractor := claims.NewExtractor(source, claims.Options{MaxLinked: cfg.Source.MaxLinkedEntities}, logger, metrics)
	scorer := scoring.NewScorer(source, extractor,
		scoring.WithWeights(cfg.Scoring),
		scoring.WithTitleCache(ec),
		scoring.WithObservability(logger, metrics),
	)

	ropts := enrich.DefaultOptions()
	ropts.SearchLimit = cfg.Resolver.SearchLimit
	ropts.AttachClaims = cfg.Resolver.AttachClaims
	ropts.Properties = cfg.Properties
	resolver := enrich.NewResolver(source, extractor, scorer, ec, ropts, logger, metrics)

	logger.Debug().
		Str("cache_driver", cfg.Cache.Driver).
		Dur("cache_ttl", ec.TTL()).
		Str("data_file", cfg.Resolve(cfg.Paths.DataFile)).
		Msg("components wired")

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics,
		Store:    store,
		Cache:    ec,
		Source:   source,
		Claims:   extractor,
		Scorer:   scorer,
		Resolver: resolver,
		Catalog:  catalog.NewStore(cfg.Resolve(cfg.Paths.DataFile)),
	}, nil
}

// Pipeline returns a batch ingestion pipeline using the app's resolver.
func (a *App) Pipeline(mappings ingest.Mappings) *ingest.Pipeline {
	return ingest.NewPipeline(a.Logger, ingest.DefaultPipelineConfig(), a.Source, a.Resolver, mappings)
}

// Close releases the cache backend.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
