package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/luifiio/cougar/internal/catalog"
	"github.com/luifiio/cougar/internal/claims"
	"github.com/luifiio/cougar/internal/observability"
	"github.com/luifiio/cougar/internal/scoring"
	"github.com/luifiio/cougar/internal/specs"
	"github.com/luifiio/cougar/internal/tokens"
	"github.com/luifiio/cougar/internal/wiki"
)

// DefaultSearchLimit is how many search candidates are scored.
const DefaultSearchLimit = 8

// Outcome is how a resolution ended.
type Outcome string

const (
	OutcomeQueryCache Outcome = "query_cache"
	OutcomeTitleCache Outcome = "title_cache"
	OutcomeResolved   Outcome = "resolved"
	OutcomeNoMatch    Outcome = "no_match"
	OutcomeNoSummary  Outcome = "no_summary"
)

// Source is the knowledge-source surface the resolver calls.
type Source interface {
	SearchTitles(ctx context.Context, query string, limit int) ([]string, error)
	FetchSummary(ctx context.Context, title string) (*wiki.Summary, error)
	FetchInfoboxSpecs(ctx context.Context, title string) (*specs.Bundle, error)
}

// Options tunes a Resolver.
type Options struct {
	SearchLimit int
	// AttachClaims adds the structured-claims block to items as _wikidata.
	AttachClaims bool
	Properties   PropertyMapping
}

// DefaultOptions returns the standard resolver settings.
func DefaultOptions() Options {
	return Options{
		SearchLimit:  DefaultSearchLimit,
		AttachClaims: true,
		Properties:   DefaultPropertyMapping(),
	}
}

// Result is the outcome of one resolution. Item is nil unless a page was
// matched.
type Result struct {
	Query     string
	Title     string
	Outcome   Outcome
	Item      *catalog.Item
	Selection *scoring.Selection
}

// Found reports whether an item was produced.
func (r *Result) Found() bool { return r != nil && r.Item != nil }

// Resolver runs the full query to item flow.
type Resolver struct {
	src     Source
	claims  scoring.ClaimsSource
	scorer  *scoring.Scorer
	cache   *Cache
	opts    Options
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewResolver wires a resolver. The scorer should share cache as its title
// cache so cached candidates skip network calls.
func NewResolver(src Source, cs scoring.ClaimsSource, scorer *scoring.Scorer, c *Cache, opts Options, logger *observability.Logger, metrics *observability.Metrics) *Resolver {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.Properties.Displacement == nil && opts.Properties.Power == nil && opts.Properties.Mass == nil {
		opts.Properties = DefaultPropertyMapping()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Resolver{
		src:     src,
		claims:  cs,
		scorer:  scorer,
		cache:   c,
		opts:    opts,
		logger:  logger.WithComponent("resolver"),
		metrics: metrics,
	}
}

// Cache returns the resolver's enrichment cache.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve turns a free-text query into an enriched item. Source failures
// degrade to partial or empty results; the only error is ctx's.
func (r *Resolver) Resolve(ctx context.Context, query string) (*Result, error) {
	start := time.Now()
	res := &Result{Query: query}
	defer r.observe(res, start)

	logger := r.logger.WithContext(ctx)
	if tokens.Normalize(query) == "" {
		res.Outcome = OutcomeNoMatch
		return res, nil
	}

	if item, ok := r.cache.GetQuery(ctx, query); ok {
		res.Outcome = OutcomeQueryCache
		res.Item = item
		res.Title = titleOf(item)
		return res, nil
	}

	candidates, err := r.src.SearchTitles(ctx, query, r.opts.SearchLimit)
	if err != nil {
		r.degrade("search", err)
	}

	var title string
	sel, ok := r.scorer.ScoreAndSelect(ctx, query, candidates)
	res.Selection = sel
	if ok {
		title = sel.Title
	} else if len(candidates) > 0 && scoring.AcceptTopHit(query, candidates[0]) {
		title = candidates[0]
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if title == "" {
		logger.Debug().Str("query", query).Int("candidates", len(candidates)).Msg("no candidate matched")
		res.Outcome = OutcomeNoMatch
		return res, nil
	}
	res.Title = title

	if item, ok := r.cache.GetTitle(ctx, title); ok {
		r.store("query", func() error { return r.cache.SetQuery(ctx, query, item) })
		res.Outcome = OutcomeTitleCache
		res.Item = item
		return res, nil
	}

	item, ok := r.build(ctx, title, sel, nil)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if !ok {
		res.Outcome = OutcomeNoSummary
		return res, nil
	}

	r.store("title", func() error { return r.cache.SetTitle(ctx, title, item) })
	r.store("query", func() error { return r.cache.SetQuery(ctx, query, item) })

	logger.Info().Str("query", query).Str("title", title).Int("specs", item.Specs.Len()).Msg("resolved query")
	res.Outcome = OutcomeResolved
	res.Item = item
	return res, nil
}

// ResolveTitle builds the item for a known page title, using and filling the
// title cache only.
func (r *Resolver) ResolveTitle(ctx context.Context, title string) (*Result, error) {
	return r.ResolveWithSummary(ctx, title, nil)
}

// ResolveWithSummary is ResolveTitle for a caller that already fetched the
// page summary. A nil summary is fetched.
func (r *Resolver) ResolveWithSummary(ctx context.Context, title string, s *wiki.Summary) (*Result, error) {
	start := time.Now()
	res := &Result{Query: title, Title: title}
	defer r.observe(res, start)

	if strings.TrimSpace(title) == "" {
		res.Outcome = OutcomeNoMatch
		return res, nil
	}
	if item, ok := r.cache.GetTitle(ctx, title); ok {
		res.Outcome = OutcomeTitleCache
		res.Item = item
		return res, nil
	}

	item, ok := r.build(ctx, title, nil, s)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if !ok {
		res.Outcome = OutcomeNoSummary
		return res, nil
	}
	r.store("title", func() error { return r.cache.SetTitle(ctx, title, item) })
	res.Outcome = OutcomeResolved
	res.Item = item
	return res, nil
}

// build fetches and assembles the item for title, reusing whatever sel
// already fetched for it. It fails only when the page has no summary.
func (r *Resolver) build(ctx context.Context, title string, sel *scoring.Selection, summary *wiki.Summary) (*catalog.Item, bool) {
	if summary == nil {
		s, err := r.src.FetchSummary(ctx, title)
		if err != nil {
			r.degrade("summary", err)
			return nil, false
		}
		summary = s
	}

	reuse := sel != nil && sel.Title == title && !sel.Cached

	bundle := specs.NewBundle()
	if reuse && sel.Specs != nil {
		bundle = sel.Specs
	} else if b, err := r.src.FetchInfoboxSpecs(ctx, title); err != nil {
		r.degrade("page", err)
	} else if b != nil {
		bundle = b
	}
	specs.Normalize(bundle)

	var block *claims.Block
	if reuse && (sel.Claims != nil || sel.ClaimsErr != nil) {
		block = sel.Claims
	} else if b, err := r.claims.ForTitle(ctx, title); err != nil {
		r.degrade("claims", err)
	} else {
		block = b
	}
	if block != nil {
		MergeClaims(bundle, block.Quantities, r.opts.Properties)
	}

	return r.assemble(title, summary, bundle, block), true
}

func (r *Resolver) assemble(title string, s *wiki.Summary, bundle *specs.Bundle, block *claims.Block) *catalog.Item {
	name := s.Title
	if name == "" {
		name = title
	}
	item := &catalog.Item{
		ID:          "wiki-" + strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Name:        name,
		Slug:        strings.ReplaceAll(strings.ToLower(name), " ", "-"),
		Specs:       bundle,
		Description: s.Extract,
		Wiki: &catalog.WikiSummary{
			Title:       s.Title,
			Description: s.Description,
			Extract:     s.Extract,
			WikiURL:     s.PageURL(),
			Thumbnail:   s.ThumbnailURL(),
		},
	}
	if r.opts.AttachClaims && block != nil {
		item.Wikidata = block
	}
	return item
}

func (r *Resolver) store(ns string, set func() error) {
	if err := set(); err != nil {
		r.logger.Warn().Str("namespace", ns).Err(err).Msg("cache write failed")
	}
}

func (r *Resolver) degrade(op string, err error) {
	wiki.Degrade(r.logger, r.metrics, op, err)
}

func (r *Resolver) observe(res *Result, start time.Time) {
	if r.metrics == nil || res.Outcome == "" {
		return
	}
	r.metrics.Resolutions.WithLabelValues(string(res.Outcome)).Inc()
	r.metrics.ResolveLatency.Observe(time.Since(start).Seconds())
}

func titleOf(item *catalog.Item) string {
	if item.Wiki != nil && item.Wiki.Title != "" {
		return item.Wiki.Title
	}
	return item.Name
}
