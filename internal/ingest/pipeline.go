// Package ingest enriches an entire car catalog with Wikipedia summaries and
// specs.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luifiio/cougar/internal/catalog"
	"github.com/luifiio/cougar/internal/enrich"
	"github.com/luifiio/cougar/internal/observability"
	"github.com/luifiio/cougar/internal/specs"
	"github.com/luifiio/cougar/internal/wiki"
)

// RunStatus is the state of an ingestion run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
)

// ItemOutcome is how a single item fared.
type ItemOutcome string

const (
	ItemEnriched  ItemOutcome = "enriched"
	ItemNoWiki    ItemOutcome = "no_wiki"
	ItemNoName    ItemOutcome = "no_name"
	ItemCancelled ItemOutcome = "cancelled"
)

// Source is the knowledge-source surface ingestion calls directly.
type Source interface {
	SearchTitles(ctx context.Context, query string, limit int) ([]string, error)
	FetchSummary(ctx context.Context, title string) (*wiki.Summary, error)
}

// TitleResolver builds enriched items for chosen titles.
type TitleResolver interface {
	ResolveWithSummary(ctx context.Context, title string, s *wiki.Summary) (*enrich.Result, error)
}

// PipelineConfig holds pipeline configuration.
type PipelineConfig struct {
	// SearchLimit caps candidates per query.
	SearchLimit int
	// TokenSearchLimit caps candidates in the per-token last resort.
	TokenSearchLimit int
	// LooseMatch accepts the first summary when no candidate looks like a car,
	// and enables the per-token last resort.
	LooseMatch bool
}

// DefaultPipelineConfig returns the settings the catalog was built with.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SearchLimit:      6,
		TokenSearchLimit: 3,
		LooseMatch:       true,
	}
}

// ProgressFunc is called after each item.
type ProgressFunc func(done, total int, name string, outcome ItemOutcome)

// RunResult summarizes an ingestion run.
type RunResult struct {
	RunID       uuid.UUID
	Status      RunStatus
	Items       []catalog.Item
	Total       int
	Enriched    int
	Mapped      int
	Skipped     int
	Errors      []string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// Pipeline enriches catalog items one at a time.
type Pipeline struct {
	logger   *observability.Logger
	src      Source
	resolver TitleResolver
	mappings Mappings
	config   PipelineConfig
}

// NewPipeline creates a pipeline. resolver may be nil, in which case only
// summaries are attached.
func NewPipeline(logger *observability.Logger, cfg PipelineConfig, src Source, resolver TitleResolver, mappings Mappings) *Pipeline {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultPipelineConfig().SearchLimit
	}
	if cfg.TokenSearchLimit <= 0 {
		cfg.TokenSearchLimit = DefaultPipelineConfig().TokenSearchLimit
	}
	if mappings == nil {
		mappings = Mappings{}
	}
	return &Pipeline{
		logger:   logger.WithComponent("ingest"),
		src:      src,
		resolver: resolver,
		mappings: mappings,
		config:   cfg,
	}
}

// Run enriches every item, returning the full list in input order. Items
// that could not be matched are returned unchanged. Cancellation stops the
// run and passes the remaining items through untouched.
func (p *Pipeline) Run(ctx context.Context, items []catalog.Item, progress ProgressFunc) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.New(),
		Status:    RunStatusRunning,
		Total:     len(items),
		Items:     make([]catalog.Item, 0, len(items)),
		StartedAt: time.Now(),
	}

	p.logger.Info().
		Str("run_id", result.RunID.String()).
		Int("items", len(items)).
		Msg("Starting ingestion run")

	for i := range items {
		if ctx.Err() != nil {
			result.Items = append(result.Items, items[i:]...)
			result.Status = RunStatusCancelled
			break
		}

		item := items[i]
		outcome, mapped := p.EnrichItem(ctx, &item)
		result.Items = append(result.Items, item)

		switch outcome {
		case ItemEnriched:
			result.Enriched++
		case ItemNoName:
			result.Skipped++
		case ItemCancelled:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: cancelled", ItemName(&item)))
		}
		if mapped {
			result.Mapped++
		}
		if progress != nil {
			progress(i+1, len(items), ItemName(&item), outcome)
		}
	}

	if result.Status == RunStatusRunning {
		result.Status = RunStatusCompleted
	}
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	p.logger.Info().
		Str("run_id", result.RunID.String()).
		Str("status", string(result.Status)).
		Int("enriched", result.Enriched).
		Int("mapped", result.Mapped).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("Ingestion run finished")

	return result, ctx.Err()
}

// EnrichItem finds the item's page and merges its summary and specs into
// item. It reports whether a manual mapping was used.
func (p *Pipeline) EnrichItem(ctx context.Context, item *catalog.Item) (ItemOutcome, bool) {
	name := ItemName(item)
	if name == "" {
		return ItemNoName, false
	}
	logger := p.logger.WithContext(ctx)

	mappedTitle, mapped := p.mappings.Lookup(item)
	var candidates []string
	if mapped {
		logger.Debug().Str("item", name).Str("title", mappedTitle).Msg("mapping found")
		candidates = []string{mappedTitle}
	} else {
		candidates = p.candidates(ctx, item, name)
	}

	title, summary := p.choose(ctx, candidates, item.Manufacturer)
	if summary == nil && p.config.LooseMatch {
		title, summary = p.tokenFallback(ctx, name)
	}
	if ctx.Err() != nil {
		return ItemCancelled, mapped
	}
	if summary == nil {
		logger.Debug().Str("item", name).Strs("candidates", candidates).Msg("no wiki page")
		return ItemNoWiki, mapped
	}

	p.merge(ctx, item, title, summary)
	item.StripHeavyFields()
	logger.Debug().Str("item", name).Str("title", title).Msg("item enriched")
	return ItemEnriched, mapped
}

// candidates searches "manufacturer name year", then name alone, then slug.
func (p *Pipeline) candidates(ctx context.Context, item *catalog.Item, name string) []string {
	q := Query(item)
	queries := []string{q}
	if name != q {
		queries = append(queries, name)
	}
	if item.Slug != "" {
		queries = append(queries, item.Slug)
	}
	for _, query := range queries {
		hits := p.search(ctx, query, p.config.SearchLimit)
		if len(hits) > 0 {
			return hits
		}
	}
	return nil
}

// choose returns the first candidate whose summary looks like a car, or with
// loose matching the first candidate that has a summary at all.
func (p *Pipeline) choose(ctx context.Context, candidates []string, manufacturer string) (string, *wiki.Summary) {
	var (
		fallbackTitle string
		fallback      *wiki.Summary
	)
	tried := make(map[string]struct{}, len(candidates))
	for _, title := range candidates {
		if ctx.Err() != nil {
			break
		}
		if _, ok := tried[title]; ok {
			continue
		}
		tried[title] = struct{}{}

		s, err := p.src.FetchSummary(ctx, title)
		if err != nil {
			p.degrade("summary", err)
			continue
		}
		if catalog.LikelyCar(s.Description, s.Extract, manufacturer) {
			return title, s
		}
		if p.config.LooseMatch && fallback == nil {
			fallbackTitle, fallback = title, s
		}
	}
	return fallbackTitle, fallback
}

// tokenFallback tries the top hit of each word of the name in turn.
func (p *Pipeline) tokenFallback(ctx context.Context, name string) (string, *wiki.Summary) {
	for _, tok := range strings.Fields(name) {
		if ctx.Err() != nil {
			break
		}
		hits := p.search(ctx, tok, p.config.TokenSearchLimit)
		if len(hits) == 0 {
			continue
		}
		s, err := p.src.FetchSummary(ctx, hits[0])
		if err != nil {
			p.degrade("summary", err)
			continue
		}
		return hits[0], s
	}
	return "", nil
}

// merge attaches the summary and fills specs the catalog does not already
// carry.
func (p *Pipeline) merge(ctx context.Context, item *catalog.Item, title string, s *wiki.Summary) {
	item.Wiki = &catalog.WikiSummary{
		Title:       s.Title,
		Description: s.Description,
		Extract:     s.Extract,
		WikiURL:     s.PageURL(),
		Thumbnail:   s.ThumbnailURL(),
	}
	if p.resolver == nil {
		return
	}

	res, err := p.resolver.ResolveWithSummary(ctx, title, s)
	if err != nil || !res.Found() || res.Item.Specs == nil {
		return
	}
	if item.Specs == nil {
		item.Specs = res.Item.Specs
		return
	}
	fillMissing(item, res.Item)
}

func fillMissing(dst, src *catalog.Item) {
	for k, v := range src.Specs.Raw {
		if _, ok := dst.Specs.Text(k); !ok {
			dst.Specs.SetText(k, v)
		}
	}
	for k, v := range src.Specs.Values {
		if _, ok := dst.Specs.Value(k); !ok {
			dst.Specs.SetValue(k, v)
		}
	}
	for k, v := range src.Specs.Unresolved {
		if _, ok := dst.Specs.Unresolved[k]; ok {
			continue
		}
		if dst.Specs.Unresolved == nil {
			dst.Specs.Unresolved = make(map[string]specs.Quantity, len(src.Specs.Unresolved))
		}
		dst.Specs.Unresolved[k] = v
	}
}

func (p *Pipeline) search(ctx context.Context, q string, limit int) []string {
	hits, err := p.src.SearchTitles(ctx, q, limit)
	if err != nil {
		p.degrade("search", err)
		return nil
	}
	return hits
}

func (p *Pipeline) degrade(op string, err error) {
	wiki.Degrade(p.logger, nil, op, err)
}

// Query is the search text for an item: manufacturer, name and year.
func Query(item *catalog.Item) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{item.Manufacturer, ItemName(item), string(item.Year)} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
