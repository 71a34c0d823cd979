// Package scoring ranks Wikipedia page candidates for a free-text car query.
package scoring

import (
	"context"
	"strings"

	"github.com/luifiio/cougar/internal/claims"
	"github.com/luifiio/cougar/internal/observability"
	"github.com/luifiio/cougar/internal/specs"
	"github.com/luifiio/cougar/internal/tokens"
	"github.com/luifiio/cougar/internal/wiki"
)

// Weights are the hand-tuned coefficients of the candidate score.
type Weights struct {
	// Fresh candidates.
	InfoboxRichness  int `yaml:"infobox_richness"`
	WikidataRichness int `yaml:"wikidata_richness"`
	Token            int `yaml:"token"`
	Model            int `yaml:"model"`

	// Candidates already in the title cache.
	CachedRichness int `yaml:"cached_richness"`
	CachedToken    int `yaml:"cached_token"`
	CachedModel    int `yaml:"cached_model"`

	NonVehiclePenalty int `yaml:"non_vehicle_penalty"`
	ModelBonus        int `yaml:"model_bonus"`
	ModelMatchBonus   int `yaml:"model_match_bonus"`
}

// DefaultWeights returns the weights the ranking was tuned with.
func DefaultWeights() Weights {
	return Weights{
		InfoboxRichness:   8,
		WikidataRichness:  12,
		Token:             4,
		Model:             5,
		CachedRichness:    20,
		CachedToken:       5,
		CachedModel:       5,
		NonVehiclePenalty: 50,
		ModelBonus:        1,
		ModelMatchBonus:   6,
	}
}

// DefaultPenaltyKeywords flag entity descriptions that are not vehicles.
var DefaultPenaltyKeywords = []string{"company", "manufacturer", "business", "organization", "software", "film"}

// InfoboxSource fetches raw infobox specs for a title.
type InfoboxSource interface {
	FetchInfoboxSpecs(ctx context.Context, title string) (*specs.Bundle, error)
}

// ClaimsSource gathers structured claims for a title.
type ClaimsSource interface {
	ForTitle(ctx context.Context, title string) (*claims.Block, error)
}

// TitleCache reports the spec bundle of a title that is already cached and
// still fresh.
type TitleCache interface {
	CachedSpecs(ctx context.Context, title string) (*specs.Bundle, bool)
}

// Candidate is the scoring breakdown for one title.
type Candidate struct {
	Title            string `json:"title"`
	Score            int    `json:"score"`
	TokenScore       int    `json:"token_score"`
	ModelBonus       int    `json:"model_bonus"`
	Cached           bool   `json:"cached"`
	InfoboxRichness  int    `json:"richness"`
	WikidataRichness int    `json:"wd_richness"`
	Penalty          int    `json:"penalty"`
	Skipped          bool   `json:"skipped,omitempty"`

	specs  *specs.Bundle
	claims *claims.Block
	// claimsErr is kept so the winner's claims are not fetched a second time
	// just to fail again.
	claimsErr error
}

// Selection is the winning candidate together with whatever the scorer
// already fetched for it. Specs and Claims are nil for cached winners.
type Selection struct {
	Title      string
	Score      int
	Cached     bool
	Specs      *specs.Bundle
	Claims     *claims.Block
	ClaimsErr  error
	Candidates []Candidate
}

// Scorer ranks candidates.
type Scorer struct {
	infobox InfoboxSource
	claims  ClaimsSource
	cache   TitleCache
	weights Weights
	penalty []string
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights overrides DefaultWeights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithPenaltyKeywords overrides DefaultPenaltyKeywords.
func WithPenaltyKeywords(kw []string) Option {
	return func(s *Scorer) { s.penalty = kw }
}

// WithTitleCache lets cached candidates short-circuit network calls.
func WithTitleCache(c TitleCache) Option {
	return func(s *Scorer) { s.cache = c }
}

// WithObservability sets the logger and metrics.
func WithObservability(logger *observability.Logger, metrics *observability.Metrics) Option {
	return func(s *Scorer) {
		if logger != nil {
			s.logger = logger.WithComponent("scoring")
		}
		s.metrics = metrics
	}
}

// NewScorer creates a scorer.
func NewScorer(infobox InfoboxSource, cs ClaimsSource, opts ...Option) *Scorer {
	s := &Scorer{
		infobox: infobox,
		claims:  cs,
		weights: DefaultWeights(),
		penalty: DefaultPenaltyKeywords,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreAndSelect scores every candidate and returns the highest. Candidates
// sharing no token with the query are never selected. Ties keep the earlier
// candidate, so search rank breaks them.
func (s *Scorer) ScoreAndSelect(ctx context.Context, query string, candidates []string) (*Selection, bool) {
	qset := tokens.NewSet(query)
	scored := make([]Candidate, 0, len(candidates))
	best := -1

	for _, title := range candidates {
		if ctx.Err() != nil {
			break
		}
		c := s.score(ctx, qset, title)
		scored = append(scored, c)
		if c.Skipped {
			continue
		}
		if best < 0 || c.Score > scored[best].Score {
			best = len(scored) - 1
		}
	}

	if best < 0 {
		s.logger.Debug().Str("query", query).Int("candidates", len(candidates)).Msg("no candidate overlaps the query")
		return &Selection{Candidates: scored}, false
	}

	w := scored[best]
	return &Selection{
		Title:      w.Title,
		Score:      w.Score,
		Cached:     w.Cached,
		Specs:      w.specs,
		Claims:     w.claims,
		ClaimsErr:  w.claimsErr,
		Candidates: scored,
	}, true
}

// Score computes the breakdown for a single candidate.
func (s *Scorer) Score(ctx context.Context, query, title string) Candidate {
	return s.score(ctx, tokens.NewSet(query), title)
}

func (s *Scorer) score(ctx context.Context, qset tokens.Set, title string) Candidate {
	cset := tokens.NewSet(title)
	c := Candidate{
		Title:      title,
		TokenScore: tokens.Overlap(qset, cset),
		ModelBonus: s.modelBonus(qset, cset),
	}
	if c.TokenScore == 0 {
		c.Skipped = true
		return c
	}

	w := s.weights
	if s.cache != nil {
		if cached, ok := s.cache.CachedSpecs(ctx, title); ok {
			c.Cached = true
			c.InfoboxRichness = cached.Len()
			c.Score = c.InfoboxRichness*w.CachedRichness + c.TokenScore*w.CachedToken + c.ModelBonus*w.CachedModel
			s.logScore(c)
			return c
		}
	}

	box, err := s.infobox.FetchInfoboxSpecs(ctx, title)
	if err != nil {
		wiki.Degrade(s.logger, s.metrics, "page", err)
		box = specs.NewBundle()
	}
	c.specs = box
	c.InfoboxRichness = box.Len()

	block, err := s.claims.ForTitle(ctx, title)
	if err != nil {
		wiki.Degrade(s.logger, s.metrics, "claims", err)
		c.claimsErr = err
	} else {
		c.claims = block
		c.WikidataRichness = block.Richness()
		if s.nonVehicle(block.Description) {
			c.Penalty = w.NonVehiclePenalty
		}
	}

	c.Score = c.InfoboxRichness*w.InfoboxRichness +
		c.WikidataRichness*w.WikidataRichness +
		c.TokenScore*w.Token +
		c.ModelBonus*w.Model -
		c.Penalty
	s.logScore(c)
	return c
}

// modelBonus is the small bonus when the candidate carries any model-number
// token, raised when a model-number token of the query appears verbatim.
func (s *Scorer) modelBonus(qset, cset tokens.Set) int {
	for _, t := range qset.DigitTokens() {
		if cset.Has(t) {
			return s.weights.ModelMatchBonus
		}
	}
	if len(cset.DigitTokens()) > 0 {
		return s.weights.ModelBonus
	}
	return 0
}

func (s *Scorer) nonVehicle(description string) bool {
	if description == "" {
		return false
	}
	d := strings.ToLower(description)
	for _, kw := range s.penalty {
		if strings.Contains(d, kw) {
			return true
		}
	}
	return false
}

func (s *Scorer) logScore(c Candidate) {
	s.logger.Debug().
		Str("candidate", c.Title).
		Int("token", c.TokenScore).
		Int("model_bonus", c.ModelBonus).
		Bool("cached", c.Cached).
		Int("richness", c.InfoboxRichness).
		Int("wd_richness", c.WikidataRichness).
		Int("penalty", c.Penalty).
		Int("score", c.Score).
		Msg("scored candidate")
}

// AcceptTopHit reports whether a lone search hit shares a token with the
// query. No result is better than an unrelated one.
func AcceptTopHit(query, title string) bool {
	if title == "" {
		return false
	}
	return tokens.Overlap(tokens.NewSet(query), tokens.NewSet(title)) > 0
}
