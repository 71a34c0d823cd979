package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luifiio/cougar/internal/claims"
	"github.com/luifiio/cougar/internal/specs"
	"github.com/luifiio/cougar/internal/wiki"
)

type fakeInfobox struct {
	bundles map[string]*specs.Bundle
	calls   map[string]int
}

func (f *fakeInfobox) FetchInfoboxSpecs(_ context.Context, title string) (*specs.Bundle, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[title]++
	if b, ok := f.bundles[title]; ok {
		return b, nil
	}
	return nil, &wiki.SourceError{Op: "page", Kind: wiki.KindTransport, Err: errors.New("timeout")}
}

type fakeClaims struct {
	blocks map[string]*claims.Block
	calls  map[string]int
}

func (f *fakeClaims) ForTitle(_ context.Context, title string) (*claims.Block, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[title]++
	if b, ok := f.blocks[title]; ok {
		return b, nil
	}
	return nil, wiki.ErrNotFound
}

type fakeTitleCache map[string]*specs.Bundle

func (f fakeTitleCache) CachedSpecs(_ context.Context, title string) (*specs.Bundle, bool) {
	b, ok := f[title]
	return b, ok
}

func bundleWith(n int) *specs.Bundle {
	b := specs.NewBundle()
	for i, name := range specs.CanonicalNames() {
		if i == n {
			break
		}
		b.SetText(name, "x")
	}
	return b
}

func blockWithQuantities(n int, description string) *claims.Block {
	q := claims.Quantities{}
	for i := 0; i < n; i++ {
		q[string(rune('A'+i))] = []specs.Quantity{{Amount: 1}}
	}
	return &claims.Block{EntityID: "Q1", Description: description, Quantities: q, Linked: map[string]claims.Linked{}}
}

func TestModelNumberMatchWins(t *testing.T) {
	box := &fakeInfobox{bundles: map[string]*specs.Bundle{
		"Nissan Skyline R34": bundleWith(3),
		"Nissan Skyline R33": bundleWith(3),
	}}
	cl := &fakeClaims{}
	s := NewScorer(box, cl)
	ctx := context.Background()

	r34 := s.Score(ctx, "Nissan Skyline R34", "Nissan Skyline R34")
	r33 := s.Score(ctx, "Nissan Skyline R34", "Nissan Skyline R33")
	assert.Equal(t, 6, r34.ModelBonus)
	assert.Equal(t, 1, r33.ModelBonus)
	assert.Greater(t, r34.Score, r33.Score)

	// Listed second so rank order cannot decide it.
	sel, ok := s.ScoreAndSelect(ctx, "Nissan Skyline R34", []string{"Nissan Skyline R33", "Nissan Skyline R34"})
	require.True(t, ok)
	assert.Equal(t, "Nissan Skyline R34", sel.Title)
	assert.Len(t, sel.Candidates, 2)
}

func TestZeroOverlapNeverSelected(t *testing.T) {
	box := &fakeInfobox{bundles: map[string]*specs.Bundle{
		"Toyota Supra":   bundleWith(8),
		"Nissan Skyline": specs.NewBundle(),
	}}
	cl := &fakeClaims{blocks: map[string]*claims.Block{
		"Toyota Supra": blockWithQuantities(20, "sports car"),
	}}
	s := NewScorer(box, cl)
	ctx := context.Background()

	sel, ok := s.ScoreAndSelect(ctx, "nissan skyline", []string{"Toyota Supra", "Nissan Skyline"})
	require.True(t, ok)
	assert.Equal(t, "Nissan Skyline", sel.Title)
	assert.True(t, sel.Candidates[0].Skipped)
	assert.Zero(t, box.calls["Toyota Supra"], "skipped candidates are never fetched")

	_, ok = s.ScoreAndSelect(ctx, "nissan skyline", []string{"Toyota Supra"})
	assert.False(t, ok)

	_, ok = s.ScoreAndSelect(ctx, "nissan skyline", nil)
	assert.False(t, ok)
}

func TestScore_Formula(t *testing.T) {
	box := &fakeInfobox{bundles: map[string]*specs.Bundle{
		"Nissan Skyline GT-R": bundleWith(4),
		"Nissan":              bundleWith(2),
	}}
	cl := &fakeClaims{blocks: map[string]*claims.Block{
		"Nissan Skyline GT-R": {
			Quantities: claims.Quantities{"P2067": {{Amount: 1540}}},
			Linked: map[string]claims.Linked{
				"Q_RB26": {Quantities: claims.Quantities{"P2109": {{Amount: 206}, {Amount: 243}}}},
			},
			Description: "automobile model",
		},
		"Nissan": blockWithQuantities(1, "Japanese automobile manufacturer"),
	}}
	s := NewScorer(box, cl)
	ctx := context.Background()

	gtr := s.Score(ctx, "nissan skyline gt-r", "Nissan Skyline GT-R")
	assert.Equal(t, 4, gtr.TokenScore)
	assert.Equal(t, 0, gtr.ModelBonus)
	assert.Equal(t, 4, gtr.InfoboxRichness)
	assert.Equal(t, 3, gtr.WikidataRichness)
	assert.Equal(t, 0, gtr.Penalty)
	assert.Equal(t, 4*8+3*12+4*4, gtr.Score)

	maker := s.Score(ctx, "nissan skyline gt-r", "Nissan")
	assert.Equal(t, 50, maker.Penalty)
	assert.Equal(t, 2*8+1*12+1*4-50, maker.Score)
}

func TestScore_CachedShortCircuit(t *testing.T) {
	box := &fakeInfobox{}
	cl := &fakeClaims{}
	cache := fakeTitleCache{"Nissan Skyline (R34)": bundleWith(5)}
	s := NewScorer(box, cl, WithTitleCache(cache))

	c := s.Score(context.Background(), "skyline r34", "Nissan Skyline (R34)")
	assert.True(t, c.Cached)
	assert.Equal(t, 5*20+2*5+6*5, c.Score)
	assert.Zero(t, box.calls["Nissan Skyline (R34)"])
	assert.Zero(t, cl.calls["Nissan Skyline (R34)"])
}

func TestScoreAndSelect_ReturnsFetchedData(t *testing.T) {
	b := bundleWith(2)
	block := blockWithQuantities(1, "car")
	s := NewScorer(
		&fakeInfobox{bundles: map[string]*specs.Bundle{"Mazda MX-5": b}},
		&fakeClaims{blocks: map[string]*claims.Block{"Mazda MX-5": block}},
	)

	sel, ok := s.ScoreAndSelect(context.Background(), "mazda mx5", []string{"Mazda MX-5"})
	require.True(t, ok)
	assert.Same(t, b, sel.Specs)
	assert.Same(t, block, sel.Claims)
	assert.NoError(t, sel.ClaimsErr)
}

func TestScore_SourceFailuresDegrade(t *testing.T) {
	s := NewScorer(&fakeInfobox{}, &fakeClaims{})
	c := s.Score(context.Background(), "lotus elise", "Lotus Elise")
	assert.False(t, c.Skipped)
	assert.Equal(t, 0, c.InfoboxRichness)
	assert.Equal(t, 0, c.WikidataRichness)
	assert.Equal(t, 2*4, c.Score)
}

func TestScoreAndSelect_NegativeOnlyCandidateWins(t *testing.T) {
	s := NewScorer(
		&fakeInfobox{bundles: map[string]*specs.Bundle{"Ford": specs.NewBundle()}},
		&fakeClaims{blocks: map[string]*claims.Block{"Ford": blockWithQuantities(0, "American automobile manufacturer")}},
	)
	sel, ok := s.ScoreAndSelect(context.Background(), "ford", []string{"Ford"})
	require.True(t, ok)
	assert.Equal(t, "Ford", sel.Title)
	assert.Less(t, sel.Score, 0)
}

func TestWithWeights(t *testing.T) {
	w := DefaultWeights()
	w.Token = 100
	s := NewScorer(&fakeInfobox{}, &fakeClaims{}, WithWeights(w), WithPenaltyKeywords([]string{"truck"}))
	c := s.Score(context.Background(), "volvo", "Volvo")
	assert.Equal(t, 100, c.Score)
}

func TestAcceptTopHit(t *testing.T) {
	tests := []struct {
		query, title string
		want         bool
	}{
		{"skyline r34", "Nissan Skyline", true},
		{"skyline r34", "Toyota Supra", false},
		{"skyline r34", "", false},
		{"GT-R", "Nissan GT-R", true},
	}
	for _, tt := range tests {
		t.Run(tt.query+"/"+tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, AcceptTopHit(tt.query, tt.title))
		})
	}
}
