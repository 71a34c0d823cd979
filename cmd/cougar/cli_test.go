package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luifiio/cougar/internal/catalog"
	"github.com/luifiio/cougar/internal/enrich"
	"github.com/luifiio/cougar/internal/scoring"
	"github.com/luifiio/cougar/internal/specs"
)

type stubResolver struct {
	queries []string
	titles  []string
	fail    string
}

func (s *stubResolver) Resolve(_ context.Context, q string) (*enrich.Result, error) {
	s.queries = append(s.queries, q)
	if q == s.fail {
		return nil, context.Canceled
	}
	return &enrich.Result{Query: q, Outcome: enrich.OutcomeNoMatch}, nil
}

func (s *stubResolver) ResolveTitle(_ context.Context, title string) (*enrich.Result, error) {
	s.titles = append(s.titles, title)
	return &enrich.Result{Title: title, Outcome: enrich.OutcomeResolved, Item: &catalog.Item{ID: "wiki-" + title}}, nil
}

func quietUI() *UI {
	u := NewUI(true, true)
	u.out, u.errOut = &bytes.Buffer{}, &bytes.Buffer{}
	return u
}

func TestResolveAll(t *testing.T) {
	ui = quietUI()
	ctx := context.Background()

	r := &stubResolver{}
	results, err := resolveAll(ctx, r, []string{"skyline r34", "mx-5"}, false)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []string{"skyline r34", "mx-5"}, r.queries)

	results, err = resolveAll(ctx, r, []string{"Mazda MX-5"}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Found())
	assert.Equal(t, []string{"Mazda MX-5"}, r.titles)

	r = &stubResolver{fail: "b"}
	_, err = resolveAll(ctx, r, []string{"a", "b", "c"}, false)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"a", "b"}, r.queries)
}

func TestToOutput(t *testing.T) {
	sel := &scoring.Selection{Candidates: []scoring.Candidate{{Title: "A", Score: 3}}}
	res := &enrich.Result{Query: "a", Outcome: enrich.OutcomeNoMatch, Selection: sel}

	out := toOutput(res, true)
	assert.Nil(t, out.Item)
	assert.Len(t, out.Candidates, 1)
	assert.Empty(t, toOutput(res, false).Candidates)
}

func TestCandidateRows(t *testing.T) {
	rows := candidateRows([]scoring.Candidate{
		{Title: "Nissan Skyline GT-R", Score: 96, TokenScore: 2, ModelBonus: 6, InfoboxRichness: 5, WikidataRichness: 1},
		{Title: "Skyline (band)", Skipped: true},
	})
	assert.Equal(t, []string{"Nissan Skyline GT-R", "96", "2", "6", "5", "1", "0", "false"}, rows[0])
	assert.Equal(t, "skipped", rows[1][1])
}

func TestSpecRows(t *testing.T) {
	b := specs.NewBundle()
	b.SetText(specs.Power, "276 hp (206 kW)")
	b.SetValue("power_hp", 276)
	b.SetUnresolved("P2067", specs.Quantity{Amount: 3400, UnitLabel: "pound"})

	assert.Equal(t, [][]string{
		{"power", "276 hp (206 kW)"},
		{"power_hp", "276"},
		{"wikidata_P2067", "3400 pound"},
	}, specRows(b))
	assert.Empty(t, specRows(nil))
}

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name  string
		flags keyFlags
		arg   string
		want  string
	}{
		{"query", keyFlags{}, "Skyline  R34", "q:skyline r34"},
		{"title", keyFlags{title: true}, "Nissan Skyline", "nissan skyline"},
		{"raw", keyFlags{raw: true}, "q:Custom", "q:Custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flags.key(tt.arg))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.0m", FormatDuration(2*time.Minute))
	assert.Equal(t, "1.0h", FormatDuration(time.Hour))
}

func TestUI_PlainOutput(t *testing.T) {
	var out bytes.Buffer
	u := &UI{out: &out, errOut: &out, noColor: true}
	u.Success("wrote %d items", 3)
	u.KeyValue("Status", "completed")
	u.Table([]string{"Spec", "Value"}, [][]string{{"power", "276 hp"}})

	assert.Contains(t, out.String(), "✓ wrote 3 items")
	assert.Contains(t, out.String(), "  Status: completed")
	assert.Contains(t, out.String(), "power  276 hp")

	out.Reset()
	quiet := &UI{out: &out, errOut: &out, noColor: true, jsonMode: true}
	quiet.Success("hidden")
	quiet.Table([]string{"a"}, nil)
	assert.Empty(t, out.String())
	quiet.Spinner("x")()
	quiet.NewItemBar(3, "x").Set(1, "y")
}
