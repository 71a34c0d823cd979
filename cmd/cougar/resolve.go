package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luifiio/cougar/internal/enrich"
	"github.com/luifiio/cougar/internal/scoring"
	"github.com/luifiio/cougar/internal/specs"
)

type titleResolver interface {
	Resolve(ctx context.Context, query string) (*enrich.Result, error)
	ResolveTitle(ctx context.Context, title string) (*enrich.Result, error)
}

// resolveOutput is the --json shape of one resolution.
type resolveOutput struct {
	Query      string              `json:"query"`
	Title      string              `json:"title,omitempty"`
	Outcome    enrich.Outcome      `json:"outcome"`
	Item       any                 `json:"item"`
	Candidates []scoring.Candidate `json:"candidates,omitempty"`
}

func newResolveCmd() *cobra.Command {
	var (
		byTitle        bool
		showCandidates bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <query>...",
		Short: "Resolve queries to enriched car items",
		Long: `Resolve searches Wikipedia for each query, scores the candidates, and
prints the winning page with its normalized specs. Results are cached.

With --title each argument is taken as an exact page title.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := resolveAll(ctx, a.Resolver, args, byTitle)
			if err != nil {
				return err
			}

			if outputJSON {
				out := make([]resolveOutput, 0, len(results))
				for _, res := range results {
					out = append(out, toOutput(res, showCandidates))
				}
				return printJSON(out)
			}
			for _, res := range results {
				renderResult(res, showCandidates)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&byTitle, "title", false, "treat arguments as exact Wikipedia titles")
	cmd.Flags().BoolVar(&showCandidates, "candidates", false, "show the candidate score breakdown")

	return cmd
}

func resolveAll(ctx context.Context, r titleResolver, queries []string, byTitle bool) ([]*enrich.Result, error) {
	run := func(q string) (*enrich.Result, error) {
		if byTitle {
			return r.ResolveTitle(ctx, q)
		}
		return r.Resolve(ctx, q)
	}

	if len(queries) == 1 {
		stop := ui.Spinner(fmt.Sprintf("Resolving %q", queries[0]))
		res, err := run(queries[0])
		stop()
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", queries[0], err)
		}
		return []*enrich.Result{res}, nil
	}

	p := ui.Progress()
	bar := QueryBar(p, "resolve", len(queries))
	results := make([]*enrich.Result, 0, len(queries))
	for _, q := range queries {
		res, err := run(q)
		if err != nil {
			if bar != nil {
				bar.Abort(false)
				p.Wait()
			}
			return nil, fmt.Errorf("resolve %q: %w", q, err)
		}
		results = append(results, res)
		if bar != nil {
			bar.Increment()
		}
	}
	if p != nil {
		p.Wait()
	}
	return results, nil
}

func toOutput(res *enrich.Result, withCandidates bool) resolveOutput {
	out := resolveOutput{Query: res.Query, Title: res.Title, Outcome: res.Outcome}
	if res.Found() {
		out.Item = res.Item
	}
	if withCandidates && res.Selection != nil {
		out.Candidates = res.Selection.Candidates
	}
	return out
}

func renderResult(res *enrich.Result, withCandidates bool) {
	label := res.Query
	if label == "" {
		label = res.Title
	}
	ui.Section(label)
	ui.KeyValue("Outcome", res.Outcome)

	if withCandidates && res.Selection != nil && len(res.Selection.Candidates) > 0 {
		ui.Table([]string{"Candidate", "Score", "Tokens", "Model", "Infobox", "Wikidata", "Penalty", "Cached"},
			candidateRows(res.Selection.Candidates))
		ui.Newline()
	}

	if !res.Found() {
		ui.Warning("No match for %q", label)
		return
	}
	item := res.Item
	ui.KeyValue("Title", res.Title)
	ui.KeyValue("ID", item.ID)
	if item.Wiki != nil && item.Wiki.WikiURL != "" {
		ui.KeyValue("URL", item.Wiki.WikiURL)
	}
	if item.Wikidata != nil {
		ui.KeyValue("Wikidata", item.Wikidata.EntityID)
	}
	if rows := specRows(item.Specs); len(rows) > 0 {
		ui.Newline()
		ui.Table([]string{"Spec", "Value"}, rows)
	}
	ui.Success("Resolved %q", res.Title)
}

func candidateRows(cands []scoring.Candidate) [][]string {
	rows := make([][]string, 0, len(cands))
	for _, c := range cands {
		score := strconv.Itoa(c.Score)
		if c.Skipped {
			score = "skipped"
		}
		rows = append(rows, []string{
			c.Title,
			score,
			strconv.Itoa(c.TokenScore),
			strconv.Itoa(c.ModelBonus),
			strconv.Itoa(c.InfoboxRichness),
			strconv.Itoa(c.WikidataRichness),
			strconv.Itoa(c.Penalty),
			strconv.FormatBool(c.Cached),
		})
	}
	return rows
}

func specRows(b *specs.Bundle) [][]string {
	keys := b.Keys()
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		var v string
		if text, ok := b.Text(k); ok {
			v = text
		} else if num, ok := b.Value(k); ok {
			v = strconv.FormatFloat(num, 'f', -1, 64)
		} else if q, ok := b.Unresolved[k]; ok {
			v = strconv.FormatFloat(q.Amount, 'f', -1, 64)
			if q.UnitLabel != "" {
				v += " " + q.UnitLabel
			}
		} else {
			v = string(b.Extra[k])
		}
		rows = append(rows, []string{k, v})
	}
	return rows
}
