package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luifiio/cougar/internal/catalog"
	"github.com/luifiio/cougar/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	var (
		dataFile     string
		outFile      string
		mappingsFile string
		limit        int
		strict       bool
		summaryOnly  bool
		dryRun       bool
		noBackup     bool
		allowShrink  bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Enrich every catalog item with Wikipedia data",
		Long: `Ingest looks up each catalog item on Wikipedia, using manual title mappings
where present, attaches the page summary and fills in missing specs, then
writes the catalog back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dataFile == "" {
				dataFile = cfg.Resolve(cfg.Paths.DataFile)
			}
			if outFile == "" {
				outFile = dataFile
			}
			if mappingsFile == "" {
				mappingsFile = cfg.Resolve(cfg.Paths.MappingsFile)
			}

			items, err := catalog.Load(dataFile)
			if err != nil {
				return err
			}
			mappings, err := ingest.LoadMappings(mappingsFile)
			if err != nil {
				return err
			}
			var rest []catalog.Item
			if limit > 0 && limit < len(items) {
				items, rest = items[:limit], items[limit:]
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			pcfg := ingest.DefaultPipelineConfig()
			pcfg.LooseMatch = !strict
			var resolver ingest.TitleResolver = a.Resolver
			if summaryOnly {
				resolver = nil
			}
			pipeline := ingest.NewPipeline(a.Logger, pcfg, a.Source, resolver, mappings)

			ui.Step("Enriching %d items from %s (%d mappings)", len(items), dataFile, len(mappings))
			bar := ui.NewItemBar(len(items), "ingest")
			result, runErr := pipeline.Run(ctx, items, func(done, total int, name string, outcome ingest.ItemOutcome) {
				bar.Set(done, name)
			})
			bar.Finish()
			if result == nil {
				return runErr
			}

			var published *ingest.PublishResult
			if !dryRun {
				published, err = ingest.NewPublisher(a.Logger).Publish(ctx, ingest.PublishRequest{
					RunID:       result.RunID,
					Path:        outFile,
					Items:       append(result.Items, rest...),
					AllowShrink: allowShrink,
					Backup:      !noBackup,
				})
				if err != nil {
					return fmt.Errorf("publish catalog: %w", err)
				}
			}

			if outputJSON {
				return printJSON(map[string]any{
					"run_id":   result.RunID.String(),
					"status":   result.Status,
					"total":    result.Total,
					"enriched": result.Enriched,
					"mapped":   result.Mapped,
					"skipped":  result.Skipped,
					"errors":   result.Errors,
					"duration": result.Duration.String(),
					"written":  published != nil,
				})
			}

			ui.Section("Ingestion")
			ui.KeyValue("Run ID", result.RunID)
			ui.KeyValue("Status", result.Status)
			ui.KeyValue("Enriched", fmt.Sprintf("%d / %d", result.Enriched, result.Total))
			ui.KeyValue("Mapped", result.Mapped)
			ui.KeyValue("Skipped", result.Skipped)
			ui.KeyValue("Duration", FormatDuration(result.Duration))
			for _, e := range result.Errors {
				ui.Warning("%s", e)
			}
			switch {
			case published != nil:
				ui.Success("Wrote %d items to %s", published.Items, published.Path)
				if published.BackupPath != "" {
					ui.Info("Previous catalog kept at %s", published.BackupPath)
				}
			case dryRun:
				ui.Info("Dry run: catalog not written")
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "catalog file to read (default: paths.data_file)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "catalog file to write (default: same as --data)")
	cmd.Flags().StringVar(&mappingsFile, "mappings", "", "manual title mappings file (default: paths.mappings_file)")
	cmd.Flags().IntVar(&limit, "limit", 0, "only process the first N items")
	cmd.Flags().BoolVar(&strict, "strict", false, "only accept pages that look like cars")
	cmd.Flags().BoolVar(&summaryOnly, "summary-only", false, "attach summaries without fetching specs")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not write the catalog")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "do not keep the previous catalog")
	cmd.Flags().BoolVar(&allowShrink, "allow-shrink", false, "allow writing fewer items than the file holds")

	cmd.AddCommand(newRollbackCmd())
	return cmd
}

func newRollbackCmd() *cobra.Command {
	var dataFile string

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Restore the catalog written before the last ingest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataFile == "" {
				dataFile = cfg.Resolve(cfg.Paths.DataFile)
			}
			n, err := ingest.NewPublisher(logger).Rollback(cmd.Context(), dataFile)
			if err != nil {
				return fmt.Errorf("rollback %s: %w", dataFile, err)
			}
			if outputJSON {
				return printJSON(map[string]any{"path": dataFile, "items": n})
			}
			ui.Success("Restored %d items to %s", n, dataFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "catalog file to restore (default: paths.data_file)")
	return cmd
}
