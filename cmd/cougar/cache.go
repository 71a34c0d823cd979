package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/luifiio/cougar/internal/cache"
	"github.com/luifiio/cougar/internal/catalog"
	"github.com/luifiio/cougar/internal/enrich"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and purge the enrichment cache",
	}
	cmd.AddCommand(newCacheGetCmd())
	cmd.AddCommand(newCacheDeleteCmd())
	cmd.AddCommand(newCachePurgeCmd())
	return cmd
}

type keyFlags struct {
	title bool
	raw   bool
}

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.title, "title", false, "argument is a page title")
	cmd.Flags().BoolVar(&f.raw, "raw", false, "argument is a literal cache key")
}

// key maps a user argument to its cache key. Queries are the default.
func (f *keyFlags) key(arg string) string {
	switch {
	case f.raw:
		return arg
	case f.title:
		return enrich.TitleKey(arg)
	default:
		return enrich.QueryKey(arg)
	}
}

func newCacheGetCmd() *cobra.Command {
	var kf keyFlags
	cmd := &cobra.Command{
		Use:   "get <query>",
		Short: "Show a cached entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			key := kf.key(args[0])
			raw, storedAt, expired, err := a.Cache.Lookup(ctx, key)
			if errors.Is(err, cache.ErrCacheMiss) {
				if outputJSON {
					return printJSON(map[string]any{"key": key, "found": false})
				}
				ui.Warning("No cache entry for %q", key)
				return nil
			}
			if err != nil {
				return fmt.Errorf("read cache: %w", err)
			}

			if outputJSON {
				return printJSON(map[string]any{
					"key":       key,
					"found":     true,
					"stored_at": storedAt.UTC().Format(time.RFC3339),
					"expired":   expired,
					"item":      json.RawMessage(raw),
				})
			}

			ui.Section(key)
			ui.KeyValue("Stored", storedAt.Local().Format(time.RFC3339))
			ui.KeyValue("Age", FormatDuration(time.Since(storedAt)))
			ui.KeyValue("Expired", expired)
			var item catalog.Item
			if err := json.Unmarshal(raw, &item); err != nil {
				ui.Warning("Entry is not a valid item: %v", err)
				return nil
			}
			ui.KeyValue("Item", item.Name)
			if rows := specRows(item.Specs); len(rows) > 0 {
				ui.Newline()
				ui.Table([]string{"Spec", "Value"}, rows)
			}
			return nil
		},
	}
	kf.register(cmd)
	return cmd
}

func newCacheDeleteCmd() *cobra.Command {
	var kf keyFlags
	cmd := &cobra.Command{
		Use:   "delete <query>",
		Short: "Delete a cached entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			key := kf.key(args[0])
			if err := a.Cache.Delete(ctx, key); err != nil {
				return fmt.Errorf("delete %q: %w", key, err)
			}
			ui.Success("Deleted %q", key)
			return nil
		},
	}
	kf.register(cmd)
	return cmd
}

func newCachePurgeCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Drop cached query results",
		Long: `Purge drops every query-keyed entry so the next search re-runs candidate
selection. With --all, cached title entries are dropped as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Cache.Purge(ctx, all); err != nil {
				return fmt.Errorf("purge cache: %w", err)
			}
			if outputJSON {
				return printJSON(map[string]any{"purged": true, "all": all})
			}
			if all {
				ui.Success("Purged all cache entries")
			} else {
				ui.Success("Purged query cache entries")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also drop title entries")
	return cmd
}
