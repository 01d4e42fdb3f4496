// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/plasma-kg/internal/catalog"
	"github.com/pdiddy/plasma-kg/internal/collect"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect recent plasma physics abstracts from arXiv",
	Long: `Collect pages through the newest submissions in an arXiv category and
stores title, abstract, authors, and dates in the catalog. Papers are
flushed in batches, so an interrupted run keeps everything collected so
far. With --filter, abstracts showing no sign of numeric parameters are
dropped before they reach the catalog.`,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().String("category", "", "arXiv category to collect from (default physics.plasm-ph)")
	collectCmd.Flags().Int("max-results", 0, "number of papers to collect (default 10)")
	collectCmd.Flags().Int("page-size", 0, "entries requested per arXiv API call (default 100)")
	collectCmd.Flags().Int("flush-every", 0, "papers to accumulate before writing to the catalog (default 10)")
	collectCmd.Flags().Bool("filter", false, "drop abstracts without numeric parameter signals")
	collectCmd.Flags().String("snapshot", "", "also write collected papers to this YAML file")
	collectCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	addCatalogFlag(collectCmd)

	rootCmd.AddCommand(collectCmd)
}

func collectConfig(cmd *cobra.Command) types.CollectConfig {
	filter, _ := cmd.Flags().GetBool("filter")
	return types.CollectConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   durationSetting(cmd, "timeout", "collect.timeout", defaultTimeout),
			UserAgent: defaultUserAgent,
		},
		Category:   stringSetting(cmd, "category", "collect.category", ""),
		MaxResults: intSetting(cmd, "max-results", "collect.max_results", 0),
		PageSize:   intSetting(cmd, "page-size", "collect.page_size", 0),
		FlushEvery: intSetting(cmd, "flush-every", "collect.flush_every", 0),
		Filter:     filter,
	}
}

func runCollect(cmd *cobra.Command, args []string) error {
	store, err := catalog.Open(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	// Ctrl-C is partial completion, not failure: the collector flushes
	// what it has and reports an interrupted summary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := collect.New(collectConfig(cmd), store, os.Stdout)
	collector.SnapshotPath, _ = cmd.Flags().GetString("snapshot")

	_, err = collector.Run(ctx)
	return err
}
