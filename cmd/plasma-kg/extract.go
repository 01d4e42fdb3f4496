// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/plasma-kg/internal/catalog"
	"github.com/pdiddy/plasma-kg/internal/extract"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract temperature and density measurements from abstracts",
	Long: `Extract runs the measurement pipeline over collected abstracts: regex
patterns find electron temperature and density candidates, the oracle
validates and refines them, and the survivors are normalized to keV and
m^-3, deduplicated, and stored in the catalog.

Papers come from the catalog by default, or from a YAML snapshot with
--input. Without an API key, or with --no-oracle, the pattern results
are kept as-is.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("input", "", "read papers from this YAML file instead of the catalog")
	extractCmd.Flags().Int("limit", 0, "only process the N newest papers (default all)")
	addOracleFlags(extractCmd)
	addCatalogFlag(extractCmd)

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	store, err := catalog.Open(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	papers, err := papersToExtract(ctx, cmd, store)
	if err != nil {
		return err
	}
	if len(papers) == 0 {
		fmt.Fprintln(os.Stdout, "nothing to extract")
		return nil
	}

	var validator *extract.Validator
	if oracle := newOracle(oracleConfig(cmd)); oracle != nil {
		validator = &extract.Validator{Oracle: oracle, Warnings: os.Stderr}
	}

	records, summary, err := extract.ExtractAll(ctx, os.Stdout, validator, papers)
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return err
	}

	// Papers finished before an interrupt are still worth keeping.
	storeCtx := context.WithoutCancel(ctx)
	for _, rec := range records {
		if err := store.ReplaceMeasurements(storeCtx, rec); err != nil {
			return fmt.Errorf("storing measurements for %s: %w", rec.Paper.ArxivID, err)
		}
	}

	fmt.Fprintln(os.Stdout)
	if interrupted {
		fmt.Fprintln(os.Stdout, "interrupted, keeping finished papers")
	}
	fmt.Fprintf(os.Stdout, "papers processed:  %d\n", summary.Total())
	fmt.Fprintf(os.Stdout, "with parameters:   %d\n", summary.WithParameters)
	fmt.Fprintf(os.Stdout, "without:           %d\n", summary.Empty)
	fmt.Fprintf(os.Stdout, "measurements:      %d\n", summary.Measurements)
	return nil
}

// papersToExtract loads the extraction input: a YAML snapshot when
// --input is set, the catalog otherwise.
func papersToExtract(ctx context.Context, cmd *cobra.Command, store *catalog.Store) ([]types.Paper, error) {
	limit, _ := cmd.Flags().GetInt("limit")

	if input, _ := cmd.Flags().GetString("input"); input != "" {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("reading papers from %s: %w", input, err)
		}
		var papers []types.Paper
		if err := yaml.Unmarshal(data, &papers); err != nil {
			return nil, fmt.Errorf("parsing papers from %s: %w", input, err)
		}
		if limit > 0 && limit < len(papers) {
			papers = papers[:limit]
		}
		return papers, nil
	}

	if limit <= 0 {
		n, err := store.PaperCount(ctx)
		if err != nil {
			return nil, err
		}
		limit = n
	}
	if limit == 0 {
		return nil, nil
	}
	return store.Papers(ctx, limit, 0)
}
