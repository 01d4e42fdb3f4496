// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/plasma-kg/internal/catalog"
	"github.com/pdiddy/plasma-kg/internal/rdf"
	"github.com/pdiddy/plasma-kg/internal/sparql"
)

const defaultGraphPath = "data/graph.ttl"

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build and load the RDF knowledge graph",
	Long: `Graph turns extracted measurements into RDF. Use subcommands to write
the catalog contents as a Turtle document or to load one into the Fuseki
triple store.`,
}

// --- build subcommand ---

var graphBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Write catalog measurements as a Turtle document",
	Long: `Build reads every extraction record from the catalog and writes papers,
measurements, and parameters as one Turtle document using the plasma
ontology. Papers without measurements are skipped.`,
	RunE: runGraphBuild,
}

func runGraphBuild(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	store, err := catalog.Open(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ExtractionRecords(context.Background())
	if err != nil {
		return err
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}

	stats, err := rdf.Write(f, records, time.Now().UTC())
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "wrote %d papers, %d measurements to %s\n", stats.Papers, stats.Measurements, output)
	return nil
}

// --- load subcommand ---

var graphLoadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Load a Turtle document into the Fuseki triple store",
	Long: `Load posts the given Turtle file (default data/graph.ttl) to Fuseki over
the Graph Store Protocol, adding its triples to the default graph, then
runs a count query to confirm the store answers.`,
	RunE: runGraphLoad,
}

func runGraphLoad(cmd *cobra.Command, args []string) error {
	path := defaultGraphPath
	if len(args) > 0 {
		path = args[0]
	}

	ttl, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	client := sparql.NewClient(fusekiConfig(cmd))
	ctx := context.Background()

	if err := client.LoadTurtle(ctx, ttl); err != nil {
		return err
	}

	count, err := client.Count(ctx, sparql.CountPapers())
	if err != nil {
		return fmt.Errorf("verifying load: %w", err)
	}
	fmt.Fprintf(os.Stdout, "loaded %s, graph now holds %d papers\n", path, count)
	return nil
}

func init() {
	graphBuildCmd.Flags().String("output", defaultGraphPath, "output Turtle file")
	addCatalogFlag(graphBuildCmd)

	addFusekiFlags(graphLoadCmd)

	graphCmd.AddCommand(graphBuildCmd)
	graphCmd.AddCommand(graphLoadCmd)

	rootCmd.AddCommand(graphCmd)
}
