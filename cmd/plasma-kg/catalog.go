// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/plasma-kg/internal/catalog"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and manage the paper catalog",
	Long: `Catalog manages the local SQLite store that collection fills and
extraction annotates. Use subcommands to create it, summarize its
contents, or search stored papers.`,
}

// --- init subcommand ---

var catalogInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the catalog database and schema",
	RunE:  runCatalogInit,
}

func runCatalogInit(cmd *cobra.Command, args []string) error {
	cfg := catalogConfig(cmd)

	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(os.Stdout, "catalog ready at %s\n", cfg.Path)
	return nil
}

// --- status subcommand ---

var catalogStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize catalog contents",
	RunE:  runCatalogStatus,
}

func runCatalogStatus(cmd *cobra.Command, args []string) error {
	store, err := catalog.Open(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Status(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(os.Stdout, "papers:             %d\n", st.Papers)
	fmt.Fprintf(os.Stdout, "with measurements:  %d\n", st.WithMeasurements)
	fmt.Fprintf(os.Stdout, "temperatures:       %d\n", st.Temperatures)
	fmt.Fprintf(os.Stdout, "densities:          %d\n", st.Densities)
	fmt.Fprintf(os.Stdout, "catalog:            %s\n", st.Path)
	return nil
}

// --- search subcommand ---

var catalogSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored papers by title and abstract",
	RunE:  runCatalogSearch,
}

func runCatalogSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a search query")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := catalog.Open(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	papers, err := store.Search(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatPaperList(papers, jsonOutput)
}

func formatPaperList(papers []types.Paper, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-14s  %-10s  %s\n", "ID", "Published", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 88))

	for _, p := range papers {
		title := p.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-14s  %-10s  %s\n",
			p.ArxivID, p.Published.Format("2006-01-02"), title)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(papers))
	return nil
}

func init() {
	catalogCmd.PersistentFlags().String("catalog", "", "catalog database file (default data/catalog.db)")

	catalogStatusCmd.Flags().Bool("json", false, "output as JSON")

	catalogSearchCmd.Flags().Int("limit", 20, "maximum results")
	catalogSearchCmd.Flags().Bool("json", false, "output as JSON")

	catalogCmd.AddCommand(catalogInitCmd)
	catalogCmd.AddCommand(catalogStatusCmd)
	catalogCmd.AddCommand(catalogSearchCmd)

	rootCmd.AddCommand(catalogCmd)
}
