// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/plasma-kg/internal/extract"
	"github.com/pdiddy/plasma-kg/internal/query"
	"github.com/pdiddy/plasma-kg/internal/sparql"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask the knowledge graph a natural-language question",
	Long: `Query interprets a plain-English question about plasma parameters,
compiles it to SPARQL, and runs it against the triple store. Questions
asking for aggregates ("average temperature above 5 keV") return
statistics; everything else returns matching papers.

Interpretation uses the oracle when an API key is configured and falls
back to built-in patterns otherwise.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", 10, "maximum papers to return")
	queryCmd.Flags().Bool("show-sparql", false, "print the generated SPARQL query")
	queryCmd.Flags().Bool("json", false, "output as JSON")
	addOracleFlags(queryCmd)
	addFusekiFlags(queryCmd)

	rootCmd.AddCommand(queryCmd)
}

// queryOutput is the --json shape for one answered question.
type queryOutput struct {
	Question string            `json:"question"`
	Parsed   types.ParsedQuery `json:"parsed"`
	SPARQL   string            `json:"sparql"`
	Rows     []sparql.Row      `json:"rows"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a question, e.g. \"papers with temperature above 10 keV\"")
	}
	question := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")
	showSPARQL, _ := cmd.Flags().GetBool("show-sparql")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := context.Background()

	// Assign through a typed check so a missing backend leaves the
	// interface nil and the interpreter takes its pattern fallback.
	var oracle extract.Oracle
	if b := newOracle(oracleConfig(cmd)); b != nil {
		oracle = b
	}
	interp := &query.Interpreter{Oracle: oracle, Warnings: os.Stderr}

	parsed, err := interp.Interpret(ctx, question)
	if err != nil {
		return err
	}

	var builder query.Builder
	var compiled string
	if parsed.Intent == types.IntentStatistics {
		compiled, err = builder.Statistics(parsed)
		if err != nil {
			return err
		}
	} else {
		compiled = builder.Search(parsed, limit)
	}

	if showSPARQL && !jsonOutput {
		fmt.Fprintln(os.Stdout, compiled)
		fmt.Fprintln(os.Stdout)
	}

	client := sparql.NewClient(fusekiConfig(cmd))
	rows, err := client.Query(ctx, compiled)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(queryOutput{
			Question: question,
			Parsed:   parsed,
			SPARQL:   compiled,
			Rows:     rows,
		})
	}

	if parsed.Intent == types.IntentStatistics {
		return formatStatistics(rows)
	}
	return formatQueryResults(rows)
}

func formatQueryResults(rows []sparql.Row) error {
	if len(rows) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	hasTemp := anyBinding(rows, "tempNormalized")
	hasDens := anyBinding(rows, "densNormalized")

	header := fmt.Sprintf("%-14s  %-10s  %-50s", "ID", "Published", "Title")
	if hasTemp {
		header += fmt.Sprintf("  %10s", "keV")
	}
	if hasDens {
		header += fmt.Sprintf("  %12s", "m^-3")
	}
	fmt.Fprintln(os.Stdout, header)
	fmt.Fprintln(os.Stdout, strings.Repeat("-", len(header)))

	for _, row := range rows {
		title := row["title"]
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		date := row["publicationDate"]
		if len(date) > 10 {
			date = date[:10]
		}
		line := fmt.Sprintf("%-14s  %-10s  %-50s", paperIDFromURI(row["paper"]), date, title)
		if hasTemp {
			line += fmt.Sprintf("  %10s", row["tempNormalized"])
		}
		if hasDens {
			line += fmt.Sprintf("  %12s", row["densNormalized"])
		}
		fmt.Fprintln(os.Stdout, line)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(rows))
	return nil
}

// formatStatistics prints the single aggregate row from a statistics
// query, count first, whichever parameter suffix the query bound.
func formatStatistics(rows []sparql.Row) error {
	if len(rows) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	row := rows[0]
	for _, k := range []string{"count", "avgKeV", "maxKeV", "minKeV", "avgDensity", "maxDensity", "minDensity"} {
		if v, ok := row[k]; ok {
			fmt.Fprintf(os.Stdout, "%-12s %s\n", k+":", v)
		}
	}
	return nil
}

func anyBinding(rows []sparql.Row, name string) bool {
	for _, row := range rows {
		if row[name] != "" {
			return true
		}
	}
	return false
}

// paperIDFromURI strips the resource prefix, leaving the arXiv ID.
func paperIDFromURI(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}
