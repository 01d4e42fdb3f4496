// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/plasma-kg/internal/catalog"
	"github.com/pdiddy/plasma-kg/internal/sparql"
	"github.com/pdiddy/plasma-kg/internal/units"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize measurements across the knowledge graph",
	Long: `Stats reports paper and measurement counts with the average, maximum,
and minimum normalized values per parameter. By default it queries the
triple store; --local computes the same summary from the catalog, which
works before the graph is loaded.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Bool("local", false, "compute from the catalog instead of the triple store")
	statsCmd.Flags().Bool("json", false, "output as JSON")
	addCatalogFlag(statsCmd)
	addFusekiFlags(statsCmd)

	rootCmd.AddCommand(statsCmd)
}

// parameterStats aggregates one parameter kind. Nil bounds mean no
// measurements of that kind exist.
type parameterStats struct {
	Count int      `json:"count"`
	Avg   *float64 `json:"avg,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Unit  string   `json:"unit"`
}

type statsOutput struct {
	Papers      int            `json:"papers"`
	Temperature parameterStats `json:"temperature"`
	Density     parameterStats `json:"density"`
}

func runStats(cmd *cobra.Command, args []string) error {
	local, _ := cmd.Flags().GetBool("local")

	var out statsOutput
	var err error
	if local {
		out, err = localStats(cmd)
	} else {
		out, err = graphStats(cmd)
	}
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(os.Stdout, "papers:  %d\n", out.Papers)
	printParameterStats("temperatures", out.Temperature)
	printParameterStats("densities", out.Density)
	return nil
}

func graphStats(cmd *cobra.Command) (statsOutput, error) {
	client := sparql.NewClient(fusekiConfig(cmd))
	ctx := context.Background()

	papers, err := client.Count(ctx, sparql.CountPapers())
	if err != nil {
		return statsOutput{}, err
	}
	tempRows, err := client.Query(ctx, sparql.Statistics(types.KindTemperature))
	if err != nil {
		return statsOutput{}, err
	}
	densRows, err := client.Query(ctx, sparql.Statistics(types.KindDensity))
	if err != nil {
		return statsOutput{}, err
	}

	return statsOutput{
		Papers:      papers,
		Temperature: statsFromRow(firstRow(tempRows), types.KindTemperature, "KeV"),
		Density:     statsFromRow(firstRow(densRows), types.KindDensity, "Density"),
	}, nil
}

func localStats(cmd *cobra.Command) (statsOutput, error) {
	store, err := catalog.Open(catalogConfig(cmd))
	if err != nil {
		return statsOutput{}, err
	}
	defer store.Close()

	ctx := context.Background()
	st, err := store.Status(ctx)
	if err != nil {
		return statsOutput{}, err
	}
	temps, err := store.MeasurementsByKind(ctx, types.KindTemperature, 0)
	if err != nil {
		return statsOutput{}, err
	}
	dens, err := store.MeasurementsByKind(ctx, types.KindDensity, 0)
	if err != nil {
		return statsOutput{}, err
	}

	return statsOutput{
		Papers:      st.Papers,
		Temperature: computeStats(temps, types.KindTemperature),
		Density:     computeStats(dens, types.KindDensity),
	}, nil
}

// statsFromRow reads the aggregate bindings from one statistics query
// row. Aggregates over an empty graph leave everything but count
// unbound, which parses to nil.
func statsFromRow(row sparql.Row, kind types.ParameterKind, suffix string) parameterStats {
	st := parameterStats{Unit: units.CanonicalUnit(kind)}
	if row == nil {
		return st
	}
	st.Count, _ = strconv.Atoi(row["count"])
	st.Avg = parseBoundValue(row["avg"+suffix])
	st.Max = parseBoundValue(row["max"+suffix])
	st.Min = parseBoundValue(row["min"+suffix])
	return st
}

func computeStats(ms []catalog.StoredMeasurement, kind types.ParameterKind) parameterStats {
	st := parameterStats{Count: len(ms), Unit: units.CanonicalUnit(kind)}
	if len(ms) == 0 {
		return st
	}

	sum := 0.0
	maxV := ms[0].NormalizedValue
	minV := ms[0].NormalizedValue
	for _, m := range ms {
		v := m.NormalizedValue
		sum += v
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
	}
	avg := sum / float64(len(ms))
	st.Avg, st.Max, st.Min = &avg, &maxV, &minV
	return st
}

func printParameterStats(label string, st parameterStats) {
	fmt.Fprintf(os.Stdout, "\n%s:  %d\n", label, st.Count)
	if st.Count == 0 {
		return
	}
	fmt.Fprintf(os.Stdout, "  avg:  %s %s\n", formatStatValue(st.Avg), st.Unit)
	fmt.Fprintf(os.Stdout, "  max:  %s %s\n", formatStatValue(st.Max), st.Unit)
	fmt.Fprintf(os.Stdout, "  min:  %s %s\n", formatStatValue(st.Min), st.Unit)
}

func formatStatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', 4, 64)
}

func parseBoundValue(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func firstRow(rows []sparql.Row) sparql.Row {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
