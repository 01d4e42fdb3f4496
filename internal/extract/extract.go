// Package extract finds plasma parameter measurements in paper abstracts.
// A pattern pass proposes candidate values; an optional generative oracle
// validates and refines them. Oracle failures never lose data: the pattern
// candidates stand on their own.
package extract

import (
	"context"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/plasma-kg/internal/dedup"
	"github.com/pdiddy/plasma-kg/internal/units"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

// Extraction method tags recorded on each paper's record and published in
// the graph.
const (
	// MethodPattern marks records whose measurements come from the
	// pattern pass alone.
	MethodPattern = "regex"

	// MethodValidated marks records whose pattern candidates were
	// confirmed by the oracle.
	MethodValidated = "regex+llm"
)

// contextRadius is how many bytes of surrounding text are kept on each
// side of a match for the context snippet.
const contextRadius = 50

// nearDuplicateEpsilon merges matches of the same value found by
// overlapping patterns. Values within this distance sharing a unit are
// one measurement.
const nearDuplicateEpsilon = 0.01

// temperaturePatterns are tried in order. Species-anchored forms come
// first so their match (and its confidence) wins over the bare
// number-with-unit form for the same value.
var temperaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:electron temperature|T_?e|ion temperature|T_?i)[\s:=~]*(?:of|about|approximately|around)?[\s]*(\d+\.?\d*)[\s]*([×x]\s*10\^?[+-]?\d+)?[\s]*(keV|eV|K)`),
	regexp.MustCompile(`(?i)(?:peak|maximum|central|average|typical)\s+temperatures?[\s:=~]*(?:of|about|approximately|around)?[\s]*(\d+\.?\d*)[\s]*([×x]\s*10\^?[+-]?\d+)?[\s]*(keV|eV|K)`),
	regexp.MustCompile(`(?i)(\d+\.?\d*)[\s]*([×x]\s*10\^?[+-]?\d+)?[\s]*(keV|eV|K)`),
}

// densityPatterns follow the same ordering rule. Densities in abstracts
// are essentially always written in scientific notation, so the exponent
// part is mandatory here.
var densityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:electron density|n_?e|ion density|n_?i|plasma density)[\s:=~]*(?:of|about|approximately|around)?[\s]*(\d+\.?\d*)[\s]*[×x]\s*10[¹²³⁴⁵⁶⁷⁸⁹⁰\^]?([+-]?\d+)[\s]*(m\^?-?3|cm\^?-?3|per cubic meter|per cubic centimeter)`),
	regexp.MustCompile(`(?i)density[\s:=~]*(?:of|about|approximately|around)?[\s]*(\d+\.?\d*)[\s]*[×x]\s*10[¹²³⁴⁵⁶⁷⁸⁹⁰\^]?([+-]?\d+)[\s]*(m\^?-?3|cm\^?-?3)`),
}

func patternsFor(kind types.ParameterKind) []*regexp.Regexp {
	if kind == types.KindDensity {
		return densityPatterns
	}
	return temperaturePatterns
}

// Extract runs the pattern pass for one parameter kind over a text and
// returns the candidate measurements in match order. Values that repeat
// within nearDuplicateEpsilon with the same unit are reported once, first
// occurrence wins.
func Extract(text string, kind types.ParameterKind) []types.Measurement {
	var results []types.Measurement

	for _, re := range patternsFor(kind) {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			m, ok := parseMatch(text, idx)
			if !ok {
				continue
			}
			m.Kind = kind
			if hasNearDuplicate(results, m.Value, m.Unit) {
				continue
			}
			results = append(results, m)
		}
	}

	return results
}

// parseMatch converts one submatch index set into a measurement. The
// groups are (mantissa)(exponent?)(unit) for every pattern of both kinds.
func parseMatch(text string, idx []int) (types.Measurement, bool) {
	group := func(n int) string {
		lo, hi := idx[2*n], idx[2*n+1]
		if lo < 0 {
			return ""
		}
		return text[lo:hi]
	}

	value, err := strconv.ParseFloat(group(1), 64)
	if err != nil {
		return types.Measurement{}, false
	}
	value = applyExponent(value, group(2))

	matched := text[idx[0]:idx[1]]
	confidence := types.ConfidenceMedium
	if strings.Contains(strings.ToLower(matched), "electron") {
		confidence = types.ConfidenceHigh
	}

	return types.Measurement{
		Value:      value,
		Unit:       group(3),
		Context:    contextSnippet(text, idx[0], idx[1]),
		Confidence: confidence,
	}, true
}

// applyExponent folds a scientific-notation token like "×10^19" or a bare
// exponent like "19" into the mantissa. The multiplication sign and the
// base are stripped from the former; a bare token is already just the
// exponent, so an exponent of 10 must not be mistaken for the base. A
// token that fails to parse leaves the mantissa unchanged; the match is
// still emitted.
func applyExponent(value float64, token string) float64 {
	if token == "" {
		return value
	}
	clean := strings.TrimSpace(token)
	scientific := strings.ContainsAny(clean, "×xX")
	clean = strings.ReplaceAll(clean, "×", "")
	clean = strings.ReplaceAll(clean, "x", "")
	clean = strings.ReplaceAll(clean, "X", "")
	clean = strings.TrimSpace(clean)
	if rest, ok := strings.CutPrefix(clean, "10^"); ok {
		clean = rest
	} else if scientific {
		clean = strings.TrimPrefix(clean, "10")
	}
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return value
	}
	exp, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return value
	}
	return value * math.Pow(10, exp)
}

// contextSnippet returns the whitespace-collapsed text around a match.
func contextSnippet(text string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + contextRadius
	if hi > len(text) {
		hi = len(text)
	}
	snippet := strings.Join(strings.Fields(text[lo:hi]), " ")
	return strings.ToValidUTF8(snippet, "")
}

func hasNearDuplicate(results []types.Measurement, value float64, unit string) bool {
	for _, r := range results {
		if r.Unit == unit && math.Abs(r.Value-value) < nearDuplicateEpsilon {
			return true
		}
	}
	return false
}

// ExtractPaper runs the full extraction pipeline for one paper: pattern
// pass for both kinds, oracle validation when a validator is configured
// and candidates exist, then normalization and per-paper deduplication.
func ExtractPaper(ctx context.Context, v *Validator, paper types.Paper) types.ExtractionRecord {
	temps := Extract(paper.Abstract, types.KindTemperature)
	dens := Extract(paper.Abstract, types.KindDensity)

	method := MethodPattern
	if v != nil {
		validated := false
		if len(temps) > 0 {
			if out, ok := v.Validate(ctx, paper.Abstract, temps, types.KindTemperature); ok {
				temps = out
				validated = true
			}
		}
		if len(dens) > 0 {
			if out, ok := v.Validate(ctx, paper.Abstract, dens, types.KindDensity); ok {
				dens = out
				validated = true
			}
		}
		if validated {
			method = MethodValidated
		}
	}

	return types.ExtractionRecord{
		Paper:        paper,
		Temperatures: dedup.Measurements(canonicalizeAll(temps)),
		Densities:    dedup.Measurements(canonicalizeAll(dens)),
		Method:       method,
		ExtractedAt:  time.Now().UTC(),
	}
}

func canonicalizeAll(ms []types.Measurement) []types.NormalizedMeasurement {
	if len(ms) == 0 {
		return nil
	}
	out := make([]types.NormalizedMeasurement, 0, len(ms))
	for _, m := range ms {
		out = append(out, units.Canonicalize(m))
	}
	return out
}

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	WithParameters int
	Empty          int
	Measurements   int
}

// Total returns the number of papers processed.
func (s BatchSummary) Total() int {
	return s.WithParameters + s.Empty
}

// ExtractAll runs ExtractPaper over a set of papers, reporting progress
// to w. Only papers with at least one measurement produce a record.
// A cancelled context stops the batch and returns what was done so far.
func ExtractAll(ctx context.Context, w io.Writer, v *Validator, papers []types.Paper) ([]types.ExtractionRecord, BatchSummary, error) {
	var records []types.ExtractionRecord
	var summary BatchSummary

	for _, paper := range papers {
		select {
		case <-ctx.Done():
			return records, summary, ctx.Err()
		default:
		}

		fmt.Fprintf(w, "extracting %s\n", paper.ArxivID)

		rec := ExtractPaper(ctx, v, paper)
		if !rec.HasMeasurements() {
			fmt.Fprintf(w, "skipped %s (no parameters)\n", paper.ArxivID)
			summary.Empty++
			continue
		}

		n := len(rec.Temperatures) + len(rec.Densities)
		fmt.Fprintf(w, "extracted %s (%d measurements)\n", paper.ArxivID, n)
		summary.WithParameters++
		summary.Measurements += n
		records = append(records, rec)
	}

	return records, summary, nil
}
