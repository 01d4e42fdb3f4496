// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns natural-language questions about the literature
// into structured queries and compiles those into SPARQL. Interpretation
// prefers the generative oracle and falls back to pattern matching, so a
// question always produces something executable.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/plasma-kg/internal/extract"
	"github.com/pdiddy/plasma-kg/internal/units"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

// Confidence levels reported on parsed queries. The oracle's own figure
// wins when it gives one.
const (
	oracleDefaultConfidence = 0.8
	fallbackConfidence      = 0.5
)

// interpretPromptTmpl instructs the oracle to emit one JSON object
// describing the question. The worked examples pin down scientific
// notation and qualitative phrases like "low temperature".
var interpretPromptTmpl = template.Must(template.New("interpret").Parse(`You are a plasma physics query parser. Extract structured information from this query:

Query: "{{.Question}}"

Extract the following in JSON format:
1. intent: "search" (find papers), "statistics" (get stats), or "compare" (compare values)
2. parameters: dict with "temperature" and/or "density" containing:
   - min_value: minimum value (number or null)
   - max_value: maximum value (number or null)
   - unit: unit of measurement (keV, eV, K for temp; m^-3, cm^-3 for density)
3. keywords: list of physics domain keywords (e.g., ["tokamak", "plasma", "confinement"])
4. temporal_constraint: "recent" (last 2 years), "YYYY" (specific year), or null

Handle scientific notation like:
- "10^16 to 10^18 m^-3" → min: 1e16, max: 1e18
- "between 5 and 10 keV" → min: 5, max: 10
- "above 10 keV" → min: 10, max: null
- "low temperature" → max: 1 keV (infer)

Return ONLY valid JSON, no markdown:
{
  "intent": "search",
  "parameters": {
    "temperature": {"min_value": 5.0, "max_value": 10.0, "unit": "keV"},
    "density": {"min_value": 1e16, "max_value": 1e18, "unit": "m^-3"}
  },
  "keywords": ["plasma", "electron"],
  "temporal_constraint": "recent",
  "confidence": 0.9
}`))

// Interpreter parses questions. With an Oracle it asks the model first;
// without one, or when the oracle fails, the pattern fallback answers.
type Interpreter struct {
	Oracle extract.Oracle

	// Warnings receives one line per oracle failure. Nil means discard.
	Warnings io.Writer
}

// oracleRange mirrors one parameter entry in the oracle's JSON reply.
type oracleRange struct {
	MinValue *float64 `json:"min_value"`
	MaxValue *float64 `json:"max_value"`
	Unit     string   `json:"unit"`
}

// oracleQuery mirrors the oracle's JSON reply. TemporalConstraint is
// decoded loosely because models answer both "2023" and 2023.
type oracleQuery struct {
	Intent             string                  `json:"intent"`
	Parameters         map[string]*oracleRange `json:"parameters"`
	Keywords           []string                `json:"keywords"`
	TemporalConstraint any                     `json:"temporal_constraint"`
	Confidence         *float64                `json:"confidence"`
}

// Interpret parses a question into a structured query. An empty question
// is an error; everything else succeeds, at worst with the low-confidence
// pattern fallback.
func (in *Interpreter) Interpret(ctx context.Context, question string) (types.ParsedQuery, error) {
	if strings.TrimSpace(question) == "" {
		return types.ParsedQuery{}, fmt.Errorf("empty question")
	}

	if in.Oracle != nil {
		parsed, err := in.interpretWithOracle(ctx, question)
		if err == nil {
			return parsed, nil
		}
		in.warnf("oracle interpretation failed, using fallback: %v", err)
	}

	return in.fallback(question), nil
}

func (in *Interpreter) warnf(format string, args ...any) {
	if in.Warnings == nil {
		return
	}
	fmt.Fprintf(in.Warnings, format+"\n", args...)
}

func (in *Interpreter) interpretWithOracle(ctx context.Context, question string) (types.ParsedQuery, error) {
	var buf bytes.Buffer
	if err := interpretPromptTmpl.Execute(&buf, struct{ Question string }{Question: question}); err != nil {
		return types.ParsedQuery{}, fmt.Errorf("rendering prompt: %w", err)
	}

	reply, err := in.Oracle.Complete(ctx, buf.String())
	if err != nil {
		return types.ParsedQuery{}, err
	}

	content := extract.StripFences(reply)

	var decoded oracleQuery
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		return types.ParsedQuery{}, fmt.Errorf("decoding reply: %w", err)
	}

	parameters := make(map[types.ParameterKind]types.ParameterRange)
	for key, data := range decoded.Parameters {
		if data == nil {
			continue
		}
		kind, ok := parameterKind(key)
		if !ok {
			continue
		}
		unit := data.Unit
		if unit == "" {
			unit = "unknown"
		}
		r := types.ParameterRange{
			MinValue: data.MinValue,
			MaxValue: data.MaxValue,
			Unit:     unit,
		}
		parameters[kind] = units.NormalizeRange(r, kind)
	}

	confidence := oracleDefaultConfidence
	if decoded.Confidence != nil {
		confidence = *decoded.Confidence
	}

	return types.ParsedQuery{
		Intent:             normalizeIntent(decoded.Intent),
		Parameters:         parameters,
		Keywords:           cleanKeywords(decoded.Keywords),
		TemporalConstraint: temporalString(decoded.TemporalConstraint),
		Confidence:         confidence,
		OriginalText:       question,
		RawOracleResponse:  content,
	}, nil
}

func parameterKind(key string) (types.ParameterKind, bool) {
	switch types.ParameterKind(strings.ToLower(strings.TrimSpace(key))) {
	case types.KindTemperature:
		return types.KindTemperature, true
	case types.KindDensity:
		return types.KindDensity, true
	}
	return "", false
}

func normalizeIntent(s string) types.Intent {
	switch types.Intent(strings.ToLower(strings.TrimSpace(s))) {
	case types.IntentStatistics:
		return types.IntentStatistics
	case types.IntentCompare:
		return types.IntentCompare
	default:
		return types.IntentSearch
	}
}

func cleanKeywords(keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// temporalString folds the loosely-typed temporal constraint into "",
// "recent", or a year string.
func temporalString(v any) string {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return ""
		}
		return s
	case float64:
		return strconv.Itoa(int(t))
	}
	return ""
}

// Fallback interpretation. The patterns only understand the most common
// phrasings: a temperature with an optional "to"-range, a density range
// in scientific notation, a fixed keyword vocabulary, and "recent" or a
// bare year.
var (
	fallbackTemperatureRe = regexp.MustCompile(`(?i)temperature.*?(\d+\.?\d*)\s*(?:to|-)?\s*(\d+\.?\d*)?\s*(keV|eV|K)`)
	fallbackDensityRe     = regexp.MustCompile(`(?i)density.*?(\d+\.?\d*)\s*[×x]?\s*10\^?([+-]?\d+).*?(?:to|and)?\s*(\d+\.?\d*)\s*[×x]?\s*10\^?([+-]?\d+)?\s*(m\^?-?3|cm\^?-?3)`)
	fallbackYearRe        = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

// fallbackKeywords is checked in order so keyword lists come out stable.
var fallbackKeywords = []string{"tokamak", "plasma", "fusion", "confinement", "electron", "ion"}

func (in *Interpreter) fallback(question string) types.ParsedQuery {
	parameters := make(map[types.ParameterKind]types.ParameterRange)

	if m := fallbackTemperatureRe.FindStringSubmatch(question); m != nil {
		r := types.ParameterRange{Unit: m[3]}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.MinValue = &v
		}
		if m[2] != "" {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				r.MaxValue = &v
			}
		}
		parameters[types.KindTemperature] = units.NormalizeRange(r, types.KindTemperature)
	}

	if m := fallbackDensityRe.FindStringSubmatch(question); m != nil {
		r := types.ParameterRange{Unit: m[5]}
		if v, ok := sciValue(m[1], m[2]); ok {
			r.MinValue = &v
		}
		if m[3] != "" && m[4] != "" {
			if v, ok := sciValue(m[3], m[4]); ok {
				r.MaxValue = &v
			}
		}
		parameters[types.KindDensity] = units.NormalizeRange(r, types.KindDensity)
	}

	lower := strings.ToLower(question)

	var keywords []string
	for _, kw := range fallbackKeywords {
		if strings.Contains(lower, kw) {
			keywords = append(keywords, kw)
		}
	}

	temporal := ""
	if strings.Contains(lower, "recent") {
		temporal = "recent"
	} else if m := fallbackYearRe.FindStringSubmatch(question); m != nil {
		temporal = m[1]
	}

	return types.ParsedQuery{
		Intent:             types.IntentSearch,
		Parameters:         parameters,
		Keywords:           keywords,
		TemporalConstraint: temporal,
		Confidence:         fallbackConfidence,
		OriginalText:       question,
	}
}

// sciValue combines a mantissa and a base-10 exponent.
func sciValue(mantissa, exponent string) (float64, bool) {
	m, err := strconv.ParseFloat(mantissa, 64)
	if err != nil {
		return 0, false
	}
	e, err := strconv.Atoi(exponent)
	if err != nil {
		return 0, false
	}
	return m * math.Pow(10, float64(e)), true
}
