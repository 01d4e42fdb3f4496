// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

// Prologue is the prefix block every compiled query starts with. The
// names match the vocabulary the graph exporter publishes.
const Prologue = `PREFIX : <http://example.org/plasma#>
PREFIX paper: <http://example.org/plasma/paper/>
PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>
`

// recentWindowDays is the rolling window a "recent" constraint selects.
const recentWindowDays = 730

// Builder compiles parsed queries into self-contained SPARQL strings.
// The zero value is ready to use.
type Builder struct {
	// Now supplies the clock for the "recent" cutoff. Nil means time.Now,
	// tests inject a fixed clock.
	Now func() time.Time
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// filterVars names the SPARQL variables one parameter kind binds. Both
// kinds share the same triple shape, only the names differ.
type filterVars struct {
	comment string
	meas    string
	param   string
	class   string
	value   string
	unit    string
	norm    string
}

var (
	temperatureVars = filterVars{
		comment: "Temperature filter",
		meas:    "?tempMeas",
		param:   "?temp",
		class:   ":Temperature",
		value:   "?tempValue",
		unit:    "?tempUnit",
		norm:    "?tempNormalized",
	}
	densityVars = filterVars{
		comment: "Density filter",
		meas:    "?densMeas",
		param:   "?dens",
		class:   ":Density",
		value:   "?densValue",
		unit:    "?densUnit",
		norm:    "?densNormalized",
	}
)

// Search compiles a paper search. Parameter ranges become measurement
// joins with inclusive bound filters, keywords become a title regex, and
// a temporal constraint both filters and switches the result order to
// newest first. A non-positive limit falls back to 20.
func (b *Builder) Search(parsed types.ParsedQuery, limit int) string {
	if limit <= 0 {
		limit = 20
	}

	tempRange, hasTemp := parsed.Parameters[types.KindTemperature]
	densRange, hasDens := parsed.Parameters[types.KindDensity]

	selectVars := []string{"?paper", "?title", "?authors", "?publicationDate"}
	if hasTemp {
		selectVars = append(selectVars, temperatureVars.value, temperatureVars.unit, temperatureVars.norm)
	}
	if hasDens {
		selectVars = append(selectVars, densityVars.value, densityVars.unit, densityVars.norm)
	}

	var q strings.Builder
	q.WriteString(Prologue)
	q.WriteString("\n")
	q.WriteString("SELECT DISTINCT " + strings.Join(selectVars, " ") + "\n")
	q.WriteString("WHERE {\n")
	q.WriteString("  ?paper a :Paper ;\n")
	q.WriteString("         :title ?title .\n")
	q.WriteString("  OPTIONAL { ?paper :authors ?authors }\n")
	q.WriteString("  OPTIONAL { ?paper :publicationDate ?publicationDate }\n\n")

	if hasTemp {
		writeMeasurementFilter(&q, temperatureVars, tempRange)
	}
	if hasDens {
		writeMeasurementFilter(&q, densityVars, densRange)
	}
	if parsed.TemporalConstraint != "" {
		q.WriteString(b.temporalFilter(parsed.TemporalConstraint))
	}
	if len(parsed.Keywords) > 0 {
		q.WriteString(keywordFilter(parsed.Keywords))
	}

	q.WriteString("}\n")
	if parsed.TemporalConstraint != "" {
		q.WriteString("ORDER BY DESC(?publicationDate)\n")
	} else {
		q.WriteString("ORDER BY ?title\n")
	}
	fmt.Fprintf(&q, "LIMIT %d", limit)

	return q.String()
}

// writeMeasurementFilter emits the triple block joining papers to one
// parameter kind, plus the bound filter when the range has bounds. Bounds
// are inclusive on both sides, and a pointer to zero is a real bound.
func writeMeasurementFilter(q *strings.Builder, v filterVars, r types.ParameterRange) {
	fmt.Fprintf(q, "  # %s\n", v.comment)
	fmt.Fprintf(q, "  ?paper :reports %s .\n", v.meas)
	fmt.Fprintf(q, "  %s :measuresParameter %s .\n", v.meas, v.param)
	fmt.Fprintf(q, "  %s a %s ;\n", v.param, v.class)
	fmt.Fprintf(q, "        :value %s ;\n", v.value)
	fmt.Fprintf(q, "        :unitString %s ;\n", v.unit)
	fmt.Fprintf(q, "        :normalizedValue %s .\n", v.norm)

	if clause := boundFilter(v.norm, r); clause != "" {
		q.WriteString(clause)
	}
	q.WriteString("\n")
}

func boundFilter(normVar string, r types.ParameterRange) string {
	var parts []string
	if r.NormalizedMin != nil {
		parts = append(parts, fmt.Sprintf("%s >= %s", normVar, formatFloat(*r.NormalizedMin)))
	}
	if r.NormalizedMax != nil {
		parts = append(parts, fmt.Sprintf("%s <= %s", normVar, formatFloat(*r.NormalizedMax)))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("  FILTER(%s)\n", strings.Join(parts, " && "))
}

func (b *Builder) temporalFilter(temporal string) string {
	if temporal == "recent" {
		cutoff := b.now().AddDate(0, 0, -recentWindowDays).Format("2006-01-02")
		return fmt.Sprintf("  FILTER(?publicationDate >= \"%s\"^^xsd:date)\n\n", cutoff)
	}
	if isYear(temporal) {
		return fmt.Sprintf("  FILTER(YEAR(?publicationDate) = %s)\n\n", temporal)
	}
	return ""
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// keywordFilter matches any keyword against the title, case-insensitive.
func keywordFilter(keywords []string) string {
	escaped := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		escaped = append(escaped, escapePattern(kw))
	}
	pattern := strings.Join(escaped, "|")
	return fmt.Sprintf("  FILTER(REGEX(?title, \"%s\", \"i\"))\n\n", pattern)
}

// escapePattern keeps a keyword from breaking out of the quoted regex
// literal. The keyword itself is still treated as a regex alternative.
func escapePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// Statistics compiles an aggregate query over one parameter kind. When
// both kinds carry ranges, temperature wins; questions mixing both get
// temperature statistics rather than an error. With no ranged parameter
// at all there is nothing to aggregate, which is an error.
func (b *Builder) Statistics(parsed types.ParsedQuery) (string, error) {
	if r, ok := parsed.Parameters[types.KindTemperature]; ok {
		return statisticsQuery(temperatureVars, "KeV", r), nil
	}
	if r, ok := parsed.Parameters[types.KindDensity]; ok {
		return statisticsQuery(densityVars, "Density", r), nil
	}
	return "", fmt.Errorf("statistics query needs a temperature or density range")
}

func statisticsQuery(v filterVars, suffix string, r types.ParameterRange) string {
	var q strings.Builder
	q.WriteString(Prologue)
	q.WriteString("\n")
	q.WriteString("SELECT\n")
	fmt.Fprintf(&q, "  (COUNT(%s) as ?count)\n", v.param)
	fmt.Fprintf(&q, "  (AVG(?normValue) as ?avg%s)\n", suffix)
	fmt.Fprintf(&q, "  (MAX(?normValue) as ?max%s)\n", suffix)
	fmt.Fprintf(&q, "  (MIN(?normValue) as ?min%s)\n", suffix)
	q.WriteString("WHERE {\n")
	fmt.Fprintf(&q, "  %s a %s ;\n", v.param, v.class)
	q.WriteString("        :normalizedValue ?normValue .\n")

	if clause := boundFilter("?normValue", r); clause != "" {
		q.WriteString(clause)
	}
	q.WriteString("}")

	return q.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
