// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sparql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

// queryPrefixes heads every canned query so each one is executable on
// its own.
const queryPrefixes = `PREFIX : <http://example.org/plasma#>
PREFIX paper: <http://example.org/plasma/paper/>
PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
`

// ListPapers pages through papers, newest first. Non-positive limits
// fall back to 20, negative offsets to 0.
func ListPapers(limit, offset int) string {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return queryPrefixes + fmt.Sprintf(`
SELECT ?arxivId ?title ?authors ?publicationDate
WHERE {
  ?paper a :Paper ;
         :arxivId ?arxivId ;
         :title ?title .
  OPTIONAL { ?paper :authors ?authors }
  OPTIONAL { ?paper :publicationDate ?publicationDate }
}
ORDER BY DESC(?publicationDate)
LIMIT %d
OFFSET %d`, limit, offset)
}

// CountPapers counts distinct papers in the graph.
func CountPapers() string {
	return queryPrefixes + `
SELECT (COUNT(DISTINCT ?paper) as ?count)
WHERE {
  ?paper a :Paper .
}`
}

// PaperByID fetches one paper's metadata by its arXiv identifier.
func PaperByID(arxivID string) string {
	return queryPrefixes + fmt.Sprintf(`
SELECT ?title ?authors ?abstract ?publicationDate ?pdfUrl
WHERE {
  ?paper a :Paper ;
         :arxivId "%s" ;
         :title ?title .
  OPTIONAL { ?paper :authors ?authors }
  OPTIONAL { ?paper :abstract ?abstract }
  OPTIONAL { ?paper :publicationDate ?publicationDate }
  OPTIONAL { ?paper :pdfUrl ?pdfUrl }
}`, escapeLiteral(arxivID))
}

// Measurements lists measurements of one parameter kind with their
// papers, largest normalized value first. Nil bounds are unconstrained;
// a pointer to zero is a real bound.
func Measurements(kind types.ParameterKind, min, max *float64, limit int) string {
	if limit <= 0 {
		limit = 100
	}
	class, normVar := ":Temperature", "?normTemp"
	if kind == types.KindDensity {
		class, normVar = ":Density", "?normDens"
	}

	var conditions []string
	if min != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= %s", normVar, formatFloat(*min)))
	}
	if max != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= %s", normVar, formatFloat(*max)))
	}
	filter := ""
	if len(conditions) > 0 {
		filter = fmt.Sprintf("  FILTER(%s)\n", strings.Join(conditions, " && "))
	}

	return queryPrefixes + fmt.Sprintf(`
SELECT ?arxivId ?title ?value ?unit %[1]s ?confidence ?context
WHERE {
  ?paper a :Paper ;
         :arxivId ?arxivId ;
         :title ?title ;
         :reports ?measurement .
  ?measurement :measuresParameter ?param ;
               :confidence ?confidence .
  OPTIONAL { ?measurement :context ?context }
  ?param a %[2]s ;
         :value ?value ;
         :unitString ?unit ;
         :normalizedValue %[1]s .
%[3]s}
ORDER BY DESC(%[1]s)
LIMIT %[4]d`, normVar, class, filter, limit)
}

// Statistics aggregates one parameter kind over the whole graph.
// Temperatures are rounded to two decimals for display; densities span
// many orders of magnitude, so rounding them would only destroy digits.
func Statistics(kind types.ParameterKind) string {
	if kind == types.KindDensity {
		return queryPrefixes + `
SELECT
  (COUNT(?dens) as ?count)
  (AVG(?normValue) as ?avgDensity)
  (MAX(?normValue) as ?maxDensity)
  (MIN(?normValue) as ?minDensity)
WHERE {
  ?dens a :Density ;
        :normalizedValue ?normValue .
}`
	}
	return queryPrefixes + `
SELECT
  (COUNT(?temp) as ?count)
  (ROUND(AVG(?normValue) * 100) / 100 as ?avgKeV)
  (ROUND(MAX(?normValue) * 100) / 100 as ?maxKeV)
  (ROUND(MIN(?normValue) * 100) / 100 as ?minKeV)
WHERE {
  ?temp a :Temperature ;
        :normalizedValue ?normValue .
}`
}

// PapersWithBothParameters finds papers reporting both a temperature
// and a density measurement.
func PapersWithBothParameters() string {
	return queryPrefixes + `
SELECT DISTINCT ?arxivId ?title
WHERE {
  ?paper a :Paper ;
         :arxivId ?arxivId ;
         :title ?title ;
         :reports ?meas1 ;
         :reports ?meas2 .
  ?meas1 :measuresParameter ?temp .
  ?temp a :Temperature .
  ?meas2 :measuresParameter ?dens .
  ?dens a :Density .
}`
}

// SearchPapers matches a term against titles and abstracts,
// case-insensitive.
func SearchPapers(term string, limit int) string {
	if limit <= 0 {
		limit = 20
	}
	pattern := escapeLiteral(term)
	return queryPrefixes + fmt.Sprintf(`
SELECT DISTINCT ?arxivId ?title ?authors
WHERE {
  ?paper a :Paper ;
         :arxivId ?arxivId ;
         :title ?title .
  OPTIONAL { ?paper :authors ?authors }
  OPTIONAL { ?paper :abstract ?abstract }
  FILTER(
    REGEX(?title, "%[1]s", "i") ||
    REGEX(?abstract, "%[1]s", "i")
  )
}
LIMIT %[2]d`, pattern, limit)
}

// escapeLiteral keeps caller-supplied text inside its quoted literal.
func escapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
