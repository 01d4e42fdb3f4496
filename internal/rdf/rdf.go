// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rdf serializes extraction records as Turtle documents for
// loading into the triple store. The vocabulary matches what the SPARQL
// layer queries: papers report measurements, measurements measure
// parameters, parameters carry raw and normalized values.
package rdf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

const (
	paperNS       = "http://example.org/plasma/paper/"
	measurementNS = "http://example.org/plasma/measurement/"
	parameterNS   = "http://example.org/plasma/parameter/"
)

// Literal length bounds. Abstracts and context snippets are quoted into
// single-line literals, so they are capped rather than streamed.
const (
	abstractLimit     = 500
	contextLimit      = 200
	titleCommentLimit = 80
)

// header is the prefix block every export starts with.
const header = `@prefix : <http://example.org/plasma#> .
@prefix paper: <http://example.org/plasma/paper/> .
@prefix meas: <http://example.org/plasma/measurement/> .
@prefix param: <http://example.org/plasma/parameter/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix dcterms: <http://purl.org/dc/terms/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
`

// Stats reports what one export contained.
type Stats struct {
	Papers       int
	Measurements int
}

// Write emits records as one Turtle document. Records without
// measurements are skipped; measurement and parameter URIs are numbered
// sequentially within the document.
func Write(w io.Writer, records []types.ExtractionRecord, now time.Time) (Stats, error) {
	kept := make([]types.ExtractionRecord, 0, len(records))
	for _, rec := range records {
		if rec.HasMeasurements() {
			kept = append(kept, rec)
		}
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString("# ============================================\n")
	b.WriteString("# Plasma Physics Knowledge Graph Data\n")
	fmt.Fprintf(&b, "# Generated: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "# Papers: %d\n", len(kept))
	b.WriteString("# ============================================\n\n")

	count := 0
	for _, rec := range kept {
		measurements := collectMeasurements(rec)

		uris := make([]string, len(measurements))
		for i := range uris {
			uris[i] = fmt.Sprintf("%sm%d", measurementNS, count+i+1)
		}
		writePaper(&b, rec.Paper, uris)

		for _, m := range measurements {
			count++
			writeMeasurement(&b, m, rec.Method,
				fmt.Sprintf("%sm%d", measurementNS, count),
				fmt.Sprintf("%sp%d", parameterNS, count))
		}
	}

	b.WriteString("# End of data\n")

	_, err := io.WriteString(w, b.String())
	return Stats{Papers: len(kept), Measurements: count}, err
}

// collectMeasurements flattens a record, temperatures first.
func collectMeasurements(rec types.ExtractionRecord) []types.NormalizedMeasurement {
	out := make([]types.NormalizedMeasurement, 0, len(rec.Temperatures)+len(rec.Densities))
	out = append(out, rec.Temperatures...)
	out = append(out, rec.Densities...)
	return out
}

func writePaper(b *strings.Builder, p types.Paper, measURIs []string) {
	b.WriteString("# Paper: " + truncate(escapeString(p.Title), titleCommentLimit) + "\n")
	fmt.Fprintf(b, "<%s> a :Paper ;\n", paperURI(p.ArxivID))

	props := []string{
		fmt.Sprintf(`:arxivId "%s"`, escapeString(p.ArxivID)),
		fmt.Sprintf(`:title "%s"`, escapeString(p.Title)),
	}
	if len(p.Authors) > 0 {
		props = append(props, fmt.Sprintf(`:authors "%s"`, escapeString(strings.Join(p.Authors, ", "))))
	}
	if !p.Published.IsZero() {
		props = append(props, fmt.Sprintf(`:publicationDate "%s"^^xsd:dateTime`, p.Published.Format(time.RFC3339)))
	}
	if p.PDFURL != "" {
		props = append(props, fmt.Sprintf(`:pdfUrl <%s>`, p.PDFURL))
	}
	if p.Abstract != "" {
		props = append(props, fmt.Sprintf(`:abstract "%s"`, escapeString(truncate(p.Abstract, abstractLimit))))
	}
	for _, uri := range measURIs {
		props = append(props, fmt.Sprintf(":reports <%s>", uri))
	}

	for i, prop := range props {
		sep := " ;"
		if i == len(props)-1 {
			sep = " ."
		}
		fmt.Fprintf(b, "    %s%s\n", prop, sep)
	}
	b.WriteString("\n")
}

func writeMeasurement(b *strings.Builder, m types.NormalizedMeasurement, method, measURI, paramURI string) {
	fmt.Fprintf(b, "<%s> a :Measurement ;\n", measURI)
	fmt.Fprintf(b, "    :measuresParameter <%s> ;\n", paramURI)
	fmt.Fprintf(b, "    :confidence \"%s\" ;\n", m.Confidence)
	fmt.Fprintf(b, "    :extractionMethod \"%s\" ;\n", method)
	if m.Context != "" {
		fmt.Fprintf(b, "    :context \"%s\" ;\n", escapeString(truncate(m.Context, contextLimit)))
	}
	b.WriteString("    .\n\n")

	class := ":Temperature"
	if m.Kind == types.KindDensity {
		class = ":Density"
	}
	fmt.Fprintf(b, "<%s> a %s ;\n", paramURI, class)
	fmt.Fprintf(b, "    :value %s ;\n", formatFloat(m.Value))
	fmt.Fprintf(b, "    :unitString \"%s\" ;\n", escapeString(m.Unit))
	fmt.Fprintf(b, "    :normalizedValue %s ;\n", formatFloat(m.NormalizedValue))
	b.WriteString("    .\n\n")
}

// paperURI builds the paper node URI. Spaces and slashes become
// underscores first (old-style arXiv IDs contain slashes), then
// everything outside the unreserved set is percent-encoded.
func paperURI(id string) string {
	id = strings.ReplaceAll(id, " ", "_")
	id = strings.ReplaceAll(id, "/", "_")
	return paperNS + encodeComponent(id)
}

func encodeComponent(s string) string {
	const upperhex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}

// escapeString keeps text inside a Turtle quoted literal. Newlines
// flatten to spaces so every literal stays on one line.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}

// truncate bounds s to max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
