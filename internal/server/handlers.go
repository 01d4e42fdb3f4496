// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/plasma-kg/internal/sparql"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

// defaultMeasurementLimit is the page size for measurement listings
// when the request does not give one.
const defaultMeasurementLimit = 100

// paperResponse is a paper as the API renders it. Fields absent from
// the graph are omitted.
type paperResponse struct {
	ArxivID         string `json:"arxiv_id"`
	Title           string `json:"title"`
	Authors         string `json:"authors,omitempty"`
	Abstract        string `json:"abstract,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`
	PDFURL          string `json:"pdf_url,omitempty"`
}

// paperListResponse pages papers with a total count for pagination.
type paperListResponse struct {
	Total  int             `json:"total"`
	Count  int             `json:"count"`
	Offset int             `json:"offset"`
	Papers []paperResponse `json:"papers"`
}

// measurementResponse is one measurement joined with its paper.
type measurementResponse struct {
	ArxivID         string  `json:"arxiv_id"`
	Title           string  `json:"title"`
	Value           float64 `json:"value"`
	Unit            string  `json:"unit"`
	NormalizedValue float64 `json:"normalized_value"`
	Confidence      string  `json:"confidence"`
	Context         string  `json:"context,omitempty"`
}

// temperatureStatistics aggregates temperatures in keV. The numeric
// fields are null when the graph has no temperatures at all.
type temperatureStatistics struct {
	Count  int      `json:"count"`
	AvgKeV *float64 `json:"avg_kev"`
	MaxKeV *float64 `json:"max_kev"`
	MinKeV *float64 `json:"min_kev"`
}

// densityStatistics aggregates densities in m^-3.
type densityStatistics struct {
	Count      int      `json:"count"`
	AvgDensity *float64 `json:"avg_density"`
	MaxDensity *float64 `json:"max_density"`
	MinDensity *float64 `json:"min_density"`
}

// statisticsResponse is the combined graph-wide view.
type statisticsResponse struct {
	Papers      int                   `json:"papers"`
	Temperature temperatureStatistics `json:"temperature"`
	Density     densityStatistics     `json:"density"`
}

// healthResponse reports API and triple-store status.
type healthResponse struct {
	Status          string `json:"status"`
	FusekiConnected bool   `json:"fuseki_connected"`
	Version         string `json:"version"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// --- parameter parsing ---

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// floatParam reads an optional non-negative float. Nil means the
// parameter was not given.
func floatParam(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	if v < 0 {
		return nil, fmt.Errorf("%s must not be negative", name)
	}
	return &v, nil
}

func pageLimit(r *http.Request, fallback, max int) (int, error) {
	limit, err := intParam(r, "limit", fallback)
	if err != nil {
		return 0, err
	}
	if limit < 1 || limit > max {
		return 0, fmt.Errorf("limit must be between 1 and %d", max)
	}
	return limit, nil
}

// --- binding helpers ---

// dedupPapers keeps the first row per arXiv id, preserving query order.
func dedupPapers(rows []sparql.Row) []paperResponse {
	papers := make([]paperResponse, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		id := row["arxivId"]
		if seen[id] {
			continue
		}
		seen[id] = true
		papers = append(papers, paperResponse{
			ArxivID:         id,
			Title:           row["title"],
			Authors:         row["authors"],
			PublicationDate: row["publicationDate"],
		})
	}
	return papers
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// floatPtr parses an aggregate binding. Unbound variables (empty
// lexical form) come back nil, which renders as JSON null.
func floatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, connected := "ok", true
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Warnw("triple store unreachable", "error", err)
		status, connected = "degraded", false
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          status,
		FusekiConnected: connected,
		Version:         s.Version,
	})
}

func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	limit, err := pageLimit(r, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		s.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	total, err := s.store.Count(r.Context(), sparql.CountPapers())
	if err != nil {
		s.log.Errorw("counting papers", "error", err)
		s.writeError(w, http.StatusInternalServerError, "counting papers: %v", err)
		return
	}
	rows, err := s.store.Query(r.Context(), sparql.ListPapers(limit, offset))
	if err != nil {
		s.log.Errorw("listing papers", "error", err)
		s.writeError(w, http.StatusInternalServerError, "listing papers: %v", err)
		return
	}

	papers := dedupPapers(rows)
	writeJSON(w, http.StatusOK, paperListResponse{
		Total:  total,
		Count:  len(papers),
		Offset: offset,
		Papers: papers,
	})
}

func (s *Server) handlePaper(w http.ResponseWriter, r *http.Request) {
	arxivID := r.PathValue("id")
	rows, err := s.store.Query(r.Context(), sparql.PaperByID(arxivID))
	if err != nil {
		s.log.Errorw("fetching paper", "arxiv_id", arxivID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "fetching paper: %v", err)
		return
	}
	if len(rows) == 0 {
		s.writeError(w, http.StatusNotFound, "paper %s not found", arxivID)
		return
	}

	row := rows[0]
	writeJSON(w, http.StatusOK, paperResponse{
		ArxivID:         arxivID,
		Title:           row["title"],
		Authors:         row["authors"],
		Abstract:        row["abstract"],
		PublicationDate: row["publicationDate"],
		PDFURL:          row["pdfUrl"],
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := pageLimit(r, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	rows, err := s.store.Query(r.Context(), sparql.SearchPapers(term, limit))
	if err != nil {
		s.log.Errorw("searching papers", "q", term, "error", err)
		s.writeError(w, http.StatusInternalServerError, "searching papers: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, dedupPapers(rows))
}

func (s *Server) handleTemperatures(w http.ResponseWriter, r *http.Request) {
	s.handleMeasurements(w, r, types.KindTemperature, "min_temp", "max_temp", "normTemp")
}

func (s *Server) handleDensities(w http.ResponseWriter, r *http.Request) {
	s.handleMeasurements(w, r, types.KindDensity, "min_density", "max_density", "normDens")
}

// handleMeasurements serves both measurement listings; only the
// parameter names and the normalized-value variable differ by kind.
func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request, kind types.ParameterKind, minName, maxName, normVar string) {
	min, err := floatParam(r, minName)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	max, err := floatParam(r, maxName)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	limit, err := pageLimit(r, defaultMeasurementLimit, s.cfg.MaxMeasurementPageSize)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	rows, err := s.store.Query(r.Context(), sparql.Measurements(kind, min, max, limit))
	if err != nil {
		s.log.Errorw("listing measurements", "kind", kind, "error", err)
		s.writeError(w, http.StatusInternalServerError, "listing measurements: %v", err)
		return
	}

	out := make([]measurementResponse, 0, len(rows))
	for _, row := range rows {
		confidence := row["confidence"]
		if confidence == "" {
			confidence = "unknown"
		}
		out = append(out, measurementResponse{
			ArxivID:         row["arxivId"],
			Title:           row["title"],
			Value:           parseFloatOrZero(row["value"]),
			Unit:            row["unit"],
			NormalizedValue: parseFloatOrZero(row[normVar]),
			Confidence:      confidence,
			Context:         row["context"],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) temperatureStats(r *http.Request) (temperatureStatistics, error) {
	rows, err := s.store.Query(r.Context(), sparql.Statistics(types.KindTemperature))
	if err != nil || len(rows) == 0 {
		return temperatureStatistics{}, err
	}
	row := rows[0]
	return temperatureStatistics{
		Count:  atoiOrZero(row["count"]),
		AvgKeV: floatPtr(row["avgKeV"]),
		MaxKeV: floatPtr(row["maxKeV"]),
		MinKeV: floatPtr(row["minKeV"]),
	}, nil
}

func (s *Server) densityStats(r *http.Request) (densityStatistics, error) {
	rows, err := s.store.Query(r.Context(), sparql.Statistics(types.KindDensity))
	if err != nil || len(rows) == 0 {
		return densityStatistics{}, err
	}
	row := rows[0]
	return densityStatistics{
		Count:      atoiOrZero(row["count"]),
		AvgDensity: floatPtr(row["avgDensity"]),
		MaxDensity: floatPtr(row["maxDensity"]),
		MinDensity: floatPtr(row["minDensity"]),
	}, nil
}

func (s *Server) handleTemperatureStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.temperatureStats(r)
	if err != nil {
		s.log.Errorw("temperature statistics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "computing statistics: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDensityStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.densityStats(r)
	if err != nil {
		s.log.Errorw("density statistics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "computing statistics: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	papers, err := s.store.Count(r.Context(), sparql.CountPapers())
	if err != nil {
		s.log.Errorw("counting papers", "error", err)
		s.writeError(w, http.StatusInternalServerError, "computing statistics: %v", err)
		return
	}
	temp, err := s.temperatureStats(r)
	if err != nil {
		s.log.Errorw("temperature statistics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "computing statistics: %v", err)
		return
	}
	dens, err := s.densityStats(r)
	if err != nil {
		s.log.Errorw("density statistics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "computing statistics: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, statisticsResponse{
		Papers:      papers,
		Temperature: temp,
		Density:     dens,
	})
}

// --- natural-language query ---

// nlQueryRequest is the POST /query/natural-language body. A zero
// limit takes the default page size.
type nlQueryRequest struct {
	Query         string `json:"query"`
	Limit         int    `json:"limit"`
	IncludeSPARQL bool   `json:"include_sparql"`
}

// nlQueryResponse reports what was understood alongside the matches.
type nlQueryResponse struct {
	ParsedQuery     types.ParsedQuery `json:"parsed_query"`
	Papers          []paperResponse   `json:"papers"`
	TotalResults    int               `json:"total_results"`
	GeneratedSPARQL string            `json:"generated_sparql,omitempty"`
	ExecutionTimeMS float64           `json:"execution_time_ms"`
}

func (s *Server) handleNaturalLanguage(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req nlQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if len(strings.TrimSpace(req.Query)) < 3 {
		s.writeError(w, http.StatusBadRequest, "query must be at least 3 characters")
		return
	}
	if req.Limit == 0 {
		req.Limit = s.cfg.DefaultPageSize
	}
	if req.Limit < 1 || req.Limit > s.cfg.MaxPageSize {
		s.writeError(w, http.StatusBadRequest, "limit must be between 1 and %d", s.cfg.MaxPageSize)
		return
	}

	parsed, err := s.interp.Interpret(r.Context(), req.Query)
	if err != nil {
		s.log.Errorw("interpreting query", "query", req.Query, "error", err)
		s.writeError(w, http.StatusInternalServerError, "interpreting query: %v", err)
		return
	}
	s.log.Infow("interpreted query",
		"intent", parsed.Intent,
		"parameters", len(parsed.Parameters),
		"confidence", parsed.Confidence)

	var compiled string
	if parsed.Intent == types.IntentStatistics {
		compiled, err = s.builder.Statistics(parsed)
		if err != nil {
			s.log.Errorw("compiling statistics query", "error", err)
			s.writeError(w, http.StatusInternalServerError, "compiling query: %v", err)
			return
		}
	} else {
		compiled = s.builder.Search(parsed, req.Limit)
	}

	rows, err := s.store.Query(r.Context(), compiled)
	if err != nil {
		s.log.Errorw("executing query", "error", err)
		s.writeError(w, http.StatusInternalServerError, "executing query: %v", err)
		return
	}

	resp := nlQueryResponse{
		ParsedQuery:     parsed,
		Papers:          paperURIRows(rows),
		ExecutionTimeMS: math.Round(float64(time.Since(started).Microseconds())/10) / 100,
	}
	resp.TotalResults = len(resp.Papers)
	if req.IncludeSPARQL {
		resp.GeneratedSPARQL = compiled
	}
	writeJSON(w, http.StatusOK, resp)
}

// paperURIRows turns compiled-query solutions into papers, taking the
// arXiv id from the tail of the ?paper URI and keeping the first row
// per paper. Rows without a paper binding (aggregates) are skipped.
func paperURIRows(rows []sparql.Row) []paperResponse {
	papers := make([]paperResponse, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		uri := row["paper"]
		if uri == "" {
			continue
		}
		id := uri[strings.LastIndex(uri, "/")+1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		papers = append(papers, paperResponse{
			ArxivID:         id,
			Title:           row["title"],
			Authors:         row["authors"],
			PublicationDate: row["publicationDate"],
		})
	}
	return papers
}
