// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

const defaultPageSize = 20

// Papers returns a page of papers ordered by publication date, newest
// first. limit <= 0 selects the default page size.
func (s *Store) Papers(ctx context.Context, limit, offset int) ([]types.Paper, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT arxiv_id, title, abstract, authors, categories, published, pdf_url, collected_at
		 FROM papers ORDER BY published DESC, arxiv_id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	return collectPapers(rows)
}

// Paper returns a single paper by arXiv ID, or ErrNotFound.
func (s *Store) Paper(ctx context.Context, arxivID string) (types.Paper, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT arxiv_id, title, abstract, authors, categories, published, pdf_url, collected_at
		 FROM papers WHERE arxiv_id = ?`, arxivID)

	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Paper{}, ErrNotFound
	}
	if err != nil {
		return types.Paper{}, fmt.Errorf("loading paper %s: %w", arxivID, err)
	}
	return p, nil
}

// PaperCount returns the number of papers in the catalog.
func (s *Store) PaperCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

// Search runs an FTS5 full-text query over paper titles and abstracts,
// ranked by relevance. limit <= 0 selects the default page size.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.arxiv_id, p.title, p.abstract, p.authors, p.categories, p.published, p.pdf_url, p.collected_at
		 FROM papers_fts
		 JOIN papers p ON p.rowid = papers_fts.rowid
		 WHERE papers_fts MATCH ?
		 ORDER BY papers_fts.rank LIMIT ?`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching papers: %w", err)
	}
	defer rows.Close()

	return collectPapers(rows)
}

// StoredMeasurement is a measurement joined with the paper it came from.
type StoredMeasurement struct {
	types.NormalizedMeasurement

	ArxivID string `json:"arxiv_id" yaml:"arxiv_id"`
	Title   string `json:"title" yaml:"title"`
	Method  string `json:"method" yaml:"method"`
}

// MeasurementsByKind returns measurements of one parameter kind ordered
// by normalized value, largest first. limit <= 0 returns all rows.
func (s *Store) MeasurementsByKind(ctx context.Context, kind types.ParameterKind, limit int) ([]StoredMeasurement, error) {
	q := `SELECT m.arxiv_id, p.title, m.value, m.unit, m.normalized_value, m.confidence, m.method, m.context
	      FROM measurements m
	      JOIN papers p ON p.arxiv_id = m.arxiv_id
	      WHERE m.kind = ?
	      ORDER BY m.normalized_value DESC`
	args := []any{string(kind)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying measurements: %w", err)
	}
	defer rows.Close()

	var results []StoredMeasurement
	for rows.Next() {
		var (
			sm         StoredMeasurement
			confidence string
		)
		if err := rows.Scan(
			&sm.ArxivID, &sm.Title, &sm.Value, &sm.Unit,
			&sm.NormalizedValue, &confidence, &sm.Method, &sm.Context,
		); err != nil {
			return nil, fmt.Errorf("scanning measurement: %w", err)
		}
		sm.Kind = kind
		sm.Confidence = types.Confidence(confidence)
		results = append(results, sm)
	}

	return results, rows.Err()
}

// ExtractionRecords loads every paper that has measurements, grouped per
// paper in the order the measurements were stored. The graph builder
// turns these back into Turtle.
func (s *Store) ExtractionRecords(ctx context.Context) ([]types.ExtractionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.arxiv_id, p.title, p.abstract, p.authors, p.categories, p.published, p.pdf_url, p.collected_at,
		        m.kind, m.value, m.unit, m.normalized_value, m.confidence, m.method, m.context
		 FROM measurements m
		 JOIN papers p ON p.arxiv_id = m.arxiv_id
		 ORDER BY m.arxiv_id, m.rowid`)
	if err != nil {
		return nil, fmt.Errorf("loading extraction records: %w", err)
	}
	defer rows.Close()

	var records []types.ExtractionRecord
	for rows.Next() {
		var (
			p                  types.Paper
			authorsJSON        string
			categoriesJSON     string
			published          string
			collected          string
			kind               string
			m                  types.NormalizedMeasurement
			confidence, method string
		)
		if err := rows.Scan(
			&p.ArxivID, &p.Title, &p.Abstract, &authorsJSON, &categoriesJSON,
			&published, &p.PDFURL, &collected,
			&kind, &m.Value, &m.Unit, &m.NormalizedValue, &confidence, &method, &m.Context,
		); err != nil {
			return nil, fmt.Errorf("scanning extraction row: %w", err)
		}

		if len(records) == 0 || records[len(records)-1].Paper.ArxivID != p.ArxivID {
			json.Unmarshal([]byte(authorsJSON), &p.Authors)
			json.Unmarshal([]byte(categoriesJSON), &p.Categories)
			p.Published = parseStoredTime(published)
			p.CollectedAt = parseStoredTime(collected)
			records = append(records, types.ExtractionRecord{Paper: p, Method: method})
		}

		rec := &records[len(records)-1]
		m.Kind = types.ParameterKind(kind)
		m.Confidence = types.Confidence(confidence)
		switch m.Kind {
		case types.KindDensity:
			rec.Densities = append(rec.Densities, m)
		default:
			rec.Temperatures = append(rec.Temperatures, m)
		}
	}

	return records, rows.Err()
}

// Status summarizes catalog contents.
type Status struct {
	Papers           int    `json:"papers" yaml:"papers"`
	WithMeasurements int    `json:"with_measurements" yaml:"with_measurements"`
	Temperatures     int    `json:"temperatures" yaml:"temperatures"`
	Densities        int    `json:"densities" yaml:"densities"`
	Path             string `json:"path" yaml:"path"`
}

// Status reports row counts for the status command.
func (s *Store) Status(ctx context.Context) (Status, error) {
	st := Status{Path: s.path}

	counts := []struct {
		query string
		args  []any
		dest  *int
	}{
		{`SELECT count(*) FROM papers`, nil, &st.Papers},
		{`SELECT count(DISTINCT arxiv_id) FROM measurements`, nil, &st.WithMeasurements},
		{`SELECT count(*) FROM measurements WHERE kind = ?`, []any{string(types.KindTemperature)}, &st.Temperatures},
		{`SELECT count(*) FROM measurements WHERE kind = ?`, []any{string(types.KindDensity)}, &st.Densities},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return Status{}, fmt.Errorf("counting rows: %w", err)
		}
	}

	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (types.Paper, error) {
	var (
		p              types.Paper
		authorsJSON    string
		categoriesJSON string
		published      string
		collected      string
	)
	if err := row.Scan(
		&p.ArxivID, &p.Title, &p.Abstract, &authorsJSON, &categoriesJSON,
		&published, &p.PDFURL, &collected,
	); err != nil {
		return types.Paper{}, err
	}

	json.Unmarshal([]byte(authorsJSON), &p.Authors)
	json.Unmarshal([]byte(categoriesJSON), &p.Categories)
	p.Published = parseStoredTime(published)
	p.CollectedAt = parseStoredTime(collected)
	return p, nil
}

func collectPapers(rows *sql.Rows) ([]types.Paper, error) {
	var papers []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

func parseStoredTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
