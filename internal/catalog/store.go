// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog persists collected papers and their extracted
// measurements in a local SQLite database. The catalog is the working
// store between pipeline stages: collection fills it, extraction
// annotates it, and the graph builder reads it back out.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

const defaultPath = "data/catalog.db"

// ErrNotFound is returned when a requested paper is not in the catalog.
var ErrNotFound = errors.New("paper not found")

// Store manages the paper catalog SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the catalog database at cfg.Path, creating
// parent directories and the schema as needed.
func Open(cfg types.CatalogConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = defaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)`,
		`INSERT OR IGNORE INTO schema_version (version) VALUES (1)`,
		`CREATE TABLE IF NOT EXISTS papers (
			arxiv_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			abstract TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '[]',
			categories TEXT NOT NULL DEFAULT '[]',
			published TEXT NOT NULL DEFAULT '',
			pdf_url TEXT NOT NULL DEFAULT '',
			collected_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS measurements (
			id TEXT PRIMARY KEY,
			arxiv_id TEXT NOT NULL REFERENCES papers(arxiv_id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			value REAL NOT NULL,
			unit TEXT NOT NULL,
			normalized_value REAL NOT NULL,
			confidence TEXT NOT NULL,
			method TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_measurements_identity
			ON measurements(arxiv_id, kind, value, unit)`,
		`CREATE INDEX IF NOT EXISTS idx_measurements_kind ON measurements(kind)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, content=papers, content_rowid=rowid)`,
			`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
				INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
			`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			END`,
			`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
				INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// upsertPaperSQL stores collected_at as RFC3339 in UTC, so plain string
// comparison orders timestamps chronologically. The WHERE clause keeps
// the existing row when the incoming record is not strictly newer.
const upsertPaperSQL = `INSERT INTO papers (arxiv_id, title, abstract, authors, categories, published, pdf_url, collected_at)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	 ON CONFLICT(arxiv_id) DO UPDATE SET
		title=excluded.title, abstract=excluded.abstract, authors=excluded.authors,
		categories=excluded.categories, published=excluded.published,
		pdf_url=excluded.pdf_url, collected_at=excluded.collected_at
	 WHERE excluded.collected_at > papers.collected_at`

// UpsertPapers stores a batch of papers in one transaction. A paper
// already in the catalog is overwritten only when the incoming record
// was collected more recently; re-running a collection never replaces a
// fresh record with a stale one.
func (s *Store) UpsertPapers(ctx context.Context, papers []types.Paper) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPaperSQL)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range papers {
		if err := execUpsertPaper(ctx, stmt, p); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
}

func execUpsertPaper(ctx context.Context, stmt execer, p types.Paper) error {
	authorsJSON, _ := json.Marshal(p.Authors)
	categoriesJSON, _ := json.Marshal(p.Categories)

	published := ""
	if !p.Published.IsZero() {
		published = p.Published.UTC().Format(time.RFC3339)
	}

	_, err := stmt.ExecContext(ctx,
		p.ArxivID, p.Title, p.Abstract, string(authorsJSON), string(categoriesJSON),
		published, p.PDFURL, p.CollectedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", p.ArxivID, err)
	}
	return nil
}

// ReplaceMeasurements stores the extraction result for one paper: the
// paper row is upserted and any measurements previously extracted from
// it are replaced. Measurement IDs are deterministic, so re-running an
// extraction writes the same rows.
func (s *Store) ReplaceMeasurements(ctx context.Context, rec types.ExtractionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	paperStmt, err := tx.PrepareContext(ctx, upsertPaperSQL)
	if err != nil {
		return fmt.Errorf("preparing paper upsert: %w", err)
	}
	defer paperStmt.Close()

	if err := execUpsertPaper(ctx, paperStmt, rec.Paper); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM measurements WHERE arxiv_id = ?`, rec.Paper.ArxivID,
	); err != nil {
		return fmt.Errorf("deleting old measurements: %w", err)
	}

	// OR IGNORE keeps the first occurrence when two measurements share
	// the (kind, value, unit) identity, matching the dedup pass.
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO measurements (id, arxiv_id, kind, value, unit, normalized_value, confidence, method, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing measurement insert: %w", err)
	}
	defer stmt.Close()

	insert := func(kind types.ParameterKind, ms []types.NormalizedMeasurement) error {
		for _, m := range ms {
			_, err := stmt.ExecContext(ctx,
				measurementID(rec.Paper.ArxivID, kind, m), rec.Paper.ArxivID,
				string(kind), m.Value, m.Unit, m.NormalizedValue,
				string(m.Confidence), rec.Method, m.Context,
			)
			if err != nil {
				return fmt.Errorf("inserting measurement for %s: %w", rec.Paper.ArxivID, err)
			}
		}
		return nil
	}

	if err := insert(types.KindTemperature, rec.Temperatures); err != nil {
		return err
	}
	if err := insert(types.KindDensity, rec.Densities); err != nil {
		return err
	}

	return tx.Commit()
}

// measurementID generates a deterministic ID from the paper ID and the
// measurement's identity. The ID is the first 12 hex characters of
// SHA-256 over the joined fields.
func measurementID(arxivID string, kind types.ParameterKind, m types.NormalizedMeasurement) string {
	h := sha256.New()
	h.Write([]byte(arxivID))
	h.Write([]byte(kind))
	h.Write([]byte(strconv.FormatFloat(m.Value, 'g', -1, 64)))
	h.Write([]byte(m.Unit))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}
