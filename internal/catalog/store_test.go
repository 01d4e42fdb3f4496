package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(types.CatalogConfig{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func samplePaper(arxivID string, collected time.Time) types.Paper {
	return types.Paper{
		ArxivID:     arxivID,
		Title:       "Electron temperature profiles in tokamak discharges",
		Authors:     []string{"A. Researcher", "B. Scientist"},
		Abstract:    "We report electron temperatures of 5 keV in the plasma core.",
		Categories:  []string{"physics.plasm-ph"},
		Published:   time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC),
		PDFURL:      "https://arxiv.org/pdf/" + arxivID,
		CollectedAt: collected,
	}
}

func measurement(kind types.ParameterKind, value float64, unit string, normalized float64) types.NormalizedMeasurement {
	return types.NormalizedMeasurement{
		Measurement: types.Measurement{
			Kind:       kind,
			Value:      value,
			Unit:       unit,
			Context:    "reported in the abstract",
			Confidence: types.ConfidenceHigh,
		},
		NormalizedValue: normalized,
	}
}

func sampleRecord(arxivID string, collected time.Time) types.ExtractionRecord {
	return types.ExtractionRecord{
		Paper: samplePaper(arxivID, collected),
		Temperatures: []types.NormalizedMeasurement{
			measurement(types.KindTemperature, 5, "keV", 5),
			measurement(types.KindTemperature, 500, "eV", 0.5),
		},
		Densities: []types.NormalizedMeasurement{
			measurement(types.KindDensity, 1e19, "m^-3", 1e19),
		},
		Method:      "regex",
		ExtractedAt: collected,
	}
}

// --- schema tests ---

func TestOpenCreatesSchema(t *testing.T) {
	store := testStore(t)

	tables := []string{"schema_version", "papers", "measurements", "papers_fts"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "catalog.db")

	store, err := Open(types.CatalogConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", path)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	for i := 0; i < 2; i++ {
		store, err := Open(types.CatalogConfig{Path: path})
		if err != nil {
			t.Fatalf("open %d: %v", i+1, err)
		}
		store.Close()
	}
}

// --- paper upsert tests ---

func TestUpsertPapersRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	want := samplePaper("2310.00001", time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	if err := store.UpsertPapers(ctx, []types.Paper{want}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Paper(ctx, "2310.00001")
	if err != nil {
		t.Fatal(err)
	}

	if got.ArxivID != want.ArxivID {
		t.Errorf("ArxivID = %q, want %q", got.ArxivID, want.ArxivID)
	}
	if got.Title != want.Title {
		t.Errorf("Title = %q, want %q", got.Title, want.Title)
	}
	if got.Abstract != want.Abstract {
		t.Errorf("Abstract = %q, want %q", got.Abstract, want.Abstract)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "A. Researcher" {
		t.Errorf("Authors = %v, want %v", got.Authors, want.Authors)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "physics.plasm-ph" {
		t.Errorf("Categories = %v, want %v", got.Categories, want.Categories)
	}
	if !got.Published.Equal(want.Published) {
		t.Errorf("Published = %v, want %v", got.Published, want.Published)
	}
	if got.PDFURL != want.PDFURL {
		t.Errorf("PDFURL = %q, want %q", got.PDFURL, want.PDFURL)
	}
	if !got.CollectedAt.Equal(want.CollectedAt) {
		t.Errorf("CollectedAt = %v, want %v", got.CollectedAt, want.CollectedAt)
	}
}

func TestUpsertPapersKeepsNewest(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(24 * time.Hour)
	t2 := t0.Add(48 * time.Hour)

	first := samplePaper("2310.00001", t1)
	first.Title = "Current title"
	if err := store.UpsertPapers(ctx, []types.Paper{first}); err != nil {
		t.Fatal(err)
	}

	// A stale record must not replace the fresher one.
	stale := samplePaper("2310.00001", t0)
	stale.Title = "Stale title"
	if err := store.UpsertPapers(ctx, []types.Paper{stale}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Paper(ctx, "2310.00001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Current title" {
		t.Errorf("after stale upsert: Title = %q, want %q", got.Title, "Current title")
	}

	// A fresher record replaces it.
	fresh := samplePaper("2310.00001", t2)
	fresh.Title = "Fresh title"
	if err := store.UpsertPapers(ctx, []types.Paper{fresh}); err != nil {
		t.Fatal(err)
	}

	got, err = store.Paper(ctx, "2310.00001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Fresh title" {
		t.Errorf("after fresh upsert: Title = %q, want %q", got.Title, "Fresh title")
	}
	if !got.CollectedAt.Equal(t2) {
		t.Errorf("CollectedAt = %v, want %v", got.CollectedAt, t2)
	}
}

func TestUpsertPapersTieKeepsExisting(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := samplePaper("2310.00001", at)
	first.Title = "First title"
	if err := store.UpsertPapers(ctx, []types.Paper{first}); err != nil {
		t.Fatal(err)
	}

	second := samplePaper("2310.00001", at)
	second.Title = "Second title"
	if err := store.UpsertPapers(ctx, []types.Paper{second}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Paper(ctx, "2310.00001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "First title" {
		t.Errorf("Title = %q, want %q (equal timestamps keep the existing row)", got.Title, "First title")
	}
}

// --- paper query tests ---

func TestPapersOrderedNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	collected := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	var papers []types.Paper
	for i := 0; i < 3; i++ {
		p := samplePaper(fmt.Sprintf("2310.0000%d", i+1), collected)
		p.Published = time.Date(2023, 10, i+1, 0, 0, 0, 0, time.UTC)
		papers = append(papers, p)
	}
	if err := store.UpsertPapers(ctx, papers); err != nil {
		t.Fatal(err)
	}

	page, err := store.Papers(ctx, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d papers, want 2", len(page))
	}
	if page[0].ArxivID != "2310.00003" || page[1].ArxivID != "2310.00002" {
		t.Errorf("page order = [%s %s], want [2310.00003 2310.00002]", page[0].ArxivID, page[1].ArxivID)
	}

	rest, err := store.Papers(ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0].ArxivID != "2310.00001" {
		t.Errorf("second page = %v, want [2310.00001]", rest)
	}
}

func TestPaperNotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.Paper(context.Background(), "9999.99999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPaperCount(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	n, err := store.PaperCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("empty catalog count = %d, want 0", n)
	}

	collected := time.Now().UTC()
	papers := []types.Paper{
		samplePaper("2310.00001", collected),
		samplePaper("2310.00002", collected),
	}
	if err := store.UpsertPapers(ctx, papers); err != nil {
		t.Fatal(err)
	}

	n, err = store.PaperCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

// --- full-text search tests ---

func TestSearch(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.UpsertPapers(ctx, []types.Paper{
		samplePaper("2310.00001", time.Now().UTC()),
	}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"title term", "tokamak", 1},
		{"abstract term", "core", 1},
		{"no match", "stellarator", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Search(ctx, tt.query, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != tt.want {
				t.Errorf("got %d results, want %d", len(results), tt.want)
			}
		})
	}
}

func TestSearchIndexFollowsUpdates(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.UpsertPapers(ctx, []types.Paper{samplePaper("2310.00001", t0)}); err != nil {
		t.Fatal(err)
	}

	updated := samplePaper("2310.00001", t0.Add(time.Hour))
	updated.Title = "Density limits in stellarator plasmas"
	updated.Abstract = "We study density limits."
	if err := store.UpsertPapers(ctx, []types.Paper{updated}); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "stellarator", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("search for new title: got %d results, want 1", len(results))
	}

	results, err = store.Search(ctx, "tokamak", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("search for replaced title: got %d results, want 0", len(results))
	}
}

// --- measurement tests ---

func TestReplaceMeasurements(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := sampleRecord("2310.00001", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	if err := store.ReplaceMeasurements(ctx, rec); err != nil {
		t.Fatal(err)
	}

	// The paper row is created as part of the same transaction.
	if _, err := store.Paper(ctx, "2310.00001"); err != nil {
		t.Fatalf("paper not stored: %v", err)
	}

	temps, err := store.MeasurementsByKind(ctx, types.KindTemperature, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(temps) != 2 {
		t.Fatalf("got %d temperatures, want 2", len(temps))
	}
	// Ordered by normalized value, largest first.
	if temps[0].NormalizedValue != 5 || temps[1].NormalizedValue != 0.5 {
		t.Errorf("normalized order = [%g %g], want [5 0.5]",
			temps[0].NormalizedValue, temps[1].NormalizedValue)
	}
	first := temps[0]
	if first.ArxivID != "2310.00001" {
		t.Errorf("ArxivID = %q", first.ArxivID)
	}
	if first.Title == "" {
		t.Error("joined title missing")
	}
	if first.Kind != types.KindTemperature {
		t.Errorf("Kind = %q, want temperature", first.Kind)
	}
	if first.Unit != "keV" {
		t.Errorf("Unit = %q, want keV", first.Unit)
	}
	if first.Confidence != types.ConfidenceHigh {
		t.Errorf("Confidence = %q, want high", first.Confidence)
	}
	if first.Method != "regex" {
		t.Errorf("Method = %q, want regex", first.Method)
	}

	dens, err := store.MeasurementsByKind(ctx, types.KindDensity, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(dens) != 1 || dens[0].NormalizedValue != 1e19 {
		t.Errorf("densities = %v, want one entry at 1e19", dens)
	}
}

func TestReplaceMeasurementsDropsOldRows(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	collected := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if err := store.ReplaceMeasurements(ctx, sampleRecord("2310.00001", collected)); err != nil {
		t.Fatal(err)
	}

	// Re-extract with a single measurement; the earlier three must go.
	rerun := types.ExtractionRecord{
		Paper: samplePaper("2310.00001", collected.Add(time.Hour)),
		Temperatures: []types.NormalizedMeasurement{
			measurement(types.KindTemperature, 12, "keV", 12),
		},
		Method: "regex+llm",
	}
	if err := store.ReplaceMeasurements(ctx, rerun); err != nil {
		t.Fatal(err)
	}

	temps, err := store.MeasurementsByKind(ctx, types.KindTemperature, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(temps) != 1 {
		t.Fatalf("got %d temperatures, want 1", len(temps))
	}
	if temps[0].Value != 12 || temps[0].Method != "regex+llm" {
		t.Errorf("kept measurement = %+v, want the re-extracted row", temps[0])
	}

	dens, err := store.MeasurementsByKind(ctx, types.KindDensity, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(dens) != 0 {
		t.Errorf("got %d densities, want 0", len(dens))
	}
}

func TestReplaceMeasurementsIsIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := sampleRecord("2310.00001", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	for i := 0; i < 2; i++ {
		if err := store.ReplaceMeasurements(ctx, rec); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	st, err := store.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Temperatures != 2 || st.Densities != 1 {
		t.Errorf("counts = %d temps, %d densities; want 2 and 1", st.Temperatures, st.Densities)
	}
}

func TestMeasurementsByKindLimit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := sampleRecord("2310.00001", time.Now().UTC())
	if err := store.ReplaceMeasurements(ctx, rec); err != nil {
		t.Fatal(err)
	}

	temps, err := store.MeasurementsByKind(ctx, types.KindTemperature, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(temps) != 1 {
		t.Fatalf("got %d temperatures, want 1", len(temps))
	}
	if temps[0].NormalizedValue != 5 {
		t.Errorf("top value = %g, want 5", temps[0].NormalizedValue)
	}
}

func TestMeasurementIDDeterministic(t *testing.T) {
	m := measurement(types.KindTemperature, 5, "keV", 5)

	a := measurementID("2310.00001", types.KindTemperature, m)
	b := measurementID("2310.00001", types.KindTemperature, m)
	if a != b {
		t.Errorf("same inputs gave different IDs: %q vs %q", a, b)
	}
	if len(a) != 12 {
		t.Errorf("ID length = %d, want 12", len(a))
	}

	other := measurement(types.KindTemperature, 6, "keV", 6)
	if c := measurementID("2310.00001", types.KindTemperature, other); c == a {
		t.Errorf("different values gave the same ID %q", c)
	}
	if d := measurementID("2310.00002", types.KindTemperature, m); d == a {
		t.Errorf("different papers gave the same ID %q", d)
	}
}

// --- extraction record tests ---

func TestExtractionRecordsGroupsByPaper(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	collected := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if err := store.ReplaceMeasurements(ctx, sampleRecord("2310.00001", collected)); err != nil {
		t.Fatal(err)
	}
	second := types.ExtractionRecord{
		Paper: samplePaper("2310.00002", collected),
		Densities: []types.NormalizedMeasurement{
			measurement(types.KindDensity, 2e20, "m^-3", 2e20),
		},
		Method: "regex",
	}
	if err := store.ReplaceMeasurements(ctx, second); err != nil {
		t.Fatal(err)
	}

	// A paper without measurements stays out of the export.
	if err := store.UpsertPapers(ctx, []types.Paper{samplePaper("2310.00003", collected)}); err != nil {
		t.Fatal(err)
	}

	records, err := store.ExtractionRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.Paper.ArxivID != "2310.00001" {
		t.Errorf("first record paper = %q, want 2310.00001", first.Paper.ArxivID)
	}
	if len(first.Paper.Authors) != 2 {
		t.Errorf("first record authors = %v, want 2 entries", first.Paper.Authors)
	}
	if len(first.Temperatures) != 2 || len(first.Densities) != 1 {
		t.Errorf("first record has %d temps, %d densities; want 2 and 1",
			len(first.Temperatures), len(first.Densities))
	}
	if first.Method != "regex" {
		t.Errorf("first record method = %q, want regex", first.Method)
	}

	last := records[1]
	if last.Paper.ArxivID != "2310.00002" {
		t.Errorf("second record paper = %q, want 2310.00002", last.Paper.ArxivID)
	}
	if len(last.Temperatures) != 0 || len(last.Densities) != 1 {
		t.Errorf("second record has %d temps, %d densities; want 0 and 1",
			len(last.Temperatures), len(last.Densities))
	}
}

// --- status tests ---

func TestStatus(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	collected := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if err := store.ReplaceMeasurements(ctx, sampleRecord("2310.00001", collected)); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertPapers(ctx, []types.Paper{samplePaper("2310.00002", collected)}); err != nil {
		t.Fatal(err)
	}

	st, err := store.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Papers != 2 {
		t.Errorf("Papers = %d, want 2", st.Papers)
	}
	if st.WithMeasurements != 1 {
		t.Errorf("WithMeasurements = %d, want 1", st.WithMeasurements)
	}
	if st.Temperatures != 2 {
		t.Errorf("Temperatures = %d, want 2", st.Temperatures)
	}
	if st.Densities != 1 {
		t.Errorf("Densities = %d, want 1", st.Densities)
	}
	if st.Path == "" {
		t.Error("Path is empty")
	}
}
