package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title type="html">ArXiv Query: search_query=cat:physics.plasm-ph</title>
  <entry>
    <id>http://arxiv.org/abs/2310.00001v2</id>
    <updated>2023-10-02T01:00:00Z</updated>
    <published>2023-10-01T12:00:00Z</published>
    <title>Electron temperature profiles in
  tokamak discharges</title>
    <summary>  We report electron temperatures of 5 keV
in the plasma core.
</summary>
    <author><name>A. Researcher</name></author>
    <author><name>B. Scientist</name></author>
    <link href="http://arxiv.org/abs/2310.00001v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2310.00001v2" rel="related" type="application/pdf"/>
    <arxiv:primary_category xmlns:arxiv="http://arxiv.org/schemas/atom" term="physics.plasm-ph" scheme="http://arxiv.org/schemas/atom"/>
    <category term="physics.plasm-ph" scheme="http://arxiv.org/schemas/atom"/>
    <category term="physics.flu-dyn" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2310.00002v1</id>
    <published>2023-10-02T08:30:00Z</published>
    <title>Density limits revisited</title>
    <summary>No PDF link on this one.</summary>
    <author><name>C. Theorist</name></author>
  </entry>
  <entry>
    <id>http://example.com/not-an-arxiv-url</id>
    <published>2023-10-03T00:00:00Z</published>
    <title>Broken entry</title>
    <summary>The id URL has no abs segment.</summary>
  </entry>
</feed>`

func testCollectConfig() types.CollectConfig {
	return types.CollectConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "plasma-kg-test/0.1",
		},
		Category: "physics.plasm-ph",
	}
}

func TestPageDecodesFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("search_query"); got != "cat:physics.plasm-ph" {
			t.Errorf("search_query = %q", got)
		}
		if got := q.Get("start"); got != "0" {
			t.Errorf("start = %q", got)
		}
		if got := q.Get("max_results"); got != "2" {
			t.Errorf("max_results = %q", got)
		}
		if got := q.Get("sortBy"); got != "submittedDate" {
			t.Errorf("sortBy = %q", got)
		}
		if got := q.Get("sortOrder"); got != "descending" {
			t.Errorf("sortOrder = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "plasma-kg-test/0.1" {
			t.Errorf("User-Agent = %q", got)
		}
		fmt.Fprint(w, sampleFeed)
	}))
	defer ts.Close()

	origBase := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = origBase }()

	client := NewClient(testCollectConfig())
	papers, err := client.Page(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}

	// The entry without an /abs/ URL is dropped.
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(papers))
	}

	p := papers[0]
	if p.ArxivID != "2310.00001" {
		t.Errorf("ArxivID = %q, want 2310.00001 (version suffix stripped)", p.ArxivID)
	}
	if p.Title != "Electron temperature profiles in tokamak discharges" {
		t.Errorf("Title = %q (whitespace should be flattened)", p.Title)
	}
	if p.Abstract != "We report electron temperatures of 5 keV in the plasma core." {
		t.Errorf("Abstract = %q", p.Abstract)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "A. Researcher" || p.Authors[1] != "B. Scientist" {
		t.Errorf("Authors = %v", p.Authors)
	}
	wantPublished := time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC)
	if !p.Published.Equal(wantPublished) {
		t.Errorf("Published = %v, want %v", p.Published, wantPublished)
	}
	if p.PDFURL != "http://arxiv.org/pdf/2310.00001v2" {
		t.Errorf("PDFURL = %q", p.PDFURL)
	}
	if len(p.Categories) != 2 || p.Categories[0] != "physics.plasm-ph" || p.Categories[1] != "physics.flu-dyn" {
		t.Errorf("Categories = %v", p.Categories)
	}
	if p.CollectedAt.IsZero() {
		t.Error("CollectedAt not set")
	}

	// Second entry has no pdf link and no categories.
	if papers[1].ArxivID != "2310.00002" {
		t.Errorf("papers[1].ArxivID = %q", papers[1].ArxivID)
	}
	if papers[1].PDFURL != "" {
		t.Errorf("papers[1].PDFURL = %q, want empty", papers[1].PDFURL)
	}
	if len(papers[1].Categories) != 0 {
		t.Errorf("papers[1].Categories = %v, want none", papers[1].Categories)
	}
}

func TestPageHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	origBase := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = origBase }()

	client := NewClient(testCollectConfig())
	_, err := client.Page(context.Background(), 0, 10)
	if err == nil {
		t.Fatal("expected error for HTTP 503")
	}
	if !strings.Contains(err.Error(), "HTTP 503") {
		t.Errorf("error = %q, want mention of HTTP 503", err.Error())
	}
}

func TestPageBadXML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	}))
	defer ts.Close()

	origBase := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = origBase }()

	client := NewClient(testCollectConfig())
	_, err := client.Page(context.Background(), 0, 10)
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		idURL string
		want  string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"https://arxiv.org/abs/2310.00001v12", "2310.00001"},
		{"http://arxiv.org/abs/hep-ph/9901001v2", "hep-ph/9901001"},
		{"http://example.com/nothing", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := extractArxivID(tt.idURL); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.idURL, got, tt.want)
		}
	}
}

func TestFlattenSpace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain title", "plain title"},
		{"line\n  continuation", "line continuation"},
		{"  padded\t\twords  ", "padded words"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := flattenSpace(tt.in); got != tt.want {
			t.Errorf("flattenSpace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
