// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collect pulls recent paper metadata from the arXiv Atom API
// and fills the catalog with it.
package collect

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

// DefaultCategory is the arXiv category collected when none is configured.
const DefaultCategory = "physics.plasm-ph"

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Client fetches pages of category listings from the arXiv API.
type Client struct {
	http *http.Client
	cfg  types.CollectConfig
}

// NewClient builds a Client from the collection config.
func NewClient(cfg types.CollectConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		cfg:  cfg,
	}
}

// Page fetches one page of the newest submissions in the configured
// category, most recent first.
func (c *Client) Page(ctx context.Context, start, count int) ([]types.Paper, error) {
	category := c.cfg.Category
	if category == "" {
		category = DefaultCategory
	}

	url := fmt.Sprintf("%s?search_query=cat:%s&start=%d&max_results=%d&sortBy=submittedDate&sortOrder=descending",
		arxivAPIBase, category, start, count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	collected := time.Now().UTC()
	var papers []types.Paper
	for _, entry := range feed.Entries {
		p, ok := entryToPaper(entry, collected)
		if !ok {
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

func entryToPaper(entry arxivEntry, collected time.Time) (types.Paper, bool) {
	arxivID := extractArxivID(entry.ID)
	if arxivID == "" {
		return types.Paper{}, false
	}

	p := types.Paper{
		ArxivID:     arxivID,
		Title:       flattenSpace(entry.Title),
		Abstract:    flattenSpace(entry.Summary),
		CollectedAt: collected,
	}

	for _, a := range entry.Authors {
		p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
	}

	if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		p.Published = t
	}

	for _, l := range entry.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}

	for _, cat := range entry.Categories {
		if cat.Term != "" {
			p.Categories = append(p.Categories, cat.Term)
		}
	}

	return p, true
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// flattenSpace collapses all whitespace runs, including the newline
// continuations arXiv puts in titles and abstracts, to single spaces.
func flattenSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
