// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sparql talks to a Fuseki-style triple store: query execution
// over the SPARQL protocol and Turtle loading over the Graph Store
// Protocol.
package sparql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/plasma-kg/internal/httputil"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

// clientMaxRetries bounds retries on 429/503 from the store.
const clientMaxRetries = 2

// Row is a single query solution mapping variable names to lexical
// values. Typed literals arrive as their lexical form; callers parse
// the variables they know the types of.
type Row map[string]string

// Client executes queries against one dataset. Create with NewClient.
type Client struct {
	cfg    types.FusekiConfig
	client *http.Client
}

// NewClient builds a client from config, applying a 30 s timeout when
// none is set.
func NewClient(cfg types.FusekiConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// resultsEnvelope mirrors the application/sparql-results+json layout.
// Only the lexical value of each term is kept.
type resultsEnvelope struct {
	Results struct {
		Bindings []map[string]struct {
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// Query executes a SPARQL query and returns its solutions in order.
// The query is POSTed as a form so its size does not hit URL limits.
func (c *Client) Query(ctx context.Context, query string) ([]Row, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.QueryEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, clientMaxRetries)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("triple store returned HTTP %d: %s",
			resp.StatusCode, bodySnippet(resp.Body))
	}

	var envelope resultsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("parsing query results: %w", err)
	}

	rows := make([]Row, 0, len(envelope.Results.Bindings))
	for _, binding := range envelope.Results.Bindings {
		row := make(Row, len(binding))
		for name, term := range binding {
			row[name] = term.Value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Count executes an aggregate query and reads its ?count variable.
// A result with no rows or no count variable counts as zero.
func (c *Client) Count(ctx context.Context, query string) (int, error) {
	rows, err := c.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	v, ok := rows[0]["count"]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("count variable %q is not an integer", v)
	}
	return n, nil
}

// Ping checks the endpoint is reachable by selecting a single triple.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Query(ctx, "SELECT * WHERE { ?s ?p ?o } LIMIT 1")
	return err
}

// LoadTurtle POSTs Turtle data to the dataset's data endpoint, adding
// the triples to the default graph.
func (c *Client) LoadTurtle(ctx context.Context, ttl []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.DataEndpoint,
		bytes.NewReader(ttl))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/turtle")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, clientMaxRetries)
	if err != nil {
		return fmt.Errorf("loading data: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return fmt.Errorf("triple store returned HTTP %d: %s",
		resp.StatusCode, bodySnippet(resp.Body))
}

// bodySnippet reads the start of an error body for inclusion in errors.
func bodySnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
