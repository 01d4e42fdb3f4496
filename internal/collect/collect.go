// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

// Tunables, declared as vars so tests can avoid real sleeps.
var (
	// requestPause spaces out remote calls to stay polite to the API.
	requestPause = 500 * time.Millisecond

	// retryBase is the backoff unit for failed page fetches.
	retryBase = time.Second
)

const (
	defaultMaxResults = 10
	defaultPageSize   = 100
	defaultFlushEvery = 10
	pageRetries       = 3
)

// Store is the catalog subset the collector writes to.
type Store interface {
	UpsertPapers(ctx context.Context, papers []types.Paper) error
}

// Summary holds counts from one collection run.
type Summary struct {
	// Collected is the number of papers stored.
	Collected int

	// Checked counts every feed entry examined, including filtered ones.
	Checked int

	// Filtered counts entries dropped by the parameter filter.
	Filtered int

	// Interrupted reports that the run was cancelled and stopped early
	// with everything accumulated so far flushed.
	Interrupted bool
}

// Collector pages through recent arXiv submissions and fills the store.
type Collector struct {
	cfg    types.CollectConfig
	client *Client
	store  Store
	out    io.Writer

	// SnapshotPath, when set, receives the full YAML list of papers
	// collected in this run, rewritten at every flush.
	SnapshotPath string
}

// New builds a Collector writing progress lines to out.
func New(cfg types.CollectConfig, store Store, out io.Writer) *Collector {
	if out == nil {
		out = io.Discard
	}
	return &Collector{
		cfg:    cfg,
		client: NewClient(cfg),
		store:  store,
		out:    out,
	}
}

// Run collects up to MaxResults papers, newest first, flushing to the
// store every FlushEvery papers so a failed or interrupted run keeps
// what it has. Cancelling the context is partial completion, not an
// error: the pending batch is flushed and the summary reports
// Interrupted.
func (c *Collector) Run(ctx context.Context) (Summary, error) {
	max := c.cfg.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}
	pageSize := c.cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	flushEvery := c.cfg.FlushEvery
	if flushEvery <= 0 {
		flushEvery = defaultFlushEvery
	}
	category := c.cfg.Category
	if category == "" {
		category = DefaultCategory
	}

	fmt.Fprintf(c.out, "collecting %d papers from %s\n", max, category)

	var (
		summary  Summary
		pending  []types.Paper
		snapshot []types.Paper
		total    int
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		// Flushes must complete even when the run is being cancelled.
		if err := c.store.UpsertPapers(context.WithoutCancel(ctx), pending); err != nil {
			return fmt.Errorf("storing %d papers: %w", len(pending), err)
		}
		summary.Collected += len(pending)
		if c.SnapshotPath != "" {
			snapshot = append(snapshot, pending...)
			if err := c.writeSnapshot(snapshot); err != nil {
				fmt.Fprintf(c.out, "  warning: snapshot write failed: %v\n", err)
			}
		}
		fmt.Fprintf(c.out, "  saved %d papers (%d total)\n", len(pending), summary.Collected)
		pending = pending[:0]
		return nil
	}

	for start := 0; total < max && ctx.Err() == nil; start += pageSize {
		if start > 0 {
			if err := c.pause(ctx); err != nil {
				break
			}
		}

		count := pageSize
		if remaining := max - total; !c.cfg.Filter && remaining < count {
			count = remaining
		}

		papers, err := c.fetchPage(ctx, start, count)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if ferr := flush(); ferr != nil {
				return summary, ferr
			}
			return summary, err
		}

		if len(papers) == 0 {
			fmt.Fprintln(c.out, "  no more results")
			break
		}

		for _, p := range papers {
			summary.Checked++
			if c.cfg.Filter && !LikelyHasParameters(p.Abstract) {
				summary.Filtered++
				continue
			}

			pending = append(pending, p)
			total++
			fmt.Fprintf(c.out, "  [%d/%d] %s: %s\n", total, max, p.ArxivID, shortTitle(p.Title))

			if len(pending) >= flushEvery {
				if err := flush(); err != nil {
					return summary, err
				}
			}
			if total >= max {
				break
			}
		}

		// A short page means the category has no more entries.
		if len(papers) < count {
			break
		}
	}

	if ctx.Err() != nil {
		summary.Interrupted = true
	}
	if err := flush(); err != nil {
		return summary, err
	}

	if summary.Interrupted {
		fmt.Fprintf(c.out, "\ninterrupted: kept %d papers\n", summary.Collected)
	} else {
		fmt.Fprintf(c.out, "\ncollected: %d, checked: %d, filtered: %d\n",
			summary.Collected, summary.Checked, summary.Filtered)
	}
	return summary, nil
}

// fetchPage retries a failed page fetch with doubling backoff before
// giving up.
func (c *Collector) fetchPage(ctx context.Context, start, count int) ([]types.Paper, error) {
	var lastErr error
	for attempt := 0; attempt <= pageRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * retryBase
			fmt.Fprintf(c.out, "  retrying page at %d in %s: %v\n", start, backoff, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		papers, err := c.client.Page(ctx, start, count)
		if err == nil {
			return papers, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("page at offset %d failed after %d retries: %w", start, pageRetries, lastErr)
}

func (c *Collector) pause(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(requestPause):
		return nil
	}
}

func (c *Collector) writeSnapshot(papers []types.Paper) error {
	data, err := yaml.Marshal(papers)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if dir := filepath.Dir(c.SnapshotPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	if err := os.WriteFile(c.SnapshotPath, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

func shortTitle(title string) string {
	const max = 60
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max]) + "..."
}
