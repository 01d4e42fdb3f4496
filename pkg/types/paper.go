// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Paper holds the metadata collected for one arXiv paper.
type Paper struct {
	// ArxivID is the bare arXiv identifier without version suffix
	// (e.g. "2301.07041").
	ArxivID string `json:"arxiv_id" yaml:"arxiv_id"`

	// Title is the paper title with whitespace flattened to single spaces.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract with newlines flattened to spaces.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Categories lists the arXiv subject categories (e.g. "physics.plasm-ph").
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// Published is the arXiv submission timestamp.
	Published time.Time `json:"published" yaml:"published"`

	// PDFURL is the URL of the paper PDF.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// CollectedAt records when this metadata was fetched. When the same
	// paper is collected twice, the record with the later CollectedAt wins.
	CollectedAt time.Time `json:"collected_at" yaml:"collected_at"`
}
