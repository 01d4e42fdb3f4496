// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

// Oracle abstracts the Generative AI API so tests can supply a mock.
// Complete sends one prompt and returns the raw text reply.
type Oracle interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Validator asks the oracle to confirm or refine pattern candidates.
// Every failure mode — transport error, non-JSON reply, nothing usable in
// the reply — is reported on Warnings and answered by keeping the
// pattern candidates, so a broken oracle degrades quality, not coverage.
type Validator struct {
	Oracle Oracle

	// Warnings receives one line per failed validation. Nil means discard.
	Warnings io.Writer
}

// oracleItem is one measurement as returned by the oracle.
type oracleItem struct {
	Type       string   `json:"type"`
	Value      *float64 `json:"value"`
	Unit       string   `json:"unit"`
	Context    string   `json:"context"`
	Confidence string   `json:"confidence"`
	IsCorrect  *bool    `json:"is_correct"`
}

// Validate sends the candidates and the abstract to the oracle and
// returns the oracle's measurement list when it parses. The second
// return reports whether the oracle's answer was used: false means the
// caller should keep its candidates. An oracle that answers with a
// well-formed empty list is trusted — that is a real "no measurements
// here" verdict, not a failure.
func (v *Validator) Validate(ctx context.Context, text string, candidates []types.Measurement, kind types.ParameterKind) ([]types.Measurement, bool) {
	if v == nil || v.Oracle == nil {
		return candidates, false
	}

	prompt, err := validationPrompt(text, candidates, kind)
	if err != nil {
		v.warnf("oracle validation skipped for %s: %v", kind, err)
		return candidates, false
	}

	reply, err := v.Oracle.Complete(ctx, prompt)
	if err != nil {
		v.warnf("oracle validation failed for %s: %v", kind, err)
		return candidates, false
	}

	items, err := parseOracleItems(reply)
	if err != nil {
		v.warnf("oracle reply unusable for %s: %v", kind, err)
		return candidates, false
	}

	return convertOracleItems(items, kind), true
}

func (v *Validator) warnf(format string, args ...any) {
	if v.Warnings == nil {
		return
	}
	fmt.Fprintf(v.Warnings, format+"\n", args...)
}

// parseOracleItems decodes the oracle reply as a JSON array, tolerating a
// Markdown code fence around it.
func parseOracleItems(reply string) ([]oracleItem, error) {
	content := StripFences(reply)
	var items []oracleItem
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("decoding reply: %w", err)
	}
	return items, nil
}

// convertOracleItems turns decoded oracle items into measurements.
// Items flagged incorrect, missing a numeric value, or describing a
// different parameter kind are dropped; a malformed item never aborts
// the rest.
func convertOracleItems(items []oracleItem, kind types.ParameterKind) []types.Measurement {
	var out []types.Measurement
	for _, item := range items {
		if item.IsCorrect != nil && !*item.IsCorrect {
			continue
		}
		if item.Value == nil {
			continue
		}
		if item.Type != "" && item.Type != string(kind) {
			continue
		}
		out = append(out, types.Measurement{
			Kind:       kind,
			Value:      *item.Value,
			Unit:       item.Unit,
			Context:    strings.Join(strings.Fields(item.Context), " "),
			Confidence: normalizeConfidence(item.Confidence),
		})
	}
	return out
}

func normalizeConfidence(s string) types.Confidence {
	switch types.Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case types.ConfidenceHigh:
		return types.ConfidenceHigh
	case types.ConfidenceLow:
		return types.ConfidenceLow
	default:
		return types.ConfidenceMedium
	}
}

// StripFences removes a Markdown code fence wrapper from a reply, with or
// without a "json" language tag. Replies without fences pass through.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.SplitN(s, "```", 3)
	if len(parts) < 2 {
		return s
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}
