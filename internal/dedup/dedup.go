// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup removes duplicate measurements and papers. Both passes are
// pure functions: they return fresh slices and leave their inputs alone,
// so running them twice gives the same answer as running them once.
package dedup

import "github.com/pdiddy/plasma-kg/pkg/types"

type measurementKey struct {
	value float64
	unit  string
}

// Measurements drops later measurements whose raw (value, unit) pair has
// already been seen, keeping the first occurrence. Order is preserved.
// Callers dedup within one paper at a time; identical values reported by
// different papers are distinct facts and must not share a slice.
func Measurements(in []types.NormalizedMeasurement) []types.NormalizedMeasurement {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[measurementKey]bool, len(in))
	out := make([]types.NormalizedMeasurement, 0, len(in))
	for _, m := range in {
		key := measurementKey{value: m.Value, unit: m.Unit}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// Papers collapses papers sharing an arXiv ID down to one record each,
// keeping the record with the latest CollectedAt. On a tie the earlier
// record wins. Each surviving paper keeps the position of its first
// occurrence.
func Papers(in []types.Paper) []types.Paper {
	if len(in) == 0 {
		return nil
	}
	index := make(map[string]int, len(in))
	out := make([]types.Paper, 0, len(in))
	for _, p := range in {
		if i, ok := index[p.ArxivID]; ok {
			if p.CollectedAt.After(out[i].CollectedAt) {
				out[i] = p
			}
			continue
		}
		index[p.ArxivID] = len(out)
		out = append(out, p)
	}
	return out
}
