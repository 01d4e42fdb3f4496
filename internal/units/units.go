// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package units converts plasma parameter values to canonical units:
// keV for temperatures and m^-3 for densities. Every stage that stores
// or compares values goes through the same conversion, so a bound parsed
// from a question and a value extracted from an abstract always land in
// the same unit.
package units

import (
	"strings"

	"github.com/pdiddy/plasma-kg/pkg/types"
)

// kelvinToKeV is the Boltzmann constant expressed in keV per kelvin.
const kelvinToKeV = 8.617333e-8

// CanonicalUnit returns the unit all values of the kind are normalized to.
func CanonicalUnit(kind types.ParameterKind) string {
	if kind == types.KindDensity {
		return "m^-3"
	}
	return "keV"
}

// Normalize converts value from the stated unit to the canonical unit for
// the kind. Temperature units match case-insensitively; density units
// match by substring on the lowercased unit, so "cm^-3", "cm⁻³", and
// "per cubic centimeter" all count as centimeters. Unrecognized units
// pass through unchanged, and normalizing an already-canonical value is
// a no-op.
func Normalize(value float64, unit string, kind types.ParameterKind) float64 {
	lower := strings.ToLower(strings.TrimSpace(unit))
	switch kind {
	case types.KindTemperature:
		switch lower {
		case "kev":
			return value
		case "ev":
			return value * 0.001
		case "k", "kelvin":
			return value * kelvinToKeV
		}
	case types.KindDensity:
		if strings.Contains(lower, "cm") || strings.Contains(lower, "centimeter") {
			return value * 1e6
		}
	}
	return value
}

// Canonicalize wraps a raw measurement with its normalized value.
func Canonicalize(m types.Measurement) types.NormalizedMeasurement {
	return types.NormalizedMeasurement{
		Measurement:     m,
		NormalizedValue: Normalize(m.Value, m.Unit, m.Kind),
	}
}

// NormalizeRange fills the normalized bounds of a parameter range from its
// stated bounds and unit. Bounds that are absent stay absent.
func NormalizeRange(r types.ParameterRange, kind types.ParameterKind) types.ParameterRange {
	if r.MinValue != nil {
		v := Normalize(*r.MinValue, r.Unit, kind)
		r.NormalizedMin = &v
	}
	if r.MaxValue != nil {
		v := Normalize(*r.MaxValue, r.Unit, kind)
		r.NormalizedMax = &v
	}
	return r
}
