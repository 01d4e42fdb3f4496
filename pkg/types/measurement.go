// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ParameterKind identifies which plasma parameter a measurement describes.
type ParameterKind string

const (
	KindTemperature ParameterKind = "temperature"
	KindDensity     ParameterKind = "density"
)

// Confidence grades how explicitly a measurement was stated in the text.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Measurement is a single parameter value found in an abstract, before
// unit normalization.
type Measurement struct {
	// Kind is the parameter this value measures.
	Kind ParameterKind `json:"type" yaml:"type"`

	// Value is the numeric value as written, with any scientific-notation
	// exponent already applied.
	Value float64 `json:"value" yaml:"value"`

	// Unit is the unit string as written (e.g. "keV", "cm^-3").
	Unit string `json:"unit" yaml:"unit"`

	// Context is a short whitespace-collapsed snippet of the surrounding text.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`

	// Confidence grades the extraction: high when the parameter is named
	// for a specific species, medium otherwise.
	Confidence Confidence `json:"confidence" yaml:"confidence"`
}

// NormalizedMeasurement is a Measurement with its value converted to the
// canonical unit for its kind (keV for temperatures, m^-3 for densities).
type NormalizedMeasurement struct {
	Measurement `yaml:",inline"`

	// NormalizedValue is Value expressed in the canonical unit. For
	// unrecognized units it equals Value.
	NormalizedValue float64 `json:"normalized_value" yaml:"normalized_value"`
}

// ExtractionRecord collects everything extracted from one paper's abstract.
type ExtractionRecord struct {
	Paper Paper `json:"paper" yaml:"paper"`

	// Temperatures and Densities hold the deduplicated, normalized
	// measurements in the order they appeared in the abstract.
	Temperatures []NormalizedMeasurement `json:"temperatures" yaml:"temperatures"`
	Densities    []NormalizedMeasurement `json:"densities" yaml:"densities"`

	// Method records how the measurements were obtained: "regex+llm" when
	// the oracle validated the pattern candidates, "regex" otherwise.
	Method string `json:"method" yaml:"method"`

	// ExtractedAt is when the extraction ran.
	ExtractedAt time.Time `json:"extracted_at" yaml:"extracted_at"`
}

// HasMeasurements reports whether any parameter was extracted.
func (r ExtractionRecord) HasMeasurements() bool {
	return len(r.Temperatures) > 0 || len(r.Densities) > 0
}
