// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Intent classifies what a natural-language question asks for.
type Intent string

const (
	IntentSearch     Intent = "search"
	IntentStatistics Intent = "statistics"
	IntentCompare    Intent = "compare"
)

// ParameterRange is a half-open or closed numeric constraint on one
// parameter kind. A nil bound means that side is unconstrained; a pointer
// to zero is a real constraint at zero.
type ParameterRange struct {
	// MinValue and MaxValue are the bounds as stated in the question.
	MinValue *float64 `json:"min_value" yaml:"min_value"`
	MaxValue *float64 `json:"max_value" yaml:"max_value"`

	// Unit is the unit the bounds were stated in ("unknown" when the
	// question did not say).
	Unit string `json:"unit" yaml:"unit"`

	// NormalizedMin and NormalizedMax are the bounds converted to the
	// canonical unit for the kind. They are what query compilation uses.
	NormalizedMin *float64 `json:"normalized_min" yaml:"normalized_min"`
	NormalizedMax *float64 `json:"normalized_max" yaml:"normalized_max"`
}

// ParsedQuery is the structured form of a natural-language question.
type ParsedQuery struct {
	// Intent is search, statistics, or compare.
	Intent Intent `json:"intent" yaml:"intent"`

	// Parameters holds the numeric constraints by parameter kind.
	Parameters map[ParameterKind]ParameterRange `json:"parameters" yaml:"parameters"`

	// Keywords are free-text terms to match against paper titles.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// TemporalConstraint is "" for none, "recent" for the rolling
	// two-year window, or a four-digit year.
	TemporalConstraint string `json:"temporal_constraint,omitempty" yaml:"temporal_constraint,omitempty"`

	// Confidence is the interpreter's self-assessed confidence: 0.8 by
	// default for oracle interpretations, 0.5 for pattern fallback.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// OriginalText is the question as asked.
	OriginalText string `json:"original_text" yaml:"original_text"`

	// RawOracleResponse preserves the oracle's unparsed reply for
	// debugging. Empty when the fallback interpreter produced the query.
	RawOracleResponse string `json:"raw_oracle_response,omitempty" yaml:"raw_oracle_response,omitempty"`
}
