// Package profile implements the profiling computation engine: per-
// column statistics, multi-value field decomposition, key validation,
// and per-dataset aggregation of the three.
//
// Every function here is a pure computation over a read-only
// dataset.Frame; profiling the same snapshot twice produces identical
// results.
package profile

// ColumnProfile holds the per-column statistics for one dataset column.
// Immutable once produced.
type ColumnProfile struct {
	Name     string `json:"name"`
	RowCount int    `json:"row_count"`

	NullCount      int     `json:"null_count"`
	NullPercentage float64 `json:"null_percentage"`

	UniqueCount      int     `json:"unique_count"`
	CardinalityRatio float64 `json:"cardinality_ratio"`

	// SampleValues are the first non-null, non-blank values in row
	// order, at most sampleLimit of them, not deduplicated.
	SampleValues []string `json:"sample_values"`

	// Literal anomaly counts over trimmed, case-folded non-null values.
	EmptyStringCount    int `json:"empty_string_count"`
	NoneLiteralCount    int `json:"none_literal_count"`
	UnknownLiteralCount int `json:"unknown_literal_count"`

	// LikelyNumeric is a sampled heuristic, not a type guarantee.
	LikelyNumeric bool `json:"likely_numeric"`
}

// TokenCount is one (token, occurrences) pair of a multi-value column.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// MultiValueProfile holds token statistics for one delimiter-separated
// column.
type MultiValueProfile struct {
	Name string `json:"name"`

	MinValuesPerRow int     `json:"min_values_per_row"`
	MaxValuesPerRow int     `json:"max_values_per_row"`
	AvgValuesPerRow float64 `json:"avg_values_per_row"`

	TotalDistinctValues int `json:"total_distinct_values"`

	// TopValues is ordered by descending count; ties keep the order in
	// which the token was first seen across the flattened token stream.
	TopValues []TokenCount `json:"top_values"`
}

// KeyValidation is the result of checking a declared single or
// composite key for null-freedom and uniqueness.
type KeyValidation struct {
	Columns []string `json:"columns"`

	// NullCount counts rows where any key column is null. Those rows
	// are excluded from duplicate counting (they are never counted
	// twice).
	NullCount int `json:"null_count"`

	// DuplicateCount counts rows beyond the first occurrence of each
	// fully non-null key value or tuple.
	DuplicateCount int `json:"duplicate_count"`

	Valid bool `json:"is_valid"`
}

// DatasetProfile is the assembled profile of one dataset. Created once
// per run per dataset and never mutated afterwards.
type DatasetProfile struct {
	Name        string `json:"dataset"`
	Description string `json:"description"`
	File        string `json:"file"`

	RowCount    int `json:"row_count"`
	ColumnCount int `json:"column_count"`

	// Empty marks a zero-row dataset; all percentage statistics are
	// reported as 0.0 in that case.
	Empty bool `json:"empty"`

	// ColumnOrder preserves the dataset's column order for rendering;
	// Columns is keyed by column name.
	ColumnOrder []string                  `json:"column_order"`
	Columns     map[string]*ColumnProfile `json:"columns"`

	MultiValueOrder []string                      `json:"multi_value_order,omitempty"`
	MultiValue      map[string]*MultiValueProfile `json:"multi_value,omitempty"`

	// Key is nil when no key is configured or when the configured key
	// columns are not present in the dataset.
	Key *KeyValidation `json:"primary_key,omitempty"`
}
