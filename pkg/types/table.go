// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ColumnType is the inferred or declared type of a column.
type ColumnType string

const (
	ColumnString  ColumnType = "String"
	ColumnInteger ColumnType = "Integer"
	ColumnFloat   ColumnType = "Float"
	ColumnBoolean ColumnType = "Boolean"
	ColumnDate    ColumnType = "Date"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case ColumnString, ColumnInteger, ColumnFloat, ColumnBoolean, ColumnDate:
		return true
	}
	return false
}

// Column is one entry of the canonical schema.
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// Record is a loosely-typed row as produced by an extraction tier. Its key
// set is only known after the data has been seen.
type Record map[string]any

// Row is a schema-validated row: every canonical column name maps to a
// string value (empty when the source had no value).
type Row map[string]string

// Table is a rectangular set of rows under one canonical schema.
type Table struct {
	Columns []Column `json:"columns" yaml:"columns"`
	Rows    []Row    `json:"rows" yaml:"rows"`
}

// ColumnNames returns the column names in schema order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// TierPattern names the deterministic pattern-matching tier.
const TierPattern = "pattern-fallback"

// ExtractionAttempt records the outcome of one extraction tier.
type ExtractionAttempt struct {
	// Tier is the model identifier or TierPattern.
	Tier string `json:"tier" yaml:"tier"`

	// State is the engine state the tier ran under.
	State string `json:"state" yaml:"state"`

	RowCount  int      `json:"row_count" yaml:"row_count"`
	Schema    []Column `json:"schema,omitempty" yaml:"schema,omitempty"`
	Succeeded bool     `json:"succeeded" yaml:"succeeded"`

	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}
