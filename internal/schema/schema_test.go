// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   types.ColumnType
	}{
		{"booleans", []string{"true", "No", "", "YES"}, types.ColumnBoolean},
		{"integers", []string{"1", "-42", "1,234"}, types.ColumnInteger},
		{"floats", []string{"1.5", "2", "3e2"}, types.ColumnFloat},
		{"dates", []string{"2024-01-15", "15 Jan 2024", "Jan 2, 2024"}, types.ColumnDate},
		{"mixed", []string{"1", "abc"}, types.ColumnString},
		{"nan is not a float", []string{"NaN", "1.0"}, types.ColumnString},
		{"empty", []string{"", "  "}, types.ColumnString},
		{"none", nil, types.ColumnString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.values))
		})
	}
}

func TestNormalize_InfersFirstSeenOrder(t *testing.T) {
	records := []types.Record{
		{"name": "Station A", "kw": 50.0},
		{"name": "Station B", "open": true, "kw": 22.0},
		{"city": "Pune", "name": "Station C"},
	}
	tbl := Normalize(records, []string{"name", "kw", "open"}, nil, 0)

	assert.Equal(t, []types.Column{
		{Name: "name", Type: types.ColumnString},
		{Name: "kw", Type: types.ColumnInteger},
		{Name: "open", Type: types.ColumnBoolean},
		{Name: "city", Type: types.ColumnString},
	}, tbl.Columns)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, types.Row{"name": "Station C", "kw": "", "open": "", "city": "Pune"}, tbl.Rows[2])
	assert.True(t, Rectangular(tbl))
}

func TestNormalize_DeclaredSchemaFirst(t *testing.T) {
	declared := []types.Column{{Name: "date", Type: types.ColumnDate}, {Name: "net", Type: "bogus"}}
	records := []types.Record{
		{"net": "-120.5", "date": "2024-03-01", "note": nil},
	}
	tbl := Normalize(records, nil, declared, 0)

	assert.Equal(t, []string{"date", "net", "note"}, tbl.ColumnNames())
	assert.Equal(t, types.ColumnDate, tbl.Columns[0].Type)
	assert.Equal(t, types.ColumnFloat, tbl.Columns[1].Type)
	assert.Equal(t, "", tbl.Rows[0]["note"])
}

func TestNormalize_TruncatesAndKeepsSparseRows(t *testing.T) {
	records := []types.Record{
		{"a": "1"}, {"a": ""}, {}, {"a": "3"}, {"a": "4"},
	}
	tbl := Normalize(records, []string{"a"}, nil, 3)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, "", tbl.Rows[1]["a"])
	assert.Equal(t, "3", tbl.Rows[2]["a"])
}

func TestNormalize_TrimsKeys(t *testing.T) {
	tbl := Normalize([]types.Record{{" a ": "x", "": "y"}}, nil, nil, 0)
	assert.Equal(t, []string{"a"}, tbl.ColumnNames())
	assert.Equal(t, types.Row{"a": "x"}, tbl.Rows[0])
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "x", Stringify("  x "))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "1500000", Stringify(1.5e6))
	assert.Equal(t, "0.25", Stringify(0.25))
	assert.Equal(t, "7", Stringify(json.Number("7")))
	assert.Equal(t, `["a","b"]`, Stringify([]any{"a", "b"}))
	assert.Equal(t, `{"k":1}`, Stringify(map[string]any{"k": 1}))
	assert.Equal(t, "line1\nline2\nline3", Stringify("line1\r\nline2\rline3\r\n"))
}

func TestMerge(t *testing.T) {
	base := types.Table{
		Columns: []types.Column{{Name: "a", Type: types.ColumnString}},
		Rows:    []types.Row{{"a": "1"}, {"a": "2"}},
	}
	extra := types.Table{
		Columns: []types.Column{{Name: "a", Type: types.ColumnString}, {Name: "b", Type: types.ColumnString}},
		Rows:    []types.Row{{"a": "2", "b": ""}, {"a": "3", "b": "x"}, {"a": "4", "b": "y"}},
	}

	got := Merge(base, extra, 3)
	assert.Equal(t, []string{"a", "b"}, got.ColumnNames())
	assert.Equal(t, []types.Row{
		{"a": "1", "b": ""},
		{"a": "2", "b": ""},
		{"a": "3", "b": "x"},
	}, got.Rows)
	assert.True(t, Rectangular(got))
}

func TestDedupe(t *testing.T) {
	cols := []types.Column{{Name: "a"}, {Name: "b"}}
	rows := []types.Row{
		{"a": "1", "b": "2"},
		{"a": "1", "b": "2"},
		{"a": "12", "b": ""},
		{"a": "1", "b": "2x"},
	}
	assert.Len(t, Dedupe(rows, cols), 3)
}

func TestRectangular(t *testing.T) {
	cols := []types.Column{{Name: "a"}}
	assert.True(t, Rectangular(types.Table{Columns: cols, Rows: []types.Row{{"a": ""}}}))
	assert.False(t, Rectangular(types.Table{Columns: cols, Rows: []types.Row{{"b": ""}}}))
	assert.False(t, Rectangular(types.Table{Columns: cols, Rows: []types.Row{{"a": "", "b": ""}}}))
}
