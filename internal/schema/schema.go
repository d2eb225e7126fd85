// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema reconciles loosely-typed extraction records into one
// canonical column set and coerces every row to it, so the final table is
// rectangular.
package schema

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// sampleSize is the number of non-empty values per column used for type inference.
const sampleSize = 50

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"Jan 2006",
	"January 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Normalize builds the canonical schema for records and returns them as
// rows re-keyed to exactly that schema. Declared columns come first, in
// declared order; any other key follows in first-seen order, where order
// lists keys as they appeared in the source. Types of undeclared (or
// invalidly typed) columns are inferred. Missing values become "". A
// positive limit truncates the rows.
func Normalize(records []types.Record, order []string, declared []types.Column, limit int) types.Table {
	names, declaredType := columnNames(records, order, declared)

	rows := make([]types.Row, 0, len(records))
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		row := make(types.Row, len(names))
		for _, n := range names {
			row[n] = ""
		}
		for k, v := range rec {
			if k = strings.TrimSpace(k); k != "" {
				row[k] = Stringify(v)
			}
		}
		rows = append(rows, row)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	cols := make([]types.Column, len(names))
	for i, n := range names {
		t, ok := declaredType[n]
		if !ok || !t.Valid() {
			t = InferType(columnValues(rows, n))
		}
		cols[i] = types.Column{Name: n, Type: t}
	}
	return types.Table{Columns: cols, Rows: rows}
}

func columnNames(records []types.Record, order []string, declared []types.Column) ([]string, map[string]types.ColumnType) {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		names = append(names, n)
	}

	declaredType := make(map[string]types.ColumnType, len(declared))
	for _, c := range declared {
		add(c.Name)
		declaredType[strings.TrimSpace(c.Name)] = c.Type
	}
	for _, n := range order {
		add(n)
	}
	for _, rec := range records {
		var rest []string
		for k := range rec {
			if !seen[strings.TrimSpace(k)] {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		for _, k := range rest {
			add(k)
		}
	}
	return names, declaredType
}

func columnValues(rows []types.Row, name string) []string {
	vals := make([]string, 0, len(rows))
	for _, r := range rows {
		vals = append(vals, r[name])
	}
	return vals
}

// InferType returns Boolean if every sampled non-empty value is boolean-like,
// else Integer or Float if all are numeric-like, else Date if all parse as
// dates, else String. A column with no values is a String.
func InferType(values []string) types.ColumnType {
	var sample []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			sample = append(sample, v)
			if len(sample) == sampleSize {
				break
			}
		}
	}
	if len(sample) == 0 {
		return types.ColumnString
	}

	switch {
	case all(sample, isBool):
		return types.ColumnBoolean
	case all(sample, isInt):
		return types.ColumnInteger
	case all(sample, isFloat):
		return types.ColumnFloat
	case all(sample, isDate):
		return types.ColumnDate
	}
	return types.ColumnString
}

func all(vals []string, pred func(string) bool) bool {
	for _, v := range vals {
		if !pred(v) {
			return false
		}
	}
	return true
}

func isBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false", "yes", "no":
		return true
	}
	return false
}

// numeric strips thousands separators so "1,234" counts as numeric.
func numeric(v string) string {
	return strings.ReplaceAll(v, ",", "")
}

func isInt(v string) bool {
	_, err := strconv.ParseInt(numeric(v), 10, 64)
	return err == nil
}

func isFloat(v string) bool {
	f, err := strconv.ParseFloat(numeric(v), 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isDate(v string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// newlines folds CRLF and bare CR to LF. CSV readers do the same inside
// quoted fields, so rows that hold only LF survive a render and parse.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Stringify renders a decoded JSON value as a cell string. Null is empty;
// nested values are re-encoded as JSON. Line endings become LF.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(newlines.Replace(t))
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
