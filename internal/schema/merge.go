// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"strings"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Dedupe removes rows equal in every column of cols, keeping the first.
func Dedupe(rows []types.Row, cols []types.Column) []types.Row {
	seen := make(map[string]bool, len(rows))
	out := make([]types.Row, 0, len(rows))
	for _, r := range rows {
		k := rowKey(r, cols)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func rowKey(r types.Row, cols []types.Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = r[c.Name]
	}
	return strings.Join(parts, "\x1f")
}

// Merge appends extra's rows to base under the union of both schemas
// (base columns first), then removes duplicate rows and truncates to a
// positive limit. Rows are re-keyed to the union before deduplication.
func Merge(base, extra types.Table, limit int) types.Table {
	cols := append([]types.Column(nil), base.Columns...)
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c.Name] = true
	}
	for _, c := range extra.Columns {
		if !have[c.Name] {
			have[c.Name] = true
			cols = append(cols, c)
		}
	}

	rows := make([]types.Row, 0, len(base.Rows)+len(extra.Rows))
	for _, src := range [][]types.Row{base.Rows, extra.Rows} {
		for _, r := range src {
			rows = append(rows, rekey(r, cols))
		}
	}
	rows = Dedupe(rows, cols)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return types.Table{Columns: cols, Rows: rows}
}

func rekey(r types.Row, cols []types.Column) types.Row {
	out := make(types.Row, len(cols))
	for _, c := range cols {
		out[c.Name] = r[c.Name]
	}
	return out
}

// Rectangular reports whether every row carries exactly the columns of t.
func Rectangular(t types.Table) bool {
	for _, r := range t.Rows {
		if len(r) != len(t.Columns) {
			return false
		}
		for _, c := range t.Columns {
			if _, ok := r[c.Name]; !ok {
				return false
			}
		}
	}
	return true
}
