// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output renders normalized tables as delimited text with
// RFC 4180 quoting, splits them into chunks for incremental delivery, and
// formats terminal previews.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Delimiter returns the first rune of s, or ',' when s is empty or not a
// usable CSV separator.
func Delimiter(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	switch r {
	case utf8.RuneError, '"', '\r', '\n':
		return ','
	}
	return r
}

// RenderCSV writes a header of column names followed by one line per row.
// Values containing the delimiter, a quote or a newline are quoted with
// internal quotes doubled.
func RenderCSV(t types.Table, delim rune) (string, error) {
	if len(t.Columns) == 0 {
		return "", nil
	}
	names := t.ColumnNames()

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Comma = delim

	if err := writeRecord(cw, &buf, names); err != nil {
		return "", err
	}
	rec := make([]string, len(names))
	for _, r := range t.Rows {
		for i, n := range names {
			rec[i] = r[n]
		}
		if err := writeRecord(cw, &buf, rec); err != nil {
			return "", err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("writing csv: %w", err)
	}
	return buf.String(), nil
}

// writeRecord writes rec, quoting a lone empty field so the line is not
// read back as blank.
func writeRecord(cw *csv.Writer, buf *bytes.Buffer, rec []string) error {
	if len(rec) == 1 && rec[0] == "" {
		cw.Flush()
		buf.WriteString("\"\"\n")
		return cw.Error()
	}
	return cw.Write(rec)
}

// ParseCSV reads text produced by RenderCSV back into columns and rows.
// Column types are not recorded in the text and come back as String.
func ParseCSV(text string, delim rune) (types.Table, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim

	records, err := cr.ReadAll()
	if err != nil {
		return types.Table{}, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return types.Table{}, nil
	}

	header := records[0]
	t := types.Table{Columns: make([]types.Column, len(header))}
	for i, h := range header {
		t.Columns[i] = types.Column{Name: h, Type: types.ColumnString}
	}
	for _, rec := range records[1:] {
		row := make(types.Row, len(header))
		for i, h := range header {
			row[h] = rec[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Chunks splits rows into consecutive RowsChunks of at most size rows.
func Chunks(rows []types.Row, size int) []types.RowsChunk {
	if size <= 0 {
		size = len(rows)
	}
	var out []types.RowsChunk
	for off := 0; off < len(rows); off += size {
		end := min(off+size, len(rows))
		out = append(out, types.RowsChunk{Rows: rows[off:end], Offset: off, TotalRows: len(rows)})
	}
	return out
}

// ChunkTables renders each chunk of t as its own delimited text with a header.
func ChunkTables(t types.Table, size int, delim rune) ([]string, error) {
	var out []string
	for _, c := range Chunks(t.Rows, size) {
		text, err := RenderCSV(types.Table{Columns: t.Columns, Rows: c.Rows}, delim)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

// FormatPreview writes t as an aligned text table. Cells wider than
// maxCell display columns are truncated; maxCell <= 0 disables truncation.
func FormatPreview(w io.Writer, t types.Table, maxCell int) {
	if len(t.Rows) == 0 {
		fmt.Fprintln(w, "No rows.")
		return
	}

	names := t.ColumnNames()
	cells := make([][]string, 0, len(t.Rows)+1)
	cells = append(cells, names)
	for _, r := range t.Rows {
		line := make([]string, len(names))
		for i, n := range names {
			line[i] = strings.Join(strings.Fields(r[n]), " ")
		}
		cells = append(cells, line)
	}

	widths := make([]int, len(names))
	for _, line := range cells {
		for i, c := range line {
			if maxCell > 0 {
				c = runewidth.Truncate(c, maxCell, "…")
				line[i] = c
			}
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	for li, line := range cells {
		var sb strings.Builder
		for i, c := range line {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(c, widths[i]))
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
		if li == 0 {
			sep := make([]string, len(widths))
			for i, wd := range widths {
				sep[i] = strings.Repeat("-", wd)
			}
			fmt.Fprintln(w, strings.Join(sep, "  "))
		}
	}
	fmt.Fprintf(w, "\n%d rows, %d columns\n", len(t.Rows), len(names))
}
