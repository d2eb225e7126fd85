// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/internal/schema"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

func table(cols []string, rows ...[]string) types.Table {
	t := types.Table{}
	for _, c := range cols {
		t.Columns = append(t.Columns, types.Column{Name: c, Type: types.ColumnString})
	}
	for _, vals := range rows {
		r := types.Row{}
		for i, c := range cols {
			r[c] = vals[i]
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func TestRenderCSV(t *testing.T) {
	tbl := table([]string{"name", "note"},
		[]string{"Acme, Inc.", `said "hi"`},
		[]string{"plain", "line1\nline2"},
	)
	got, err := RenderCSV(tbl, ',')
	require.NoError(t, err)
	assert.Equal(t, "name,note\n\"Acme, Inc.\",\"said \"\"hi\"\"\"\nplain,\"line1\nline2\"\n", got)
}

func TestCSVRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		delim rune
		tbl   types.Table
	}{
		{"commas quotes newlines", ',', table([]string{"a", "b", "c"},
			[]string{"x,y", `"quoted"`, "multi\nline"},
			[]string{"", "  leading space", "trailing,"},
		)},
		{"semicolon delimiter", ';', table([]string{"a", "b"},
			[]string{"1;2", "3,4"},
		)},
		{"single empty column", ',', table([]string{"only"},
			[]string{""},
			[]string{"v"},
		)},
		{"header only", ',', table([]string{"a", "b"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := RenderCSV(tt.tbl, tt.delim)
			require.NoError(t, err)
			got, err := ParseCSV(text, tt.delim)
			require.NoError(t, err)
			assert.Equal(t, tt.tbl.ColumnNames(), got.ColumnNames())
			assert.Equal(t, tt.tbl.Rows, got.Rows)
		})
	}
}

func TestCSVRoundTrip_NormalizedLineEndings(t *testing.T) {
	records := []types.Record{
		{"a": "line1\r\nline2", "b": "cr\ronly"},
		{"a": "plain", "b": "tail\r\n\r\nend"},
	}
	tbl := schema.Normalize(records, []string{"a", "b"}, nil, 0)

	text, err := RenderCSV(tbl, ',')
	require.NoError(t, err)
	got, err := ParseCSV(text, ',')
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows, got.Rows)
	assert.Equal(t, "line1\nline2", got.Rows[0]["a"])
	assert.Equal(t, "tail\n\nend", got.Rows[1]["b"])
}

func TestRenderCSV_NoColumns(t *testing.T) {
	got, err := RenderCSV(types.Table{}, ',')
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseCSV_Ragged(t *testing.T) {
	_, err := ParseCSV("a,b\n1\n", ',')
	assert.Error(t, err)
}

func TestDelimiter(t *testing.T) {
	assert.Equal(t, ',', Delimiter(""))
	assert.Equal(t, ';', Delimiter(";"))
	assert.Equal(t, '\t', Delimiter("\t"))
	assert.Equal(t, ',', Delimiter(`"`))
}

func TestChunks(t *testing.T) {
	rows := []types.Row{{"a": "1"}, {"a": "2"}, {"a": "3"}}
	chunks := Chunks(rows, 2)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Offset)
	assert.Len(t, chunks[0].Rows, 2)
	assert.Equal(t, 2, chunks[1].Offset)
	assert.Equal(t, 3, chunks[1].TotalRows)

	assert.Len(t, Chunks(rows, 0), 1)
	assert.Empty(t, Chunks(nil, 5))
}

func TestChunkTables(t *testing.T) {
	tbl := table([]string{"a"}, []string{"1"}, []string{"2"}, []string{"3"})
	parts, err := ChunkTables(tbl, 2, ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"a\n1\n2\n", "a\n3\n"}, parts)
}

func TestFormatPreview(t *testing.T) {
	tbl := table([]string{"city", "name"},
		[]string{"Pune", "Station with a very long name"},
		[]string{"東京", "short"},
	)
	var buf bytes.Buffer
	FormatPreview(&buf, tbl, 10)

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "city  name", lines[0])
	assert.Equal(t, "----  ----------", lines[1])
	assert.Equal(t, "Pune  Station w…", lines[2])
	assert.Equal(t, "東京  short", lines[3])
	assert.Contains(t, buf.String(), "2 rows, 2 columns")

	buf.Reset()
	FormatPreview(&buf, types.Table{}, 0)
	assert.Equal(t, "No rows.\n", buf.String())
}
