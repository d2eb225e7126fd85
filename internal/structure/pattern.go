// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structure

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/dataset-engine/internal/corpus"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Bounds for the prose strategy, in runes.
const (
	minProseLen = 20
	maxProseLen = 300
)

const (
	maxKeyWords = 5
	maxKeyLen   = 40
)

var (
	tableSeparator = regexp.MustCompile(`^:?-{2,}:?$`)
	keyValueLine   = regexp.MustCompile(`^([^:|]{1,40}):\s+(\S.*)$`)
	listItemLine   = regexp.MustCompile(`^(?:[-*•▪·]|\d{1,3}[.)])\s+(\S.*)$`)
)

// PatternStrategy extracts rows from corpus lines without any model. It
// tries markdown tables, then key/value lines, then list items, then prose
// lines of bounded length, and stops at the first that yields a row.
type PatternStrategy struct{}

// Name returns types.TierPattern.
func (PatternStrategy) Name() string { return types.TierPattern }

type patternFunc struct {
	name string
	fn   func(lines []string, limit int) Output
}

var patterns = []patternFunc{
	{"markdown tables", MarkdownTables},
	{"key/value lines", KeyValues},
	{"list items", ListItems},
	{"prose lines", ProseLines},
}

// Attempt scans the corpus lines.
func (PatternStrategy) Attempt(ctx context.Context, in Input) (Output, error) {
	lines := corpus.Lines(in.Corpus)
	for _, p := range patterns {
		if err := ctx.Err(); err != nil {
			return Output{}, err
		}
		out := p.fn(lines, in.NumRows)
		if len(out.Records) > 0 {
			out.Note = fmt.Sprintf("pattern matcher used %s", p.name)
			return out, nil
		}
	}
	return Output{}, ErrUnacceptable
}

// MarkdownTables reads every run of "|" lines as a table whose first row is
// the header. Separator rows are skipped, blank header cells become
// Column_N, and rows whose cell count differs from the header are skipped.
func MarkdownTables(lines []string, limit int) Output {
	var out Output
	seen := make(map[string]bool)
	var header []string

	for _, l := range lines {
		if !strings.HasPrefix(strings.TrimSpace(l), "|") {
			header = nil
			continue
		}
		cells := splitRow(l)
		if isSeparator(cells) {
			continue
		}
		if header == nil {
			header = make([]string, len(cells))
			for i, c := range cells {
				if c == "" {
					c = fmt.Sprintf("Column_%d", i)
				}
				header[i] = c
				if !seen[c] {
					seen[c] = true
					out.Order = append(out.Order, c)
				}
			}
			continue
		}
		if len(cells) != len(header) {
			continue
		}
		rec := make(types.Record, len(cells))
		empty := true
		for i, c := range cells {
			rec[header[i]] = c
			if c != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		out.Records = append(out.Records, rec)
		if full(out.Records, limit) {
			break
		}
	}
	return out
}

func splitRow(l string) []string {
	l = strings.TrimSpace(l)
	l = strings.TrimPrefix(l, "|")
	l = strings.TrimSuffix(l, "|")
	parts := strings.Split(l, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if !tableSeparator.MatchString(c) {
			return false
		}
	}
	return len(cells) > 0
}

// KeyValues groups consecutive "key: value" lines into records. A repeated
// key or any other line starts a new record.
func KeyValues(lines []string, limit int) Output {
	var out Output
	seen := make(map[string]bool)
	var cur types.Record

	flush := func() {
		if len(cur) > 0 {
			out.Records = append(out.Records, cur)
		}
		cur = nil
	}

	for _, l := range lines {
		key, value, ok := keyValue(l)
		if !ok {
			flush()
			if full(out.Records, limit) {
				break
			}
			continue
		}
		if _, dup := cur[key]; dup {
			flush()
			if full(out.Records, limit) {
				break
			}
		}
		if cur == nil {
			cur = types.Record{}
		}
		cur[key] = value
		if !seen[key] {
			seen[key] = true
			out.Order = append(out.Order, key)
		}
	}
	if !full(out.Records, limit) {
		flush()
	}
	return out
}

func keyValue(l string) (string, string, bool) {
	m := keyValueLine.FindStringSubmatch(strings.TrimSpace(l))
	if m == nil {
		return "", "", false
	}
	key, value := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	if len(strings.Fields(key)) > maxKeyWords || utf8.RuneCountInString(key) > maxKeyLen {
		return "", "", false
	}
	if !strings.ContainsFunc(key, unicode.IsLetter) || strings.HasPrefix(value, "//") {
		return "", "", false
	}
	return key, value, true
}

// ItemColumn and TextColumn name the single column of list and prose rows.
const (
	ItemColumn = "Item"
	TextColumn = "Text"
)

// ListItems turns bulleted and numbered lines into single-column rows.
func ListItems(lines []string, limit int) Output {
	return singleColumn(lines, limit, ItemColumn, func(l string) (string, bool) {
		m := listItemLine.FindStringSubmatch(strings.TrimSpace(l))
		if m == nil || utf8.RuneCountInString(m[1]) < 3 {
			return "", false
		}
		return strings.TrimSpace(m[1]), true
	})
}

// ProseLines keeps non-table lines of bounded length as single-column rows.
func ProseLines(lines []string, limit int) Output {
	return singleColumn(lines, limit, TextColumn, func(l string) (string, bool) {
		l = strings.TrimSpace(l)
		n := utf8.RuneCountInString(l)
		if strings.HasPrefix(l, "|") || n < minProseLen || n > maxProseLen {
			return "", false
		}
		return l, true
	})
}

func singleColumn(lines []string, limit int, column string, match func(string) (string, bool)) Output {
	out := Output{Order: []string{column}}
	seen := make(map[string]bool)
	for _, l := range lines {
		v, ok := match(l)
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out.Records = append(out.Records, types.Record{column: v})
		if full(out.Records, limit) {
			break
		}
	}
	return out
}

func full(records []types.Record, limit int) bool {
	return limit > 0 && len(records) >= limit
}
