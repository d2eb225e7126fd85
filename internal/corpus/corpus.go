// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus cleans fetched documents and assembles them into one
// session-scoped Corpus that extraction tiers and recovery paths can re-read.
package corpus

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/dataset-engine/internal/session"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Assemble cleans every successful document and aggregates metadata.
// Documents whose cleaned content is empty are dropped. Per-document noise
// reduction is written to w.
func Assemble(sessionID, query string, docs []types.FetchedDocument, w io.Writer) types.Corpus {
	c := types.Corpus{
		SessionID:   sessionID,
		Query:       query,
		AssembledAt: time.Now().UTC(),
	}

	for _, d := range docs {
		if !d.OK() {
			continue
		}
		cleaned := Clean(d.RawContent)
		rawLen := utf8.RuneCountInString(d.RawContent)
		cleanLen := utf8.RuneCountInString(cleaned)
		if cleanLen == 0 {
			fmt.Fprintf(w, "corpus: dropped %s (nothing left after cleaning)\n", d.URL)
			continue
		}

		doc := types.CorpusDocument{
			URL:            d.URL,
			Title:          d.Title,
			Content:        cleaned,
			RawLength:      rawLen,
			CleanedLength:  cleanLen,
			NoiseReduction: reduction(rawLen, cleanLen),
			FetchedAt:      d.FetchedAt,
		}
		c.Documents = append(c.Documents, doc)
		c.TotalLength += rawLen
		c.CleanedLength += cleanLen
		fmt.Fprintf(w, "corpus: %s %d -> %d chars (%.0f%% noise removed)\n",
			d.URL, rawLen, cleanLen, doc.NoiseReduction*100)
	}

	c.SourceCount = len(c.Documents)
	c.NoiseReduction = reduction(c.TotalLength, c.CleanedLength)
	fmt.Fprintf(w, "corpus assembled: %d sources, %d -> %d chars\n", c.SourceCount, c.TotalLength, c.CleanedLength)
	return c
}

func reduction(raw, cleaned int) float64 {
	if raw == 0 || cleaned >= raw {
		return 0
	}
	return 1 - float64(cleaned)/float64(raw)
}

// Save persists c as the session's corpus artifact.
func Save(ctx context.Context, s session.Store, c types.Corpus) error {
	return session.PutYAML(ctx, s, c.SessionID, session.CorpusArtifact, c)
}

// Load reads the corpus artifact for sessionID.
func Load(ctx context.Context, s session.Store, sessionID string) (types.Corpus, error) {
	var c types.Corpus
	if err := session.GetYAML(ctx, s, sessionID, session.CorpusArtifact, &c); err != nil {
		return types.Corpus{}, err
	}
	return c, nil
}

// Render formats the corpus as model input, giving each document an equal
// share of budget characters and passing unused share on to later
// documents. A budget of zero or less means no limit.
func Render(c types.Corpus, budget int) string {
	n := len(c.Documents)
	if n == 0 {
		return ""
	}

	limits := make([]int, n)
	if budget <= 0 {
		for i, d := range c.Documents {
			limits[i] = utf8.RuneCountInString(d.Content)
		}
	} else {
		remaining := budget
		for i, d := range c.Documents {
			share := remaining / (n - i)
			size := utf8.RuneCountInString(d.Content)
			if size < share {
				share = size
			}
			limits[i] = share
			remaining -= share
		}
	}

	var sb strings.Builder
	for i, d := range c.Documents {
		fmt.Fprintf(&sb, "### Source %d: %s\nURL: %s\n", i+1, d.Title, d.URL)
		sb.WriteString(truncateRunes(d.Content, limits[i]))
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Windows renders the whole corpus and splits it into consecutive windows
// of at most size runes, each starting size-overlap runes after the last.
// A size of zero or less, or a corpus that fits in one window, yields a
// single window.
func Windows(c types.Corpus, size, overlap int) []string {
	text := Render(c, 0)
	if text == "" {
		return nil
	}
	r := []rune(text)
	if size <= 0 || len(r) <= size {
		return []string{text}
	}

	step := max(1, size-max(overlap, 0))
	var out []string
	for start := 0; start < len(r); start += step {
		end := min(len(r), start+size)
		out = append(out, string(r[start:end]))
		if end == len(r) {
			break
		}
	}
	return out
}

// Lines returns every content line in document order, with an empty line
// between documents.
func Lines(c types.Corpus) []string {
	var out []string
	for i, d := range c.Documents {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, strings.Split(d.Content, "\n")...)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
