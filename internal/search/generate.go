// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/pdiddy/dataset-engine/internal/category"
	"github.com/pdiddy/dataset-engine/internal/jsonrepair"
	"github.com/pdiddy/dataset-engine/internal/llm"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

const minFallbackQueries = 2

var queryPromptTmpl = template.Must(template.New("queries").Parse(`A web search for the query below returned no results.

Suggest {{.Count}} alternative web search queries that are likely to find pages containing this data as tables or lists. Keep each query short (3 to 6 words) and different from the others.

Respond with a JSON object and nothing else:
{"queries": [{"query": "...", "reasoning": "..."}]}

Original request: {{.Prompt}}
Failed query: {{.Query}}
`))

// Generator produces alternate queries when the refined query yields nothing.
type Generator struct {
	// Client generates queries with a model. Nil uses only the deterministic
	// category-keyed generator.
	Client llm.Client
}

// Generate returns at least two alternate queries for prompt, excluding any
// that duplicate failed. Model suggestions come first when available; the
// deterministic generator always tops up the list.
func (g *Generator) Generate(ctx context.Context, prompt string, failed types.SearchQuery, w io.Writer) []types.SearchQuery {
	var queries []types.SearchQuery
	if g != nil && g.Client != nil {
		qs, err := g.fromModel(ctx, prompt, failed.Text)
		if err != nil {
			fmt.Fprintf(w, "fallback query model failed: %v\n", err)
		} else {
			queries = append(queries, qs...)
		}
	}
	queries = append(queries, FallbackQueries(prompt, failed.Text)...)

	failedNorm := NormalizeQuery(failed.Text)
	fresh := queries[:0]
	for _, q := range queries {
		if NormalizeQuery(q.Text) != failedNorm {
			fresh = append(fresh, q)
		}
	}
	return DedupeQueries(fresh)
}

type generatedQueries struct {
	Queries []struct {
		Query     string `json:"query"`
		Reasoning string `json:"reasoning"`
	} `json:"queries"`
}

func (g *Generator) fromModel(ctx context.Context, prompt, failed string) ([]types.SearchQuery, error) {
	var buf bytes.Buffer
	data := struct {
		Count         int
		Prompt, Query string
	}{3, prompt, failed}
	if err := queryPromptTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := g.Client.Complete(ctx, buf.String())
	if err != nil {
		return nil, err
	}
	var gq generatedQueries
	if err := jsonrepair.Parse(raw, &gq); err != nil {
		return nil, err
	}

	var out []types.SearchQuery
	for i, q := range gq.Queries {
		text := strings.TrimSpace(q.Query)
		if text == "" {
			continue
		}
		out = append(out, types.SearchQuery{Text: text, Reasoning: q.Reasoning, Priority: 10 + i})
	}
	return out, nil
}

// FallbackQueries builds deterministic query variants from the category
// detected in prompt. The topic is the failed query, or the prompt itself
// when the query is empty.
func FallbackQueries(prompt, failed string) []types.SearchQuery {
	profile := category.Detect(prompt)
	topic := strings.TrimSpace(failed)
	if topic == "" {
		topic = NormalizeQuery(prompt)
	}

	var out []types.SearchQuery
	for i, suffix := range profile.QuerySuffixes {
		out = append(out, types.SearchQuery{
			Text:      topic + " " + suffix,
			Reasoning: fmt.Sprintf("%s category variant", profile.Category),
			Priority:  20 + i,
		})
	}

	// Broaden by dropping the last topic word.
	if words := strings.Fields(topic); len(words) > 2 {
		out = append(out, types.SearchQuery{
			Text:      strings.Join(words[:len(words)-1], " "),
			Reasoning: "broadened query",
			Priority:  20 + len(out),
		})
	}
	if len(out) < minFallbackQueries {
		out = append(out, types.SearchQuery{Text: topic + " list", Reasoning: "generic variant", Priority: 30})
	}
	return out
}
