// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selector

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pdiddy/dataset-engine/internal/jsonrepair"
	"github.com/pdiddy/dataset-engine/internal/llm"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// maxRerankCandidates bounds the prompt size.
const maxRerankCandidates = 30

var rerankPromptTmpl = template.Must(template.New("rerank").Parse(`Order these web pages by how likely they are to contain tabular or list data answering the query. Prefer pages with data tables, directories, or statistics over news articles and home pages.

Query: {{.Query}}

Candidates:
{{range $i, $c := .Candidates}}[{{$i}}] {{$c.Title}} ({{$c.Domain}}) {{$c.Snippet}}
{{end}}
Respond with a JSON object and nothing else:
{"order": [<candidate indices, best first>]}
`))

// LLMReranker asks a model for a candidate order.
type LLMReranker struct {
	Client llm.Client
}

type rerankReply struct {
	Order []int `json:"order"`
}

// Rerank returns candidates in the model's order. Indices the model omits
// keep their lexical order after the ones it lists; invalid and repeated
// indices are ignored.
func (r *LLMReranker) Rerank(ctx context.Context, query string, candidates []types.SearchResult) ([]types.SearchResult, error) {
	if len(candidates) < 2 {
		return candidates, nil
	}
	head := candidates
	if len(head) > maxRerankCandidates {
		head = head[:maxRerankCandidates]
	}

	var buf bytes.Buffer
	data := struct {
		Query      string
		Candidates []types.SearchResult
	}{query, head}
	if err := rerankPromptTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := r.Client.Complete(ctx, buf.String())
	if err != nil {
		return nil, err
	}
	var reply rerankReply
	if err := jsonrepair.Parse(raw, &reply); err != nil {
		return nil, err
	}
	if len(reply.Order) == 0 {
		return nil, fmt.Errorf("model returned an empty order")
	}

	out := make([]types.SearchResult, 0, len(candidates))
	used := make([]bool, len(candidates))
	for _, idx := range reply.Order {
		if idx < 0 || idx >= len(head) || used[idx] {
			continue
		}
		used[idx] = true
		out = append(out, candidates[idx])
	}
	for i, c := range candidates {
		if !used[i] {
			out = append(out, c)
		}
	}
	return out, nil
}
