// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refine turns a free-text data request into a compact search query.
// A model strips instruction and filler words when one is configured; a
// deterministic stopword extractor runs whenever the model path fails.
package refine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"
	"unicode"

	"github.com/pdiddy/dataset-engine/internal/jsonrepair"
	"github.com/pdiddy/dataset-engine/internal/llm"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// ErrNoQuery is returned when neither path produces a usable query.
var ErrNoQuery = errors.New("no valid search query")

const (
	defaultMaxKeywords = 4
	maxModelWords      = 4
)

var refinePromptTmpl = template.Must(template.New("refine").Parse(`You turn data requests into web search queries.

Remove instruction and filler words ("give me", "list", "please", "data", "table") and keep only the topic keywords. The query must be 2 to 4 words.

Respond with a JSON object and nothing else:
{"query": "<search query>", "reasoning": "<one short sentence>"}

Request:
{{.Prompt}}
`))

// Refiner produces a SearchQuery from a user prompt.
type Refiner struct {
	// Client is the refining model. Nil disables the model path.
	Client llm.Client

	// MaxKeywords bounds the fallback extractor's output.
	MaxKeywords int
}

// New builds a Refiner from cfg. client may be nil.
func New(client llm.Client, cfg types.RefineConfig) *Refiner {
	r := &Refiner{MaxKeywords: cfg.MaxKeywords}
	if cfg.UseAI {
		r.Client = client
	}
	return r
}

// Refine returns a search query for prompt. Decisions are written to w.
func (r *Refiner) Refine(ctx context.Context, prompt string, w io.Writer) (types.SearchQuery, error) {
	if r.Client != nil {
		q, err := r.refineWithModel(ctx, prompt)
		if err == nil {
			fmt.Fprintf(w, "refined query %q via %s: %s\n", q.Text, r.Client.Name(), q.Reasoning)
			return q, nil
		}
		fmt.Fprintf(w, "query refinement model failed, using keyword extraction: %v\n", err)
	}

	max := r.MaxKeywords
	if max <= 0 {
		max = defaultMaxKeywords
	}
	kw := Keywords(prompt, max)
	if len(kw) == 0 {
		return types.SearchQuery{}, ErrNoQuery
	}
	q := types.SearchQuery{
		Text:      strings.Join(kw, " "),
		Reasoning: "keyword extraction from prompt",
		Priority:  1,
	}
	fmt.Fprintf(w, "refined query %q via keyword extraction\n", q.Text)
	return q, nil
}

type modelReply struct {
	Query     string `json:"query"`
	Reasoning string `json:"reasoning"`
}

func (r *Refiner) refineWithModel(ctx context.Context, prompt string) (types.SearchQuery, error) {
	var buf bytes.Buffer
	if err := refinePromptTmpl.Execute(&buf, struct{ Prompt string }{prompt}); err != nil {
		return types.SearchQuery{}, fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := r.Client.Complete(ctx, buf.String())
	if err != nil {
		return types.SearchQuery{}, err
	}

	var reply modelReply
	if err := jsonrepair.Parse(raw, &reply); err != nil {
		return types.SearchQuery{}, err
	}

	words := strings.Fields(reply.Query)
	if len(words) == 0 {
		return types.SearchQuery{}, errors.New("model returned an empty query")
	}
	if len(words) > maxModelWords {
		words = words[:maxModelWords]
	}
	return types.SearchQuery{
		Text:      strings.Join(words, " "),
		Reasoning: strings.TrimSpace(reply.Reasoning),
		Priority:  1,
	}, nil
}

// Keywords lowercases prompt, strips punctuation, drops stopwords and returns
// at most max of the remaining tokens in prompt order.
func Keywords(prompt string, max int) []string {
	tokens := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, t := range tokens {
		if len(out) == max {
			break
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "of", "in", "on", "at", "to", "for", "from",
		"by", "with", "about", "into", "is", "are", "was", "were", "be", "been",
		"me", "my", "i", "we", "us", "our", "you", "your", "it", "its", "this",
		"that", "these", "those", "some", "any", "all", "each", "every",
		"give", "get", "show", "list", "find", "fetch", "provide", "tell", "want",
		"need", "please", "can", "could", "would", "should", "will", "do", "does",
		"make", "create", "generate", "build", "collect", "gather", "compile",
		"data", "dataset", "table", "tables", "info", "information", "details",
		"what", "which", "who", "where", "when", "how", "latest", "recent",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
