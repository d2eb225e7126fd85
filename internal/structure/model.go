// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/dataset-engine/internal/corpus"
	"github.com/pdiddy/dataset-engine/internal/jsonrepair"
	"github.com/pdiddy/dataset-engine/internal/llm"
	"github.com/pdiddy/dataset-engine/internal/schema"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// extractionPromptTmpl asks a model for rows grounded in the corpus.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are a data extraction system. Build a table that answers the request below using only facts stated in the source documents.

Request: {{.Prompt}}

Rules:
- Never invent entities, names, dates or numbers that do not appear in the sources.
- Empty cells are acceptable. Use "" when the sources do not state a value. Do not drop a row because some values are missing.
- Return at most {{.NumRows}} rows. This is an upper bound, not a quota; return fewer rows rather than padding.
- Use short, consistent column names. Every row has the same columns.

Respond with a JSON object and nothing else:
{"schema": [{"name": "<column>", "type": "String|Integer|Float|Boolean|Date"}], "rows": [{"<column>": "<value>"}]}

Source documents:
{{.Corpus}}
`))

// defaultMaxWindows bounds the model calls one attempt makes over a
// corpus larger than the budget.
const defaultMaxWindows = 8

// ModelStrategy extracts rows by prompting a model with the rendered corpus.
// A corpus larger than Budget is read in overlapping windows, one model
// call each, until NumRows distinct rows are collected or the windows run
// out.
type ModelStrategy struct {
	Client llm.Client

	// Budget is the corpus character budget; zero means unlimited.
	Budget int

	// Overlap is the number of characters consecutive windows share.
	Overlap int

	// MaxWindows caps the windows read per attempt; zero means
	// defaultMaxWindows.
	MaxWindows int
}

// Name returns the model identifier.
func (m *ModelStrategy) Name() string { return m.Client.Name() }

// Attempt renders the prompt, calls the model and parses its rows.
func (m *ModelStrategy) Attempt(ctx context.Context, in Input) (Output, error) {
	if in.Corpus.IsEmpty() {
		return Output{}, fmt.Errorf("corpus is empty")
	}

	windows := corpus.Windows(in.Corpus, m.Budget, m.Overlap)
	if len(windows) == 1 {
		return m.extract(ctx, in, windows[0])
	}

	limit := m.MaxWindows
	if limit <= 0 {
		limit = defaultMaxWindows
	}
	read := windows[:min(len(windows), limit)]

	var acc rowSet
	var lastErr error
	calls := 0
	for i, w := range read {
		if in.NumRows > 0 && len(acc.out.Records) >= in.NumRows {
			break
		}
		calls++
		raw, err := m.complete(ctx, in, w)
		if err != nil {
			if i == 0 || ctx.Err() != nil {
				return Output{}, err
			}
			lastErr = err
			break
		}
		out, err := ParseRows(raw)
		if err != nil {
			lastErr = err
			continue
		}
		acc.add(out)
	}

	if len(acc.out.Records) == 0 {
		if lastErr == nil {
			lastErr = ErrUnacceptable
		}
		return Output{}, lastErr
	}

	note := fmt.Sprintf("read %d of %d corpus windows of %d characters", calls, len(windows), m.Budget)
	if calls == len(read) && len(read) < len(windows) {
		note += fmt.Sprintf("; window limit %d left the rest of the corpus unread", limit)
	}
	if lastErr != nil {
		note += fmt.Sprintf("; last window error: %v", lastErr)
	}
	if acc.out.Note != "" {
		note += "; " + acc.out.Note
	}
	acc.out.Note = note
	return acc.out, nil
}

// extract runs one model call over a rendered slice of the corpus.
func (m *ModelStrategy) extract(ctx context.Context, in Input, sources string) (Output, error) {
	raw, err := m.complete(ctx, in, sources)
	if err != nil {
		return Output{}, err
	}
	return ParseRows(raw)
}

func (m *ModelStrategy) complete(ctx context.Context, in Input, sources string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Prompt  string
		NumRows int
		Corpus  string
	}{in.Prompt, in.NumRows, sources}
	if err := extractionPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return m.Client.Complete(ctx, buf.String())
}

// rowSet accumulates records across windows, dropping records whose cells
// match one already held.
type rowSet struct {
	out  Output
	seen map[string]bool
	keys map[string]bool
}

func (s *rowSet) add(o Output) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
		s.keys = make(map[string]bool)
	}
	for _, k := range o.Order {
		if !s.keys[k] {
			s.keys[k] = true
			s.out.Order = append(s.out.Order, k)
		}
	}
	if len(s.out.Schema) == 0 {
		s.out.Schema = o.Schema
	}
	if s.out.Note == "" {
		s.out.Note = o.Note
	}
	for _, rec := range o.Records {
		key := recordKey(rec)
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.out.Records = append(s.out.Records, rec)
	}
}

// recordKey is a canonical form of rec: trimmed keys in sorted order with
// their cell strings. Empty cells are ignored.
func recordKey(rec types.Record) string {
	cells := make(map[string]string, len(rec))
	for k, v := range rec {
		if k = strings.TrimSpace(k); k == "" {
			continue
		}
		if c := schema.Stringify(v); c != "" {
			cells[k] = c
		}
	}
	data, _ := json.Marshal(cells)
	return string(data)
}

// ParseRows decodes model output into records. It accepts a bare array of
// objects or an object with a "rows" array (and optional "schema"), after
// the cleaning steps of jsonrepair. Non-object elements are dropped.
func ParseRows(raw string) (Output, error) {
	var lastErr error = jsonrepair.ErrNoJSON
	for _, c := range jsonrepair.Candidates(raw) {
		out, err := decodeRows([]byte(c))
		if err != nil {
			lastErr = err
			continue
		}
		return out, nil
	}
	return Output{}, lastErr
}

type rowsEnvelope struct {
	Rows     json.RawMessage `json:"rows"`
	Schema   json.RawMessage `json:"schema"`
	Feedback json.RawMessage `json:"feedback"`
}

func decodeRows(data []byte) (Output, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Output{}, jsonrepair.ErrNoJSON
	}

	var out Output
	arr := data
	if data[0] == '{' {
		var env rowsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return Output{}, err
		}
		if len(env.Rows) == 0 {
			return Output{}, fmt.Errorf("%w: object has no rows array", ErrUnacceptable)
		}
		arr = env.Rows
		// A malformed schema or note does not disqualify the rows.
		_ = json.Unmarshal(env.Schema, &out.Schema)
		_ = json.Unmarshal(env.Feedback, &out.Note)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(arr, &elems); err != nil {
		return Output{}, err
	}

	seen := make(map[string]bool)
	for _, el := range elems {
		rec, keys, err := decodeObject(el)
		if err != nil {
			continue
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				out.Order = append(out.Order, k)
			}
		}
		out.Records = append(out.Records, rec)
	}
	if len(out.Records) == 0 {
		return Output{}, ErrUnacceptable
	}
	return out, nil
}

var errNotObject = errors.New("not a JSON object")

// decodeObject reads one JSON object, keeping its key order. Numbers stay
// in their source spelling.
func decodeObject(data json.RawMessage) (types.Record, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errNotObject
	}

	rec := types.Record{}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, errNotObject
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := rec[key]; !dup {
			keys = append(keys, key)
		}
		rec[key] = v
	}
	return rec, keys, nil
}
