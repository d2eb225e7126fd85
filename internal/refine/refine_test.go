// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/internal/llm"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

func TestKeywords(t *testing.T) {
	tests := []struct {
		prompt string
		max    int
		want   []string
	}{
		{"give me NSE FII/DII data", 4, []string{"nse", "fii", "dii"}},
		{"List EV charging stations in Bengaluru!", 4, []string{"ev", "charging", "stations", "bengaluru"}},
		{"mango apple tree diseases", 3, []string{"mango", "apple", "tree"}},
		{"please give me the data", 4, nil},
		{"", 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, Keywords(tt.prompt, tt.max))
		})
	}
}

func TestRefineWithModel(t *testing.T) {
	client := &llm.Func{ID: "fake", Fn: func(_ context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "give me NSE FII/DII data")
		return "```json\n{\"query\": \"NSE FII DII\", \"reasoning\": \"topic keywords\"}\n```", nil
	}}
	r := New(client, types.RefineConfig{UseAI: true, MaxKeywords: 4})

	var buf bytes.Buffer
	q, err := r.Refine(context.Background(), "give me NSE FII/DII data", &buf)
	require.NoError(t, err)
	assert.Equal(t, "NSE FII DII", q.Text)
	assert.Equal(t, "topic keywords", q.Reasoning)
	assert.Contains(t, buf.String(), "via fake")
}

func TestRefineFallsBackOnModelFailure(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"error", "", errors.New("quota exceeded")},
		{"malformed", "I think you want mangoes", nil},
		{"empty query", `{"query": "  ", "reasoning": "none"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &llm.Func{ID: "fake", Fn: func(context.Context, string) (string, error) {
				return tt.reply, tt.err
			}}
			r := New(client, types.RefineConfig{UseAI: true, MaxKeywords: 3})

			var buf bytes.Buffer
			q, err := r.Refine(context.Background(), "mango apple tree diseases", &buf)
			require.NoError(t, err)
			assert.Equal(t, "mango apple tree", q.Text)
			assert.Contains(t, buf.String(), "using keyword extraction")
		})
	}
}

func TestRefineTruncatesLongModelQuery(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"eight words", `{"query": "one two three four five six seven eight"}`, "one two three four"},
		{"five words", `{"query": "mango apple tree disease list"}`, "mango apple tree disease"},
		{"four words", `{"query": "mango apple tree disease"}`, "mango apple tree disease"},
		{"two words", `{"query": "mango  diseases"}`, "mango diseases"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &llm.Func{ID: "fake", Fn: func(context.Context, string) (string, error) {
				return tt.reply, nil
			}}
			q, err := New(client, types.RefineConfig{UseAI: true}).Refine(context.Background(), "x", &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Text)
		})
	}
}

func TestRefineNoQuery(t *testing.T) {
	client := &llm.Func{ID: "fake", Fn: func(context.Context, string) (string, error) {
		return `{"query": ""}`, nil
	}}
	_, err := New(client, types.RefineConfig{UseAI: true}).Refine(context.Background(), "please give me the data", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNoQuery)
}

func TestRefineModelDisabled(t *testing.T) {
	client := &llm.Func{ID: "fake", Fn: func(context.Context, string) (string, error) {
		return `{"query": "should not be used"}`, nil
	}}
	r := New(client, types.RefineConfig{UseAI: false})
	q, err := r.Refine(context.Background(), "best restaurants in Pune", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "best restaurants pune", q.Text)
	assert.Equal(t, 0, client.Calls())
}
