// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selector

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/internal/category"
	"github.com/pdiddy/dataset-engine/internal/llm"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

func cand(url, title, snippet string) types.SearchResult {
	return types.SearchResult{URL: url, Title: title, Snippet: snippet}
}

func TestAllowed(t *testing.T) {
	s := New(types.SelectorConfig{ExtraBlocklist: []string{"spam.io"}}, nil)
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.google.com/search?q=x", false},
		{"https://en.wikipedia.org/wiki/Mango", false},
		{"https://m.facebook.com/page", false},
		{"https://x.com/someone", false},
		{"https://news.spam.io/a", false},
		{"ftp://files.example.com/data.csv", false},
		{"not a url", false},
		{"https://agri.example.org/mango-diseases", true},
		{"http://xylophone.com/", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Allowed(tt.url))
		})
	}
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"mango", "apple", "tree", "diseases"}, Terms("Mango apple tree diseases"))
	assert.Equal(t, []string{"nse", "fii", "dii"}, Terms("NSE FII dii"))
	assert.Empty(t, Terms("a of to"))
}

func TestScore(t *testing.T) {
	terms := Terms("mango tree diseases")
	phrase := "mango tree diseases"

	tests := []struct {
		name           string
		title, snippet string
		want           float64
	}{
		{"no match", "cooking", "recipes", 0},
		{"all title terms", "Diseases of the Mango Tree", "", 0.7},
		{"phrase in title caps match", "Mango tree diseases guide", "", 0.7},
		{"phrase everywhere", "mango tree diseases", "mango tree diseases", 1.0},
		{"partial", "Mango", "tree", 0.7*(1.0/3) + 0.3*(1.0/3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(terms, phrase, tt.title, tt.snippet), 1e-9)
		})
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	in := []types.SearchResult{
		{URL: "https://a.com", Title: "unrelated", RelevanceScore: 0.9},
		{URL: "https://b.com", Title: "mango diseases", RelevanceScore: 0.1},
	}
	ranked := Rank("mango diseases", in, nil)

	assert.Equal(t, "https://b.com", ranked[0].URL)
	assert.Equal(t, 0.9, in[0].RelevanceScore)
	assert.Equal(t, "https://a.com", in[0].URL)
}

func TestRankDomainBoost(t *testing.T) {
	in := []types.SearchResult{
		cand("https://blog.example.com/fii", "FII DII data", ""),
		cand("https://www.moneycontrol.com/fii", "FII DII data", ""),
	}
	profile := category.Detect("fii dii")
	ranked := Rank("fii dii data", in, profile.BoostsDomain)

	assert.Equal(t, "moneycontrol.com", ranked[0].Domain)
	assert.InDelta(t, 0.9, ranked[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.7, ranked[1].RelevanceScore, 1e-9)
}

func TestSelectPartitions(t *testing.T) {
	s := New(types.SelectorConfig{}, nil)
	candidates := []types.SearchResult{
		cand("https://www.google.com/search?q=mango", "mango", ""),
		cand("https://a.org/1", "mango tree diseases", "mango tree diseases"),
		cand("https://b.org/2", "mango", ""),
		cand("https://en.wikipedia.org/wiki/Mango", "Mango", ""),
		cand("https://c.org/3", "mango tree", "diseases"),
		cand("https://d.org/4", "other", ""),
	}

	var buf bytes.Buffer
	sel := s.Select(context.Background(), "mango tree diseases", "mango tree diseases", candidates, 2, &buf)

	assert.Equal(t, 2, sel.Blocked)
	require.Len(t, sel.Initial, 2)
	assert.Equal(t, "https://a.org/1", sel.Initial[0].URL)
	assert.Equal(t, "https://c.org/3", sel.Initial[1].URL)
	require.Len(t, sel.Backfill, 2)
	assert.Equal(t, "https://b.org/2", sel.Backfill[0].URL)
	assert.Equal(t, "https://d.org/4", sel.Backfill[1].URL)
	assert.Contains(t, buf.String(), "filtered 2 of 6 candidates (4 remain)")
}

func TestSelectAllBlocked(t *testing.T) {
	s := New(types.SelectorConfig{CuratedInjection: true}, nil)
	sel := s.Select(context.Background(), "nse fii dii", "nse fii dii", []types.SearchResult{
		cand("https://www.bing.com/search?q=nse", "nse", ""),
		cand("https://twitter.com/nse", "nse", ""),
	}, 5, &bytes.Buffer{})

	assert.True(t, sel.IsEmpty())
	assert.Equal(t, 2, sel.Blocked)
}

func TestSelectCuratedInjection(t *testing.T) {
	s := New(types.SelectorConfig{CuratedInjection: true}, nil)
	var buf bytes.Buffer
	sel := s.Select(context.Background(), "give me NSE FII/DII data", "nse fii dii", []types.SearchResult{
		cand("https://blog.example.com/fii", "FII DII", ""),
	}, 1, &buf)

	require.Len(t, sel.Initial, 1)
	assert.Equal(t, "curated", sel.Initial[0].Source)
	assert.Equal(t, category.Finance, sel.Category)
	require.Len(t, sel.Backfill, 1)
	assert.Contains(t, buf.String(), "injected curated finance source")
}

func TestSelectCuratedNotDuplicated(t *testing.T) {
	s := New(types.SelectorConfig{CuratedInjection: true}, nil)
	curated := category.Detect("fii").CuratedURL
	sel := s.Select(context.Background(), "fii dii", "fii dii", []types.SearchResult{cand(curated, "FII", "")}, 5, &bytes.Buffer{})
	assert.Len(t, sel.Ranked(), 1)
}

type stubReranker struct {
	err error
}

// Rerank reverses the lexical order.
func (s stubReranker) Rerank(_ context.Context, _ string, c []types.SearchResult) ([]types.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]types.SearchResult, len(c))
	for i := range c {
		out[len(c)-1-i] = c[i]
	}
	return out, nil
}

func TestSelectReranker(t *testing.T) {
	candidates := []types.SearchResult{
		cand("https://a.org", "mango diseases", ""),
		cand("https://b.org", "other", ""),
	}

	s := New(types.SelectorConfig{AIRerank: true}, stubReranker{})
	sel := s.Select(context.Background(), "mango diseases", "mango diseases", candidates, 2, &bytes.Buffer{})
	assert.Equal(t, "https://b.org", sel.Initial[0].URL)

	var buf bytes.Buffer
	s = New(types.SelectorConfig{AIRerank: true}, stubReranker{err: errors.New("quota")})
	sel = s.Select(context.Background(), "mango diseases", "mango diseases", candidates, 2, &buf)
	assert.Equal(t, "https://a.org", sel.Initial[0].URL)
	assert.Contains(t, buf.String(), "keeping lexical order")
}

func TestLLMReranker(t *testing.T) {
	candidates := []types.SearchResult{
		cand("https://a.org", "A", ""),
		cand("https://b.org", "B", ""),
		cand("https://c.org", "C", ""),
	}
	client := &llm.Func{ID: "m", Fn: func(_ context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "[2] C")
		return `{"order": [2, 7, 2, 0]}`, nil
	}}

	out, err := (&LLMReranker{Client: client}).Rerank(context.Background(), "q", candidates)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"https://c.org", "https://a.org", "https://b.org"},
		[]string{out[0].URL, out[1].URL, out[2].URL})
}

func TestLLMRerankerErrors(t *testing.T) {
	candidates := []types.SearchResult{cand("https://a.org", "A", ""), cand("https://b.org", "B", "")}

	bad := &llm.Func{ID: "m", Fn: func(context.Context, string) (string, error) { return "no idea", nil }}
	_, err := (&LLMReranker{Client: bad}).Rerank(context.Background(), "q", candidates)
	assert.Error(t, err)

	empty := &llm.Func{ID: "m", Fn: func(context.Context, string) (string, error) { return `{"order": []}`, nil }}
	_, err = (&LLMReranker{Client: empty}).Rerank(context.Background(), "q", candidates)
	assert.Error(t, err)
}
