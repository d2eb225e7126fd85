// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
	}{
		{"anthropic", "anthropic/m1"},
		{"openai", "openai/m1"},
		{"openrouter", "openai/m1"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c, err := NewClient(types.AIConfig{Provider: tt.provider, Model: "m1"}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, c.Name())
		})
	}
}

func TestNewClientUnsupported(t *testing.T) {
	_, err := NewClient(types.AIConfig{Provider: "carrier-pigeon", Model: "x"}, nil)
	var unsupported ErrUnsupportedProvider
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "carrier-pigeon", unsupported.Provider)
}

func TestWithModel(t *testing.T) {
	base := types.AIConfig{Provider: "anthropic", Model: "a", APIKey: "k"}
	alt := WithModel(base, "b")
	assert.Equal(t, "b", alt.Model)
	assert.Equal(t, "k", alt.APIKey)
	assert.Equal(t, "a", base.Model)
}

func TestAnthropicComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		io.WriteString(w, `{"content":[{"type":"text","text":"[{\"a\":"},{"type":"tool_use"},{"type":"text","text":"1}]"}]}`)
	}))
	defer ts.Close()

	c := &Anthropic{APIKey: "test-key", Model: "claude-test", BaseURL: ts.URL, MaxTokens: 100, Client: ts.Client()}
	out, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1}]`, out)
}

func TestAnthropicCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"non-200", http.StatusBadRequest, `{"error":"bad"}`, "returned 400"},
		{"empty content", http.StatusOK, `{"content":[]}`, "no text content"},
		{"bad json", http.StatusOK, `not json`, "decoding Claude response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			c := &Anthropic{APIKey: "k", Model: "m", BaseURL: ts.URL, Client: ts.Client()}
			_, err := c.Complete(context.Background(), "p")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAnthropicMissingKey(t *testing.T) {
	c := &Anthropic{Model: "m"}
	_, err := c.Complete(context.Background(), "p")
	assert.Error(t, err)
}

func TestOpenAIComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		io.WriteString(w, `{"choices":[{"message":{"content":"  ok  "}}]}`)
	}))
	defer ts.Close()

	c := &OpenAI{APIKey: "sk-test", Model: "gpt", BaseURL: ts.URL + "/", Client: ts.Client()}
	out, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestOpenAIRetriesThrottle(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `{"choices":[{"message":{"content":"done"}}]}`)
	}))
	defer ts.Close()

	c := &OpenAI{APIKey: "k", Model: "m", BaseURL: ts.URL, Client: ts.Client()}
	out, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 2, calls)
}

func TestOpenAINoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer ts.Close()

	c := &OpenAI{APIKey: "k", Model: "m", BaseURL: ts.URL, Client: ts.Client()}
	_, err := c.Complete(context.Background(), "p")
	assert.ErrorContains(t, err, "no choices")
}
