// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jsonrepair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"text around fence", "Here you go:\n```json\n{\"a\":1}\n```\nThanks", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1", `{"a":1`},
		{"no fence", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestExtractBalanced(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"object in prose", `Result: {"a": [1, 2]} done`, `{"a": [1, 2]}`, true},
		{"largest span wins", `{"x":1} and [{"a":1},{"b":2}]`, `[{"a":1},{"b":2}]`, true},
		{"brackets in strings", `{"s": "a } b ]"}`, `{"s": "a } b ]"}`, true},
		{"escaped quote", `{"s": "say \"hi\" }"}`, `{"s": "say \"hi\" }"}`, true},
		{"unbalanced", `{"a": [1, 2}`, "", false},
		{"none", "no json here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractBalanced(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepairTruncated(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"cut inside second object", `[{"a":1},{"b":`, `[{"a":1}]`, true},
		{"cut inside string", `{"rows":[{"a":"x"},{"a":"unterm`, `{"rows":[{"a":"x"}]}`, true},
		{"trailing comma", `{"rows":[{"a":1},`, `{"rows":[{"a":1}]}`, true},
		{"already complete", `[1,2]`, `[1,2]`, true},
		{"nothing complete", `{"a":`, "", false},
		{"no brackets", `plain`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RepairTruncated(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	type payload struct {
		Rows []map[string]any `json:"rows"`
	}

	tests := []struct {
		name     string
		in       string
		wantRows int
	}{
		{"clean", `{"rows":[{"a":1}]}`, 1},
		{"fenced", "```json\n{\"rows\":[{\"a\":1},{\"a\":2}]}\n```", 2},
		{"prose wrapped", `Sure! {"rows":[{"a":1}]} Hope this helps.`, 1},
		{"truncated", `{"rows":[{"a":1},{"a":2},{"a":`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			require.NoError(t, Parse(tt.in, &p))
			assert.Len(t, p.Rows, tt.wantRows)
		})
	}
}

func TestParseFailure(t *testing.T) {
	var v map[string]any
	err := Parse("I could not find any data.", &v)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestCandidatesPreferRepairForTruncatedOuter(t *testing.T) {
	c := Candidates(`{"rows":[{"a":1},{"a":`)
	require.NotEmpty(t, c)
	assert.Equal(t, `{"rows":[{"a":1}]}`, c[1])
}
