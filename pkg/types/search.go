// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the dataset-engine pipeline:
// search candidates, fetched documents, the assembled corpus, extraction
// attempts, the tabular result, and stage configuration.
package types

// SearchQuery is one query issued against the search backends. Produced by the
// refiner or a query generator and consumed once by the search provider.
type SearchQuery struct {
	// Text is the query string sent to the backend.
	Text string `json:"text" yaml:"text"`

	// Reasoning explains how the query was derived (model output or fallback rule).
	Reasoning string `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`

	// Priority orders queries; lower runs first.
	Priority int `json:"priority" yaml:"priority"`
}

// SearchResult represents a candidate page returned by a web search backend.
type SearchResult struct {
	// URL is the candidate page address.
	URL string `json:"url" yaml:"url"`

	// Title is the page title as returned by the backend.
	Title string `json:"title" yaml:"title"`

	// Snippet is the short content excerpt returned by the backend.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Domain is the lowercased host of URL without a leading "www.".
	Domain string `json:"domain" yaml:"domain"`

	// Source identifies which backend found this result (e.g. "searxng").
	Source string `json:"source" yaml:"source"`

	// RelevanceScore is a value between 0.0 and 1.0 indicating relevance to the query.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}
