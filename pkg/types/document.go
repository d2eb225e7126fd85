// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FetchedDocument is the outcome of fetching one URL. Either Content is
// populated or Error describes why the URL produced nothing.
type FetchedDocument struct {
	URL string `json:"url" yaml:"url"`

	Title string `json:"title" yaml:"title"`

	// RawContent is the richest representation the fetch backend returned
	// (extracted text, structured tables, cleaned markup, raw markup).
	RawContent string `json:"raw_content" yaml:"raw_content"`

	// Representation names which of the representations RawContent holds.
	Representation string `json:"representation,omitempty" yaml:"representation,omitempty"`

	ContentLength int `json:"content_length" yaml:"content_length"`

	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`

	// Attempts is the number of fetch attempts made for this URL.
	Attempts int `json:"attempts" yaml:"attempts"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the document carries content.
func (d FetchedDocument) OK() bool {
	return d.Error == "" && d.RawContent != ""
}

// CorpusDocument is one cleaned document inside a Corpus.
type CorpusDocument struct {
	URL   string `json:"url" yaml:"url"`
	Title string `json:"title" yaml:"title"`

	// Content is the cleaned text used for extraction.
	Content string `json:"content" yaml:"content"`

	RawLength     int `json:"raw_length" yaml:"raw_length"`
	CleanedLength int `json:"cleaned_length" yaml:"cleaned_length"`

	// NoiseReduction is 1 - CleanedLength/RawLength, in [0,1].
	NoiseReduction float64 `json:"noise_reduction" yaml:"noise_reduction"`

	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// Corpus is the assembled, cleaned set of documents for one pipeline run.
// It is immutable once assembled and persisted as a session artifact.
type Corpus struct {
	SessionID string `json:"session_id" yaml:"session_id"`

	// Query is the refined search query that produced the corpus.
	Query string `json:"query" yaml:"query"`

	Documents []CorpusDocument `json:"documents" yaml:"documents"`

	SourceCount   int `json:"source_count" yaml:"source_count"`
	TotalLength   int `json:"total_length" yaml:"total_length"`
	CleanedLength int `json:"cleaned_length" yaml:"cleaned_length"`

	// NoiseReduction is the aggregate reduction across all documents.
	NoiseReduction float64 `json:"noise_reduction" yaml:"noise_reduction"`

	AssembledAt time.Time `json:"assembled_at" yaml:"assembled_at"`
}

// IsEmpty reports whether the corpus holds no usable document.
func (c Corpus) IsEmpty() bool {
	return len(c.Documents) == 0
}
