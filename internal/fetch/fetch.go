// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves page content for candidate URLs. URLs are processed
// in sequential batches; each URL in a batch runs concurrently and owns its
// retry loop, so one slow page cannot hold its siblings beyond its own
// timeout. Failures are recorded per URL and never abort a batch.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/dataset-engine/internal/cache"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// ErrContentTooShort marks a page whose best content falls below the noise
// threshold. It is not retried.
var ErrContentTooShort = errors.New("content below minimum length")

// Representation names, in the priority order Page.Best applies.
const (
	RepText       = "text"
	RepStructured = "structured"
	RepCleaned    = "cleaned-markup"
	RepRaw        = "raw-markup"
)

// Page is what a backend returns for one URL. Any representation may be empty.
type Page struct {
	Title       string
	Text        string
	Structured  string
	CleanedHTML string
	RawHTML     string
}

// Best returns the richest non-blank representation: extracted text, then
// structured content, then cleaned markup, then raw markup.
func (p Page) Best() (content, representation string) {
	for _, c := range []struct{ v, name string }{
		{p.Text, RepText},
		{p.Structured, RepStructured},
		{p.CleanedHTML, RepCleaned},
		{p.RawHTML, RepRaw},
	} {
		if strings.TrimSpace(c.v) != "" {
			return c.v, c.name
		}
	}
	return "", ""
}

// Backend retrieves one page. Implementations must honour ctx and timeout.
type Backend interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (Page, error)
}

// Fetcher runs batches of fetches with bounded retry.
type Fetcher struct {
	Backend Backend

	// Cache holds successful documents per URL. Nil disables caching.
	Cache *cache.Cache[types.FetchedDocument]

	BatchSize         int
	MaxRetries        int
	BackoffBase       time.Duration
	Timeout           time.Duration
	MinContentLength  int
	LowConfidenceRate float64

	now func() time.Time
}

// New builds a Fetcher from cfg. c may be nil.
func New(backend Backend, c *cache.Cache[types.FetchedDocument], cfg types.FetchConfig) *Fetcher {
	f := &Fetcher{
		Backend:           backend,
		Cache:             c,
		BatchSize:         cfg.BatchSize,
		MaxRetries:        cfg.MaxRetries,
		BackoffBase:       cfg.BackoffBase,
		Timeout:           cfg.Timeout,
		MinContentLength:  cfg.MinContentLength,
		LowConfidenceRate: cfg.LowConfidenceRate,
	}
	if f.BatchSize <= 0 {
		f.BatchSize = 5
	}
	if f.MaxRetries <= 0 {
		f.MaxRetries = 3
	}
	if f.Timeout <= 0 {
		f.Timeout = 30 * time.Second
	}
	return f
}

// BatchResult holds the outcome of one or more fetch batches.
type BatchResult struct {
	// Documents holds one entry per attempted URL in submission order.
	Documents []types.FetchedDocument
	Succeeded int
	Failed    int
}

// Total returns the number of URLs attempted.
func (r BatchResult) Total() int {
	return r.Succeeded + r.Failed
}

// HasFailures reports whether any URL failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// SuccessRate is Succeeded over Total, or 0 when nothing was attempted.
func (r BatchResult) SuccessRate() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Total())
}

// Successful returns the documents that carry content.
func (r BatchResult) Successful() []types.FetchedDocument {
	var out []types.FetchedDocument
	for _, d := range r.Documents {
		if d.OK() {
			out = append(out, d)
		}
	}
	return out
}

func (r *BatchResult) add(docs []types.FetchedDocument) {
	for _, d := range docs {
		if d.OK() {
			r.Succeeded++
		} else {
			r.Failed++
		}
	}
	r.Documents = append(r.Documents, docs...)
}

// FetchAll fetches urls in sequential batches of BatchSize, waiting for every
// fetch in a batch before starting the next. Per-URL outcomes are written to
// w in submission order.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, w io.Writer) BatchResult {
	var result BatchResult
	for start := 0; start < len(urls); start += f.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + f.BatchSize
		if end > len(urls) {
			end = len(urls)
		}
		docs := f.runBatch(ctx, urls[start:end])
		for _, d := range docs {
			if d.OK() {
				fmt.Fprintf(w, "fetched: %s (%d chars, %s, attempt %d)\n", d.URL, d.ContentLength, d.Representation, d.Attempts)
			} else {
				fmt.Fprintf(w, "failed:  %s after %d attempt(s) (%s)\n", d.URL, d.Attempts, d.Error)
			}
		}
		result.add(docs)
	}
	return result
}

func (f *Fetcher) runBatch(ctx context.Context, urls []string) []types.FetchedDocument {
	docs := make([]types.FetchedDocument, len(urls))
	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			docs[i] = f.FetchOne(ctx, u)
			return nil
		})
	}
	g.Wait()
	return docs
}

// FetchOne fetches a single URL, retrying backend errors up to MaxRetries
// total attempts (at least one) with a delay of attempt times BackoffBase
// between them.
// Content shorter than MinContentLength is recorded as a failure without
// retrying.
func (f *Fetcher) FetchOne(ctx context.Context, url string) types.FetchedDocument {
	if f.Cache != nil {
		if doc, ok := f.Cache.Get(url); ok {
			return doc
		}
	}

	attempts := max(f.MaxRetries, 1)
	doc := types.FetchedDocument{URL: url}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		doc.Attempts = attempt

		page, err := f.attempt(ctx, url)
		if err == nil {
			content, rep := page.Best()
			n := utf8.RuneCountInString(strings.TrimSpace(content))
			doc.Title = strings.TrimSpace(page.Title)
			doc.FetchedAt = f.clock()
			doc.ContentLength = n
			if n < f.MinContentLength {
				doc.Error = fmt.Sprintf("%v: %d < %d", ErrContentTooShort, n, f.MinContentLength)
				return doc
			}
			doc.RawContent = content
			doc.Representation = rep
			if f.Cache != nil {
				f.Cache.Put(url, doc)
			}
			return doc
		}
		lastErr = err

		if attempt == attempts || !wait(ctx, time.Duration(attempt)*f.BackoffBase) {
			break
		}
	}

	doc.FetchedAt = f.clock()
	doc.Error = lastErr.Error()
	return doc
}

// wait sleeps for d and reports false if ctx ended first.
func wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (f *Fetcher) attempt(ctx context.Context, url string) (Page, error) {
	actx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	return f.Backend.Fetch(actx, url, f.Timeout)
}

func (f *Fetcher) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now().UTC()
}

// LowConfidence reports whether r's success rate is below the configured threshold.
func (f *Fetcher) LowConfidence(r BatchResult) bool {
	return r.Total() > 0 && r.SuccessRate() < f.LowConfidenceRate
}
