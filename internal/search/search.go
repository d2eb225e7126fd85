// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search issues web search queries and returns unified, deduplicated
// candidate pages. Backends are strategies; the Provider fans a query out to
// all of them, caches the merged result per normalized query, and stops
// issuing queries once the over-fetch limit is reached.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/pdiddy/dataset-engine/internal/cache"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Backend searches a single web search service. The backend may fail or
// return no results; the Provider treats both as a warning.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// Output holds the merged results and dedup statistics.
type Output struct {
	Results       []types.SearchResult
	Queries       []types.SearchQuery
	DupsRemoved   int
	BackendErrors []string
}

// Provider runs queries against its backends.
type Provider struct {
	Backends []Backend

	// Cache holds merged results per normalized query text. Nil disables caching.
	Cache *cache.Cache[[]types.SearchResult]
}

// NewProvider builds a Provider. c may be nil.
func NewProvider(c *cache.Cache[[]types.SearchResult], backends ...Backend) *Provider {
	return &Provider{Backends: backends, Cache: c}
}

// OverFetchLimit is the number of search results requested for numURLs
// wanted pages: numURLs times the over-fetch factor, capped at MaxResults.
func OverFetchLimit(numURLs int, cfg types.SearchConfig) int {
	factor := cfg.OverFetchFactor
	if factor <= 0 {
		factor = 3
	}
	limit := numURLs * factor
	if cfg.MaxResults > 0 && limit > cfg.MaxResults {
		limit = cfg.MaxResults
	}
	if limit <= 0 {
		limit = 1
	}
	return limit
}

// Search runs queries in priority order, merging and deduplicating results
// by URL, until limit results are collected or the queries run out.
// Near-duplicate queries are dropped before any backend call.
func (p *Provider) Search(ctx context.Context, queries []types.SearchQuery, limit int, w io.Writer) (Output, error) {
	if len(p.Backends) == 0 {
		return Output{}, fmt.Errorf("no search backends configured")
	}
	queries = DedupeQueries(queries)
	if len(queries) == 0 {
		return Output{}, fmt.Errorf("no search queries")
	}

	var out Output
	seen := make(map[string]int)
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if len(out.Results) >= limit {
			break
		}
		out.Queries = append(out.Queries, q)

		results, errs := p.searchOne(ctx, q.Text, limit)
		for _, e := range errs {
			fmt.Fprintf(w, "warning: search backend %s\n", e)
		}
		out.BackendErrors = append(out.BackendErrors, errs...)

		for _, r := range results {
			key := urlKey(r.URL)
			if key == "" {
				continue
			}
			if idx, ok := seen[key]; ok {
				mergeInto(&out.Results[idx], r)
				out.DupsRemoved++
				continue
			}
			seen[key] = len(out.Results)
			out.Results = append(out.Results, r)
		}
		fmt.Fprintf(w, "search %q returned %d results (%d unique so far)\n", q.Text, len(results), len(out.Results))
	}

	if len(out.Results) > limit {
		out.Results = out.Results[:limit]
	}
	return out, nil
}

// searchOne fans one query out to every backend concurrently and merges
// the results in descending score order.
func (p *Provider) searchOne(ctx context.Context, query string, limit int) ([]types.SearchResult, []string) {
	key := NormalizeQuery(query)
	if p.Cache != nil {
		if cached, ok := p.Cache.Get(key); ok {
			return cached, nil
		}
	}

	type backendResult struct {
		results []types.SearchResult
		err     error
		name    string
	}

	ch := make(chan backendResult, len(p.Backends))
	var wg sync.WaitGroup
	for _, b := range p.Backends {
		wg.Add(1)
		go func(b Backend) {
			defer wg.Done()
			results, err := b.Search(ctx, query, limit)
			ch <- backendResult{results: results, err: err, name: b.Name()}
		}(b)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.SearchResult
	var errs []string
	for br := range ch {
		if br.err != nil {
			errs = append(errs, fmt.Sprintf("%s failed: %v", br.name, br.err))
			continue
		}
		for _, r := range br.results {
			if r.Domain == "" {
				r.Domain = Domain(r.URL)
			}
			if r.Source == "" {
				r.Source = br.name
			}
			all = append(all, r)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].RelevanceScore > all[j].RelevanceScore
	})

	// Only cache complete answers so a flaky backend is retried next time.
	if p.Cache != nil && len(errs) == 0 && len(all) > 0 {
		p.Cache.Put(key, all)
	}
	return all, errs
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *types.SearchResult, src types.SearchResult) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Snippet == "" {
		dst.Snippet = src.Snippet
	}
	if src.RelevanceScore > dst.RelevanceScore {
		dst.RelevanceScore = src.RelevanceScore
	}
	if src.Source != "" && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// urlKey normalizes a URL for deduplication: lowercased host without "www.",
// no fragment, no trailing slash.
func urlKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimRight(u.EscapedPath(), "/")
	key := host + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}

// Domain returns the lowercased host of raw without a leading "www.".
func Domain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// NormalizeQuery lowercases q, strips punctuation and collapses whitespace.
func NormalizeQuery(q string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(q) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// DedupeQueries drops empty queries and queries that are near-duplicates of
// an earlier one. Survivors are returned in ascending priority, stable.
func DedupeQueries(queries []types.SearchQuery) []types.SearchQuery {
	sorted := make([]types.SearchQuery, len(queries))
	copy(sorted, queries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	var kept []types.SearchQuery
	var norms []string
	for _, q := range sorted {
		n := NormalizeQuery(q.Text)
		if n == "" || similarToAny(n, norms) {
			continue
		}
		norms = append(norms, n)
		kept = append(kept, q)
	}
	return kept
}

// similarityThreshold is the minimum length ratio at which a query that
// contains another counts as its near-duplicate.
const similarityThreshold = 0.8

func similarToAny(n string, prior []string) bool {
	for _, p := range prior {
		if Similar(n, p) {
			return true
		}
	}
	return false
}

// Similar reports whether two normalized queries are equal, or one contains
// the other on word boundaries and the shorter is at least 80% of the longer.
func Similar(a, b string) bool {
	if a == b {
		return true
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if !strings.Contains(" "+long+" ", " "+short+" ") {
		return false
	}
	return float64(len(short))/float64(len(long)) >= similarityThreshold
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-28s  %-6s  %s\n", "Rank", "Title", "Domain", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 104))
	for i, r := range out.Results {
		fmt.Fprintf(w, "%-4d  %-50s  %-28s  %-6.2f  %s\n",
			i+1, truncate(r.Title, 50), truncate(r.Domain, 28), r.RelevanceScore, r.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Results)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
