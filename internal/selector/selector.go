// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package selector filters and ranks search candidates. It drops known
// unscrapable or low-signal domains, scores the rest lexically against the
// query, optionally lets a model reorder them, and splits the ranked list
// into an initial fetch set and a backfill queue.
package selector

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/dataset-engine/internal/category"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

const (
	titleWeight   = 0.7
	snippetWeight = 0.3
	phraseBonus   = 0.3
	domainBonus   = 0.2
	minTermLength = 3
)

// defaultBlocklist holds search engine result pages, social platforms and
// encyclopedia landing pages. Subdomains match too.
var defaultBlocklist = []string{
	"google.com", "bing.com", "duckduckgo.com", "search.yahoo.com", "yandex.com",
	"baidu.com", "startpage.com", "ecosia.org",
	"facebook.com", "instagram.com", "twitter.com", "x.com", "linkedin.com",
	"tiktok.com", "pinterest.com", "youtube.com", "reddit.com", "quora.com",
	"wikipedia.org", "wikimedia.org",
}

// Selection is the ranked, filtered candidate list split for fetching.
type Selection struct {
	Initial  []types.SearchResult
	Backfill []types.SearchResult

	// Blocked counts candidates removed by the blocklist or URL checks.
	Blocked  int
	Category category.Category
}

// Ranked returns Initial followed by Backfill.
func (s Selection) Ranked() []types.SearchResult {
	out := make([]types.SearchResult, 0, len(s.Initial)+len(s.Backfill))
	out = append(out, s.Initial...)
	return append(out, s.Backfill...)
}

// IsEmpty reports whether no candidate survived filtering.
func (s Selection) IsEmpty() bool {
	return len(s.Initial) == 0 && len(s.Backfill) == 0
}

// Reranker reorders lexically ranked candidates. Implementations return a
// permutation of the input; the selector falls back to lexical order on error.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []types.SearchResult) ([]types.SearchResult, error)
}

// Selector applies blocklist, scoring, boosting, reranking and curated injection.
type Selector struct {
	Blocklist        []string
	DomainBoost      bool
	CuratedInjection bool
	Reranker         Reranker
}

// New builds a Selector from cfg. reranker may be nil.
func New(cfg types.SelectorConfig, reranker Reranker) *Selector {
	s := &Selector{
		Blocklist:        append(append([]string{}, defaultBlocklist...), cfg.ExtraBlocklist...),
		DomainBoost:      cfg.DomainBoost,
		CuratedInjection: cfg.CuratedInjection,
	}
	if cfg.AIRerank {
		s.Reranker = reranker
	}
	return s
}

// Select ranks candidates for query. prompt drives category detection.
// numURLs sizes the initial set; the remainder becomes the backfill queue.
func (s *Selector) Select(ctx context.Context, prompt, query string, candidates []types.SearchResult, numURLs int, w io.Writer) Selection {
	profile := category.Detect(prompt + " " + query)
	sel := Selection{Category: profile.Category}

	var kept []types.SearchResult
	for _, c := range candidates {
		if !s.Allowed(c.URL) {
			sel.Blocked++
			continue
		}
		kept = append(kept, c)
	}
	fmt.Fprintf(w, "filtered %d of %d candidates (%d remain)\n", sel.Blocked, len(candidates), len(kept))
	if len(kept) == 0 {
		return sel
	}

	var boost func(string) bool
	if s.DomainBoost {
		boost = profile.BoostsDomain
	}
	ranked := Rank(query, kept, boost)

	if s.Reranker != nil {
		reordered, err := s.Reranker.Rerank(ctx, query, ranked)
		if err != nil {
			fmt.Fprintf(w, "AI re-ranking failed, keeping lexical order: %v\n", err)
		} else {
			ranked = reordered
			fmt.Fprintln(w, "applied AI re-ranking")
		}
	}

	if s.CuratedInjection && profile.CuratedURL != "" && s.Allowed(profile.CuratedURL) {
		if !containsURL(ranked, profile.CuratedURL) {
			curated := types.SearchResult{
				URL:            profile.CuratedURL,
				Title:          fmt.Sprintf("curated %s source", profile.Category),
				Domain:         domainOf(profile.CuratedURL),
				Source:         "curated",
				RelevanceScore: 1.0,
			}
			ranked = append([]types.SearchResult{curated}, ranked...)
			fmt.Fprintf(w, "injected curated %s source %s\n", profile.Category, profile.CuratedURL)
		}
	}

	if numURLs < 0 {
		numURLs = 0
	}
	if numURLs > len(ranked) {
		numURLs = len(ranked)
	}
	sel.Initial = ranked[:numURLs:numURLs]
	sel.Backfill = ranked[numURLs:]
	return sel
}

// Allowed reports whether raw is an http(s) URL on a non-blocked domain.
func (s *Selector) Allowed(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	host := domainOf(raw)
	for _, b := range s.Blocklist {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" && (host == b || strings.HasSuffix(host, "."+b)) {
			return false
		}
	}
	return true
}

// Rank returns a new slice of candidates with recomputed relevance scores in
// descending order. The input slice is not modified. boost, when non-nil,
// adds a bonus to candidates on matching domains.
func Rank(query string, candidates []types.SearchResult, boost func(domain string) bool) []types.SearchResult {
	terms := Terms(query)
	phrase := strings.ToLower(strings.TrimSpace(query))

	ranked := make([]types.SearchResult, len(candidates))
	for i, c := range candidates {
		c.RelevanceScore = Score(terms, phrase, c.Title, c.Snippet)
		if c.Domain == "" {
			c.Domain = domainOf(c.URL)
		}
		if boost != nil && boost(c.Domain) {
			c.RelevanceScore = math.Min(1.0, c.RelevanceScore+domainBonus)
		}
		ranked[i] = c
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	return ranked
}

// Score is 0.7 times the title match plus 0.3 times the snippet match,
// capped at 1.0.
func Score(terms []string, phrase, title, snippet string) float64 {
	s := titleWeight*match(terms, phrase, title) + snippetWeight*match(terms, phrase, snippet)
	return math.Min(1.0, s)
}

// match is the fraction of terms present in text, plus a bonus when text
// contains the whole phrase, capped at 1.0.
func match(terms []string, phrase, text string) float64 {
	if len(terms) == 0 || text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			hits++
		}
	}
	m := float64(hits) / float64(len(terms))
	if phrase != "" && strings.Contains(lower, phrase) {
		m += phraseBonus
	}
	return math.Min(1.0, m)
}

// Terms returns the lowercased query words longer than two characters.
func Terms(query string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.Trim(f, `.,;:!?"'()[]{}`)
		if len([]rune(f)) >= minTermLength {
			out = append(out, f)
		}
	}
	return out
}

func containsURL(results []types.SearchResult, raw string) bool {
	want := strings.TrimRight(strings.ToLower(raw), "/")
	for _, r := range results {
		if strings.TrimRight(strings.ToLower(r.URL), "/") == want {
			return true
		}
	}
	return false
}

func domainOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
