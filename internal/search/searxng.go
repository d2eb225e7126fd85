// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// SearxngBackend queries a SearXNG instance through its JSON API.
type SearxngBackend struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client

	// Limiter throttles outbound requests. Nil means unlimited.
	Limiter *rate.Limiter
}

// DefaultSearxngURL is used when no instance is configured.
const DefaultSearxngURL = "http://localhost:8888"

// NewSearxngBackend builds a backend from cfg.
func NewSearxngBackend(cfg types.SearchConfig) *SearxngBackend {
	base := cfg.SearxngURL
	if base == "" {
		base = DefaultSearxngURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	b := &SearxngBackend{
		BaseURL:   strings.TrimRight(base, "/"),
		UserAgent: cfg.UserAgent,
		Client:    &http.Client{Timeout: timeout},
	}
	if cfg.RateLimit > 0 {
		b.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return b
}

// Name returns the backend identifier.
func (b *SearxngBackend) Name() string { return "searxng" }

type searxngResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
		Engine  string `json:"engine"`
	} `json:"results"`
}

// Search queries SearXNG and scores results by position, 1.0 for the first
// down to 0.1 for the last.
func (b *SearxngBackend) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty SearXNG query")
	}
	if b.BaseURL == "" {
		return nil, fmt.Errorf("SearXNG URL is not configured")
	}
	if b.Limiter != nil {
		if err := b.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{
		"q":      {query},
		"format": {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 2)
	if err != nil {
		return nil, fmt.Errorf("SearXNG request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SearXNG returned HTTP %d", resp.StatusCode)
	}

	var sr searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SearXNG response: %w", err)
	}

	items := sr.Results
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	total := len(items)
	results := make([]types.SearchResult, 0, total)
	for i, item := range items {
		if item.URL == "" {
			continue
		}
		r := types.SearchResult{
			URL:     item.URL,
			Title:   strings.TrimSpace(item.Title),
			Snippet: strings.TrimSpace(item.Content),
			Domain:  Domain(item.URL),
			Source:  "searxng",
		}
		if total > 1 {
			r.RelevanceScore = 1.0 - float64(i)/float64(total-1)*0.9
		} else {
			r.RelevanceScore = 1.0
		}
		results = append(results, r)
	}
	return results, nil
}
