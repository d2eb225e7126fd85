// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a data request end to end: refine the query,
// search, select URLs, fetch with backfill, assemble the corpus, extract
// rows through the tier chain, normalize and render. A run always returns
// a types.Result; failures are explained in its Feedback.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/dataset-engine/internal/audit"
	"github.com/pdiddy/dataset-engine/internal/cache"
	"github.com/pdiddy/dataset-engine/internal/corpus"
	"github.com/pdiddy/dataset-engine/internal/dedup"
	"github.com/pdiddy/dataset-engine/internal/fetch"
	"github.com/pdiddy/dataset-engine/internal/llm"
	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/internal/refine"
	"github.com/pdiddy/dataset-engine/internal/search"
	"github.com/pdiddy/dataset-engine/internal/selector"
	"github.com/pdiddy/dataset-engine/internal/session"
	"github.com/pdiddy/dataset-engine/internal/structure"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Request is one data request.
type Request struct {
	Prompt  string `json:"prompt" yaml:"prompt"`
	NumRows int    `json:"num_rows" yaml:"num_rows"`
	NumURLs int    `json:"num_urls" yaml:"num_urls"`
}

// Observer receives progress while a run executes. Either field may be
// nil. Callers that join an in-flight run do not receive its progress.
type Observer struct {
	Event func(types.ProgressEvent)
	Rows  func(types.RowsChunk)
}

func (o *Observer) event(stage string, step, total int, detail string) {
	if o != nil && o.Event != nil {
		o.Event(types.ProgressEvent{Stage: stage, CurrentStep: step, TotalSteps: total, Detail: detail})
	}
}

func (o *Observer) rows(c types.RowsChunk) {
	if o != nil && o.Rows != nil {
		o.Rows(c)
	}
}

// Pipeline wires the stages together.
type Pipeline struct {
	Config types.PipelineConfig

	Refiner   *refine.Refiner
	Search    *search.Provider
	Generator *search.Generator
	Selector  *selector.Selector
	Fetcher   *fetch.Fetcher
	Engine    *structure.Engine

	// Store persists corpus and output artifacts. Nil disables persistence.
	Store session.Store

	// Inflight shares executions between identical concurrent requests.
	// Nil runs every request.
	Inflight *dedup.Group[types.Result]

	Logger *slog.Logger
}

// New builds a Pipeline from cfg with the SearXNG search backend, the HTTP
// fetch backend and the configured model tiers. The primary model also
// serves query refinement, fallback query generation and re-ranking. Tier
// setup notes are written to w.
func New(cfg types.PipelineConfig, store session.Store, logger *slog.Logger, w io.Writer) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}

	var client llm.Client
	if cfg.Structure.Primary.Enabled() {
		c, err := llm.NewClient(cfg.Structure.Primary, nil)
		if err != nil {
			logger.Warn("primary model unavailable for refinement and ranking", "error", err)
		} else {
			client = c
		}
	}

	gen := &search.Generator{}
	if cfg.Search.AIQueries {
		gen.Client = client
	}
	var reranker selector.Reranker
	if client != nil {
		reranker = &selector.LLMReranker{Client: client}
	}

	return &Pipeline{
		Config:    cfg,
		Refiner:   refine.New(client, cfg.Refine),
		Search:    search.NewProvider(cache.New[[]types.SearchResult](cfg.Search.CacheTTL, nil), search.NewSearxngBackend(cfg.Search)),
		Generator: gen,
		Selector:  selector.New(cfg.Selector, reranker),
		Fetcher:   fetch.New(fetch.NewHTTPBackend(cfg.Fetch), cache.New[types.FetchedDocument](cfg.Fetch.CacheTTL, nil), cfg.Fetch),
		Engine:    structure.FromConfig(cfg.Structure, nil, w),
		Store:     store,
		Inflight:  dedup.New[types.Result](),
		Logger:    logger,
	}
}

// SweepCaches evicts expired search and fetch cache entries every interval
// until stop is closed.
func (p *Pipeline) SweepCaches(interval time.Duration, stop <-chan struct{}) {
	if p.Search != nil && p.Search.Cache != nil {
		go p.Search.Cache.Sweep(interval, stop)
	}
	if p.Fetcher != nil && p.Fetcher.Cache != nil {
		go p.Fetcher.Cache.Sweep(interval, stop)
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return logging.Discard()
	}
	return p.Logger
}

// normalize fills defaults for unset request fields.
func (p *Pipeline) normalize(req Request) Request {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.NumRows <= 0 {
		req.NumRows = p.Config.DefaultRows
	}
	if req.NumRows <= 0 {
		req.NumRows = 10
	}
	if req.NumURLs <= 0 {
		req.NumURLs = p.Config.DefaultURLs
	}
	if req.NumURLs <= 0 {
		req.NumURLs = 5
	}
	return req
}

// Run executes req. Identical concurrent requests share one execution when
// Inflight is set. Run never returns an error: a caller that goes away
// before the result is ready gets a Result whose Feedback says so.
func (p *Pipeline) Run(ctx context.Context, req Request, obs *Observer) types.Result {
	req = p.normalize(req)
	if p.Inflight == nil {
		return p.execute(ctx, req, obs)
	}

	key := dedup.Fingerprint(req.Prompt, req.NumRows)
	res, shared, err := p.Inflight.Do(ctx, key, func(ctx context.Context) (types.Result, error) {
		return p.execute(ctx, req, obs), nil
	})
	if err != nil {
		return emptyResult("", fmt.Sprintf("request cancelled: %v", err))
	}
	if shared {
		p.logger().Debug("request shared an in-flight run", "session", res.SessionID)
	}
	return res
}

const runSteps = 7

func emptyResult(sessionID, feedback string) types.Result {
	return types.Result{
		SessionID: sessionID,
		Rows:      []types.Row{},
		Schema:    []types.Column{},
		Feedback:  feedback,
	}
}

// execute runs every stage once. Each early return leaves rows empty and
// the reason in the audit log.
func (p *Pipeline) execute(ctx context.Context, req Request, obs *Observer) (res types.Result) {
	start := time.Now()
	sessionID := session.NewID()
	logger := p.logger().With("component", "pipeline", "session", sessionID)
	log := audit.New(logger)
	res = emptyResult(sessionID, "")

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(log, "internal error: %v\n", r)
			logger.Error("pipeline panicked", "panic", r)
			res.Rows, res.Schema, res.TabularText = []types.Row{}, []types.Column{}, ""
		}
		res.Feedback = log.String()
		logger.Info("pipeline run finished",
			"rows", len(res.Rows), "tier", res.Tier, "sentinel", res.Sentinel, "duration", time.Since(start).Round(time.Millisecond))
	}()

	fmt.Fprintf(log, "request: %q (%d rows, %d URLs)\n", req.Prompt, req.NumRows, req.NumURLs)

	// 1. Refine.
	obs.event(types.StageRefine, 1, runSteps, "refining query")
	query, err := p.Refiner.Refine(ctx, req.Prompt, log)
	if err != nil {
		fmt.Fprintf(log, "%v\n", err)
		return res
	}

	// 2. Search, with fallback queries on an empty answer.
	obs.event(types.StageSearch, 2, runSteps, query.Text)
	results := p.search(ctx, req, query, log)
	if len(results) == 0 {
		return res
	}

	// 3. Select.
	obs.event(types.StageSelect, 3, runSteps, fmt.Sprintf("%d candidates", len(results)))
	sel := p.Selector.Select(ctx, req.Prompt, query.Text, results, req.NumURLs, log)
	if sel.IsEmpty() {
		fmt.Fprintln(log, "no scrapable URLs after filtering.")
		return res
	}
	fmt.Fprintf(log, "selected %d URLs (%d queued for backfill)\n", len(sel.Initial), len(sel.Backfill))

	// 4. Fetch with backfill.
	obs.event(types.StageFetch, 4, runSteps, fmt.Sprintf("%d URLs", len(sel.Initial)))
	fetched := p.Fetcher.FetchWithBackfill(ctx, urls(sel.Initial), urls(sel.Backfill), req.NumURLs, log)
	res.LowConfidence = fetched.LowConfidence
	if fetched.Succeeded == 0 {
		fmt.Fprintf(log, "no content could be fetched from %d URLs\n", fetched.Total())
		return res
	}

	// 5. Corpus.
	obs.event(types.StageCorpus, 5, runSteps, fmt.Sprintf("%d documents", fetched.Succeeded))
	c := corpus.Assemble(sessionID, query.Text, fetched.Documents, log)
	if c.IsEmpty() {
		fmt.Fprintln(log, "no usable content left after cleaning")
		return res
	}
	if p.Store != nil {
		if err := corpus.Save(ctx, p.Store, c); err != nil {
			fmt.Fprintf(log, "warning: could not store corpus: %v\n", err)
		}
	}

	// 6-7. Structure and output.
	p.structure(ctx, c, req, &res, log, obs, 6, runSteps)
	return res
}

// search runs the refined query, then fallback queries one at a time until
// one returns results.
func (p *Pipeline) search(ctx context.Context, req Request, query types.SearchQuery, log io.Writer) []types.SearchResult {
	limit := search.OverFetchLimit(req.NumURLs, p.Config.Search)
	out, err := p.Search.Search(ctx, []types.SearchQuery{query}, limit, log)
	if err != nil {
		fmt.Fprintf(log, "search failed: %v\n", err)
	}
	if len(out.Results) > 0 {
		return out.Results
	}

	alternates := p.Generator.Generate(ctx, req.Prompt, query, log)
	fmt.Fprintf(log, "no search results for %q, trying %d fallback queries\n", query.Text, len(alternates))
	for _, alt := range alternates {
		if ctx.Err() != nil {
			break
		}
		out, err := p.Search.Search(ctx, []types.SearchQuery{alt}, limit, log)
		if err != nil {
			fmt.Fprintf(log, "search failed: %v\n", err)
			continue
		}
		if len(out.Results) > 0 {
			fmt.Fprintf(log, "using fallback query %q (%d results)\n", alt.Text, len(out.Results))
			return out.Results
		}
	}
	fmt.Fprintf(log, "no search results after %d fallback queries\n", len(alternates))
	return nil
}

func urls(results []types.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.URL
	}
	return out
}
