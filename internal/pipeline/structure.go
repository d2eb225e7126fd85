// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/dataset-engine/internal/audit"
	"github.com/pdiddy/dataset-engine/internal/corpus"
	"github.com/pdiddy/dataset-engine/internal/output"
	"github.com/pdiddy/dataset-engine/internal/session"
	"github.com/pdiddy/dataset-engine/internal/structure"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// RunSummary is stored as the run artifact of a session.
type RunSummary struct {
	SessionID     string                    `yaml:"session_id"`
	Prompt        string                    `yaml:"prompt"`
	NumRows       int                       `yaml:"num_rows"`
	Query         string                    `yaml:"query"`
	Tier          string                    `yaml:"tier"`
	Sentinel      bool                      `yaml:"sentinel"`
	LowConfidence bool                      `yaml:"low_confidence"`
	Rows          int                       `yaml:"rows"`
	Chunks        int                       `yaml:"chunks"`
	Schema        []types.Column            `yaml:"schema"`
	Attempts      []types.ExtractionAttempt `yaml:"attempts"`
	Feedback      string                    `yaml:"feedback"`
	CompletedAt   time.Time                 `yaml:"completed_at"`
}

// structure runs the tier chain over c and fills res with the rendered
// table, storing output chunks and the run summary when a store is set.
func (p *Pipeline) structure(ctx context.Context, c types.Corpus, req Request, res *types.Result, log *audit.Log, obs *Observer, step, total int) {
	obs.event(types.StageStructure, step, total, fmt.Sprintf("%d sources", c.SourceCount))
	sr := p.Engine.Run(ctx, structure.Input{Corpus: c, Prompt: req.Prompt, NumRows: req.NumRows}, log)
	if sr.FellBack {
		fmt.Fprintln(log, "pattern matching was used because all AI extraction tiers failed")
	}
	if sr.Sentinel {
		fmt.Fprintln(log, "no structured content was found; returning a diagnostic row instead of data")
	}
	res.Tier = sr.Tier
	res.Sentinel = sr.Sentinel
	res.Attempts = sr.Attempts

	obs.event(types.StageOutput, step+1, total, fmt.Sprintf("%d rows", len(sr.Table.Rows)))
	delim := output.Delimiter(p.Config.Output.Delimiter)
	text, err := output.RenderCSV(sr.Table, delim)
	if err != nil {
		fmt.Fprintf(log, "rendering output failed: %v\n", err)
		return
	}
	res.Rows = sr.Table.Rows
	res.Schema = sr.Table.Columns
	res.TabularText = text
	fmt.Fprintf(log, "output: %d rows, %d columns\n", len(res.Rows), len(res.Schema))

	chunks := output.Chunks(res.Rows, p.Config.Session.ChunkRows)
	for _, ch := range chunks {
		obs.rows(ch)
	}
	if p.Store != nil {
		p.persist(ctx, c, req, sr.Table, res, log, delim)
	}
}

func (p *Pipeline) persist(ctx context.Context, c types.Corpus, req Request, tbl types.Table, res *types.Result, log *audit.Log, delim rune) {
	parts, err := output.ChunkTables(tbl, p.Config.Session.ChunkRows, delim)
	if err == nil {
		err = session.PutChunks(ctx, p.Store, res.SessionID, parts)
	}
	if err != nil {
		fmt.Fprintf(log, "warning: could not store output chunks: %v\n", err)
	}

	fmt.Fprintf(log, "stored session %s (%d output chunks)\n", res.SessionID, len(parts))
	summary := RunSummary{
		SessionID:     res.SessionID,
		Prompt:        req.Prompt,
		NumRows:       req.NumRows,
		Query:         c.Query,
		Tier:          res.Tier,
		Sentinel:      res.Sentinel,
		LowConfidence: res.LowConfidence,
		Rows:          len(res.Rows),
		Chunks:        len(parts),
		Schema:        res.Schema,
		Attempts:      res.Attempts,
		Feedback:      log.String(),
		CompletedAt:   time.Now().UTC(),
	}
	if err := session.PutYAML(ctx, p.Store, res.SessionID, session.RunArtifact, summary); err != nil {
		fmt.Fprintf(log, "warning: could not store run summary: %v\n", err)
	}
}

// Reextract reruns extraction and output over a stored corpus without any
// web access. The new output replaces the session's previous one.
func (p *Pipeline) Reextract(ctx context.Context, sessionID string, req Request, obs *Observer) (res types.Result) {
	req = p.normalize(req)
	logger := p.logger().With("component", "pipeline", "session", sessionID)
	log := audit.New(logger)
	res = emptyResult(sessionID, "")

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(log, "internal error: %v\n", r)
			res.Rows, res.Schema, res.TabularText = []types.Row{}, []types.Column{}, ""
		}
		res.Feedback = log.String()
	}()

	if p.Store == nil {
		fmt.Fprintln(log, "re-extraction needs a session store")
		return res
	}
	c, err := corpus.Load(ctx, p.Store, sessionID)
	if err != nil {
		fmt.Fprintf(log, "loading corpus for session %s: %v\n", sessionID, err)
		return res
	}
	if req.Prompt == "" {
		req.Prompt = c.Query
	}
	fmt.Fprintf(log, "re-extracting session %s from %d stored sources (%d rows)\n", sessionID, c.SourceCount, req.NumRows)

	p.structure(ctx, c, req, &res, log, obs, 1, 2)
	return res
}
