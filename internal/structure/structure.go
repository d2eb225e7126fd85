// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package structure converts a corpus into rows and a schema using an
// ordered chain of extraction tiers. A single driver loop tries each tier
// in turn and stops at the first one whose output passes the acceptance
// check; adding or reordering tiers is a change to the tier list only.
package structure

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pdiddy/dataset-engine/internal/schema"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// ErrUnacceptable is returned by a tier whose output holds no usable rows.
var ErrUnacceptable = errors.New("no acceptable rows")

// State is a structuring engine state.
type State string

const (
	StatePrimary   State = "TRY_PRIMARY_MODEL"
	StateAlternate State = "TRY_ALTERNATE_MODELS"
	StateSecondary State = "TRY_SECONDARY_PROVIDER"
	StatePattern   State = "TRY_PATTERN_FALLBACK"
	StateDone      State = "DONE"
	StateFailed    State = "FAILED"
)

// Input is what every tier sees.
type Input struct {
	Corpus types.Corpus

	// Prompt is the user's original request.
	Prompt string

	// NumRows is an upper bound on the rows wanted.
	NumRows int
}

// Output is a tier's raw extraction before schema normalization.
type Output struct {
	Records []types.Record

	// Order lists record keys in the order the tier first produced them.
	Order []string

	// Schema is the tier's declared schema, if any.
	Schema []types.Column

	// Note is a short remark from the tier for the audit log.
	Note string
}

// Strategy is one extraction tier.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, in Input) (Output, error)
}

// Tier binds a strategy to the engine state it runs under.
type Tier struct {
	State    State
	Strategy Strategy
}

// Result is the outcome of one engine run.
type Result struct {
	Table types.Table

	// State is StateDone or StateFailed.
	State State

	// Tier names the strategy whose rows were accepted first.
	Tier string

	// Sentinel is true when Table holds only the diagnostic row.
	Sentinel bool

	// FellBack is true when the pattern tier was accepted after at least
	// one model tier failed.
	FellBack bool

	Attempts []types.ExtractionAttempt
}

// Engine drives the tier chain.
type Engine struct {
	Tiers []Tier

	// Supplement lets later model tiers add rows when an accepted result
	// holds fewer rows than requested. The pattern tier never supplements.
	Supplement bool
}

// NewEngine returns an engine over tiers, tried in the given order.
func NewEngine(supplement bool, tiers ...Tier) *Engine {
	return &Engine{Tiers: tiers, Supplement: supplement}
}

// Run tries tiers in order until one is accepted. It never returns an
// empty table: when every tier fails the result carries the sentinel row
// and StateFailed. Tier decisions are written to w.
func (e *Engine) Run(ctx context.Context, in Input, w io.Writer) Result {
	res := Result{State: StateFailed}
	accepted := false
	modelFailed := false

	for _, tier := range e.Tiers {
		if accepted && !e.wantsSupplement(tier, res.Table, in.NumRows) {
			break
		}
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(w, "extraction stopped: %v\n", err)
			break
		}

		name := tier.Strategy.Name()
		out, err := attempt(ctx, tier.Strategy, in)
		var tbl types.Table
		if err == nil {
			tbl = schema.Normalize(out.Records, out.Order, out.Schema, in.NumRows)
			if len(tbl.Rows) == 0 {
				err = ErrUnacceptable
			}
		}

		att := types.ExtractionAttempt{Tier: name, State: string(tier.State)}
		if err != nil {
			att.ErrorMessage = err.Error()
			res.Attempts = append(res.Attempts, att)
			if tier.State != StatePattern {
				modelFailed = true
			}
			fmt.Fprintf(w, "extraction tier %s (%s) failed: %v\n", name, tier.State, err)
			continue
		}

		att.Succeeded = true
		att.RowCount = len(tbl.Rows)
		att.Schema = tbl.Columns
		res.Attempts = append(res.Attempts, att)

		if !accepted {
			accepted = true
			res.Table = tbl
			res.Tier = name
			res.FellBack = tier.State == StatePattern && modelFailed
			fmt.Fprintf(w, "extraction tier %s (%s) accepted: %d rows, %d columns\n", name, tier.State, len(tbl.Rows), len(tbl.Columns))
		} else {
			before := len(res.Table.Rows)
			res.Table = schema.Merge(res.Table, tbl, in.NumRows)
			fmt.Fprintf(w, "extraction tier %s (%s) supplemented %d rows\n", name, tier.State, len(res.Table.Rows)-before)
		}
		if out.Note != "" {
			fmt.Fprintf(w, "extraction tier %s: %s\n", name, out.Note)
		}
	}

	if accepted {
		res.State = StateDone
		return res
	}

	res.Table = SentinelTable(len(res.Attempts), in.Corpus.SourceCount)
	res.Sentinel = true
	fmt.Fprintf(w, "extraction failed: no tier produced rows, returning diagnostic row\n")
	return res
}

func (e *Engine) wantsSupplement(next Tier, current types.Table, numRows int) bool {
	return e.Supplement && next.State != StatePattern && numRows > 0 && len(current.Rows) < numRows
}

// attempt runs one tier, turning a panic into an error.
func attempt(ctx context.Context, s Strategy, in Input) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tier panicked: %v", r)
		}
	}()
	return s.Attempt(ctx, in)
}

// Sentinel column names.
const (
	SentinelStatusColumn = "status"
	SentinelDetailColumn = "detail"
	SentinelStatus       = "no structured data found"
)

// SentinelTable is the single diagnostic row returned when no tier
// produced data.
func SentinelTable(tiers, sources int) types.Table {
	return types.Table{
		Columns: []types.Column{
			{Name: SentinelStatusColumn, Type: types.ColumnString},
			{Name: SentinelDetailColumn, Type: types.ColumnString},
		},
		Rows: []types.Row{{
			SentinelStatusColumn: SentinelStatus,
			SentinelDetailColumn: fmt.Sprintf("%d extraction tiers found no rows or tables in %d source documents", tiers, sources),
		}},
	}
}
