// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structure

import (
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/dataset-engine/internal/llm"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// FromConfig builds the default chain: the primary model, each alternate
// model on the primary's provider, the secondary provider with its larger
// corpus budget, then the pattern matcher. Model tiers read a corpus
// larger than their budget in windows. Endpoints that are not
// configured are left out and reported to w. httpClient may be nil.
func FromConfig(cfg types.StructureConfig, httpClient *http.Client, w io.Writer) *Engine {
	var tiers []Tier
	add := func(state State, ai types.AIConfig, budget int) {
		if !ai.Enabled() {
			return
		}
		client, err := llm.NewClient(ai, httpClient)
		if err != nil {
			fmt.Fprintf(w, "skipping extraction tier %s: %v\n", state, err)
			return
		}
		tiers = append(tiers, Tier{State: state, Strategy: &ModelStrategy{
			Client:     client,
			Budget:     budget,
			Overlap:    cfg.WindowOverlap,
			MaxWindows: cfg.MaxWindows,
		}})
	}

	add(StatePrimary, cfg.Primary, cfg.CorpusBudget)
	for _, m := range cfg.AlternateModels {
		if m == "" || m == cfg.Primary.Model {
			continue
		}
		add(StateAlternate, llm.WithModel(cfg.Primary, m), cfg.CorpusBudget)
	}
	add(StateSecondary, cfg.Secondary, cfg.SecondaryCorpusBudget)
	tiers = append(tiers, PatternTier())

	return NewEngine(cfg.Supplement, tiers...)
}

// ModelTier wraps client as a model tier running under state.
func ModelTier(state State, client llm.Client, budget int) Tier {
	return Tier{State: state, Strategy: &ModelStrategy{Client: client, Budget: budget}}
}

// PatternTier is the deterministic last tier.
func PatternTier() Tier {
	return Tier{State: StatePattern, Strategy: PatternStrategy{}}
}
