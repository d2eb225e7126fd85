// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-engine/internal/search"
	"github.com/pdiddy/dataset-engine/internal/selector"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [request...]",
	Short: "Search the web for candidate pages",
	Long: `Search refines a request (or takes --query verbatim), queries the
configured SearXNG instance, and prints candidates ranked the way the
pipeline ranks them. --save writes a query file that fetch can read.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("query", "", "search query text; skips refinement")
	searchCmd.Flags().Int("urls", 0, "pages wanted; sizes the over-fetch limit (default from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "write prompt, queries and results to a YAML query file")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	prompt := strings.Join(args, " ")
	text, _ := cmd.Flags().GetString("query")
	if prompt == "" && text == "" {
		return fmt.Errorf("provide a request or --query")
	}
	query := types.SearchQuery{Text: strings.TrimSpace(text)}
	if query.Text == "" {
		query, err = newRefiner(cfg, os.Stderr).Refine(ctx, prompt, os.Stderr)
		if err != nil {
			return err
		}
	}
	if prompt == "" {
		prompt = query.Text
	}

	urls, _ := cmd.Flags().GetInt("urls")
	if urls <= 0 {
		urls = cfg.DefaultURLs
	}
	limit := search.OverFetchLimit(urls, cfg.Search)

	provider := search.NewProvider(nil, search.NewSearxngBackend(cfg.Search))
	out, err := provider.Search(ctx, []types.SearchQuery{query}, limit, os.Stderr)
	if err != nil {
		return err
	}

	sel := selector.New(cfg.Selector, nil).Select(ctx, prompt, query.Text, out.Results, urls, os.Stderr)
	out.Results = sel.Ranked()

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteQueryFile(path, prompt, limit, out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d results to %s\n", len(out.Results), path)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return search.FormatJSON(out, os.Stdout)
	}
	search.FormatTable(out, os.Stdout)
	return nil
}
