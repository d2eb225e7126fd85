// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-engine/internal/corpus"
	"github.com/pdiddy/dataset-engine/internal/fetch"
	"github.com/pdiddy/dataset-engine/internal/search"
	"github.com/pdiddy/dataset-engine/internal/session"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [urls...]",
	Short: "Fetch pages and assemble them into a stored corpus",
	Long: `Fetch retrieves pages with retry and backfill and cleans them into a
corpus. URLs come from arguments or from a query file written by
search --save; in the latter case the first --urls results are fetched and
the rest form the backfill queue.

The corpus is stored as a new session, so session reextract can build a
table from it later without going back to the web.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("from", "", "query file written by search --save")
	fetchCmd.Flags().Int("urls", 0, "documents wanted (default from config)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	want, _ := cmd.Flags().GetInt("urls")
	if want <= 0 {
		want = cfg.DefaultURLs
	}

	query := ""
	initial := args
	var backfill []string
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		qf, err := search.ReadQueryFile(from)
		if err != nil {
			return err
		}
		if len(qf.Queries) > 0 {
			query = qf.Queries[0].Text
		}
		for i, r := range qf.Results {
			if i < want {
				initial = append(initial, r.URL)
			} else {
				backfill = append(backfill, r.URL)
			}
		}
	}
	if len(initial) == 0 {
		return fmt.Errorf("provide URLs or --from a query file")
	}

	f := fetch.New(fetch.NewHTTPBackend(cfg.Fetch), nil, cfg.Fetch)
	res := f.FetchWithBackfill(ctx, initial, backfill, want, os.Stdout)
	if res.Succeeded == 0 {
		return fmt.Errorf("no content fetched from %d URL(s)", res.Total())
	}

	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	c := corpus.Assemble(session.NewID(), query, res.Documents, os.Stdout)
	if c.IsEmpty() {
		return fmt.Errorf("no usable content left after cleaning")
	}
	if err := corpus.Save(ctx, store, c); err != nil {
		return err
	}
	fmt.Printf("stored corpus as session %s\n", c.SessionID)
	return nil
}
