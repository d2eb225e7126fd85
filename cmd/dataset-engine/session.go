// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-engine/internal/pipeline"
	"github.com/pdiddy/dataset-engine/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect stored sessions and re-run extraction",
	Long: `Session works with the artifacts stored by earlier runs: the cleaned
corpus, chunked CSV output and the run summary.`,
}

// --- list subcommand ---

var sessionListCmd = &cobra.Command{
	Use:   "list [session-id]",
	Short: "List sessions, or the artifacts of one session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionList,
}

func runSessionList(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, store session.Store) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()

		if len(args) == 1 {
			arts, err := store.List(ctx, args[0])
			if err != nil {
				return err
			}
			if len(arts) == 0 {
				return fmt.Errorf("session %s not found", args[0])
			}
			fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
			for _, a := range arts {
				fmt.Fprintf(w, "%s\t%d\t%s\n", a.Name, a.Size, a.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		}

		sessions, err := store.Sessions(ctx)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(w, "No sessions.")
			return nil
		}
		fmt.Fprintln(w, "SESSION\tARTIFACTS\tUPDATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.SessionID, s.Artifacts, s.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	})
}

// --- show subcommand ---

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id> <artifact>",
	Short: "Print one stored artifact",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store session.Store) error {
			data, err := store.Get(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		})
	},
}

// --- reextract subcommand ---

var sessionReextractCmd = &cobra.Command{
	Use:   "reextract <session-id> [request...]",
	Short: "Re-run extraction over a stored corpus",
	Long: `Reextract loads the corpus stored for a session and runs the extraction
tiers, normalization and output again without any web access. The request
defaults to the session's search query. New output replaces the old.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSessionReextract,
}

func runSessionReextract(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	p, store, err := openPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, _ := cmd.Flags().GetInt("rows")
	req := pipeline.Request{Prompt: strings.Join(args[1:], " "), NumRows: rows}
	res := p.Reextract(ctx, args[0], req, progressObserver(cmd))
	return writeResult(cmd, res, os.Stdout)
}

func withStore(fn func(context.Context, session.Store) error) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()
	return fn(ctx, store)
}

func init() {
	sessionReextractCmd.Flags().Int("rows", 0, "maximum number of rows (default from config)")
	addResultFlags(sessionReextractCmd)

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionReextractCmd)
	rootCmd.AddCommand(sessionCmd)
}
