// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-engine/internal/output"
	"github.com/pdiddy/dataset-engine/internal/pipeline"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [request...]",
	Short: "Build a dataset from a natural-language request",
	Long: `Run executes the whole pipeline for one request: refine, search, select,
fetch with backfill, clean, extract and normalize. The audit log is written to
stderr; the table goes to stdout as a preview, CSV, or the full JSON result.

A run always finishes. When nothing usable is found the output is empty or a
single diagnostic row, and the audit log explains why.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Int("rows", 0, "maximum number of rows (default from config)")
	runCmd.Flags().Int("urls", 0, "number of pages to fetch (default from config)")
	addResultFlags(runCmd)

	rootCmd.AddCommand(runCmd)
}

func addResultFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "preview", "stdout format: preview, csv, or json")
	cmd.Flags().String("out", "", "also write the tabular text to this file")
	cmd.Flags().Bool("quiet", false, "do not print the audit log")
}

func runRun(cmd *cobra.Command, args []string) error {
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
	urls, _ := cmd.Flags().GetInt("urls")
	req := pipeline.Request{Prompt: strings.Join(args, " "), NumRows: rows, NumURLs: urls}

	res := p.Run(ctx, req, progressObserver(cmd))
	return writeResult(cmd, res, os.Stdout)
}

// progressObserver prints stage progress to stderr unless --quiet is set.
func progressObserver(cmd *cobra.Command) *pipeline.Observer {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return nil
	}
	return &pipeline.Observer{
		Event: func(e types.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s\n", e.CurrentStep, e.TotalSteps, e.Stage, e.Detail)
		},
	}
}

func writeResult(cmd *cobra.Command, res types.Result, w io.Writer) error {
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		fmt.Fprintln(os.Stderr)
		fmt.Fprint(os.Stderr, res.Feedback)
		fmt.Fprintln(os.Stderr)
	}

	if path, _ := cmd.Flags().GetString("out"); path != "" {
		if err := os.WriteFile(path, []byte(res.TabularText), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(res.Rows), path)
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	case "csv":
		fmt.Fprint(w, res.TabularText)
	case "preview", "":
		output.FormatPreview(w, types.Table{Columns: res.Schema, Rows: res.Rows}, 40)
		if res.SessionID != "" {
			fmt.Fprintf(w, "session %s\n", res.SessionID)
		}
	default:
		return fmt.Errorf("unknown format %q (want preview, csv, or json)", format)
	}

	if len(res.Rows) == 0 {
		return fmt.Errorf("no rows produced")
	}
	return nil
}
