// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-engine/internal/llm"
	"github.com/pdiddy/dataset-engine/internal/refine"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

var refineCmd = &cobra.Command{
	Use:   "refine [request...]",
	Short: "Turn a request into a search query",
	Long: `Refine prints the search query the pipeline would issue for a request.
The primary model is used when configured; otherwise keywords are extracted
from the request.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		q, err := newRefiner(cfg, os.Stderr).Refine(ctx, strings.Join(args, " "), os.Stderr)
		if err != nil {
			return err
		}
		fmt.Println(q.Text)
		return nil
	},
}

// newRefiner builds a refiner on the primary model, falling back to the
// keyword extractor when the model cannot be configured.
func newRefiner(cfg types.PipelineConfig, w io.Writer) *refine.Refiner {
	var client llm.Client
	if cfg.Structure.Primary.Enabled() {
		c, err := llm.NewClient(cfg.Structure.Primary, nil)
		if err != nil {
			fmt.Fprintf(w, "model unavailable, using keywords: %v\n", err)
		} else {
			client = c
		}
	}
	return refine.New(client, cfg.Refine)
}

func init() {
	rootCmd.AddCommand(refineCmd)
}
