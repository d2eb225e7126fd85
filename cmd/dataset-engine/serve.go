// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-engine/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long: `Serve exposes the pipeline as an HTTP API:

  POST /v1/datasets                   run a request (?stream=1 for NDJSON progress)
  GET  /v1/sessions                   list stored sessions
  GET  /v1/sessions/{id}/artifacts    list a session's artifacts
  GET  /v1/sessions/{id}/artifacts/*  read one artifact
  POST /v1/sessions/{id}/reextract    re-run extraction over a stored corpus
  GET  /healthz                       liveness

Identical concurrent requests share one pipeline run.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Duration("sweep-interval", time.Minute, "how often expired cache entries are evicted")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	interval, _ := cmd.Flags().GetDuration("sweep-interval")
	stop := make(chan struct{})
	defer close(stop)
	p.SweepCaches(interval, stop)

	addr, _ := cmd.Flags().GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(p, store, p.Logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "listening on %s\n", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
	defer done()
	fmt.Fprintln(os.Stderr, "shutting down")
	return srv.Shutdown(shutdownCtx)
}
