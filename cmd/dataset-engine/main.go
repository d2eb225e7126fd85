// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the dataset-engine CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/internal/pipeline"
	"github.com/pdiddy/dataset-engine/internal/secrets"
	"github.com/pdiddy/dataset-engine/internal/session"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the dataset-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "dataset-engine",
	Short: "Turn a natural-language data request into a table",
	Long: `dataset-engine builds a tabular dataset from a plain-language request.
It refines the request into a search query, ranks and fetches web pages,
cleans them into a corpus, and extracts rows through a chain of AI models
with a deterministic pattern-matching fallback.

Each stage is also available on its own: refine, search, and fetch. Runs are
stored as sessions so extraction can be repeated without going back to the
web (session reextract). serve exposes the pipeline over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, nil)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./dataset-engine.yaml or ~/.config/dataset-engine/dataset-engine.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of API key files")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("dataset-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "dataset-engine"))
		}
	}

	viper.SetEnvPrefix("DATASET_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig decodes the global viper state and applies loaded secrets.
func pipelineConfig() (types.PipelineConfig, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return cfg, err
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg, nil
}

func newLogger(cfg types.PipelineConfig) *slog.Logger {
	return logging.New(cfg.LogLevel, os.Stderr)
}

// openPipeline builds the pipeline and its session store. The caller closes
// the store.
func openPipeline(ctx context.Context, cfg types.PipelineConfig) (*pipeline.Pipeline, session.Store, error) {
	logger := newLogger(cfg)
	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session store: %w", err)
	}
	return pipeline.New(cfg, store, logger, os.Stderr), store, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
