// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and endpoints from a directory of plain-text
// files. Each file holds one secret: the filename is the key name and the
// trimmed contents are the value.
//
// Recognised keys: anthropic-api-key, openai-api-key, searxng-url.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Key names understood by Apply.
const (
	AnthropicAPIKey = "anthropic-api-key"
	OpenAIAPIKey    = "openai-api-key"
	SearxngURL      = "searxng-url"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", "name", name, "err", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Apply copies recognised secrets into cfg, filling only fields that are
// still empty. Provider keys go to each model tier whose provider matches.
func Apply(cfg *types.PipelineConfig, s map[string]string) {
	for _, ai := range aiConfigs(cfg) {
		if ai.APIKey != "" {
			continue
		}
		switch ai.Provider {
		case "anthropic":
			ai.APIKey = s[AnthropicAPIKey]
		case "openai":
			ai.APIKey = s[OpenAIAPIKey]
		}
	}
	if v := s[SearxngURL]; v != "" && cfg.Search.SearxngURL == "" {
		cfg.Search.SearxngURL = v
	}
}

func aiConfigs(cfg *types.PipelineConfig) []*types.AIConfig {
	return []*types.AIConfig{&cfg.Structure.Primary, &cfg.Structure.Secondary}
}
