// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicAPIKey, "  sk-ant-123  \n")
				writeFile(t, dir, OpenAIAPIKey, "sk-oai-456")
				writeFile(t, dir, SearxngURL, "http://searx.internal:8080\n")
				return dir
			},
			want: map[string]string{
				AnthropicAPIKey: "sk-ant-123",
				OpenAIAPIKey:    "sk-oai-456",
				SearxngURL:      "http://searx.internal:8080",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicAPIKey, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{AnthropicAPIKey: "valid-key"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, OpenAIAPIKey, "sk-real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{OpenAIAPIKey: "sk-real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), logging.Discard())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files regardless of mode")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	assert.NotContains(t, got, "bad-key")
}

func TestApply(t *testing.T) {
	cfg := types.DefaultPipelineConfig()

	Apply(&cfg, map[string]string{
		AnthropicAPIKey: "ak",
		OpenAIAPIKey:    "ok",
		SearxngURL:      "http://searx:8888",
	})

	assert.Equal(t, "ak", cfg.Structure.Primary.APIKey)
	assert.Equal(t, "ok", cfg.Structure.Secondary.APIKey)
	assert.Equal(t, "http://searx:8888", cfg.Search.SearxngURL)
}

func TestApplyKeepsExplicitValues(t *testing.T) {
	cfg := types.DefaultPipelineConfig()
	cfg.Structure.Primary.APIKey = "from-config"
	cfg.Search.SearxngURL = "http://searx.mine:8888"

	Apply(&cfg, map[string]string{AnthropicAPIKey: "from-file", SearxngURL: "http://other"})

	assert.Equal(t, "from-config", cfg.Structure.Primary.APIKey)
	assert.Equal(t, "http://searx.mine:8888", cfg.Search.SearxngURL)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
