// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// QueryFile is the on-disk representation of a search and its results. A
// saved search can be reloaded and fed to the fetch stage without
// re-querying the backends.
type QueryFile struct {
	Prompt  string               `yaml:"prompt"`
	Queries []types.SearchQuery  `yaml:"queries"`
	Limit   int                  `yaml:"limit"`
	Results []types.SearchResult `yaml:"results"`
	Summary QuerySummary         `yaml:"summary"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total             int       `yaml:"total"`
	DuplicatesRemoved int       `yaml:"duplicates_removed"`
	BackendErrors     []string  `yaml:"backend_errors,omitempty"`
	Timestamp         time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves the prompt, issued queries and results to a YAML file.
func WriteQueryFile(path, prompt string, limit int, out Output) error {
	qf := QueryFile{
		Prompt:  prompt,
		Queries: out.Queries,
		Limit:   limit,
		Results: out.Results,
		Summary: QuerySummary{
			Total:             len(out.Results),
			DuplicatesRemoved: out.DupsRemoved,
			BackendErrors:     out.BackendErrors,
			Timestamp:         time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// Output rebuilds a search Output from the stored file.
func (qf *QueryFile) Output() Output {
	return Output{
		Results:       qf.Results,
		Queries:       qf.Queries,
		DupsRemoved:   qf.Summary.DuplicatesRemoved,
		BackendErrors: qf.Summary.BackendErrors,
	}
}
