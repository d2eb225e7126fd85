// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session stores named artifacts (the corpus, chunked outputs, the
// run summary) keyed by a session identifier, so that later stages and
// failure-recovery paths can re-read them without re-fetching the web.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// ErrNotFound is returned when a session artifact does not exist.
var ErrNotFound = errors.New("session artifact not found")

// Artifact names written by the pipeline.
const (
	CorpusArtifact = "corpus.yaml"
	RunArtifact    = "run.yaml"
	OutputPrefix   = "output/"
)

// Artifact describes one stored artifact.
type Artifact struct {
	SessionID string    `json:"session_id" yaml:"session_id"`
	Name      string    `json:"name" yaml:"name"`
	Size      int       `json:"size" yaml:"size"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Summary describes one session.
type Summary struct {
	SessionID string    `json:"session_id" yaml:"session_id"`
	Artifacts int       `json:"artifacts" yaml:"artifacts"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Store persists session artifacts. Put replaces an existing artifact;
// Delete of a missing artifact is not an error.
type Store interface {
	Put(ctx context.Context, sessionID, name string, data []byte) error
	Get(ctx context.Context, sessionID, name string) ([]byte, error)
	Delete(ctx context.Context, sessionID, name string) error
	List(ctx context.Context, sessionID string) ([]Artifact, error)
	Sessions(ctx context.Context) ([]Summary, error)
	Close() error
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Open returns the store selected by cfg.Driver: "sqlite" (default),
// "postgres", or "memory".
func Open(ctx context.Context, cfg types.SessionConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteStore(cfg.Dir)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}

// PutYAML marshals v and stores it under name.
func PutYAML(ctx context.Context, s Store, sessionID, name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	return s.Put(ctx, sessionID, name, data)
}

// GetYAML loads name and unmarshals it into v.
func GetYAML(ctx context.Context, s Store, sessionID, name string, v any) error {
	data, err := s.Get(ctx, sessionID, name)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// ChunkName returns the artifact name of output chunk i.
func ChunkName(i int) string {
	return fmt.Sprintf("%spart-%04d.csv", OutputPrefix, i)
}

// PutChunks stores each chunk as output/part-NNNN.csv and removes any
// output artifact left over from an earlier run of the session.
func PutChunks(ctx context.Context, s Store, sessionID string, chunks []string) error {
	keep := make(map[string]bool, len(chunks))
	for i, c := range chunks {
		name := ChunkName(i)
		if err := s.Put(ctx, sessionID, name, []byte(c)); err != nil {
			return fmt.Errorf("storing chunk %d: %w", i, err)
		}
		keep[name] = true
	}

	existing, err := s.List(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("listing previous output: %w", err)
	}
	for _, a := range existing {
		if !strings.HasPrefix(a.Name, OutputPrefix) || keep[a.Name] {
			continue
		}
		if err := s.Delete(ctx, sessionID, a.Name); err != nil {
			return fmt.Errorf("removing stale %s: %w", a.Name, err)
		}
	}
	return nil
}

func sortArtifacts(a []Artifact) {
	sort.Slice(a, func(i, j int) bool { return a[i].Name < a[j].Name })
}

func sortSummaries(s []Summary) {
	sort.Slice(s, func(i, j int) bool { return s[i].UpdatedAt.After(s[j].UpdatedAt) })
}
