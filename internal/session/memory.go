// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps artifacts in process memory. Used by tests and by
// `serve` when no durable store is wanted.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]memArtifact
}

type memArtifact struct {
	data    []byte
	created time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]memArtifact)}
}

func (m *MemoryStore) Put(_ context.Context, sessionID, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[sessionID] == nil {
		m.data[sessionID] = make(map[string]memArtifact)
	}
	m.data[sessionID][name] = memArtifact{data: append([]byte(nil), data...), created: time.Now().UTC()}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.data[sessionID][name]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", sessionID, name, ErrNotFound)
	}
	return append([]byte(nil), a.data...), nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[sessionID], name)
	if len(m.data[sessionID]) == 0 {
		delete(m.data, sessionID)
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context, sessionID string) ([]Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Artifact
	for name, a := range m.data[sessionID] {
		out = append(out, Artifact{SessionID: sessionID, Name: name, Size: len(a.data), CreatedAt: a.created})
	}
	sortArtifacts(out)
	return out, nil
}

func (m *MemoryStore) Sessions(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Summary
	for id, arts := range m.data {
		s := Summary{SessionID: id, Artifacts: len(arts)}
		for _, a := range arts {
			if a.created.After(s.UpdatedAt) {
				s.UpdatedAt = a.created
			}
		}
		out = append(out, s)
	}
	sortSummaries(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
