// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"sync"
)

// Func adapts a function to the Client interface. Useful for wiring a
// deterministic model in tests and local runs.
type Func struct {
	ID string
	Fn func(ctx context.Context, prompt string) (string, error)

	mu    sync.Mutex
	calls int
}

func (f *Func) Name() string { return f.ID }

func (f *Func) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.Fn(ctx, prompt)
}

// Calls reports how many times Complete has run.
func (f *Func) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
