// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup shares one execution between identical in-flight requests.
// An entry lives only while its execution runs; a request that arrives
// after completion always runs again.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Fingerprint keys a request by its normalized prompt and row count.
func Fingerprint(prompt string, numRows int) string {
	norm := strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
	sum := sha256.Sum256([]byte(norm + "|" + strconv.Itoa(numRows)))
	return hex.EncodeToString(sum[:])
}

// flight tracks the callers waiting on one execution.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Group deduplicates concurrent calls by key.
type Group[V any] struct {
	sf singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
	runs    int
}

// New returns an empty Group.
func New[V any]() *Group[V] {
	return &Group[V]{flights: make(map[string]*flight)}
}

// Do runs fn for key unless an execution for key is already in flight, in
// which case it waits for that execution and returns its result. shared
// reports whether the result was delivered to more than one caller.
//
// fn runs under a context detached from any single caller. It is cancelled
// once every waiting caller's context is done, and the key is released so
// the next caller starts afresh.
func (g *Group[V]) Do(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, bool, error) {
	g.mu.Lock()
	f, ok := g.flights[key]
	if !ok {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: runCtx, cancel: cancel}
		g.flights[key] = f
	}
	f.waiters++
	// Joining under the lock keeps waiters in step with singleflight's callers.
	ch := g.sf.DoChan(key, func() (any, error) {
		g.mu.Lock()
		g.runs++
		g.mu.Unlock()
		return fn(f.ctx)
	})
	g.mu.Unlock()

	var zero V
	select {
	case res := <-ch:
		g.leave(key, f, false)
		if res.Err != nil {
			return zero, res.Shared, res.Err
		}
		return res.Val.(V), res.Shared, nil
	case <-ctx.Done():
		g.leave(key, f, true)
		return zero, false, ctx.Err()
	}
}

// leave drops one waiter. The last waiter to leave releases the flight;
// if it leaves early the execution is cancelled and forgotten.
func (g *Group[V]) leave(key string, f *flight, early bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	if g.flights[key] == f {
		delete(g.flights, key)
	}
	if early {
		g.sf.Forget(key)
	}
	f.cancel()
}

// Waiters returns the number of callers waiting on key.
func (g *Group[V]) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.flights[key]; ok {
		return f.waiters
	}
	return 0
}

// InFlight returns the number of keys with waiting callers.
func (g *Group[V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.flights)
}

// Runs returns how many executions have started.
func (g *Group[V]) Runs() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.runs
}
