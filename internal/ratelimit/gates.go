// Package ratelimit bounds outbound model calls per provider.
package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"forgetbench/internal/spec"
)

// Gate caps concurrent calls to one provider and optionally paces them.
type Gate struct {
	name     string
	capacity int64
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
}

// NewGate builds a gate allowing concurrency simultaneous calls and at most
// requestsPerSecond call starts per second (0 disables pacing).
func NewGate(name string, concurrency int, requestsPerSecond float64) *Gate {
	if concurrency < 1 {
		concurrency = 1
	}
	gate := &Gate{name: name, capacity: int64(concurrency), sem: semaphore.NewWeighted(int64(concurrency))}
	if requestsPerSecond > 0 {
		burst := concurrency
		gate.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return gate
}

// Name returns the provider the gate guards.
func (g *Gate) Name() string { return g.name }

// Capacity returns the concurrency cap.
func (g *Gate) Capacity() int { return int(g.capacity) }

// Acquire blocks until a slot is free and pacing allows a new call.
// Every successful Acquire must be paired with Release.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire %s slot: %w", g.name, err)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.sem.Release(1)
			return fmt.Errorf("pace %s call: %w", g.name, err)
		}
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Gates holds one gate per provider name.
type Gates struct {
	mu     sync.Mutex
	byName map[string]*Gate
}

// BuildGates creates a gate for every configured provider.
func BuildGates(providers map[string]spec.ProviderConfig) *Gates {
	gates := &Gates{byName: make(map[string]*Gate, len(providers))}
	for name, settings := range providers {
		gates.byName[name] = NewGate(name, settings.Concurrency, settings.RequestsPerSecond)
	}
	return gates
}

// For returns the gate for a provider, creating a serial gate for providers
// that were not configured.
func (g *Gates) For(name string) *Gate {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gate, ok := g.byName[name]; ok {
		return gate
	}
	gate := NewGate(name, 1, 0)
	g.byName[name] = gate
	return gate
}

// Names lists the providers with gates, sorted.
func (g *Gates) Names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.byName))
	for name := range g.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Workers returns how many jobs a backend on provider should run at once:
// enough to saturate the provider gate without queueing far ahead of it.
func (g *Gates) Workers(name string) int {
	return g.For(name).Capacity()
}
