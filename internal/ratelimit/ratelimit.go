// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit provides per-backend admission control for outbound
// calls. Every connector call passes through a Limiter keyed by backend
// group, so the limiter is the single throttling point in the pipeline.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Backend keys. PubMed has its own budget (quota depends on whether an
// NCBI API key is configured); the scholarly graph backends share one.
const (
	KeyPubMed    = "pubmed"
	KeyScholarly = "scholarly"
	KeyWeb       = "web"
)

// Budget describes the admission budget for one backend group.
type Budget struct {
	// Interval is the minimum spacing between call starts.
	Interval time.Duration

	// Burst is the token-bucket burst size (minimum 1).
	Burst int

	// MaxInFlight caps concurrently executing calls (minimum 1).
	MaxInFlight int
}

type entry struct {
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// Limiter throttles calls per backend group. Calls block until a slot
// frees; nothing is dropped or reordered, and there is no cap on how
// many callers may wait.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns a Limiter with the given budgets.
func New(budgets map[string]Budget) *Limiter {
	l := &Limiter{entries: make(map[string]*entry)}
	for key, b := range budgets {
		l.entries[key] = newEntry(b)
	}
	return l
}

// DefaultBudgets returns the standard budgets. With an NCBI API key
// PubMed allows ten requests per second, without one three. The three
// scholarly graph backends share a single one-per-second budget.
func DefaultBudgets(hasNCBIKey bool) map[string]Budget {
	pubmed := Budget{Interval: 334 * time.Millisecond, Burst: 3, MaxInFlight: 3}
	if hasNCBIKey {
		pubmed = Budget{Interval: 100 * time.Millisecond, Burst: 10, MaxInFlight: 10}
	}
	return map[string]Budget{
		KeyPubMed:    pubmed,
		KeyScholarly: {Interval: time.Second, Burst: 1, MaxInFlight: 3},
		KeyWeb:       {Interval: time.Second, Burst: 1, MaxInFlight: 2},
	}
}

func newEntry(b Budget) *entry {
	if b.Burst < 1 {
		b.Burst = 1
	}
	if b.MaxInFlight < 1 {
		b.MaxInFlight = 1
	}
	limit := rate.Inf
	if b.Interval > 0 {
		limit = rate.Every(b.Interval)
	}
	return &entry{
		limiter: rate.NewLimiter(limit, b.Burst),
		sem:     semaphore.NewWeighted(int64(b.MaxInFlight)),
	}
}

// Do runs fn under the budget for key, blocking until both an in-flight
// slot and an interval token are available. Unknown keys get an
// unlimited budget on first use.
func (l *Limiter) Do(ctx context.Context, key string, fn func() error) error {
	e := l.entry(key)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquiring %s slot: %w", key, err)
	}
	defer e.sem.Release(1)

	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for %s budget: %w", key, err)
	}
	return fn()
}

func (l *Limiter) entry(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = newEntry(Budget{})
		l.entries[key] = e
	}
	return e
}
