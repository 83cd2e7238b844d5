// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress defines the typed progress contract between the
// research pipeline and its caller. The pipeline emits Updates at
// defined checkpoints; any transport (CLI spinner, SSE stream) can
// consume them by supplying a Func.
package progress

import "sync"

// Update is one progress event.
type Update struct {
	// Phase names the pipeline stage ("planning", "section", "assembly",
	// "done").
	Phase string

	// Message is a human-readable description of the current step.
	Message string

	// Percent is in [0,100] and never decreases within one run.
	Percent int
}

// Func consumes progress events. A nil Func is valid and discards
// everything.
type Func func(Update)

// Reporter wraps a Func and enforces the monotonicity contract:
// percentages are clamped to [0,100] and never move backwards, so
// callers can drive progress bars without defensive checks.
type Reporter struct {
	mu   sync.Mutex
	fn   Func
	last int
}

// NewReporter wraps fn. fn may be nil.
func NewReporter(fn Func) *Reporter {
	return &Reporter{fn: fn}
}

// Report emits one event. Out-of-range or regressing percentages are
// clamped to the last reported value.
func (r *Reporter) Report(phase, message string, percent int) {
	r.mu.Lock()
	if percent < r.last {
		percent = r.last
	}
	if percent > 100 {
		percent = 100
	}
	r.last = percent
	fn := r.fn
	r.mu.Unlock()

	if fn != nil {
		fn(Update{Phase: phase, Message: message, Percent: percent})
	}
}
