// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package formflow

import "sync"

// wakeGate is a single-slot suspension primitive connecting the producer
// side of a sequencer to its consumer side.
//
// The consumer obtains the current wait handle with wait and suspends on
// it; notify releases that handle and atomically installs a fresh one
// before returning. Multiple notifies between consumer checks coalesce
// into a single wake. The gate alone is not a queue-state oracle: a woken
// consumer must re-check queue emptiness, and must grab the wait handle
// before that check so a notify landing in between is never lost.
type wakeGate struct {
	mu sync.Mutex
	ch chan struct{}
}

// newWakeGate creates a gate with an armed wait handle.
func newWakeGate() *wakeGate {
	return &wakeGate{
		ch: make(chan struct{}),
	}
}

// wait returns the current wait handle. The handle is closed by the next
// notify.
func (g *wakeGate) wait() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch
}

// notify releases the current wait handle and installs a fresh one.
func (g *wakeGate) notify() {
	g.mu.Lock()
	defer g.mu.Unlock()

	close(g.ch)
	g.ch = make(chan struct{})
}
