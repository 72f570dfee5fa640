// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package formflow

import "sync"

// eventQueue is an unbounded FIFO of pending events.
//
// It is realized as a map keyed by monotonically increasing position
// counters with separate head and tail cursors, giving amortized O(1)
// push and pop without element shifting. The cursors are uint64 and rely
// on Go's defined unsigned wraparound, so the queue stays correct across
// the counter maximum.
//
// The queue is deliberately unbounded: the upstream byte source is already
// flow-controlled, so production rate is bounded by consumption of file
// streams, and a capacity here would only reintroduce producer blocking.
type eventQueue struct {
	mu    sync.Mutex
	items map[uint64]Event
	head  uint64
	tail  uint64
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		items: make(map[uint64]Event),
	}
}

// push appends event at the tail.
func (q *eventQueue) push(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items[q.tail] = event
	q.tail++
}

// pop removes and returns the oldest event. The second return value is
// false if the queue is empty.
func (q *eventQueue) pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == q.tail {
		return nil, false
	}

	event := q.items[q.head]
	delete(q.items, q.head)
	q.head++

	return event, true
}

// empty reports whether the queue holds no events.
func (q *eventQueue) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head == q.tail
}

// size returns the current number of queued events.
func (q *eventQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
