// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package formflow

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEventQueueFIFO(t *testing.T) {
	t.Parallel()

	q := newEventQueue()

	if !q.empty() {
		t.Errorf("new queue should be empty")
	}
	if _, ok := q.pop(); ok {
		t.Errorf("pop on empty queue should report not ok")
	}

	want := make([]string, 0, 10)
	for i := range 10 {
		name := fmt.Sprintf("field-%d", i)
		q.push(&Field{Name: name})
		want = append(want, name)
	}

	if q.empty() {
		t.Errorf("queue with %d events should not be empty", len(want))
	}
	if got := q.size(); got != len(want) {
		t.Errorf("size() = %d, want %d", got, len(want))
	}

	got := make([]string, 0, len(want))
	for {
		event, ok := q.pop()
		if !ok {
			break
		}
		got = append(got, event.(*Field).Name)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pop order mismatch (-want +got):\n%s", diff)
	}
	if !q.empty() {
		t.Errorf("fully drained queue should be empty")
	}
}

func TestEventQueueInterleavedPushPop(t *testing.T) {
	t.Parallel()

	q := newEventQueue()

	q.push(&Field{Name: "a"})
	q.push(&Field{Name: "b"})

	event, ok := q.pop()
	if !ok || event.(*Field).Name != "a" {
		t.Fatalf("pop() = %v, %t, want field a", event, ok)
	}

	q.push(&Field{Name: "c"})

	for _, want := range []string{"b", "c"} {
		event, ok := q.pop()
		if !ok || event.(*Field).Name != want {
			t.Errorf("pop() = %v, %t, want field %s", event, ok, want)
		}
	}
}

func TestEventQueueCursorWraparound(t *testing.T) {
	t.Parallel()

	// Cursors parked just below the representable maximum must wrap
	// without disturbing FIFO order.
	start := uint64(math.MaxUint64 - 1)
	q := &eventQueue{
		items: make(map[uint64]Event),
		head:  start,
		tail:  start,
	}

	names := []string{"before", "at", "after", "well-after"}
	for _, name := range names {
		q.push(&Field{Name: name})
	}

	got := make([]string, 0, len(names))
	for {
		event, ok := q.pop()
		if !ok {
			break
		}
		got = append(got, event.(*Field).Name)
	}

	if diff := cmp.Diff(names, got); diff != "" {
		t.Errorf("pop order across wraparound mismatch (-want +got):\n%s", diff)
	}
	if !q.empty() {
		t.Errorf("queue should be empty after draining across wraparound")
	}
	if q.head != q.tail {
		t.Errorf("cursors diverged: head = %d, tail = %d", q.head, q.tail)
	}
}
