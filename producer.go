// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package formflow

import (
	"io"
	"sync"
)

// FileStream is the readable handle carried by a [File] event.
//
// A stream is valid from the moment its event is yielded until it is
// closed. Close discards any unread bytes so the producer is never left
// stalled on a half-read part; it is idempotent and safe to call from
// teardown after the consumer is gone.
type FileStream interface {
	io.ReadCloser

	// Truncated reports whether the file bytes were cut at the producer's
	// configured file size cap. Only meaningful once the stream has been
	// read to EOF.
	Truncated() bool
}

// Producer is the contract for a push-based event producer feeding a
// [Sequencer].
//
// A producer emits, in delivery order, zero or more non-terminal events
// (field, file, limit notifications), then at most one terminal event
// ([Completed] or [Failed]), and nothing after that. Listener callbacks
// for a single producer are invoked from one goroutine at a time.
type Producer interface {
	// Subscribe registers fn for events of the given kind and returns a
	// cancel function that unregisters it. Cancel is idempotent.
	Subscribe(kind Kind, fn func(Event)) (cancel func())

	// ListenerCount returns the number of currently registered listeners
	// across all event kinds.
	ListenerCount() int

	// Pipe starts consuming bytes from src. At most one source is piped
	// at a time.
	Pipe(src Source)

	// Unpipe detaches the currently piped source, if any. Bytes already
	// consumed stay consumed; the producer stops reading further.
	Unpipe()

	// End signals end-of-input: no further bytes will arrive.
	End()

	// Destroy force-terminates the producer. A destroyed producer emits
	// no further events. Destroy is idempotent.
	Destroy(err error)

	// Finished reports whether the producer has emitted its terminal
	// event.
	Finished() bool
}

// Source is a readable byte stream that can be piped into a [Producer]
// and later abandoned.
type Source interface {
	io.Reader

	// Drain discards any remaining unread bytes so upstream resources
	// are not left blocked on a half-consumed stream.
	Drain() error
}

// readerSource adapts a plain [io.Reader] to the [Source] contract.
// Read and Drain are serialized so a teardown-time drain never races an
// in-flight producer read.
type readerSource struct {
	mu sync.Mutex
	r  io.Reader
}

// NewSource wraps r as a [Source] whose Drain copies remaining bytes to
// [io.Discard].
func NewSource(r io.Reader) Source {
	return &readerSource{r: r}
}

// Read implements [io.Reader].
func (s *readerSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Read(p)
}

// Drain implements [Source].
func (s *readerSource) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.Copy(io.Discard, s.r)
	return err
}
