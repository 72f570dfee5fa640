// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package formflow

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
)

// subscribedKinds is every event kind a sequencer listens for on its
// producer.
var subscribedKinds = []Kind{
	KindField,
	KindFile,
	KindFieldsLimit,
	KindFilesLimit,
	KindPartsLimit,
	KindCompleted,
	KindFailed,
}

// Sequencer turns a push-based [Producer] into an ordered, pull-based
// event sequence.
//
// Events are yielded strictly in emission order, one at a time; the
// producer keeps appending to an internal queue while the consumer works,
// so consuming an event never races the arrival of the next one. The
// sequence ends when the producer completes, when it fails (the failure
// surfaces as the terminal error), or when the consumer stops early; in
// every case teardown runs exactly once, detaching all listeners, draining
// the piped source, closing every file stream ever delivered, and
// destroying the producer if it has not finished on its own.
//
// A Sequencer is single-use and single-consumer: create one per producer
// invocation and drive it from one goroutine.
type Sequencer struct {
	producer Producer
	source   Source
	logger   *slog.Logger

	// fileFields, when non-empty, is the allow-list of file field names;
	// file events for other names are drained and never yielded.
	fileFields map[string]struct{}

	queue *eventQueue
	gate  *wakeGate

	mu        sync.Mutex
	sealed    bool         // terminal event enqueued; later pushes are ignored
	delivered []FileStream // every stream ever enqueued for the consumer
	cancels   []func()

	done atomic.Bool
	torn sync.Once
}

// New creates a Sequencer over producer, attaches listeners for every
// event kind, and, when source is non-nil, pipes it into the producer.
func New(producer Producer, source Source, opts ...Option) (*Sequencer, error) {
	if producer == nil {
		return nil, ErrNilProducer
	}

	s := &Sequencer{
		producer: producer,
		source:   source,
		logger:   slog.Default(),
		queue:    newEventQueue(),
		gate:     newWakeGate(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, kind := range subscribedKinds {
		s.cancels = append(s.cancels, producer.Subscribe(kind, s.collect))
	}
	if source != nil {
		producer.Pipe(source)
	}

	return s, nil
}

// collect is the producer-side listener: it wraps every native event into
// the queue and wakes the consumer. It runs on the producer's callback
// goroutine.
func (s *Sequencer) collect(event Event) {
	s.mu.Lock()

	if s.sealed {
		s.mu.Unlock()
		// Nothing is enqueued after a terminal event; a stray file still
		// gets its stream drained so the producer cannot stall on it.
		if f, ok := event.(*File); ok && f.Stream != nil {
			go func() { _ = f.Stream.Close() }()
		}
		return
	}

	if f, ok := event.(*File); ok {
		if len(s.fileFields) > 0 {
			if _, allowed := s.fileFields[f.Name]; !allowed {
				s.mu.Unlock()
				go func() { _ = f.Stream.Close() }()
				return
			}
		}
		s.delivered = append(s.delivered, f.Stream)
	}
	if IsTerminalEvent(event) {
		s.sealed = true
	}
	s.queue.push(event)
	s.mu.Unlock()

	s.gate.notify()
}

// Next blocks until the next event is available and returns it.
//
// Once the sequence has ended Next returns [ErrDone]; a producer failure
// is returned exactly once, at the position in the sequence where it
// occurred. Cancelling ctx abandons the sequence: teardown runs and the
// context error is returned.
func (s *Sequencer) Next(ctx context.Context) (Event, error) {
	if s.done.Load() {
		return nil, ErrDone
	}

	for {
		// Grab the wait handle before testing the queue so a notify
		// landing between the two is never lost.
		wait := s.gate.wait()

		if event, ok := s.queue.pop(); ok {
			switch e := event.(type) {
			case *Completed:
				s.done.Store(true)
				s.teardown()
				return nil, ErrDone
			case *Failed:
				s.done.Store(true)
				s.teardown()
				err := e.Err
				if err == nil {
					err = errors.New("producer failed")
				}
				return nil, err
			default:
				return event, nil
			}
		}

		select {
		case <-wait:
		case <-ctx.Done():
			s.done.Store(true)
			s.teardown()
			return nil, ctx.Err()
		}
	}
}

// All returns the remaining sequence as a range-over-func iterator.
//
// A producer failure is yielded as the final (nil, err) pair. Breaking out
// of the loop abandons the sequence; teardown runs regardless of how the
// loop exits.
func (s *Sequencer) All(ctx context.Context) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		defer s.teardown()

		for {
			event, err := s.Next(ctx)
			if err != nil {
				if errors.Is(err, ErrDone) {
					return
				}
				yield(nil, err)
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

// Close abandons the sequence and runs teardown. It is idempotent and
// returns nil. Consumers ranging over [Sequencer.All] need not call it;
// consumers driving [Sequencer.Next] directly must, unless Next already
// returned a non-nil error.
func (s *Sequencer) Close() error {
	s.done.Store(true)
	s.teardown()
	return nil
}

// teardown releases everything the sequence touched. Every step is
// best-effort: a failing step is logged and the rest still run.
func (s *Sequencer) teardown() {
	s.torn.Do(func() {
		s.done.Store(true)

		// Stop forwarding the source into the producer.
		s.producer.Unpipe()

		// Drain the source so upstream is not left blocked on a
		// half-consumed stream.
		if s.source != nil {
			if err := s.source.Drain(); err != nil {
				s.logger.Debug("formflow: drain source", "error", err)
			}
		}

		// Remove every listener the adapter attached. After this the
		// producer's further error emission reaches nobody.
		for _, cancel := range s.cancels {
			cancel()
		}

		// Destroy every stream ever delivered to the consumer, read or
		// not, so no file handle is left holding resources.
		s.mu.Lock()
		s.sealed = true
		delivered := s.delivered
		s.delivered = nil
		s.mu.Unlock()
		for _, stream := range delivered {
			if err := stream.Close(); err != nil {
				s.logger.Debug("formflow: close delivered stream", "error", err)
			}
		}

		// Force the producer down if it has not finished on its own.
		if !s.producer.Finished() {
			s.producer.End()
			s.producer.Destroy(nil)
		}
	})
}
