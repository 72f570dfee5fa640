// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"errors"
	"io"
	mpart "mime/multipart"
	"sync"

	"github.com/go-formflow/formflow"
)

// fileStream is the [formflow.FileStream] handed out for a file part.
//
// The parser and the consumer share the underlying part reader, but never
// concurrently: after emitting the file event the parser blocks until the
// stream signals done (read to EOF, cut at the size cap, or closed), and
// only then advances to the next part. Close does not itself discard the
// unread bytes; the parser's next boundary scan does.
type fileStream struct {
	part      *mpart.Part
	remaining int64 // bytes still allowed; < 0 means uncapped

	mu        sync.Mutex
	closed    bool
	eof       bool
	truncated bool

	done     chan struct{}
	doneOnce sync.Once
}

var _ formflow.FileStream = (*fileStream)(nil)

// newFileStream wraps part with maxSize as the byte cap (0 or negative
// means uncapped).
func newFileStream(part *mpart.Part, maxSize int64) *fileStream {
	if maxSize <= 0 {
		maxSize = -1
	}
	return &fileStream{
		part:      part,
		remaining: maxSize,
		done:      make(chan struct{}),
	}
}

// Read implements [io.Reader]. Bytes beyond the size cap are cut: Read
// reports EOF, Truncated flips to true, and the parser discards the rest.
func (s *fileStream) Read(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStreamClosed
	}
	if s.eof {
		return 0, io.EOF
	}

	if s.remaining == 0 {
		// Probe one byte so Truncated only reports true when bytes were
		// actually cut.
		var probe [1]byte
		if n, _ := s.part.Read(probe[:]); n > 0 {
			s.truncated = true
		}
		s.eof = true
		s.signalDone()
		return 0, io.EOF
	}

	if s.remaining > 0 && int64(len(b)) > s.remaining {
		b = b[:s.remaining]
	}

	n, err := s.part.Read(b)
	if s.remaining > 0 {
		s.remaining -= int64(n)
	}
	if err != nil && errors.Is(err, io.EOF) {
		s.eof = true
		s.signalDone()
	}

	return n, err
}

// Close implements [io.Closer]. It is idempotent, never fails, and
// releases the parser to advance past this part.
func (s *fileStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.signalDone()
	return nil
}

// Truncated implements [formflow.FileStream].
func (s *fileStream) Truncated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.truncated
}

func (s *fileStream) signalDone() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}
