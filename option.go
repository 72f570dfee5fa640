// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package formflow

import "log/slog"

// Option represents an option for configuring a [Sequencer].
type Option func(*Sequencer)

// WithFileFields restricts file events to the given form field names.
//
// When the allow-list is non-empty, a file event whose field name is not
// listed is never yielded; its stream is drained immediately so the
// producer does not stall waiting for a reader that will never come.
// An empty allow-list admits every file event.
func WithFileFields(names ...string) Option {
	return func(s *Sequencer) {
		if s.fileFields == nil {
			s.fileFields = make(map[string]struct{}, len(names))
		}
		for _, name := range names {
			s.fileFields[name] = struct{}{}
		}
	}
}

// WithLogger sets the [*slog.Logger] used for teardown diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}
