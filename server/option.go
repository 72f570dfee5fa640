// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"log/slog"

	"github.com/go-formflow/formflow/auth"
	"github.com/go-formflow/formflow/multipart"
)

// Option represents an option for configuring the [Server].
type Option func(*Server)

// WithLogger sets the [*slog.Logger] for the [Server].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLimits sets the multipart parser limits applied to every upload.
func WithLimits(limits multipart.Limits) Option {
	return func(s *Server) {
		s.limits = limits
	}
}

// WithFileFields restricts accepted file parts to the given form field
// names; files under other names are drained and never persisted.
func WithFileFields(names ...string) Option {
	return func(s *Server) {
		s.fileFields = append(s.fileFields, names...)
	}
}

// WithAuth guards every route with bearer-token authentication.
func WithAuth(validator *auth.TokenValidator) Option {
	return func(s *Server) {
		s.validator = validator
	}
}
