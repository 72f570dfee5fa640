// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-formflow/formflow/auth"
	"github.com/go-formflow/formflow/multipart"
)

// Server is the HTTP upload service.
type Server struct {
	mux     *http.ServeMux
	handler http.Handler

	store      UploadStore
	blobs      BlobStore
	limits     multipart.Limits
	fileFields []string
	logger     *slog.Logger
	streams    *StreamRegistry
	validator  *auth.TokenValidator
}

// Config holds the required collaborators for a Server.
type Config struct {
	// Store persists upload records.
	Store UploadStore

	// Blobs persists uploaded file bytes.
	Blobs BlobStore
}

// NewServer creates a new upload server with the provided configuration.
func NewServer(cfg Config, opts ...Option) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("upload store is required")
	}
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}

	s := &Server{
		mux:     http.NewServeMux(),
		store:   cfg.Store,
		blobs:   cfg.Blobs,
		limits:  multipart.DefaultLimits(),
		logger:  slog.Default(),
		streams: NewStreamRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerHandlers()

	s.handler = s.mux
	if s.validator != nil {
		s.handler = auth.Middleware(s.validator, s.mux)
	}

	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// registerHandlers sets up all the HTTP routes for the upload server.
func (s *Server) registerHandlers() {
	s.mux.HandleFunc("POST /uploads", s.handleUpload)
	s.mux.HandleFunc("GET /uploads", s.handleListUploads)
	s.mux.HandleFunc("GET /uploads/{id}", s.handleGetUpload)
	s.mux.HandleFunc("DELETE /uploads/{id}", s.handleDeleteUpload)
	s.mux.HandleFunc("GET /uploads/{id}/events", s.handleUploadEvents)
}
