// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/go-formflow/formflow/internal/pool"
)

// UploadEvent is the SSE payload describing upload progress. One event
// is published per sequencer event, plus a final done event.
type UploadEvent struct {
	UploadID string       `json:"upload_id"`
	Kind     string       `json:"kind"`
	Field    *FieldRecord `json:"field,omitempty"`
	File     *FileRecord  `json:"file,omitempty"`
	Error    string       `json:"error,omitempty"`
	Done     bool         `json:"done,omitempty"`
}

// Stream represents a Server-Sent Events (SSE) connection for one upload.
type Stream struct {
	w           http.ResponseWriter
	flusher     http.Flusher
	uploadID    string
	mu          sync.Mutex
	isConnected bool
}

// StreamRegistry manages active SSE streams keyed by upload ID.
type StreamRegistry struct {
	streams map[string]*Stream
	mu      sync.RWMutex
}

// NewStreamRegistry creates a new StreamRegistry.
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{
		streams: make(map[string]*Stream),
	}
}

// CreateStream initializes a new SSE stream for an upload. It returns
// nil if the client connection does not support flushing.
func (r *StreamRegistry) CreateStream(uploadID string, w http.ResponseWriter, req *http.Request) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Close existing stream if any
	if existing, exists := r.streams[uploadID]; exists {
		existing.disconnect()
		delete(r.streams, uploadID)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // For Nginx proxy

	stream := &Stream{
		w:           w,
		flusher:     flusher,
		uploadID:    uploadID,
		isConnected: true,
	}
	r.streams[uploadID] = stream

	return stream
}

// GetStream retrieves a stream by upload ID.
func (r *StreamRegistry) GetStream(uploadID string) *Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.streams[uploadID]
}

// CloseStream removes a stream from the registry.
func (r *StreamRegistry) CloseStream(uploadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stream, exists := r.streams[uploadID]; exists {
		stream.disconnect()
		delete(r.streams, uploadID)
	}
}

// SendEvent sends an upload progress event through the stream.
func (s *Stream) SendEvent(event UploadEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isConnected {
		return fmt.Errorf("stream is closed")
	}

	data, err := sonic.ConfigDefault.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	frame := pool.String.Get()
	defer pool.String.Put(frame)
	frame.WriteString("event: progress\ndata: ")
	frame.Write(data)
	frame.WriteString("\n\n")

	if _, err := io.WriteString(s.w, frame.String()); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	s.flusher.Flush()

	return nil
}

func (s *Stream) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isConnected = false
}
