// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryUploadStore is an in-memory implementation of UploadStore.
// Upload records are lost when the process stops. All operations are
// thread-safe using sync.RWMutex.
type InMemoryUploadStore struct {
	mu      sync.RWMutex
	uploads map[string]*Upload
}

var _ UploadStore = (*InMemoryUploadStore)(nil)

// NewInMemoryUploadStore creates a new InMemoryUploadStore.
func NewInMemoryUploadStore() *InMemoryUploadStore {
	return &InMemoryUploadStore{
		uploads: make(map[string]*Upload),
	}
}

// Save persists an upload record to the in-memory storage.
func (s *InMemoryUploadStore) Save(ctx context.Context, upload *Upload) error {
	if upload == nil {
		return fmt.Errorf("upload cannot be nil")
	}
	if err := upload.Validate(); err != nil {
		return NewUploadValidationError(upload.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a deep copy to avoid sharing mutable state with the caller.
	s.uploads[upload.ID] = copyUpload(upload)
	return nil
}

// Get retrieves an upload by its ID from the in-memory storage.
func (s *InMemoryUploadStore) Get(ctx context.Context, uploadID string) (*Upload, error) {
	if uploadID == "" {
		return nil, fmt.Errorf("upload ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	upload, exists := s.uploads[uploadID]
	if !exists {
		return nil, UploadNotFoundError{UploadID: uploadID}
	}
	return copyUpload(upload), nil
}

// List returns all stored uploads, newest first.
func (s *InMemoryUploadStore) List(ctx context.Context) ([]*Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uploads := make([]*Upload, 0, len(s.uploads))
	for _, upload := range s.uploads {
		uploads = append(uploads, copyUpload(upload))
	}
	sort.Slice(uploads, func(i, j int) bool {
		return uploads[i].CreatedAt.After(uploads[j].CreatedAt)
	})
	return uploads, nil
}

// Delete removes an upload record from the in-memory storage.
func (s *InMemoryUploadStore) Delete(ctx context.Context, uploadID string) error {
	if uploadID == "" {
		return fmt.Errorf("upload ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.uploads[uploadID]; !exists {
		return UploadNotFoundError{UploadID: uploadID}
	}
	delete(s.uploads, uploadID)
	return nil
}

// copyUpload returns a deep copy of upload.
func copyUpload(upload *Upload) *Upload {
	cp := &Upload{
		ID:        upload.ID,
		CreatedAt: upload.CreatedAt,
	}
	if upload.Fields != nil {
		cp.Fields = make([]FieldRecord, len(upload.Fields))
		copy(cp.Fields, upload.Fields)
	}
	if upload.Files != nil {
		cp.Files = make([]FileRecord, len(upload.Files))
		copy(cp.Files, upload.Files)
	}
	if upload.LimitsHit != nil {
		cp.LimitsHit = make([]string, len(upload.LimitsHit))
		copy(cp.LimitsHit, upload.LimitsHit)
	}
	return cp
}
