// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists the raw bytes of uploaded files, keyed by a
// server-generated blob key.
type BlobStore interface {
	// Create opens a writer for the blob identified by key, replacing
	// any existing blob.
	Create(ctx context.Context, key string) (io.WriteCloser, error)

	// Remove deletes the blob identified by key.
	Remove(ctx context.Context, key string) error
}

// DirBlobStore is a filesystem implementation of BlobStore that writes
// each blob as a file under a root directory.
type DirBlobStore struct {
	root string
}

var _ BlobStore = (*DirBlobStore)(nil)

// NewDirBlobStore creates a DirBlobStore rooted at root, creating the
// directory if needed.
func NewDirBlobStore(root string) (*DirBlobStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &DirBlobStore{root: root}, nil
}

// Create opens a file for the blob identified by key.
func (s *DirBlobStore) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create blob %s: %w", key, err)
	}
	return f, nil
}

// Remove deletes the blob identified by key.
func (s *DirBlobStore) Remove(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove blob %s: %w", key, err)
	}
	return nil
}

// path maps key to a file path, rejecting keys that escape the root.
func (s *DirBlobStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, key), nil
}
