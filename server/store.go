// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package server

import "context"

// UploadStore defines the interface for upload record persistence.
// Implementations must be safe for concurrent use.
type UploadStore interface {
	// Save persists an upload record, creating or replacing it.
	Save(ctx context.Context, upload *Upload) error

	// Get retrieves an upload by ID.
	// Returns UploadNotFoundError if no such upload exists.
	Get(ctx context.Context, uploadID string) (*Upload, error)

	// List returns all stored uploads, newest first.
	List(ctx context.Context) ([]*Upload, error)

	// Delete removes an upload record.
	// Returns UploadNotFoundError if no such upload exists.
	Delete(ctx context.Context, uploadID string) error
}
