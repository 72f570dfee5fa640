// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package server

import "fmt"

// UploadNotFoundError is returned when an upload ID has no stored record.
type UploadNotFoundError struct {
	UploadID string
}

// Error implements the error interface.
func (e UploadNotFoundError) Error() string {
	return fmt.Sprintf("upload not found: %s", e.UploadID)
}

// UploadStoreError wraps a storage-layer failure with the operation and
// upload it occurred on.
type UploadStoreError struct {
	Op       string
	UploadID string
	Err      error
}

// NewUploadStoreError creates a new UploadStoreError.
func NewUploadStoreError(op, uploadID string, err error) *UploadStoreError {
	return &UploadStoreError{Op: op, UploadID: uploadID, Err: err}
}

// Error implements the error interface.
func (e *UploadStoreError) Error() string {
	return fmt.Sprintf("upload store %s %s: %v", e.Op, e.UploadID, e.Err)
}

// Unwrap returns the underlying error.
func (e *UploadStoreError) Unwrap() error {
	return e.Err
}

// UploadValidationError reports an upload that failed validation before
// storage.
type UploadValidationError struct {
	UploadID string
	Err      error
}

// NewUploadValidationError creates a new UploadValidationError.
func NewUploadValidationError(uploadID string, err error) *UploadValidationError {
	return &UploadValidationError{UploadID: uploadID, Err: err}
}

// Error implements the error interface.
func (e *UploadValidationError) Error() string {
	return fmt.Sprintf("upload %s failed validation: %v", e.UploadID, e.Err)
}

// Unwrap returns the underlying error.
func (e *UploadValidationError) Unwrap() error {
	return e.Err
}
