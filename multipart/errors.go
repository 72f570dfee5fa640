// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import "errors"

var (
	// ErrNotMultipart is returned when a request's Content-Type is not a
	// multipart media type.
	ErrNotMultipart = errors.New("request is not multipart")

	// ErrMissingBoundary is returned when a multipart Content-Type lacks
	// the boundary parameter.
	ErrMissingBoundary = errors.New("multipart content type has no boundary")

	// ErrStreamClosed is returned when reading a file stream after it has
	// been closed.
	ErrStreamClosed = errors.New("file stream is closed")
)
