// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package server provides an HTTP upload service built on formflow
// sequencers. Each multipart POST is consumed strictly in submission
// order: a field is recorded before the next file is read, a file is
// fully persisted before the next event is requested, which is exactly
// the ordered-asynchronous-work-per-event pattern the sequencer exists
// for.
package server

import (
	"fmt"
	"time"
)

// Upload is one processed multipart submission.
type Upload struct {
	// ID identifies the upload. Client-supplied via the X-Upload-Id
	// header, or generated.
	ID string `json:"id"`

	// CreatedAt is when processing began.
	CreatedAt time.Time `json:"created_at"`

	// Fields holds the non-file form fields in submission order.
	Fields []FieldRecord `json:"fields"`

	// Files holds the persisted file parts in submission order.
	Files []FileRecord `json:"files"`

	// LimitsHit lists the limit notifications observed while parsing,
	// in order ("fields_limit", "files_limit", "parts_limit").
	LimitsHit []string `json:"limits_hit,omitempty"`
}

// FieldRecord is one recorded form field.
type FieldRecord struct {
	// Name is the form field name.
	Name string `json:"name"`

	// Value is the field value, possibly truncated at the parser cap.
	Value string `json:"value"`

	// Truncated reports whether the name or value was cut.
	Truncated bool `json:"truncated,omitempty"`
}

// FileRecord is one persisted file part.
type FileRecord struct {
	// FieldName is the form field the file arrived under.
	FieldName string `json:"field_name"`

	// Filename is the client-supplied file name.
	Filename string `json:"filename"`

	// MIMEType is the declared content type of the part.
	MIMEType string `json:"mime_type"`

	// BlobKey locates the stored bytes in the blob store.
	BlobKey string `json:"blob_key"`

	// Size is the number of bytes persisted.
	Size int64 `json:"size"`

	// Truncated reports whether the file was cut at the parser's size
	// cap.
	Truncated bool `json:"truncated,omitempty"`
}

// Validate ensures the Upload is in a storable state.
func (u *Upload) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("upload ID cannot be empty")
	}
	for i, f := range u.Files {
		if f.BlobKey == "" {
			return fmt.Errorf("file %d (%s) has no blob key", i, f.FieldName)
		}
	}
	return nil
}
