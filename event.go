// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package formflow

import (
	"fmt"
)

// Kind identifies the type of an [Event].
type Kind string

// Event kinds emitted by a [Producer].
const (
	// KindField is emitted for every non-file form field.
	KindField Kind = "field"

	// KindFile is emitted for every file-carrying form field.
	KindFile Kind = "file"

	// KindFieldsLimit is emitted once when the configured field count cap is hit.
	KindFieldsLimit Kind = "fields_limit"

	// KindFilesLimit is emitted once when the configured file count cap is hit.
	KindFilesLimit Kind = "files_limit"

	// KindPartsLimit is emitted once when the configured part count cap is hit.
	KindPartsLimit Kind = "parts_limit"

	// KindCompleted is emitted when the producer finishes normally.
	// It terminates the sequence and is never yielded to consumers.
	KindCompleted Kind = "completed"

	// KindFailed is emitted when the producer raises an error.
	// It terminates the sequence and is never yielded to consumers;
	// its error surfaces as the sequence's terminal failure.
	KindFailed Kind = "failed"
)

// Event represents a unified interface for all event types flowing from a
// [Producer] to a [Sequencer]. Concrete types are [Field], [File],
// [FieldsLimit], [FilesLimit], [PartsLimit], [Completed] and [Failed].
type Event interface {
	// EventKind returns the kind of the event for type discrimination.
	EventKind() Kind

	// String returns a string representation of the event.
	String() string
}

// FieldInfo carries the per-field metadata reported by the producer.
type FieldInfo struct {
	// Encoding is the Content-Transfer-Encoding of the field part.
	Encoding string `json:"encoding,omitempty"`

	// MIMEType is the declared content type of the field part.
	MIMEType string `json:"mime_type,omitempty"`

	// NameTruncated reports whether the field name was cut at the
	// configured name size cap.
	NameTruncated bool `json:"name_truncated,omitempty"`

	// ValueTruncated reports whether the field value was cut at the
	// configured value size cap.
	ValueTruncated bool `json:"value_truncated,omitempty"`
}

// Field is the event emitted for a completed non-file form field.
type Field struct {
	// Name is the form field name.
	Name string `json:"name"`

	// Value is the decoded field value.
	Value string `json:"value"`

	// Info holds the field metadata.
	Info FieldInfo `json:"info"`
}

var _ Event = (*Field)(nil)

// EventKind returns [KindField].
func (f *Field) EventKind() Kind { return KindField }

// String returns a string representation of the Field event.
func (f *Field) String() string {
	return fmt.Sprintf("Field{Name: %s, Value: %.50s}", f.Name, f.Value)
}

// FileInfo carries the per-file metadata reported by the producer.
type FileInfo struct {
	// Encoding is the Content-Transfer-Encoding of the file part.
	Encoding string `json:"encoding,omitempty"`

	// MIMEType is the declared content type of the file part.
	MIMEType string `json:"mime_type,omitempty"`

	// Filename is the client-supplied file name, unsanitized.
	Filename string `json:"filename,omitempty"`
}

// File is the event emitted when a file-carrying form field begins.
//
// Ownership of Stream passes to the consumer at the moment the event is
// yielded. The consumer must read Stream to EOF or close it before
// requesting the next event; an untouched stream stalls the producer.
// Streams left open when the sequence ends are closed during teardown.
type File struct {
	// Name is the form field name.
	Name string `json:"name"`

	// Stream is the readable handle for the file bytes.
	Stream FileStream `json:"-"`

	// Info holds the file metadata.
	Info FileInfo `json:"info"`
}

var _ Event = (*File)(nil)

// EventKind returns [KindFile].
func (f *File) EventKind() Kind { return KindFile }

// String returns a string representation of the File event.
func (f *File) String() string {
	return fmt.Sprintf("File{Name: %s, Filename: %s}", f.Name, f.Info.Filename)
}

// FieldsLimit is the event emitted once when the producer's field count cap
// is reached. It carries no payload; whether to keep consuming is consumer
// policy.
type FieldsLimit struct{}

var _ Event = (*FieldsLimit)(nil)

// EventKind returns [KindFieldsLimit].
func (*FieldsLimit) EventKind() Kind { return KindFieldsLimit }

// String returns a string representation of the FieldsLimit event.
func (*FieldsLimit) String() string { return "FieldsLimit{}" }

// FilesLimit is the event emitted once when the producer's file count cap
// is reached.
type FilesLimit struct{}

var _ Event = (*FilesLimit)(nil)

// EventKind returns [KindFilesLimit].
func (*FilesLimit) EventKind() Kind { return KindFilesLimit }

// String returns a string representation of the FilesLimit event.
func (*FilesLimit) String() string { return "FilesLimit{}" }

// PartsLimit is the event emitted once when the producer's part count cap
// is reached.
type PartsLimit struct{}

var _ Event = (*PartsLimit)(nil)

// EventKind returns [KindPartsLimit].
func (*PartsLimit) EventKind() Kind { return KindPartsLimit }

// String returns a string representation of the PartsLimit event.
func (*PartsLimit) String() string { return "PartsLimit{}" }

// Completed is the terminal event emitted when the producer finishes
// normally. Producers emit it exactly once, after every other event; the
// [Sequencer] consumes it internally and ends the sequence without yielding
// it.
type Completed struct{}

var _ Event = (*Completed)(nil)

// EventKind returns [KindCompleted].
func (*Completed) EventKind() Kind { return KindCompleted }

// String returns a string representation of the Completed event.
func (*Completed) String() string { return "Completed{}" }

// Failed is the terminal event emitted when the producer raises an error.
// Producers emit it exactly once, after every other event; the [Sequencer]
// consumes it internally and propagates Err as the sequence's terminal
// failure.
type Failed struct {
	// Err is the producer error.
	Err error
}

var _ Event = (*Failed)(nil)

// EventKind returns [KindFailed].
func (f *Failed) EventKind() Kind { return KindFailed }

// String returns a string representation of the Failed event.
func (f *Failed) String() string {
	return fmt.Sprintf("Failed{Err: %v}", f.Err)
}

// IsTerminalEvent reports whether event ends the sequence.
// Terminal events are [Completed] and [Failed]; a producer must never emit
// anything after one.
func IsTerminalEvent(event Event) bool {
	if event == nil {
		return false
	}

	switch event.(type) {
	case *Completed, *Failed:
		return true
	default:
		return false
	}
}
