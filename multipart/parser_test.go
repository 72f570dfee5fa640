// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"bytes"
	"errors"
	"io"
	mpart "mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-formflow/formflow"
)

// buildForm writes a multipart body and returns it with its boundary.
func buildForm(t *testing.T, build func(w *mpart.Writer)) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := mpart.NewWriter(body)
	build(w)
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, w.Boundary()
}

func formRequest(t *testing.T, build func(w *mpart.Writer)) *http.Request {
	t.Helper()

	body, boundary := buildForm(t, build)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	return req
}

func TestParserFieldAndFileSequence(t *testing.T) {
	t.Parallel()

	body, boundary := buildForm(t, func(w *mpart.Writer) {
		fw, _ := w.CreateFormField("a")
		io.WriteString(fw, "1")
		fw, _ = w.CreateFormFile("b", "b.bin")
		fw.Write([]byte("file-bytes"))
	})

	parser := NewParser(boundary, DefaultLimits())
	seq, err := formflow.New(parser, formflow.NewSource(body))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := t.Context()

	event, err := seq.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	field, ok := event.(*formflow.Field)
	if !ok {
		t.Fatalf("first event = %T, want *formflow.Field", event)
	}
	if field.Name != "a" || field.Value != "1" {
		t.Errorf("field = %s=%s, want a=1", field.Name, field.Value)
	}
	if field.Info.MIMEType != "text/plain" {
		t.Errorf("field MIME type = %s, want text/plain", field.Info.MIMEType)
	}
	if field.Info.Encoding != "7bit" {
		t.Errorf("field encoding = %s, want 7bit", field.Info.Encoding)
	}

	event, err = seq.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	file, ok := event.(*formflow.File)
	if !ok {
		t.Fatalf("second event = %T, want *formflow.File", event)
	}
	if file.Name != "b" || file.Info.Filename != "b.bin" {
		t.Errorf("file = %s/%s, want b/b.bin", file.Name, file.Info.Filename)
	}
	if file.Info.MIMEType != "application/octet-stream" {
		t.Errorf("file MIME type = %s, want application/octet-stream", file.Info.MIMEType)
	}

	content, err := io.ReadAll(file.Stream)
	if err != nil {
		t.Fatalf("read file stream: %v", err)
	}
	if got := string(content); got != "file-bytes" {
		t.Errorf("file content = %q, want %q", got, "file-bytes")
	}
	if file.Stream.Truncated() {
		t.Errorf("uncapped file should not report truncation")
	}

	if _, err := seq.Next(ctx); !errors.Is(err, formflow.ErrDone) {
		t.Errorf("Next() after final part error = %v, want %v", err, formflow.ErrDone)
	}
}

func TestParserFieldTruncation(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("n", 12)
	longValue := strings.Repeat("v", 40)

	body, boundary := buildForm(t, func(w *mpart.Writer) {
		fw, _ := w.CreateFormField(longName)
		io.WriteString(fw, longValue)
	})

	limits := Limits{MaxFieldNameSize: 8, MaxFieldSize: 16}
	parser := NewParser(boundary, limits)
	seq, err := formflow.New(parser, formflow.NewSource(body))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	event, err := seq.Next(t.Context())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	field := event.(*formflow.Field)

	if want := longName[:8]; field.Name != want {
		t.Errorf("field name = %q, want %q", field.Name, want)
	}
	if !field.Info.NameTruncated {
		t.Errorf("NameTruncated = false, want true")
	}
	if want := longValue[:16]; field.Value != want {
		t.Errorf("field value = %q, want %q", field.Value, want)
	}
	if !field.Info.ValueTruncated {
		t.Errorf("ValueTruncated = false, want true")
	}

	if err := seq.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestParserFileSizeCap(t *testing.T) {
	t.Parallel()

	body, boundary := buildForm(t, func(w *mpart.Writer) {
		fw, _ := w.CreateFormFile("big", "big.bin")
		fw.Write(bytes.Repeat([]byte("x"), 64))
		fw, _ = w.CreateFormField("after")
		io.WriteString(fw, "still-here")
	})

	parser := NewParser(boundary, Limits{MaxFileSize: 16})
	seq, err := formflow.New(parser, formflow.NewSource(body))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := t.Context()

	event, err := seq.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	file := event.(*formflow.File)

	content, err := io.ReadAll(file.Stream)
	if err != nil {
		t.Fatalf("read capped stream: %v", err)
	}
	if len(content) != 16 {
		t.Errorf("capped stream yielded %d bytes, want 16", len(content))
	}
	if !file.Stream.Truncated() {
		t.Errorf("Truncated() = false after reading a cut stream, want true")
	}

	// Parsing continues past the cut file.
	event, err = seq.Next(ctx)
	if err != nil {
		t.Fatalf("Next() after capped file error = %v", err)
	}
	field := event.(*formflow.Field)
	if field.Name != "after" || field.Value != "still-here" {
		t.Errorf("field = %s=%s, want after=still-here", field.Name, field.Value)
	}

	if _, err := seq.Next(ctx); !errors.Is(err, formflow.ErrDone) {
		t.Errorf("Next() at end error = %v, want %v", err, formflow.ErrDone)
	}
}

func TestParserLimitEvents(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		limits Limits
		want   []formflow.Kind
	}{
		"fields limit": {
			limits: Limits{MaxFields: 1},
			want: []formflow.Kind{
				formflow.KindField,
				formflow.KindFieldsLimit,
				formflow.KindFile,
				formflow.KindFile,
			},
		},
		"files limit": {
			limits: Limits{MaxFiles: 1},
			want: []formflow.Kind{
				formflow.KindField,
				formflow.KindField,
				formflow.KindFile,
				formflow.KindFilesLimit,
			},
		},
		"parts limit": {
			limits: Limits{MaxParts: 2},
			want: []formflow.Kind{
				formflow.KindField,
				formflow.KindField,
				formflow.KindPartsLimit,
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			body, boundary := buildForm(t, func(w *mpart.Writer) {
				fw, _ := w.CreateFormField("f1")
				io.WriteString(fw, "1")
				fw, _ = w.CreateFormField("f2")
				io.WriteString(fw, "2")
				fw, _ = w.CreateFormFile("g1", "g1.bin")
				fw.Write([]byte("a"))
				fw, _ = w.CreateFormFile("g2", "g2.bin")
				fw.Write([]byte("b"))
			})

			parser := NewParser(boundary, tt.limits)
			seq, err := formflow.New(parser, formflow.NewSource(body))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			var got []formflow.Kind
			for event, err := range seq.All(t.Context()) {
				if err != nil {
					t.Fatalf("All() yielded error: %v", err)
				}
				got = append(got, event.EventKind())
				if file, ok := event.(*formflow.File); ok {
					file.Stream.Close()
				}
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("event kinds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParserMalformedBody(t *testing.T) {
	t.Parallel()

	body := strings.NewReader("--boundary\r\nnot a header\r\n")
	parser := NewParser("boundary", DefaultLimits())
	seq, err := formflow.New(parser, formflow.NewSource(body))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var gotErr error
	for _, err := range seq.All(t.Context()) {
		if err != nil {
			gotErr = err
		}
	}

	if gotErr == nil {
		t.Fatalf("malformed body should surface a terminal error")
	}
	if !parser.Finished() {
		t.Errorf("parser should be finished after a terminal error")
	}
}

func TestParserAbandonedFileStream(t *testing.T) {
	t.Parallel()

	body, boundary := buildForm(t, func(w *mpart.Writer) {
		fw, _ := w.CreateFormFile("f", "f.bin")
		fw.Write(bytes.Repeat([]byte("z"), 1024))
		fw, _ = w.CreateFormField("tail")
		io.WriteString(fw, "t")
	})

	parser := NewParser(boundary, DefaultLimits())
	seq, err := formflow.New(parser, formflow.NewSource(body))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Break without touching the file stream. Teardown must close it and
	// unblock the parser; nothing may hang.
	var file *formflow.File
	for event, err := range seq.All(t.Context()) {
		if err != nil {
			t.Fatalf("All() yielded error: %v", err)
		}
		file = event.(*formflow.File)
		break
	}

	if file == nil {
		t.Fatalf("no file event was yielded")
	}
	if _, err := file.Stream.Read(make([]byte, 1)); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Read() after teardown error = %v, want %v", err, ErrStreamClosed)
	}
	if got := parser.ListenerCount(); got != 0 {
		t.Errorf("ListenerCount() after teardown = %d, want 0", got)
	}
}

func TestParserFilteredFileDoesNotStall(t *testing.T) {
	t.Parallel()

	req := formRequest(t, func(w *mpart.Writer) {
		fw, _ := w.CreateFormFile("ignored", "noise.bin")
		fw.Write(bytes.Repeat([]byte("n"), 2048))
		fw, _ = w.CreateFormField("kept")
		io.WriteString(fw, "value")
	})

	seq, err := Sequence(req, DefaultLimits(), formflow.WithFileFields("image"))
	if err != nil {
		t.Fatalf("Sequence() error = %v", err)
	}

	var got []string
	for event, err := range seq.All(t.Context()) {
		if err != nil {
			t.Fatalf("All() yielded error: %v", err)
		}
		if field, ok := event.(*formflow.Field); ok {
			got = append(got, field.Name+"="+field.Value)
		} else {
			t.Errorf("unexpected event kind %s", event.EventKind())
		}
	}

	if diff := cmp.Diff([]string{"kept=value"}, got); diff != "" {
		t.Errorf("yielded events mismatch (-want +got):\n%s", diff)
	}
}

func TestFromRequest(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		contentType string
		wantErr     error
	}{
		"multipart with boundary": {
			contentType: `multipart/form-data; boundary="xyz"`,
			wantErr:     nil,
		},
		"not multipart": {
			contentType: "application/json",
			wantErr:     ErrNotMultipart,
		},
		"missing boundary": {
			contentType: "multipart/form-data",
			wantErr:     ErrMissingBoundary,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
			req.Header.Set("Content-Type", tt.contentType)

			_, err := FromRequest(req, DefaultLimits())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FromRequest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
