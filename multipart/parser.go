// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package multipart provides the push-based multipart/form-data producer
// for formflow sequencers.
//
// Boundary scanning and part header parsing are delegated to the standard
// library's mime/multipart reader; this package wraps them into the
// [formflow.Producer] contract: a run loop emits one event per form
// field, hands file parts out as consumer-paced streams, enforces the
// configured limits, and terminates with exactly one Completed or Failed
// event.
package multipart

import (
	"fmt"
	"io"
	"mime"
	mpart "mime/multipart"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-formflow/formflow"
	"github.com/go-formflow/formflow/internal/pool"
)

// Default limits applied by [DefaultLimits].
const (
	// DefaultMaxFieldNameSize is the default cap on field name length.
	DefaultMaxFieldNameSize = 100

	// DefaultMaxFieldSize is the default cap on field value length.
	DefaultMaxFieldSize = 1 << 20
)

// Part metadata defaults for headers the client did not send.
const (
	defaultFieldMIMEType = "text/plain"
	defaultFileMIMEType  = "application/octet-stream"
	defaultEncoding      = "7bit"
)

// Limits configures the parser's resource caps. The zero value of any
// limit means uncapped.
type Limits struct {
	// MaxFieldNameSize caps field name length in bytes; longer names are
	// truncated and flagged.
	MaxFieldNameSize int

	// MaxFieldSize caps field value length in bytes; longer values are
	// truncated and flagged.
	MaxFieldSize int64

	// MaxFields caps the number of non-file fields; once exceeded a
	// single FieldsLimit event is emitted and further fields are skipped.
	MaxFields int

	// MaxFileSize caps the byte length of each file; longer files are cut
	// at the cap and their stream reports Truncated.
	MaxFileSize int64

	// MaxFiles caps the number of files; once exceeded a single
	// FilesLimit event is emitted and further files are skipped.
	MaxFiles int

	// MaxParts caps the total number of parts; once exceeded a single
	// PartsLimit event is emitted and parsing stops.
	MaxParts int
}

// DefaultLimits returns the limits applied when callers have no opinion:
// capped field names and values, everything else uncapped.
func DefaultLimits() Limits {
	return Limits{
		MaxFieldNameSize: DefaultMaxFieldNameSize,
		MaxFieldSize:     DefaultMaxFieldSize,
	}
}

// Parser is a push-based multipart/form-data producer.
//
// Pipe starts a single run goroutine that walks the body's parts and
// emits events to subscribed listeners. A Parser is single-use: one
// boundary, one source, one terminal event.
type Parser struct {
	boundary string
	limits   Limits

	mu        sync.Mutex
	listeners map[formflow.Kind]map[int]func(formflow.Event)
	nextID    int
	source    formflow.Source
	started   bool
	finished  bool
	destroyed bool
	current   *fileStream

	unpiped atomic.Bool
	ended   atomic.Bool
}

var _ formflow.Producer = (*Parser)(nil)

// NewParser creates a parser for a body delimited by boundary.
func NewParser(boundary string, limits Limits) *Parser {
	return &Parser{
		boundary:  boundary,
		limits:    limits,
		listeners: make(map[formflow.Kind]map[int]func(formflow.Event)),
	}
}

// FromRequest creates a parser for req's body, taking the boundary from
// its Content-Type header.
func FromRequest(req *http.Request, limits Limits) (*Parser, error) {
	mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parse content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, ErrNotMultipart
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil, ErrMissingBoundary
	}

	return NewParser(boundary, limits), nil
}

// Sequence creates a sequencer over req's multipart body. It is the
// one-call path from an [*http.Request] to an ordered event sequence.
func Sequence(req *http.Request, limits Limits, opts ...formflow.Option) (*formflow.Sequencer, error) {
	parser, err := FromRequest(req, limits)
	if err != nil {
		return nil, err
	}

	return formflow.New(parser, formflow.NewSource(req.Body), opts...)
}

// Subscribe implements [formflow.Producer].
func (p *Parser) Subscribe(kind formflow.Kind, fn func(formflow.Event)) (cancel func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listeners[kind] == nil {
		p.listeners[kind] = make(map[int]func(formflow.Event))
	}
	id := p.nextID
	p.nextID++
	p.listeners[kind][id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners[kind], id)
	}
}

// ListenerCount implements [formflow.Producer].
func (p *Parser) ListenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, fns := range p.listeners {
		count += len(fns)
	}
	return count
}

// Pipe implements [formflow.Producer]. The first call starts the run
// goroutine; later calls are ignored.
func (p *Parser) Pipe(src formflow.Source) {
	p.mu.Lock()
	if p.started || src == nil {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.source = src
	p.mu.Unlock()

	go p.run()
}

// Unpipe implements [formflow.Producer]. Subsequent reads of the source
// report end-of-input.
func (p *Parser) Unpipe() {
	p.unpiped.Store(true)
}

// End implements [formflow.Producer].
func (p *Parser) End() {
	p.ended.Store(true)
}

// Destroy implements [formflow.Producer]. A destroyed parser stops
// reading, unblocks any in-flight file stream, and emits nothing further.
func (p *Parser) Destroy(err error) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	p.finished = true
	current := p.current
	p.mu.Unlock()

	p.unpiped.Store(true)
	if current != nil {
		_ = current.Close()
	}
}

// Finished implements [formflow.Producer].
func (p *Parser) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}

// run walks the body's parts and emits events until the final boundary,
// a parse error, or destruction.
func (p *Parser) run() {
	reader := mpart.NewReader(pipeReader{p}, p.boundary)

	var fields, files, parts int
	var fieldsLimitHit, filesLimitHit bool

	for {
		if p.isDestroyed() {
			return
		}

		part, err := reader.NextPart()
		if err == io.EOF {
			p.finish(nil)
			return
		}
		if err != nil {
			p.finish(fmt.Errorf("read part: %w", err))
			return
		}

		parts++
		if p.limits.MaxParts > 0 && parts > p.limits.MaxParts {
			p.emit(&formflow.PartsLimit{})
			p.finish(nil)
			return
		}

		name, nameTruncated := p.fieldName(part)

		if part.FileName() == "" {
			if p.limits.MaxFields > 0 && fields >= p.limits.MaxFields {
				if !fieldsLimitHit {
					fieldsLimitHit = true
					p.emit(&formflow.FieldsLimit{})
				}
				continue
			}
			fields++

			value, valueTruncated, err := readField(part, p.limits.MaxFieldSize)
			if err != nil {
				p.finish(fmt.Errorf("read field %q: %w", name, err))
				return
			}
			p.emit(&formflow.Field{
				Name:  name,
				Value: value,
				Info: formflow.FieldInfo{
					Encoding:       partEncoding(part),
					MIMEType:       partMIMEType(part, defaultFieldMIMEType),
					NameTruncated:  nameTruncated,
					ValueTruncated: valueTruncated,
				},
			})
			continue
		}

		if p.limits.MaxFiles > 0 && files >= p.limits.MaxFiles {
			if !filesLimitHit {
				filesLimitHit = true
				p.emit(&formflow.FilesLimit{})
			}
			continue
		}
		files++

		stream := newFileStream(part, p.limits.MaxFileSize)
		p.setCurrent(stream)
		p.emit(&formflow.File{
			Name:   name,
			Stream: stream,
			Info: formflow.FileInfo{
				Encoding: partEncoding(part),
				MIMEType: partMIMEType(part, defaultFileMIMEType),
				Filename: part.FileName(),
			},
		})

		// The part reader is shared with the consumer; do not touch it
		// again until the stream is read out, cut, or closed.
		<-stream.done
		p.setCurrent(nil)
	}
}

// finish records the terminal state and emits the terminal event.
func (p *Parser) finish(err error) {
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.finished = true
	p.mu.Unlock()

	if err != nil {
		p.emit(&formflow.Failed{Err: err})
		return
	}
	p.emit(&formflow.Completed{})
}

// emit delivers event to the listeners registered for its kind.
func (p *Parser) emit(event formflow.Event) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	fns := make([]func(formflow.Event), 0, len(p.listeners[event.EventKind()]))
	for _, fn := range p.listeners[event.EventKind()] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

func (p *Parser) isDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

func (p *Parser) setCurrent(stream *fileStream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = stream
}

// fieldName returns the part's form field name, truncated at the
// configured cap.
func (p *Parser) fieldName(part *mpart.Part) (string, bool) {
	name := part.FormName()
	if p.limits.MaxFieldNameSize > 0 && len(name) > p.limits.MaxFieldNameSize {
		return name[:p.limits.MaxFieldNameSize], true
	}
	return name, false
}

// readField reads a field value up to maxSize bytes. Bytes beyond the cap
// are left for the boundary scan to discard; the value is flagged as
// truncated.
func readField(part *mpart.Part, maxSize int64) (string, bool, error) {
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)

	if maxSize <= 0 {
		if _, err := io.Copy(buf, part); err != nil {
			return "", false, err
		}
		return buf.String(), false, nil
	}

	n, err := io.Copy(buf, io.LimitReader(part, maxSize+1))
	if err != nil {
		return "", false, err
	}
	if n > maxSize {
		return buf.String()[:maxSize], true, nil
	}
	return buf.String(), false, nil
}

func partEncoding(part *mpart.Part) string {
	if enc := part.Header.Get("Content-Transfer-Encoding"); enc != "" {
		return enc
	}
	return defaultEncoding
}

func partMIMEType(part *mpart.Part, fallback string) string {
	if ct := part.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
	}
	return fallback
}

// pipeReader is the byte source the multipart reader consumes. It reports
// end-of-input once the parser is unpiped, ended, or destroyed.
type pipeReader struct {
	p *Parser
}

// Read implements [io.Reader].
func (r pipeReader) Read(b []byte) (int, error) {
	if r.p.unpiped.Load() || r.p.ended.Load() {
		return 0, io.EOF
	}
	return r.p.source.Read(b)
}
