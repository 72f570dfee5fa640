// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/go-formflow/formflow"
	"github.com/go-formflow/formflow/multipart"
)

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// handleUpload consumes a multipart POST as an ordered event sequence.
// Each event is fully handled (field recorded, file persisted) before
// the next one is requested, so the resulting record reflects the exact
// submission order.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := r.Header.Get("X-Upload-Id")
	if uploadID == "" {
		uploadID = uuid.NewString()
	}

	opts := []formflow.Option{formflow.WithLogger(s.logger)}
	if len(s.fileFields) > 0 {
		opts = append(opts, formflow.WithFileFields(s.fileFields...))
	}

	seq, err := multipart.Sequence(r, s.limits, opts...)
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	upload := &Upload{
		ID:        uploadID,
		CreatedAt: time.Now().UTC(),
	}
	stream := s.streams.GetStream(uploadID)
	fileIndex := 0

	for event, err := range seq.All(r.Context()) {
		if err != nil {
			s.logger.Info("upload parse failed", "upload_id", uploadID, "error", err)
			s.publish(stream, UploadEvent{UploadID: uploadID, Kind: string(formflow.KindFailed), Error: err.Error(), Done: true})
			s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		switch e := event.(type) {
		case *formflow.Field:
			record := FieldRecord{
				Name:      e.Name,
				Value:     e.Value,
				Truncated: e.Info.NameTruncated || e.Info.ValueTruncated,
			}
			upload.Fields = append(upload.Fields, record)
			s.publish(stream, UploadEvent{UploadID: uploadID, Kind: string(formflow.KindField), Field: &record})

		case *formflow.File:
			key := fmt.Sprintf("%s-%d", uploadID, fileIndex)
			fileIndex++

			size, err := s.persistFile(r, key, e.Stream)
			if err != nil {
				s.logger.Error("persist upload file", "upload_id", uploadID, "field", e.Name, "error", err)
				s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store file"})
				return
			}

			record := FileRecord{
				FieldName: e.Name,
				Filename:  e.Info.Filename,
				MIMEType:  e.Info.MIMEType,
				BlobKey:   key,
				Size:      size,
				Truncated: e.Stream.Truncated(),
			}
			upload.Files = append(upload.Files, record)
			s.publish(stream, UploadEvent{UploadID: uploadID, Kind: string(formflow.KindFile), File: &record})

		case *formflow.FieldsLimit, *formflow.FilesLimit, *formflow.PartsLimit:
			upload.LimitsHit = append(upload.LimitsHit, string(event.EventKind()))
			s.publish(stream, UploadEvent{UploadID: uploadID, Kind: string(event.EventKind())})
		}
	}

	if err := upload.Validate(); err != nil {
		verr := NewUploadValidationError(uploadID, err)
		s.logger.Error("upload record invalid", "upload_id", uploadID, "error", verr)
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: verr.Error()})
		return
	}

	if err := s.store.Save(r.Context(), upload); err != nil {
		s.logger.Error("save upload record", "upload_id", uploadID, "error", err)
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to save upload"})
		return
	}

	s.publish(stream, UploadEvent{UploadID: uploadID, Kind: string(formflow.KindCompleted), Done: true})
	s.logger.Info("upload processed",
		"upload_id", uploadID,
		"fields", len(upload.Fields),
		"files", len(upload.Files),
	)
	s.respondJSON(w, http.StatusCreated, upload)
}

// persistFile copies a yielded file stream into the blob store. The
// stream is read to EOF here, before the handler requests the next
// event, which keeps the parser's ordering contract intact.
func (s *Server) persistFile(r *http.Request, key string, stream formflow.FileStream) (int64, error) {
	wc, err := s.blobs.Create(r.Context(), key)
	if err != nil {
		return 0, err
	}

	size, err := io.Copy(wc, stream)
	if cerr := wc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	return size, nil
}

// handleGetUpload serves a stored upload record.
func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	upload, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, upload)
}

// handleListUploads serves all stored upload records.
func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.store.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, uploads)
}

// handleDeleteUpload removes an upload record and its stored blobs.
func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("id")

	upload, err := s.store.Get(r.Context(), uploadID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	for _, file := range upload.Files {
		if err := s.blobs.Remove(r.Context(), file.BlobKey); err != nil {
			s.logger.Debug("remove upload blob", "upload_id", uploadID, "blob_key", file.BlobKey, "error", err)
		}
	}

	if err := s.store.Delete(r.Context(), uploadID); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadEvents serves the SSE progress stream for an upload. The
// connection stays open until the client goes away.
func (s *Server) handleUploadEvents(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("id")

	stream := s.streams.CreateStream(uploadID, w, r)
	if stream == nil {
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	<-r.Context().Done()
	s.streams.CloseStream(uploadID)
}

// publish sends event to stream when one is connected.
func (s *Server) publish(stream *Stream, event UploadEvent) {
	if stream == nil {
		return
	}
	if err := stream.SendEvent(event); err != nil {
		s.logger.Debug("publish upload event", "upload_id", event.UploadID, "error", err)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.MarshalWrite(w, v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	var notFound UploadNotFoundError
	if errors.As(err, &notFound) {
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: notFound.Error()})
		return
	}
	s.logger.Error("upload store", "error", err)
	s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage failure"})
}
