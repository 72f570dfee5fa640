// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package formflow adapts push-based multipart form parsers to an
// ordered, pull-based consumption model.
//
// A push-based parser emits discrete events (field values, file streams,
// limit notifications, completion, errors) as it consumes a byte stream,
// regardless of consumer pace. A consumer that needs to do sequential
// work per event, such as uploading a file and then updating a record,
// cannot cleanly express "finish handling event N before event N+1
// arrives" in that model. This package bridges the gap with an event
// queue plus a wake gate: the producer appends, the consumer advances,
// and the two never race.
//
// # Architecture
//
// The package consists of three main components:
//
//   - Event types: Field, File, FieldsLimit, FilesLimit and PartsLimit
//     are yielded to consumers; Completed and Failed terminate the
//     sequence internally.
//
//   - Producer and Source: the contracts a push-based parser and its
//     byte stream must satisfy. The formflow/multipart package provides
//     the implementation for multipart/form-data bodies.
//
//   - Sequencer: subscribes to every producer event kind, buffers events
//     in arrival order, and yields them one at a time via Next or a
//     range-over-func iterator. Teardown runs exactly once on every exit
//     path and releases listeners, the piped source, all delivered file
//     streams, and the producer itself.
//
// # Usage
//
//	parser := multipart.NewParser(boundary, multipart.DefaultLimits())
//	seq, err := formflow.New(parser, formflow.NewSource(body))
//	if err != nil {
//	    return err
//	}
//	for event, err := range seq.All(ctx) {
//	    if err != nil {
//	        return err // producer failure, teardown already ran
//	    }
//	    switch e := event.(type) {
//	    case *formflow.Field:
//	        // handle field
//	    case *formflow.File:
//	        // read e.Stream to EOF or close it before the next event
//	    }
//	}
//
// Consumers must read or close every yielded file stream before
// requesting the next event; an untouched stream stalls the underlying
// parser. Streams still open when the sequence ends are closed during
// teardown.
package formflow
