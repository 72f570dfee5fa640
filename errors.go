// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package formflow

import "errors"

var (
	// ErrDone is returned by [Sequencer.Next] once the sequence has ended,
	// whether by normal completion, producer failure, or early close.
	ErrDone = errors.New("event sequence is done")

	// ErrNilProducer is returned when attempting to create a sequencer
	// without a producer.
	ErrNilProducer = errors.New("producer cannot be nil")
)
