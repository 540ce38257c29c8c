// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Callers classify failures with errors.Is.
var (
	// ErrInvalidInput indicates an input that can never succeed, such as empty text.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransport indicates the network call to the embedding service did not complete.
	ErrTransport = errors.New("transport failure")

	// ErrRemoteRejected indicates the embedding service answered with a non-success status.
	ErrRemoteRejected = errors.New("remote rejected request")

	// ErrMalformedResponse indicates a success response whose body could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrParse indicates a persisted record that could not be parsed.
	ErrParse = errors.New("parse error")

	// ErrShapeMismatch indicates feature vectors of differing dimensionality.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIOFailure indicates a durable sink or source could not be opened, read or written.
	ErrIOFailure = errors.New("io failure")
)

// Record validation errors.
var (
	// ErrEmptyEmbedding indicates a record without any vector components.
	ErrEmptyEmbedding = errors.New("embedding cannot be empty")

	// ErrNonFiniteLabel indicates a NaN or infinite label.
	ErrNonFiniteLabel = errors.New("label must be finite")
)

// StatusError reports a non-success HTTP status from the embedding service.
// It unwraps to ErrRemoteRejected.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", ErrRemoteRejected, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrRemoteRejected, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrRemoteRejected
}

// IsItemError reports whether err is a per-item failure that must not abort a stream or load.
func IsItemError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrRemoteRejected) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrParse)
}
