// Copyright 2025 TripFlow
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

package types

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies a failed specialist operation.
type FailureKind string

const (
	// FailureNotFound indicates an unknown specialist or operation.
	FailureNotFound FailureKind = "not_found"
	// FailureTimeout indicates the call exceeded its deadline.
	FailureTimeout FailureKind = "timeout"
	// FailureTransport indicates a transport-level error (retryable).
	FailureTransport FailureKind = "transport_error"
	// FailureValidation indicates a handler-reported validation error (not retryable).
	FailureValidation FailureKind = "validation_error"
	// FailureRetriesExhausted indicates all retry attempts were used up.
	FailureRetriesExhausted FailureKind = "retries_exhausted"
)

// ErrNotFound is returned when a specialist or operation is not registered.
var ErrNotFound = errors.New("specialist not found")

// TransportError is a transient transport-level failure. The invoker
// retries these with exponential backoff.
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("transport error: %s", e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// NewTransportError creates a TransportError with an optional cause.
func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{Message: message, Cause: cause}
}

// ValidationError is a handler-reported error caused by bad input.
// Retrying cannot change the outcome, so these are never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether an error should be retried by the invoker.
// Transport errors and deadline expiries are retryable; validation errors
// and unknown specialists are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}

// ClassifyFailure maps an invocation error to a FailureKind.
func ClassifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return FailureTimeout
	default:
		var ve *ValidationError
		if errors.As(err, &ve) {
			return FailureValidation
		}
		return FailureTransport
	}
}
