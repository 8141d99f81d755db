// Copyright 2025 The Armature Authors
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

// Package errors formats request-time failures into HTTP responses.
// Every dispatch failure funnels to exactly one Formatter, which decides
// status and body; nothing else in the framework writes error responses.
//
// Domain errors steer formatting by implementing the small optional
// interfaces ErrorType, ErrorCode, and ErrorDetails.
package errors

import (
	"errors"
	"net/http"
)

// Formatter converts an error into HTTP response components. The
// dispatcher calls it once per failed request, after which the response
// is committed and no further writes occur.
type Formatter interface {
	Format(req *http.Request, err error) Response
}

// Response is a formatted error ready to be written.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is marshaled as the response payload.
	Body any

	// Headers holds additional response headers, optional.
	Headers http.Header
}

// ErrorType lets a domain error declare its own HTTP status code.
// Errors without it format as 500.
type ErrorType interface {
	error
	HTTPStatus() int
}

// ErrorCode lets a domain error expose a machine-readable code, included
// in the body when present.
type ErrorCode interface {
	error
	Code() string
}

// ErrorDetails lets a domain error expose structured detail, such as
// field-level validation failures.
type ErrorDetails interface {
	error
	Details() any
}

// WithStatus wraps an error with an explicit HTTP status. When err is
// nil the status text becomes the message.
func WithStatus(err error, status int) error {
	return &statusError{err: err, status: status}
}

type statusError struct {
	err    error
	status int
}

func (e *statusError) Error() string {
	if e.err == nil {
		return http.StatusText(e.status)
	}

	return e.err.Error()
}

func (e *statusError) Unwrap() error { return e.err }

func (e *statusError) HTTPStatus() int { return e.status }

// StatusOf resolves the HTTP status for an error through the ErrorType
// interface, defaulting to 500.
func StatusOf(err error) int {
	var typed ErrorType
	if errors.As(err, &typed) {
		return typed.HTTPStatus()
	}

	return http.StatusInternalServerError
}
