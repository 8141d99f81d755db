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

package validation

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrValidation is a sentinel for validation failures.
// Use errors.Is(err, ErrValidation) to detect them.
var ErrValidation = errors.New("validation")

// FieldError is a single validation failure for one field path.
type FieldError struct {
	Path    string         `json:"path"`           // field path, e.g. "items.2.price" or "b"
	Code    string         `json:"code"`           // stable machine code, e.g. "schema.required"
	Message string         `json:"message"`        // human-readable reason
	Meta    map[string]any `json:"meta,omitempty"` // extra context (schema kind, tag, ...)
}

// Error formats the failure as "path: message".
func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap returns ErrValidation for errors.Is compatibility.
func (e FieldError) Unwrap() error {
	return ErrValidation
}

// Error collects validation failures for one value.
// It implements error and the errors package ErrorType/ErrorCode/ErrorDetails
// interfaces so the default error handler renders it as a 422 with details.
//
//nolint:recvcheck // error interface needs a value receiver, mutators need a pointer
type Error struct {
	Fields []FieldError `json:"errors"`
}

// Error returns all field failures joined with "; ".
func (v Error) Error() string {
	switch len(v.Fields) {
	case 0:
		return ""
	case 1:
		return v.Fields[0].Error()
	}

	msgs := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		msgs = append(msgs, f.Error())
	}

	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrValidation for errors.Is compatibility.
func (v Error) Unwrap() error {
	return ErrValidation
}

// HTTPStatus maps validation failures to 422 Unprocessable Entity.
func (v Error) HTTPStatus() int {
	return http.StatusUnprocessableEntity
}

// Code returns the stable error code for formatted responses.
func (v Error) Code() string {
	return "validation_error"
}

// Details exposes the field failures for structured error bodies.
func (v Error) Details() any {
	return v.Fields
}

// Add appends one field failure.
func (v *Error) Add(path, code, message string, meta map[string]any) {
	v.Fields = append(v.Fields, FieldError{Path: path, Code: code, Message: message, Meta: meta})
}

// Has reports whether the given field path failed.
func (v Error) Has(path string) bool {
	for _, f := range v.Fields {
		if f.Path == path {
			return true
		}
	}

	return false
}

// Sort orders failures by path then code for stable presentation.
func (v *Error) Sort() {
	sort.Slice(v.Fields, func(i, j int) bool {
		if v.Fields[i].Path != v.Fields[j].Path {
			return v.Fields[i].Path < v.Fields[j].Path
		}

		return v.Fields[i].Code < v.Fields[j].Code
	})
}
