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

package errors

import (
	"errors"
	"net/http"
)

// Simple formats errors as flat JSON objects:
//
//	{"error": "message", "code": "...", "details": {...}, "correlation_id": "..."}
//
// code and details appear only when the error implements ErrorCode or
// ErrorDetails. The correlation id is taken from the request's
// X-Correlation-ID or X-Request-ID header so clients can quote it in
// support requests.
type Simple struct {
	// StatusResolver overrides status resolution. Nil means ErrorType
	// with a 500 default.
	StatusResolver func(err error) int
}

// NewSimple creates the default JSON formatter.
func NewSimple() *Simple {
	return &Simple{}
}

// Format converts an error into a flat JSON response.
func (f *Simple) Format(req *http.Request, err error) Response {
	status := StatusOf(err)
	if f.StatusResolver != nil {
		status = f.StatusResolver(err)
	}

	body := map[string]any{
		"error": err.Error(),
	}

	var coded ErrorCode
	if errors.As(err, &coded) {
		body["code"] = coded.Code()
	}

	var detailed ErrorDetails
	if errors.As(err, &detailed) {
		body["details"] = detailed.Details()
	}

	if req != nil {
		cid := req.Header.Get("X-Correlation-ID")
		if cid == "" {
			cid = req.Header.Get("X-Request-ID")
		}
		if cid != "" {
			body["correlation_id"] = cid
		}
	}

	return Response{
		Status:      status,
		ContentType: "application/json; charset=utf-8",
		Body:        body,
	}
}
