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
	"strings"
)

// RFC9457 formats errors as application/problem+json documents per
// RFC 9457. Problem type URIs are BaseURL plus a slug derived from the
// error code, or "about:blank" when no code is available.
type RFC9457 struct {
	// BaseURL is prepended to problem type slugs.
	BaseURL string

	// StatusResolver overrides status resolution. Nil means ErrorType
	// with a 500 default.
	StatusResolver func(err error) int
}

// NewRFC9457 creates a problem-details formatter rooted at baseURL.
func NewRFC9457(baseURL string) *RFC9457 {
	return &RFC9457{BaseURL: strings.TrimSuffix(baseURL, "/")}
}

// Format converts an error into an RFC 9457 problem document.
func (f *RFC9457) Format(req *http.Request, err error) Response {
	status := StatusOf(err)
	if f.StatusResolver != nil {
		status = f.StatusResolver(err)
	}

	body := map[string]any{
		"type":   f.typeURI(err),
		"title":  http.StatusText(status),
		"status": status,
		"detail": err.Error(),
	}

	if req != nil && req.URL != nil {
		body["instance"] = req.URL.Path
	}

	var detailed ErrorDetails
	if errors.As(err, &detailed) {
		body["errors"] = detailed.Details()
	}

	return Response{
		Status:      status,
		ContentType: "application/problem+json; charset=utf-8",
		Body:        body,
	}
}

func (f *RFC9457) typeURI(err error) string {
	var coded ErrorCode
	if !errors.As(err, &coded) || f.BaseURL == "" {
		return "about:blank"
	}

	slug := strings.ReplaceAll(strings.ToLower(coded.Code()), "_", "-")

	return f.BaseURL + "/" + slug
}
