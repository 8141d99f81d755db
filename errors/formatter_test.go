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
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDomainError struct {
	msg    string
	status int
	code   string
	fields any
}

func (e fakeDomainError) Error() string   { return e.msg }
func (e fakeDomainError) HTTPStatus() int { return e.status }
func (e fakeDomainError) Code() string    { return e.code }
func (e fakeDomainError) Details() any    { return e.fields }

func TestSimpleFormatsPlainError(t *testing.T) {
	resp := NewSimple().Format(httptest.NewRequest("GET", "/x", nil), stderrors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "application/json; charset=utf-8", resp.ContentType)

	body, ok := resp.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boom", body["error"])
	assert.NotContains(t, body, "code")
	assert.NotContains(t, body, "details")
}

func TestSimpleUsesDomainErrorInterfaces(t *testing.T) {
	err := fakeDomainError{
		msg: "invalid input", status: 422,
		code: "validation_error", fields: []string{"name is required"},
	}
	resp := NewSimple().Format(nil, err)

	assert.Equal(t, 422, resp.Status)
	body := resp.Body.(map[string]any)
	assert.Equal(t, "validation_error", body["code"])
	assert.Equal(t, []string{"name is required"}, body["details"])
}

func TestSimpleIncludesCorrelationID(t *testing.T) {
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")

	resp := NewSimple().Format(req, stderrors.New("boom"))
	assert.Equal(t, "abc-123", resp.Body.(map[string]any)["correlation_id"])
}

func TestSimpleStatusResolverOverrides(t *testing.T) {
	f := &Simple{StatusResolver: func(error) int { return http.StatusTeapot }}
	resp := f.Format(nil, stderrors.New("boom"))
	assert.Equal(t, http.StatusTeapot, resp.Status)
}

func TestWithStatus(t *testing.T) {
	err := WithStatus(stderrors.New("gone"), http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Equal(t, "gone", err.Error())

	nilWrapped := WithStatus(nil, http.StatusConflict)
	assert.Equal(t, http.StatusText(http.StatusConflict), nilWrapped.Error())
	assert.Equal(t, http.StatusConflict, StatusOf(nilWrapped))
}

func TestWithStatusUnwraps(t *testing.T) {
	sentinel := stderrors.New("base")
	err := WithStatus(sentinel, http.StatusBadRequest)
	assert.True(t, stderrors.Is(err, sentinel))
}

func TestRFC9457Format(t *testing.T) {
	f := NewRFC9457("https://api.example.com/problems/")
	err := fakeDomainError{msg: "invalid input", status: 422, code: "validation_error"}

	resp := f.Format(httptest.NewRequest("GET", "/items/1", nil), err)

	assert.Equal(t, 422, resp.Status)
	assert.Equal(t, "application/problem+json; charset=utf-8", resp.ContentType)

	body := resp.Body.(map[string]any)
	assert.Equal(t, "https://api.example.com/problems/validation-error", body["type"])
	assert.Equal(t, http.StatusText(422), body["title"])
	assert.Equal(t, 422, body["status"])
	assert.Equal(t, "invalid input", body["detail"])
	assert.Equal(t, "/items/1", body["instance"])
}

func TestRFC9457BlankTypeWithoutCode(t *testing.T) {
	resp := NewRFC9457("https://api.example.com/problems").Format(nil, stderrors.New("boom"))
	assert.Equal(t, "about:blank", resp.Body.(map[string]any)["type"])
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}
