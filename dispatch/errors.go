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

package dispatch

import (
	"fmt"
	"net/http"
)

// AuthenticationRequiredError is raised when a route flags authentication
// as mandatory and the principal extraction rule finds no principal.
type AuthenticationRequiredError struct {
	Route string
}

func (e *AuthenticationRequiredError) Error() string {
	return fmt.Sprintf("route %s requires an authenticated principal", e.Route)
}

func (e *AuthenticationRequiredError) HTTPStatus() int { return http.StatusUnauthorized }

func (e *AuthenticationRequiredError) Code() string { return "authentication_required" }

// HandlerExecutionError wraps a failure raised by the handler or method
// body itself, as opposed to extraction or resolution failures.
type HandlerExecutionError struct {
	Route string
	Err   error
}

func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("route %s: handler failed: %v", e.Route, e.Err)
}

func (e *HandlerExecutionError) Unwrap() error { return e.Err }

func (e *HandlerExecutionError) Code() string { return "handler_execution_failed" }

// MethodNotFoundError reports a declarative route whose resolved owner
// instance lacks the named method. This is a programmer error: the
// compile phase catches it whenever the owner type is declared, so a
// runtime occurrence means a provider produced an instance of an
// unexpected type. It is logged at error level, never retried.
type MethodNotFoundError struct {
	Owner  string
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("type %s has no method %s", e.Owner, e.Method)
}

func (e *MethodNotFoundError) Code() string { return "method_not_found" }

// MissingParameterError is raised when a required parameter's source
// yields no value.
type MissingParameterError struct {
	Route string
	Index int
	Name  string
}

func (e *MissingParameterError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("route %s: required parameter %q at index %d is missing", e.Route, e.Name, e.Index)
	}

	return fmt.Sprintf("route %s: required parameter at index %d is missing", e.Route, e.Index)
}

func (e *MissingParameterError) HTTPStatus() int { return http.StatusBadRequest }

func (e *MissingParameterError) Code() string { return "missing_parameter" }

// MalformedBodyError is raised when the request payload cannot be parsed.
type MalformedBodyError struct {
	Route string
	Err   error
}

func (e *MalformedBodyError) Error() string {
	return fmt.Sprintf("route %s: malformed request body: %v", e.Route, e.Err)
}

func (e *MalformedBodyError) Unwrap() error { return e.Err }

func (e *MalformedBodyError) HTTPStatus() int { return http.StatusBadRequest }

func (e *MalformedBodyError) Code() string { return "malformed_body" }
