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

package resolve

import (
	"errors"
	"fmt"
	"net/http"
)

// Predefined resolution errors.
var (
	// ErrUnknownProvider is returned when no factory is registered for a name.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnknownScope is returned for a scope outside singleton/request/transient.
	ErrUnknownScope = errors.New("unknown scope")

	// ErrEmptyProviderName is returned when registering with an empty name.
	ErrEmptyProviderName = errors.New("empty provider name")

	// ErrNilFactory is returned when registering a nil factory.
	ErrNilFactory = errors.New("nil factory")

	// ErrNilResolutionContext is returned when request scope is used without
	// a per-request ResolutionContext.
	ErrNilResolutionContext = errors.New("nil resolution context")
)

// DependencyError reports a failed resolution for one declared dependency
// of a route. It carries the requesting route identity and the dependency's
// positional index so the failure can be traced back to the declaration.
type DependencyError struct {
	Route    string // route identity, "Owner.Member" or "METHOD path"
	Index    int    // positional index of the failing dependency
	Provider string // provider identifier
	Err      error  // underlying resolver failure
}

// Error returns a formatted message naming the route and dependency index.
func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %d (%s) of route %s: %v", e.Index, e.Provider, e.Route, e.Err)
}

// Unwrap returns the underlying resolver failure.
func (e *DependencyError) Unwrap() error {
	return e.Err
}

// HTTPStatus implements the errors package ErrorType interface.
func (e *DependencyError) HTTPStatus() int {
	return http.StatusInternalServerError
}

// Code implements the errors package ErrorCode interface.
func (e *DependencyError) Code() string {
	return "dependency_resolution_failed"
}

// Details implements the errors package ErrorDetails interface.
func (e *DependencyError) Details() any {
	return map[string]any{"route": e.Route, "index": e.Index, "provider": e.Provider}
}
