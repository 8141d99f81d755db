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

package compiler

import (
	"errors"
	"fmt"
)

// ErrMisconfigured is the category sentinel for every startup-time
// compilation failure. errors.Is(err, ErrMisconfigured) holds for all
// MisconfigurationError values.
var ErrMisconfigured = errors.New("route misconfigured")

// MisconfigurationError reports a route declaration the compiler refuses.
// Compilation failures abort startup; they are never surfaced per request.
type MisconfigurationError struct {
	Route  string // identity key, empty for store-level failures
	Reason string
	Err    error
}

func (e *MisconfigurationError) Error() string {
	if e.Route == "" {
		return fmt.Sprintf("route compilation: %s", e.Reason)
	}

	return fmt.Sprintf("route %s: %s", e.Route, e.Reason)
}

func (e *MisconfigurationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}

	return ErrMisconfigured
}

// Is lets errors.Is match the category sentinel even when a cause is
// wrapped.
func (e *MisconfigurationError) Is(target error) bool {
	return target == ErrMisconfigured
}

func misconfigured(route, format string, args ...any) *MisconfigurationError {
	return &MisconfigurationError{Route: route, Reason: fmt.Sprintf(format, args...)}
}
