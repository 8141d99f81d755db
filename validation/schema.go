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

// Package validation validates extracted request parameters before they are
// handed to route handlers. Two strategies are provided: JSON Schema
// documents (for bodies and structured values) and struct/var tag rules
// (for typed Go values). Both report failures as [Error] values carrying
// the offending field path.
package validation

import "context"

// Schema validates a single extracted parameter value.
//
// Validate returns the possibly coerced value on success: a JSON Schema
// applied to raw body bytes returns the decoded document, so handlers see
// structured data rather than bytes. On failure the returned error is an
// [*Error] naming the offending field path.
type Schema interface {
	Validate(ctx context.Context, value any) (any, error)
}

// SchemaFunc adapts a function to the Schema interface.
type SchemaFunc func(ctx context.Context, value any) (any, error)

// Validate calls the wrapped function.
func (f SchemaFunc) Validate(ctx context.Context, value any) (any, error) {
	return f(ctx, value)
}
