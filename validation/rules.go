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
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// sharedValidator backs all Rules schemas. go-playground/validator caches
// struct metadata internally and is safe for concurrent use.
var sharedValidator = validator.New(validator.WithRequiredStructEnabled())

// Rules validates a single value with go-playground/validator tag syntax,
// e.g. "required,min=3,max=64" or "omitempty,uuid4". Useful for scalar
// parameters (query, path, header) where a JSON Schema document would be
// overkill.
type Rules struct {
	// Tag is the validator tag expression applied with Var semantics.
	Tag string

	// Field optionally names the parameter in reported failures.
	Field string
}

// NewRules creates a tag-rule schema for a named field.
func NewRules(field, tag string) *Rules {
	return &Rules{Field: field, Tag: tag}
}

// Validate applies the tag rules. The value passes through unmodified.
func (r *Rules) Validate(ctx context.Context, value any) (any, error) {
	if r.Tag == "" {
		return value, nil
	}

	err := sharedValidator.VarCtx(ctx, value, r.Tag)
	if err == nil {
		return value, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, &Error{Fields: []FieldError{{Path: r.Field, Code: "rules.invalid", Message: err.Error()}}}
	}

	var result Error
	for _, fe := range verrs {
		result.Add(r.Field, "rules."+fe.Tag(), ruleMessage(fe), map[string]any{
			"tag":   fe.Tag(),
			"param": fe.Param(),
		})
	}
	result.Sort()

	return nil, &result
}

// Struct validates a struct value using its `validate` field tags.
// Reported field paths are the struct namespace below the root, exactly as
// the validator reports them.
type Struct struct{}

// Validate applies struct tag validation. The value passes through
// unmodified.
func (Struct) Validate(ctx context.Context, value any) (any, error) {
	err := sharedValidator.StructCtx(ctx, value)
	if err == nil {
		return value, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, &Error{Fields: []FieldError{{Code: "rules.invalid", Message: err.Error()}}}
	}

	var result Error
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		result.Add(path, "rules."+fe.Tag(), ruleMessage(fe), map[string]any{
			"tag":   fe.Tag(),
			"param": fe.Param(),
		})
	}
	result.Sort()

	return nil, &result
}

// ruleMessage renders a compact human-readable reason for one tag failure.
func ruleMessage(fe validator.FieldError) string {
	if fe.Param() != "" {
		return "failed " + fe.Tag() + "=" + fe.Param()
	}

	return "failed " + fe.Tag()
}
