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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemSchema = `{
	"type": "object",
	"properties": {
		"a": {"type": "number"},
		"b": {"type": "string"}
	},
	"required": ["a", "b"]
}`

func TestJSONSchemaAcceptsValidBody(t *testing.T) {
	s := MustJSONSchema(itemSchema)

	out, err := s.Validate(context.Background(), []byte(`{"a":1,"b":"x"}`))
	require.NoError(t, err)

	doc, ok := out.(map[string]any)
	require.True(t, ok, "coerced value should be the decoded document")
	assert.Equal(t, "x", doc["b"])
}

func TestJSONSchemaMissingRequiredFieldNamesPath(t *testing.T) {
	s := MustJSONSchema(itemSchema)

	_, err := s.Validate(context.Background(), []byte(`{"a":1}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("b"), "failure must name the missing field path %q, got %+v", "b", verr.Fields)
}

func TestJSONSchemaWrongTypeNamesPath(t *testing.T) {
	s := MustJSONSchema(itemSchema)

	_, err := s.Validate(context.Background(), []byte(`{"a":"not a number","b":"x"}`))
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("a"), "failure must name the mistyped field, got %+v", verr.Fields)
}

func TestJSONSchemaValidatesGoValues(t *testing.T) {
	s := MustJSONSchema(itemSchema)

	type payload struct {
		A float64 `json:"a"`
		B string  `json:"b"`
	}

	_, err := s.Validate(context.Background(), payload{A: 2, B: "ok"})
	assert.NoError(t, err)
}

func TestJSONSchemaRejectsMalformedJSON(t *testing.T) {
	s := MustJSONSchema(itemSchema)

	_, err := s.Validate(context.Background(), []byte(`{"a":`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewJSONSchemaRejectsInvalidDocument(t *testing.T) {
	_, err := NewJSONSchema(`{"type": 12}`)
	assert.Error(t, err)

	assert.Panics(t, func() { MustJSONSchema(`not json`) })
}

func TestRulesValidateScalar(t *testing.T) {
	r := NewRules("id", "required,min=3")

	out, err := r.Validate(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, "abcd", out)

	_, err = r.Validate(context.Background(), "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("id"))
}

func TestStructValidation(t *testing.T) {
	type signup struct {
		Email string `validate:"required,email"`
		Age   int    `validate:"gte=18"`
	}

	_, err := Struct{}.Validate(context.Background(), signup{Email: "nope", Age: 12})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("Email"))
	assert.True(t, verr.Has("Age"))

	_, err = Struct{}.Validate(context.Background(), signup{Email: "a@b.dev", Age: 30})
	assert.NoError(t, err)
}

func TestErrorFormatting(t *testing.T) {
	var e Error
	e.Add("b", "schema.required", "is required", nil)
	e.Add("a", "schema.type", "wrong type", nil)
	e.Sort()

	assert.Equal(t, "a", e.Fields[0].Path)
	assert.Contains(t, e.Error(), "a: wrong type")
	assert.Equal(t, 422, e.HTTPStatus())
	assert.Equal(t, "validation_error", e.Code())
}
