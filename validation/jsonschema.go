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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// JSONSchema validates values against a compiled JSON Schema document.
// Schemas are compiled once at route-registration time, so per-request
// validation pays no compilation cost.
type JSONSchema struct {
	id       string
	compiled *jsonschema.Schema
}

// MustJSONSchema compiles a JSON Schema document and panics on failure.
// Intended for route registration at startup, where an invalid schema is a
// programmer error.
func MustJSONSchema(schemaJSON string) *JSONSchema {
	s, err := NewJSONSchema(schemaJSON)
	if err != nil {
		panic(err)
	}

	return s
}

// NewJSONSchema compiles a JSON Schema document given as a JSON string.
func NewJSONSchema(schemaJSON string) (*JSONSchema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	compiler.AssertContent()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("validation: invalid schema JSON: %w", err)
	}

	const schemaURL = "schema.json"
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("validation: failed to add schema resource: %w", err)
	}

	compiled, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("validation: failed to compile schema: %w", err)
	}

	return &JSONSchema{id: schemaURL, compiled: compiled}, nil
}

// Validate checks value against the schema. Raw []byte and json.RawMessage
// values are decoded first; other values round-trip through encoding/json
// so that Go structs validate against their JSON shape. The decoded
// document is returned as the coerced value.
func (s *JSONSchema) Validate(_ context.Context, value any) (any, error) {
	data, err := toJSONValue(value)
	if err != nil {
		return nil, &Error{Fields: []FieldError{{Code: "schema.decode", Message: err.Error()}}}
	}

	if err := s.compiled.Validate(data); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return nil, schemaError(verr)
		}

		return nil, &Error{Fields: []FieldError{{Code: "schema.validate", Message: err.Error()}}}
	}

	return data, nil
}

// toJSONValue normalizes a value into the any-typed JSON data model the
// schema validator operates on.
func toJSONValue(value any) (any, error) {
	var raw []byte

	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	case map[string]any, []any, string, float64, bool:
		return value, nil
	default:
		marshaled, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		raw = marshaled
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}

	return data, nil
}

// schemaError flattens the validator's error tree into an [*Error] whose
// field paths are dot-joined instance locations.
func schemaError(verr *jsonschema.ValidationError) error {
	var result Error
	collectSchemaErrors(verr, &result)
	result.Sort()

	return &result
}

// collectSchemaErrors walks the cause tree and records each leaf failure.
func collectSchemaErrors(verr *jsonschema.ValidationError, result *Error) {
	if verr == nil {
		return
	}

	if len(verr.Causes) == 0 {
		path := strings.Join(verr.InstanceLocation, ".")
		kindStr := fmt.Sprintf("%v", verr.ErrorKind)

		// "required" failures report the missing property itself so the
		// field path names the absent field, not its parent object.
		if missing := missingProperty(verr); missing != "" {
			if path != "" {
				path += "."
			}
			path += missing
		}

		result.Add(path, "schema."+kindCode(kindStr), verr.Error(), map[string]any{
			"kind": kindStr,
		})

		return
	}

	for _, cause := range verr.Causes {
		collectSchemaErrors(cause, result)
	}
}

// missingProperty extracts the first missing property name from a
// "required" error kind, or "".
func missingProperty(verr *jsonschema.ValidationError) string {
	if k, ok := verr.ErrorKind.(*kind.Required); ok && len(k.Missing) > 0 {
		return k.Missing[0]
	}

	return ""
}

// kindCode derives a short stable code from the error kind's string form.
func kindCode(kindStr string) string {
	kindStr = strings.ToLower(kindStr)
	if i := strings.IndexAny(kindStr, " :"); i > 0 {
		kindStr = kindStr[:i]
	}
	if kindStr == "" {
		return "invalid"
	}

	return kindStr
}
