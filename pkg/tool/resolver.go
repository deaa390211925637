// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ResolveOption adjusts the parameter schema derived by NewFromHandler
// before the tool is built.
type ResolveOption func(*JSONSchema) error

// WithParamDescription sets the description of a derived parameter. Most
// callers use jsonschema_description struct tags instead; the option exists
// for input types the caller does not own.
func WithParamDescription(param, description string) ResolveOption {
	return func(s *JSONSchema) error {
		prop, ok := s.Properties[param]
		if !ok {
			return fmt.Errorf("no such parameter: %s", param)
		}
		prop.Description = description
		return nil
	}
}

// WithParamDefault sets a default value for a derived parameter, which also
// marks it optional.
func WithParamDefault(param string, value interface{}) ResolveOption {
	return func(s *JSONSchema) error {
		prop, ok := s.Properties[param]
		if !ok {
			return fmt.Errorf("no such parameter: %s", param)
		}
		prop.Default = value
		return nil
	}
}

// WithParamSchema replaces the derived schema of one parameter outright.
func WithParamSchema(param string, schema *JSONSchema) ResolveOption {
	return func(s *JSONSchema) error {
		if _, ok := s.Properties[param]; !ok {
			return fmt.Errorf("no such parameter: %s", param)
		}
		s.Properties[param] = schema.clone()
		return nil
	}
}

// NewFromHandler derives a Tool from a typed handler function. The input
// struct's exported fields become the tool's parameters: json tags name
// them, jsonschema_description tags describe them, and jsonschema tags
// carry constraints such as enum and default values. A field with a default
// (from a struct tag or WithParamDefault) is optional; every other field is
// required. Inputs are decoded into T before the handler runs, so handlers
// written this way never touch raw maps.
func NewFromHandler[T any](name, description string, fn func(ctx context.Context, input T) (interface{}, error), opts ...ResolveOption) (*Tool, error) {
	if fn == nil {
		return nil, &SchemaError{Tool: name, Reason: "handler must not be nil"}
	}

	schema, err := reflectSchema[T]()
	if err != nil {
		return nil, &SchemaError{Tool: name, Reason: err.Error()}
	}

	for _, opt := range opts {
		if err := opt(schema); err != nil {
			return nil, &SchemaError{Tool: name, Reason: err.Error()}
		}
	}

	handler := func(ctx context.Context, inputs map[string]interface{}) (interface{}, error) {
		raw, err := json.Marshal(inputs)
		if err != nil {
			return nil, fmt.Errorf("encode inputs: %w", err)
		}
		var input T
		if err := json.Unmarshal(raw, &input); err != nil {
			return nil, fmt.Errorf("decode inputs: %w", err)
		}
		return fn(ctx, input)
	}

	return New(name, description, schema, handler)
}

// reflectSchema turns a Go struct type into a JSONSchema via the invopop
// reflector, round-tripping through JSON to shed reflector-specific types.
func reflectSchema[T any]() (*JSONSchema, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	reflected := reflector.Reflect(v)

	raw, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("reflect input type: %w", err)
	}
	var schema JSONSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("reflect input type: %w", err)
	}
	if schema.Type != "object" {
		return nil, fmt.Errorf("input type must be a struct, got schema type %q", schema.Type)
	}
	// Required is recomputed from defaults in New; the reflector's notion
	// of required (based on omitempty) is discarded.
	schema.Required = nil
	return &schema, nil
}
