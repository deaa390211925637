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

// Package tool implements the tool-invocation protocol: capability
// descriptors, parameter schemas, and a registry that validates and executes
// invocations requested by the model. Tools are built once, registered
// before the conversation loop starts, and immutable thereafter.
package tool

import (
	"context"
	"regexp"
	"sort"
)

// namePattern is what completion endpoints accept for tool names.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Handler executes a tool invocation. The returned payload must be
// JSON-serializable; errors are converted by the registry into structured
// tool-error results and never reach the conversation loop.
type Handler func(ctx context.Context, inputs map[string]interface{}) (interface{}, error)

// Tool is an immutable capability descriptor: a name, a description for the
// model, a parameter schema, and the handler that does the work.
type Tool struct {
	name        string
	description string
	schema      *JSONSchema
	handler     Handler
}

// New builds a Tool from its descriptor parts.
//
// The schema must be an object schema (nil is treated as "no parameters").
// Required membership is normalized here: a parameter is required exactly
// when its schema declares no default. Returns *SchemaError when the name
// is invalid, the schema is not an object, or the handler is nil.
func New(name, description string, schema *JSONSchema, handler Handler) (*Tool, error) {
	if !namePattern.MatchString(name) {
		return nil, &SchemaError{Tool: name, Reason: "name must match ^[a-zA-Z0-9_-]{1,64}$"}
	}
	if handler == nil {
		return nil, &SchemaError{Tool: name, Reason: "handler is nil"}
	}
	if schema == nil {
		schema = NewObjectSchema("", map[string]*JSONSchema{})
	}
	if schema.Type != "object" {
		return nil, &SchemaError{Tool: name, Reason: "parameter schema must have type \"object\""}
	}
	for param, prop := range schema.Properties {
		if prop == nil || prop.Type == "" {
			return nil, &SchemaError{Tool: name, Param: param, Reason: "parameter type could not be determined"}
		}
	}

	normalized := schema.clone()
	normalized.Required = requiredParams(normalized)

	return &Tool{
		name:        name,
		description: description,
		schema:      normalized,
		handler:     handler,
	}, nil
}

// Name returns the tool's unique identifier.
func (t *Tool) Name() string { return t.name }

// Description returns the human-readable description sent to the model.
func (t *Tool) Description() string { return t.description }

// Schema returns the tool's parameter schema.
func (t *Tool) Schema() *JSONSchema { return t.schema }

// requiredParams derives the required list: every property lacking a
// declared default, sorted for deterministic wire output.
func requiredParams(schema *JSONSchema) []string {
	var required []string
	for param, prop := range schema.Properties {
		if prop.Default == nil {
			required = append(required, param)
		}
	}
	sort.Strings(required)
	return required
}

// Schema is a wire-format schema entry for one tool, the shape providers
// send to the completion endpoint.
type Schema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *JSONSchema `json:"parameters"`
}

// Result is the structured outcome of one tool invocation. Exactly one of
// the success payload and Error is meaningful; both forms are always
// JSON-serializable so a result can be fed back to the model verbatim.
type Result struct {
	// Success indicates whether the handler completed without error
	Success bool `json:"success"`

	// Data is the handler's payload on success
	Data interface{} `json:"data,omitempty"`

	// Error describes the failure when Success is false
	Error *Error `json:"error,omitempty"`

	// ExecutionTimeMs is stamped by the registry; handler-set values are
	// overwritten
	ExecutionTimeMs int64 `json:"execution_time_ms,omitempty"`
}

// Error carries structured tool-error information back to the model.
type Error struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details provides additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}

// Tool error codes produced by the registry.
const (
	ErrCodeValidation     = "validation_error"
	ErrCodeExecution      = "execution_failed"
	ErrCodePanic          = "handler_panic"
	ErrCodeUnserializable = "unserializable_result"
)
