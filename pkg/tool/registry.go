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
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Registry owns the tools for one agent instance. Registration completes
// before the conversation loop starts; there is no unregister, and a name
// can be claimed only once.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*Tool
	order    []string
	compiled map[string]*gojsonschema.Schema
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:    make(map[string]*Tool),
		compiled: make(map[string]*gojsonschema.Schema),
	}
}

// Register adds a tool. Returns *DuplicateNameError if the name is taken and
// *SchemaError if the parameter schema does not compile.
func (r *Registry) Register(t *Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.name]; exists {
		return &DuplicateNameError{Name: t.name}
	}

	// Compile once at registration so invocation-time validation is cheap
	// and schema problems fail fast, before any model call.
	loader := gojsonschema.NewGoLoader(t.schema)
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return &SchemaError{Tool: t.name, Reason: fmt.Sprintf("schema does not compile: %v", err)}
	}

	r.tools[t.name] = t
	r.order = append(r.order, t.name)
	r.compiled[t.name] = compiled
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SchemaForModel returns one wire-format schema entry per registered tool,
// in registration order.
func (r *Registry) SchemaForModel() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		schemas = append(schemas, Schema{
			Name:        t.name,
			Description: t.description,
			Parameters:  t.schema,
		})
	}
	return schemas
}

// Invoke looks up a tool, validates the inputs, and executes the handler.
//
// Unknown names return *UnknownToolError. Everything after lookup is
// reported through the Result so one misbehaving tool never aborts the
// conversation loop: missing or mistyped inputs become a validation-error
// Result, handler errors and panics become execution-error Results, and a
// payload that cannot be marshalled to JSON is replaced by an error Result.
// Declared defaults are applied for omitted optional parameters before the
// handler runs.
func (r *Registry) Invoke(ctx context.Context, name string, inputs map[string]interface{}) (*Result, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	compiled := r.compiled[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownToolError{Name: name}
	}

	resolved := applyDefaults(t.schema, inputs)

	if missing := missingRequired(t.schema, resolved); len(missing) > 0 {
		return &Result{
			Success: false,
			Error: &Error{
				Code:    ErrCodeValidation,
				Message: fmt.Sprintf("missing required parameters: %v", missing),
				Details: map[string]interface{}{"missing": missing},
			},
		}, nil
	}

	if compiled != nil {
		outcome, err := compiled.Validate(gojsonschema.NewGoLoader(resolved))
		if err == nil && !outcome.Valid() {
			violations := make([]string, 0, len(outcome.Errors()))
			for _, verr := range outcome.Errors() {
				violations = append(violations, verr.String())
			}
			return &Result{
				Success: false,
				Error: &Error{
					Code:    ErrCodeValidation,
					Message: fmt.Sprintf("invalid parameters: %v", violations),
					Details: map[string]interface{}{"violations": violations},
				},
			}, nil
		}
	}

	start := time.Now()
	data, err := execute(ctx, t.handler, resolved)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		result := &Result{
			Success:         false,
			Error:           &Error{Code: ErrCodeExecution, Message: err.Error()},
			ExecutionTimeMs: elapsed,
		}
		if pe, ok := err.(*panicError); ok {
			result.Error.Code = ErrCodePanic
			result.Error.Message = pe.Error()
		}
		return result, nil
	}

	if data != nil {
		if _, merr := json.Marshal(data); merr != nil {
			return &Result{
				Success:         false,
				Error:           &Error{Code: ErrCodeUnserializable, Message: fmt.Sprintf("tool returned unserializable data: %v", merr)},
				ExecutionTimeMs: elapsed,
			}, nil
		}
	}

	return &Result{
		Success:         true,
		Data:            data,
		ExecutionTimeMs: elapsed,
	}, nil
}

// execute runs the handler with panic containment.
func execute(ctx context.Context, handler Handler, inputs map[string]interface{}) (data interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			data = nil
			err = &panicError{value: rec}
		}
	}()
	return handler(ctx, inputs)
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("tool handler panicked: %v", e.value)
}

// applyDefaults copies the inputs and fills in declared defaults for
// omitted optional parameters. The caller's map is never mutated.
func applyDefaults(schema *JSONSchema, inputs map[string]interface{}) map[string]interface{} {
	resolved := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		resolved[k] = v
	}
	for param, prop := range schema.Properties {
		if prop.Default == nil {
			continue
		}
		if _, present := resolved[param]; !present {
			resolved[param] = prop.Default
		}
	}
	return resolved
}

func missingRequired(schema *JSONSchema, inputs map[string]interface{}) []string {
	var missing []string
	for _, param := range schema.Required {
		if _, present := inputs[param]; !present {
			missing = append(missing, param)
		}
	}
	return missing
}
