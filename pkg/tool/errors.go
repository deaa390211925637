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

import "fmt"

// DuplicateNameError is returned by Registry.Register when a tool with the
// same name is already registered. Registration errors are raised to the
// integrator before any invocation begins; they never occur mid-loop.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// UnknownToolError is returned by Registry.Invoke when the requested tool
// name is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// SchemaError reports a parameter schema that could not be built or
// compiled at registration time. Param is empty when the whole schema is at
// fault rather than a single parameter.
type SchemaError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("tool %s: parameter %q: %s", e.Tool, e.Param, e.Reason)
	}
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Reason)
}
