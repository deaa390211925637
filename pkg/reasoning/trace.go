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

// Package reasoning captures the structured thinking record of one agent
// invocation: what the model reasoned at each step, which tools it called
// with what inputs and results, and how the run concluded.
package reasoning

import (
	"encoding/json"
	"fmt"

	"github.com/teradata-labs/bobbin/pkg/tool"
)

// ToolCall records one tool invocation within a step.
type ToolCall struct {
	// Name is the registered tool name
	Name string `json:"name"`

	// Inputs are the arguments the model supplied
	Inputs map[string]interface{} `json:"inputs,omitempty"`

	// Result is the structured outcome returned by the registry
	Result *tool.Result `json:"result,omitempty"`
}

// Step is one model round-trip's worth of reasoning: the model's thinking
// text followed by the tools it requested, in request order.
type Step struct {
	Thinking  string     `json:"thinking,omitempty"`
	ToolCalls []ToolCall `json:"tools,omitempty"`
}

// Trace is the complete reasoning record of a single invocation. It is
// built append-only while the loop runs and sealed by Finalize.
type Trace struct {
	Query         string `json:"query"`
	Steps         []Step `json:"steps"`
	FinalThinking string `json:"final_thinking,omitempty"`
	FinalResponse string `json:"final_response,omitempty"`
	TotalSteps    int    `json:"total_steps"`

	// Degraded marks a run that hit the iteration limit before the model
	// finished on its own.
	Degraded bool `json:"degraded,omitempty"`
}

// DecodeTrace unmarshals a persisted trace.
func DecodeTrace(data []byte) (*Trace, error) {
	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode reasoning trace: %w", err)
	}
	return &t, nil
}
