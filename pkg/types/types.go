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

// Package types holds the message and provider types shared by the
// conversation loop, the providers, and the stores. It sits at the bottom
// of the import graph so that pkg/agent and pkg/llm never import each other.
package types

import (
	"context"
	"time"

	"github.com/teradata-labs/bobbin/pkg/tool"
)

// Turn roles. A conversation strictly alternates user-or-tool_result and
// assistant turns at the exchange boundary. System turns are injected by the
// agent ahead of the first exchange and extracted again at the provider
// boundary.
const (
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleToolResult = "tool_result"
	RoleSystem     = "system"
)

// StopReason is the completion endpoint's signal for why generation stopped.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// Terminal reports whether the stop reason ends the conversation loop.
// Anything other than an explicit tool-use request is terminal.
func (s StopReason) Terminal() bool {
	return s != StopToolUse
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	// ID uniquely identifies this call within the conversation
	ID string `json:"id"`

	// Name is the registered tool name
	Name string `json:"name"`

	// Input contains the tool parameters as parsed JSON
	Input map[string]interface{} `json:"input"`
}

// ToolResultBlock pairs one tool call's id with the outcome of executing it.
// Sibling results from one assistant turn are batched, in request order,
// into a single tool_result turn.
type ToolResultBlock struct {
	// ToolUseID references a ToolCall.ID from the immediately preceding
	// assistant turn
	ToolUseID string `json:"tool_use_id"`

	// Name is the tool that produced the result
	Name string `json:"name,omitempty"`

	// Result is the structured execution outcome (success or tool error)
	Result *tool.Result `json:"result"`
}

// Message is one turn in a conversation. Content carries the text of user,
// system, and assistant turns. ToolCalls is set on assistant turns that
// request tool use. Results is set on tool_result turns; block order within
// a turn is significant and survives persistence round-trips verbatim.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content,omitempty"`
	ToolCalls []ToolCall        `json:"tool_calls,omitempty"`
	Results   []ToolResultBlock `json:"results,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitzero"`
}

// Usage tracks token accounting for one completion call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Completion is a provider's response to one Chat call.
type Completion struct {
	// Content is the assistant's text output
	Content string `json:"content"`

	// Thinking carries separated reasoning text for models that emit it;
	// empty otherwise
	Thinking string `json:"thinking,omitempty"`

	// ToolCalls contains requested tool executions, in model order
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// StopReason indicates why the model stopped
	StopReason StopReason `json:"stop_reason"`

	// Usage tracks token usage
	Usage Usage `json:"usage"`

	// Metadata contains provider-specific extras (model id, latency, ...)
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Provider is the boundary to a hosted completion endpoint. The exact wire
// schema is the endpoint's contract; implementations translate to and from
// the types above and never interpret conversation semantics.
type Provider interface {
	// Chat sends the full conversation plus tool schemas and returns the
	// model's next turn.
	Chat(ctx context.Context, messages []Message, tools []tool.Schema) (*Completion, error)

	// Name returns the provider name ("bedrock", "anthropic", ...).
	Name() string

	// Model returns the model identifier in use.
	Model() string
}
