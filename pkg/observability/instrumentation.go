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
package observability

// Standard span names for consistency across Bobbin.
// Use these constants instead of hardcoding strings.
const (
	// Agent spans
	SpanAgentRun       = "agent.run"
	SpanAgentIteration = "agent.iteration"

	// LLM spans
	SpanLLMChat = "llm.chat"

	// Tool spans
	SpanToolExecute = "tool.execute"

	// Store spans
	SpanStoreLoad  = "store.load"
	SpanStoreSave  = "store.save"
	SpanStorePrune = "store.prune"

	// Reasoning spans
	SpanReasoningPersist = "reasoning.persist"
)

// Standard metric names for consistency.
const (
	// Agent metrics
	MetricAgentRuns        = "agent.runs.total"
	MetricAgentRunDuration = "agent.run.duration"
	MetricAgentIterations  = "agent.iterations.total"

	// LLM metrics
	MetricLLMCalls        = "llm.calls.total"
	MetricLLMLatency      = "llm.latency"
	MetricLLMTokensInput  = "llm.tokens.input"  // #nosec G101 -- not a credential, just metric name
	MetricLLMTokensOutput = "llm.tokens.output" // #nosec G101 -- not a credential, just metric name
	MetricLLMErrors       = "llm.errors.total"
	MetricLLMRetries      = "llm.retries.total"

	// Tool metrics
	MetricToolExecutions = "tool.executions.total"
	MetricToolDuration   = "tool.duration"
	MetricToolErrors     = "tool.errors.total"

	// Store metrics
	MetricStoreRetries = "store.retries.total"
	MetricStoreErrors  = "store.errors.total"
)

// Standard attribute names for consistency.
// Use these constants for span and event attributes.
const (
	// Session context
	AttrSessionID = "session.id"
	AttrTraceID   = "trace.id"
	AttrSpanID    = "span.id"

	// LLM attributes
	AttrLLMProvider    = "llm.provider"
	AttrLLMModel       = "llm.model"
	AttrLLMStopReason  = "llm.stop_reason"
	AttrLLMTemperature = "llm.temperature"
	AttrLLMMaxTokens   = "llm.max_tokens" // #nosec G101 -- not a credential, just attribute name

	// Tool attributes
	AttrToolName  = "tool.name"
	AttrToolCalls = "tool.calls"

	// Agent attributes
	AttrAgentIteration = "agent.iteration"
	AttrAgentDegraded  = "agent.degraded"

	// Store attributes
	AttrStoreBackend = "store.backend"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)
