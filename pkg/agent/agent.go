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

// Package agent drives the model and tool orchestration loop: send the
// conversation plus tool schemas to the model, execute the tools it
// requests, feed the results back, and repeat until the model answers in
// text or the iteration cap forces completion.
//
// Persistence is best-effort throughout. Session history and reasoning
// traces are stored when session memory is enabled, but a missing,
// expired, or unreachable store never prevents a run from returning a
// model-derived answer.
package agent

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/bobbin/pkg/conversation"
	"github.com/teradata-labs/bobbin/pkg/llm"
	"github.com/teradata-labs/bobbin/pkg/llm/bedrock"
	"github.com/teradata-labs/bobbin/pkg/observability"
	"github.com/teradata-labs/bobbin/pkg/reasoning"
	"github.com/teradata-labs/bobbin/pkg/store"
	"github.com/teradata-labs/bobbin/pkg/tool"
	"github.com/teradata-labs/bobbin/pkg/types"
)

// sessionIDPattern constrains session ids to storage-safe characters. Ids
// outside it fail open: the run proceeds without session memory.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Agent runs the orchestration loop against a model provider and a tool
// registry. All configuration is fixed at construction; an Agent is safe
// for concurrent Run calls, though concurrent runs sharing one session id
// settle on last-writer-wins when they save.
type Agent struct {
	config    Config
	registry  *tool.Registry
	provider  types.Provider
	store     store.Store
	ownsStore bool
	tracer    observability.Tracer
	logger    *zap.Logger
}

// New builds an agent from cfg. Tools are registered immediately; a
// duplicate name or invalid schema fails construction rather than
// surfacing mid-conversation. Unless overridden via cfg.Provider the model
// boundary is Bedrock Converse, and unless overridden via cfg.Store
// session memory (when enabled) lives in DynamoDB behind a retry wrapper.
func New(cfg Config) (*Agent, error) {
	if cfg.MemoryRegion == "" {
		cfg.MemoryRegion = cfg.BedrockRegion
	}
	if cfg.SessionTable != "" {
		cfg.UseSessionMemory = true
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoOpTracer()
	}

	registry := tool.NewRegistry()
	for _, t := range cfg.Tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register tool: %w", err)
		}
	}

	provider := cfg.Provider
	if provider == nil {
		var err error
		provider, err = bedrock.New(bedrock.Config{
			Region:  cfg.BedrockRegion,
			ModelID: cfg.ModelID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bedrock provider: %w", err)
		}
	}
	provider = llm.NewInstrumentedProvider(provider, cfg.Tracer)

	st := cfg.Store
	ownsStore := false
	if st == nil && cfg.UseSessionMemory {
		ds, err := store.NewDynamoStore(store.DynamoConfig{
			Region:    cfg.MemoryRegion,
			TableName: cfg.SessionTable,
			TTL:       cfg.SessionTTL,
			Tracer:    cfg.Tracer,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create session store: %w", err)
		}
		st = store.NewResilient(ds, "dynamodb", store.DefaultRetryConfig(), cfg.Tracer, cfg.Logger)
		ownsStore = true
	}

	return &Agent{
		config:    cfg,
		registry:  registry,
		provider:  provider,
		store:     st,
		ownsStore: ownsStore,
		tracer:    cfg.Tracer,
		logger:    cfg.Logger,
	}, nil
}

// Response is the outcome of one Run.
type Response struct {
	// Answer is the model's final text.
	Answer string

	// Trace is the reasoning record accumulated on the way to the answer.
	// Trace.Degraded marks a run ended by the iteration cap.
	Trace *reasoning.Trace

	// Usage aggregates token counts across every model call in the run.
	Usage types.Usage
}

// RunOption adjusts a single Run invocation.
type RunOption func(*runOptions)

type runOptions struct {
	sessionID string
}

// WithSessionID keys the run to a persistent session: prior turns are
// loaded before the first model call and the full conversation is saved
// after the run completes. Ids must match ^[A-Za-z0-9_-]{1,128}$; anything
// else logs a warning and the run proceeds without session memory.
func WithSessionID(id string) RunOption {
	return func(o *runOptions) { o.sessionID = id }
}

// Run executes one query through the orchestration loop and returns the
// final answer with its reasoning trace.
//
// Errors are reserved for the model boundary: fatal classifications and
// retry exhaustion abort the run. Tool failures come back to the model as
// structured error results, persistence failures are logged and the answer
// still returns, and hitting the iteration cap yields a degraded but
// successful response.
func (a *Agent) Run(ctx context.Context, query string, opts ...RunOption) (*Response, error) {
	var options runOptions
	for _, opt := range opts {
		opt(&options)
	}

	start := time.Now()
	ctx, span := a.tracer.StartSpan(ctx, observability.SpanAgentRun,
		observability.WithAttribute(observability.AttrLLMProvider, a.provider.Name()),
		observability.WithAttribute(observability.AttrLLMModel, a.provider.Model()))
	defer a.tracer.EndSpan(span)
	span.SetAttribute("query.length", len(query))

	sessionID := options.sessionID
	if a.store == nil {
		sessionID = ""
	}
	if sessionID != "" && !sessionIDPattern.MatchString(sessionID) {
		a.logger.Warn("invalid session id, continuing without session memory",
			zap.String("session_id", sessionID))
		span.AddEvent("session.invalid_id", map[string]interface{}{
			"session_id": sessionID,
		})
		sessionID = ""
	}
	if sessionID != "" {
		span.SetAttribute(observability.AttrSessionID, sessionID)
	}

	conv, sessionID := a.loadConversation(ctx, sessionID, span)

	recorder := reasoning.NewRecorder(reasoning.Config{
		Store:    a.store,
		RealTime: a.config.RealTimeReasoning,
		Logger:   a.logger,
		Tracer:   a.tracer,
	})
	recorder.Begin(sessionID, query)

	conv.AppendUser(query)

	outcome, err := a.loop(ctx, conv, recorder)
	if err != nil {
		span.RecordError(err)
		a.tracer.RecordMetric(observability.MetricAgentRuns, 1, map[string]string{"status": "error"})
		return nil, err
	}

	a.saveConversation(ctx, sessionID, conv, span)
	trace := recorder.Finalize(ctx, outcome.finalThinking, outcome.answer)

	span.SetAttribute(observability.AttrAgentIteration, outcome.iterations)
	if outcome.degraded {
		span.SetAttribute(observability.AttrAgentDegraded, true)
	}

	duration := time.Since(start)
	a.tracer.RecordMetric(observability.MetricAgentRuns, 1, map[string]string{"status": "success"})
	a.tracer.RecordMetric(observability.MetricAgentRunDuration, float64(duration.Milliseconds()), nil)
	a.tracer.RecordMetric(observability.MetricAgentIterations, float64(outcome.iterations), nil)

	return &Response{
		Answer: outcome.answer,
		Trace:  trace,
		Usage:  outcome.usage,
	}, nil
}

// loopOutcome carries the loop's result back to Run.
type loopOutcome struct {
	answer        string
	finalThinking string
	usage         types.Usage
	iterations    int
	degraded      bool
}

// loop is the state machine of one invocation: model call, tool execution,
// result feedback, repeat. It returns when the model stops requesting
// tools or the iteration cap forces a synthetic final turn.
func (a *Agent) loop(ctx context.Context, conv *conversation.Conversation, recorder *reasoning.Recorder) (*loopOutcome, error) {
	tools := a.registry.SchemaForModel()
	outcome := &loopOutcome{}

	for iteration := 1; iteration <= a.config.MaxIterations; iteration++ {
		outcome.iterations = iteration

		iterCtx, iterSpan := a.tracer.StartSpan(ctx, observability.SpanAgentIteration,
			observability.WithAttribute(observability.AttrAgentIteration, iteration))

		completion, err := a.chatWithRetry(iterCtx, a.messagesForModel(conv), tools)
		if err != nil {
			iterSpan.RecordError(err)
			a.tracer.EndSpan(iterSpan)
			return nil, fmt.Errorf("model call failed on iteration %d: %w", iteration, err)
		}

		outcome.usage.InputTokens += completion.Usage.InputTokens
		outcome.usage.OutputTokens += completion.Usage.OutputTokens
		outcome.usage.TotalTokens += completion.Usage.TotalTokens
		iterSpan.SetAttribute(observability.AttrLLMStopReason, string(completion.StopReason))

		// Anything but a tool-use stop ends the loop, including max_tokens
		// truncation; a tool-use stop with no parsed calls has nothing to
		// execute and ends it too.
		if completion.StopReason != types.StopToolUse || len(completion.ToolCalls) == 0 {
			conv.AppendAssistant(completion.Content)
			a.tracer.EndSpan(iterSpan)
			outcome.answer = completion.Content
			outcome.finalThinking = completion.Thinking
			return outcome, nil
		}

		conv.AppendAssistant(completion.Content, completion.ToolCalls...)

		results, recorded := a.executeToolCalls(iterCtx, completion.ToolCalls)
		recorder.RecordStep(stepThinking(completion), recorded)

		if err := conv.AppendToolResults(results); err != nil {
			// Results are built from this turn's calls in request order, so
			// a mismatch is a bug rather than a runtime condition.
			iterSpan.RecordError(err)
			a.tracer.EndSpan(iterSpan)
			return nil, fmt.Errorf("failed to append tool results: %w", err)
		}

		iterSpan.SetAttribute(observability.AttrToolCalls, len(completion.ToolCalls))
		a.tracer.EndSpan(iterSpan)
	}

	// Cap hit with the model still asking for tools. Close the run with a
	// synthetic final turn instead of another model call.
	recorder.MarkDegraded()
	outcome.degraded = true
	outcome.answer = fmt.Sprintf(
		"Reached the maximum of %d model iterations before completing the request. "+
			"The tool results gathered so far are recorded in the reasoning trace.",
		a.config.MaxIterations)
	conv.AppendAssistant(outcome.answer)

	a.logger.Warn("iteration limit reached, forcing completion",
		zap.Int("max_iterations", a.config.MaxIterations))
	return outcome, nil
}

// messagesForModel prepends the system turn to the conversation's turns.
func (a *Agent) messagesForModel(conv *conversation.Conversation) []types.Message {
	turns := conv.Turns()
	if a.config.SystemPrompt == "" {
		return turns
	}
	messages := make([]types.Message, 0, len(turns)+1)
	messages = append(messages, types.Message{
		Role:    types.RoleSystem,
		Content: a.config.SystemPrompt,
	})
	return append(messages, turns...)
}

// stepThinking picks the text recorded for a tool step: the model's
// explicit thinking block when present, otherwise its visible content.
func stepThinking(completion *types.Completion) string {
	if completion.Thinking != "" {
		return completion.Thinking
	}
	return completion.Content
}

// executeToolCalls runs every call of one assistant turn. Sibling calls
// run concurrently; results land in slices indexed by request position, so
// the returned batch is in request order regardless of completion order.
func (a *Agent) executeToolCalls(ctx context.Context, calls []types.ToolCall) ([]types.ToolResultBlock, []reasoning.ToolCall) {
	blocks := make([]types.ToolResultBlock, len(calls))
	recorded := make([]reasoning.ToolCall, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call types.ToolCall) {
			defer wg.Done()
			result := a.invokeTool(ctx, call)
			blocks[i] = types.ToolResultBlock{
				ToolUseID: call.ID,
				Name:      call.Name,
				Result:    result,
			}
			recorded[i] = reasoning.ToolCall{
				Name:   call.Name,
				Inputs: call.Input,
				Result: result,
			}
		}(i, call)
	}
	wg.Wait()

	return blocks, recorded
}

// invokeTool executes one call through the registry with a span and
// metrics. Model-side mistakes never abort the run: a hallucinated tool
// name comes back as a structured error result the model can correct.
func (a *Agent) invokeTool(ctx context.Context, call types.ToolCall) *tool.Result {
	ctx, span := a.tracer.StartSpan(ctx, observability.SpanToolExecute,
		observability.WithAttribute(observability.AttrToolName, call.Name))
	defer a.tracer.EndSpan(span)

	result, err := a.registry.Invoke(ctx, call.Name, call.Input)
	if err != nil {
		// Only unknown names error out of Invoke; everything after lookup
		// is reported through the result.
		span.RecordError(err)
		a.tracer.RecordMetric(observability.MetricToolErrors, 1, map[string]string{"tool": call.Name})
		return &tool.Result{
			Success: false,
			Error: &tool.Error{
				Code:    "unknown_tool",
				Message: err.Error(),
			},
		}
	}

	a.tracer.RecordMetric(observability.MetricToolExecutions, 1, map[string]string{"tool": call.Name})
	span.SetAttribute("success", result.Success)
	span.SetAttribute("execution_time_ms", result.ExecutionTimeMs)
	a.tracer.RecordMetric(observability.MetricToolDuration, float64(result.ExecutionTimeMs), map[string]string{"tool": call.Name})

	if !result.Success && result.Error != nil {
		span.RecordError(fmt.Errorf("%s: %s", result.Error.Code, result.Error.Message))
		a.tracer.RecordMetric(observability.MetricToolErrors, 1, map[string]string{"tool": call.Name})
	}
	return result
}

// loadConversation restores the session's turn log before the first model
// call. Every failure fails open onto a fresh conversation; an unreachable
// store additionally drops the session id so the rest of the run is
// session-less and trace-less rather than stalling on a broken backend.
func (a *Agent) loadConversation(ctx context.Context, sessionID string, span *observability.Span) (*conversation.Conversation, string) {
	if a.store == nil || sessionID == "" {
		return conversation.New(), sessionID
	}

	snapshot, found, err := a.store.LoadMessages(ctx, sessionID)
	if err != nil {
		if store.IsUnavailable(err) {
			a.logger.Warn("session store unavailable, continuing without session memory",
				zap.String("session_id", sessionID),
				zap.Error(err))
			span.AddEvent("session.store_unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			return conversation.New(), ""
		}
		a.logger.Warn("failed to load session, starting fresh",
			zap.String("session_id", sessionID),
			zap.Error(err))
		span.RecordError(err)
		return conversation.New(), sessionID
	}
	if !found {
		return conversation.New(), sessionID
	}

	conv, err := conversation.Hydrate(snapshot)
	if err != nil {
		a.logger.Warn("failed to decode stored session, starting fresh",
			zap.String("session_id", sessionID),
			zap.Error(err))
		span.RecordError(err)
		return conversation.New(), sessionID
	}

	span.SetAttribute("session.restored_turns", conv.Len())
	return conv, sessionID
}

// saveConversation persists the full turn log after the loop completes.
// Failures are logged and the answer still returns; concurrent saves under
// one session id settle on last-writer-wins in the store.
func (a *Agent) saveConversation(ctx context.Context, sessionID string, conv *conversation.Conversation, span *observability.Span) {
	if a.store == nil || sessionID == "" {
		return
	}

	snapshot, err := conv.Snapshot()
	if err != nil {
		a.logger.Error("failed to snapshot conversation",
			zap.String("session_id", sessionID),
			zap.Error(err))
		span.RecordError(err)
		return
	}
	if err := a.store.SaveMessages(ctx, sessionID, snapshot); err != nil {
		a.logger.Warn("failed to save session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		span.RecordError(err)
	}
}

// GetReasoning returns the most recent reasoning trace stored for the
// session, or nil when none exists.
func (a *Agent) GetReasoning(ctx context.Context, sessionID string) (*reasoning.Trace, error) {
	if a.store == nil {
		return nil, fmt.Errorf("session memory is not enabled")
	}
	if !sessionIDPattern.MatchString(sessionID) {
		return nil, fmt.Errorf("invalid session id: %q", sessionID)
	}

	data, found, err := a.store.LoadReasoning(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reasoning: %w", err)
	}
	if !found {
		return nil, nil
	}
	return reasoning.DecodeTrace(data)
}

// GetReasoningHistory returns every stored reasoning trace for the
// session, oldest first. Undecodable records are skipped with a warning.
func (a *Agent) GetReasoningHistory(ctx context.Context, sessionID string) ([]*reasoning.Trace, error) {
	if a.store == nil {
		return nil, fmt.Errorf("session memory is not enabled")
	}
	if !sessionIDPattern.MatchString(sessionID) {
		return nil, fmt.Errorf("invalid session id: %q", sessionID)
	}

	payloads, err := a.store.LoadReasoningHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reasoning history: %w", err)
	}

	traces := make([]*reasoning.Trace, 0, len(payloads))
	for _, data := range payloads {
		trace, err := reasoning.DecodeTrace(data)
		if err != nil {
			a.logger.Warn("skipping undecodable reasoning trace",
				zap.String("session_id", sessionID),
				zap.Error(err))
			continue
		}
		traces = append(traces, trace)
	}
	return traces, nil
}

// ToolNames returns the registered tool names in registration order.
func (a *Agent) ToolNames() []string {
	return a.registry.Names()
}

// Close releases the session store when the agent built it. Injected
// stores stay open; their owner closes them.
func (a *Agent) Close() error {
	if !a.ownsStore || a.store == nil {
		return nil
	}
	return a.store.Close()
}
