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
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/teradata-labs/bobbin/pkg/observability"
	"github.com/teradata-labs/bobbin/pkg/tool"
	"github.com/teradata-labs/bobbin/pkg/types"
)

// InstrumentedProvider wraps any Provider with observability instrumentation.
// It captures a span per call with request/response details, token usage,
// latency, and error tracking. The wrapper is transparent and can wrap any
// Provider implementation.
type InstrumentedProvider struct {
	provider types.Provider
	tracer   observability.Tracer
}

// NewInstrumentedProvider creates a new instrumented provider.
func NewInstrumentedProvider(provider types.Provider, tracer observability.Tracer) *InstrumentedProvider {
	return &InstrumentedProvider{
		provider: provider,
		tracer:   tracer,
	}
}

// Name returns the underlying provider name.
func (p *InstrumentedProvider) Name() string {
	return p.provider.Name()
}

// Model returns the underlying model identifier.
func (p *InstrumentedProvider) Model() string {
	return p.provider.Model()
}

// Chat sends a conversation to the model and captures observability data.
func (p *InstrumentedProvider) Chat(ctx context.Context, messages []types.Message, tools []tool.Schema) (*types.Completion, error) {
	_, span := p.tracer.StartSpan(ctx, observability.SpanLLMChat)
	defer p.tracer.EndSpan(span)

	start := time.Now()

	span.SetAttribute(observability.AttrLLMProvider, p.provider.Name())
	span.SetAttribute(observability.AttrLLMModel, p.provider.Model())
	span.SetAttribute("llm.messages.count", len(messages))
	span.SetAttribute("llm.tools.count", len(tools))

	if len(tools) > 0 {
		toolNames := make([]string, len(tools))
		for i, t := range tools {
			toolNames[i] = t.Name
		}
		span.SetAttribute("llm.tools.names", toolNames)
	}

	span.AddEvent("llm.call.started", map[string]interface{}{
		"provider": p.provider.Name(),
		"model":    p.provider.Model(),
		"messages": len(messages),
		"tools":    len(tools),
	})

	resp, err := p.provider.Chat(ctx, messages, tools)

	duration := time.Since(start)

	if err != nil {
		span.Status = observability.Status{
			Code:    observability.StatusError,
			Message: err.Error(),
		}
		span.SetAttribute(observability.AttrErrorType, fmt.Sprintf("%T", err))
		span.SetAttribute(observability.AttrErrorMessage, err.Error())
		span.AddEvent("llm.call.failed", map[string]interface{}{
			"error":       err.Error(),
			"duration_ms": duration.Milliseconds(),
		})

		p.tracer.RecordMetric(observability.MetricLLMErrors, 1, map[string]string{
			observability.AttrLLMProvider: p.provider.Name(),
			observability.AttrLLMModel:    p.provider.Model(),
			observability.AttrErrorType:   fmt.Sprintf("%T", err),
		})

		return nil, err
	}

	span.Status = observability.Status{Code: observability.StatusOK}

	span.SetAttribute("llm.tokens.input", resp.Usage.InputTokens)
	span.SetAttribute("llm.tokens.output", resp.Usage.OutputTokens)
	span.SetAttribute("llm.tokens.total", resp.Usage.TotalTokens)
	span.SetAttribute(observability.AttrLLMStopReason, string(resp.StopReason))
	span.SetAttribute("llm.duration_ms", duration.Milliseconds())
	span.SetAttribute("llm.content.length", len(resp.Content))

	if len(resp.ToolCalls) > 0 {
		span.SetAttribute("llm.tool_calls.count", len(resp.ToolCalls))
		toolCallNames := make([]string, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			toolCallNames[i] = tc.Name
		}
		span.SetAttribute("llm.tool_calls.names", toolCallNames)
	}

	span.AddEvent("llm.call.completed", map[string]interface{}{
		"duration_ms":   duration.Milliseconds(),
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"stop_reason":   string(resp.StopReason),
		"tool_calls":    len(resp.ToolCalls),
	})

	labels := map[string]string{
		observability.AttrLLMProvider: p.provider.Name(),
		observability.AttrLLMModel:    p.provider.Model(),
	}
	p.tracer.RecordMetric(observability.MetricLLMCalls, 1, labels)
	p.tracer.RecordMetric(observability.MetricLLMLatency, float64(duration.Milliseconds()), labels)
	p.tracer.RecordMetric(observability.MetricLLMTokensInput, float64(resp.Usage.InputTokens), labels)
	p.tracer.RecordMetric(observability.MetricLLMTokensOutput, float64(resp.Usage.OutputTokens), labels)

	return resp, nil
}

// Ensure InstrumentedProvider implements the Provider interface
var _ types.Provider = (*InstrumentedProvider)(nil)
