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

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ZapTracer exports finished spans, metrics, and events as structured log
// entries. It is the default exporter for processes that want visibility
// without an external trace backend.
type ZapTracer struct {
	logger *zap.Logger
}

// NewZapTracer creates a tracer that logs through the given logger.
// A nil logger falls back to the process-global zap logger.
func NewZapTracer(logger *zap.Logger) *ZapTracer {
	if logger == nil {
		logger = zap.L()
	}
	return &ZapTracer{logger: logger}
}

// StartSpan creates a new span linked to any parent found in the context.
func (t *ZapTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span) {
	span := &Span{
		TraceID:    uuid.New().String(),
		SpanID:     uuid.New().String(),
		Name:       name,
		StartTime:  time.Now(),
		Attributes: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(span)
	}

	if parent := SpanFromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	}

	return ContextWithSpan(ctx, span), span
}

// EndSpan completes the span and emits it as one log entry.
func (t *ZapTracer) EndSpan(span *Span) {
	if span == nil {
		return
	}
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)

	fields := []zap.Field{
		zap.String("trace_id", span.TraceID),
		zap.String("span_id", span.SpanID),
		zap.Duration("duration", span.Duration),
		zap.String("status", span.Status.Code.String()),
	}
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", span.ParentID))
	}
	if len(span.Attributes) > 0 {
		fields = append(fields, zap.Any("attributes", span.Attributes))
	}
	if span.Status.Code == StatusError {
		fields = append(fields, zap.String("error", span.Status.Message))
		t.logger.Warn("span "+span.Name, fields...)
		return
	}
	t.logger.Debug("span "+span.Name, fields...)
}

// RecordMetric logs a metric sample.
func (t *ZapTracer) RecordMetric(name string, value float64, labels map[string]string) {
	t.logger.Debug("metric "+name,
		zap.Float64("value", value),
		zap.Any("labels", labels),
	)
}

// RecordEvent logs a standalone event, linked to the current span if any.
func (t *ZapTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	fields := []zap.Field{zap.Any("attributes", attributes)}
	if span := SpanFromContext(ctx); span != nil {
		fields = append(fields, zap.String("trace_id", span.TraceID), zap.String("span_id", span.SpanID))
	}
	t.logger.Info("event "+name, fields...)
}

// Flush syncs the underlying logger.
func (t *ZapTracer) Flush(ctx context.Context) error {
	// Sync on stderr sinks returns ENOTTY; that is not worth surfacing.
	_ = t.logger.Sync()
	return nil
}

// Ensure ZapTracer implements Tracer interface.
var _ Tracer = (*ZapTracer)(nil)
