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
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTracer captures all finished spans and metrics for inspection in
// tests. Thread-safe.
type MockTracer struct {
	mu      sync.RWMutex
	spans   []*Span
	metrics map[string][]float64
}

// NewMockTracer creates a new mock tracer for testing.
func NewMockTracer() *MockTracer {
	return &MockTracer{
		metrics: make(map[string][]float64),
	}
}

// StartSpan creates a new span and links it to any parent in the context.
func (m *MockTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span) {
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

// EndSpan completes the span and stores it.
func (m *MockTracer) EndSpan(span *Span) {
	if span == nil {
		return
	}
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.spans = append(m.spans, span)
}

// RecordMetric stores the metric sample.
func (m *MockTracer) RecordMetric(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[name] = append(m.metrics[name], value)
}

// RecordEvent is a no-op for the mock.
func (m *MockTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

// Flush is a no-op for the mock.
func (m *MockTracer) Flush(ctx context.Context) error {
	return nil
}

// Spans returns all captured spans.
func (m *MockTracer) Spans() []*Span {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Span(nil), m.spans...)
}

// SpansByName finds all captured spans with the given name.
func (m *MockTracer) SpansByName(name string) []*Span {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Span
	for _, span := range m.spans {
		if span.Name == name {
			result = append(result, span)
		}
	}
	return result
}

// MetricValues returns all recorded samples for a metric name.
func (m *MockTracer) MetricValues(name string) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.metrics[name]...)
}

// Reset clears all captured spans and metrics.
func (m *MockTracer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spans = nil
	m.metrics = make(map[string][]float64)
}

// Ensure MockTracer implements Tracer interface
var _ Tracer = (*MockTracer)(nil)
