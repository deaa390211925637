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
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/bobbin/pkg/observability"
	"github.com/teradata-labs/bobbin/pkg/store"
)

// DefaultPersistTimeout bounds each detached trace write.
const DefaultPersistTimeout = 10 * time.Second

// Config holds recorder configuration.
type Config struct {
	// Store persists traces. Nil disables persistence entirely.
	Store store.Store

	// RealTime persists the partial trace after every recorded step instead
	// of once after Finalize.
	RealTime bool

	// PersistTimeout bounds each detached write. Default: 10s.
	PersistTimeout time.Duration

	// Logger receives persistence failures. Nil falls back to the global
	// zap logger.
	Logger *zap.Logger

	// Tracer receives a span per persistence attempt. Nil disables tracing.
	Tracer observability.Tracer
}

// Recorder accumulates a Trace across the orchestration loop and optionally
// persists it.
//
// Persistence is best-effort by contract: failures are logged and never
// surfaced to the loop. In real-time mode every recorded step triggers a
// detached write of the partial trace; every write for one invocation uses
// the invocation's start time as its key, so incremental updates overwrite
// a single stored record rather than fragmenting the history.
type Recorder struct {
	store    store.Store
	realTime bool
	timeout  time.Duration
	logger   *zap.Logger
	tracer   observability.Tracer

	mu        sync.Mutex
	sessionID string
	startedAt time.Time
	trace     *Trace
	pending   sync.WaitGroup
}

// NewRecorder creates a recorder. The zero Config gives a purely in-memory
// recorder that never persists.
func NewRecorder(cfg Config) *Recorder {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultPersistTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoOpTracer()
	}
	return &Recorder{
		store:    cfg.Store,
		realTime: cfg.RealTime,
		timeout:  cfg.PersistTimeout,
		logger:   cfg.Logger,
		tracer:   cfg.Tracer,
	}
}

// Begin resets the recorder for a new invocation. An empty sessionID
// disables persistence for this run; the trace is still accumulated and
// returned by Finalize.
func (r *Recorder) Begin(sessionID, query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = sessionID
	r.startedAt = time.Now()
	r.trace = &Trace{Query: query, Steps: []Step{}}
}

// RecordStep appends one step to the trace. In real-time mode the partial
// trace is written by a detached goroutine; the caller never waits on it.
func (r *Recorder) RecordStep(thinking string, toolCalls []ToolCall) {
	r.mu.Lock()
	if r.trace == nil {
		r.mu.Unlock()
		return
	}
	r.trace.Steps = append(r.trace.Steps, Step{Thinking: thinking, ToolCalls: toolCalls})

	if !r.realTime || !r.persistableLocked() {
		r.mu.Unlock()
		return
	}
	data, ok := r.encodeLocked()
	sessionID, startedAt := r.sessionID, r.startedAt
	r.mu.Unlock()
	if !ok {
		return
	}

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.persist(ctx, sessionID, startedAt, data)
	}()
}

// MarkDegraded flags the trace as having hit the iteration limit.
func (r *Recorder) MarkDegraded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.trace != nil {
		r.trace.Degraded = true
	}
}

// Finalize seals the trace with the closing thinking text and the final
// response, sets TotalSteps, and returns the trace. In-flight real-time
// writes are allowed to land first so the sealed trace is the last write;
// the final persist itself is synchronous but still best-effort. Returns
// nil if Begin was never called.
func (r *Recorder) Finalize(ctx context.Context, thinking, response string) *Trace {
	r.mu.Lock()
	if r.trace == nil {
		r.mu.Unlock()
		return nil
	}
	r.trace.FinalThinking = thinking
	r.trace.FinalResponse = response
	r.trace.TotalSteps = len(r.trace.Steps)
	trace := r.trace

	persist := r.persistableLocked()
	var data []byte
	if persist {
		data, persist = r.encodeLocked()
	}
	sessionID, startedAt := r.sessionID, r.startedAt
	r.mu.Unlock()

	if persist {
		r.pending.Wait()
		r.persist(ctx, sessionID, startedAt, data)
	}
	return trace
}

// persistableLocked reports whether this run's trace can be stored.
func (r *Recorder) persistableLocked() bool {
	return r.store != nil && r.sessionID != "" && r.trace != nil
}

// encodeLocked marshals the current trace. Traces hold only JSON-clean
// data, so a failure here is logged and the write skipped.
func (r *Recorder) encodeLocked() ([]byte, bool) {
	data, err := json.Marshal(r.trace)
	if err != nil {
		r.logger.Error("failed to encode reasoning trace",
			zap.String("session_id", r.sessionID),
			zap.Error(err))
		return nil, false
	}
	return data, true
}

// persist writes one trace snapshot. Failures are logged, never returned.
func (r *Recorder) persist(ctx context.Context, sessionID string, startedAt time.Time, data []byte) {
	ctx, span := r.tracer.StartSpan(ctx, observability.SpanReasoningPersist,
		observability.WithAttribute(observability.AttrSessionID, sessionID))
	defer r.tracer.EndSpan(span)

	if err := r.store.SaveReasoning(ctx, sessionID, startedAt, data); err != nil {
		span.RecordError(err)
		r.logger.Warn("failed to persist reasoning trace",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}
	span.SetAttribute("trace_bytes", fmt.Sprintf("%d", len(data)))
}
