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

// Package store provides persistent session storage for conversation
// snapshots and reasoning traces.
//
// Two backends are available: SQLiteStore for local single-process
// deployments and DynamoStore for shared infrastructure. Both implement
// the Store interface and share the same record model: each save appends
// a timestamped record, and loads read the most recent one. Concurrent
// writers therefore converge on last-writer-wins without coordination.
//
// Records carry an optional expiration time. An expired record is treated
// exactly like a missing one, so an expired session silently starts fresh
// rather than failing.
//
// Wrap any backend in Resilient to add bounded exponential backoff with
// jitter. After retries are exhausted the wrapper returns UnavailableError,
// which callers should treat as "continue without persistence" rather than
// a fatal condition.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/teradata-labs/bobbin/pkg/observability"
)

// Store persists conversation snapshots and reasoning traces keyed by
// session ID. Payloads are opaque JSON blobs; the store never inspects them.
//
// Load methods return found=false (with a nil error) when no live record
// exists for the session, including when the most recent record has expired.
type Store interface {
	// SaveMessages appends a conversation snapshot for the session.
	SaveMessages(ctx context.Context, sessionID string, snapshot []byte) error

	// LoadMessages returns the most recent conversation snapshot.
	LoadMessages(ctx context.Context, sessionID string) ([]byte, bool, error)

	// SaveReasoning writes a reasoning trace for the session, keyed by the
	// invocation's start time. Saving again with the same startedAt replaces
	// the record in place, so incremental updates during one run collapse to
	// a single history entry.
	SaveReasoning(ctx context.Context, sessionID string, startedAt time.Time, trace []byte) error

	// LoadReasoning returns the most recent reasoning trace.
	LoadReasoning(ctx context.Context, sessionID string) ([]byte, bool, error)

	// LoadReasoningHistory returns all live reasoning traces for the session,
	// oldest first. Returns an empty slice when none exist.
	LoadReasoningHistory(ctx context.Context, sessionID string) ([][]byte, error)

	// Close releases backend resources.
	Close() error
}

// UnavailableError indicates the backing store could not be reached after
// exhausting retries. Callers should degrade to running without persistence
// instead of aborting.
type UnavailableError struct {
	Backend string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s store unavailable: %v", e.Backend, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err (or anything it wraps) is an
// UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Record key prefixes. A session's conversation and reasoning records live
// under separate partition keys so they can be loaded independently.
const (
	messagesPrefix  = "messages#"
	reasoningPrefix = "reasoning#"
)

func messagesKey(sessionID string) string {
	return messagesPrefix + sessionID
}

func reasoningKey(sessionID string) string {
	return reasoningPrefix + sessionID
}

// RetryConfig controls the Resilient wrapper's backoff behavior.
type RetryConfig struct {
	// MaxTries is the total number of attempts per operation (first try
	// included). Default: 3.
	MaxTries uint

	// InitialInterval is the delay before the first retry. Subsequent delays
	// grow exponentially with randomized jitter. Default: 200ms.
	InitialInterval time.Duration

	// MaxInterval caps the delay between retries. Default: 2s.
	MaxInterval time.Duration
}

// DefaultRetryConfig returns the retry settings used when none are provided.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Resilient wraps a Store with bounded exponential backoff retries.
//
// Every operation (except Close) is retried on error with jittered
// exponential delays. Once retries are exhausted the underlying error is
// wrapped in UnavailableError. Context cancellation stops retrying
// immediately and is returned as-is, never as UnavailableError.
type Resilient struct {
	inner   Store
	backend string
	cfg     RetryConfig
	tracer  observability.Tracer
	logger  *zap.Logger
}

// NewResilient wraps inner with retry behavior. The backend name appears in
// log fields and UnavailableError messages. A nil logger falls back to the
// global zap logger; a nil tracer disables retry metrics.
func NewResilient(inner Store, backend string, cfg RetryConfig, tracer observability.Tracer, logger *zap.Logger) *Resilient {
	if cfg.MaxTries == 0 {
		cfg.MaxTries = DefaultRetryConfig().MaxTries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultRetryConfig().InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultRetryConfig().MaxInterval
	}
	if tracer == nil {
		tracer = observability.NewNoOpTracer()
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Resilient{
		inner:   inner,
		backend: backend,
		cfg:     cfg,
		tracer:  tracer,
		logger:  logger,
	}
}

// SaveMessages implements Store.
func (r *Resilient) SaveMessages(ctx context.Context, sessionID string, snapshot []byte) error {
	_, err := retryOp(ctx, r, "save_messages", func() (struct{}, error) {
		return struct{}{}, r.inner.SaveMessages(ctx, sessionID, snapshot)
	})
	return err
}

// LoadMessages implements Store.
func (r *Resilient) LoadMessages(ctx context.Context, sessionID string) ([]byte, bool, error) {
	out, err := retryOp(ctx, r, "load_messages", func() (loadResult, error) {
		data, found, err := r.inner.LoadMessages(ctx, sessionID)
		return loadResult{data: data, found: found}, err
	})
	return out.data, out.found, err
}

// SaveReasoning implements Store.
func (r *Resilient) SaveReasoning(ctx context.Context, sessionID string, startedAt time.Time, trace []byte) error {
	_, err := retryOp(ctx, r, "save_reasoning", func() (struct{}, error) {
		return struct{}{}, r.inner.SaveReasoning(ctx, sessionID, startedAt, trace)
	})
	return err
}

// LoadReasoning implements Store.
func (r *Resilient) LoadReasoning(ctx context.Context, sessionID string) ([]byte, bool, error) {
	out, err := retryOp(ctx, r, "load_reasoning", func() (loadResult, error) {
		data, found, err := r.inner.LoadReasoning(ctx, sessionID)
		return loadResult{data: data, found: found}, err
	})
	return out.data, out.found, err
}

// LoadReasoningHistory implements Store.
func (r *Resilient) LoadReasoningHistory(ctx context.Context, sessionID string) ([][]byte, error) {
	return retryOp(ctx, r, "load_reasoning_history", func() ([][]byte, error) {
		return r.inner.LoadReasoningHistory(ctx, sessionID)
	})
}

// Close implements Store. Close is never retried.
func (r *Resilient) Close() error {
	return r.inner.Close()
}

type loadResult struct {
	data  []byte
	found bool
}

// retryOp runs op with the wrapper's backoff policy. Generic because Store
// operations return different shapes; Go methods cannot have type parameters.
func retryOp[T any](ctx context.Context, r *Resilient, opName string, op func() (T, error)) (T, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.cfg.InitialInterval
	expo.MaxInterval = r.cfg.MaxInterval

	notify := func(err error, delay time.Duration) {
		r.tracer.RecordMetric(observability.MetricStoreRetries, 1, map[string]string{
			"backend": r.backend,
			"op":      opName,
		})
		r.logger.Warn("store operation failed, retrying",
			zap.String("backend", r.backend),
			zap.String("op", opName),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(r.cfg.MaxTries),
		backoff.WithNotify(notify),
	)
	if err != nil {
		// Cancellation is not a storage outage.
		if ctx.Err() != nil {
			return out, err
		}
		r.tracer.RecordMetric(observability.MetricStoreErrors, 1, map[string]string{
			"backend": r.backend,
			"op":      opName,
		})
		r.logger.Error("store retries exhausted",
			zap.String("backend", r.backend),
			zap.String("op", opName),
			zap.Uint("max_tries", r.cfg.MaxTries),
			zap.Error(err),
		)
		return out, &UnavailableError{Backend: r.backend, Err: err}
	}
	return out, nil
}
