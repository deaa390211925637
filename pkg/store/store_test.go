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
package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/bobbin/pkg/observability"
)

var errBoom = errors.New("backend exploded")

// flakyStore fails every operation until a set number of calls have
// happened, then behaves like an in-memory store.
type flakyStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	closes   int
	closeErr error
	data     map[string][]byte
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{
		failures: failures,
		data:     make(map[string][]byte),
	}
}

func (f *flakyStore) attempt() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errBoom
	}
	return nil
}

func (f *flakyStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *flakyStore) SaveMessages(ctx context.Context, sessionID string, snapshot []byte) error {
	if err := f.attempt(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[messagesKey(sessionID)] = snapshot
	return nil
}

func (f *flakyStore) LoadMessages(ctx context.Context, sessionID string) ([]byte, bool, error) {
	if err := f.attempt(); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, found := f.data[messagesKey(sessionID)]
	return data, found, nil
}

func (f *flakyStore) SaveReasoning(ctx context.Context, sessionID string, startedAt time.Time, trace []byte) error {
	if err := f.attempt(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[reasoningKey(sessionID)] = trace
	return nil
}

func (f *flakyStore) LoadReasoning(ctx context.Context, sessionID string) ([]byte, bool, error) {
	if err := f.attempt(); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, found := f.data[reasoningKey(sessionID)]
	return data, found, nil
}

func (f *flakyStore) LoadReasoningHistory(ctx context.Context, sessionID string) ([][]byte, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, found := f.data[reasoningKey(sessionID)]; found {
		return [][]byte{data}, nil
	}
	return [][]byte{}, nil
}

func (f *flakyStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return f.closeErr
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestResilient_RetriesTransientFailures(t *testing.T) {
	inner := newFlakyStore(2)
	r := NewResilient(inner, "test", fastRetryConfig(), nil, nil)

	err := r.SaveMessages(context.Background(), "sess-1", []byte(`["snapshot"]`))
	require.NoError(t, err)
	assert.Equal(t, 3, inner.callCount(), "two failures then one success")
}

func TestResilient_ExhaustionReturnsUnavailable(t *testing.T) {
	inner := newFlakyStore(100)
	r := NewResilient(inner, "test", fastRetryConfig(), nil, nil)

	err := r.SaveMessages(context.Background(), "sess-1", []byte(`["snapshot"]`))
	require.Error(t, err)

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "test", ue.Backend)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 3, inner.callCount(), "should stop after max tries")
}

func TestResilient_LoadPassesThroughResults(t *testing.T) {
	inner := newFlakyStore(0)
	r := NewResilient(inner, "test", fastRetryConfig(), nil, nil)
	ctx := context.Background()

	require.NoError(t, r.SaveMessages(ctx, "sess-1", []byte(`["snapshot"]`)))

	data, found, err := r.LoadMessages(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`["snapshot"]`), data)

	_, found, err = r.LoadMessages(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.SaveReasoning(ctx, "sess-1", time.Now(), []byte(`{"run":1}`)))
	history, err := r.LoadReasoningHistory(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, []byte(`{"run":1}`), history[0])
}

func TestResilient_CancellationIsNotUnavailable(t *testing.T) {
	inner := newFlakyStore(100)
	r := NewResilient(inner, "test", fastRetryConfig(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.SaveMessages(ctx, "sess-1", []byte(`["snapshot"]`))
	require.Error(t, err)
	assert.False(t, IsUnavailable(err), "cancellation should not be reported as a storage outage")
}

func TestResilient_RecordsRetryMetrics(t *testing.T) {
	tracer := observability.NewMockTracer()

	inner := newFlakyStore(1)
	r := NewResilient(inner, "test", fastRetryConfig(), tracer, nil)
	require.NoError(t, r.SaveMessages(context.Background(), "sess-1", []byte(`[]`)))
	assert.Len(t, tracer.MetricValues(observability.MetricStoreRetries), 1)
	assert.Empty(t, tracer.MetricValues(observability.MetricStoreErrors))

	tracer.Reset()
	exhausted := newFlakyStore(100)
	r = NewResilient(exhausted, "test", fastRetryConfig(), tracer, nil)
	require.Error(t, r.SaveMessages(context.Background(), "sess-1", []byte(`[]`)))
	assert.Len(t, tracer.MetricValues(observability.MetricStoreRetries), 2, "one per retry after the first attempt")
	assert.Len(t, tracer.MetricValues(observability.MetricStoreErrors), 1)
}

func TestResilient_CloseNotRetried(t *testing.T) {
	inner := newFlakyStore(0)
	inner.closeErr = errBoom
	r := NewResilient(inner, "test", fastRetryConfig(), nil, nil)

	err := r.Close()
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, IsUnavailable(err))
	assert.Equal(t, 1, inner.closes)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, uint(3), cfg.MaxTries)
	assert.Equal(t, 200*time.Millisecond, cfg.InitialInterval)
	assert.Equal(t, 2*time.Second, cfg.MaxInterval)
}

func TestStoreInterfaces(t *testing.T) {
	var _ Store = (*SQLiteStore)(nil)
	var _ Store = (*DynamoStore)(nil)
	var _ Store = (*Resilient)(nil)
}
