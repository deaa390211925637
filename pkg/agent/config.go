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
package agent

import (
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/bobbin/pkg/observability"
	"github.com/teradata-labs/bobbin/pkg/store"
	"github.com/teradata-labs/bobbin/pkg/tool"
	"github.com/teradata-labs/bobbin/pkg/types"
)

// Default configuration values.
const (
	// DefaultMaxIterations caps model round-trips per Run.
	DefaultMaxIterations = 10

	// DefaultSessionTTL is how long saved sessions stay live.
	DefaultSessionTTL = time.Hour
)

// Config holds agent configuration. New captures it by value, so changing
// the caller's copy after construction has no effect on a running agent.
type Config struct {
	// Tools are registered before the first model call. Registration
	// failures (duplicate names, invalid schemas) fail New; tools cannot be
	// added or removed mid-invocation.
	Tools []*tool.Tool

	// SystemPrompt is sent as the system turn of every model request.
	// Empty means no system turn.
	SystemPrompt string

	// ModelID selects the Bedrock model. Empty defers to the provider's
	// resolution: AWS_BEDROCK_MODEL_ID, then us.amazon.nova-pro-v1:0.
	ModelID string

	// BedrockRegion is the AWS region for model calls. Empty defers to the
	// provider's resolution: AWS_DEFAULT_REGION, then us-west-2.
	BedrockRegion string

	// MemoryRegion is the AWS region for the session table. Defaults to
	// BedrockRegion.
	MemoryRegion string

	// UseSessionMemory enables conversation and reasoning persistence in
	// DynamoDB. Setting SessionTable implies it.
	UseSessionMemory bool

	// SessionTable is the DynamoDB table for session records. Default:
	// bobbin-sessions. A non-empty value also enables session memory.
	SessionTable string

	// SessionTTL is how long saved session records stay live. Every save
	// refreshes the expiry. Default: 1h.
	SessionTTL time.Duration

	// RealTimeReasoning persists the partial reasoning trace after every
	// step instead of once at the end of the run.
	RealTimeReasoning bool

	// MaxIterations caps model round-trips per Run. Hitting the cap forces
	// a synthetic final answer instead of looping forever. Default: 10.
	MaxIterations int

	// Retry configures backoff for transient model call failures. The zero
	// value selects DefaultRetryConfig.
	Retry RetryConfig

	// Logger receives structured logs. Nil falls back to the global zap
	// logger.
	Logger *zap.Logger

	// Tracer receives spans and metrics for every run, model call, tool
	// execution, and store operation. Nil disables tracing.
	Tracer observability.Tracer

	// Provider overrides the Bedrock provider built from ModelID and
	// BedrockRegion. Used to swap in the Anthropic provider or a test
	// double.
	Provider types.Provider

	// Store overrides the DynamoDB store built from SessionTable and
	// MemoryRegion. A non-nil Store enables session memory on its own.
	Store store.Store
}

// RetryConfig configures exponential backoff retry for model calls.
// Transient failures (throttling, timeouts, service faults) burn attempts;
// fatal failures and context cancellation stop immediately.
type RetryConfig struct {
	// Enabled turns retry on. Disabled means every failure surfaces after
	// one attempt.
	Enabled bool

	// MaxRetries is the number of retry attempts after the first call.
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier grows the delay after each retry (2.0 doubles it).
	Multiplier float64
}

// DefaultRetryConfig returns the retry settings used when none are
// provided.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Enabled:      true,
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}
