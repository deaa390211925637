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
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/bobbin/pkg/llm"
	"github.com/teradata-labs/bobbin/pkg/observability"
	"github.com/teradata-labs/bobbin/pkg/tool"
	"github.com/teradata-labs/bobbin/pkg/types"
)

// chatWithRetry wraps model calls with bounded exponential backoff and
// jitter. Only transient failures burn retry attempts: fatal
// classifications (llm.IsFatal) and context cancellation surface
// immediately, since repeating those calls cannot change the outcome.
func (a *Agent) chatWithRetry(ctx context.Context, messages []types.Message, tools []tool.Schema) (*types.Completion, error) {
	retry := a.config.Retry
	if !retry.Enabled || retry.MaxRetries == 0 {
		return a.provider.Chat(ctx, messages, tools)
	}

	var lastErr error
	delay := retry.InitialDelay

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		completion, err := a.provider.Chat(ctx, messages, tools)
		if err == nil {
			if attempt > 0 {
				a.logger.Info("llm retry succeeded",
					zap.Int("attempt", attempt+1))
			}
			return completion, nil
		}
		lastErr = err

		if llm.IsFatal(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("llm call failed (attempt %d/%d): %w",
				attempt+1, retry.MaxRetries+1, err)
		}
		if attempt >= retry.MaxRetries {
			break
		}

		a.logger.Warn("llm call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", retry.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err))
		a.tracer.RecordMetric(observability.MetricLLMRetries, 1, nil)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("llm call failed (attempt %d/%d): %w (context cancelled during retry)",
				attempt+1, retry.MaxRetries+1, ctx.Err())
		case <-time.After(jitter(delay)):
		}

		delay = time.Duration(float64(delay) * retry.Multiplier)
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
	}

	a.logger.Error("llm retries exhausted",
		zap.Int("max_retries", retry.MaxRetries),
		zap.Error(lastErr))
	return nil, fmt.Errorf("llm call failed after %d attempts: %w",
		retry.MaxRetries+1, lastErr)
}

// jitter spreads a delay across [d/2, d) so simultaneous retries do not
// synchronize against a throttled endpoint.
func jitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := d / 2
	// #nosec G404 -- retry spreading, not security-sensitive
	return half + time.Duration(rand.Int64N(int64(half)))
}
