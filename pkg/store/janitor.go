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
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultJanitorSchedule prunes every 10 minutes.
const DefaultJanitorSchedule = "*/10 * * * *"

// Janitor deletes expired records from a SQLiteStore on a cron schedule.
// Reads already treat expired records as absent, so the janitor only
// reclaims disk space. DynamoDB deployments don't need one; native TTL
// deletes expired items there.
type Janitor struct {
	store    *SQLiteStore
	schedule cron.Schedule
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewJanitor builds a janitor with a standard 5-field cron expression
// (minute hour dom month dow). An empty spec uses DefaultJanitorSchedule.
// A nil logger falls back to the global zap logger.
func NewJanitor(s *SQLiteStore, spec string, logger *zap.Logger) (*Janitor, error) {
	if spec == "" {
		spec = DefaultJanitorSchedule
	}
	if logger == nil {
		logger = zap.L()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", spec, err)
	}

	return &Janitor{
		store:    s,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start launches the prune loop. An initial prune runs immediately.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return fmt.Errorf("janitor is already running")
	}

	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	go j.run(j.stopCh, j.doneCh)

	j.logger.Info("session janitor started")
	return nil
}

// Stop halts the prune loop and waits for it to exit.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return fmt.Errorf("janitor is not running")
	}
	j.running = false
	close(j.stopCh)
	done := j.doneCh
	j.mu.Unlock()

	<-done
	j.logger.Info("session janitor stopped")
	return nil
}

// IsRunning reports whether the prune loop is active.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// PruneNow immediately removes expired records, outside the schedule.
func (j *Janitor) PruneNow(ctx context.Context) (int64, error) {
	return j.store.PruneExpired(ctx)
}

func (j *Janitor) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	// Run immediately on start
	j.prune()

	for {
		timer := time.NewTimer(time.Until(j.schedule.Next(time.Now())))
		select {
		case <-timer.C:
			j.prune()
		case <-stopCh:
			timer.Stop()
			return
		}
	}
}

func (j *Janitor) prune() {
	pruned, err := j.store.PruneExpired(context.Background())
	if err != nil {
		j.logger.Error("failed to prune expired session records", zap.Error(err))
		return
	}
	if pruned > 0 {
		j.logger.Info("pruned expired session records", zap.Int64("pruned", pruned))
	}
}
