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

// Package conversation holds the ordered turn log for one agent run.
//
// The log alternates between user text, assistant turns that may request
// tool calls, and batched tool-result turns. A tool-result turn always
// answers every call of the immediately preceding assistant turn, in the
// order the calls were requested. Snapshot and Hydrate move the log in and
// out of persistent storage.
package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teradata-labs/bobbin/pkg/types"
)

// ErrResultMismatch is returned when a tool-result batch does not answer
// the pending tool calls of the preceding assistant turn.
var ErrResultMismatch = errors.New("tool results do not match pending tool calls")

// Conversation is an append-only turn log. Appends validate the turn
// against the log's ordering rules; reads return copies so callers can
// never mutate history in place.
type Conversation struct {
	mu    sync.RWMutex
	turns []types.Message
}

// New creates an empty conversation.
func New() *Conversation {
	return &Conversation{}
}

// AppendUser appends a user text turn.
func (c *Conversation) AppendUser(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, types.Message{
		Role:      types.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// AppendAssistant appends an assistant turn with optional tool calls.
func (c *Conversation) AppendAssistant(content string, calls ...types.ToolCall) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, types.Message{
		Role:      types.RoleAssistant,
		Content:   content,
		ToolCalls: append([]types.ToolCall(nil), calls...),
		Timestamp: time.Now(),
	})
}

// AppendToolResults appends one batched tool-result turn. The batch must
// answer every tool call of the immediately preceding assistant turn, in
// request order; anything else returns ErrResultMismatch.
func (c *Conversation) AppendToolResults(results []types.ToolResultBlock) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.pendingLocked()
	if len(pending) == 0 {
		return fmt.Errorf("%w: no assistant turn awaiting results", ErrResultMismatch)
	}
	if len(results) != len(pending) {
		return fmt.Errorf("%w: got %d results for %d calls", ErrResultMismatch, len(results), len(pending))
	}
	for i, call := range pending {
		if results[i].ToolUseID != call.ID {
			return fmt.Errorf("%w: result %d answers %q, expected %q", ErrResultMismatch, i, results[i].ToolUseID, call.ID)
		}
	}

	c.turns = append(c.turns, types.Message{
		Role:      types.RoleToolResult,
		Results:   append([]types.ToolResultBlock(nil), results...),
		Timestamp: time.Now(),
	})
	return nil
}

// PendingToolCalls returns the tool calls of the last assistant turn when
// they have not been answered yet, in request order.
func (c *Conversation) PendingToolCalls() []types.ToolCall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.ToolCall(nil), c.pendingLocked()...)
}

func (c *Conversation) pendingLocked() []types.ToolCall {
	if len(c.turns) == 0 {
		return nil
	}
	last := c.turns[len(c.turns)-1]
	if last.Role != types.RoleAssistant || len(last.ToolCalls) == 0 {
		return nil
	}
	return last.ToolCalls
}

// Turns returns a copy of the turn log.
func (c *Conversation) Turns() []types.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.Message(nil), c.turns...)
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Last returns the most recent turn.
func (c *Conversation) Last() (types.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.turns) == 0 {
		return types.Message{}, false
	}
	return c.turns[len(c.turns)-1], true
}

// Snapshot serializes the turn log to JSON for persistence.
func (c *Conversation) Snapshot() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := json.Marshal(c.turns)
	if err != nil {
		return nil, fmt.Errorf("snapshot conversation: %w", err)
	}
	return data, nil
}

// Hydrate rebuilds a conversation from a Snapshot payload. An empty
// payload yields an empty conversation.
func Hydrate(data []byte) (*Conversation, error) {
	c := New()
	if len(data) == 0 {
		return c, nil
	}

	var turns []types.Message
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("hydrate conversation: %w", err)
	}
	c.turns = turns
	return c, nil
}
