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

// Package anthropic implements the Provider interface on top of the
// official Anthropic Messages SDK.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/teradata-labs/bobbin/pkg/llm"
	"github.com/teradata-labs/bobbin/pkg/tool"
	"github.com/teradata-labs/bobbin/pkg/types"
)

const (
	// DefaultModel is the default Claude model
	DefaultModel = "claude-sonnet-4-5-20250929"
	// DefaultMaxTokens is the default maximum tokens per request
	DefaultMaxTokens = 4096
	// DefaultTemperature is the default sampling temperature
	DefaultTemperature = 1.0
	// DefaultTimeout is the default per-request timeout
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey      string // Default: ANTHROPIC_API_KEY env var (read by the SDK)
	Model       string // Default: claude-sonnet-4-5-20250929
	BaseURL     string // Default: the public API endpoint
	Timeout     time.Duration
	MaxTokens   int     // Default: 4096
	Temperature float64 // Default: 1.0
}

// Client implements the Provider interface for Anthropic's Claude API.
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

// New creates a new Anthropic client.
func New(cfg Config) *Client {
	if cfg.Model == "" {
		// Check environment variable first, then use default
		if envModel := os.Getenv("ANTHROPIC_DEFAULT_MODEL"); envModel != "" {
			cfg.Model = envModel
		} else {
			cfg.Model = DefaultModel
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("ANTHROPIC_API_ENDPOINT")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	opts := []option.RequestOption{option.WithRequestTimeout(cfg.Timeout)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "anthropic"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a conversation to Claude and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []tool.Schema) (*types.Completion, error) {
	startTime := time.Now()

	system, apiMessages := convertMessages(messages)

	// Validate that we have at least one message
	if len(apiMessages) == 0 {
		return nil, llm.Fatal(fmt.Errorf("no valid messages to send (messages may be empty)"))
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		Messages:    apiMessages,
		MaxTokens:   int64(c.maxTokens),
		Temperature: anthropic.Float(c.temperature),
	}

	// System turns travel in the separate system field
	if len(system) > 0 {
		params.System = system
	}

	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages call failed: %w", classifyErr(err))
	}

	completion := &types.Completion{
		StopReason: mapStopReason(resp.StopReason),
		Usage: types.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		Metadata: map[string]interface{}{
			"model":       string(resp.Model),
			"stop_reason": string(resp.StopReason),
			"latency_ms":  time.Since(startTime).Milliseconds(),
		},
	}

	// Extract content, separated reasoning, and tool calls
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			completion.Content += b.Text

		case anthropic.ThinkingBlock:
			completion.Thinking += b.Thinking

		case anthropic.ToolUseBlock:
			input := make(map[string]interface{})
			if raw := b.JSON.Input.Raw(); raw != "" {
				_ = json.Unmarshal([]byte(raw), &input)
			}
			completion.ToolCalls = append(completion.ToolCalls, types.ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: input,
			})
		}
	}

	return completion, nil
}

// convertMessages converts conversation turns to Messages API parameters.
// System turns are combined and returned separately; the API requires them
// outside the messages array. Tool results arrive pre-batched, so each
// tool_result turn maps to one user message with its blocks in order.
func convertMessages(messages []types.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var systemPrompts []string
	var apiMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			if msg.Content != "" {
				systemPrompts = append(systemPrompts, msg.Content)
			}

		case types.RoleUser:
			if msg.Content == "" {
				continue
			}
			apiMessages = append(apiMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))

		case types.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion

			// Add text content if present
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}

			// Add tool calls
			for _, tc := range msg.ToolCalls {
				// The API rejects null tool input; send an empty object
				tcInput := tc.Input
				if tcInput == nil {
					tcInput = map[string]interface{}{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tcInput, tc.Name))
			}

			if len(blocks) > 0 {
				apiMessages = append(apiMessages, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: blocks,
				})
			}

		case types.RoleToolResult:
			if len(msg.Results) == 0 {
				continue
			}
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Results))
			for _, res := range msg.Results {
				blocks = append(blocks, convertToolResult(res))
			}
			apiMessages = append(apiMessages, anthropic.NewUserMessage(blocks...))
		}
	}

	if len(systemPrompts) == 0 {
		return nil, apiMessages
	}
	return []anthropic.TextBlockParam{
		{Text: strings.Join(systemPrompts, "\n\n")},
	}, apiMessages
}

// convertToolResult converts one execution outcome to a tool_result block.
// The structured result is serialized verbatim so the model sees the same
// shape the handler produced.
func convertToolResult(res types.ToolResultBlock) anthropic.ContentBlockParamUnion {
	content := "{}"
	if res.Result != nil {
		if data, err := json.Marshal(res.Result); err == nil {
			content = string(data)
		}
	}
	isError := res.Result != nil && !res.Result.Success

	return anthropic.NewToolResultBlock(res.ToolUseID, content, isError)
}

// convertTools converts tool schemas to Messages API tool parameters.
func convertTools(tools []tool.Schema) []anthropic.ToolUnionParam {
	apiTools := make([]anthropic.ToolUnionParam, 0, len(tools))

	for _, t := range tools {
		toolParam := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
		}

		if t.Parameters != nil {
			toolParam.InputSchema = anthropic.ToolInputSchemaParam{
				Properties: t.Parameters.Properties,
				Required:   t.Parameters.Required,
			}
		} else {
			toolParam.InputSchema = anthropic.ToolInputSchemaParam{
				Properties: map[string]*tool.JSONSchema{},
			}
		}

		apiTools = append(apiTools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}

	return apiTools
}

// mapStopReason converts an API stop reason to the conversation-level
// value. Unknown reasons pass through verbatim; anything that is not a
// tool-use request is treated as terminal downstream.
func mapStopReason(reason anthropic.StopReason) types.StopReason {
	switch reason {
	case anthropic.StopReasonToolUse:
		return types.StopToolUse
	case anthropic.StopReasonEndTurn:
		return types.StopEndTurn
	case anthropic.StopReasonMaxTokens:
		return types.StopMaxTokens
	default:
		return types.StopReason(reason)
	}
}

// classifyErr marks errors that retrying cannot fix. Malformed requests,
// bad credentials, and unknown models fail the same way every time; rate
// limits and server trouble stay retryable.
func classifyErr(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return llm.Fatal(err)
		}
	}
	return err
}

// Ensure Client implements the Provider interface
var _ types.Provider = (*Client)(nil)
