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
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/teradata-labs/bobbin/pkg/llm"
	"github.com/teradata-labs/bobbin/pkg/tool"
	"github.com/teradata-labs/bobbin/pkg/types"
)

// Chat sends a conversation to Bedrock using the Converse API and returns
// the response. Tool results are sent as structured JSON blocks so the
// model sees the same shape the executing handler produced.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []tool.Schema) (*types.Completion, error) {
	startTime := time.Now()

	systemBlocks, converseMessages := convertMessages(messages)

	// Validate that we have at least one message
	if len(converseMessages) == 0 {
		return nil, llm.Fatal(fmt.Errorf("no valid messages to send (messages may be empty)"))
	}

	// Build Converse input
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.modelID),
		Messages: converseMessages,
		InferenceConfig: &bedrocktypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(c.maxTokens)),
			Temperature: aws.Float32(float32(c.temperature)),
		},
	}

	// Add system prompts if present
	if len(systemBlocks) > 0 {
		input.System = systemBlocks
	}

	// Add tools if provided
	if len(tools) > 0 {
		input.ToolConfig = convertTools(tools)
	}

	output, err := c.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse failed: %w", classifyErr(err))
	}

	// Extract response content
	var contentText string
	var toolCalls []types.ToolCall

	if output.Output != nil {
		switch o := output.Output.(type) {
		case *bedrocktypes.ConverseOutputMemberMessage:
			// Extract content blocks from the message
			for _, block := range o.Value.Content {
				switch b := block.(type) {
				case *bedrocktypes.ContentBlockMemberText:
					contentText += b.Value

				case *bedrocktypes.ContentBlockMemberToolUse:
					toolCall := types.ToolCall{
						ID:    aws.ToString(b.Value.ToolUseId),
						Name:  aws.ToString(b.Value.Name),
						Input: make(map[string]interface{}),
					}

					// Convert document.Interface to map[string]interface{}
					if b.Value.Input != nil {
						if inputBytes, err := b.Value.Input.MarshalSmithyDocument(); err == nil {
							_ = json.Unmarshal(inputBytes, &toolCall.Input)
						}
					}

					toolCalls = append(toolCalls, toolCall)
				}
			}
		}
	}

	// Extract usage
	usage := types.Usage{}
	if output.Usage != nil {
		usage.InputTokens = int(aws.ToInt32(output.Usage.InputTokens))
		usage.OutputTokens = int(aws.ToInt32(output.Usage.OutputTokens))
		usage.TotalTokens = int(aws.ToInt32(output.Usage.TotalTokens))
	}

	return &types.Completion{
		Content:    contentText,
		ToolCalls:  toolCalls,
		StopReason: mapStopReason(output.StopReason),
		Usage:      usage,
		Metadata: map[string]interface{}{
			"model":       c.modelID,
			"stop_reason": string(output.StopReason),
			"latency_ms":  time.Since(startTime).Milliseconds(),
		},
	}, nil
}

// convertMessages converts conversation turns to Bedrock Converse format.
// Bedrock requires all tool results from one assistant turn in a single
// user message; tool_result turns arrive pre-batched, so each one maps to
// exactly one user message with its blocks in order.
func convertMessages(messages []types.Message) ([]bedrocktypes.SystemContentBlock, []bedrocktypes.Message) {
	var systemBlocks []bedrocktypes.SystemContentBlock
	var converseMessages []bedrocktypes.Message

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			// System messages go in the separate system field
			if msg.Content != "" {
				systemBlocks = append(systemBlocks, &bedrocktypes.SystemContentBlockMemberText{
					Value: msg.Content,
				})
			}

		case types.RoleUser:
			if msg.Content == "" {
				continue
			}
			converseMessages = append(converseMessages, bedrocktypes.Message{
				Role: bedrocktypes.ConversationRoleUser,
				Content: []bedrocktypes.ContentBlock{
					&bedrocktypes.ContentBlockMemberText{Value: msg.Content},
				},
			})

		case types.RoleAssistant:
			var contentBlocks []bedrocktypes.ContentBlock

			// Add text content if present
			if msg.Content != "" {
				contentBlocks = append(contentBlocks, &bedrocktypes.ContentBlockMemberText{
					Value: msg.Content,
				})
			}

			// Add tool calls
			for _, tc := range msg.ToolCalls {
				// Bedrock rejects null tool input; ensure it is never nil
				tcInput := tc.Input
				if tcInput == nil {
					tcInput = map[string]interface{}{}
				}

				contentBlocks = append(contentBlocks, &bedrocktypes.ContentBlockMemberToolUse{
					Value: bedrocktypes.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Name),
						Input:     document.NewLazyDocument(tcInput),
					},
				})
			}

			if len(contentBlocks) > 0 {
				converseMessages = append(converseMessages, bedrocktypes.Message{
					Role:    bedrocktypes.ConversationRoleAssistant,
					Content: contentBlocks,
				})
			}

		case types.RoleToolResult:
			if len(msg.Results) == 0 {
				continue
			}
			contentBlocks := make([]bedrocktypes.ContentBlock, 0, len(msg.Results))
			for _, res := range msg.Results {
				contentBlocks = append(contentBlocks, convertToolResult(res))
			}
			converseMessages = append(converseMessages, bedrocktypes.Message{
				Role:    bedrocktypes.ConversationRoleUser,
				Content: contentBlocks,
			})
		}
	}

	return systemBlocks, converseMessages
}

// convertToolResult converts one execution outcome to a Converse tool
// result block.
func convertToolResult(res types.ToolResultBlock) bedrocktypes.ContentBlock {
	// Round-trip the structured result through JSON; lazy documents only
	// accept generic maps and primitives
	payload := map[string]interface{}{}
	if res.Result != nil {
		if data, err := json.Marshal(res.Result); err == nil {
			_ = json.Unmarshal(data, &payload)
		}
	}

	block := bedrocktypes.ToolResultBlock{
		ToolUseId: aws.String(res.ToolUseID),
		Content: []bedrocktypes.ToolResultContentBlock{
			&bedrocktypes.ToolResultContentBlockMemberJson{
				Value: document.NewLazyDocument(payload),
			},
		},
	}
	if res.Result != nil && !res.Result.Success {
		block.Status = bedrocktypes.ToolResultStatusError
	}

	return &bedrocktypes.ContentBlockMemberToolResult{Value: block}
}

// convertTools converts tool schemas to a Bedrock Converse ToolConfiguration.
func convertTools(tools []tool.Schema) *bedrocktypes.ToolConfiguration {
	var converseTools []bedrocktypes.Tool

	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = &tool.JSONSchema{Type: "object", Properties: map[string]*tool.JSONSchema{}}
		}

		// Round-trip the schema through JSON into the generic map shape
		// the lazy document serializer expects
		var schemaMap map[string]interface{}
		if data, err := json.Marshal(params); err == nil {
			_ = json.Unmarshal(data, &schemaMap)
		}

		converseTools = append(converseTools, &bedrocktypes.ToolMemberToolSpec{
			Value: bedrocktypes.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &bedrocktypes.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(schemaMap),
				},
			},
		})
	}

	return &bedrocktypes.ToolConfiguration{
		Tools: converseTools,
	}
}

// mapStopReason converts a Bedrock stop reason to the conversation-level
// value. Unknown reasons pass through verbatim; anything that is not a
// tool-use request is treated as terminal downstream.
func mapStopReason(reason bedrocktypes.StopReason) types.StopReason {
	switch reason {
	case bedrocktypes.StopReasonToolUse:
		return types.StopToolUse
	case bedrocktypes.StopReasonEndTurn:
		return types.StopEndTurn
	case bedrocktypes.StopReasonMaxTokens:
		return types.StopMaxTokens
	default:
		return types.StopReason(reason)
	}
}

// classifyErr marks errors that retrying cannot fix. Malformed requests,
// missing permissions, and unknown models fail the same way every time;
// throttles, timeouts, and service hiccups stay retryable.
func classifyErr(err error) error {
	var validationErr *bedrocktypes.ValidationException
	var accessErr *bedrocktypes.AccessDeniedException
	var notFoundErr *bedrocktypes.ResourceNotFoundException

	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &accessErr),
		errors.As(err, &notFoundErr):
		return llm.Fatal(err)
	default:
		return err
	}
}
