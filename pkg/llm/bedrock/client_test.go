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
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/bobbin/pkg/llm"
	"github.com/teradata-labs/bobbin/pkg/tool"
	"github.com/teradata-labs/bobbin/pkg/types"
)

// documentToMap round-trips a Converse document back into a generic map.
func documentToMap(t *testing.T, doc interface {
	MarshalSmithyDocument() ([]byte, error)
}) map[string]interface{} {
	t.Helper()

	data, err := doc.MarshalSmithyDocument()
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("AWS_BEDROCK_MODEL_ID", "")
	t.Setenv("BOBBIN_BEDROCK_MODEL_ID", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("BOBBIN_BEDROCK_REGION", "")

	client, err := New(Config{
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
	})
	if err != nil {
		t.Logf("New failed (expected in restricted environments): %v", err)
		return
	}

	require.NotNil(t, client)
	assert.Equal(t, DefaultModelID, client.modelID)
	assert.Equal(t, DefaultRegion, client.region)
	assert.Equal(t, DefaultMaxTokens, client.maxTokens)
	assert.Equal(t, DefaultTemperature, client.temperature)
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("AWS_BEDROCK_MODEL_ID", "us.amazon.nova-lite-v1:0")
	t.Setenv("AWS_DEFAULT_REGION", "eu-central-1")

	client, err := New(Config{
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
	})
	if err != nil {
		t.Logf("New failed (expected in restricted environments): %v", err)
		return
	}

	assert.Equal(t, "us.amazon.nova-lite-v1:0", client.modelID)
	assert.Equal(t, "eu-central-1", client.region)
}

func TestNew_ExplicitConfigWinsOverEnv(t *testing.T) {
	t.Setenv("AWS_BEDROCK_MODEL_ID", "us.amazon.nova-lite-v1:0")

	client, err := New(Config{
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		ModelID:         "us.amazon.nova-pro-v1:0",
		MaxTokens:       2048,
		Temperature:     0.5,
	})
	if err != nil {
		t.Logf("New failed (expected in restricted environments): %v", err)
		return
	}

	assert.Equal(t, "us.amazon.nova-pro-v1:0", client.modelID)
	assert.Equal(t, 2048, client.maxTokens)
	assert.Equal(t, 0.5, client.temperature)
}

func TestClient_NameAndModel(t *testing.T) {
	client := &Client{modelID: "us.amazon.nova-pro-v1:0"}

	assert.Equal(t, "bedrock", client.Name())
	assert.Equal(t, "us.amazon.nova-pro-v1:0", client.Model())
}

func TestConvertMessages(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleSystem, Content: "You are terse."},
		{Role: types.RoleUser, Content: "What's the weather in SF?"},
		{
			Role:    types.RoleAssistant,
			Content: "Let me check.",
			ToolCalls: []types.ToolCall{
				{ID: "tool_123", Name: "get_weather", Input: map[string]interface{}{"city": "SF"}},
			},
		},
	}

	systemBlocks, apiMessages := convertMessages(messages)

	// System turns go in the separate system field, not the message list
	require.Len(t, systemBlocks, 1)
	sys, ok := systemBlocks[0].(*bedrocktypes.SystemContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "You are terse.", sys.Value)

	require.Len(t, apiMessages, 2)

	// First message: user text
	assert.Equal(t, bedrocktypes.ConversationRoleUser, apiMessages[0].Role)
	require.Len(t, apiMessages[0].Content, 1)
	text, ok := apiMessages[0].Content[0].(*bedrocktypes.ContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "What's the weather in SF?", text.Value)

	// Second message: assistant text followed by the tool use block
	assert.Equal(t, bedrocktypes.ConversationRoleAssistant, apiMessages[1].Role)
	require.Len(t, apiMessages[1].Content, 2)

	toolUse, ok := apiMessages[1].Content[1].(*bedrocktypes.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, "tool_123", aws.ToString(toolUse.Value.ToolUseId))
	assert.Equal(t, "get_weather", aws.ToString(toolUse.Value.Name))
	assert.Equal(t, map[string]interface{}{"city": "SF"}, documentToMap(t, toolUse.Value.Input))
}

func TestConvertMessages_NilToolInput(t *testing.T) {
	messages := []types.Message{
		{
			Role:      types.RoleAssistant,
			ToolCalls: []types.ToolCall{{ID: "tool_1", Name: "get_time", Input: nil}},
		},
	}

	_, apiMessages := convertMessages(messages)

	require.Len(t, apiMessages, 1)
	toolUse, ok := apiMessages[0].Content[0].(*bedrocktypes.ContentBlockMemberToolUse)
	require.True(t, ok)

	// Bedrock rejects null input; it must serialize as an empty object
	assert.Equal(t, map[string]interface{}{}, documentToMap(t, toolUse.Value.Input))
}

func TestConvertMessages_BatchedToolResults(t *testing.T) {
	messages := []types.Message{
		{
			Role: types.RoleToolResult,
			Results: []types.ToolResultBlock{
				{
					ToolUseID: "tool_a",
					Name:      "get_weather",
					Result:    &tool.Result{Success: true, Data: map[string]interface{}{"temp": "72F"}},
				},
				{
					ToolUseID: "tool_b",
					Name:      "get_time",
					Result: &tool.Result{
						Success: false,
						Error:   &tool.Error{Code: "TIMEOUT", Message: "upstream timed out"},
					},
				},
			},
		},
	}

	_, apiMessages := convertMessages(messages)

	// Both results land in one user message, in request order
	require.Len(t, apiMessages, 1)
	assert.Equal(t, bedrocktypes.ConversationRoleUser, apiMessages[0].Role)
	require.Len(t, apiMessages[0].Content, 2)

	first, ok := apiMessages[0].Content[0].(*bedrocktypes.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, "tool_a", aws.ToString(first.Value.ToolUseId))
	assert.Empty(t, first.Value.Status)

	require.Len(t, first.Value.Content, 1)
	jsonBlock, ok := first.Value.Content[0].(*bedrocktypes.ToolResultContentBlockMemberJson)
	require.True(t, ok)
	payload := documentToMap(t, jsonBlock.Value)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, map[string]interface{}{"temp": "72F"}, payload["data"])

	second, ok := apiMessages[0].Content[1].(*bedrocktypes.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, "tool_b", aws.ToString(second.Value.ToolUseId))
	assert.Equal(t, bedrocktypes.ToolResultStatusError, second.Value.Status)

	jsonBlock, ok = second.Value.Content[0].(*bedrocktypes.ToolResultContentBlockMemberJson)
	require.True(t, ok)
	payload = documentToMap(t, jsonBlock.Value)
	assert.Equal(t, false, payload["success"])
	require.NotNil(t, payload["error"])
	assert.Equal(t, "TIMEOUT", payload["error"].(map[string]interface{})["code"])
}

func TestConvertMessages_SkipsEmptyTurns(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleUser, Content: ""},
		{Role: types.RoleToolResult},
		{Role: types.RoleUser, Content: "hello"},
	}

	_, apiMessages := convertMessages(messages)

	require.Len(t, apiMessages, 1)
}

func TestConvertTools(t *testing.T) {
	schema := tool.NewObjectSchema("Weather lookup parameters", map[string]*tool.JSONSchema{
		"city": {Type: "string", Description: "City name"},
	})

	config := convertTools([]tool.Schema{
		{Name: "get_weather", Description: "Current weather for a city", Parameters: schema},
	})

	require.NotNil(t, config)
	require.Len(t, config.Tools, 1)

	spec, ok := config.Tools[0].(*bedrocktypes.ToolMemberToolSpec)
	require.True(t, ok)
	assert.Equal(t, "get_weather", aws.ToString(spec.Value.Name))
	assert.Equal(t, "Current weather for a city", aws.ToString(spec.Value.Description))

	inputSchema, ok := spec.Value.InputSchema.(*bedrocktypes.ToolInputSchemaMemberJson)
	require.True(t, ok)

	schemaMap := documentToMap(t, inputSchema.Value)
	assert.Equal(t, "object", schemaMap["type"])

	props, ok := schemaMap["properties"].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, props, "city")
	assert.Equal(t, "string", props["city"].(map[string]interface{})["type"])
}

func TestConvertTools_NilParameters(t *testing.T) {
	config := convertTools([]tool.Schema{{Name: "ping", Description: "Liveness probe"}})

	require.Len(t, config.Tools, 1)
	spec := config.Tools[0].(*bedrocktypes.ToolMemberToolSpec)

	inputSchema, ok := spec.Value.InputSchema.(*bedrocktypes.ToolInputSchemaMemberJson)
	require.True(t, ok)

	schemaMap := documentToMap(t, inputSchema.Value)
	assert.Equal(t, "object", schemaMap["type"])
}

func TestMapStopReason(t *testing.T) {
	tests := []struct {
		name   string
		reason bedrocktypes.StopReason
		want   types.StopReason
	}{
		{"tool use", bedrocktypes.StopReasonToolUse, types.StopToolUse},
		{"end turn", bedrocktypes.StopReasonEndTurn, types.StopEndTurn},
		{"max tokens", bedrocktypes.StopReasonMaxTokens, types.StopMaxTokens},
		{"passthrough", bedrocktypes.StopReasonStopSequence, types.StopReason("stop_sequence")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapStopReason(tt.reason))
		})
	}
}

func TestMapStopReason_PassthroughIsTerminal(t *testing.T) {
	// Unknown reasons must not be mistaken for tool-use continuations.
	mapped := mapStopReason(bedrocktypes.StopReasonGuardrailIntervened)

	assert.True(t, mapped.Terminal())
}

func TestClassifyErr(t *testing.T) {
	fatal := []error{
		&bedrocktypes.ValidationException{Message: aws.String("malformed request")},
		&bedrocktypes.AccessDeniedException{Message: aws.String("not authorized")},
		&bedrocktypes.ResourceNotFoundException{Message: aws.String("unknown model")},
	}
	for _, err := range fatal {
		assert.True(t, llm.IsFatal(classifyErr(err)), "expected fatal: %T", err)
	}

	transient := []error{
		&bedrocktypes.ThrottlingException{Message: aws.String("slow down")},
		&bedrocktypes.ModelTimeoutException{Message: aws.String("model timed out")},
		&bedrocktypes.InternalServerException{Message: aws.String("oops")},
		errors.New("connection reset"),
	}
	for _, err := range transient {
		assert.False(t, llm.IsFatal(classifyErr(err)), "expected transient: %T", err)
	}
}

func TestClassifyErr_PreservesChain(t *testing.T) {
	cause := &bedrocktypes.ValidationException{Message: aws.String("bad schema")}

	classified := classifyErr(cause)

	var ve *bedrocktypes.ValidationException
	assert.True(t, errors.As(classified, &ve))
}

func TestProviderInterface(t *testing.T) {
	var _ types.Provider = (*Client)(nil)
}
