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
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	// Point at an empty directory so no stray config file is picked up
	t.Setenv("BOBBIN_DATA_DIR", t.TempDir())

	config, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "bedrock", config.LLM.Provider)
	assert.Equal(t, "us-west-2", config.LLM.BedrockRegion)
	assert.Equal(t, "us.amazon.nova-pro-v1:0", config.LLM.BedrockModelID)
	assert.Equal(t, 4096, config.LLM.MaxTokens)
	assert.Equal(t, 10, config.Agent.MaxIterations)
	assert.False(t, config.Session.Enabled)
	assert.Equal(t, "dynamodb", config.Session.Backend)
	assert.Equal(t, "bobbin-sessions", config.Session.Table)
	assert.Equal(t, int64(3600), config.Session.TTLSeconds)
	assert.False(t, config.Reasoning.RealTime)
	assert.True(t, config.Retry.Enabled)
	assert.Equal(t, 3, config.Retry.MaxRetries)
	assert.Equal(t, "info", config.Logging.Level)
	assert.NotEmpty(t, config.DataDir)
}

func TestLoadConfig_FromFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	dir := t.TempDir()
	t.Setenv("BOBBIN_DATA_DIR", dir)

	cfgPath := filepath.Join(dir, "bobbin.yaml")
	content := `
llm:
  provider: anthropic
  anthropic_model: claude-sonnet-4-5-20250929
  max_tokens: 2048

agent:
  system_prompt: "You are a weather assistant."
  max_iterations: 5

session:
  enabled: true
  backend: sqlite
  path: /tmp/bobbin-test.db
  ttl_seconds: 600

reasoning:
  real_time: true
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	config, err := LoadConfig(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", config.LLM.Provider)
	assert.Equal(t, 2048, config.LLM.MaxTokens)
	assert.Equal(t, "You are a weather assistant.", config.Agent.SystemPrompt)
	assert.Equal(t, 5, config.Agent.MaxIterations)
	assert.True(t, config.Session.Enabled)
	assert.Equal(t, "sqlite", config.Session.Backend)
	assert.Equal(t, "/tmp/bobbin-test.db", config.Session.Path)
	assert.Equal(t, int64(600), config.Session.TTLSeconds)
	assert.True(t, config.Reasoning.RealTime)

	// Unset keys keep their defaults
	assert.Equal(t, "us-west-2", config.LLM.BedrockRegion)
	assert.True(t, config.Retry.Enabled)
}

func TestLoadConfig_BadFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bobbin.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("llm: [not: valid"), 0o644))

	_, err := LoadConfig(cfgPath)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM: LLMConfig{
				Provider:      "bedrock",
				BedrockRegion: "us-west-2",
			},
			Agent: AgentConfig{MaxIterations: 10},
			Session: SessionConfig{
				Enabled:    true,
				Backend:    "dynamodb",
				Table:      "bobbin-sessions",
				TTLSeconds: 3600,
			},
			Retry: RetryConfig{Enabled: true, MaxRetries: 3, Multiplier: 2.0},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid bedrock config",
			mutate: func(c *Config) {},
		},
		{
			name: "valid anthropic config",
			mutate: func(c *Config) {
				c.LLM.Provider = "anthropic"
				c.LLM.AnthropicAPIKey = "sk-test"
			},
		},
		{
			name:    "missing provider",
			mutate:  func(c *Config) { c.LLM.Provider = "" },
			wantErr: "llm.provider is required",
		},
		{
			name:    "unsupported provider",
			mutate:  func(c *Config) { c.LLM.Provider = "ollama" },
			wantErr: "unsupported LLM provider",
		},
		{
			name: "anthropic without key",
			mutate: func(c *Config) {
				c.LLM.Provider = "anthropic"
				c.LLM.AnthropicAPIKey = ""
			},
			wantErr: "anthropic API key is required",
		},
		{
			name:    "bedrock without region",
			mutate:  func(c *Config) { c.LLM.BedrockRegion = "" },
			wantErr: "bedrock region is required",
		},
		{
			name:    "zero max iterations",
			mutate:  func(c *Config) { c.Agent.MaxIterations = 0 },
			wantErr: "agent.max_iterations",
		},
		{
			name: "dynamodb backend without table",
			mutate: func(c *Config) {
				c.Session.Table = ""
			},
			wantErr: "session.table is required",
		},
		{
			name: "sqlite backend without path",
			mutate: func(c *Config) {
				c.Session.Backend = "sqlite"
				c.Session.Path = ""
			},
			wantErr: "session.path is required",
		},
		{
			name:    "unknown session backend",
			mutate:  func(c *Config) { c.Session.Backend = "redis" },
			wantErr: "unsupported session backend",
		},
		{
			name:    "non-positive ttl",
			mutate:  func(c *Config) { c.Session.TTLSeconds = 0 },
			wantErr: "session.ttl_seconds",
		},
		{
			name: "session disabled skips backend checks",
			mutate: func(c *Config) {
				c.Session.Enabled = false
				c.Session.Table = ""
				c.Session.TTLSeconds = 0
			},
		},
		{
			name:    "retry multiplier below one",
			mutate:  func(c *Config) { c.Retry.Multiplier = 0.5 },
			wantErr: "retry.multiplier",
		},
		{
			name: "retry disabled skips retry checks",
			mutate: func(c *Config) {
				c.Retry.Enabled = false
				c.Retry.Multiplier = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestGenerateExampleConfig(t *testing.T) {
	example := GenerateExampleConfig()

	assert.Contains(t, example, "llm:")
	assert.Contains(t, example, "provider: bedrock")
	assert.Contains(t, example, "session:")
	assert.Contains(t, example, "ttl_seconds:")
	assert.Contains(t, example, "reasoning:")
	assert.Contains(t, example, "max_iterations:")
	assert.NotContains(t, example, "sk-", "example config must not contain secrets")
}

func TestListAvailableSecretKeys(t *testing.T) {
	keys := ListAvailableSecretKeys()

	assert.Contains(t, keys, "anthropic_api_key")
	assert.Contains(t, keys, "bedrock_access_key_id")
	assert.Contains(t, keys, "bedrock_secret_access_key")
	assert.Contains(t, keys, "db_encryption_key")
}
