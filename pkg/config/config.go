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

// Package config loads the bobbin CLI configuration from YAML, environment
// variables, and the system keyring. Library packages take plain config
// structs and never read the environment; this package is the only place
// configuration sources are merged.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	// ServiceName for keyring storage
	ServiceName = "bobbin"
	// DefaultConfigFileName is the name of the config file
	DefaultConfigFileName = "bobbin"
)

// Config holds all configuration for the bobbin CLI.
// Priority: CLI flags > config file > env vars > defaults
type Config struct {
	// DataDir is the bobbin data directory (computed from BOBBIN_DATA_DIR env var or ~/.bobbin)
	// This field is set during config initialization and is read-only.
	// It is not loaded from config file - use BOBBIN_DATA_DIR environment variable to override.
	DataDir string `mapstructure:"-"`

	// LLM provider configuration
	LLM LLMConfig `mapstructure:"llm"`

	// Agent loop configuration
	Agent AgentConfig `mapstructure:"agent"`

	// Session persistence configuration
	Session SessionConfig `mapstructure:"session"`

	// Reasoning trace configuration
	Reasoning ReasoningConfig `mapstructure:"reasoning"`

	// Retry configuration for model calls
	Retry RetryConfig `mapstructure:"retry"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider string `mapstructure:"provider"` // bedrock, anthropic

	// Anthropic-specific
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"` // From CLI/env/keyring only
	AnthropicModel  string `mapstructure:"anthropic_model"`

	// Bedrock-specific
	BedrockRegion          string `mapstructure:"bedrock_region"`
	BedrockAccessKeyID     string `mapstructure:"bedrock_access_key_id"`     // From CLI/env/keyring only
	BedrockSecretAccessKey string `mapstructure:"bedrock_secret_access_key"` // From CLI/env/keyring only
	BedrockSessionToken    string `mapstructure:"bedrock_session_token"`     // From CLI/env/keyring only
	BedrockProfile         string `mapstructure:"bedrock_profile"`
	BedrockModelID         string `mapstructure:"bedrock_model_id"`

	// Common generation parameters
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout_seconds"`
}

// AgentConfig holds conversation loop configuration.
type AgentConfig struct {
	// SystemPrompt is sent as the system turn of every model request
	SystemPrompt string `mapstructure:"system_prompt"`

	// MaxIterations caps model round-trips per query (default: 10)
	MaxIterations int `mapstructure:"max_iterations"`
}

// SessionConfig holds session persistence configuration.
type SessionConfig struct {
	// Enabled turns on conversation and reasoning persistence
	Enabled bool `mapstructure:"enabled"`

	// Backend selects the store: dynamodb (default) or sqlite
	Backend string `mapstructure:"backend"`

	// Table is the DynamoDB table name (backend: dynamodb)
	Table string `mapstructure:"table"`

	// Region is the AWS region for the session table (backend: dynamodb,
	// defaults to llm.bedrock_region)
	Region string `mapstructure:"region"`

	// Path is the database file path (backend: sqlite)
	Path string `mapstructure:"path"`

	// TTLSeconds is how long saved sessions stay live (default: 3600)
	TTLSeconds int64 `mapstructure:"ttl_seconds"`

	// Encrypt enables SQLCipher encryption at rest (backend: sqlite,
	// requires a CGO build)
	Encrypt bool `mapstructure:"encrypt"`

	// EncryptionKey is the SQLCipher key (from CLI/env/keyring only)
	EncryptionKey string `mapstructure:"encryption_key"`

	// PruneSchedule is a cron spec for expired-record cleanup (backend:
	// sqlite; default: every 10 minutes)
	PruneSchedule string `mapstructure:"prune_schedule"`
}

// ReasoningConfig holds reasoning trace configuration.
type ReasoningConfig struct {
	// RealTime persists the partial trace after every step instead of once
	// at the end of the run
	RealTime bool `mapstructure:"real_time"`
}

// RetryConfig holds model call retry configuration.
type RetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MaxRetries     int     `mapstructure:"max_retries"`
	InitialDelayMs int     `mapstructure:"initial_delay_ms"`
	MaxDelayMs     int     `mapstructure:"max_delay_ms"`
	Multiplier     float64 `mapstructure:"multiplier"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
	File   string `mapstructure:"file"`   // File path for log output (optional, defaults to stderr)
}

// LoadConfig loads configuration from multiple sources with proper priority:
// 1. Command line flags (highest priority)
// 2. Config file
// 3. Environment variables
// 4. Defaults (lowest priority)
func LoadConfig(cfgFile string) (*Config, error) {
	// Set defaults
	setDefaults()

	// Setup config file
	if cfgFile != "" {
		// Use config file from flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in standard locations
		// Config search paths (in order of priority)
		viper.AddConfigPath(GetBobbinDataDir()) // Bobbin data directory (respects BOBBIN_DATA_DIR)
		viper.AddConfigPath(".")                // Current directory
		viper.AddConfigPath("/etc/bobbin/")     // System-wide
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	// Read config file (if it exists)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars + flags
	}

	// Bind environment variables
	viper.SetEnvPrefix("BOBBIN")
	viper.AutomaticEnv()

	// Unmarshal config
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set DataDir from environment or default
	// This must be done after unmarshal since it's not loaded from config file
	config.DataDir = GetBobbinDataDir()

	// Load secrets from keyring if not provided via CLI/env
	// Non-fatal: keyring might not be available - user can provide secrets via CLI/env
	_ = loadSecretsFromKeyring(&config)

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	// LLM defaults
	viper.SetDefault("llm.provider", "bedrock")
	viper.SetDefault("llm.anthropic_model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("llm.bedrock_region", "us-west-2")
	viper.SetDefault("llm.bedrock_model_id", "us.amazon.nova-pro-v1:0")
	viper.SetDefault("llm.temperature", 1.0)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout_seconds", 60)

	// Agent defaults
	viper.SetDefault("agent.max_iterations", 10)

	// Session defaults (use bobbin data directory for the sqlite backend)
	viper.SetDefault("session.enabled", false)
	viper.SetDefault("session.backend", "dynamodb")
	viper.SetDefault("session.table", "bobbin-sessions")
	viper.SetDefault("session.ttl_seconds", 3600)
	viper.SetDefault("session.path", filepath.Join(GetBobbinDataDir(), "bobbin.db"))
	viper.SetDefault("session.encrypt", false)
	viper.SetDefault("session.prune_schedule", "*/10 * * * *")

	// Reasoning defaults
	viper.SetDefault("reasoning.real_time", false)

	// Retry defaults
	viper.SetDefault("retry.enabled", true)
	viper.SetDefault("retry.max_retries", 3)
	viper.SetDefault("retry.initial_delay_ms", 100)
	viper.SetDefault("retry.max_delay_ms", 5000)
	viper.SetDefault("retry.multiplier", 2.0)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// SecretMapping defines how to load a secret from keyring into the config.
// The key is the keyring key name, and the setter is a function that applies the value to the config.
type SecretMapping struct {
	KeyringKey string
	Setter     func(*Config, string)
	IsSet      func(*Config) bool // Returns true if the value is already set (skip keyring lookup)
}

// GetSecretMappings returns all secret mappings for the application.
func GetSecretMappings() []SecretMapping {
	return []SecretMapping{
		{
			KeyringKey: "anthropic_api_key",
			Setter:     func(c *Config, val string) { c.LLM.AnthropicAPIKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.AnthropicAPIKey != "" },
		},
		{
			KeyringKey: "bedrock_access_key_id",
			Setter:     func(c *Config, val string) { c.LLM.BedrockAccessKeyID = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockAccessKeyID != "" },
		},
		{
			KeyringKey: "bedrock_secret_access_key",
			Setter:     func(c *Config, val string) { c.LLM.BedrockSecretAccessKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockSecretAccessKey != "" },
		},
		{
			KeyringKey: "bedrock_session_token",
			Setter:     func(c *Config, val string) { c.LLM.BedrockSessionToken = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockSessionToken != "" },
		},
		{
			KeyringKey: "db_encryption_key",
			Setter:     func(c *Config, val string) { c.Session.EncryptionKey = val },
			IsSet:      func(c *Config) bool { return c.Session.EncryptionKey != "" },
		},
	}
}

// loadSecretsFromKeyring loads API keys from system keyring using the secret mappings.
// This is extensible - just add more entries to GetSecretMappings().
func loadSecretsFromKeyring(config *Config) error {
	for _, mapping := range GetSecretMappings() {
		// Skip if value is already set (from CLI/env/config file)
		if mapping.IsSet(config) {
			continue
		}

		// Try to load from keyring
		value, err := GetSecretFromKeyring(mapping.KeyringKey)
		if err == nil && value != "" {
			mapping.Setter(config, value)
		}
		// Non-fatal: if keyring doesn't have the key, just continue
	}

	return nil
}

// GetSecretFromKeyring retrieves a secret from the system keyring.
func GetSecretFromKeyring(key string) (string, error) {
	return keyring.Get(ServiceName, key)
}

// SaveSecretToKeyring saves a secret to the system keyring.
func SaveSecretToKeyring(key, value string) error {
	return keyring.Set(ServiceName, key, value)
}

// DeleteSecretFromKeyring removes a secret from the system keyring.
func DeleteSecretFromKeyring(key string) error {
	return keyring.Delete(ServiceName, key)
}

// ListAvailableSecretKeys returns all known secret keys that can be stored in the keyring.
// Useful for CLI commands that need to show available options.
func ListAvailableSecretKeys() []string {
	mappings := GetSecretMappings()
	keys := make([]string, len(mappings))
	for i, mapping := range mappings {
		keys[i] = mapping.KeyringKey
	}
	return keys
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate LLM config
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}

	switch c.LLM.Provider {
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic API key is required (set ANTHROPIC_API_KEY, BOBBIN_LLM_ANTHROPIC_API_KEY, or save to keyring with 'bobbin config set-key anthropic_api_key')")
		}

	case "bedrock":
		if c.LLM.BedrockRegion == "" {
			return fmt.Errorf("bedrock region is required (set llm.bedrock_region in config or BOBBIN_LLM_BEDROCK_REGION env var)")
		}
		// Explicit credentials are not required here: the user might be
		// using an AWS profile, an IAM role, or the default credentials
		// chain. The Bedrock client handles auth validation at runtime.

	default:
		return fmt.Errorf("unsupported LLM provider: %s (must be bedrock or anthropic)", c.LLM.Provider)
	}

	// Validate agent config
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be at least 1, got %d", c.Agent.MaxIterations)
	}

	// Validate session config
	if c.Session.Enabled {
		switch c.Session.Backend {
		case "dynamodb":
			if c.Session.Table == "" {
				return fmt.Errorf("session.table is required for the dynamodb backend")
			}
		case "sqlite":
			if c.Session.Path == "" {
				return fmt.Errorf("session.path is required for the sqlite backend")
			}
		default:
			return fmt.Errorf("unsupported session backend: %s (must be dynamodb or sqlite)", c.Session.Backend)
		}
		if c.Session.TTLSeconds <= 0 {
			return fmt.Errorf("session.ttl_seconds must be positive, got %d", c.Session.TTLSeconds)
		}
	}

	// Validate retry config
	if c.Retry.Enabled {
		if c.Retry.MaxRetries < 0 {
			return fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries)
		}
		if c.Retry.Multiplier < 1.0 {
			return fmt.Errorf("retry.multiplier must be at least 1.0, got %g", c.Retry.Multiplier)
		}
	}

	return nil
}

// GenerateExampleConfig generates an example configuration file.
func GenerateExampleConfig() string {
	return `# Bobbin Configuration
# Priority: CLI flags > config file > environment variables > defaults

llm:
  # Provider options: bedrock, anthropic
  provider: bedrock

  # AWS Bedrock configuration
  bedrock_region: us-west-2
  bedrock_model_id: us.amazon.nova-pro-v1:0
  # bedrock_profile: default  # Use AWS profile instead of explicit credentials
  # bedrock_access_key_id: set via keyring or env (BOBBIN_LLM_BEDROCK_ACCESS_KEY_ID)
  # bedrock_secret_access_key: set via keyring or env (BOBBIN_LLM_BEDROCK_SECRET_ACCESS_KEY)
  # bedrock_session_token: set via keyring or env (BOBBIN_LLM_BEDROCK_SESSION_TOKEN)

  # Anthropic configuration
  anthropic_model: claude-sonnet-4-5-20250929
  # anthropic_api_key: set via keyring (bobbin config set-key anthropic_api_key)

  # Common generation parameters (apply to all providers)
  temperature: 1.0
  max_tokens: 4096
  timeout_seconds: 60

agent:
  # System prompt sent with every model request (optional)
  # system_prompt: "You are a helpful assistant."

  # Maximum model round-trips per query
  max_iterations: 10

session:
  # Persist conversations and reasoning traces across runs
  enabled: false

  # Backend options: dynamodb, sqlite
  backend: dynamodb
  table: bobbin-sessions
  # region: us-west-2  # defaults to llm.bedrock_region

  # sqlite backend settings
  # path: ~/.bobbin/bobbin.db
  # encrypt: false  # SQLCipher encryption at rest (CGO builds only)
  # prune_schedule: "*/10 * * * *"

  # How long saved sessions stay live
  ttl_seconds: 3600

reasoning:
  # Persist the partial trace after every step instead of once at the end
  real_time: false

retry:
  enabled: true
  max_retries: 3
  initial_delay_ms: 100
  max_delay_ms: 5000
  multiplier: 2.0

logging:
  level: info  # debug, info, warn, error
  format: text # text, json

# Note: Secrets should NEVER be committed to config files.
# Use the keyring for secure storage:
#   bobbin config set-key anthropic_api_key
#   bobbin config set-key bedrock_access_key_id
#   bobbin config set-key bedrock_secret_access_key
#   bobbin config set-key db_encryption_key
`
}
