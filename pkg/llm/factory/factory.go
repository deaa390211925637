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

// Package factory creates model providers from configuration.
package factory

import (
	"fmt"
	"os"
	"time"

	"github.com/teradata-labs/bobbin/pkg/llm/anthropic"
	"github.com/teradata-labs/bobbin/pkg/llm/bedrock"
	"github.com/teradata-labs/bobbin/pkg/types"
)

// Config holds configuration for creating providers.
type Config struct {
	// Default provider to use when none is requested
	DefaultProvider string
	DefaultModel    string

	// Anthropic configuration
	AnthropicAPIKey string
	AnthropicModel  string

	// Bedrock configuration
	BedrockRegion          string
	BedrockAccessKeyID     string
	BedrockSecretAccessKey string
	BedrockSessionToken    string
	BedrockProfile         string
	BedrockModelID         string

	// Common settings
	MaxTokens   int
	Temperature float64
	Timeout     int // seconds
}

// Factory creates model providers dynamically based on configuration.
type Factory struct {
	config Config
}

// New creates a new provider factory.
func New(config Config) *Factory {
	// Set defaults
	if config.DefaultProvider == "" {
		config.DefaultProvider = "bedrock"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.Temperature == 0 {
		config.Temperature = 1.0
	}
	if config.Timeout == 0 {
		config.Timeout = 60
	}

	return &Factory{
		config: config,
	}
}

// CreateProvider creates a provider for the given provider name and model.
// Empty arguments fall back to the configured defaults.
func (f *Factory) CreateProvider(provider, model string) (types.Provider, error) {
	if provider == "" {
		provider = f.config.DefaultProvider
	}
	if model == "" {
		model = f.config.DefaultModel
	}

	switch provider {
	case "anthropic":
		return f.createAnthropicProvider(model)
	case "bedrock":
		return f.createBedrockProvider(model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (f *Factory) createAnthropicProvider(model string) (types.Provider, error) {
	apiKey := f.config.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured (set llm.anthropic_api_key or ANTHROPIC_API_KEY)")
	}

	if model == "" {
		model = f.config.AnthropicModel
	}

	return anthropic.New(anthropic.Config{
		APIKey:      apiKey,
		Model:       model,
		Timeout:     time.Duration(f.config.Timeout) * time.Second,
		MaxTokens:   f.config.MaxTokens,
		Temperature: f.config.Temperature,
	}), nil
}

func (f *Factory) createBedrockProvider(model string) (types.Provider, error) {
	if model == "" {
		model = f.config.BedrockModelID
	}

	// Region resolution (env vars, then us-west-2) happens in bedrock.New
	return bedrock.New(bedrock.Config{
		Region:          f.config.BedrockRegion,
		AccessKeyID:     f.config.BedrockAccessKeyID,
		SecretAccessKey: f.config.BedrockSecretAccessKey,
		SessionToken:    f.config.BedrockSessionToken,
		Profile:         f.config.BedrockProfile,
		ModelID:         model,
		MaxTokens:       f.config.MaxTokens,
		Temperature:     f.config.Temperature,
	})
}
