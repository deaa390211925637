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

// Package bedrock implements the Provider interface on top of the AWS
// Bedrock Converse API.
package bedrock

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/teradata-labs/bobbin/pkg/types"
)

// Config holds configuration for the Bedrock client.
type Config struct {
	// AWS Configuration
	Region          string // Required: AWS region (e.g., us-east-1, us-west-2)
	AccessKeyID     string // Optional: if not using IAM role/profile
	SecretAccessKey string // Optional: if not using IAM role/profile
	SessionToken    string // Optional: for temporary credentials
	Profile         string // Optional: AWS profile name from ~/.aws/config

	// Model Configuration
	ModelID     string  // Default: us.amazon.nova-pro-v1:0
	MaxTokens   int     // Default: 4096
	Temperature float64 // Default: 1.0
}

// Default Bedrock configuration values.
// Can be overridden via environment variables:
//   - AWS_BEDROCK_MODEL_ID / BOBBIN_BEDROCK_MODEL_ID
//   - AWS_DEFAULT_REGION / BOBBIN_BEDROCK_REGION
const (
	// DefaultModelID uses Nova Pro with cross-region inference profile (us.* prefix)
	DefaultModelID     = "us.amazon.nova-pro-v1:0"
	DefaultRegion      = "us-west-2"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 1.0
)

// Client implements the Provider interface for AWS Bedrock.
type Client struct {
	client      *bedrockruntime.Client
	modelID     string
	region      string
	maxTokens   int
	temperature float64
}

// New creates a new Bedrock client.
func New(cfg Config) (*Client, error) {
	// Set defaults - check environment variables first
	if cfg.ModelID == "" {
		if envModel := os.Getenv("AWS_BEDROCK_MODEL_ID"); envModel != "" {
			cfg.ModelID = envModel
		} else if envModel := os.Getenv("BOBBIN_BEDROCK_MODEL_ID"); envModel != "" {
			cfg.ModelID = envModel
		} else {
			cfg.ModelID = DefaultModelID
		}
	}
	if cfg.Region == "" {
		if envRegion := os.Getenv("AWS_DEFAULT_REGION"); envRegion != "" {
			cfg.Region = envRegion
		} else if envRegion := os.Getenv("BOBBIN_BEDROCK_REGION"); envRegion != "" {
			cfg.Region = envRegion
		} else {
			cfg.Region = DefaultRegion
		}
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	// Build AWS config
	var awsCfg aws.Config
	var err error

	// Option 1: Explicit credentials provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			)),
		)
	} else if cfg.Profile != "" {
		// Option 2: Use named profile
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
			config.WithSharedConfigProfile(cfg.Profile),
		)
	} else {
		// Option 3: Use default credentials chain (IAM role, env vars, profile)
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		client:      bedrockruntime.NewFromConfig(awsCfg),
		modelID:     cfg.ModelID,
		region:      cfg.Region,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "bedrock"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.modelID
}

// Ensure Client implements the Provider interface
var _ types.Provider = (*Client)(nil)
