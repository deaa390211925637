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
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teradata-labs/bobbin/internal/version"
	bobbinconfig "github.com/teradata-labs/bobbin/pkg/config"
)

var (
	cfgFile string
	config  *bobbinconfig.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:     "bobbin",
	Short:   "Bobbin - Tool-using LLM agent loop",
	Long:    `Bobbin runs an autonomous LLM agent loop: it sends your query to a hosted model, executes the tools the model asks for, feeds the results back, and repeats until the model produces a final answer. Sessions, reasoning traces, and retry behavior are all configurable.`,
	Version: version.Get(),
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Custom help template with Support at bottom
	rootCmd.SetHelpTemplate(`{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}

Quick Start:
  1. Save your API key:      bobbin config set-key anthropic_api_key
  2. Ask a question:         bobbin run "What's the weather in Seattle?"
  3. Continue a session:     bobbin run --session demo "And in Chicago?"
  4. Inspect the reasoning:  bobbin reasoning demo

Support:
  GitHub: https://github.com/teradata-labs/bobbin/issues
  Documentation: https://github.com/teradata-labs/bobbin
`)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $BOBBIN_DATA_DIR/bobbin.yaml)")

	// LLM flags
	rootCmd.PersistentFlags().String("llm-provider", "bedrock", "LLM provider (bedrock, anthropic)")
	rootCmd.PersistentFlags().String("anthropic-key", "", "Anthropic API key (or use keyring/env)")
	rootCmd.PersistentFlags().String("anthropic-model", "claude-sonnet-4-5-20250929", "Anthropic model")
	rootCmd.PersistentFlags().String("bedrock-region", "us-west-2", "AWS region for Bedrock model calls")
	rootCmd.PersistentFlags().String("bedrock-model", "us.amazon.nova-pro-v1:0", "Bedrock model ID")
	rootCmd.PersistentFlags().Float64("temperature", 1.0, "LLM temperature")
	rootCmd.PersistentFlags().Int("max-tokens", 4096, "Maximum tokens per request")

	// Agent flags
	rootCmd.PersistentFlags().String("system-prompt", "", "System prompt sent with every model request")
	rootCmd.PersistentFlags().Int("max-iterations", 10, "Maximum model round-trips per run")

	// Session flags
	rootCmd.PersistentFlags().Bool("session-memory", false, "Persist conversation state between runs")
	rootCmd.PersistentFlags().String("session-backend", "dynamodb", "Session storage backend (dynamodb, sqlite)")
	rootCmd.PersistentFlags().String("session-table", "bobbin-sessions", "DynamoDB table for session records")
	rootCmd.PersistentFlags().Int("session-ttl", 3600, "Session record TTL in seconds")

	// Reasoning flags
	rootCmd.PersistentFlags().Bool("real-time-reasoning", false, "Persist the reasoning trace after every step instead of at run end")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.anthropic_api_key", rootCmd.PersistentFlags().Lookup("anthropic-key"))
	_ = viper.BindPFlag("llm.anthropic_model", rootCmd.PersistentFlags().Lookup("anthropic-model"))
	_ = viper.BindPFlag("llm.bedrock_region", rootCmd.PersistentFlags().Lookup("bedrock-region"))
	_ = viper.BindPFlag("llm.bedrock_model_id", rootCmd.PersistentFlags().Lookup("bedrock-model"))
	_ = viper.BindPFlag("llm.temperature", rootCmd.PersistentFlags().Lookup("temperature"))
	_ = viper.BindPFlag("llm.max_tokens", rootCmd.PersistentFlags().Lookup("max-tokens"))

	_ = viper.BindPFlag("agent.system_prompt", rootCmd.PersistentFlags().Lookup("system-prompt"))
	_ = viper.BindPFlag("agent.max_iterations", rootCmd.PersistentFlags().Lookup("max-iterations"))

	_ = viper.BindPFlag("session.enabled", rootCmd.PersistentFlags().Lookup("session-memory"))
	_ = viper.BindPFlag("session.backend", rootCmd.PersistentFlags().Lookup("session-backend"))
	_ = viper.BindPFlag("session.table", rootCmd.PersistentFlags().Lookup("session-table"))
	_ = viper.BindPFlag("session.ttl_seconds", rootCmd.PersistentFlags().Lookup("session-ttl"))

	_ = viper.BindPFlag("reasoning.real_time", rootCmd.PersistentFlags().Lookup("real-time-reasoning"))

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	config, err = bobbinconfig.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}
