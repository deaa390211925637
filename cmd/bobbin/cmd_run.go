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
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teradata-labs/bobbin/pkg/agent"
	bobbinconfig "github.com/teradata-labs/bobbin/pkg/config"
	"github.com/teradata-labs/bobbin/pkg/llm/factory"
	"github.com/teradata-labs/bobbin/pkg/observability"
	"github.com/teradata-labs/bobbin/pkg/store"
	"github.com/teradata-labs/bobbin/pkg/tool/demo"
	"github.com/teradata-labs/bobbin/pkg/types"
	"go.uber.org/zap"
)

var (
	runSessionID     string
	runToolsFlag     string
	runShowReasoning bool
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run the agent loop on a query",
	Long: `Run the agent loop: send the query to the configured model, execute the
tools it asks for, and print the final answer.

With --session the conversation persists between invocations, so a later
run can refer back to an earlier one. Sessions require session memory to
be enabled (config, environment, or --session-memory).

Examples:
  bobbin run "What's the weather in Seattle?"
  bobbin run --tools calculator "What is 75 times 4?"
  bobbin run --session trip "What's the weather in Chicago?"
  bobbin run --session trip "Is that warmer than Seattle?"
  bobbin run --show-reasoning "Count the words in 'to be or not to be'"`,
	Args: cobra.ExactArgs(1),
	Run:  runAgent,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runSessionID, "session", "", "Session ID to start or resume")
	runCmd.Flags().StringVar(&runToolsFlag, "tools", "", "Comma-separated tool names to register (default: all demo tools)")
	runCmd.Flags().BoolVar(&runShowReasoning, "show-reasoning", false, "Print the reasoning trace as JSON after the answer")
}

func runAgent(cmd *cobra.Command, args []string) {
	query := args[0]

	// Validate configuration
	if err := config.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger := buildLogger(config)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Bobbin", zap.String("version", rootCmd.Version))

	// Show actual config file used (not just the --config flag)
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		logger.Info("Config file loaded", zap.String("path", configFileUsed))
	} else {
		logger.Info("No config file found", zap.String("searched", "$BOBBIN_DATA_DIR/bobbin.yaml, ./bobbin.yaml, /etc/bobbin/bobbin.yaml"))
		logger.Info("Using defaults + environment variables")
	}

	tracer := observability.NewZapTracer(logger)

	tools := demo.All()
	if runToolsFlag != "" {
		var err error
		tools, err = demo.ByName(splitAndTrim(runToolsFlag, ",")...)
		if err != nil {
			log.Fatalf("Invalid --tools: %v", err)
		}
	}

	provider, err := buildProvider(config)
	if err != nil {
		log.Fatalf("Failed to create LLM provider: %v", err)
	}

	agentCfg := agent.Config{
		Tools:             tools,
		SystemPrompt:      config.Agent.SystemPrompt,
		ModelID:           config.LLM.BedrockModelID,
		BedrockRegion:     config.LLM.BedrockRegion,
		MaxIterations:     config.Agent.MaxIterations,
		RealTimeReasoning: config.Reasoning.RealTime,
		Retry: agent.RetryConfig{
			Enabled:      config.Retry.Enabled,
			MaxRetries:   config.Retry.MaxRetries,
			InitialDelay: time.Duration(config.Retry.InitialDelayMs) * time.Millisecond,
			MaxDelay:     time.Duration(config.Retry.MaxDelayMs) * time.Millisecond,
			Multiplier:   config.Retry.Multiplier,
		},
		Logger:   logger,
		Tracer:   tracer,
		Provider: provider,
	}

	if config.Session.Enabled {
		switch config.Session.Backend {
		case "sqlite":
			sessionStore, janitor, err := buildSQLiteStore(config, tracer, logger)
			if err != nil {
				log.Fatalf("Failed to open session store: %v", err)
			}
			defer func() { _ = janitor.Stop() }()
			agentCfg.Store = sessionStore
		default:
			agentCfg.UseSessionMemory = true
			agentCfg.SessionTable = config.Session.Table
			agentCfg.MemoryRegion = config.Session.Region
			agentCfg.SessionTTL = time.Duration(config.Session.TTLSeconds) * time.Second
		}
	}

	a, err := agent.New(agentCfg)
	if err != nil {
		log.Fatalf("Failed to create agent: %v", err)
	}
	defer func() { _ = a.Close() }()

	if runSessionID != "" && !config.Session.Enabled {
		logger.Warn("Session ID given but session memory is disabled; conversation will not persist",
			zap.String("session_id", runSessionID))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []agent.RunOption
	if runSessionID != "" {
		opts = append(opts, agent.WithSessionID(runSessionID))
	}

	resp, err := a.Run(ctx, query, opts...)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	fmt.Println(resp.Answer)

	logger.Info("Run complete",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens))

	if runShowReasoning && resp.Trace != nil {
		out, err := json.MarshalIndent(resp.Trace, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode reasoning trace: %v", err)
		}
		fmt.Fprintln(os.Stderr, string(out))
	}
}

// buildLogger creates a production logger honoring the logging config
// (stack traces only for ERROR level).
func buildLogger(cfg *bobbinconfig.Config) *zap.Logger {
	zapConfig := zap.NewProductionConfig()

	// Parse and set log level from config
	logLevel := zap.InfoLevel // default
	if cfg.Logging.Level != "" {
		if err := logLevel.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
			log.Printf("Invalid log level %q, using INFO: %v", cfg.Logging.Level, err)
		}
	}
	zapConfig.Level = zap.NewAtomicLevelAt(logLevel)

	if cfg.Logging.Format == "text" {
		zapConfig.Encoding = "console"
	}

	// Configure log output file if specified
	if cfg.Logging.File != "" {
		zapConfig.OutputPaths = []string{cfg.Logging.File}
		zapConfig.ErrorOutputPaths = []string{cfg.Logging.File}
	} else {
		// Keep stdout clean for the answer
		zapConfig.OutputPaths = []string{"stderr"}
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

// buildProvider creates the model provider from the LLM config via the
// factory, so explicit credentials and per-provider defaults apply.
func buildProvider(cfg *bobbinconfig.Config) (types.Provider, error) {
	f := factory.New(factory.Config{
		DefaultProvider:        cfg.LLM.Provider,
		AnthropicAPIKey:        cfg.LLM.AnthropicAPIKey,
		AnthropicModel:         cfg.LLM.AnthropicModel,
		BedrockRegion:          cfg.LLM.BedrockRegion,
		BedrockAccessKeyID:     cfg.LLM.BedrockAccessKeyID,
		BedrockSecretAccessKey: cfg.LLM.BedrockSecretAccessKey,
		BedrockSessionToken:    cfg.LLM.BedrockSessionToken,
		BedrockProfile:         cfg.LLM.BedrockProfile,
		BedrockModelID:         cfg.LLM.BedrockModelID,
		MaxTokens:              cfg.LLM.MaxTokens,
		Temperature:            cfg.LLM.Temperature,
		Timeout:                cfg.LLM.Timeout,
	})
	return f.CreateProvider(cfg.LLM.Provider, "")
}

// buildSQLiteStore opens the SQLite session store behind the retry wrapper
// and starts the expired-record janitor.
func buildSQLiteStore(cfg *bobbinconfig.Config, tracer observability.Tracer, logger *zap.Logger) (store.Store, *store.Janitor, error) {
	inner, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path:            cfg.Session.Path,
		TTL:             time.Duration(cfg.Session.TTLSeconds) * time.Second,
		EncryptDatabase: cfg.Session.Encrypt,
		EncryptionKey:   cfg.Session.EncryptionKey,
		Tracer:          tracer,
	})
	if err != nil {
		return nil, nil, err
	}

	janitor, err := store.NewJanitor(inner, cfg.Session.PruneSchedule, logger)
	if err != nil {
		_ = inner.Close()
		return nil, nil, err
	}
	if err := janitor.Start(); err != nil {
		_ = inner.Close()
		return nil, nil, err
	}

	return store.NewResilient(inner, "sqlite", store.DefaultRetryConfig(), tracer, logger), janitor, nil
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
