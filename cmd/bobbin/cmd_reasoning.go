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
	"time"

	"github.com/spf13/cobra"
	bobbinconfig "github.com/teradata-labs/bobbin/pkg/config"
	"github.com/teradata-labs/bobbin/pkg/reasoning"
	"github.com/teradata-labs/bobbin/pkg/store"
)

var reasoningCmd = &cobra.Command{
	Use:   "reasoning [session-id]",
	Short: "Show the latest reasoning trace for a session",
	Long: `Show the latest recorded reasoning trace for a session as JSON: the
model's text at each step, every tool call with its result, token usage,
and whether the run degraded (hit the iteration cap or lost the session
store).

Reads the session store directly, so no model credentials are needed.

Examples:
  bobbin reasoning trip
  bobbin reasoning history trip`,
	Args: cobra.ExactArgs(1),
	Run:  runReasoning,
}

var reasoningHistoryCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show every recorded reasoning trace for a session",
	Long:  `Show every recorded reasoning trace for a session, oldest first, as a JSON array.`,
	Args:  cobra.ExactArgs(1),
	Run:   runReasoningHistory,
}

func init() {
	rootCmd.AddCommand(reasoningCmd)
	reasoningCmd.AddCommand(reasoningHistoryCmd)
}

func runReasoning(cmd *cobra.Command, args []string) {
	sessionID := args[0]

	s := openSessionStore(config)
	defer func() { _ = s.Close() }()

	data, found, err := s.LoadReasoning(context.Background(), sessionID)
	if err != nil {
		log.Fatalf("Failed to load reasoning: %v", err)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "No reasoning trace for session %q\n", sessionID)
		os.Exit(1)
	}

	trace, err := reasoning.DecodeTrace(data)
	if err != nil {
		log.Fatalf("Failed to decode reasoning trace: %v", err)
	}
	printJSON(trace)
}

func runReasoningHistory(cmd *cobra.Command, args []string) {
	sessionID := args[0]

	s := openSessionStore(config)
	defer func() { _ = s.Close() }()

	raw, err := s.LoadReasoningHistory(context.Background(), sessionID)
	if err != nil {
		log.Fatalf("Failed to load reasoning history: %v", err)
	}
	if len(raw) == 0 {
		fmt.Fprintf(os.Stderr, "No reasoning traces for session %q\n", sessionID)
		os.Exit(1)
	}

	traces := make([]*reasoning.Trace, 0, len(raw))
	for _, data := range raw {
		trace, err := reasoning.DecodeTrace(data)
		if err != nil {
			log.Fatalf("Failed to decode reasoning trace: %v", err)
		}
		traces = append(traces, trace)
	}
	printJSON(traces)
}

// openSessionStore opens the configured session backend for reads. Exits
// if session memory is disabled, since there is nothing to read.
func openSessionStore(cfg *bobbinconfig.Config) store.Store {
	if !cfg.Session.Enabled {
		fmt.Fprintln(os.Stderr, "Session memory is disabled; enable it in config or with --session-memory")
		os.Exit(1)
	}

	ttl := time.Duration(cfg.Session.TTLSeconds) * time.Second

	switch cfg.Session.Backend {
	case "sqlite":
		s, err := store.NewSQLiteStore(store.SQLiteConfig{
			Path:            cfg.Session.Path,
			TTL:             ttl,
			EncryptDatabase: cfg.Session.Encrypt,
			EncryptionKey:   cfg.Session.EncryptionKey,
		})
		if err != nil {
			log.Fatalf("Failed to open session store: %v", err)
		}
		return s

	default:
		region := cfg.Session.Region
		if region == "" {
			region = cfg.LLM.BedrockRegion
		}
		s, err := store.NewDynamoStore(store.DynamoConfig{
			Region:          region,
			AccessKeyID:     cfg.LLM.BedrockAccessKeyID,
			SecretAccessKey: cfg.LLM.BedrockSecretAccessKey,
			SessionToken:    cfg.LLM.BedrockSessionToken,
			Profile:         cfg.LLM.BedrockProfile,
			TableName:       cfg.Session.Table,
			TTL:             ttl,
		})
		if err != nil {
			log.Fatalf("Failed to open session store: %v", err)
		}
		return s
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(out))
}
