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
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	bobbinconfig "github.com/teradata-labs/bobbin/pkg/config"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Bobbin configuration",
	Long:  `Manage configuration files and secrets for Bobbin.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate example configuration file",
	Long:  `Generate an example bobbin.yaml configuration file in ~/.bobbin/`,
	Run:   runConfigInit,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [key-name]",
	Short: "Save API key to system keyring",
	Long: `Save an API key to the system keyring securely.

The key will be stored in your system's secure credential storage
(Keychain on macOS, Credential Manager on Windows, Secret Service on Linux).

Run 'bobbin config list-keys' to see available key names.`,
	Args: cobra.ExactArgs(1),
	Run:  runConfigSetKey,
}

var configGetKeyCmd = &cobra.Command{
	Use:   "get-key [key-name]",
	Short: "Retrieve API key from system keyring",
	Long:  `Retrieve an API key from the system keyring (for verification).`,
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGetKey,
}

var configDeleteKeyCmd = &cobra.Command{
	Use:   "delete-key [key-name]",
	Short: "Delete API key from system keyring",
	Long:  `Remove an API key from the system keyring.`,
	Args:  cobra.ExactArgs(1),
	Run:   runConfigDeleteKey,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration (merged from all sources).`,
	Run:   runConfigShow,
}

var configListKeysCmd = &cobra.Command{
	Use:   "list-keys",
	Short: "List available secret keys",
	Long:  `List all available secret keys that can be stored in the keyring.`,
	Run:   runConfigListKeys,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a non-sensitive configuration value in ~/.bobbin/bobbin.yaml.

For sensitive values (API keys, secrets), use 'bobbin config set-key' instead.

Examples:
  bobbin config set llm.provider anthropic
  bobbin config set llm.bedrock_region us-east-1
  bobbin config set session.enabled true
  bobbin config set session.backend sqlite
  bobbin config set agent.max_iterations 15
  bobbin config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	Run:  runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Long: `Get a configuration value from ~/.bobbin/bobbin.yaml.

Examples:
  bobbin config get llm.provider
  bobbin config get session.backend
  bobbin config get agent.max_iterations`,
	Args: cobra.ExactArgs(1),
	Run:  runConfigGet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configGetKeyCmd)
	configCmd.AddCommand(configDeleteKeyCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configListKeysCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configDir := bobbinconfig.GetBobbinDataDir()
	configPath := filepath.Join(configDir, bobbinconfig.DefaultConfigFileName+".yaml")

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		os.Exit(1)
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file already exists: %s\n", configPath)
		fmt.Print("Overwrite? (y/N): ")
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	// Interactive configuration
	fmt.Println("Bobbin Configuration Setup")
	fmt.Println("==========================")
	fmt.Println()

	// Ask for LLM provider
	fmt.Println("Choose your LLM provider:")
	fmt.Println("  1. AWS Bedrock (AWS credentials required)")
	fmt.Println("  2. Anthropic Claude (API key required)")
	fmt.Print("Selection (1-2) [1]: ")
	var providerChoice string
	_, _ = fmt.Scanln(&providerChoice)

	llmProvider := "bedrock"
	if providerChoice == "2" {
		llmProvider = "anthropic"
	}

	configContent := bobbinconfig.GenerateExampleConfig()
	if llmProvider != "bedrock" {
		configContent = strings.Replace(configContent, "provider: bedrock", "provider: "+llmProvider, 1)
	}

	// Write config
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("✓ Config file created: %s\n", configPath)
	fmt.Println("\nNext steps:")

	switch llmProvider {
	case "anthropic":
		fmt.Println("1. Save your Anthropic API key:")
		fmt.Println("   bobbin config set-key anthropic_api_key")
	case "bedrock":
		fmt.Println("1. Configure AWS credentials (choose one method):")
		fmt.Println("   Option A - AWS Profile/SSO:")
		fmt.Println("     aws configure  # or set AWS_PROFILE environment variable")
		fmt.Println("   Option B - Direct credentials (stored in keyring):")
		fmt.Println("     bobbin config set-key bedrock_access_key_id")
		fmt.Println("     bobbin config set-key bedrock_secret_access_key")
	}

	fmt.Println("2. Run a query:")
	fmt.Println(`   bobbin run "What's the weather in Seattle?"`)
}

func runConfigSetKey(cmd *cobra.Command, args []string) {
	keyName := args[0]

	// Validate key name using extensible mapping
	availableKeys := bobbinconfig.ListAvailableSecretKeys()
	validKeys := make(map[string]bool)
	for _, k := range availableKeys {
		validKeys[k] = true
	}

	if !validKeys[keyName] {
		fmt.Fprintf(os.Stderr, "Invalid key name: %s\n", keyName)
		fmt.Fprintf(os.Stderr, "Available keys:\n")
		for _, k := range availableKeys {
			fmt.Fprintf(os.Stderr, "  - %s\n", k)
		}
		os.Exit(1)
	}

	// Read secret from stdin (without echo)
	fmt.Printf("Enter %s (input hidden): ", keyName)
	secretBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // New line after hidden input
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	secret := string(secretBytes)
	if secret == "" {
		fmt.Fprintf(os.Stderr, "Secret cannot be empty\n")
		os.Exit(1)
	}

	// Save to keyring
	if err := keyring.Set(bobbinconfig.ServiceName, keyName, secret); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving to keyring: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Saved %s to system keyring\n", keyName)
}

func runConfigGetKey(cmd *cobra.Command, args []string) {
	keyName := args[0]

	secret, err := keyring.Get(bobbinconfig.ServiceName, keyName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving key: %v\n", err)
		fmt.Fprintf(os.Stderr, "Key not found in keyring. Set it with: bobbin config set-key %s\n", keyName)
		os.Exit(1)
	}

	// Show partially masked
	masked := maskSecret(secret)
	fmt.Printf("%s: %s\n", keyName, masked)
}

func runConfigDeleteKey(cmd *cobra.Command, args []string) {
	keyName := args[0]

	if err := keyring.Delete(bobbinconfig.ServiceName, keyName); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Deleted %s from system keyring\n", keyName)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println()

	fmt.Println("LLM:")
	fmt.Printf("  Provider: %s\n", config.LLM.Provider)
	switch config.LLM.Provider {
	case "anthropic":
		fmt.Printf("  Model: %s\n", config.LLM.AnthropicModel)
		if config.LLM.AnthropicAPIKey != "" {
			fmt.Printf("  API Key: %s\n", maskSecret(config.LLM.AnthropicAPIKey))
		} else {
			fmt.Printf("  API Key: (not set)\n")
		}
	case "bedrock":
		fmt.Printf("  Model: %s\n", config.LLM.BedrockModelID)
		fmt.Printf("  Region: %s\n", config.LLM.BedrockRegion)
		if config.LLM.BedrockProfile != "" {
			fmt.Printf("  Profile: %s\n", config.LLM.BedrockProfile)
		}
		if config.LLM.BedrockAccessKeyID != "" {
			fmt.Printf("  Access Key: %s\n", maskSecret(config.LLM.BedrockAccessKeyID))
		} else {
			fmt.Printf("  Access Key: (default credentials chain)\n")
		}
	}
	fmt.Printf("  Temperature: %.1f\n", config.LLM.Temperature)
	fmt.Printf("  Max Tokens: %d\n", config.LLM.MaxTokens)
	fmt.Println()

	fmt.Println("Agent:")
	if config.Agent.SystemPrompt != "" {
		fmt.Printf("  System Prompt: %s\n", config.Agent.SystemPrompt)
	}
	fmt.Printf("  Max Iterations: %d\n", config.Agent.MaxIterations)
	fmt.Println()

	fmt.Println("Session:")
	fmt.Printf("  Enabled: %t\n", config.Session.Enabled)
	if config.Session.Enabled {
		fmt.Printf("  Backend: %s\n", config.Session.Backend)
		switch config.Session.Backend {
		case "sqlite":
			fmt.Printf("  Path: %s\n", config.Session.Path)
			fmt.Printf("  Encrypted: %t\n", config.Session.Encrypt)
		default:
			fmt.Printf("  Table: %s\n", config.Session.Table)
		}
		fmt.Printf("  TTL: %ds\n", config.Session.TTLSeconds)
	}
	fmt.Println()

	fmt.Println("Reasoning:")
	fmt.Printf("  Real-Time Persistence: %t\n", config.Reasoning.RealTime)
	fmt.Println()

	fmt.Println("Retry:")
	fmt.Printf("  Enabled: %t\n", config.Retry.Enabled)
	if config.Retry.Enabled {
		fmt.Printf("  Max Retries: %d\n", config.Retry.MaxRetries)
		fmt.Printf("  Initial Delay: %dms\n", config.Retry.InitialDelayMs)
		fmt.Printf("  Max Delay: %dms\n", config.Retry.MaxDelayMs)
		fmt.Printf("  Multiplier: %.1f\n", config.Retry.Multiplier)
	}
	fmt.Println()

	fmt.Println("Logging:")
	fmt.Printf("  Level: %s\n", config.Logging.Level)
	fmt.Printf("  Format: %s\n", config.Logging.Format)
}

func runConfigListKeys(cmd *cobra.Command, args []string) {
	keys := bobbinconfig.ListAvailableSecretKeys()
	fmt.Println("Available secret keys:")
	fmt.Println("======================")
	for _, key := range keys {
		fmt.Printf("  - %s\n", key)
	}
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bobbin config set-key <key-name>")
	fmt.Println("  bobbin config get-key <key-name>")
	fmt.Println("  bobbin config delete-key <key-name>")
}

func runConfigSet(cmd *cobra.Command, args []string) {
	key := args[0]
	value := args[1]

	configDir := bobbinconfig.GetBobbinDataDir()
	configPath := filepath.Join(configDir, bobbinconfig.DefaultConfigFileName+".yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Config file not found: %s\n", configPath)
		fmt.Fprintf(os.Stderr, "Run 'bobbin config init' to create one\n")
		os.Exit(1)
	}

	// Validate key is not a secret (those should use set-key)
	for _, secretKey := range bobbinconfig.ListAvailableSecretKeys() {
		if key == secretKey {
			fmt.Fprintf(os.Stderr, "Error: '%s' is a secret key. Use 'bobbin config set-key %s' instead.\n", key, key)
			os.Exit(1)
		}
	}

	// Load existing config with viper
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		os.Exit(1)
	}

	inferredValue := inferType(key, value, v)
	v.Set(key, inferredValue)

	if err := v.WriteConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Set %s = %v\n", key, inferredValue)
}

func runConfigGet(cmd *cobra.Command, args []string) {
	key := args[0]

	configDir := bobbinconfig.GetBobbinDataDir()
	configPath := filepath.Join(configDir, bobbinconfig.DefaultConfigFileName+".yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Config file not found: %s\n", configPath)
		fmt.Fprintf(os.Stderr, "Run 'bobbin config init' to create one\n")
		os.Exit(1)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		os.Exit(1)
	}

	if !v.IsSet(key) {
		fmt.Fprintf(os.Stderr, "Key not found: %s\n", key)
		os.Exit(1)
	}

	fmt.Printf("%s: %v\n", key, v.Get(key))
}

// inferType attempts to infer the type of a value based on the key name and
// existing config. YAML round-trips 1.0 as 1, so keys that must stay float
// are checked by name first.
func inferType(key, value string, v *viper.Viper) interface{} {
	lower := strings.ToLower(key)

	if strings.Contains(lower, "temperature") || strings.Contains(lower, "multiplier") {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}

	if strings.Contains(lower, "max_tokens") || strings.Contains(lower, "iterations") ||
		strings.Contains(lower, "seconds") || strings.Contains(lower, "_ms") ||
		strings.Contains(lower, "retries") {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}

	if strings.Contains(lower, "enabled") || strings.Contains(lower, "encrypt") ||
		strings.Contains(lower, "real_time") {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}

	// Check if key already exists - use its type
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case bool:
			if boolVal, err := strconv.ParseBool(value); err == nil {
				return boolVal
			}
		case int, int64:
			if intVal, err := strconv.Atoi(value); err == nil {
				return intVal
			}
		case float64:
			if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
				return floatVal
			}
		}
	}

	// Default to string
	return value
}

// maskSecret masks a secret for display.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
