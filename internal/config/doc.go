// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for ollama-cli.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation. The flat KEY=value file
// the original shell tool wrote is still read for migration.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Ollama server connection settings
//   - ChatConfig: Generation parameters and the context-token budget
//   - HistoryConfig: Conversation persistence behavior
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (OLLAMA_HOST, OLLAMA_CLI_*)
//   - $OLLAMA_CLI_CONFIG (explicit path)
//   - ~/.ollama-cli/config.toml
//   - ~/.ollama-cli/config.json
//   - ~/.ollama-cli-config (legacy, read-only)
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	model := cfg.DefaultModel
//	budget := cfg.Chat.ContextTokens
package config
