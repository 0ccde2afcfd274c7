// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface functionality.
// This file contains shared helper functions used across multiple CLI commands.

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jordanhubbard/ollama-cli/internal/config"
	"github.com/jordanhubbard/ollama-cli/internal/ollama"
)

// =============================================================================
// CONFIG AND CLIENT PLUMBING
// =============================================================================

// loadConfig loads the configuration honoring the --config override and
// layers the command-line flag overrides on top. Flags always win over
// file and environment values.
func loadConfig(args Args) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.ServerURL != "" {
		cfg.Server.URL = args.ServerURL
	}
	if args.Model != "" {
		cfg.DefaultModel = args.Model
	}

	return cfg, nil
}

// loadConfigOrDefault is loadConfig with a fallback to defaults, for
// commands that should still work with a broken config file. The load
// error is reported on stderr but not fatal.
func loadConfigOrDefault(args Args) *config.Config {
	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s (using defaults)\n", err)
		cfg = config.Default()
		if args.ServerURL != "" {
			cfg.Server.URL = args.ServerURL
		}
		if args.Model != "" {
			cfg.DefaultModel = args.Model
		}
	}
	return cfg
}

// newClient builds an Ollama API client from resolved configuration.
func newClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Server.URL,
		Timeout:      time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		DefaultModel: cfg.DefaultModel,
	})
}

// requestOptions maps the configured generation parameters onto a
// request. Shared by chat and ask.
func requestOptions(cfg *config.Config) *ollama.Options {
	return &ollama.Options{
		Temperature: cfg.Chat.Temperature,
		TopP:        cfg.Chat.TopP,
		TopK:        cfg.Chat.TopK,
		NumCtx:      cfg.Chat.ContextTokens,
		NumPredict:  cfg.Chat.MaxTokens,
		Seed:        cfg.Chat.Seed,
	}
}

// configPassphrase returns the transcript encryption passphrase. It is
// only ever taken from the environment, never from the config file.
func configPassphrase() string {
	return os.Getenv("OLLAMA_CLI_PASSPHRASE")
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatTimeAgo formats a time as a relative duration.
func formatTimeAgo(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case duration < 30*24*time.Hour:
		weeks := int(duration.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		months := int(duration.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	}
}

// pluralize returns the singular or plural form based on count.
func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// outputJSON outputs data as indented JSON on stdout.
func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
