// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   list (default)      Display all keys and current values
//   get <key>           Print one configuration value
//   set <key> <value>   Set and save a configuration value
//   path                Show configuration file path
//
// Examples:
//   ollama-cli config                       Show current config
//   ollama-cli config list --json           Config in JSON format
//   ollama-cli config get server.url
//   ollama-cli config set default_model llama3:8b
//   ollama-cli config set chat.temperature 0.9
//   ollama-cli config set ui.markdown false
//   ollama-cli config path                  Show config file location
//
// Keys use dot notation matching the TOML sections (server.url,
// chat.temperature, history.auto_save, ...). Underscores are accepted
// in place of dots for top-level shortcuts.

package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jordanhubbard/ollama-cli/internal/config"
)

// =============================================================================
// HANDLE CONFIG
// =============================================================================

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "list", "show":
		if args.JSON {
			return handleConfigListJSON(args)
		}
		return handleConfigList(args)

	case "get":
		if len(args.Rest) < 1 {
			return ErrMissingArgument("key", "ollama-cli config get server.url")
		}
		return handleConfigGet(args, args.Rest[0])

	case "set":
		if len(args.Rest) < 2 {
			return ErrMissingArgument("key and value", "ollama-cli config set default_model llama3:8b")
		}
		return handleConfigSet(args, args.Rest[0], strings.Join(args.Rest[1:], " "))

	case "path":
		return handleConfigPath(args)

	default:
		return NewValidationError("subcommand", args.Subcommand,
			"expected one of: list, get, set, path")
	}
}

// =============================================================================
// LIST
// =============================================================================

// handleConfigList displays all configuration keys grouped by section.
func handleConfigList(args Args) error {
	cfg := loadConfigOrDefault(args)

	fmt.Println()
	fmt.Println(TitleStyle.Render("ollama-cli configuration"))
	fmt.Println(RenderSeparator(46))

	lastSection := ""
	for _, key := range sortedConfigKeys() {
		section := "general"
		if i := strings.Index(key, "."); i >= 0 {
			section = key[:i]
		}
		if section != lastSection {
			fmt.Println()
			fmt.Println(SectionStyle.Render("[" + section + "]"))
			lastSection = section
		}

		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("  %s%s\n",
			LabelStyle.Copy().Width(26).Render(key+":"),
			ValueStyle.Render(formatConfigValue(value)))
	}

	fmt.Println()
	fmt.Println(SeparatorStyle.Render(strings.Repeat("-", 46)))
	fmt.Printf("Config file: %s\n", DimStyle.Render(configFileLabel()))
	fmt.Println()

	return nil
}

// handleConfigListJSON outputs the full configuration as JSON.
func handleConfigListJSON(args Args) error {
	cfg := loadConfigOrDefault(args)

	data := map[string]interface{}{
		"config": cfg,
		"path":   configFileLabel(),
	}
	return NewJSONResponse("config list", data).Print()
}

// =============================================================================
// GET / SET
// =============================================================================

// handleConfigGet prints a single configuration value.
func handleConfigGet(args Args, key string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return WrapError(err, "failed to load config")
	}

	value, err := cfg.Get(normalizeConfigKey(key))
	if err != nil {
		return NewValidationErrorWithExample("key", key, "unknown configuration key",
			"run 'ollama-cli config list' for all keys")
	}

	if args.JSON {
		data := map[string]interface{}{"key": key, "value": value}
		return NewJSONResponse("config get", data).Print()
	}

	fmt.Println(formatConfigValue(value))
	return nil
}

// handleConfigSet sets a configuration value and saves the file.
func handleConfigSet(args Args, key, value string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s (starting from defaults)\n", err)
		cfg = config.Default()
	}

	normalized := normalizeConfigKey(key)
	if err := cfg.Set(normalized, value); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(),
			"run 'ollama-cli config list' for all keys")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration value: %w", err)
	}

	if err := config.Save(cfg); err != nil {
		return WrapError(err, "failed to save config")
	}

	if args.JSON {
		data := map[string]interface{}{"key": normalized, "value": value}
		return NewJSONResponse("config set", data).Print()
	}

	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), normalized, value)
	return nil
}

// =============================================================================
// PATH
// =============================================================================

// handleConfigPath shows the config file path.
func handleConfigPath(args Args) error {
	path := configFileLabel()

	if args.JSON {
		_, statErr := os.Stat(path)
		data := map[string]interface{}{
			"path":   path,
			"exists": statErr == nil,
		}
		return NewJSONResponse("config path", data).Print()
	}

	fmt.Println(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "%s (file does not exist; it will be created on first save)\n",
			DimStyle.Render("Note"))
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// normalizeConfigKey maps shortcut spellings onto dot notation.
// "default_model" stays, "server_url" becomes "server.url".
func normalizeConfigKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))

	// Top-level keys have no section prefix
	switch key {
	case "default_model", "version":
		return key
	}

	if strings.Contains(key, ".") {
		return key
	}

	// server_url -> server.url, but only when the prefix is a section
	if i := strings.Index(key, "_"); i >= 0 {
		section := key[:i]
		switch section {
		case "server", "chat", "history", "ui", "session":
			return section + "." + key[i+1:]
		}
	}

	return key
}

// sortedConfigKeys returns all known keys with general keys first,
// then section keys grouped alphabetically.
func sortedConfigKeys() []string {
	keys := config.GetAllKeys()

	sort.SliceStable(keys, func(i, j int) bool {
		di := strings.Contains(keys[i], ".")
		dj := strings.Contains(keys[j], ".")
		if di != dj {
			return !di // general keys first
		}
		return keys[i] < keys[j]
	})

	return keys
}

// formatConfigValue renders a config value for display.
func formatConfigValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return "(not set)"
		}
		return val
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", val), "0"), ".")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// configFileLabel returns the active config file path for display.
func configFileLabel() string {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return "(unknown)"
	}
	return path
}
