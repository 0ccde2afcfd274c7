// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for ollama-cli.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - $OLLAMA_CLI_CONFIG (explicit path)
//   - ~/.ollama-cli/config.toml
//   - ~/.ollama-cli/config.json
//   - ~/.ollama-cli-config (legacy KEY=value format, read-only)
//   - Built-in defaults
package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ollama-cli configuration.
type Config struct {
	// General settings
	Version      string `toml:"version" json:"version"`
	DefaultModel string `toml:"default_model" json:"default_model"`

	// Server (Ollama) configuration
	Server ServerConfig `toml:"server" json:"server"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Conversation history configuration
	History HistoryConfig `toml:"history" json:"history"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Session configuration
	Session SessionConfig `toml:"session" json:"session"`
}

// ServerConfig contains connection settings for the Ollama server.
type ServerConfig struct {
	// URL is the base URL of the Ollama server
	URL string `toml:"url" json:"url"`
	// TimeoutSecs is the request timeout for non-streaming calls in seconds.
	// Streaming requests are governed by their context instead.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// CheckOnStart pings the server before entering the prompt loop
	CheckOnStart bool `toml:"check_on_start" json:"check_on_start"`
}

// ChatConfig contains generation and context settings.
type ChatConfig struct {
	// SystemPrompt seeds every new conversation; empty means none
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// ContextTokens is the estimated-token budget for request assembly.
	// Older turns are evicted when the conversation no longer fits.
	ContextTokens int `toml:"context_tokens" json:"context_tokens"`
	// Temperature controls sampling randomness (0.0-2.0)
	Temperature float64 `toml:"temperature" json:"temperature"`
	// TopP is the nucleus sampling cutoff (0.0-1.0)
	TopP float64 `toml:"top_p" json:"top_p"`
	// TopK limits sampling to the K most likely tokens (0 = provider default)
	TopK int `toml:"top_k" json:"top_k"`
	// MaxTokens caps response length in tokens (0 = unlimited)
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Seed fixes the sampling seed for reproducible output (0 = random)
	Seed int `toml:"seed" json:"seed"`
}

// HistoryConfig contains conversation persistence settings.
type HistoryConfig struct {
	// Enabled controls whether conversations can be saved and loaded
	Enabled bool `toml:"enabled" json:"enabled"`
	// Dir is the transcript directory (empty = ~/.ollama-cli/conversations)
	Dir string `toml:"dir" json:"dir"`
	// AutoSave persists the active conversation after each exchange
	AutoSave bool `toml:"auto_save" json:"auto_save"`
	// MaxConversations caps stored transcripts; oldest are pruned (0 = unlimited)
	MaxConversations int `toml:"max_conversations" json:"max_conversations"`
	// Encrypt stores transcripts encrypted at rest. The passphrase is taken
	// from OLLAMA_CLI_PASSPHRASE and never written to this file.
	Encrypt bool `toml:"encrypt" json:"encrypt"`
	// IndexEnabled maintains the full-text search index for /search
	IndexEnabled bool `toml:"index_enabled" json:"index_enabled"`
}

// UIConfig contains terminal rendering configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders assistant responses as markdown after streaming
	Markdown bool `toml:"markdown" json:"markdown"`
	// SyntaxHighlight highlights fenced code blocks
	SyntaxHighlight bool `toml:"syntax_highlight" json:"syntax_highlight"`
	// ShowStats prints a timing/token summary after each response
	ShowStats bool `toml:"show_stats" json:"show_stats"`
	// ShowTokens displays context usage in the status line
	ShowTokens bool `toml:"show_tokens" json:"show_tokens"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// SessionConfig contains prompt-loop lifecycle settings.
type SessionConfig struct {
	// IdleTimeoutSecs ends the session after this much inactivity (0 = never)
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`
	// AutoSaveIntervalSecs is how often the active conversation is
	// checkpointed while idle (0 = only after each exchange)
	AutoSaveIntervalSecs int `toml:"auto_save_interval_secs" json:"auto_save_interval_secs"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version:      "1.0.0",
		DefaultModel: "llama3",

		Server: ServerConfig{
			URL:          "http://localhost:11434",
			TimeoutSecs:  30,
			CheckOnStart: true,
		},

		Chat: ChatConfig{
			SystemPrompt:  "",
			ContextTokens: 4096,
			Temperature:   0.8,
			TopP:          0.9,
			TopK:          40,
			MaxTokens:     0, // unlimited
			Seed:          0, // random
		},

		History: HistoryConfig{
			Enabled:          true,
			Dir:              "",
			AutoSave:         true,
			MaxConversations: 200,
			Encrypt:          false,
			IndexEnabled:     true,
		},

		UI: UIConfig{
			Theme:           "dark",
			Markdown:        true,
			SyntaxHighlight: true,
			ShowStats:       false,
			ShowTokens:      true,
			CompactMode:     false,
		},

		Session: SessionConfig{
			IdleTimeoutSecs:      0, // never
			AutoSaveIntervalSecs: 30,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ollama-cli configuration directory path.
// OLLAMA_CLI_HOME overrides the default ~/.ollama-cli.
func ConfigDir() (string, error) {
	if dir := os.Getenv("OLLAMA_CLI_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ollama-cli"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LegacyConfigPath returns the path of the flat KEY=value config file the
// original shell tool kept at ~/.ollama-cli-config.
func LegacyConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ollama-cli-config"), nil
}

// HistoryDir returns the transcript directory, resolving the default when
// history.dir is unset.
func (c *Config) HistoryDir() (string, error) {
	if c.History.Dir != "" {
		return c.History.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "conversations"), nil
}

// IndexPath returns the path of the transcript search index database.
func IndexPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries an explicit OLLAMA_CLI_CONFIG path, then TOML, then JSON, then the
// legacy KEY=value file, and falls back to defaults. Environment overrides
// are applied last.
func Load() (*Config, error) {
	if explicit := os.Getenv("OLLAMA_CLI_CONFIG"); explicit != "" {
		return LoadFromPath(explicit)
	}

	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try the legacy flat file last. It is read but never written; saving
	// migrates the settings into config.toml.
	legacyPath, err := LegacyConfigPath()
	if err == nil {
		if _, statErr := os.Stat(legacyPath); statErr == nil {
			if err := loadLegacy(cfg, legacyPath); err != nil {
				loadErr = fmt.Errorf("failed to load legacy config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finishLoad applies the post-decode pipeline shared by every load path.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.Migrate()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// loadLegacy reads the original tool's flat KEY=value file. Only the two
// keys that tool ever wrote are honored.
func loadLegacy(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "OLLAMA_HOST":
			cfg.Server.URL = value
		case "OLLAMA_MODEL":
			cfg.DefaultModel = value
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	// General
	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaults.DefaultModel
	}

	// Server
	if cfg.Server.URL == "" {
		cfg.Server.URL = defaults.Server.URL
	}
	if cfg.Server.TimeoutSecs == 0 {
		cfg.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}

	// Chat
	if cfg.Chat.ContextTokens == 0 {
		cfg.Chat.ContextTokens = defaults.Chat.ContextTokens
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = defaults.Chat.Temperature
	}
	if cfg.Chat.TopP == 0 {
		cfg.Chat.TopP = defaults.Chat.TopP
	}
	if cfg.Chat.TopK == 0 {
		cfg.Chat.TopK = defaults.Chat.TopK
	}

	// History
	if cfg.History.MaxConversations == 0 {
		cfg.History.MaxConversations = defaults.History.MaxConversations
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	// Session
	if cfg.Session.AutoSaveIntervalSecs == 0 {
		cfg.Session.AutoSaveIntervalSecs = defaults.Session.AutoSaveIntervalSecs
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# ollama-cli configuration file")
	fmt.Fprintln(file, "# Generated by ollama-cli - edit with care")
	fmt.Fprintln(file, "#")
	fmt.Fprintln(file, "# Documentation: https://github.com/jordanhubbard/ollama-cli")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file. The write is atomic so a
// crash mid-save cannot leave a half-written config behind.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Server URL must parse and carry an http(s) scheme.
	if c.Server.URL != "" {
		u, err := url.Parse(c.Server.URL)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "server.url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, ValidationError{
				Field:   "server.url",
				Message: fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme),
			})
		}
	}

	if c.Server.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.Chat.ContextTokens <= 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.context_tokens",
			Message: fmt.Sprintf("must be positive, got %d", c.Chat.ContextTokens),
		})
	}

	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %g", c.Chat.Temperature),
		})
	}

	if c.Chat.TopP < 0 || c.Chat.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.top_p",
			Message: fmt.Sprintf("must be between 0.0 and 1.0, got %g", c.Chat.TopP),
		})
	}

	if c.Chat.TopK < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.top_k",
			Message: "must be non-negative",
		})
	}

	if c.Chat.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_tokens",
			Message: "must be non-negative",
		})
	}

	if c.History.MaxConversations < 0 {
		errs = append(errs, ValidationError{
			Field:   "history.max_conversations",
			Message: "must be non-negative",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if c.Session.IdleTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.idle_timeout_secs",
			Message: "must be non-negative",
		})
	}
	if c.Session.AutoSaveIntervalSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.auto_save_interval_secs",
			Message: "must be non-negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.DefaultModel == "" {
		c.DefaultModel = defaults.DefaultModel
	}

	if c.Server.URL == "" {
		c.Server.URL = defaults.Server.URL
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}

	if c.Chat.ContextTokens == 0 {
		c.Chat.ContextTokens = defaults.Chat.ContextTokens
	}
	if c.Chat.Temperature == 0 {
		c.Chat.Temperature = defaults.Chat.Temperature
	}
	if c.Chat.TopP == 0 {
		c.Chat.TopP = defaults.Chat.TopP
	}
	if c.Chat.TopK == 0 {
		c.Chat.TopK = defaults.Chat.TopK
	}

	if c.History.MaxConversations == 0 {
		c.History.MaxConversations = defaults.History.MaxConversations
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}

	if c.Session.AutoSaveIntervalSecs == 0 {
		c.Session.AutoSaveIntervalSecs = defaults.Session.AutoSaveIntervalSecs
	}
}

// Migrate normalizes values written by older versions.
func (c *Config) Migrate() {
	// Theme names were briefly case-sensitive.
	c.UI.Theme = strings.ToLower(c.UI.Theme)

	// Trailing slashes on the server URL used to slip through and produce
	// double-slash request paths.
	c.Server.URL = strings.TrimRight(c.Server.URL, "/")
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - OLLAMA_HOST: overrides server.url (same variable the server itself uses)
//   - OLLAMA_CLI_MODEL: overrides default_model
//   - OLLAMA_CLI_SYSTEM: overrides chat.system_prompt
//   - OLLAMA_CLI_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.Server.URL = normalizeHost(host)
	}

	if model := os.Getenv("OLLAMA_CLI_MODEL"); model != "" {
		c.DefaultModel = model
	}

	if system := os.Getenv("OLLAMA_CLI_SYSTEM"); system != "" {
		c.Chat.SystemPrompt = system
	}

	if theme := os.Getenv("OLLAMA_CLI_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// normalizeHost accepts the bare host:port form OLLAMA_HOST commonly holds
// and returns a full URL.
func normalizeHost(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "http://" + host
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "chat.temperature").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "chat.temperature").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	// String input gets parsed into the field's type, so /config set works
	// with what the user typed.
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"default_model",
		"server.url",
		"server.timeout_secs",
		"server.check_on_start",
		"chat.system_prompt",
		"chat.context_tokens",
		"chat.temperature",
		"chat.top_p",
		"chat.top_k",
		"chat.max_tokens",
		"chat.seed",
		"history.enabled",
		"history.dir",
		"history.auto_save",
		"history.max_conversations",
		"history.encrypt",
		"history.index_enabled",
		"ui.theme",
		"ui.markdown",
		"ui.syntax_highlight",
		"ui.show_stats",
		"ui.show_tokens",
		"ui.compact_mode",
		"session.idle_timeout_secs",
		"session.auto_save_interval_secs",
	}
}

// Merge merges another config into this one, overwriting only non-zero values.
// Used to overlay command-line flags on the loaded file.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Version != "" {
		c.Version = other.Version
	}
	if other.DefaultModel != "" {
		c.DefaultModel = other.DefaultModel
	}

	if other.Server.URL != "" {
		c.Server.URL = other.Server.URL
	}
	if other.Server.TimeoutSecs != 0 {
		c.Server.TimeoutSecs = other.Server.TimeoutSecs
	}

	if other.Chat.SystemPrompt != "" {
		c.Chat.SystemPrompt = other.Chat.SystemPrompt
	}
	if other.Chat.ContextTokens != 0 {
		c.Chat.ContextTokens = other.Chat.ContextTokens
	}
	if other.Chat.Temperature != 0 {
		c.Chat.Temperature = other.Chat.Temperature
	}
	if other.Chat.TopP != 0 {
		c.Chat.TopP = other.Chat.TopP
	}
	if other.Chat.TopK != 0 {
		c.Chat.TopK = other.Chat.TopK
	}
	if other.Chat.MaxTokens != 0 {
		c.Chat.MaxTokens = other.Chat.MaxTokens
	}

	if other.History.Dir != "" {
		c.History.Dir = other.History.Dir
	}
	if other.History.MaxConversations != 0 {
		c.History.MaxConversations = other.History.MaxConversations
	}

	if other.UI.Theme != "" {
		c.UI.Theme = other.UI.Theme
	}
	if other.UI.CompactMode {
		c.UI.CompactMode = true
	}

	if other.Session.IdleTimeoutSecs != 0 {
		c.Session.IdleTimeoutSecs = other.Session.IdleTimeoutSecs
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
