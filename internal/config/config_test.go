// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// isolateEnv points every config path at a temp directory and clears the
// override variables so tests never touch the real home directory.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("OLLAMA_CLI_HOME", dir)
	t.Setenv("OLLAMA_CLI_CONFIG", "")
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("OLLAMA_CLI_MODEL", "")
	t.Setenv("OLLAMA_CLI_SYSTEM", "")
	t.Setenv("OLLAMA_CLI_THEME", "")
	return dir
}

// TestConfig_Default tests that Default() returns a valid config with defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Version == "" {
		t.Error("Default config should have a version")
	}

	if cfg.DefaultModel != "llama3" {
		t.Errorf("Expected default model 'llama3', got '%s'", cfg.DefaultModel)
	}

	if cfg.Server.URL != "http://localhost:11434" {
		t.Errorf("Expected default server URL 'http://localhost:11434', got '%s'", cfg.Server.URL)
	}

	if cfg.Chat.ContextTokens == 0 {
		t.Error("Default config should have a context budget")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid server URL scheme",
			mutate:  func(c *Config) { c.Server.URL = "ftp://localhost:11434" },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Server.TimeoutSecs = -1 },
			wantErr: true,
		},
		{
			name:    "zero context budget",
			mutate:  func(c *Config) { c.Chat.ContextTokens = 0 },
			wantErr: true,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Chat.Temperature = 2.5 },
			wantErr: true,
		},
		{
			name:    "temperature at maximum (2.0)",
			mutate:  func(c *Config) { c.Chat.Temperature = 2.0 },
			wantErr: false,
		},
		{
			name:    "top_p out of range",
			mutate:  func(c *Config) { c.Chat.TopP = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative top_k",
			mutate:  func(c *Config) { c.Chat.TopK = -1 },
			wantErr: true,
		},
		{
			name:    "invalid theme",
			mutate:  func(c *Config) { c.UI.Theme = "neon" },
			wantErr: true,
		},
		{
			name:    "negative max conversations",
			mutate:  func(c *Config) { c.History.MaxConversations = -1 },
			wantErr: true,
		},
		{
			name:    "negative idle timeout",
			mutate:  func(c *Config) { c.Session.IdleTimeoutSecs = -10 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestConfig_GetSet tests Get and Set methods with dot notation.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	// Test Get
	val, err := cfg.Get("server.url")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "http://localhost:11434" {
		t.Errorf("Get('server.url') = %v, want 'http://localhost:11434'", val)
	}

	// Test Set with string -> string
	err = cfg.Set("default_model", "mistral")
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.DefaultModel != "mistral" {
		t.Errorf("DefaultModel after Set = %v, want 'mistral'", cfg.DefaultModel)
	}

	// Test Set with string -> float conversion (what /config set passes)
	err = cfg.Set("chat.temperature", "0.5")
	if err != nil {
		t.Fatalf("Set(chat.temperature) error = %v", err)
	}
	if cfg.Chat.Temperature != 0.5 {
		t.Errorf("Temperature after Set = %v, want 0.5", cfg.Chat.Temperature)
	}

	// Test Set with string -> int conversion
	err = cfg.Set("chat.context_tokens", "8192")
	if err != nil {
		t.Fatalf("Set(chat.context_tokens) error = %v", err)
	}
	if cfg.Chat.ContextTokens != 8192 {
		t.Errorf("ContextTokens after Set = %v, want 8192", cfg.Chat.ContextTokens)
	}

	// Test Set with string -> bool conversion
	err = cfg.Set("ui.show_stats", "true")
	if err != nil {
		t.Fatalf("Set(ui.show_stats) error = %v", err)
	}
	if !cfg.UI.ShowStats {
		t.Error("ShowStats after Set should be true")
	}

	// Test Get with invalid key
	if _, err := cfg.Get("invalid.key"); err == nil {
		t.Error("Get() with invalid key should return error")
	}

	// Test Set with invalid value
	if err := cfg.Set("chat.context_tokens", "not-a-number"); err == nil {
		t.Error("Set() with unparseable value should return error")
	}
}

// TestConfig_GetAllKeysResolvable verifies that every advertised key is
// reachable through Get.
func TestConfig_GetAllKeysResolvable(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) failed: %v", key, err)
		}
	}
}

// TestConfig_EnvOverrides tests environment variable overrides.
func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "remote:11434")
	t.Setenv("OLLAMA_CLI_MODEL", "codellama")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.URL != "http://remote:11434" {
		t.Errorf("Server.URL = %q, want bare host promoted to http URL", cfg.Server.URL)
	}
	if cfg.DefaultModel != "codellama" {
		t.Errorf("DefaultModel = %q, want 'codellama'", cfg.DefaultModel)
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost:11434", "http://localhost:11434"},
		{"http://localhost:11434", "http://localhost:11434"},
		{"https://ollama.example.com", "https://ollama.example.com"},
		{"10.0.0.5:11434", "http://10.0.0.5:11434"},
	}

	for _, tt := range tests {
		if got := normalizeHost(tt.in); got != tt.want {
			t.Errorf("normalizeHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestConfig_LegacyFormat tests parsing the original flat KEY=value file.
func TestConfig_LegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ollama-cli-config")
	legacy := "OLLAMA_HOST=http://10.0.0.9:11434\nOLLAMA_MODEL=phi3\nGARBAGE LINE\n"
	if err := os.WriteFile(path, []byte(legacy), 0600); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	cfg := Default()
	if err := loadLegacy(cfg, path); err != nil {
		t.Fatalf("loadLegacy() error = %v", err)
	}

	if cfg.Server.URL != "http://10.0.0.9:11434" {
		t.Errorf("Server.URL = %q, want legacy OLLAMA_HOST value", cfg.Server.URL)
	}
	if cfg.DefaultModel != "phi3" {
		t.Errorf("DefaultModel = %q, want 'phi3'", cfg.DefaultModel)
	}
}

// TestConfig_TOMLRoundTrip saves and reloads a config through TOML.
func TestConfig_TOMLRoundTrip(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "config.toml")

	original := Default()
	original.DefaultModel = "mistral"
	original.Chat.Temperature = 0.3
	original.UI.Theme = "light"

	if err := SaveTOML(original, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	// File must be private
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat saved config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("saved config permissions = %o, want 0600", info.Mode().Perm())
	}

	loaded := &Config{}
	if err := LoadTOML(loaded, path); err != nil {
		t.Fatalf("LoadTOML() error = %v", err)
	}

	if loaded.DefaultModel != "mistral" {
		t.Errorf("DefaultModel = %q, want 'mistral'", loaded.DefaultModel)
	}
	if loaded.Chat.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", loaded.Chat.Temperature)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("Theme = %q, want 'light'", loaded.UI.Theme)
	}
}

// TestConfig_LoadWithoutFiles falls back to defaults when nothing exists.
func TestConfig_LoadWithoutFiles(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.URL != "http://localhost:11434" {
		t.Errorf("Server.URL = %q, want default", cfg.Server.URL)
	}
	if cfg.DefaultModel != "llama3" {
		t.Errorf("DefaultModel = %q, want default", cfg.DefaultModel)
	}
}

// TestConfig_Migrate tests normalization of older value formats.
func TestConfig_Migrate(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "Dark"
	cfg.Server.URL = "http://localhost:11434/"

	cfg.Migrate()

	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want lowercased", cfg.UI.Theme)
	}
	if strings.HasSuffix(cfg.Server.URL, "/") {
		t.Errorf("Server.URL = %q, trailing slash should be trimmed", cfg.Server.URL)
	}
}

// TestConfig_Clone tests that Clone creates an independent copy.
func TestConfig_Clone(t *testing.T) {
	original := Default()
	original.Version = "original"

	clone := original.Clone()
	clone.Version = "cloned"

	if original.Version != "original" {
		t.Error("Clone should create an independent copy")
	}
	if clone.Version != "cloned" {
		t.Error("Clone version should be modified")
	}
}

// TestConfig_Merge tests merging two configs.
func TestConfig_Merge(t *testing.T) {
	base := Default()
	base.Version = "base"

	other := &Config{
		DefaultModel: "merged-model",
		Server:       ServerConfig{URL: "http://merged:11434"},
	}

	base.Merge(other)

	if base.DefaultModel != "merged-model" {
		t.Errorf("Merge should overwrite DefaultModel, got '%s'", base.DefaultModel)
	}
	if base.Server.URL != "http://merged:11434" {
		t.Errorf("Merge should overwrite Server.URL, got '%s'", base.Server.URL)
	}
	// Verify non-overwritten values remain
	if base.UI.Theme != "dark" {
		t.Error("Merge should not overwrite unset fields")
	}
	if base.Version != "base" {
		t.Error("Merge should leave empty-in-other fields alone")
	}
}

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and ReloadGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	// 50 writers using SetGlobal, 50 readers using Global
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Version = "test"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			cfg := Global()
			if cfg == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

// TestConfig_ConcurrentReload tests concurrent ReloadGlobal and Global calls.
func TestConfig_ConcurrentReload(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()

	// Initialize config first
	_ = Global()

	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// ReloadGlobal may fail if config file doesn't exist, that's ok
			_ = ReloadGlobal()
		}()
	}

	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg := Global()
			if cfg == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

// TestConfig_SetGlobalOverwrites tests that SetGlobal properly overwrites
// the existing global config.
func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()

	_ = Global()

	customCfg := Default()
	customCfg.Version = "custom-version"
	customCfg.DefaultModel = "custom-model"
	SetGlobal(customCfg)

	result := Global()
	if result.Version != "custom-version" {
		t.Errorf("Expected version 'custom-version', got '%s'", result.Version)
	}
	if result.DefaultModel != "custom-model" {
		t.Errorf("Expected model 'custom-model', got '%s'", result.DefaultModel)
	}
}
