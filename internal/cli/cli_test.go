// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution.
//
// This test file covers argument parsing, command dispatch, exit code
// mapping, and the pure helpers behind /write, /modify, and /config.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jordanhubbard/ollama-cli/internal/commands"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"show", "--format", "json"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("format") != "json" {
					t.Errorf("Flag(format) = %q, want %q", p.Flag("format"), "json")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"export", "--output=notes.md"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("output") != "notes.md" {
					t.Errorf("Flag(output) = %q, want %q", p.Flag("output"), "notes.md")
				}
			},
		},
		{
			name:    "boolean flag",
			args:    []string{"show", "--json"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
			},
		},
		{
			name:    "multiple positional args",
			args:    []string{"search", "error", "in", "production"},
			wantSub: "search",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 4 {
					t.Errorf("PositionalCount() = %d, want 4", p.PositionalCount())
				}
				joined := strings.Join(p.PositionalFrom(1), " ")
				if joined != "error in production" {
					t.Errorf("PositionalFrom(1) joined = %q, want %q", joined, "error in production")
				}
			},
		},
		{
			name:    "mixed flags and positional",
			args:    []string{"export", "--format", "md", "3"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("format") != "md" {
					t.Errorf("Flag(format) = %q, want %q", p.Flag("format"), "md")
				}
				if p.Positional(1) != "3" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "3")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			if parser.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", parser.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, parser)
			}
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		flagName   string
		defaultVal int
		want       int
	}{
		{
			name:       "flag present",
			args:       []string{"show", "--lines", "10"},
			flagName:   "lines",
			defaultVal: 5,
			want:       10,
		},
		{
			name:       "flag missing uses default",
			args:       []string{"show"},
			flagName:   "lines",
			defaultVal: 5,
			want:       5,
		},
		{
			name:       "invalid int uses default",
			args:       []string{"show", "--lines", "abc"},
			flagName:   "lines",
			defaultVal: 5,
			want:       5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			got := parser.FlagIntOrDefault(tt.flagName, tt.defaultVal)
			if got != tt.want {
				t.Errorf("FlagIntOrDefault(%q, %d) = %d, want %d", tt.flagName, tt.defaultVal, got, tt.want)
			}
		})
	}
}

func TestArgParser_HasFlag(t *testing.T) {
	parser := NewArgParser([]string{"show", "--json", "--format", "md"})

	if !parser.HasFlag("json") {
		t.Error("HasFlag(json) should be true")
	}
	if !parser.HasFlag("format") {
		t.Error("HasFlag(format) should be true")
	}
	if parser.HasFlag("nonexistent") {
		t.Error("HasFlag(nonexistent) should be false")
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	parser := NewArgParser([]string{})
	if parser.Subcommand() != "" {
		t.Errorf("Subcommand() = %q, want empty", parser.Subcommand())
	}
	if parser.PositionalCount() != 0 {
		t.Errorf("PositionalCount() = %d, want 0", parser.PositionalCount())
	}
}

func TestArgParser_OnlyFlags(t *testing.T) {
	parser := NewArgParser([]string{"--verbose", "--json"})
	if parser.Subcommand() != "" {
		t.Errorf("Subcommand() = %q, want empty", parser.Subcommand())
	}
	if !parser.BoolFlag("verbose") {
		t.Error("BoolFlag(verbose) should be true")
	}
	if !parser.BoolFlag("json") {
		t.Error("BoolFlag(json) should be true")
	}
}

func TestArgParser_FlagOrDefault(t *testing.T) {
	parser := NewArgParser([]string{"cmd", "--present", "value"})

	if parser.FlagOrDefault("present", "default") != "value" {
		t.Error("FlagOrDefault should return actual value when present")
	}
	if parser.FlagOrDefault("missing", "default") != "default" {
		t.Error("FlagOrDefault should return default when missing")
	}
}

// =============================================================================
// PARSE BOOL STRING TESTS
// =============================================================================

func TestParseBoolString(t *testing.T) {
	trueValues := []string{"true", "TRUE", "True", "yes", "YES", "y", "Y", "1", "on", "ON"}
	falseValues := []string{"false", "FALSE", "False", "no", "NO", "n", "N", "0", "off", "OFF"}

	for _, v := range trueValues {
		t.Run("true_"+v, func(t *testing.T) {
			got, err := ParseBoolString(v)
			if err != nil {
				t.Errorf("ParseBoolString(%q) error = %v", v, err)
			}
			if !got {
				t.Errorf("ParseBoolString(%q) = false, want true", v)
			}
		})
	}

	for _, v := range falseValues {
		t.Run("false_"+v, func(t *testing.T) {
			got, err := ParseBoolString(v)
			if err != nil {
				t.Errorf("ParseBoolString(%q) error = %v", v, err)
			}
			if got {
				t.Errorf("ParseBoolString(%q) = true, want false", v)
			}
		})
	}

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseBoolString("maybe")
		if err == nil {
			t.Error("ParseBoolString(maybe) should error")
		}
	})
}

// =============================================================================
// PARSE INT WITH VALIDATION TESTS
// =============================================================================

func TestParseIntWithValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		field   string
		want    int
		wantErr bool
	}{
		{"valid positive", "42", "count", 42, false},
		{"valid one", "1", "count", 1, false},
		{"zero is invalid", "0", "count", 0, true},
		{"negative is invalid", "-5", "count", 0, true},
		{"empty is invalid", "", "count", 0, true},
		{"non-numeric is invalid", "abc", "count", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntWithValidation(tt.input, tt.field)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseIntWithValidation(%q, %q) error = %v, wantErr %v", tt.input, tt.field, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseIntWithValidation(%q, %q) = %d, want %d", tt.input, tt.field, got, tt.want)
			}
		})
	}
}

// =============================================================================
// COMMAND DISPATCH TESTS (testing Parse() with os.Args simulation)
// =============================================================================

// TestParse_Integration tests the actual Parse() function by temporarily
// modifying os.Args. This is an integration test of the full CLI parsing.
func TestParse_Integration(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	tests := []struct {
		name        string
		args        []string
		wantCommand Command
		validate    func(*testing.T, Args)
	}{
		{
			name:        "no args defaults to chat",
			args:        []string{"ollama-cli"},
			wantCommand: CmdChat,
		},
		{
			name:        "ask command",
			args:        []string{"ollama-cli", "ask", "What is Go?"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Query != "What is Go?" {
					t.Errorf("Query = %q, want %q", a.Query, "What is Go?")
				}
			},
		},
		{
			name:        "ask joins unquoted words",
			args:        []string{"ollama-cli", "ask", "what", "is", "a", "goroutine"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Query != "what is a goroutine" {
					t.Errorf("Query = %q, want %q", a.Query, "what is a goroutine")
				}
			},
		},
		{
			name:        "ask with model flag",
			args:        []string{"ollama-cli", "ask", "--model", "qwen2.5:14b", "Hello"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Model != "qwen2.5:14b" {
					t.Errorf("Model = %q, want %q", a.Model, "qwen2.5:14b")
				}
				if a.Query != "Hello" {
					t.Errorf("Query = %q, want %q", a.Query, "Hello")
				}
			},
		},
		{
			name:        "ask with no-stream flag",
			args:        []string{"ollama-cli", "ask", "--no-stream", "Question"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if !a.NoStream {
					t.Error("NoStream should be true")
				}
			},
		},
		{
			name:        "ask with quiet flag",
			args:        []string{"ollama-cli", "ask", "-q", "Question"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if !a.Quiet {
					t.Error("Quiet should be true")
				}
			},
		},
		{
			name:        "global flag before subcommand",
			args:        []string{"ollama-cli", "-q", "ask", "Question"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if !a.Quiet {
					t.Error("Quiet should be true")
				}
				if a.Query != "Question" {
					t.Errorf("Query = %q, want %q", a.Query, "Question")
				}
			},
		},
		{
			name:        "server flag with equals",
			args:        []string{"ollama-cli", "--server=http://remote:11434", "status"},
			wantCommand: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if a.ServerURL != "http://remote:11434" {
					t.Errorf("ServerURL = %q, want %q", a.ServerURL, "http://remote:11434")
				}
			},
		},
		{
			name:        "chat command",
			args:        []string{"ollama-cli", "chat"},
			wantCommand: CmdChat,
		},
		{
			name:        "chat with model",
			args:        []string{"ollama-cli", "chat", "--model", "llama3:8b"},
			wantCommand: CmdChat,
			validate: func(t *testing.T, a Args) {
				if a.Model != "llama3:8b" {
					t.Errorf("Model = %q, want %q", a.Model, "llama3:8b")
				}
			},
		},
		{
			name:        "models command",
			args:        []string{"ollama-cli", "models"},
			wantCommand: CmdModels,
		},
		{
			name:        "list is an alias for models",
			args:        []string{"ollama-cli", "list"},
			wantCommand: CmdModels,
		},
		{
			name:        "status command",
			args:        []string{"ollama-cli", "status"},
			wantCommand: CmdStatus,
		},
		{
			name:        "status short alias",
			args:        []string{"ollama-cli", "s"},
			wantCommand: CmdStatus,
		},
		{
			name:        "config subcommand routing",
			args:        []string{"ollama-cli", "config", "set", "chat.temperature", "0.9"},
			wantCommand: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "set" {
					t.Errorf("Subcommand = %q, want %q", a.Subcommand, "set")
				}
				want := []string{"chat.temperature", "0.9"}
				if len(a.Rest) != len(want) || a.Rest[0] != want[0] || a.Rest[1] != want[1] {
					t.Errorf("Rest = %v, want %v", a.Rest, want)
				}
			},
		},
		{
			name:        "sessions subcommand routing",
			args:        []string{"ollama-cli", "sessions", "search", "coffee", "brewing"},
			wantCommand: CmdSessions,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "search" {
					t.Errorf("Subcommand = %q, want %q", a.Subcommand, "search")
				}
			},
		},
		{
			name:        "session singular is accepted",
			args:        []string{"ollama-cli", "session", "list"},
			wantCommand: CmdSessions,
		},
		{
			name:        "tui command",
			args:        []string{"ollama-cli", "tui"},
			wantCommand: CmdTUI,
		},
		{
			name:        "help command",
			args:        []string{"ollama-cli", "help"},
			wantCommand: CmdHelp,
		},
		{
			name:        "version flag",
			args:        []string{"ollama-cli", "--version"},
			wantCommand: CmdVersion,
		},
		{
			name:        "json flag routes through",
			args:        []string{"ollama-cli", "models", "--json"},
			wantCommand: CmdModels,
			validate: func(t *testing.T, a Args) {
				if !a.JSON {
					t.Error("JSON should be true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cmd, args := Parse()

			if cmd != tt.wantCommand {
				t.Errorf("Command = %v, want %v", cmd, tt.wantCommand)
			}

			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

func TestParse_UnknownCommand(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	os.Args = []string{"ollama-cli", "bogus"}
	cmd, args := Parse()

	if cmd != CmdHelp {
		t.Errorf("Command = %v, want CmdHelp", cmd)
	}
	if args.Subcommand != "bogus" {
		t.Errorf("Subcommand = %q, want %q", args.Subcommand, "bogus")
	}
}

// =============================================================================
// EXIT CODE TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},
		{"context canceled", context.Canceled, ExitInterrupted},
		{"wrapped cancellation", fmt.Errorf("sending: %w", context.Canceled), ExitInterrupted},
		{"validation error", NewValidationError("format", "pdf", "unsupported format"), ExitUsageError},
		{"missing argument", ErrMissingArgument("prompt", "ask <prompt>"), ExitUsageError},
		{"unknown directive", &commands.UnknownCommandError{Name: "/bogus"}, ExitUsageError},
		{"not found error", NewNotFoundError("session", "a1b2c3"), ExitNotFoundError},
		{"config message fallback", errors.New("failed to load configuration"), ExitConfigError},
		{"connection message fallback", errors.New("dial tcp 127.0.0.1:11434: connection refused"), ExitNetworkError},
		{"timeout message fallback", errors.New("request timed out"), ExitTimeoutError},
		{"plain error", errors.New("something broke"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// =============================================================================
// CONFIG KEY NORMALIZATION TESTS
// =============================================================================

func TestNormalizeConfigKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"default_model", "default_model"},
		{"server.url", "server.url"},
		{"server_url", "server.url"},
		{"chat_temperature", "chat.temperature"},
		{"history_enabled", "history.enabled"},
		{"ui_markdown", "ui.markdown"},
		{"session_idle_timeout_secs", "session.idle_timeout_secs"},
		{"  Chat.Temperature  ", "chat.temperature"},
		{"unknown_thing", "unknown_thing"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeConfigKey(tt.in); got != tt.want {
				t.Errorf("normalizeConfigKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatConfigValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"empty string", "", "(not set)"},
		{"string", "llama3:8b", "llama3:8b"},
		{"float trims zeros", 0.70, "0.7"},
		{"whole float", 1.0, "1"},
		{"bool", true, "true"},
		{"int", 4096, "4096"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatConfigValue(tt.in); got != tt.want {
				t.Errorf("formatConfigValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// DIRECTIVE ARGUMENT SPLITTING TESTS
// =============================================================================

func TestDirectiveTargetAndPrompt(t *testing.T) {
	tests := []struct {
		name       string
		rawArgs    string
		args       []string
		wantFile   string
		wantPrompt string
	}{
		{
			name:       "simple file and prompt",
			rawArgs:    "main.go add a usage message",
			args:       []string{"main.go", "add", "a", "usage", "message"},
			wantFile:   "main.go",
			wantPrompt: "add a usage message",
		},
		{
			name:       "prompt spacing preserved from raw tail",
			rawArgs:    "notes.md summarize:  keep  both  spaces",
			args:       []string{"notes.md", "summarize:", "keep", "both", "spaces"},
			wantFile:   "notes.md",
			wantPrompt: "summarize:  keep  both  spaces",
		},
		{
			name:       "file only",
			rawArgs:    "main.go",
			args:       []string{"main.go"},
			wantFile:   "main.go",
			wantPrompt: "",
		},
		{
			name:       "quoted file name falls back to rejoin",
			rawArgs:    `"my notes.md" summarize this`,
			args:       []string{"my notes.md", "summarize", "this"},
			wantFile:   "my notes.md",
			wantPrompt: "summarize this",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, prompt := directiveTargetAndPrompt(tt.rawArgs, tt.args)
			if file != tt.wantFile {
				t.Errorf("file = %q, want %q", file, tt.wantFile)
			}
			if prompt != tt.wantPrompt {
				t.Errorf("prompt = %q, want %q", prompt, tt.wantPrompt)
			}
		})
	}
}

// =============================================================================
// FILE GENERATION PARSING TESTS
// =============================================================================

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"files": []}`,
			want: `{"files": []}`,
		},
		{
			name: "fenced json block",
			in:   "```json\n{\"files\": []}\n```",
			want: `{"files": []}`,
		},
		{
			name: "fence without language",
			in:   "```\n{\"files\": []}\n```",
			want: `{"files": []}`,
		},
		{
			name: "leading prose",
			in:   "Here is the file you asked for:\n{\"files\": [{\"path\": \"a\"}]}",
			want: `{"files": [{"path": "a"}]}`,
		},
		{
			name: "no object at all",
			in:   "sorry, I cannot do that",
			want: "sorry, I cannot do that",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONObject(tt.in); got != tt.want {
				t.Errorf("extractJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseGeneratedFiles(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		files, err := parseGeneratedFiles(`{"files": [{"path": "hello.py", "content": "print('hi')\n"}]}`)
		if err != nil {
			t.Fatalf("parseGeneratedFiles() error = %v", err)
		}
		if len(files) != 1 {
			t.Fatalf("len(files) = %d, want 1", len(files))
		}
		if files[0].Path != "hello.py" {
			t.Errorf("Path = %q, want %q", files[0].Path, "hello.py")
		}
		if files[0].Content != "print('hi')\n" {
			t.Errorf("Content = %q, want %q", files[0].Content, "print('hi')\n")
		}
	})

	t.Run("fenced response", func(t *testing.T) {
		files, err := parseGeneratedFiles("```json\n{\"files\": [{\"path\": \"a.txt\", \"content\": \"x\"}]}\n```")
		if err != nil {
			t.Fatalf("parseGeneratedFiles() error = %v", err)
		}
		if len(files) != 1 || files[0].Path != "a.txt" {
			t.Errorf("files = %+v, want one file a.txt", files)
		}
	})

	t.Run("not json", func(t *testing.T) {
		if _, err := parseGeneratedFiles("I'd be happy to help!"); err == nil {
			t.Error("parseGeneratedFiles should error on prose")
		}
	})

	t.Run("empty file list", func(t *testing.T) {
		if _, err := parseGeneratedFiles(`{"files": []}`); err == nil {
			t.Error("parseGeneratedFiles should error on empty list")
		}
	})

	t.Run("file without path", func(t *testing.T) {
		if _, err := parseGeneratedFiles(`{"files": [{"content": "x"}]}`); err == nil {
			t.Error("parseGeneratedFiles should error on missing path")
		}
	})
}

func TestResolveWorkspacePath(t *testing.T) {
	workDir := filepath.Join("/", "home", "user", "project")

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative file", "main.go", filepath.Join(workDir, "main.go"), false},
		{"nested file", filepath.Join("cmd", "main.go"), filepath.Join(workDir, "cmd", "main.go"), false},
		{"dot segments collapse", "a/../b.txt", filepath.Join(workDir, "b.txt"), false},
		{"empty path", "", "", true},
		{"absolute path", filepath.Join("/", "etc", "passwd"), "", true},
		{"parent escape", "..", "", true},
		{"nested escape", filepath.Join("..", "..", "secrets"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveWorkspacePath(workDir, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveWorkspacePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("resolveWorkspacePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// =============================================================================
// FORMATTING HELPER TESTS
// =============================================================================

func TestShortID(t *testing.T) {
	if got := shortID("a1b2c3d4e5f6"); got != "a1b2c3d4" {
		t.Errorf("shortID(long) = %q, want %q", got, "a1b2c3d4")
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(short) = %q, want %q", got, "abc")
	}
	if got := shortID(""); got != "" {
		t.Errorf("shortID(empty) = %q, want empty", got)
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"just now", now.Add(-30 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5 minutes ago"},
		{"one hour", now.Add(-90 * time.Minute), "1 hour ago"},
		{"days", now.Add(-49 * time.Hour), "2 days ago"},
		{"weeks", now.Add(-8 * 24 * time.Hour), "1 week ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTimeAgo(tt.t); got != tt.want {
				t.Errorf("formatTimeAgo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize(1, "turn", "turns"); got != "turn" {
		t.Errorf("pluralize(1) = %q, want %q", got, "turn")
	}
	if got := pluralize(2, "turn", "turns"); got != "turns" {
		t.Errorf("pluralize(2) = %q, want %q", got, "turns")
	}
	if got := pluralize(0, "turn", "turns"); got != "turns" {
		t.Errorf("pluralize(0) = %q, want %q", got, "turns")
	}
}

// =============================================================================
// COMMAND SUGGESTION TESTS
// =============================================================================

func TestSuggestCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hepl", "help"},
		{"stauts", "status"},
		{"chta", "chat"},
		{"modles", "models"},
		{"sesions", "sessions"},
		{"xyzzy", ""},
		{"a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SuggestCommand(tt.input); got != tt.want {
				t.Errorf("SuggestCommand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSuggestDirective(t *testing.T) {
	s := &ChatSession{registry: commands.NewRegistry()}

	tests := []struct {
		typed string
		want  string
	}{
		{"/modle", "/model"},
		{"/hlp", "/help"},
		{"/quitt", "/quit"},
		{"/zzzzz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.typed, func(t *testing.T) {
			if got := s.suggestDirective(tt.typed); got != tt.want {
				t.Errorf("suggestDirective(%q) = %q, want %q", tt.typed, got, tt.want)
			}
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"help", "hepl", 2},
		{"model", "model", 0},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			if got := levenshteinDistance(tt.s1, tt.s2); got != tt.want {
				t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.want)
			}
		})
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkArgParser_Simple(b *testing.B) {
	args := []string{"export", "3"}
	for i := 0; i < b.N; i++ {
		NewArgParser(args)
	}
}

func BenchmarkArgParser_Complex(b *testing.B) {
	args := []string{"export", "3", "--format", "md", "--output", "notes.md", "--json", "-q"}
	for i := 0; i < b.N; i++ {
		NewArgParser(args)
	}
}

func BenchmarkParseGeneratedFiles(b *testing.B) {
	payload := `{"files": [{"path": "hello.py", "content": "print('hi')\n"}]}`
	for i := 0; i < b.N; i++ {
		parseGeneratedFiles(payload)
	}
}
