// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mention parses @path file mentions in chat text.
package mention

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestParse_FileMention(t *testing.T) {
	tests := []struct {
		input     string
		wantPath  string
		wantClean string
	}{
		{"@src/main.go", "src/main.go", ""},
		{`@"my notes.txt"`, "my notes.txt", ""},
		{`@'my notes.txt'`, "my notes.txt", ""},
		{"Check @main.go please", "main.go", "Check please"},
		{"see\t@notes.md", "notes.md", "see"},
	}

	for _, tc := range tests {
		mentions, clean := Parse(tc.input)

		if len(mentions) != 1 {
			t.Errorf("Parse(%q) expected 1 mention, got %d", tc.input, len(mentions))
			continue
		}
		if mentions[0].Path != tc.wantPath {
			t.Errorf("Parse(%q) path = %q, want %q", tc.input, mentions[0].Path, tc.wantPath)
		}
		if clean != tc.wantClean {
			t.Errorf("Parse(%q) clean = %q, want %q", tc.input, clean, tc.wantClean)
		}
	}
}

func TestParse_MultipleMentions(t *testing.T) {
	mentions, clean := Parse("compare @a.go with @b.go")

	if len(mentions) != 2 {
		t.Fatalf("expected 2 mentions, got %d", len(mentions))
	}
	if mentions[0].Path != "a.go" || mentions[1].Path != "b.go" {
		t.Errorf("paths = %q, %q, want a.go, b.go", mentions[0].Path, mentions[1].Path)
	}
	if clean != "compare with" {
		t.Errorf("clean = %q, want %q", clean, "compare with")
	}
}

func TestParse_MentionMustStartWord(t *testing.T) {
	tests := []string{
		"email me at bob@example.com",
		"the user@host syntax",
	}

	for _, input := range tests {
		mentions, clean := Parse(input)
		if len(mentions) != 0 {
			t.Errorf("Parse(%q) expected no mentions, got %d", input, len(mentions))
		}
		if clean != input {
			t.Errorf("Parse(%q) clean = %q, text without mentions must pass through", input, clean)
		}
	}
}

func TestParse_NoMentions(t *testing.T) {
	input := "plain chat text with no references"
	mentions, clean := Parse(input)

	if mentions != nil {
		t.Errorf("expected nil mentions, got %v", mentions)
	}
	if clean != input {
		t.Errorf("clean = %q, want input unchanged", clean)
	}
}

func TestParse_RawAndPositions(t *testing.T) {
	input := "look at @notes.txt now"
	mentions, _ := Parse(input)

	if len(mentions) != 1 {
		t.Fatalf("expected 1 mention, got %d", len(mentions))
	}

	m := mentions[0]
	if m.Raw != "@notes.txt" {
		t.Errorf("Raw = %q, want @notes.txt", m.Raw)
	}
	if input[m.Start:m.End] != m.Raw {
		t.Errorf("positions [%d:%d] = %q, want %q", m.Start, m.End, input[m.Start:m.End], m.Raw)
	}
}

func TestHasMentions(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"@main.go", true},
		{"check @main.go", true},
		{"bob@example.com", false},
		{"no references here", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := HasMentions(tc.input); got != tc.want {
			t.Errorf("HasMentions(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	mentions := []Mention{
		{Path: "a.go"},
		{Path: "b.go"},
	}

	got := Describe(mentions)
	if got != "a.go, b.go" {
		t.Errorf("Describe() = %q, want %q", got, "a.go, b.go")
	}

	if Describe(nil) != "" {
		t.Error("Describe(nil) should be empty")
	}
}

// =============================================================================
// RESOLVER TESTS
// =============================================================================

func TestResolver_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello from disk\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(&ResolverConfig{
		MaxFileSize:      1024,
		MaxLines:         100,
		WorkingDirectory: dir,
	})

	// Relative path resolves against the working directory
	content, err := r.ReadFile("hello.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if content != "hello from disk\n" {
		t.Errorf("content = %q, want file contents", content)
	}

	// Absolute path works too
	content, err = r.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(abs) error = %v", err)
	}
	if content != "hello from disk\n" {
		t.Errorf("content = %q, want file contents", content)
	}
}

func TestResolver_ReadFile_NotFound(t *testing.T) {
	r := NewResolver(&ResolverConfig{
		MaxFileSize:      1024,
		MaxLines:         100,
		WorkingDirectory: t.TempDir(),
	})

	_, err := r.ReadFile("missing.txt")
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("ReadFile(missing) error = %v, want ErrFileNotFound", err)
	}
}

func TestResolver_ReadFile_Directory(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(&ResolverConfig{
		MaxFileSize:      1024,
		MaxLines:         100,
		WorkingDirectory: dir,
	})

	_, err := r.ReadFile(dir)
	if !errors.Is(err, ErrIsDirectory) {
		t.Errorf("ReadFile(dir) error = %v, want ErrIsDirectory", err)
	}
}

func TestResolver_ReadFile_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(&ResolverConfig{
		MaxFileSize:      16,
		MaxLines:         100,
		WorkingDirectory: dir,
	})

	_, err := r.ReadFile("big.txt")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("ReadFile(big) error = %v, want ErrFileTooLarge", err)
	}
}

func TestResolver_ReadFile_LineCap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "long.txt")
	content := strings.Repeat("line\n", 10)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(&ResolverConfig{
		MaxFileSize:      1024,
		MaxLines:         3,
		WorkingDirectory: dir,
	})

	got, err := r.ReadFile("long.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasSuffix(got, "... (truncated)") {
		t.Errorf("capped content should end with a truncation marker, got %q", got)
	}
	if strings.Count(got, "line\n") > 3 {
		t.Errorf("content should be capped at 3 lines, got %q", got)
	}
}

// =============================================================================
// EXPANDER TESTS
// =============================================================================

func TestExpander_Expand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("remember the milk\n"), 0644); err != nil {
		t.Fatal(err)
	}

	e := NewExpander(NewResolver(&ResolverConfig{
		MaxFileSize:      1024,
		MaxLines:         100,
		WorkingDirectory: dir,
	}))

	result := e.Expand("summarize @notes.txt briefly")

	if result.Original != "summarize @notes.txt briefly" {
		t.Errorf("Original = %q, must stay as typed", result.Original)
	}
	if result.Clean != "summarize briefly" {
		t.Errorf("Clean = %q, want %q", result.Clean, "summarize briefly")
	}
	if result.HasErrors() {
		t.Fatalf("unexpected errors: %s", result.ErrorSummary())
	}

	if !strings.Contains(result.Expanded, "<context>") {
		t.Error("Expanded should carry a context block")
	}
	if !strings.Contains(result.Expanded, `<file path="notes.txt">`) {
		t.Errorf("Expanded should name the file, got %q", result.Expanded)
	}
	if !strings.Contains(result.Expanded, "remember the milk") {
		t.Error("Expanded should include the file contents")
	}
	if !strings.HasSuffix(result.Expanded, "summarize briefly") {
		t.Errorf("Expanded should end with the clean message, got %q", result.Expanded)
	}
}

func TestExpander_Expand_NoMentions(t *testing.T) {
	e := NewExpander(nil)

	result := e.Expand("just a question")
	if result.Expanded != "just a question" {
		t.Errorf("Expanded = %q, want the message unchanged", result.Expanded)
	}
	if result.HasErrors() {
		t.Error("no mentions should mean no errors")
	}
}

func TestExpander_Expand_MissingFile(t *testing.T) {
	e := NewExpander(NewResolver(&ResolverConfig{
		MaxFileSize:      1024,
		MaxLines:         100,
		WorkingDirectory: t.TempDir(),
	}))

	result := e.Expand("read @nope.txt")

	if !result.HasErrors() {
		t.Fatal("expected a resolve error")
	}
	if !strings.Contains(result.ErrorSummary(), "@nope.txt") {
		t.Errorf("ErrorSummary = %q, should name the mention", result.ErrorSummary())
	}
	if !errors.Is(result.Errors[0].Err, ErrFileNotFound) {
		t.Errorf("error = %v, want ErrFileNotFound", result.Errors[0].Err)
	}
}

func TestMention_IsResolved(t *testing.T) {
	tests := []struct {
		name    string
		mention Mention
		want    bool
	}{
		{"unresolved", Mention{}, false},
		{"with content", Mention{Content: "some content"}, true},
		{"with error", Mention{Err: ErrFileNotFound}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.mention.IsResolved(); got != tc.want {
				t.Errorf("IsResolved() = %v, want %v", got, tc.want)
			}
		})
	}
}
