// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mention parses @path file mentions in chat text.
package mention

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrFileNotFound is returned when a mentioned file doesn't exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileTooLarge is returned when a mentioned file exceeds the size cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrIsDirectory is returned when the mentioned path is a directory.
	ErrIsDirectory = errors.New("path is a directory")
)

// =============================================================================
// RESOLVER
// =============================================================================

// ResolverConfig holds limits for reading mentioned files.
type ResolverConfig struct {
	// MaxFileSize is the largest file to include (default: 100KB)
	MaxFileSize int64

	// MaxLines caps the lines included per file (default: 1000)
	MaxLines int

	// WorkingDirectory is the base for relative paths
	WorkingDirectory string
}

// DefaultResolverConfig returns the default limits.
func DefaultResolverConfig() *ResolverConfig {
	wd, _ := os.Getwd()
	return &ResolverConfig{
		MaxFileSize:      100 * 1024,
		MaxLines:         1000,
		WorkingDirectory: wd,
	}
}

// Resolver reads mentioned files from disk.
type Resolver struct {
	config *ResolverConfig
}

// NewResolver creates a resolver with the given config.
func NewResolver(config *ResolverConfig) *Resolver {
	if config == nil {
		config = DefaultResolverConfig()
	}
	return &Resolver{config: config}
}

// ResolveAll resolves content for every mention, in place.
func (r *Resolver) ResolveAll(mentions []Mention) []Mention {
	result := make([]Mention, len(mentions))
	copy(result, mentions)

	for i := range result {
		result[i].Content, result[i].Err = r.ReadFile(result[i].Path)
	}

	return result
}

// ReadFile reads one mentioned file, applying the size and line caps.
func (r *Resolver) ReadFile(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.config.WorkingDirectory, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrFileNotFound
		}
		return "", err
	}
	if info.IsDir() {
		return "", ErrIsDirectory
	}
	if info.Size() > r.config.MaxFileSize {
		return "", ErrFileTooLarge
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(content), "\n")
	if len(lines) > r.config.MaxLines {
		lines = lines[:r.config.MaxLines]
		lines = append(lines, "... (truncated)")
	}

	return strings.Join(lines, "\n"), nil
}

// =============================================================================
// EXPANDER
// =============================================================================

// ExpansionResult is the outcome of expanding one chat line.
type ExpansionResult struct {
	// Original is the line as typed, what the conversation stores
	Original string

	// Expanded is the line with file context prepended, what the
	// request carries
	Expanded string

	// Clean is the line with mentions removed
	Clean string

	// Mentions are the parsed, resolved mentions
	Mentions []Mention

	// Errors holds the mentions that failed to resolve
	Errors []Mention
}

// HasErrors reports whether any mention failed to resolve.
func (r *ExpansionResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ErrorSummary returns one line describing the failed mentions.
func (r *ExpansionResult) ErrorSummary() string {
	if len(r.Errors) == 0 {
		return ""
	}

	var parts []string
	for _, m := range r.Errors {
		parts = append(parts, m.Raw+": "+m.Err.Error())
	}
	return strings.Join(parts, "; ")
}

// Expander turns chat text with mentions into request text with the
// mentioned files inlined.
type Expander struct {
	resolver *Resolver
}

// NewExpander creates an expander. A nil resolver gets defaults.
func NewExpander(resolver *Resolver) *Expander {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &Expander{resolver: resolver}
}

// Expand parses and resolves all mentions in the message. When the
// message has no mentions, Expanded equals Original and no I/O happens.
func (e *Expander) Expand(message string) *ExpansionResult {
	result := &ExpansionResult{
		Original: message,
	}

	mentions, clean := Parse(message)
	result.Mentions = mentions
	result.Clean = clean

	if len(mentions) == 0 {
		result.Expanded = message
		return result
	}

	mentions = e.resolver.ResolveAll(mentions)
	result.Mentions = mentions

	for _, m := range mentions {
		if m.Err != nil {
			result.Errors = append(result.Errors, m)
		}
	}

	result.Expanded = buildExpanded(mentions, clean)
	return result
}

// buildExpanded prepends the resolved file contents to the message.
func buildExpanded(mentions []Mention, message string) string {
	var sb strings.Builder

	hasContent := false
	for _, m := range mentions {
		if m.Content != "" {
			hasContent = true
			break
		}
	}

	if hasContent {
		sb.WriteString("<context>\n")
		for _, m := range mentions {
			if m.Content == "" {
				continue
			}
			fmt.Fprintf(&sb, "\n<file path=%q>\n", m.Path)
			sb.WriteString(m.Content)
			if !strings.HasSuffix(m.Content, "\n") {
				sb.WriteString("\n")
			}
			sb.WriteString("</file>\n")
		}
		sb.WriteString("\n</context>\n\n")
	}

	sb.WriteString(message)
	return sb.String()
}
