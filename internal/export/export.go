// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders transcripts to Markdown and JSON files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jordanhubbard/ollama-cli/internal/storage"
)

// =============================================================================
// EXPORTER INTERFACE
// =============================================================================

// Exporter renders a transcript in one output format.
type Exporter interface {
	// Export returns the rendered transcript.
	Export(tr *storage.Transcript) ([]byte, error)

	// FileExtension returns the extension for generated filenames (".md").
	FileExtension() string

	// MimeType returns the format's MIME type.
	MimeType() string
}

// ForFormat returns the exporter for a /export format argument.
// Recognized: "markdown", "md", "json".
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (markdown, md, json)", format)
	}
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputPath writes to this exact path when set.
	OutputPath string

	// OutputDir receives generated filenames when OutputPath is empty.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata adds the frontmatter and session info header.
	IncludeMetadata bool

	// IncludeTimestamps adds per-turn timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns the defaults used by /export.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// =============================================================================
// FILE EXPORT
// =============================================================================

// ExportToFile renders a transcript and writes it to disk, returning
// the output path. With no explicit OutputPath the filename is
// generated from the title and a timestamp.
func ExportToFile(tr *storage.Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(tr)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename := fmt.Sprintf("conversation_%s_%s%s",
			sanitizeFilename(tr.Title),
			timestamp,
			exporter.FileExtension(),
		)
		outputPath = filepath.Join(opts.OutputDir, filename)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames
// on either Windows or Unix.
func sanitizeFilename(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		s = string(runes[:50])
	}

	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	var result []rune
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "conversation"
	}
	return string(result)
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

func formatTokensPerSec(tps float64) string {
	if tps == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f tok/s", tps)
}
