// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders transcripts to Markdown and JSON files.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/jordanhubbard/ollama-cli/internal/storage"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts to JSON format.
// NOTE: JSON exports always include the complete transcript and do not
// respect filtering options. The output is the same shape the store
// writes, so an exported file can be dropped back into the conversation
// directory and loaded.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter. The options parameter is
// accepted for consistency with other exporters but does not filter
// JSON output.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export renders a transcript as indented JSON.
func (e *JSONExporter) Export(tr *storage.Transcript) ([]byte, error) {
	if tr == nil {
		return nil, fmt.Errorf("transcript is nil")
	}

	return json.MarshalIndent(tr, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
