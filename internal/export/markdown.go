// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders transcripts to Markdown and JSON files.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jordanhubbard/ollama-cli/internal/conversation"
	"github.com/jordanhubbard/ollama-cli/internal/storage"
	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders transcripts as Markdown documents.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export renders a transcript as Markdown.
func (e *MarkdownExporter) Export(tr *storage.Transcript) ([]byte, error) {
	if tr == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	if len(tr.Turns) == 0 {
		return nil, fmt.Errorf("transcript has no turns")
	}
	if tr.CreatedAt.IsZero() {
		return nil, fmt.Errorf("transcript has invalid creation timestamp")
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(tr.Title)))
		sb.WriteString(fmt.Sprintf("model: %s\n", tr.Model))
		sb.WriteString(fmt.Sprintf("date: %s\n", tr.CreatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", tr.UpdatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("turns: %d\n", len(tr.Turns)))
		if tokens := totalTokens(tr); tokens > 0 {
			sb.WriteString(fmt.Sprintf("tokens: %d\n", tokens))
		}
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: ollama-cli\n")
		sb.WriteString("---\n\n")
	}

	// Title
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(tr.Title)))

	// Metadata section
	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		sb.WriteString(fmt.Sprintf("- **Model**: %s\n", tr.Model))
		sb.WriteString(fmt.Sprintf("- **Created**: %s\n", formatTimestamp(tr.CreatedAt)))
		sb.WriteString(fmt.Sprintf("- **Last Updated**: %s\n", formatTimestamp(tr.UpdatedAt)))
		sb.WriteString(fmt.Sprintf("- **Turns**: %d\n", len(tr.Turns)))
		if tokens := totalTokens(tr); tokens > 0 {
			sb.WriteString(fmt.Sprintf("- **Tokens Used**: %d\n", tokens))
		}
		sb.WriteString("\n---\n\n")
	}

	// Conversation turns
	sb.WriteString("## Conversation\n\n")

	for i, turn := range tr.Turns {
		roleLabel := formatRoleLabel(turn.Role)
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n",
				roleLabel,
				formatShortTimestamp(turn.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", roleLabel))
		}

		sb.WriteString(strings.TrimSpace(turn.Content))
		sb.WriteString("\n\n")

		if turn.Truncated {
			sb.WriteString("<sub>Response interrupted before completion</sub>\n\n")
		}

		// Statistics for assistant turns
		if turn.Role == conversation.RoleAssistant && e.options.IncludeMetadata {
			if stats := formatTurnStats(&turn); stats != "" {
				sb.WriteString(stats)
				sb.WriteString("\n\n")
			}
		}

		// Separator between turns (except last)
		if i < len(tr.Turns)-1 {
			sb.WriteString("---\n\n")
		}
	}

	// Footer
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from ollama-cli on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatRoleLabel returns the heading label for a turn's role.
func formatRoleLabel(role conversation.Role) string {
	switch role {
	case conversation.RoleUser:
		return "[User]"
	case conversation.RoleAssistant:
		return "[Assistant]"
	case conversation.RoleSystem:
		return "[System]"
	case "":
		return "Unknown"
	default:
		runes := []rune(string(role))
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}

// formatTurnStats formats generation statistics for an assistant turn.
func formatTurnStats(turn *conversation.Turn) string {
	var parts []string

	if turn.TokenCount > 0 {
		parts = append(parts, fmt.Sprintf("Tokens: %d", turn.TokenCount))
	}
	if turn.TotalDuration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", util.FormatDuration(turn.TotalDuration)))
	}
	if turn.TTFT > 0 {
		parts = append(parts, fmt.Sprintf("TTFT: %s", util.FormatDuration(turn.TTFT)))
	}
	if turn.TokensPerSec > 0 {
		parts = append(parts, fmt.Sprintf("Speed: %s", formatTokensPerSec(turn.TokensPerSec)))
	}

	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("<sub>Stats: %s</sub>", strings.Join(parts, " | "))
}

// totalTokens sums the token estimates across all turns.
func totalTokens(tr *storage.Transcript) int {
	total := 0
	for _, turn := range tr.Turns {
		total += turn.TokenCount
	}
	return total
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes and escapes a YAML value when it contains special
// characters. Newlines in particular must never pass through unescaped
// or a crafted title could inject extra frontmatter keys.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
