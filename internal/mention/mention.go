// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mention parses @path file mentions in chat text.
package mention

import (
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// MENTION STRUCT
// =============================================================================

// Mention is one @path reference found in chat text.
type Mention struct {
	// Raw is the mention as typed (e.g., `@src/main.go`)
	Raw string

	// Path is the referenced file path, unquoted
	Path string

	// Content is populated after resolving
	Content string

	// Err is set when resolving failed
	Err error

	// Start and End are byte positions of Raw in the input
	Start int
	End   int
}

// IsResolved reports whether the mention has been resolved.
func (m *Mention) IsResolved() bool {
	return m.Content != "" || m.Err != nil
}

// =============================================================================
// PARSER
// =============================================================================

// The @ must start a word. A path with spaces goes in quotes:
// @"my notes.txt" or @'my notes.txt'.
var mentionPattern = regexp.MustCompile(`(?:^|[ \t])@(?:"([^"]+)"|'([^']+)'|(\S+))`)

// Parse extracts all @path mentions from chat text. Returns the
// mentions and the text with the mentions removed. The caller stores
// the original text in the conversation; only the outgoing request
// sees the expansion.
func Parse(input string) ([]Mention, string) {
	var mentions []Mention
	var removals []removal

	for _, match := range mentionPattern.FindAllStringSubmatchIndex(input, -1) {
		start := match[0]
		// Skip the leading separator captured by the pattern
		if input[start] == ' ' || input[start] == '\t' {
			start++
		}

		var path string
		for i := 2; i+1 < len(match); i += 2 {
			if match[i] != -1 {
				path = input[match[i]:match[i+1]]
				break
			}
		}
		if path == "" {
			continue
		}

		mentions = append(mentions, Mention{
			Raw:   input[start:match[1]],
			Path:  path,
			Start: start,
			End:   match[1],
		})
		removals = append(removals, removal{start, match[1]})
	}

	return mentions, removeRanges(input, removals)
}

// HasMentions reports whether the input contains at least one mention.
func HasMentions(input string) bool {
	if !strings.Contains(input, "@") {
		return false
	}
	return mentionPattern.MatchString(input)
}

// Describe returns a short human summary of the mentions, for the
// status line after sending.
func Describe(mentions []Mention) string {
	if len(mentions) == 0 {
		return ""
	}

	var parts []string
	for _, m := range mentions {
		parts = append(parts, m.Path)
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

type removal struct {
	start, end int
}

// removeRanges removes the given ranges from the input, collapsing
// the whitespace left behind.
func removeRanges(input string, removals []removal) string {
	if len(removals) == 0 {
		return input
	}

	sort.Slice(removals, func(i, j int) bool {
		return removals[i].start > removals[j].start
	})

	result := input
	for _, r := range removals {
		end := r.end
		for end < len(result) && result[end] == ' ' {
			end++
		}
		result = result[:r.start] + result[end:]
	}

	result = strings.Join(strings.Fields(result), " ")
	return strings.TrimSpace(result)
}
