// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides the SQLite search index over saved transcripts.
package index

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jordanhubbard/ollama-cli/internal/conversation"
)

// =============================================================================
// SEARCH RESULT
// =============================================================================

// SearchResult is one matching conversation. Position and Snippet come
// from the earliest matching turn.
type SearchResult struct {
	ConversationID string
	Title          string
	Model          string
	Role           conversation.Role
	Position       int
	Snippet        string
	Timestamp      time.Time // when the matching turn was said
	UpdatedAt      time.Time // conversation recency, the ranking key
}

// SearchOptions configures search behavior
type SearchOptions struct {
	// MaxResults limits the number of conversations returned (0 = unlimited)
	MaxResults int

	// Roles filters matching turns by role (nil = user and assistant)
	Roles []conversation.Role

	// SnippetWidth is the rough snippet length in bytes
	SnippetWidth int
}

// DefaultSearchOptions returns default search options
func DefaultSearchOptions() *SearchOptions {
	return &SearchOptions{
		MaxResults:   25,
		Roles:        []conversation.Role{conversation.RoleUser, conversation.RoleAssistant},
		SnippetWidth: 90,
	}
}

// =============================================================================
// SEARCH
// =============================================================================

// Search finds conversations whose turn content or title contains the
// query, newest first. One result per conversation, carrying a snippet
// from its earliest matching turn.
func (idx *TranscriptIndex) Search(query string, options *SearchOptions) ([]SearchResult, error) {
	if !idx.IsIndexed() {
		return nil, ErrNotIndexed
	}

	if options == nil {
		options = DefaultSearchOptions()
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	pattern := "%" + escapeLike(query) + "%"

	sqlQuery := `
		SELECT t.conversation_id, c.title, c.model, t.role, t.position, t.content, t.created_at, c.updated_at
		FROM turns t
		JOIN conversations c ON c.id = t.conversation_id
		WHERE (t.content LIKE ?1 ESCAPE '\' OR c.title LIKE ?1 ESCAPE '\')
	`

	var args []interface{}
	args = append(args, pattern)

	roles := options.Roles
	if roles == nil {
		roles = DefaultSearchOptions().Roles
	}
	if len(roles) > 0 {
		placeholders := make([]string, len(roles))
		for i, role := range roles {
			placeholders[i] = "?"
			args = append(args, string(role))
		}
		sqlQuery += " AND t.role IN (" + strings.Join(placeholders, ",") + ")"
	}

	// Recency rank; within a conversation the earliest match wins
	sqlQuery += " ORDER BY c.updated_at DESC, t.position ASC"

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var results []SearchResult

	for rows.Next() {
		if options.MaxResults > 0 && len(results) >= options.MaxResults {
			break
		}

		var result SearchResult
		var role, content string
		var turnTime, updatedAt int64

		err := rows.Scan(
			&result.ConversationID,
			&result.Title,
			&result.Model,
			&role,
			&result.Position,
			&content,
			&turnTime,
			&updatedAt,
		)
		if err != nil {
			continue
		}

		if seen[result.ConversationID] {
			continue
		}
		seen[result.ConversationID] = true

		result.Role = conversation.Role(role)
		result.Snippet = makeSnippet(content, query, options.SnippetWidth)
		result.Timestamp = time.Unix(0, turnTime)
		result.UpdatedAt = time.Unix(0, updatedAt)

		results = append(results, result)
	}

	return results, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// escapeLike escapes LIKE wildcards so query text matches literally
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// makeSnippet extracts a window of content around the first match,
// collapsed to one line. Falls back to the content head when the query
// only matched the title.
func makeSnippet(content, query string, width int) string {
	if width <= 0 {
		width = 90
	}

	content = strings.Join(strings.Fields(content), " ")

	lower := strings.ToLower(content)
	pos := strings.Index(lower, strings.ToLower(query))
	if pos < 0 || len(lower) != len(content) {
		// Case folding changed byte offsets, or no content match
		pos = 0
	}

	start := pos - width/3
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}

	end := start + width
	if end > len(content) {
		end = len(content)
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	return snippet
}
