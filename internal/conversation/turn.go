// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the dialogue state for one chat session.
package conversation

import (
	"strings"
	"time"

	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DisplayName returns the label used when printing transcripts.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// TURN
// =============================================================================

// turnOverheadTokens approximates the per-message wrapping cost (role tag,
// separators) the server counts beyond the raw content.
const turnOverheadTokens = 4

// Turn is one message unit of the dialogue. Turns are value types and are
// immutable once appended to a Conversation; callers set any stat fields
// before appending.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Truncated marks an assistant turn whose response was cancelled
	// mid-stream, so the content is a prefix of what the model would
	// have said.
	Truncated bool `json:"truncated,omitempty"`

	// TokenCount is the estimated cost of this turn in the context
	// window, content plus per-message overhead.
	TokenCount int `json:"token_count,omitempty"`

	// Generation stats, populated on assistant turns only.
	TTFT          time.Duration `json:"ttft,omitempty"`
	TotalDuration time.Duration `json:"total_duration,omitempty"`
	TokensPerSec  float64       `json:"tokens_per_sec,omitempty"`
}

// NewTurn creates a turn with its timestamp and token estimate set.
func NewTurn(role Role, content string) Turn {
	return Turn{
		Role:       role,
		Content:    content,
		Timestamp:  time.Now(),
		TokenCount: EstimateTokens(content) + turnOverheadTokens,
	}
}

// NewUserTurn creates a user turn. Content is stored verbatim.
func NewUserTurn(content string) Turn {
	return NewTurn(RoleUser, content)
}

// NewAssistantTurn creates an assistant turn.
func NewAssistantTurn(content string) Turn {
	return NewTurn(RoleAssistant, content)
}

// NewSystemTurn creates a system turn.
func NewSystemTurn(content string) Turn {
	return NewTurn(RoleSystem, content)
}

// Tokens returns the turn's estimated context cost.
func (t Turn) Tokens() int {
	if t.TokenCount > 0 {
		return t.TokenCount
	}
	return EstimateTokens(t.Content) + turnOverheadTokens
}

// Preview returns a single-line preview of the content for listings.
func (t Turn) Preview(maxRunes int) string {
	oneLine := strings.Join(strings.Fields(t.Content), " ")
	return util.TruncateRunes(oneLine, maxRunes)
}

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// EstimateTokens approximates the token count of text using the common
// four-characters-per-token heuristic. The same estimator is used for
// context accounting everywhere so budgets stay comparable.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// truncateToTokens cuts content so its estimate fits within maxTokens.
// The cut lands on a rune boundary so multi-byte characters stay intact.
// Returns the empty string when maxTokens is zero or negative.
func truncateToTokens(content string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	maxBytes := maxTokens * 4
	if len(content) <= maxBytes {
		return content
	}
	end := 0
	for i := range content {
		if i > maxBytes {
			break
		}
		end = i
	}
	return content[:end]
}
