// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the dialogue state for one chat session.
package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jordanhubbard/ollama-cli/internal/ollama"
)

// =============================================================================
// ERRORS
// =============================================================================

// InvariantViolationError reports an append that would corrupt the
// dialogue structure. It indicates a controller bug, not a user error,
// and the session treats it as fatal.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return "conversation invariant violated: " + e.Reason
}

// IsInvariantViolation reports whether err is an InvariantViolationError.
func IsInvariantViolation(err error) bool {
	var violation *InvariantViolationError
	return errors.As(err, &violation)
}

// =============================================================================
// CONVERSATION
// =============================================================================

// maxTitleRunes bounds the auto-generated title taken from the first user
// turn.
const maxTitleRunes = 50

// Conversation is the ordered, append-only log of turns for one session.
//
// Structure invariants, enforced by Append:
//   - a system turn may only sit at index 0
//   - no two adjacent non-system turns share a role
//
// The log itself never shrinks except through Clear and RemoveLast; fitting
// the dialogue into a context budget is Render's job and does not mutate
// the log. All methods are safe for concurrent use.
type Conversation struct {
	mu        sync.RWMutex
	id        string
	title     string
	model     string
	createdAt time.Time
	updatedAt time.Time
	turns     []Turn
}

// New creates an empty conversation.
func New() *Conversation {
	now := time.Now()
	return &Conversation{
		id:        "conv_" + uuid.NewString(),
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the conversation's identifier.
func (c *Conversation) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// SetID overrides the identifier, used when loading a saved transcript.
func (c *Conversation) SetID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// Title returns the conversation title.
func (c *Conversation) Title() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.title
}

// SetTitle sets the conversation title.
func (c *Conversation) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = title
}

// Model returns the model the conversation was last driven by.
func (c *Conversation) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel records the model driving the conversation.
func (c *Conversation) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

// CreatedAt returns the creation time.
func (c *Conversation) CreatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.createdAt
}

// UpdatedAt returns the last mutation time.
func (c *Conversation) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// =============================================================================
// APPEND
// =============================================================================

// Append adds a turn to the end of the log. It fails with an
// InvariantViolationError when the turn would land a system turn anywhere
// but the start, put two same-role non-system turns adjacent, or carries
// an unknown role. The turn is stored as given, content untouched.
func (c *Conversation) Append(turn Turn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !turn.Role.Valid() {
		return &InvariantViolationError{Reason: "unknown role " + string(turn.Role)}
	}

	if turn.Role == RoleSystem && len(c.turns) > 0 {
		return &InvariantViolationError{Reason: "system turn only allowed at the start"}
	}

	if len(c.turns) > 0 {
		last := c.turns[len(c.turns)-1]
		if last.Role == turn.Role && turn.Role != RoleSystem {
			return &InvariantViolationError{
				Reason: "two consecutive " + string(turn.Role) + " turns",
			}
		}
	}

	c.turns = append(c.turns, turn)
	c.updatedAt = time.Now()

	if c.title == "" && turn.Role == RoleUser {
		c.title = turn.Preview(maxTitleRunes)
	}

	return nil
}

// AddUserTurn appends a user turn with the given content, verbatim.
func (c *Conversation) AddUserTurn(content string) (Turn, error) {
	turn := NewUserTurn(content)
	if err := c.Append(turn); err != nil {
		return Turn{}, err
	}
	return turn, nil
}

// AddAssistantTurn appends an assistant turn with the given content.
func (c *Conversation) AddAssistantTurn(content string) (Turn, error) {
	turn := NewAssistantTurn(content)
	if err := c.Append(turn); err != nil {
		return Turn{}, err
	}
	return turn, nil
}

// SetSystem sets, replaces, or removes (empty content) the system turn at
// index 0. This is the only sanctioned way to change the system turn after
// the conversation has started.
func (c *Conversation) SetSystem(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hasSystem := len(c.turns) > 0 && c.turns[0].Role == RoleSystem

	switch {
	case content == "" && hasSystem:
		c.turns = append([]Turn{}, c.turns[1:]...)
	case content == "":
		return
	case hasSystem:
		c.turns[0] = NewSystemTurn(content)
	default:
		c.turns = append([]Turn{NewSystemTurn(content)}, c.turns...)
	}
	c.updatedAt = time.Now()
}

// SystemTurn returns the leading system turn, if present.
func (c *Conversation) SystemTurn() (Turn, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.turns) > 0 && c.turns[0].Role == RoleSystem {
		return c.turns[0], true
	}
	return Turn{}, false
}

// RemoveLast removes and returns the most recent turn. Used by the session
// loop to roll back a user turn when the request never reached the server.
func (c *Conversation) RemoveLast() (Turn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	last := c.turns[len(c.turns)-1]
	c.turns = c.turns[:len(c.turns)-1]
	c.updatedAt = time.Now()
	return last, true
}

// Clear empties the log except for a leading system turn.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.turns) > 0 && c.turns[0].Role == RoleSystem {
		c.turns = c.turns[:1:1]
	} else {
		c.turns = nil
	}
	c.updatedAt = time.Now()
}

// =============================================================================
// ACCESS
// =============================================================================

// Turns returns a copy of the full log.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// LastTurn returns the most recent turn.
func (c *Conversation) LastTurn() (Turn, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}

// TotalTokens returns the estimated context cost of the full log.
func (c *Conversation) TotalTokens() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, t := range c.turns {
		total += t.Tokens()
	}
	return total
}

// ContextPercent reports how much of the budget the full log would
// occupy, for the status display.
func (c *Conversation) ContextPercent(budget int) float64 {
	if budget <= 0 {
		return 0
	}
	return float64(c.TotalTokens()) / float64(budget) * 100
}

// =============================================================================
// RENDER
// =============================================================================

// Render returns the subsequence of the log that fits within budget
// (estimated tokens), for serialization into a request.
//
// Eviction policy: a leading system turn is always preserved; after that,
// non-system turns are evicted strictly oldest-first until the remainder
// fits, so the result is the system turn (if any) plus a contiguous suffix
// of the rest. Turns are never split across the eviction boundary. The one
// boundary case: when even the single most recent turn cannot fit, that
// turn is returned alone with its content truncated to the remaining
// budget. A budget too small to carry any content at all yields nil.
// The log itself is not mutated.
func (c *Conversation) Render(budget int) []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if budget <= 0 || len(c.turns) == 0 {
		return nil
	}

	var out []Turn
	remaining := budget

	tail := c.turns
	if c.turns[0].Role == RoleSystem {
		sys := c.turns[0]
		if sys.Tokens() > remaining {
			// Even the system turn alone is over budget.
			sys.Content = truncateToTokens(sys.Content, remaining-turnOverheadTokens)
			if sys.Content == "" {
				return nil
			}
			sys.TokenCount = EstimateTokens(sys.Content) + turnOverheadTokens
			return []Turn{sys}
		}
		out = append(out, sys)
		remaining -= sys.Tokens()
		tail = c.turns[1:]
	}

	if len(tail) == 0 {
		return out
	}

	// Walk backward from the newest turn to find the longest suffix that
	// fits the remaining budget.
	start := len(tail)
	used := 0
	for i := len(tail) - 1; i >= 0; i-- {
		cost := tail[i].Tokens()
		if used+cost > remaining {
			break
		}
		used += cost
		start = i
	}

	if start == len(tail) {
		// Not even the newest turn fits whole: return it truncated.
		newest := tail[len(tail)-1]
		newest.Content = truncateToTokens(newest.Content, remaining-turnOverheadTokens)
		if newest.Content == "" {
			return out
		}
		newest.TokenCount = EstimateTokens(newest.Content) + turnOverheadTokens
		return append(out, newest)
	}

	return append(out, tail[start:]...)
}

// =============================================================================
// WIRE CONVERSION
// =============================================================================

// TurnsToMessages converts rendered turns into the wire format.
func TurnsToMessages(turns []Turn) []ollama.Message {
	messages := make([]ollama.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, ollama.Message{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}
	return messages
}

// RequestMessages renders the conversation within budget and converts the
// result to wire messages in one step.
func (c *Conversation) RequestMessages(budget int) []ollama.Message {
	return TurnsToMessages(c.Render(budget))
}
