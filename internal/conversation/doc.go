// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the dialogue state for one chat session.
//
// A Conversation is an ordered, append-only log of turns. Append enforces
// the structural invariants (system turn only at the start, strict
// user/assistant alternation); fitting the log into a model's context
// window is Render's job and never mutates the log.
//
// # Key Types
//
//   - Turn: one utterance with role, verbatim content, and metadata
//   - Conversation: the thread-safe turn log
//   - InvariantViolationError: returned when an append would corrupt
//     the structure
//
// # Usage
//
// Drive a conversation and build a request from it:
//
//	conv := conversation.New()
//	conv.SetSystem("You are terse.")
//	if _, err := conv.AddUserTurn("hello"); err != nil {
//	    return err
//	}
//	messages := conv.RequestMessages(cfg.ContextBudget)
//
// # Eviction
//
// Render(budget) preserves a leading system turn and the longest
// contiguous suffix of the remaining turns that fits the budget, evicting
// strictly oldest-first. When not even the newest turn fits, it is
// returned alone, truncated.
package conversation
