// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui provides the full-screen terminal interface for ollama-cli.
//
// It is a Bubble Tea program layered over the same conversation engine
// the plain chat REPL uses: turns accumulate in a
// conversation.Conversation, requests stream through ollama.Client, and
// idle timeout plus auto-save run on session.Manager ticks delivered as
// Bubble Tea messages.
//
// # Layout
//
// The screen stacks four regions: a one-line header (title, model,
// context usage), a scrollable transcript viewport, the input line, and
// a one-line status bar. Streaming tokens append to the transcript as
// they arrive; viewport repaints are rate-capped so fast models do not
// burn the render loop.
//
// # Wiring
//
// The cli package owns construction: it resolves configuration, opens
// storage, builds the model through New with an Options bundle, and
// runs the Bubble Tea program. Everything here stays free of flag
// parsing and process exit decisions.
package tui
