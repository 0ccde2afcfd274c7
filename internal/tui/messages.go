// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"time"

	"github.com/jordanhubbard/ollama-cli/internal/ollama"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// Stream messages carry the exchange ID they belong to. The model drops
// any message whose ID is not the current exchange, so tokens from a
// cancelled stream cannot leak into the next response.

// StreamStartMsg indicates a response stream has been accepted.
type StreamStartMsg struct {
	ID        int
	Model     string
	StartTime time.Time
}

// StreamTokenMsg carries one response fragment.
type StreamTokenMsg struct {
	ID    int
	Token string
	First bool
}

// StreamCompleteMsg indicates the stream ended with usable content.
// Truncated is set when the stream was cancelled or dropped after some
// content had arrived; the partial text is still recorded.
type StreamCompleteMsg struct {
	ID        int
	Content   string
	Stats     *ollama.StreamStats
	Truncated bool
}

// StreamCancelledMsg indicates the stream was cancelled before any
// content arrived. The pending user turn is rolled back.
type StreamCancelledMsg struct {
	ID int
}

// StreamErrorMsg indicates the stream failed outright.
type StreamErrorMsg struct {
	ID  int
	Err error
}

// =============================================================================
// SERVER MESSAGES
// =============================================================================

// ServerStatusMsg reports the result of a server reachability probe.
type ServerStatusMsg struct {
	Running bool
	Err     error
}

// ModelListMsg reports the installed models, used for the header count
// and for validating /model switches.
type ModelListMsg struct {
	Models []ollama.ModelInfo
	Err    error
}

// =============================================================================
// PERSISTENCE MESSAGES
// =============================================================================

// SaveDoneMsg reports the outcome of a store write triggered by
// auto-save or /save.
type SaveDoneMsg struct {
	ID  string
	Err error
}
