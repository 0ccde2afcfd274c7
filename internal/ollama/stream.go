// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama server.
package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader decodes the NDJSON stream of one in-flight request. The
// stream is consumed once, in order, and cannot be restarted; after
// Process returns, the reader only serves the accumulated text.
type StreamReader struct {
	reader      *bufio.Reader
	accumulator strings.Builder
	tokenCount  int
	model       string
	sawDone     bool
}

// NewStreamReader creates a stream reader over one response body.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each chunk. It
// blocks until the stream completes, the context is cancelled, or the
// connection drops.
//
// Cancellation is checked between chunks, never mid-chunk, and returns
// ctx.Err() with no further reads. A connection that dies before the
// server's done marker returns a StreamInterruptedError carrying the
// partial text.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if errors.Is(err, io.EOF) {
					if s.sawDone {
						return nil
					}
					// Stream ended without the done marker.
					return &StreamInterruptedError{Partial: s.accumulator.String()}
				}
				return &StreamInterruptedError{Partial: s.accumulator.String(), Cause: err}
			}

			if chunk == nil {
				continue
			}

			callback(*chunk)
			if chunk.Done {
				s.sawDone = true
				return nil
			}
		}
	}
}

// readChunk reads and parses a single line from the stream. A nil chunk
// with nil error means the line was empty or malformed and was skipped.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if len(line) == 0 {
			return nil, err
		}
		// Fall through and parse the final unterminated line.
	}

	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		if err != nil {
			return nil, err
		}
		return nil, nil
	}

	var response struct {
		Model     string    `json:"model"`
		CreatedAt time.Time `json:"created_at"`
		Message   struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		Done               bool   `json:"done"`
		DoneReason         string `json:"done_reason,omitempty"`
		Error              string `json:"error,omitempty"`
		TotalDuration      int64  `json:"total_duration,omitempty"`
		LoadDuration       int64  `json:"load_duration,omitempty"`
		PromptEvalCount    int    `json:"prompt_eval_count,omitempty"`
		PromptEvalDuration int64  `json:"prompt_eval_duration,omitempty"`
		EvalCount          int    `json:"eval_count,omitempty"`
		EvalDuration       int64  `json:"eval_duration,omitempty"`
	}
	if jsonErr := json.Unmarshal([]byte(trimmed), &response); jsonErr != nil {
		// Skip malformed lines.
		if err != nil {
			return nil, err
		}
		return nil, nil
	}

	// The server reports generation failures as an error line mid-stream.
	if response.Error != "" {
		return nil, errors.New(response.Error)
	}

	if response.Model != "" {
		s.model = response.Model
	}

	content := response.Message.Content
	if content != "" {
		s.accumulator.WriteString(content)
		s.tokenCount++
	}

	chunk := &StreamChunk{
		Content:    content,
		Done:       response.Done,
		DoneReason: response.DoneReason,
		Model:      s.model,
	}

	if response.Done {
		chunk.TotalDuration = time.Duration(response.TotalDuration)
		chunk.LoadDuration = time.Duration(response.LoadDuration)
		chunk.PromptEvalDuration = time.Duration(response.PromptEvalDuration)
		chunk.EvalDuration = time.Duration(response.EvalDuration)
		chunk.PromptTokens = response.PromptEvalCount
		chunk.CompletionTokens = response.EvalCount
	}

	return chunk, nil
}

// GetAccumulated returns all content received so far.
func (s *StreamReader) GetAccumulated() string {
	return s.accumulator.String()
}

// GetTokenCount returns the number of content-bearing chunks received.
func (s *StreamReader) GetTokenCount() int {
	return s.tokenCount
}

// GetModel returns the model name reported by the stream.
func (s *StreamReader) GetModel() string {
	return s.model
}

// =============================================================================
// STREAM STATE
// =============================================================================

// StreamState tracks one request's lifecycle through the render loop.
type StreamState int

const (
	StreamIdle      StreamState = iota // No request in flight
	StreamStreaming                    // Chunks arriving
	StreamComplete                     // Done marker received
	StreamCancelled                    // User cancelled between chunks
	StreamFailed                       // Transport or stream failure
)

func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamStreaming:
		return "streaming"
	case StreamComplete:
		return "complete"
	case StreamCancelled:
		return "cancelled"
	case StreamFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one of the three end states.
func (s StreamState) Terminal() bool {
	return s == StreamComplete || s == StreamCancelled || s == StreamFailed
}

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// StreamStats holds statistics collected during streaming.
type StreamStats struct {
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Durations as reported by the server.
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration

	PromptTokens     int
	CompletionTokens int

	// Computed locally.
	TTFT            time.Duration
	TokensPerSecond float64
}

// NewStreamStats creates stats with the start time set.
func NewStreamStats() *StreamStats {
	return &StreamStats{
		StartTime: time.Now(),
	}
}

// RecordFirstToken marks the time of first token arrival.
func (s *StreamStats) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes final statistics from the terminal chunk.
func (s *StreamStats) Finalize(chunk StreamChunk) {
	s.EndTime = time.Now()
	s.TotalDuration = chunk.TotalDuration
	s.LoadDuration = chunk.LoadDuration
	s.PromptEvalDuration = chunk.PromptEvalDuration
	s.EvalDuration = chunk.EvalDuration
	s.PromptTokens = chunk.PromptTokens
	s.CompletionTokens = chunk.CompletionTokens

	if s.EvalDuration > 0 {
		s.TokensPerSecond = float64(s.CompletionTokens) / s.EvalDuration.Seconds()
	}
}

// Format returns the one-line stat summary shown after a response.
func (s *StreamStats) Format() string {
	return util.FormatDuration(s.TotalDuration) + " | " +
		util.FormatInt(s.CompletionTokens) + " tokens | " +
		util.FormatFloat(s.TokensPerSecond, 1) + " tok/s | " +
		"TTFT " + util.FormatDuration(s.TTFT)
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator is the display buffer for one request: it collects
// chunks, tracks the request's StreamState, and owns the final text that
// becomes the assistant turn.
//
// State transitions: Idle -> Streaming on Begin (or first chunk), then
// exactly one of Complete (done marker), Cancelled (Cancel between
// chunks), or Failed (error chunk or Fail). Cancelled content is marked
// truncated.
type StreamAccumulator struct {
	content   strings.Builder
	stats     *StreamStats
	state     StreamState
	truncated bool
	err       error
}

// NewStreamAccumulator creates an idle accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{
		stats: NewStreamStats(),
		state: StreamIdle,
	}
}

// Begin marks the request as sent.
func (a *StreamAccumulator) Begin() {
	if a.state == StreamIdle {
		a.state = StreamStreaming
	}
}

// Add processes a new chunk.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if a.state == StreamIdle {
		a.state = StreamStreaming
	}
	if a.state.Terminal() {
		return
	}

	if chunk.Error != nil {
		a.err = chunk.Error
		a.state = StreamFailed
		return
	}

	if chunk.Content != "" && a.content.Len() == 0 {
		a.stats.RecordFirstToken()
	}

	a.content.WriteString(chunk.Content)

	if chunk.Done {
		a.state = StreamComplete
		a.stats.Finalize(chunk)
	}
}

// Cancel stops the request between chunks. The text collected so far is
// kept and marked truncated.
func (a *StreamAccumulator) Cancel() {
	if a.state == StreamStreaming || a.state == StreamIdle {
		a.state = StreamCancelled
		a.truncated = true
	}
}

// Fail records a failure that did not arrive as a chunk.
func (a *StreamAccumulator) Fail(err error) {
	if !a.state.Terminal() {
		a.state = StreamFailed
		a.err = err
	}
}

// State returns the current lifecycle state.
func (a *StreamAccumulator) State() StreamState {
	return a.state
}

// Truncated reports whether the content was cut short by cancellation.
func (a *StreamAccumulator) Truncated() bool {
	return a.truncated
}

// GetContent returns the accumulated content.
func (a *StreamAccumulator) GetContent() string {
	return a.content.String()
}

// IsDone reports whether the request reached a terminal state.
func (a *StreamAccumulator) IsDone() bool {
	return a.state.Terminal()
}

// GetError returns the recorded failure, if any.
func (a *StreamAccumulator) GetError() error {
	return a.err
}

// GetStats returns the collected statistics.
func (a *StreamAccumulator) GetStats() *StreamStats {
	return a.stats
}
