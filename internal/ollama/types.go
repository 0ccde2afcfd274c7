// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama server.
package ollama

import (
	"time"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// Message is a single chat message in the Ollama wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Wire roles accepted by /api/chat.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// =============================================================================
// CHAT REQUEST / RESPONSE
// =============================================================================

// ChatRequest is the body for POST /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// Options are model parameters forwarded verbatim to the server.
// Only the parameters this client exposes are listed; zero values are
// omitted from the request so server defaults apply.
type Options struct {
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	NumCtx      int      `json:"num_ctx,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Seed        int      `json:"seed,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ChatResponse is the final object of a non-streaming /api/chat exchange.
type ChatResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Message   Message   `json:"message"`
	Done      bool      `json:"done"`

	DoneReason string `json:"done_reason,omitempty"`

	// Durations are nanoseconds as sent by the server.
	TotalDuration      int64 `json:"total_duration,omitempty"`
	LoadDuration       int64 `json:"load_duration,omitempty"`
	PromptEvalCount    int   `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64 `json:"prompt_eval_duration,omitempty"`
	EvalCount          int   `json:"eval_count,omitempty"`
	EvalDuration       int64 `json:"eval_duration,omitempty"`
}

// TokensPerSecond computes generation speed from the eval counters.
func (r *ChatResponse) TokensPerSecond() float64 {
	if r.EvalDuration == 0 {
		return 0
	}
	return float64(r.EvalCount) / (float64(r.EvalDuration) / float64(time.Second))
}

// TotalTime returns the server-reported wall time for the exchange.
func (r *ChatResponse) TotalTime() time.Duration {
	return time.Duration(r.TotalDuration)
}

// =============================================================================
// GENERATE REQUEST / RESPONSE
// =============================================================================

// GenerateRequest is the body for POST /api/generate, used for one-shot
// completions that do not belong to the conversation (file generation).
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Format  string   `json:"format,omitempty"`
	Options *Options `json:"options,omitempty"`
}

// GenerateResponse is the final object of a non-streaming /api/generate
// exchange.
type GenerateResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Response  string    `json:"response"`
	Done      bool      `json:"done"`

	DoneReason string `json:"done_reason,omitempty"`

	TotalDuration   int64 `json:"total_duration,omitempty"`
	LoadDuration    int64 `json:"load_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"`
	EvalCount       int   `json:"eval_count,omitempty"`
	EvalDuration    int64 `json:"eval_duration,omitempty"`
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo describes one locally installed model from /api/tags.
type ModelInfo struct {
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`
}

// ModelDetails holds model metadata.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// ListModelsResponse is the body of GET /api/tags.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ShowModelRequest is the body for POST /api/show.
type ShowModelRequest struct {
	Name string `json:"name"`
}

// ShowModelResponse is the body of POST /api/show.
type ShowModelResponse struct {
	License    string       `json:"license,omitempty"`
	Modelfile  string       `json:"modelfile,omitempty"`
	Parameters string       `json:"parameters,omitempty"`
	Template   string       `json:"template,omitempty"`
	System     string       `json:"system,omitempty"`
	Details    ModelDetails `json:"details"`
}

// =============================================================================
// STREAM CHUNK
// =============================================================================

// StreamChunk is one decoded unit of a streaming response. Exactly one of
// the terminal conditions holds on the last chunk of a request: Done is
// true, or Error is set.
type StreamChunk struct {
	Content    string
	Done       bool
	DoneReason string
	Model      string

	// Populated on the Done chunk only.
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration
	PromptTokens       int
	CompletionTokens   int

	// Error is set when the chunk was synthesized from a failure instead
	// of decoded from the wire (channel-based streaming only).
	Error error
}

// errorResponse decodes the server's {"error": "..."} failure body.
type errorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatSize renders a byte count the way the model listing displays it.
func FormatSize(bytes int64) string {
	const (
		gb = 1 << 30
		mb = 1 << 20
		kb = 1 << 10
	)
	switch {
	case bytes >= gb:
		whole := bytes / gb
		tenth := (bytes % gb) * 10 / gb
		return itoa(whole) + "." + itoa(tenth) + " GB"
	case bytes >= mb:
		return itoa(bytes/mb) + " MB"
	case bytes >= kb:
		return itoa(bytes/kb) + " KB"
	default:
		return itoa(bytes) + " B"
	}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
