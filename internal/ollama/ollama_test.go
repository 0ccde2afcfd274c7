// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama server.
package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// CLIENT CONSTRUCTION TESTS
// =============================================================================

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient()

	if client.config.BaseURL != "http://localhost:11434" {
		t.Errorf("BaseURL = %q, want %q", client.config.BaseURL, "http://localhost:11434")
	}
	if client.config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", client.config.Timeout)
	}
	if client.config.DefaultModel != "llama3" {
		t.Errorf("DefaultModel = %q, want %q", client.config.DefaultModel, "llama3")
	}
}

func TestNewClientWithConfig_FillsZeroValues(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "http://example.test:9999"})

	if client.config.BaseURL != "http://example.test:9999" {
		t.Errorf("BaseURL = %q, want custom value preserved", client.config.BaseURL)
	}
	if client.config.Timeout == 0 {
		t.Error("Timeout not defaulted")
	}
	if client.config.DefaultModel == "" {
		t.Error("DefaultModel not defaulted")
	}
}

func TestNewClientWithConfig_NilConfig(t *testing.T) {
	client := NewClientWithConfig(nil)
	if client.config.BaseURL == "" {
		t.Error("nil config should produce defaults")
	}
}

func TestSetBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		want    string
	}{
		{"valid http", "http://localhost:11434", false, "http://localhost:11434"},
		{"valid https", "https://models.internal:443", false, "https://models.internal:443"},
		{"trailing slash stripped", "http://localhost:11434/", false, "http://localhost:11434"},
		{"missing scheme", "localhost:11434", true, ""},
		{"bad scheme", "ftp://localhost:11434", true, ""},
		{"no host", "http://", true, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := NewClient()
			err := client.SetBaseURL(tc.url)
			if tc.wantErr {
				if err == nil {
					t.Errorf("SetBaseURL(%q) succeeded, want error", tc.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetBaseURL(%q) failed: %v", tc.url, err)
			}
			if client.BaseURL() != tc.want {
				t.Errorf("BaseURL = %q, want %q", client.BaseURL(), tc.want)
			}
		})
	}
}

func TestSetBaseURL_InvalidLeavesConfigUnchanged(t *testing.T) {
	client := NewClient()
	before := client.BaseURL()

	if err := client.SetBaseURL("not a url at all ://"); err == nil {
		t.Fatal("expected error for invalid URL")
	}
	if client.BaseURL() != before {
		t.Errorf("BaseURL changed to %q after failed set, want %q", client.BaseURL(), before)
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		name     string
		message  Message
		wantRole string
	}{
		{"user", NewUserMessage("hi"), "user"},
		{"assistant", NewAssistantMessage("hello"), "assistant"},
		{"system", NewSystemMessage("be brief"), "system"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.message.Role != tc.wantRole {
				t.Errorf("Role = %q, want %q", tc.message.Role, tc.wantRole)
			}
			if tc.message.Content == "" {
				t.Error("Content is empty")
			}
		})
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestClientError_Error(t *testing.T) {
	plain := &ClientError{Type: ErrTypeConnection, Message: "boom"}
	if plain.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "boom")
	}

	wrapped := &ClientError{Type: ErrTypeConnection, Message: "boom", Cause: errors.New("inner")}
	if wrapped.Error() != "boom: inner" {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), "boom: inner")
	}
	if !errors.Is(wrapped, wrapped.Cause) {
		t.Error("Unwrap chain broken")
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		notRun    bool
		timeout   bool
		transport bool
	}{
		{"model not found", ErrModelNotFound, true, false, false, false},
		{"not running", ErrNotRunning, false, true, false, true},
		{"timeout", ErrTimeout, false, false, true, true},
		{"connection", &ClientError{Type: ErrTypeConnection, Message: "refused"}, false, false, false, true},
		{"invalid response", &ClientError{Type: ErrTypeInvalidResponse, Message: "bad json"}, false, false, false, false},
		{"plain error", errors.New("other"), false, false, false, false},
		{"nil", nil, false, false, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsModelNotFound(tc.err); got != tc.notFound {
				t.Errorf("IsModelNotFound = %v, want %v", got, tc.notFound)
			}
			if got := IsNotRunning(tc.err); got != tc.notRun {
				t.Errorf("IsNotRunning = %v, want %v", got, tc.notRun)
			}
			if got := IsTimeout(tc.err); got != tc.timeout {
				t.Errorf("IsTimeout = %v, want %v", got, tc.timeout)
			}
			if got := IsTransportError(tc.err); got != tc.transport {
				t.Errorf("IsTransportError = %v, want %v", got, tc.transport)
			}
		})
	}
}

func TestStreamInterruptedError(t *testing.T) {
	err := &StreamInterruptedError{Partial: "partial text", Cause: errors.New("reset")}

	if !IsStreamInterrupted(err) {
		t.Error("IsStreamInterrupted = false, want true")
	}
	if IsStreamInterrupted(errors.New("other")) {
		t.Error("IsStreamInterrupted(plain) = true, want false")
	}

	partial, ok := StreamPartial(err)
	if !ok || partial != "partial text" {
		t.Errorf("StreamPartial = %q, %v, want %q, true", partial, ok, "partial text")
	}
	if _, ok := StreamPartial(errors.New("other")); ok {
		t.Error("StreamPartial(plain) reported ok")
	}

	if !strings.Contains(err.Error(), "interrupted") {
		t.Errorf("Error() = %q, want mention of interruption", err.Error())
	}
}

// =============================================================================
// STREAM READER TESTS
// =============================================================================

func ndjsonLine(content string, done bool) string {
	if done {
		return `{"model":"llama3","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","eval_count":4,"eval_duration":2000000000,"total_duration":2500000000}` + "\n"
	}
	return `{"model":"llama3","message":{"role":"assistant","content":"` + content + `"},"done":false}` + "\n"
}

func TestStreamReader_FullStream(t *testing.T) {
	stream := ndjsonLine("Hello", false) +
		ndjsonLine(" world", false) +
		ndjsonLine("", true)

	reader := NewStreamReader(strings.NewReader(stream))

	var chunks []StreamChunk
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		chunks = append(chunks, chunk)
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if reader.GetAccumulated() != "Hello world" {
		t.Errorf("GetAccumulated = %q, want %q", reader.GetAccumulated(), "Hello world")
	}
	if len(chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if !last.Done {
		t.Error("last chunk not marked done")
	}
	if last.DoneReason != "stop" {
		t.Errorf("DoneReason = %q, want %q", last.DoneReason, "stop")
	}
	if last.CompletionTokens != 4 {
		t.Errorf("CompletionTokens = %d, want 4", last.CompletionTokens)
	}
	if reader.GetModel() != "llama3" {
		t.Errorf("GetModel = %q, want %q", reader.GetModel(), "llama3")
	}
}

// TestStreamReader_CancelBetweenChunks cancels after the second chunk and
// verifies no further chunks are consumed and the partial text survives.
func TestStreamReader_CancelBetweenChunks(t *testing.T) {
	stream := ndjsonLine("The", false) +
		ndjsonLine(" answer", false) +
		ndjsonLine(" is", false) +
		ndjsonLine(" 42", false) +
		ndjsonLine("", true)

	reader := NewStreamReader(strings.NewReader(stream))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received []string
	err := reader.Process(ctx, func(chunk StreamChunk) {
		received = append(received, chunk.Content)
		if len(received) == 2 {
			cancel()
		}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Process error = %v, want context.Canceled", err)
	}
	if len(received) != 2 {
		t.Errorf("chunks consumed after cancel: got %d callbacks, want 2", len(received))
	}
	if reader.GetAccumulated() != "The answer" {
		t.Errorf("partial = %q, want %q", reader.GetAccumulated(), "The answer")
	}
}

func TestStreamReader_InterruptedWithoutDoneMarker(t *testing.T) {
	// Stream ends (EOF) before any done marker arrives.
	stream := ndjsonLine("partial", false)

	reader := NewStreamReader(strings.NewReader(stream))
	err := reader.Process(context.Background(), func(StreamChunk) {})

	var streamErr *StreamInterruptedError
	if !errors.As(err, &streamErr) {
		t.Fatalf("Process error = %v, want StreamInterruptedError", err)
	}
	if streamErr.Partial != "partial" {
		t.Errorf("Partial = %q, want %q", streamErr.Partial, "partial")
	}
}

func TestStreamReader_ServerErrorLine(t *testing.T) {
	stream := ndjsonLine("He", false) +
		`{"error":"model runner crashed"}` + "\n"

	reader := NewStreamReader(strings.NewReader(stream))
	err := reader.Process(context.Background(), func(StreamChunk) {})

	var streamErr *StreamInterruptedError
	if !errors.As(err, &streamErr) {
		t.Fatalf("Process error = %v, want StreamInterruptedError", err)
	}
	if streamErr.Partial != "He" {
		t.Errorf("Partial = %q, want %q", streamErr.Partial, "He")
	}
	if !strings.Contains(streamErr.Error(), "model runner crashed") {
		t.Errorf("Error() = %q, want server message included", streamErr.Error())
	}
}

func TestStreamReader_SkipsMalformedLines(t *testing.T) {
	stream := ndjsonLine("ok", false) +
		"not json at all\n" +
		ndjsonLine("", true)

	reader := NewStreamReader(strings.NewReader(stream))
	count := 0
	err := reader.Process(context.Background(), func(StreamChunk) { count++ })
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if count != 2 {
		t.Errorf("chunk count = %d, want 2 (malformed line skipped)", count)
	}
}

// =============================================================================
// STREAM STATE TESTS
// =============================================================================

func TestStreamState_String(t *testing.T) {
	tests := []struct {
		state StreamState
		want  string
	}{
		{StreamIdle, "idle"},
		{StreamStreaming, "streaming"},
		{StreamComplete, "complete"},
		{StreamCancelled, "cancelled"},
		{StreamFailed, "failed"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestStreamAccumulator_CompleteLifecycle(t *testing.T) {
	acc := NewStreamAccumulator()
	if acc.State() != StreamIdle {
		t.Fatalf("initial state = %v, want idle", acc.State())
	}

	acc.Begin()
	if acc.State() != StreamStreaming {
		t.Fatalf("state after Begin = %v, want streaming", acc.State())
	}

	acc.Add(StreamChunk{Content: "Hello"})
	acc.Add(StreamChunk{Content: " world"})
	acc.Add(StreamChunk{Done: true, CompletionTokens: 2, EvalDuration: time.Second})

	if acc.State() != StreamComplete {
		t.Errorf("state = %v, want complete", acc.State())
	}
	if acc.GetContent() != "Hello world" {
		t.Errorf("content = %q, want %q", acc.GetContent(), "Hello world")
	}
	if acc.Truncated() {
		t.Error("complete response marked truncated")
	}
	if !acc.IsDone() {
		t.Error("IsDone = false after completion")
	}
	if acc.GetStats().CompletionTokens != 2 {
		t.Errorf("stats CompletionTokens = %d, want 2", acc.GetStats().CompletionTokens)
	}
}

func TestStreamAccumulator_Cancel(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Begin()
	acc.Add(StreamChunk{Content: "The"})
	acc.Add(StreamChunk{Content: " answer"})
	acc.Cancel()

	if acc.State() != StreamCancelled {
		t.Errorf("state = %v, want cancelled", acc.State())
	}
	if !acc.Truncated() {
		t.Error("cancelled response not marked truncated")
	}
	if acc.GetContent() != "The answer" {
		t.Errorf("content = %q, want %q", acc.GetContent(), "The answer")
	}

	// Late chunks after a terminal state are ignored.
	acc.Add(StreamChunk{Content: " is"})
	if acc.GetContent() != "The answer" {
		t.Errorf("content grew after cancel: %q", acc.GetContent())
	}
}

func TestStreamAccumulator_ErrorChunk(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Begin()
	acc.Add(StreamChunk{Error: errors.New("boom"), Done: true})

	if acc.State() != StreamFailed {
		t.Errorf("state = %v, want failed", acc.State())
	}
	if acc.GetError() == nil {
		t.Error("GetError = nil, want error")
	}
}

func TestStreamAccumulator_Fail(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Begin()
	acc.Fail(errors.New("connect fail"))

	if acc.State() != StreamFailed {
		t.Errorf("state = %v, want failed", acc.State())
	}
}

// =============================================================================
// HTTP TESTS
// =============================================================================

func TestChatStream_AgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(ndjsonLine("streamed", false)))
		w.Write([]byte(ndjsonLine("", true)))
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})

	var content strings.Builder
	err := client.ChatStream(context.Background(), "llama3", []Message{NewUserMessage("hi")}, func(chunk StreamChunk) {
		content.WriteString(chunk.Content)
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if content.String() != "streamed" {
		t.Errorf("content = %q, want %q", content.String(), "streamed")
	}
}

func TestChatStream_UnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: url})

	called := false
	err := client.ChatStream(context.Background(), "llama3", []Message{NewUserMessage("hi")}, func(StreamChunk) {
		called = true
	})

	if !IsTransportError(err) {
		t.Fatalf("error = %v, want transport error", err)
	}
	if IsStreamInterrupted(err) {
		t.Error("connection failure misreported as stream interruption")
	}
	if called {
		t.Error("callback ran despite connection failure")
	}
}

func TestChatStream_ServerErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"out of memory"}`))
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	err := client.ChatStream(context.Background(), "llama3", []Message{NewUserMessage("hi")}, func(StreamChunk) {})

	if err == nil {
		t.Fatal("expected error for 500 status")
	}
	if !strings.Contains(err.Error(), "out of memory") {
		t.Errorf("error = %v, want server message preserved", err)
	}
}

func TestChat_NonStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"four"},"done":true,"eval_count":1,"eval_duration":500000000}`))
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	resp, err := client.Chat(context.Background(), "llama3", []Message{NewUserMessage("2+2?")})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "four" {
		t.Errorf("Content = %q, want %q", resp.Message.Content, "four")
	}
	if resp.TokensPerSecond() != 2 {
		t.Errorf("TokensPerSecond = %v, want 2", resp.TokensPerSecond())
	}
}

func TestGetModel_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	_, err := client.GetModel(context.Background(), "nope")

	if !IsModelNotFound(err) {
		t.Errorf("error = %v, want model not found", err)
	}
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		w.Write([]byte(`{"model":"llama3","response":"generated text","done":true}`))
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	resp, err := client.Generate(context.Background(), GenerateRequest{Prompt: "write a haiku"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Response != "generated text" {
		t.Errorf("Response = %q, want %q", resp.Response, "generated text")
	}
}

func TestChatStreamChan_DeliversErrorAsChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: url})
	ch := client.ChatStreamChan(context.Background(), "llama3", []Message{NewUserMessage("hi")})

	var last StreamChunk
	for chunk := range ch {
		last = chunk
	}
	if last.Error == nil {
		t.Fatal("expected terminal error chunk")
	}
	if !last.Done {
		t.Error("error chunk not marked done")
	}
}

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2 KB"},
		{5 * 1 << 20, "5 MB"},
		{4823449600, "4.4 GB"},
	}

	for _, tc := range tests {
		if got := FormatSize(tc.bytes); got != tc.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}
