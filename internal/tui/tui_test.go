// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jordanhubbard/ollama-cli/internal/config"
	"github.com/jordanhubbard/ollama-cli/internal/conversation"
	"github.com/jordanhubbard/ollama-cli/internal/ollama"
	"github.com/jordanhubbard/ollama-cli/internal/session"
)

// newTestModel builds a ready model with an unreachable client. Tests
// drive Update directly; nothing here dials the network.
func newTestModel(t *testing.T) Model {
	t.Helper()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      "http://127.0.0.1:1",
		DefaultModel: "llama3",
	})

	m := New(Options{
		Client:  client,
		Conv:    conversation.New(),
		Manager: session.NewManager(session.DefaultConfig()),
		Cfg:     config.Default(),
		Model:   "llama3",
	})
	m.width = 80
	m.height = 24
	m.ready = true
	return m
}

// =============================================================================
// STREAM OUTCOME
// =============================================================================

func TestOutcomeMessage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		acc := ollama.NewStreamAccumulator()
		acc.Begin()
		acc.Add(ollama.StreamChunk{Content: "Hello"})
		acc.Add(ollama.StreamChunk{Done: true})

		msg := outcomeMessage(7, nil, nil, acc)
		complete, ok := msg.(StreamCompleteMsg)
		if !ok {
			t.Fatalf("outcomeMessage = %T, want StreamCompleteMsg", msg)
		}
		if complete.ID != 7 || complete.Content != "Hello" || complete.Truncated {
			t.Errorf("got %+v, want ID=7 Content=Hello Truncated=false", complete)
		}
		if complete.Stats == nil {
			t.Error("Stats = nil, want finalized stats")
		}
	})

	t.Run("cancelled with partial text", func(t *testing.T) {
		acc := ollama.NewStreamAccumulator()
		acc.Begin()
		acc.Add(ollama.StreamChunk{Content: "partial answer"})

		msg := outcomeMessage(3, context.Canceled, context.Canceled, acc)
		complete, ok := msg.(StreamCompleteMsg)
		if !ok {
			t.Fatalf("outcomeMessage = %T, want StreamCompleteMsg", msg)
		}
		if !complete.Truncated {
			t.Error("Truncated = false, want true")
		}
		if complete.Content != "partial answer" {
			t.Errorf("Content = %q, want partial answer", complete.Content)
		}
	})

	t.Run("cancelled before any text", func(t *testing.T) {
		acc := ollama.NewStreamAccumulator()
		acc.Begin()

		msg := outcomeMessage(4, context.Canceled, context.Canceled, acc)
		cancelled, ok := msg.(StreamCancelledMsg)
		if !ok {
			t.Fatalf("outcomeMessage = %T, want StreamCancelledMsg", msg)
		}
		if cancelled.ID != 4 {
			t.Errorf("ID = %d, want 4", cancelled.ID)
		}
	})

	t.Run("interrupted stream keeps the longer partial", func(t *testing.T) {
		acc := ollama.NewStreamAccumulator()
		acc.Begin()
		acc.Add(ollama.StreamChunk{Content: "ab"})

		streamErr := &ollama.StreamInterruptedError{
			Partial: "abcdef",
			Cause:   errors.New("connection reset"),
		}
		msg := outcomeMessage(5, nil, streamErr, acc)
		complete, ok := msg.(StreamCompleteMsg)
		if !ok {
			t.Fatalf("outcomeMessage = %T, want StreamCompleteMsg", msg)
		}
		if complete.Content != "abcdef" {
			t.Errorf("Content = %q, want the longer partial abcdef", complete.Content)
		}
		if !complete.Truncated {
			t.Error("Truncated = false, want true")
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		acc := ollama.NewStreamAccumulator()
		acc.Begin()

		boom := errors.New("connection refused")
		msg := outcomeMessage(6, nil, boom, acc)
		failed, ok := msg.(StreamErrorMsg)
		if !ok {
			t.Fatalf("outcomeMessage = %T, want StreamErrorMsg", msg)
		}
		if !errors.Is(failed.Err, boom) {
			t.Errorf("Err = %v, want %v", failed.Err, boom)
		}
	})
}

// =============================================================================
// STREAM HANDLERS
// =============================================================================

func TestUpdateStreamCompleteRecordsAssistantTurn(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.conv.AddUserTurn("hi"); err != nil {
		t.Fatal(err)
	}
	m.state = StateStreaming
	m.streamBuf.WriteString("partial paint")

	updated, _ := m.Update(StreamCompleteMsg{ID: 0, Content: "Hello there"})
	got := updated.(Model)

	if got.state != StateReady {
		t.Errorf("state = %v, want StateReady", got.state)
	}
	last, ok := got.conv.LastTurn()
	if !ok || last.Role != conversation.RoleAssistant || last.Content != "Hello there" {
		t.Errorf("last turn = %+v, want assistant Hello there", last)
	}
	if got.exchangeCount != 1 {
		t.Errorf("exchangeCount = %d, want 1", got.exchangeCount)
	}
	if !got.manager.IsDirty() {
		t.Error("manager not marked dirty after completed exchange")
	}
	if got.streamBuf.Len() != 0 {
		t.Error("streamBuf not reset after completion")
	}
}

func TestUpdateStreamCompleteTruncatedKeepsPartial(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.conv.AddUserTurn("hi"); err != nil {
		t.Fatal(err)
	}
	m.state = StateStreaming

	updated, _ := m.Update(StreamCompleteMsg{ID: 0, Content: "cut sh", Truncated: true})
	got := updated.(Model)

	last, ok := got.conv.LastTurn()
	if !ok || !last.Truncated {
		t.Errorf("last turn = %+v, want truncated assistant turn", last)
	}
	if last.Content != "cut sh" {
		t.Errorf("Content = %q, want cut sh", last.Content)
	}
}

func TestUpdateStreamCancelledRollsBackUserTurn(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.conv.AddUserTurn("hi"); err != nil {
		t.Fatal(err)
	}
	m.state = StateStreaming

	updated, _ := m.Update(StreamCancelledMsg{ID: 0})
	got := updated.(Model)

	if got.conv.Len() != 0 {
		t.Errorf("conversation has %d turns after rollback, want 0", got.conv.Len())
	}
	if got.state != StateReady {
		t.Errorf("state = %v, want StateReady", got.state)
	}
}

func TestUpdateStreamErrorRollsBackAndShowsError(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.conv.AddUserTurn("hi"); err != nil {
		t.Fatal(err)
	}
	m.state = StateStreaming

	boom := errors.New("model not found")
	updated, _ := m.Update(StreamErrorMsg{ID: 0, Err: boom})
	got := updated.(Model)

	if got.conv.Len() != 0 {
		t.Errorf("conversation has %d turns after rollback, want 0", got.conv.Len())
	}
	if got.state != StateError {
		t.Errorf("state = %v, want StateError", got.state)
	}
	if !errors.Is(got.lastErr, boom) {
		t.Errorf("lastErr = %v, want %v", got.lastErr, boom)
	}
}

func TestUpdateDropsStaleStreamMessages(t *testing.T) {
	m := newTestModel(t)
	m.streamID = 2
	m.state = StateStreaming

	updated, _ := m.Update(StreamTokenMsg{ID: 1, Token: "stale"})
	got := updated.(Model)
	if got.streamBuf.Len() != 0 {
		t.Error("stale token was appended")
	}

	updated, _ = got.Update(StreamCompleteMsg{ID: 1, Content: "stale answer"})
	got = updated.(Model)
	if got.conv.Len() != 0 {
		t.Error("stale completion appended a turn")
	}
}

func TestUpdateStreamTokenAppends(t *testing.T) {
	m := newTestModel(t)
	m.streamID = 1
	m.state = StateStreaming
	m.awaitingFirst = true

	updated, _ := m.Update(StreamTokenMsg{ID: 1, Token: "Hel", First: true})
	got := updated.(Model)
	updated, _ = got.Update(StreamTokenMsg{ID: 1, Token: "lo"})
	got = updated.(Model)

	if got.streamBuf.String() != "Hello" {
		t.Errorf("streamBuf = %q, want Hello", got.streamBuf.String())
	}
	if got.awaitingFirst {
		t.Error("awaitingFirst still set after first token")
	}
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

func TestUpdateSessionTimeoutQuits(t *testing.T) {
	m := newTestModel(t)

	updated, cmd := m.Update(session.TimeoutMsg{})
	got := updated.(Model)

	if !got.quitting {
		t.Error("quitting = false after session timeout")
	}
	if cmd == nil {
		t.Error("expected a quit command")
	}
}

func TestUpdateSessionTickSchedulesNext(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(session.TickMsg{})
	if cmd == nil {
		t.Error("tick returned no follow-up command")
	}
}

// =============================================================================
// DIRECTIVES
// =============================================================================

func TestRunDirective(t *testing.T) {
	t.Run("unknown name", func(t *testing.T) {
		m := newTestModel(t)
		updated, _ := m.runDirective("/bogus")
		got := updated.(Model)
		if !strings.Contains(got.statusLine, "unknown command") {
			t.Errorf("statusLine = %q, want unknown command report", got.statusLine)
		}
	})

	t.Run("directive carried only by the REPL", func(t *testing.T) {
		m := newTestModel(t)
		updated, _ := m.runDirective("/export markdown")
		got := updated.(Model)
		if !strings.Contains(got.statusLine, "plain chat REPL") {
			t.Errorf("statusLine = %q, want REPL pointer", got.statusLine)
		}
	})

	t.Run("model without argument reports current", func(t *testing.T) {
		m := newTestModel(t)
		m.availableModels = []string{"llama3", "qwen2"}
		updated, _ := m.runDirective("/model")
		got := updated.(Model)
		if !strings.Contains(got.statusLine, "llama3") {
			t.Errorf("statusLine = %q, want current model name", got.statusLine)
		}
	})

	t.Run("models lists installed names", func(t *testing.T) {
		m := newTestModel(t)
		m.availableModels = []string{"llama3", "qwen2"}
		updated, _ := m.runDirective("/models")
		got := updated.(Model)
		if !strings.Contains(got.statusLine, "llama3, qwen2") {
			t.Errorf("statusLine = %q, want joined names", got.statusLine)
		}
	})

	t.Run("clear resets transcript and identity", func(t *testing.T) {
		m := newTestModel(t)
		if _, err := m.conv.AddUserTurn("hello"); err != nil {
			t.Fatal(err)
		}
		if _, err := m.conv.AddAssistantTurn("hi"); err != nil {
			t.Fatal(err)
		}
		m.conv.SetID("abc123")

		updated, _ := m.runDirective("/clear")
		got := updated.(Model)
		if got.conv.Len() != 0 {
			t.Errorf("Len = %d after /clear, want 0", got.conv.Len())
		}
		if got.conv.ID() != "" {
			t.Errorf("ID = %q after /clear, want empty", got.conv.ID())
		}
	})
}

func TestSwitchModel(t *testing.T) {
	m := newTestModel(t)
	m.availableModels = []string{"llama3", "qwen2"}

	updated, _ := m.switchModel("mistral")
	got := updated.(Model)
	if got.modelName != "llama3" {
		t.Errorf("modelName = %q after rejected switch, want llama3", got.modelName)
	}
	if !strings.Contains(got.statusLine, "not installed") {
		t.Errorf("statusLine = %q, want rejection", got.statusLine)
	}

	updated, _ = got.switchModel("qwen2")
	got = updated.(Model)
	if got.modelName != "qwen2" {
		t.Errorf("modelName = %q, want qwen2", got.modelName)
	}
}

// =============================================================================
// INPUT CLASSIFICATION
// =============================================================================

func TestSubmitIgnoresWhitespaceOnlyInput(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("   ")

	updated, _ := m.submit()
	got := updated.(Model)

	if got.state != StateReady {
		t.Errorf("state = %v, want StateReady", got.state)
	}
	if got.conv.Len() != 0 {
		t.Errorf("conversation grew on whitespace-only input")
	}
}

func TestSubmitStoresChatTextVerbatim(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("  keep my spacing  ")

	updated, _ := m.submit()
	got := updated.(Model)

	last, ok := got.conv.LastTurn()
	if !ok || last.Content != "  keep my spacing  " {
		t.Errorf("stored turn = %q, want text exactly as typed", last.Content)
	}
	if got.state != StateStreaming {
		t.Errorf("state = %v, want StateStreaming", got.state)
	}
	if got.streamID != 1 {
		t.Errorf("streamID = %d, want 1", got.streamID)
	}
}

func TestSubmitRefusedWhileStreaming(t *testing.T) {
	m := newTestModel(t)
	m.state = StateStreaming
	m.input.SetValue("queued")

	updated, _ := m.submit()
	got := updated.(Model)

	if got.conv.Len() != 0 {
		t.Error("submit during streaming started a new exchange")
	}
	if got.input.Value() != "queued" {
		t.Error("input was cleared while streaming")
	}
}

// =============================================================================
// LAYOUT AND RENDERING
// =============================================================================

func TestUpdateWindowSizeFitsViewport(t *testing.T) {
	m := newTestModel(t)
	m.ready = false

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	got := updated.(Model)

	if !got.ready {
		t.Error("ready = false after first resize")
	}
	if got.viewport.Width != 100 {
		t.Errorf("viewport.Width = %d, want 100", got.viewport.Width)
	}
	if got.viewport.Height != 37 {
		t.Errorf("viewport.Height = %d, want 37 (header, input, status take one line each)", got.viewport.Height)
	}
}

func TestTranscriptView(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.conv.AddUserTurn("what is go"); err != nil {
		t.Fatal(err)
	}
	turn := conversation.NewAssistantTurn("a programming language")
	turn.Truncated = true
	if err := m.conv.Append(turn); err != nil {
		t.Fatal(err)
	}

	out := m.transcriptView()
	for _, want := range []string{"you", "what is go", "llama3", "a programming language", "[truncated]"} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q", want)
		}
	}
}

func TestTranscriptViewStreaming(t *testing.T) {
	m := newTestModel(t)
	m.state = StateStreaming
	m.streamBuf.WriteString("tokens so far")

	out := m.transcriptView()
	if !strings.Contains(out, "tokens so far") {
		t.Error("transcript missing in-flight text")
	}
}

func TestTranscriptViewEmptyShowsWelcome(t *testing.T) {
	m := newTestModel(t)
	out := m.transcriptView()
	if !strings.Contains(out, "interactive chat") {
		t.Error("empty transcript missing welcome banner")
	}
}

func TestViewStates(t *testing.T) {
	m := newTestModel(t)

	m.ready = false
	if got := m.View(); got != "Starting..." {
		t.Errorf("View before resize = %q, want Starting...", got)
	}

	m.ready = true
	m.quitting = true
	if got := m.View(); got != "" {
		t.Errorf("View while quitting = %q, want empty", got)
	}
}

// =============================================================================
// KEY MAP
// =============================================================================

// The input line keeps focus for the whole session, so no binding may
// claim a plain printable character.
func TestDefaultKeyMapAvoidsPrintableKeys(t *testing.T) {
	km := DefaultKeyMap()
	for _, group := range km.FullHelp() {
		for _, binding := range group {
			for _, k := range binding.Keys() {
				if utf8.RuneCountInString(k) == 1 {
					t.Errorf("binding key %q would collide with typing", k)
				}
			}
		}
	}
}

// =============================================================================
// TEXT HELPERS
// =============================================================================

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"fits", "hello world", 20, "hello world"},
		{"breaks at space", "aaaa bbbb", 6, "aaaa\nbbbb"},
		{"hard break without spaces", "abcdefghij", 4, "abcd\nefgh\nij"},
		{"preserves newlines", "line1\nline2", 10, "line1\nline2"},
		{"zero width passthrough", "anything", 0, "anything"},
		{"multibyte runes", "ααααα βββββ", 7, "ααααα\nβββββ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapText(tt.text, tt.width); got != tt.want {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	if got := preview("hello\nworld", 60); got != "hello" {
		t.Errorf("preview = %q, want first line only", got)
	}
	long := strings.Repeat("a", 70)
	if got := preview(long, 60); got != strings.Repeat("a", 60)+"..." {
		t.Errorf("preview did not truncate: %q", got)
	}
	if got := preview("short", 60); got != "short" {
		t.Errorf("preview = %q, want short", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abcdefghij"); got != "abcdefgh" {
		t.Errorf("shortID = %q, want abcdefgh", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q, want abc", got)
	}
}

func TestModelListLine(t *testing.T) {
	if got := modelListLine(nil); got != "no models reported yet" {
		t.Errorf("modelListLine(nil) = %q", got)
	}
	if got := modelListLine([]string{"a", "b"}); got != "a, b" {
		t.Errorf("modelListLine = %q, want a, b", got)
	}
	got := modelListLine([]string{"a", "b", "c", "d", "e", "f", "g"})
	if got != "a, b, c, d, e and 2 more" {
		t.Errorf("modelListLine = %q, want a, b, c, d, e and 2 more", got)
	}
}

func TestHelpHint(t *testing.T) {
	hint := helpHint(DefaultKeyMap())
	for _, want := range []string{"Enter", "quit"} {
		if !strings.Contains(hint, want) {
			t.Errorf("help hint %q missing %q", hint, want)
		}
	}
}
