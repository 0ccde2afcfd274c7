// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jordanhubbard/ollama-cli/internal/ollama"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner executes one response stream at a time on its own
// goroutine and reports progress to the Bubble Tea program as messages.
// The program pointer is injected after construction because the model
// has to exist before tea.NewProgram can be called.
type StreamRunner struct {
	client *ollama.Client

	mu      sync.Mutex
	program *tea.Program
	cancel  context.CancelFunc
}

// NewStreamRunner creates a runner for the given client.
func NewStreamRunner(client *ollama.Client) *StreamRunner {
	return &StreamRunner{client: client}
}

// SetProgram installs the program that receives stream messages. Must
// be called before the first Start.
func (r *StreamRunner) SetProgram(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// send delivers a message to the program, dropping it when no program
// is attached yet.
func (r *StreamRunner) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Start launches the stream and returns immediately. Progress arrives
// as StreamStartMsg, StreamTokenMsg, and one terminal message carrying
// the given exchange ID.
func (r *StreamRunner) Start(id int, modelName string, messages []ollama.Message, opts *ollama.Options) {
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			if r.cancel != nil {
				r.cancel = nil
			}
			r.mu.Unlock()
			cancel()
		}()
		r.run(ctx, id, modelName, messages, opts)
	}()
}

// Cancel aborts the in-flight stream. Reports whether there was one to
// abort.
func (r *StreamRunner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.cancel()
	r.cancel = nil
	return true
}

// run streams the response and finishes with exactly one terminal
// message.
func (r *StreamRunner) run(ctx context.Context, id int, modelName string, messages []ollama.Message, opts *ollama.Options) {
	acc := ollama.NewStreamAccumulator()
	acc.Begin()

	r.send(StreamStartMsg{ID: id, Model: modelName, StartTime: time.Now()})

	first := true
	streamErr := r.client.ChatStreamWithOptions(ctx, modelName, messages, opts,
		func(chunk ollama.StreamChunk) {
			if chunk.Content != "" {
				r.send(StreamTokenMsg{ID: id, Token: chunk.Content, First: first})
				first = false
			}
			acc.Add(chunk)
		})

	r.send(outcomeMessage(id, ctx.Err(), streamErr, acc))
}

// outcomeMessage folds the stream result into its terminal message:
// Complete on success, Complete with Truncated set when cancellation
// left partial text, Cancelled when it left none, and Error on
// transport or server failure.
func outcomeMessage(id int, ctxErr, streamErr error, acc *ollama.StreamAccumulator) tea.Msg {
	switch {
	case streamErr == nil && acc.GetError() == nil:
		return StreamCompleteMsg{
			ID:      id,
			Content: acc.GetContent(),
			Stats:   acc.GetStats(),
		}

	case ctxErr != nil || ollama.IsStreamInterrupted(streamErr):
		acc.Cancel()
		partial := acc.GetContent()
		if p, ok := ollama.StreamPartial(streamErr); ok && len(p) > len(partial) {
			partial = p
		}
		if partial == "" {
			return StreamCancelledMsg{ID: id}
		}
		return StreamCompleteMsg{
			ID:        id,
			Content:   partial,
			Stats:     acc.GetStats(),
			Truncated: true,
		}

	default:
		err := streamErr
		if err == nil {
			err = acc.GetError()
		}
		acc.Fail(err)
		return StreamErrorMsg{ID: id, Err: err}
	}
}

// =============================================================================
// SERVER COMMANDS
// =============================================================================

// CheckServerCmd probes the server once with a short timeout.
func CheckServerCmd(client *ollama.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := client.CheckRunning(ctx)
		return ServerStatusMsg{Running: err == nil, Err: err}
	}
}

// ListModelsCmd fetches the installed models.
func ListModelsCmd(client *ollama.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		models, err := client.ListModels(ctx)
		return ModelListMsg{Models: models, Err: err}
	}
}
