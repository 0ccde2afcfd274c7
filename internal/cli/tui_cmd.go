// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui_cmd.go - Full-screen terminal interface command handler.
//
// Command: ollama-cli tui
// Short:   Open the full-screen chat interface
//
// The full-screen mode shares the conversation engine with the plain
// chat REPL: same configuration, same storage, same stream handling.
// It needs a real terminal on both ends, so piped stdin or stdout is
// rejected before the alternate screen is entered.
//
// Flags:
//   --model NAME     Override the configured default model
//   --server URL     Override the configured server URL

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jordanhubbard/ollama-cli/internal/config"
	"github.com/jordanhubbard/ollama-cli/internal/conversation"
	"github.com/jordanhubbard/ollama-cli/internal/session"
	"github.com/jordanhubbard/ollama-cli/internal/storage"
	"github.com/jordanhubbard/ollama-cli/internal/tui"
)

// HandleTUI opens the full-screen interface and blocks until it exits.
func HandleTUI(args Args) error {
	if err := RequireTTY("tui"); err != nil {
		return err
	}

	cfg := loadConfigOrDefault(args)
	config.SetGlobal(cfg)

	client := newClient(cfg)
	if cfg.Server.CheckOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), statusCheckTimeout)
		err := client.CheckRunning(ctx)
		cancel()
		if err != nil {
			return WrapError(err, "Ollama is not running. Start it with: ollama serve")
		}
	}

	conv := conversation.New()
	conv.SetModel(cfg.DefaultModel)
	if cfg.Chat.SystemPrompt != "" {
		conv.SetSystem(cfg.Chat.SystemPrompt)
	}

	var store *storage.Store
	if cfg.History.Enabled {
		s, err := openStore(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: conversation storage unavailable: %s\n", err)
		} else {
			store = s
			store.MaxTranscripts = cfg.History.MaxConversations
		}
	}

	manager := session.NewManager(session.Config{
		IdleTimeout:      time.Duration(cfg.Session.IdleTimeoutSecs) * time.Second,
		WarningBefore:    2 * time.Minute,
		AutoSaveEnabled:  store != nil && cfg.History.AutoSave,
		AutoSaveInterval: time.Duration(cfg.Session.AutoSaveIntervalSecs) * time.Second,
	})
	conv.SetID(manager.SessionID())

	m := tui.New(tui.Options{
		Client:  client,
		Conv:    conv,
		Manager: manager,
		Store:   store,
		Cfg:     cfg,
		Model:   cfg.DefaultModel,
		Gen:     requestOptions(cfg),
	})

	program := tea.NewProgram(m, tea.WithAltScreen())
	m.Runner().SetProgram(program)

	finalModel, err := program.Run()
	if err != nil {
		return err
	}

	final, ok := finalModel.(tui.Model)
	if !ok {
		return nil
	}
	if ferr := final.Err(); ferr != nil {
		return ferr
	}

	if !args.Quiet {
		printTUISummary(final, conv, store, manager)
	}
	return nil
}

// printTUISummary prints the session summary after the alternate screen
// closes, in the same shape the REPL uses.
func printTUISummary(m tui.Model, conv *conversation.Conversation, store *storage.Store, manager *session.Manager) {
	if m.Exchanges() == 0 {
		fmt.Println(DimStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(m.StartTime()).Round(time.Second)

	fmt.Println()
	fmt.Println(SectionStyle.Render("Session Summary"))
	fmt.Printf("  %s %d\n", DimStyle.Render("Exchanges:"), m.Exchanges())
	fmt.Printf("  %s %d\n", DimStyle.Render("Tokens:"), conv.TotalTokens())
	fmt.Printf("  %s %s\n", DimStyle.Render("Duration:"), elapsed.String())

	if store != nil && conv.ID() != "" && !manager.IsDirty() && conv.Len() > 0 {
		fmt.Printf("  %s %s\n", DimStyle.Render("Saved as:"), shortID(conv.ID()))
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("Goodbye!"))
}
