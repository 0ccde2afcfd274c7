// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler.
//
// Handles the default "chat" command which provides an interactive REPL
// for conversing with a local Ollama server.
//
// Command: chat (default)
// Short:   Start an interactive chat session
//
// Examples:
//   ollama-cli                        Start interactive chat (default model)
//   ollama-cli chat --model llama3:8b Use a specific model
//   ollama-cli chat --plain           Disable markdown and colors
//
// Interactive directives (during chat):
//   /help               Show available directives
//   /model [name]       Show or switch model
//   /save, /load        Persist and restore conversations
//   /quit               Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat
//
// One directive is processed at a time: a response streams to
// completion (or cancellation) before the next prompt is shown.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jordanhubbard/ollama-cli/internal/commands"
	"github.com/jordanhubbard/ollama-cli/internal/config"
	"github.com/jordanhubbard/ollama-cli/internal/conversation"
	"github.com/jordanhubbard/ollama-cli/internal/index"
	"github.com/jordanhubbard/ollama-cli/internal/mention"
	"github.com/jordanhubbard/ollama-cli/internal/ollama"
	"github.com/jordanhubbard/ollama-cli/internal/session"
	"github.com/jordanhubbard/ollama-cli/internal/shell"
	"github.com/jordanhubbard/ollama-cli/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()

	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Non-empty
// lines are added to the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}

	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and releases the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state of one interactive chat session.
type ChatSession struct {
	Conv   *conversation.Conversation
	Cfg    *config.Config
	Client *ollama.Client
	Model  string

	// Store is nil when history is disabled, Index when search
	// indexing is. Both are optional: chat works without them.
	Store *storage.Store
	Index *index.TranscriptIndex

	Manager  *session.Manager
	Expander *mention.Expander
	Shell    *shell.Runner

	Render RenderOptions
	Quiet  bool

	StartTime     time.Time
	ExchangeCount int

	input    *ChatCLI
	registry *commands.Registry
	parser   *commands.Parser

	// cancelStream aborts the in-flight generation. Written by the
	// REPL goroutine, called from the signal handler goroutine.
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// NewChatSession builds a session from resolved configuration.
func NewChatSession(args Args) (*ChatSession, error) {
	cfg := loadConfigOrDefault(args)
	config.SetGlobal(cfg)

	conv := conversation.New()
	conv.SetModel(cfg.DefaultModel)
	if cfg.Chat.SystemPrompt != "" {
		conv.SetSystem(cfg.Chat.SystemPrompt)
	}

	registry := commands.NewRegistry()

	s := &ChatSession{
		Conv:      conv,
		Cfg:       cfg,
		Client:    newClient(cfg),
		Model:     cfg.DefaultModel,
		Expander:  mention.NewExpander(mention.NewResolver(mention.DefaultResolverConfig())),
		Render:    ResolveRenderOptions(cfg, args.Quiet),
		Quiet:     args.Quiet,
		StartTime: time.Now(),
		input:     NewChatCLI(),
		registry:  registry,
		parser:    commands.NewParser(registry),
	}

	wd, _ := os.Getwd()
	s.Shell = shell.NewRunner(wd)

	if cfg.History.Enabled {
		store, err := openStore(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: conversation storage unavailable: %s\n", err)
		} else {
			s.Store = store
			store.MaxTranscripts = cfg.History.MaxConversations
		}
	}

	if s.Store != nil && cfg.History.IndexEnabled {
		dbPath, err := config.IndexPath()
		if err == nil {
			idx, idxErr := index.New(s.Store, &index.Config{
				DatabasePath: dbPath,
				EnableWatch:  false,
			})
			if idxErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: search index unavailable: %s\n", idxErr)
			} else {
				s.Index = idx
			}
		}
	}

	s.Manager = session.NewManager(session.Config{
		IdleTimeout:      time.Duration(cfg.Session.IdleTimeoutSecs) * time.Second,
		WarningBefore:    2 * time.Minute,
		AutoSaveEnabled:  s.Store != nil && cfg.History.AutoSave,
		AutoSaveInterval: time.Duration(cfg.Session.AutoSaveIntervalSecs) * time.Second,
	})
	conv.SetID(s.Manager.SessionID())

	s.Manager.SetWarningCallback(func(remaining time.Duration) {
		fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render(
			fmt.Sprintf("[session times out in %s]", remaining.Round(time.Second))))
	})
	s.Manager.SetTimeoutCallback(func() {
		fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render(
			"[session idle timeout reached, press Enter to exit]"))
	})
	s.Manager.SetAutoSaveCallback(s.saveCurrent)

	return s, nil
}

// Close releases resources held by the session.
func (s *ChatSession) Close() {
	if s.Index != nil {
		s.Index.Close()
	}
	s.input.Close()
}

// setCancel installs the cancel function for the in-flight stream.
func (s *ChatSession) setCancel(fn context.CancelFunc) {
	s.mu.Lock()
	s.cancelFunc = fn
	s.mu.Unlock()
}

// cancelStream aborts the in-flight stream. Reports whether there was
// one to abort.
func (s *ChatSession) cancelStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFunc == nil {
		return false
	}
	s.cancelFunc()
	s.cancelFunc = nil
	return true
}

// saveCurrent persists the conversation to the store. Used by both
// /save and the autosave timer.
func (s *ChatSession) saveCurrent() error {
	if s.Store == nil {
		return fmt.Errorf("history is disabled")
	}
	if s.Conv.Len() == 0 {
		return nil
	}

	s.Conv.SetModel(s.Model)
	id, err := s.Store.Save(storage.Snapshot(s.Conv))
	if err != nil {
		return err
	}
	s.Conv.SetID(id)

	if s.Index != nil {
		if err := s.Index.Update(id); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: index update failed: %s\n", err)
		}
	}

	return nil
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive REPL.
func HandleChat(args Args) error {
	s, err := NewChatSession(args)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.Cfg.Server.CheckOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), statusCheckTimeout)
		err := s.Client.CheckRunning(ctx)
		cancel()
		if err != nil {
			return WrapError(err, "Ollama is not running. Start it with: ollama serve")
		}
	}

	if !s.Quiet {
		printWelcome(s)
	}

	// First Ctrl+C during generation cancels the stream. At the
	// prompt, liner reports it as ErrPromptAborted instead.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if s.cancelStream() {
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[cancelled]"))
			}
		}
	}()

	// Idle timeout and autosave run on a ticker for the life of the
	// session.
	tickCtx, stopTicker := context.WithCancel(context.Background())
	defer stopTicker()
	go s.Manager.Run(tickCtx, time.Second)

	for {
		input, err := s.input.ReadInput(PromptStyle.Render("ollama> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a closed terminal all
			// end the session cleanly.
			fmt.Println()
			return s.finish()
		}

		s.Manager.RecordActivity()

		// Classification looks at the raw line: only a slash in column
		// one makes a directive, and chat text is stored exactly as
		// typed. Whitespace-only lines just reprompt.
		if strings.TrimSpace(input) == "" {
			if s.Manager.IsExpired() {
				fmt.Println(DimStyle.Render("Session ended after idle timeout."))
				return s.finish()
			}
			continue
		}

		if commands.IsCommand(input) {
			cont, err := s.dispatchDirective(input)
			if err != nil {
				if conversation.IsInvariantViolation(err) {
					return err
				}
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[error]"), err)
				var unknown *commands.UnknownCommandError
				if errors.As(err, &unknown) {
					if hint := s.suggestDirective(unknown.Name); hint != "" {
						fmt.Fprintln(os.Stderr, DimStyle.Render("Did you mean "+hint+"?"))
					}
				}
			}
			if !cont {
				return s.finish()
			}
			continue
		}

		if err := s.processMessage(input); err != nil {
			if conversation.IsInvariantViolation(err) {
				return err
			}
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[error]"), err)
		}
	}
}

// finish autosaves a dirty conversation and prints the exit summary.
func (s *ChatSession) finish() error {
	if s.Store != nil && s.Cfg.History.AutoSave && s.Manager.IsDirty() {
		if err := s.saveCurrent(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: final save failed: %s\n", err)
		} else {
			s.Manager.MarkClean()
		}
	}
	if !s.Quiet {
		printExitSummary(s)
	}
	return nil
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage appends the user turn, streams the model response,
// and appends the assistant turn. One message is fully processed
// before the next prompt is read.
//
// The stored user turn keeps the typed text verbatim; @path mentions
// are expanded into the outgoing request only.
func (s *ChatSession) processMessage(input string) error {
	requestContent := input
	if mention.HasMentions(input) {
		expansion := s.Expander.Expand(input)
		if expansion.HasErrors() {
			fmt.Fprintf(os.Stderr, "%s %s\n",
				WarningStyle.Render("[mention]"), expansion.ErrorSummary())
		}
		if len(expansion.Mentions) > len(expansion.Errors) && !s.Quiet {
			fmt.Println(DimStyle.Render("Attached: " + mention.Describe(expansion.Mentions)))
		}
		requestContent = expansion.Expanded
	}

	if _, err := s.Conv.AddUserTurn(input); err != nil {
		return err
	}

	messages := s.Conv.RequestMessages(s.Cfg.Chat.ContextTokens)
	if requestContent != input && len(messages) > 0 {
		messages[len(messages)-1].Content = requestContent
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.setCancel(cancel)
	defer func() {
		s.setCancel(nil)
		cancel()
	}()

	acc := ollama.NewStreamAccumulator()
	acc.Begin()
	printer := NewStreamPrinter(s.Render)

	fmt.Println()
	if !s.Quiet {
		fmt.Println(AssistantLabelStyle.Render(s.Model + ":"))
	}

	streamErr := s.Client.ChatStreamWithOptions(ctx, s.Model, messages, requestOptions(s.Cfg),
		func(chunk ollama.StreamChunk) {
			if chunk.Content != "" {
				printer.Fragment(chunk.Content)
			}
			acc.Add(chunk)
		})

	switch {
	case streamErr == nil && acc.GetError() == nil:
		// Completed: repaint with markdown/highlighting when possible.
		content := acc.GetContent()
		printer.FinishStyled(content)
		s.appendAssistantTurn(content, acc, false)

	case ctx.Err() != nil || ollama.IsStreamInterrupted(streamErr):
		// Cancelled or dropped mid-stream: keep the partial text as a
		// truncated turn so the transcript matches what was shown.
		acc.Cancel()
		printer.Finish()

		partial := acc.GetContent()
		if p, ok := ollama.StreamPartial(streamErr); ok && len(p) > len(partial) {
			partial = p
		}

		if partial == "" {
			// Nothing arrived, so the exchange never happened.
			s.rollbackUserTurn()
			fmt.Println()
			return nil
		}
		s.appendAssistantTurn(partial, acc, true)
		fmt.Println(DimStyle.Render("[response truncated]"))

	default:
		// Transport or server failure before any text: the exchange
		// never happened, so the user turn is rolled back.
		err := streamErr
		if err == nil {
			err = acc.GetError()
		}
		acc.Fail(err)
		printer.Finish()
		s.rollbackUserTurn()
		return err
	}

	fmt.Println()

	if s.Render.ShowStats {
		fmt.Println(StatsStyle.Render(acc.GetStats().Format()))
		fmt.Println()
	}

	s.ExchangeCount++
	s.Manager.MarkDirty()

	return nil
}

// appendAssistantTurn records the response with its generation stats.
func (s *ChatSession) appendAssistantTurn(content string, acc *ollama.StreamAccumulator, truncated bool) {
	stats := acc.GetStats()

	turn := conversation.NewAssistantTurn(content)
	turn.Truncated = truncated
	turn.TTFT = stats.TTFT
	turn.TotalDuration = stats.TotalDuration
	turn.TokensPerSec = stats.TokensPerSecond

	if err := s.Conv.Append(turn); err != nil {
		// Cannot happen after a successful AddUserTurn, but losing a
		// response silently would be worse than the noise.
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[error]"), err)
	}
}

// rollbackUserTurn removes the just-appended user turn after a failed
// exchange, so a retry does not create consecutive user turns.
func (s *ChatSession) rollbackUserTurn() {
	if last, ok := s.Conv.LastTurn(); ok && last.Role == conversation.RoleUser {
		s.Conv.RemoveLast()
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// printWelcome prints the session banner.
func printWelcome(s *ChatSession) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("ollama-cli interactive chat"))
	fmt.Printf("%s %s\n", DimStyle.Render("Model:"), HighlightStyle.Render(s.Model))
	fmt.Printf("%s %s\n", DimStyle.Render("Server:"), s.Cfg.Server.URL)

	if s.Store == nil {
		fmt.Printf("%s %s\n", DimStyle.Render("History:"), WarningStyle.Render("disabled"))
	} else if s.Cfg.History.AutoSave {
		fmt.Printf("%s %s\n", DimStyle.Render("History:"), "auto-save on")
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("Type a message and press Enter. Directives: /help, /quit"))
	fmt.Println()
}

// printExitSummary prints the session summary on exit.
func printExitSummary(s *ChatSession) {
	if s.ExchangeCount == 0 {
		fmt.Println(DimStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(s.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(SectionStyle.Render("Session Summary"))
	fmt.Printf("  %s %d\n", DimStyle.Render("Exchanges:"), s.ExchangeCount)
	fmt.Printf("  %s %d\n", DimStyle.Render("Tokens:"), s.Conv.TotalTokens())
	fmt.Printf("  %s %s\n", DimStyle.Render("Duration:"), elapsed.String())

	if s.Store != nil && s.Conv.ID() != "" && !s.Manager.IsDirty() && s.Conv.Len() > 0 {
		fmt.Printf("  %s %s\n", DimStyle.Render("Saved as:"), shortID(s.Conv.ID()))
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("Goodbye!"))
}
