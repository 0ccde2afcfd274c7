// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command handler.
//
// Handles the "ask" command which sends a single prompt to the model
// and writes the answer to stdout. Built for piping: the prompt can
// come from an argument or stdin, informational output stays on
// stderr, and markdown rendering engages only on a TTY.
//
// Command: ask <prompt>
// Short:   Ask a single question
//
// Examples:
//   ollama-cli ask "What is a goroutine?"
//   git diff | ollama-cli ask "Write a commit message for this change"
//   ollama-cli ask "Summarize @notes.md"
//   ollama-cli ask --json "Capital of France?" | jq -r .data.response
//   ollama-cli ask --no-stream "Print nothing until the answer is complete"
//
// Flags:
//   --model NAME     Model override for this question
//   --no-stream      Buffer the full answer before printing
//   --json           Envelope with token counts and timing
//   --plain          Raw text, no markdown rendering
//   -q, --quiet      Answer only, no stats line

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jordanhubbard/ollama-cli/internal/config"
	"github.com/jordanhubbard/ollama-cli/internal/mention"
	"github.com/jordanhubbard/ollama-cli/internal/ollama"
)

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAsk sends one prompt and prints the answer.
func HandleAsk(args Args) error {
	cfg := loadConfigOrDefault(args)

	question, err := resolveQuestion(args)
	if err != nil {
		if args.JSON {
			NewJSONErrorResponse("ask", err).Print()
		}
		return err
	}

	// @path mentions expand into the request the same way they do in
	// chat.
	requestText := question
	if mention.HasMentions(question) {
		expander := mention.NewExpander(mention.NewResolver(mention.DefaultResolverConfig()))
		expansion := expander.Expand(question)
		if expansion.HasErrors() {
			fmt.Fprintf(os.Stderr, "%s %s\n",
				WarningStyle.Render("[mention]"), expansion.ErrorSummary())
		}
		if len(expansion.Mentions) > len(expansion.Errors) && !args.Quiet && !args.JSON {
			fmt.Fprintln(os.Stderr, DimStyle.Render("Attached: "+mention.Describe(expansion.Mentions)))
		}
		requestText = expansion.Expanded
	}

	client := newClient(cfg)
	model := cfg.DefaultModel

	// Ctrl+C cancels the request; the partial answer already printed
	// stays on screen and the exit code says interrupted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.CheckOnStart {
		checkCtx, cancel := context.WithTimeout(ctx, statusCheckTimeout)
		checkErr := client.CheckRunning(checkCtx)
		cancel()
		if checkErr != nil {
			err := WrapError(checkErr, "Ollama is not running. Start it with: ollama serve")
			if args.JSON {
				NewJSONErrorResponse("ask", err).Print()
			}
			return err
		}
	}

	var messages []ollama.Message
	if cfg.Chat.SystemPrompt != "" {
		messages = append(messages, ollama.NewSystemMessage(cfg.Chat.SystemPrompt))
	}
	messages = append(messages, ollama.NewUserMessage(requestText))

	if args.JSON || args.NoStream {
		return askBuffered(ctx, client, model, messages, args, cfg)
	}
	return askStreaming(ctx, client, model, messages, args, cfg)
}

// resolveQuestion builds the prompt from the argument and piped stdin.
// Piped data becomes the question when no argument was given, and is
// appended as context when one was.
func resolveQuestion(args Args) (string, error) {
	question := strings.TrimSpace(args.Query)

	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		data, readErr := io.ReadAll(bufio.NewReader(os.Stdin))
		if readErr == nil {
			piped := strings.TrimSpace(string(data))
			switch {
			case piped == "":
			case question == "":
				question = piped
			default:
				question = question + "\n\n" + piped
			}
		}
	}

	if question == "" {
		return "", ErrMissingArgument("prompt", `ollama-cli ask "your question"`)
	}
	return question, nil
}

// =============================================================================
// STREAMING
// =============================================================================

// askStreaming prints fragments as they arrive, then repaints the
// completed answer with markdown rendering when the terminal allows.
func askStreaming(ctx context.Context, client *ollama.Client, model string, messages []ollama.Message, args Args, cfg *config.Config) error {
	acc := ollama.NewStreamAccumulator()
	acc.Begin()
	printer := NewStreamPrinter(ResolveRenderOptions(cfg, args.Quiet))

	streamErr := client.ChatStreamWithOptions(ctx, model, messages, requestOptions(cfg),
		func(chunk ollama.StreamChunk) {
			if chunk.Content != "" {
				printer.Fragment(chunk.Content)
			}
			acc.Add(chunk)
		})

	switch {
	case streamErr == nil && acc.GetError() == nil:
		printer.FinishStyled(acc.GetContent())

	case ctx.Err() != nil:
		acc.Cancel()
		printer.Finish()
		return ctx.Err()

	case ollama.IsStreamInterrupted(streamErr):
		acc.Cancel()
		printer.Finish()
		fmt.Fprintln(os.Stderr, DimStyle.Render("[response truncated]"))
		return streamErr

	default:
		err := streamErr
		if err == nil {
			err = acc.GetError()
		}
		acc.Fail(err)
		printer.Finish()
		return err
	}

	if !args.Quiet && cfg.UI.ShowStats {
		fmt.Fprintln(os.Stderr, StatsStyle.Render(acc.GetStats().Format()))
	}
	return nil
}

// =============================================================================
// BUFFERED
// =============================================================================

// askBuffered collects the whole answer before printing anything.
// Serves both --no-stream and --json. Collection still streams under
// the hood so long generations are not capped by the request timeout.
func askBuffered(ctx context.Context, client *ollama.Client, model string, messages []ollama.Message, args Args, cfg *config.Config) error {
	acc := ollama.NewStreamAccumulator()
	acc.Begin()

	streamErr := client.ChatStreamWithOptions(ctx, model, messages, requestOptions(cfg),
		func(chunk ollama.StreamChunk) {
			acc.Add(chunk)
		})

	if err := collectError(ctx, acc, streamErr); err != nil {
		if args.JSON {
			NewJSONErrorResponse("ask", err).Print()
		}
		return err
	}

	content := acc.GetContent()
	stats := acc.GetStats()

	if args.JSON {
		return NewJSONResponse("ask", AskData{
			Response:     content,
			Model:        model,
			InputTokens:  stats.PromptTokens,
			OutputTokens: stats.CompletionTokens,
			DurationMs:   stats.TotalDuration.Milliseconds(),
			TokensPerSec: stats.TokensPerSecond,
		}).Print()
	}

	render := ResolveRenderOptions(cfg, args.Quiet)
	switch {
	case render.Markdown:
		fmt.Print(RenderMarkdown(content))
	case render.SyntaxHighlight && strings.Contains(content, "```"):
		fmt.Print(HighlightCodeBlocks(content, render.Theme))
		if !strings.HasSuffix(content, "\n") {
			fmt.Println()
		}
	default:
		fmt.Print(content)
		if !strings.HasSuffix(content, "\n") {
			fmt.Println()
		}
	}

	if !args.Quiet && cfg.UI.ShowStats {
		fmt.Fprintln(os.Stderr, StatsStyle.Render(stats.Format()))
	}
	return nil
}

// collectError folds the three failure signals of a buffered stream
// into one: cancellation first, then transport, then accumulator state.
func collectError(ctx context.Context, acc *ollama.StreamAccumulator, streamErr error) error {
	if ctx.Err() != nil {
		acc.Cancel()
		return ctx.Err()
	}
	if streamErr != nil {
		acc.Fail(streamErr)
		return streamErr
	}
	if err := acc.GetError(); err != nil {
		acc.Fail(err)
		return err
	}
	return nil
}
