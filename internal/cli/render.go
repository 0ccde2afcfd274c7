// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Streaming response display.
//
// Fragments are written to the terminal the moment they arrive, with
// no batching. Once a response completes, the streamed region is
// repainted with the glamour markdown rendering (or chroma-highlighted
// code blocks) when the terminal allows it. A response that has
// scrolled past the top of the screen stays as raw text, because the
// region can no longer be addressed.

package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/jordanhubbard/ollama-cli/internal/config"
	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

var markdownRenderer *glamour.TermRenderer

func init() {
	// A nil renderer downgrades display to raw text rather than failing
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWrapWidth()),
	)
	if err == nil {
		markdownRenderer = renderer
	}
}

func markdownWrapWidth() int {
	width := GetTerminalWidth()
	if width > 100 {
		width = 100
	}
	return width
}

// RenderMarkdown renders markdown text for terminal display.
// Returns the input unchanged when the renderer is unavailable.
func RenderMarkdown(text string) string {
	if markdownRenderer == nil {
		return text
	}
	rendered, err := markdownRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}

// =============================================================================
// CODE BLOCK HIGHLIGHTING
// =============================================================================

var fencePattern = regexp.MustCompile("(?ms)^```([a-zA-Z0-9_+-]*)\\n(.*?)^```\\s*$")

// HighlightCodeBlocks applies chroma syntax highlighting to fenced
// code blocks, leaving the surrounding prose untouched. Used when
// markdown rendering is off but colors are available.
func HighlightCodeBlocks(text string, theme string) string {
	if !ColorsEnabled() {
		return text
	}

	style := chromaStyle(theme)
	return fencePattern.ReplaceAllStringFunc(text, func(block string) string {
		m := fencePattern.FindStringSubmatch(block)
		if m == nil {
			return block
		}
		lang, code := m[1], m[2]
		if lang == "" {
			lang = "text"
		}

		var buf strings.Builder
		if err := quick.Highlight(&buf, code, lang, "terminal256", style); err != nil {
			return block
		}
		return buf.String()
	})
}

func chromaStyle(theme string) string {
	switch theme {
	case "light":
		return "friendly"
	default:
		return "monokai"
	}
}

// =============================================================================
// RENDER OPTIONS
// =============================================================================

// RenderOptions resolves the display decisions for one terminal session.
type RenderOptions struct {
	// Markdown repaints completed responses with glamour
	Markdown bool

	// SyntaxHighlight colorizes fenced code blocks when Markdown is off
	SyntaxHighlight bool

	// ShowStats prints the timing summary after each response
	ShowStats bool

	// Theme picks the chroma style ("dark", "light", "auto")
	Theme string
}

// ResolveRenderOptions combines configuration with terminal reality.
// Markdown and highlighting require a TTY and are off in plain mode.
func ResolveRenderOptions(cfg *config.Config, quiet bool) RenderOptions {
	tty := IsStdoutTTY()
	return RenderOptions{
		Markdown:        cfg.UI.Markdown && tty && !PlainMode() && markdownRenderer != nil,
		SyntaxHighlight: cfg.UI.SyntaxHighlight && tty && !PlainMode() && ColorsEnabled(),
		ShowStats:       cfg.UI.ShowStats && !quiet,
		Theme:           cfg.UI.Theme,
	}
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

// StreamPrinter writes response fragments as they arrive and tracks
// how many terminal rows the streamed text occupies, so the region can
// be repainted once the response is complete.
type StreamPrinter struct {
	out  *os.File
	opts RenderOptions

	width  int
	height int

	col      int  // cursor column on the current row
	rows     int  // rows occupied so far, including the current one
	scrolled bool // region left the screen, repaint impossible
	wrote    bool
}

// NewStreamPrinter creates a printer for one response.
func NewStreamPrinter(opts RenderOptions) *StreamPrinter {
	p := &StreamPrinter{
		out:    os.Stdout,
		opts:   opts,
		width:  GetTerminalWidth(),
		height: terminalHeight(),
		rows:   1,
	}
	return p
}

func terminalHeight() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || height <= 0 {
		return 24
	}
	return height
}

// Fragment writes one fragment immediately, unbuffered.
func (p *StreamPrinter) Fragment(text string) {
	if text == "" {
		return
	}
	p.wrote = true
	fmt.Fprint(p.out, text)
	p.track(text)
}

// track updates the row/column model for the written text.
func (p *StreamPrinter) track(text string) {
	for _, r := range text {
		if r == '\n' {
			p.rows++
			p.col = 0
			continue
		}
		w := util.StringWidth(string(r))
		if p.col+w > p.width {
			p.rows++
			p.col = w
		} else {
			p.col += w
		}
	}
	if p.rows >= p.height {
		p.scrolled = true
	}
}

// Finish terminates the streamed output with a newline, leaving the
// raw text in place. Used for cancelled and failed responses.
func (p *StreamPrinter) Finish() {
	if p.wrote && p.col != 0 {
		fmt.Fprintln(p.out)
	}
}

// FinishStyled completes the response: when a repaint is possible and
// styling is on, the raw streamed region is erased and replaced with
// the rendered form of the full text.
func (p *StreamPrinter) FinishStyled(full string) {
	styled, ok := p.styledForm(full)
	if !ok || !p.canRepaint() {
		p.Finish()
		return
	}

	p.erase()
	fmt.Fprint(p.out, styled)
	if !strings.HasSuffix(styled, "\n") {
		fmt.Fprintln(p.out)
	}
}

// styledForm returns the display form of the completed response and
// whether it differs from the raw text.
func (p *StreamPrinter) styledForm(full string) (string, bool) {
	switch {
	case p.opts.Markdown:
		return RenderMarkdown(full), true
	case p.opts.SyntaxHighlight && strings.Contains(full, "```"):
		return HighlightCodeBlocks(full, p.opts.Theme), true
	default:
		return "", false
	}
}

func (p *StreamPrinter) canRepaint() bool {
	return p.wrote && !p.scrolled && IsStdoutTTY() && !PlainMode()
}

// erase clears the streamed region: back to column zero, cursor up to
// the first row, then erase to the end of the screen.
func (p *StreamPrinter) erase() {
	fmt.Fprint(p.out, "\r")
	if p.rows > 1 {
		fmt.Fprintf(p.out, "\x1b[%dA", p.rows-1)
	}
	fmt.Fprint(p.out, "\x1b[0J")
}

// Rows reports how many terminal rows the streamed text occupies.
func (p *StreamPrinter) Rows() int {
	return p.rows
}
