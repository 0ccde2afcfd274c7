// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection and output mode handling.
//
// Every rendering decision flows from here: whether stdout is a TTY
// decides markdown rendering, color support decides styling, and the
// terminal width decides wrapping. Piped output gets plain text so
// scripts can parse it, and NO_COLOR / --no-color / --plain are all
// honored before any escape sequence is written.

package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
// Use this to determine if interactive prompts are possible.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
// Use this to determine if colored output should be used.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStderrTTY returns true if stderr is a terminal.
func IsStderrTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// =============================================================================
// TERMINAL WIDTH DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth when size detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth below which wrapping becomes unreadable
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the current terminal width in columns.
// Returns DefaultTerminalWidth when stdout is not a terminal or the
// size cannot be determined.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// WrapText wraps text to the given width, breaking on word boundaries.
// Words longer than the width are left intact on their own line.
func WrapText(text string, width int) string {
	if width <= 0 {
		width = DefaultTerminalWidth
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}
		result.WriteString(wrapLine(line, width))
	}
	return result.String()
}

func wrapLine(line string, width int) string {
	if len(line) <= width {
		return line
	}

	var result strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(line) {
		if lineLen > 0 && lineLen+1+len(word) > width {
			result.WriteString("\n")
			lineLen = 0
		} else if lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}
		result.WriteString(word)
		lineLen += len(word)
	}
	return result.String()
}

// =============================================================================
// OUTPUT MODE
// =============================================================================

var (
	// plainMode forces raw text output: no colors, no markdown, no
	// syntax highlighting. Set by --plain before any output happens.
	plainMode bool

	// noColorFlag disables colors without disabling markdown layout.
	// Set by --no-color.
	noColorFlag bool

	colorOnce     sync.Once
	colorDetected bool
)

// SetPlainMode switches all output to raw text. Implies no colors.
func SetPlainMode(plain bool) {
	plainMode = plain
	if plain {
		SetNoColor(true)
	}
}

// PlainMode reports whether --plain output was requested.
func PlainMode() bool {
	return plainMode
}

// SetNoColor disables colored output regardless of terminal support.
// Must be called before the first style is rendered.
func SetNoColor(disable bool) {
	noColorFlag = disable
	if disable {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// ColorsEnabled returns true if colored output should be used.
//
// Resolution order:
//  1. --no-color or --plain flag disables colors
//  2. NO_COLOR environment variable disables colors (no-color.org)
//  3. FORCE_COLOR environment variable enables colors
//  4. Otherwise, colors are enabled only when stdout is a TTY
func ColorsEnabled() bool {
	if noColorFlag {
		return false
	}

	colorOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorDetected = false
			return
		}
		if os.Getenv("FORCE_COLOR") != "" {
			colorDetected = true
			return
		}
		colorDetected = IsStdoutTTY()
	})

	return colorDetected
}

// GetColorProfile returns the termenv color profile for output.
// Returns Ascii (no colors) when colors are disabled.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// =============================================================================
// TTY REQUIREMENT
// =============================================================================

// TTYRequiredError indicates a command needs an interactive terminal
// but stdin or stdout is redirected.
type TTYRequiredError struct {
	Command string
}

func (e *TTYRequiredError) Error() string {
	return fmt.Sprintf("%s requires an interactive terminal (stdin/stdout is redirected)", e.Command)
}

// RequireTTY returns a TTYRequiredError when the command cannot run
// without an interactive terminal.
func RequireTTY(command string) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &TTYRequiredError{Command: command}
	}
	return nil
}
