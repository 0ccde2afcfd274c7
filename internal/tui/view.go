// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jordanhubbard/ollama-cli/internal/conversation"
)

// =============================================================================
// STYLES
// =============================================================================

// The palette matches the plain CLI output styles so the two modes look
// related: cyan for the user and titles, purple for the model, dim gray
// for secondary text.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("135")) // Purple

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray

	errorTextStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")) // Red

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")). // Dim gray
			Italic(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")) // Purple

	headerOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // Green

	headerStreamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")) // Orange

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1)

	statusOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // Green

	statusWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Orange

	statusErrorStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196")) // Red
)

func statusOK(text string) string    { return statusOKStyle.Render(text) }
func statusWarn(text string) string  { return statusWarnStyle.Render(text) }
func statusError(text string) string { return statusErrorStyle.Render(text) }
func statusDim(text string) string   { return dimStyle.Render(text) }

// =============================================================================
// MAIN VIEW
// =============================================================================

// View renders the screen: header, transcript viewport, input line,
// status bar. Heights are one line each around the viewport, matching
// the arithmetic in handleResize.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// renderHeader shows the title, the active model, context usage, and
// the connection state on the right edge.
func (m Model) renderHeader() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	left := titleStyle.Render("ollama-cli") + dimStyle.Render(" | "+m.modelName)
	if pct := m.conv.ContextPercent(m.cfg.Chat.ContextTokens); pct >= 1 {
		left += dimStyle.Render(fmt.Sprintf(" | ctx %.0f%%", pct))
	}

	var right string
	switch {
	case m.state == StateStreaming:
		right = headerStreamStyle.Render("streaming")
	case m.state == StateError:
		right = errorTextStyle.Render("error")
	case m.serverOK:
		right = headerOKStyle.Render("ready")
	default:
		right = dimStyle.Render("connecting")
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(
		left + strings.Repeat(" ", gap) + right)
}

// renderInput shows the focused input line.
func (m Model) renderInput() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(m.input.View())
}

// renderStatusBar shows, in priority order: the transient status line,
// the last generation stats, or the key hint.
func (m Model) renderStatusBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var line string
	switch {
	case m.statusLine != "":
		line = m.statusLine
	case m.lastStats != "":
		line = statsStyle.Render(m.lastStats)
	default:
		line = statusDim(helpHint(m.keyMap))
	}

	return statusBarStyle.MaxWidth(width).Render(line)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// transcriptView renders the conversation for the viewport, including
// the in-flight response while streaming.
func (m Model) transcriptView() string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	wrapWidth := width - 2
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	var b strings.Builder

	if sys, ok := m.conv.SystemTurn(); ok {
		b.WriteString(dimStyle.Render("[system prompt: "+preview(sys.Content, 60)+"]") + "\n\n")
	}

	rendered := 0
	for _, turn := range m.conv.Turns() {
		if turn.Role == conversation.RoleSystem {
			continue
		}

		switch turn.Role {
		case conversation.RoleUser:
			b.WriteString(userLabelStyle.Render("you") + "\n")
		case conversation.RoleAssistant:
			b.WriteString(assistantLabelStyle.Render(m.modelName) + "\n")
		}
		b.WriteString(wrapText(turn.Content, wrapWidth) + "\n")
		if turn.Truncated {
			b.WriteString(dimStyle.Render("[truncated]") + "\n")
		}
		b.WriteString("\n")
		rendered++
	}

	switch {
	case m.state == StateStreaming:
		b.WriteString(assistantLabelStyle.Render(m.modelName) + "\n")
		if m.awaitingFirst {
			b.WriteString(m.spinner.View() + " " + dimStyle.Render("waiting for the first token") + "\n")
		} else {
			b.WriteString(wrapText(m.streamBuf.String(), wrapWidth) + m.spinner.View() + "\n")
		}

	case m.state == StateError && m.lastErr != nil:
		b.WriteString(errorTextStyle.Render("[error] "+m.lastErr.Error()) + "\n")
		b.WriteString(dimStyle.Render("Press Esc to dismiss.") + "\n")

	case rendered == 0:
		b.WriteString(m.welcomeText())
	}

	return b.String()
}

// welcomeText fills the empty transcript with the session banner.
func (m Model) welcomeText() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ollama-cli interactive chat") + "\n\n")
	b.WriteString(dimStyle.Render("Model:  ") + m.modelName + "\n")
	b.WriteString(dimStyle.Render("Server: ") + m.cfg.Server.URL + "\n\n")
	b.WriteString(dimStyle.Render("Type a message and press Enter. Directives: /help, /model, /quit") + "\n")
	return b.String()
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

// renderHelp shows the key bindings and the directive subset carried in
// this mode. Any key returns to the chat.
func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString("\n" + titleStyle.Render("  Keyboard") + "\n\n")
	for _, group := range m.keyMap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-12s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("  Directives") + "\n\n")
	directives := []struct{ name, desc string }{
		{"/model [name]", "show or switch the model"},
		{"/models", "list installed models"},
		{"/clear", "start a fresh conversation"},
		{"/save [title]", "save the conversation"},
		{"/help", "this screen"},
		{"/quit", "exit"},
	}
	for _, d := range directives {
		b.WriteString(fmt.Sprintf("  %-14s %s\n", d.name, d.desc))
	}

	b.WriteString("\n" + dimStyle.Render("  The full directive set lives in the plain REPL: ollama-cli chat") + "\n")
	b.WriteString(dimStyle.Render("  Press any key to return.") + "\n")
	return b.String()
}

// helpHint formats the short bindings for the status bar.
func helpHint(k KeyMap) string {
	parts := make([]string, 0, 4)
	for _, b := range k.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  |  ")
}

// =============================================================================
// TEXT HELPERS
// =============================================================================

// wrapText wraps text to a maximum width, preserving existing line
// breaks and breaking long lines at the last space that fits. Runs on
// runes so multibyte characters are not split.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("\n")
		}

		runes := []rune(line)
		for len(runes) > maxWidth {
			breakAt := maxWidth
			for j := maxWidth; j > 0; j-- {
				if runes[j] == ' ' {
					breakAt = j
					break
				}
			}
			b.WriteString(string(runes[:breakAt]))
			b.WriteString("\n")
			runes = []rune(strings.TrimLeft(string(runes[breakAt:]), " "))
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

// preview returns the first line of text, truncated to max runes.
func preview(text string, max int) string {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	runes := []rune(line)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return line
}
