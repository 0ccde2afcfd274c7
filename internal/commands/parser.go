// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands classifies input lines and defines the slash command set.
package commands

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult contains the result of parsing one input line.
type ParseResult struct {
	// IsCommand is true if the line starts with / in column one
	IsCommand bool

	// Command is the matched command (nil if not found)
	Command *Command

	// CommandName is the name as typed (e.g., "/help")
	CommandName string

	// Args are the parsed arguments
	Args []string

	// RawInput is the original input line
	RawInput string

	// RawArgs is the unsplit argument portion, for commands that
	// take free text (/system, /write, /modify, /run)
	RawArgs string

	// Error is set when the name matches no registered command
	Error error
}

// =============================================================================
// PARSER
// =============================================================================

// Parser turns input lines into commands using a registry for lookup.
type Parser struct {
	registry *Registry
}

// NewParser creates a new parser with the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse classifies one input line. A line is a command only when the
// slash is the very first byte; "  /model" is chat text and is returned
// with IsCommand=false so the caller stores it exactly as typed.
// Unknown command names set Error to an *UnknownCommandError and leave
// Command nil.
func (p *Parser) Parse(input string) ParseResult {
	result := ParseResult{
		RawInput: input,
	}

	if !strings.HasPrefix(input, "/") {
		return result
	}

	result.IsCommand = true

	nameEnd := strings.IndexFunc(input, unicode.IsSpace)
	if nameEnd == -1 {
		result.CommandName = input
	} else {
		result.CommandName = input[:nameEnd]
		result.RawArgs = strings.TrimSpace(input[nameEnd:])
		result.Args = splitCommandLine(result.RawArgs)
	}

	result.Command = p.registry.Get(result.CommandName)
	if result.Command == nil {
		result.Error = &UnknownCommandError{Name: result.CommandName}
	}

	return result
}

// ParseArgs splits a raw argument string into individual arguments.
// Handles quoted strings with spaces.
func ParseArgs(input string) []string {
	return splitCommandLine(input)
}

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

// splitCommandLine splits a command line into tokens, respecting quotes.
// Supports both single and double quotes for arguments with spaces.
// Multi-byte runes pass through untouched; only ASCII whitespace splits.
func splitCommandLine(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingleQuote, inDoubleQuote bool

	for i := 0; i < len(input); i++ {
		ch := input[i]

		switch {
		case ch == '\'' && !inDoubleQuote:
			// Toggle single quote mode, quote not kept in the token
			inSingleQuote = !inSingleQuote

		case ch == '"' && !inSingleQuote:
			inDoubleQuote = !inDoubleQuote

		case ch == '\\' && i+1 < len(input) && (inDoubleQuote || inSingleQuote):
			// Escape sequence inside quotes
			next := input[i+1]
			if next == '"' || next == '\'' || next == '\\' {
				current.WriteByte(next)
				i++
			} else {
				current.WriteByte(ch)
			}

		case ch < utf8.RuneSelf && unicode.IsSpace(rune(ch)) && !inSingleQuote && !inDoubleQuote:
			// Whitespace outside quotes ends the current token
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}

		default:
			current.WriteByte(ch)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// IsCommand reports whether the line is a command. Only a slash in
// column one counts; leading whitespace makes the line chat text.
func IsCommand(input string) bool {
	return strings.HasPrefix(input, "/")
}

// ExtractCommandName extracts just the command name from input.
// e.g., "/model llama3" -> "/model"
func ExtractCommandName(input string) string {
	if !strings.HasPrefix(input, "/") {
		return ""
	}

	end := strings.IndexFunc(input, unicode.IsSpace)
	if end == -1 {
		return input
	}
	return input[:end]
}

// GetPartialCommand returns the partial command name being typed.
// Returns empty string once the name is complete or for chat text.
func GetPartialCommand(input string) string {
	if !strings.HasPrefix(input, "/") {
		return ""
	}

	end := strings.IndexFunc(input, unicode.IsSpace)
	if end == -1 {
		// Still typing the command name
		return input
	}

	return ""
}

// GetPartialArg returns the index and partial text of the argument
// being typed, for completion.
func GetPartialArg(input string) (int, string) {
	parts := splitCommandLine(input)
	if len(parts) <= 1 {
		return 0, ""
	}

	if strings.HasSuffix(input, " ") || strings.HasSuffix(input, "\"") || strings.HasSuffix(input, "'") {
		// Starting a new argument
		return len(parts) - 1, ""
	}

	// In the middle of an argument
	return len(parts) - 2, parts[len(parts)-1]
}

// ValidateArgs validates arguments against a command's argument definitions.
func ValidateArgs(cmd *Command, args []string) error {
	if cmd == nil {
		return nil
	}

	for i, argDef := range cmd.Args {
		if argDef.Required && i >= len(args) {
			return &ValidationError{
				Command:  cmd.Name,
				Arg:      argDef.Name,
				Message:  "required argument missing",
				Expected: argDef.Description,
			}
		}

		if i < len(args) && argDef.Type == ArgTypeEnum && len(argDef.Values) > 0 {
			valid := false
			for _, v := range argDef.Values {
				if strings.EqualFold(args[i], v) {
					valid = true
					break
				}
			}
			if !valid {
				return &ValidationError{
					Command:  cmd.Name,
					Arg:      argDef.Name,
					Message:  "invalid value",
					Got:      args[i],
					Expected: strings.Join(argDef.Values, ", "),
				}
			}
		}
	}

	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

// UnknownCommandError reports a slash line whose name matches no
// registered command. The session must not change state before
// surfacing it.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %s (see /help)", e.Name)
}

// IsUnknownCommand reports whether err is an UnknownCommandError.
func IsUnknownCommand(err error) bool {
	var uc *UnknownCommandError
	return errors.As(err, &uc)
}

// ValidationError represents an argument validation error.
type ValidationError struct {
	Command  string
	Arg      string
	Message  string
	Got      string
	Expected string
}

func (e *ValidationError) Error() string {
	msg := e.Command + ": " + e.Message
	if e.Arg != "" {
		msg += " for argument '" + e.Arg + "'"
	}
	if e.Got != "" {
		msg += " (got: " + e.Got + ")"
	}
	if e.Expected != "" {
		msg += " - expected: " + e.Expected
	}
	return msg
}
