// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands classifies input lines and defines the slash command set.
//
// A line is a command only when it starts with "/" in column one;
// anything else, including a line with leading whitespace before a
// slash, is chat text and must reach the conversation exactly as
// typed. Execution lives in the front ends; this package only parses,
// validates, and completes.
//
// # Key Types
//
//   - Registry: all commands with aliases and argument definitions
//   - Parser: turns one input line into a ParseResult
//   - ParseResult: classification plus parsed name and arguments
//   - UnknownCommandError: slash line with an unregistered name
//   - Completer: tab completion for commands, arguments, and @path mentions
//
// # Usage
//
// Classify a line:
//
//	result := parser.Parse(line)
//	switch {
//	case !result.IsCommand:
//	    // chat text, store verbatim
//	case result.Error != nil:
//	    // unknown command, report and change nothing
//	default:
//	    // dispatch on result.Command.Name with result.Args
//	}
//
// Get completions:
//
//	completions := completer.Complete("/mo", 3)
//	// Returns /model, /models, /modify
package commands
