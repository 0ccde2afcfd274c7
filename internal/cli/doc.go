// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for ollama-cli.
//
// This package implements every subcommand of the ollama-cli binary,
// from the one-shot ask command through the interactive chat loop with
// its /-prefixed directives. Handlers print for humans by default and
// switch to a stable JSON envelope under --json.
//
// # Key Types
//
//   - Command: Enumeration of all top-level subcommands
//   - Args: Parsed command-line arguments, global and command-specific
//   - ChatSession: State of one interactive session (conversation,
//     client, storage, directive dispatch)
//   - JSONResponse: Envelope for machine-readable output
//
// # Usage
//
// Parse and execute commands:
//
//	cmd, args := cli.Parse()
//	cli.ApplyOutputFlags(args)
//	switch cmd {
//	case cli.CmdAsk:
//	    return cli.HandleAsk(args)
//	case cli.CmdChat:
//	    return cli.HandleChat(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
// Core Commands:
//   - chat: Interactive session with streamed responses (default)
//   - ask: Single question, answer on stdout, built for piping
//   - tui: Full-screen terminal UI
//
// Server Commands:
//   - models: List models installed on the server
//   - status: Server reachability, model, and configuration report
//
// Data Commands:
//   - sessions: List, show, delete, export, and search saved
//     conversations
//   - config: Get, set, and list configuration values
//
// Inside a chat session, /-prefixed directives (/model, /save, /write,
// /run, ...) are parsed by the commands package and dispatched here;
// see directives.go.
package cli
