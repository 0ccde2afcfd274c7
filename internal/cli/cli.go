// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing and dispatch.
//
// Parse turns os.Args into a Command plus an Args struct; main switches
// on the command and calls the matching handler. Global flags may
// appear before or after the subcommand.

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (overridden at build time via -ldflags)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota // interactive prompt loop (default)
	CmdAsk                 // one-shot question
	CmdTUI                 // full-screen terminal UI
	CmdModels              // list installed models
	CmdStatus              // server and config status
	CmdConfig              // configuration management
	CmdSessions            // saved conversation management
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdTUI:
		return "tui"
	case CmdModels:
		return "models"
	case CmdStatus:
		return "status"
	case CmdConfig:
		return "config"
	case CmdSessions:
		return "sessions"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ServerURL  string // --server: Ollama base URL override
	Model      string // --model: model override
	ConfigPath string // --config: alternate config file
	Quiet      bool   // --quiet/-q: suppress informational output
	Plain      bool   // --plain: raw text output
	NoColor    bool   // --no-color
	JSON       bool   // --json: machine-readable output

	// Ask
	Query    string // the prompt text
	NoStream bool   // --no-stream: wait for the full response

	// Subcommand routing (config, sessions)
	Subcommand string
	Rest       []string // args after the subcommand, flags included
}

const usageText = `ollama-cli %s - interactive client for a local Ollama server

Usage:
  ollama-cli [command] [flags]

Commands:
  chat               Interactive chat session (default)
  ask <prompt>       One-shot question, answer on stdout
  tui                Full-screen terminal UI
  models             List models installed on the server
  status             Show server, model, and configuration status
  config             View and modify configuration
  sessions           Manage saved conversations
  version            Show version information
  help               Show this help

Global Flags:
  --server <url>     Ollama server URL (default http://localhost:11434)
  --model <name>     Model for this invocation
  --config <path>    Use an alternate config file
  -q, --quiet        Suppress informational output
  --plain            Plain text output (no colors, no markdown)
  --no-color         Disable colored output
  --json             JSON output (models, status, sessions)

Ask Flags:
  --no-stream        Print the complete response instead of streaming

Config Subcommands:
  config get <key>          Print one configuration value
  config set <key> <value>  Set and save a configuration value
  config list               List all keys and current values
  config path               Show the config file location

Sessions Subcommands:
  sessions list                 List saved conversations
  sessions show <id|index>      Print a saved conversation
  sessions delete <id|index>    Delete a saved conversation
  sessions export <id|index>    Export to markdown or JSON
  sessions search <query>       Full-text search across conversations

Examples:
  ollama-cli                          Start an interactive chat
  ollama-cli ask "What is Go?"        One-shot question
  ollama-cli --model llama3:8b        Chat with a specific model
  ollama-cli models --json            Installed models as JSON
  ollama-cli sessions export 2 --format md
  cat main.go | ollama-cli ask "Review this code"

Environment:
  OLLAMA_HOST         Server URL (same variable the ollama CLI uses)
  OLLAMA_CLI_MODEL    Default model override
  OLLAMA_CLI_CONFIG   Config file override
  OLLAMA_CLI_HOME     Data directory (default ~/.ollama-cli)
  NO_COLOR            Disable colored output

Interactive chat accepts /-prefixed directives; type /help inside a
session for the full list.
`

// Usage returns the top-level help text.
func Usage() string {
	return fmt.Sprintf(usageText, Version)
}

// PrintUsage writes the top-level help text to stdout.
func PrintUsage() {
	fmt.Print(Usage())
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses an argument list (without the program name).
//
// The first non-flag token picks the command; everything after it is
// handed to the command parser. With no tokens at all, the default is
// an interactive chat session.
func ParseArgs(argv []string) (Command, Args) {
	var args Args

	rest := parseGlobalFlags(argv, &args)

	if len(rest) == 0 {
		return CmdChat, args
	}

	cmd := rest[0]
	rest = rest[1:]

	switch cmd {
	case "chat":
		return CmdChat, args

	case "ask":
		parseAskArgs(rest, &args)
		return CmdAsk, args

	case "tui":
		return CmdTUI, args

	case "models", "list":
		return CmdModels, args

	case "status", "s":
		return CmdStatus, args

	case "config":
		parseSubcommandArgs(rest, &args)
		return CmdConfig, args

	case "sessions", "session":
		parseSubcommandArgs(rest, &args)
		return CmdSessions, args

	case "version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		// Unknown token: report it via help with a hint
		fmt.Fprintf(os.Stderr, "unknown command: %s (run 'ollama-cli help')\n", cmd)
		if hint := SuggestCommand(cmd); hint != "" {
			fmt.Fprintf(os.Stderr, "Did you mean 'ollama-cli %s'?\n", hint)
		}
		args.Subcommand = cmd
		return CmdHelp, args
	}
}

// parseGlobalFlags extracts the global flags from an argument list and
// returns the remaining tokens in order. Global flags are accepted
// anywhere on the line, so "ollama-cli ask -q ..." and
// "ollama-cli -q ask ..." behave the same.
func parseGlobalFlags(argv []string, args *Args) []string {
	var rest []string

	for i := 0; i < len(argv); i++ {
		arg := argv[i]

		switch {
		case arg == "--server":
			if i+1 < len(argv) {
				args.ServerURL = argv[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--server="):
			args.ServerURL = strings.TrimPrefix(arg, "--server=")

		case arg == "--model", arg == "-m":
			if i+1 < len(argv) {
				args.Model = argv[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--model="):
			args.Model = strings.TrimPrefix(arg, "--model=")

		case arg == "--config":
			if i+1 < len(argv) {
				args.ConfigPath = argv[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")

		case arg == "--quiet", arg == "-q":
			args.Quiet = true

		case arg == "--plain":
			args.Plain = true

		case arg == "--no-color":
			args.NoColor = true

		case arg == "--json":
			args.JSON = true

		case arg == "--no-stream":
			args.NoStream = true

		case arg == "--version", arg == "-v":
			// Handled here so "ollama-cli --version" works without a command
			rest = append([]string{"version"}, rest...)

		case arg == "--help", arg == "-h":
			rest = append([]string{"help"}, rest...)

		default:
			rest = append(rest, arg)
		}
	}

	return rest
}

// parseAskArgs joins the remaining tokens into the query.
// "ask what is a goroutine" works without quotes.
func parseAskArgs(rest []string, args *Args) {
	args.Query = strings.TrimSpace(strings.Join(rest, " "))
}

// parseSubcommandArgs splits "config set key value" style argument
// lists into the subcommand and its trailing args.
func parseSubcommandArgs(rest []string, args *Args) {
	if len(rest) == 0 {
		return
	}
	args.Subcommand = rest[0]
	args.Rest = rest[1:]
}

// =============================================================================
// OUTPUT MODE SETUP
// =============================================================================

// ApplyOutputFlags configures global output state from parsed flags.
// Must run before any styled output.
func ApplyOutputFlags(args Args) {
	if args.NoColor {
		SetNoColor(true)
	}
	if args.Plain {
		SetPlainMode(true)
	}
	if args.JSON {
		// JSON output is for pipes; never mix escape codes into it
		SetNoColor(true)
	}
}

// =============================================================================
// VERSION
// =============================================================================

// HandleVersion handles the "version" command.
func HandleVersion(args Args) error {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		return NewJSONResponse("version", data).Print()
	}

	fmt.Printf("ollama-cli %s\n", Version)
	if !args.Quiet {
		fmt.Printf("  commit:  %s\n", GitCommit)
		fmt.Printf("  built:   %s\n", BuildDate)
		fmt.Printf("  runtime: %s\n", runtime.Version())
	}
	return nil
}

// HandleHelp handles the "help" command.
func HandleHelp(args Args) error {
	PrintUsage()
	if args.Subcommand != "" {
		return NewValidationError("command", args.Subcommand, "unknown command")
	}
	return nil
}
