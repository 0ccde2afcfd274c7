// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands classifies input lines and defines the slash command set.
package commands

import (
	"sort"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command describes a slash command. The registry carries metadata
// only; execution happens in the front end that owns the conversation,
// so the same command set serves both the line REPL and the TUI.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/model <name>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Hidden commands don't appear in help
	Hidden bool

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	// Name of the argument
	Name string

	// Required indicates if the argument must be provided
	Required bool

	// Type determines completion behavior
	Type ArgType

	// Description explains the argument
	Description string

	// Values for enum types
	Values []string

	// Completer for custom completion
	Completer func() []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString  ArgType = iota // Free-form string
	ArgTypeModel                  // Model name from the server
	ArgTypeSession                // Saved conversation ID
	ArgTypeFile                   // File path
	ArgTypeEnum                   // One of predefined values
	ArgTypeConfig                 // Config key
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias. Lookup is exact; there is
// no prefix matching.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ByCategory returns visible commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// Categories returns the category names in display order. Categories
// not in the fixed order sort alphabetically after it.
func (r *Registry) Categories() []string {
	order := []string{"General", "Conversation", "Model", "Server", "Sessions", "Workspace", "Settings"}
	seen := make(map[string]bool)
	byCat := r.ByCategory()

	var out []string
	for _, c := range order {
		if _, ok := byCat[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}

	var rest []string
	for c := range byCat {
		if !seen[c] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Usage:       "/help [command]",
		Args: []ArgDef{
			{Name: "command", Required: false, Type: ArgTypeString, Description: "Command to describe"},
		},
		Category: "General",
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit the chat",
		Category:    "General",
	})

	r.Register(&Command{
		Name:        "/version",
		Description: "Show client version",
		Category:    "General",
	})

	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear the conversation, keeping the system prompt",
		Category:    "Conversation",
	})

	r.Register(&Command{
		Name:        "/history",
		Description: "Show the full conversation with roles and stats",
		Category:    "Conversation",
	})

	r.Register(&Command{
		Name:        "/system",
		Description: "Show, set, or clear the system prompt",
		Usage:       "/system [text|clear]",
		Args: []ArgDef{
			{Name: "text", Required: false, Type: ArgTypeString, Description: "New system prompt, or 'clear' to remove"},
		},
		Category: "Conversation",
	})

	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Description: "Switch model, or show the current one",
		Usage:       "/model [name]",
		Args: []ArgDef{
			{Name: "name", Required: false, Type: ArgTypeModel, Description: "Model to switch to"},
		},
		Category: "Model",
	})

	r.Register(&Command{
		Name:        "/models",
		Description: "List models installed on the server",
		Category:    "Model",
	})

	r.Register(&Command{
		Name:        "/server",
		Description: "Switch the server endpoint",
		Usage:       "/server <url>",
		Args: []ArgDef{
			{Name: "url", Required: true, Type: ArgTypeString, Description: "Server base URL"},
		},
		Category: "Server",
	})

	r.Register(&Command{
		Name:        "/status",
		Aliases:     []string{"/s"},
		Description: "Show server, model, and context usage",
		Category:    "Server",
	})

	r.Register(&Command{
		Name:        "/save",
		Description: "Save the conversation",
		Usage:       "/save [title]",
		Args: []ArgDef{
			{Name: "title", Required: false, Type: ArgTypeString, Description: "Optional title"},
		},
		Category: "Sessions",
	})

	r.Register(&Command{
		Name:        "/load",
		Description: "Load a saved conversation",
		Usage:       "/load <id>",
		Args: []ArgDef{
			{Name: "id", Required: true, Type: ArgTypeSession, Description: "Conversation ID or list index"},
		},
		Category: "Sessions",
	})

	r.Register(&Command{
		Name:        "/sessions",
		Description: "List saved conversations",
		Category:    "Sessions",
	})

	r.Register(&Command{
		Name:        "/search",
		Description: "Search saved conversations",
		Usage:       "/search <query>",
		Args: []ArgDef{
			{Name: "query", Required: true, Type: ArgTypeString, Description: "Full-text query"},
		},
		Category: "Sessions",
	})

	r.Register(&Command{
		Name:        "/export",
		Description: "Export the conversation to a file",
		Usage:       "/export <markdown|json> [path]",
		Args: []ArgDef{
			{Name: "format", Required: true, Type: ArgTypeEnum, Values: []string{"markdown", "md", "json"}, Description: "Export format"},
			{Name: "path", Required: false, Type: ArgTypeFile, Description: "Output path"},
		},
		Category: "Sessions",
	})

	r.Register(&Command{
		Name:        "/write",
		Description: "Generate a file from a prompt, with preview and confirm",
		Usage:       "/write <file> <prompt>",
		Args: []ArgDef{
			{Name: "file", Required: true, Type: ArgTypeFile, Description: "Target file path"},
			{Name: "prompt", Required: true, Type: ArgTypeString, Description: "What the file should contain"},
		},
		Category: "Workspace",
	})

	r.Register(&Command{
		Name:        "/modify",
		Description: "Rewrite an existing file per prompt, with diff and confirm",
		Usage:       "/modify <file> <prompt>",
		Args: []ArgDef{
			{Name: "file", Required: true, Type: ArgTypeFile, Description: "File to modify"},
			{Name: "prompt", Required: true, Type: ArgTypeString, Description: "Requested change"},
		},
		Category: "Workspace",
	})

	r.Register(&Command{
		Name:        "/run",
		Description: "Run a shell command and show its output",
		Usage:       "/run <command>",
		Args: []ArgDef{
			{Name: "command", Required: true, Type: ArgTypeString, Description: "Command line to execute"},
		},
		Category: "Workspace",
	})

	r.Register(&Command{
		Name:        "/config",
		Description: "Show or change configuration",
		Usage:       "/config [get|set|list|path] [key] [value]",
		Args: []ArgDef{
			{Name: "action", Required: false, Type: ArgTypeEnum, Values: []string{"get", "set", "list", "path"}, Description: "Action"},
			{Name: "key", Required: false, Type: ArgTypeConfig, Description: "Config key"},
			{Name: "value", Required: false, Type: ArgTypeString, Description: "New value"},
		},
		Category: "Settings",
	})
}

// =============================================================================
// SESSION INFO
// =============================================================================

// SessionInfo carries saved conversation metadata into completion and
// help display without importing the storage package.
type SessionInfo struct {
	ID        string
	Title     string
	Model     string
	Preview   string
	UpdatedAt string
	MsgCount  int
}

// =============================================================================
// COMPLETION TYPE
// =============================================================================

// Completion represents a completion suggestion.
type Completion struct {
	// Value to insert
	Value string

	// Display text (may include formatting)
	Display string

	// Description shown alongside
	Description string

	// Score for ranking (higher = better match)
	Score int

	// IsCurrent indicates this is the current selection
	IsCurrent bool
}
