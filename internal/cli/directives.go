// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// directives.go - Slash directive execution for interactive chat.
//
// The directive set (names, aliases, argument shapes) is defined in
// internal/commands; this file owns what each one does to the running
// session. One directive executes at a time, on the REPL goroutine.
//
// Directives:
//   General:      /help /quit /version
//   Conversation: /clear /history /system
//   Model:        /model /models
//   Server:       /server /status
//   Sessions:     /save /load /sessions /search /export
//   Workspace:    /write /modify /run
//   Settings:     /config
//
// Unknown names and invalid arguments are reported without touching
// conversation state.

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jordanhubbard/ollama-cli/internal/commands"
	"github.com/jordanhubbard/ollama-cli/internal/config"
	"github.com/jordanhubbard/ollama-cli/internal/conversation"
	"github.com/jordanhubbard/ollama-cli/internal/export"
	"github.com/jordanhubbard/ollama-cli/internal/index"
	"github.com/jordanhubbard/ollama-cli/internal/storage"
	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// DISPATCH
// =============================================================================

// dispatchDirective parses and executes one slash directive. The
// returned bool is false when the session should end.
func (s *ChatSession) dispatchDirective(input string) (bool, error) {
	result := s.parser.Parse(input)
	if result.Error != nil {
		return true, result.Error
	}

	if err := commands.ValidateArgs(result.Command, result.Args); err != nil {
		fmt.Println(WarningStyle.Render(err.Error()))
		if result.Command.Usage != "" {
			fmt.Println(DimStyle.Render("Usage: " + result.Command.Usage))
		}
		return true, nil
	}

	switch result.Command.Name {
	case "/help":
		s.directiveHelp(result.Args)
	case "/quit":
		return false, nil
	case "/version":
		fmt.Printf("ollama-cli %s\n", Version)
	case "/clear":
		s.directiveClear()
	case "/history":
		s.directiveHistory()
	case "/system":
		s.directiveSystem(result.RawArgs)
	case "/model":
		return true, s.directiveModel(result.Args)
	case "/models":
		return true, s.directiveModels()
	case "/server":
		return true, s.directiveServer(result.Args[0])
	case "/status":
		s.directiveStatus()
	case "/save":
		return true, s.directiveSave(result.RawArgs)
	case "/load":
		return true, s.directiveLoad(result.Args[0])
	case "/sessions":
		return true, s.directiveSessions()
	case "/search":
		return true, s.directiveSearch(result.RawArgs)
	case "/export":
		return true, s.directiveExport(result.Args)
	case "/write":
		file, prompt := directiveTargetAndPrompt(result.RawArgs, result.Args)
		return true, s.directiveFileGen(file, prompt, false)
	case "/modify":
		file, prompt := directiveTargetAndPrompt(result.RawArgs, result.Args)
		return true, s.directiveFileGen(file, prompt, true)
	case "/run":
		return true, s.directiveRun(result.RawArgs)
	case "/config":
		return true, s.directiveConfig(result.Args)
	}

	return true, nil
}

// suggestDirective finds the closest registered directive name for a
// mistyped one like "/modle", aliases included. Returns the name with
// its slash, or empty when nothing is close.
func (s *ChatSession) suggestDirective(typed string) string {
	typed = strings.TrimPrefix(strings.ToLower(typed), "/")

	var names []string
	for _, cmd := range s.registry.All() {
		names = append(names, strings.TrimPrefix(cmd.Name, "/"))
		for _, alias := range cmd.Aliases {
			names = append(names, strings.TrimPrefix(alias, "/"))
		}
	}

	if match := closestMatch(typed, names); match != "" {
		return "/" + match
	}
	return ""
}

// directiveTargetAndPrompt splits "<file> <prompt...>" arguments. The
// raw tail keeps the prompt text verbatim when the file name is
// unquoted; a quoted file name falls back to rejoining the parsed args.
func directiveTargetAndPrompt(rawArgs string, args []string) (string, string) {
	file := args[0]

	rest := strings.TrimPrefix(rawArgs, file)
	if len(rest) < len(rawArgs) && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
		return file, strings.TrimSpace(rest)
	}

	return file, strings.Join(args[1:], " ")
}

// =============================================================================
// GENERAL
// =============================================================================

// directiveHelp lists directives by category, or details one of them.
func (s *ChatSession) directiveHelp(args []string) {
	if len(args) > 0 {
		s.printDirectiveDetail(args[0])
		return
	}

	byCategory := s.registry.ByCategory()

	fmt.Println()
	fmt.Println(TitleStyle.Render("Directives"))

	for _, category := range s.registry.Categories() {
		cmds := byCategory[category]
		if len(cmds) == 0 {
			continue
		}

		fmt.Println()
		fmt.Println(SectionStyle.Render(category))
		for _, cmd := range cmds {
			name := cmd.Name
			if len(cmd.Aliases) > 0 {
				name += " (" + strings.Join(cmd.Aliases, ", ") + ")"
			}
			fmt.Printf("  %-22s %s\n", name, DimStyle.Render(cmd.Description))
		}
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("@path in a message attaches a file. /help <name> shows details."))
	fmt.Println()
}

// printDirectiveDetail shows usage for a single directive.
func (s *ChatSession) printDirectiveDetail(name string) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}

	cmd := s.registry.Get(name)
	if cmd == nil {
		fmt.Println(WarningStyle.Render("No directive named " + name))
		return
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render(cmd.Name))
	fmt.Println("  " + cmd.Description)
	if cmd.Usage != "" {
		fmt.Println("  " + DimStyle.Render("Usage: "+cmd.Usage))
	}
	if len(cmd.Aliases) > 0 {
		fmt.Println("  " + DimStyle.Render("Aliases: "+strings.Join(cmd.Aliases, ", ")))
	}

	for _, arg := range cmd.Args {
		marker := "optional"
		if arg.Required {
			marker = "required"
		}
		fmt.Printf("    %-10s %s\n", arg.Name, DimStyle.Render(arg.Description+" ("+marker+")"))
	}
	fmt.Println()
}

// =============================================================================
// CONVERSATION
// =============================================================================

// directiveClear starts over. The cleared conversation continues as a
// new transcript; the one it grew from stays in the store.
func (s *ChatSession) directiveClear() {
	s.Conv.Clear()
	s.Conv.SetID("")
	s.Conv.SetTitle("")
	s.Manager.MarkClean()

	if _, ok := s.Conv.SystemTurn(); ok {
		fmt.Println(SuccessStyle.Render("Conversation cleared") + DimStyle.Render(" (system prompt kept)"))
	} else {
		fmt.Println(SuccessStyle.Render("Conversation cleared"))
	}
}

// directiveHistory prints the full conversation with roles and stats.
func (s *ChatSession) directiveHistory() {
	turns := s.Conv.Turns()
	if len(turns) == 0 {
		fmt.Println(DimStyle.Render("No messages yet."))
		return
	}

	fmt.Println()
	for _, turn := range turns {
		label := turn.Role.DisplayName() + ":"
		timestamp := DimStyle.Render(turn.Timestamp.Format("15:04:05"))

		switch turn.Role {
		case conversation.RoleUser:
			fmt.Printf("%s %s\n", PromptStyle.Render(label), timestamp)
		case conversation.RoleAssistant:
			fmt.Printf("%s %s\n", AssistantLabelStyle.Render(label), timestamp)
		default:
			fmt.Println(DimStyle.Render(label))
		}

		fmt.Println(turn.Content)

		if turn.Truncated {
			fmt.Println(DimStyle.Render("[truncated]"))
		}
		if turn.Role == conversation.RoleAssistant && turn.TokensPerSec > 0 {
			fmt.Println(StatsStyle.Render(fmt.Sprintf("%.1f tok/s", turn.TokensPerSec)))
		}
		fmt.Println()
	}

	fmt.Println(DimStyle.Render(fmt.Sprintf("%d %s, %s tokens, %.0f%% of context",
		len(turns), pluralize(len(turns), "turn", "turns"),
		util.FormatInt(s.Conv.TotalTokens()),
		s.Conv.ContextPercent(s.Cfg.Chat.ContextTokens))))
}

// directiveSystem shows, sets, or clears the system prompt. Changes
// apply from the next request on; past turns are never rewritten.
func (s *ChatSession) directiveSystem(raw string) {
	switch {
	case raw == "":
		if sys, ok := s.Conv.SystemTurn(); ok {
			fmt.Println(DimStyle.Render("System prompt:"))
			fmt.Println(sys.Content)
		} else {
			fmt.Println(DimStyle.Render("No system prompt set. /system <text> sets one."))
		}

	case strings.EqualFold(raw, "clear"):
		s.Conv.SetSystem("")
		if s.Conv.Len() > 0 {
			s.Manager.MarkDirty()
		}
		fmt.Println(SuccessStyle.Render("System prompt cleared"))

	default:
		s.Conv.SetSystem(raw)
		if s.Conv.Len() > 1 {
			s.Manager.MarkDirty()
		}
		fmt.Println(SuccessStyle.Render("System prompt set") +
			DimStyle.Render(fmt.Sprintf(" (%d tokens)", conversation.EstimateTokens(raw))))
	}
}

// =============================================================================
// MODEL AND SERVER
// =============================================================================

// directiveModel shows the active model or switches to another one.
// Switching mid-conversation is allowed; the next request simply goes
// to the new model with the same history.
func (s *ChatSession) directiveModel(args []string) error {
	if len(args) == 0 {
		fmt.Printf("%s %s\n", DimStyle.Render("Model:"), HighlightStyle.Render(s.Model))
		return nil
	}

	name := args[0]
	if name == s.Model {
		fmt.Println(DimStyle.Render("Already using " + name))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusCheckTimeout)
	defer cancel()
	if !s.Client.ModelExists(ctx, name) {
		fmt.Println(WarningStyle.Render(fmt.Sprintf(
			"Model %q is not installed (ollama pull %s). Switching anyway.", name, name)))
	}

	s.Model = name
	s.Client.SetModel(name)
	s.Conv.SetModel(name)

	fmt.Printf("%s %s\n", SuccessStyle.Render("Switched to"), HighlightStyle.Render(name))
	return nil
}

// directiveModels lists the models installed on the server.
func (s *ChatSession) directiveModels() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := s.Client.ListModels(ctx)
	if err != nil {
		return err
	}

	printModelsTable(models, s.Model)
	return nil
}

// directiveServer points the session at a different server endpoint.
func (s *ChatSession) directiveServer(url string) error {
	if err := s.Client.SetBaseURL(url); err != nil {
		return err
	}
	s.Cfg.Server.URL = s.Client.BaseURL()

	ctx, cancel := context.WithTimeout(context.Background(), statusCheckTimeout)
	defer cancel()
	if err := s.Client.CheckRunning(ctx); err != nil {
		fmt.Println(WarningStyle.Render("Server set to " + s.Client.BaseURL() + " but it is not answering."))
		return nil
	}

	fmt.Printf("%s %s\n", SuccessStyle.Render("Server set to"), s.Client.BaseURL())
	return nil
}

// directiveStatus reports server health plus the live conversation
// state. The server section renderer is shared with the status command.
func (s *ChatSession) directiveStatus() {
	status := s.Manager.GetStatus()

	fmt.Println()
	fmt.Println(TitleStyle.Render("Session Status"))
	fmt.Println()
	fmt.Println(formatServerSection(s.Cfg, s.Client))
	fmt.Println()

	fmt.Println(SectionStyle.Render("Conversation"))
	fmt.Println(statusLine("Model", s.Model))
	fmt.Println(statusLine("Turns", fmt.Sprintf("%d", s.Conv.Len())))
	fmt.Println(statusLine("Context", fmt.Sprintf("%s of %s tokens (%.0f%%)",
		util.FormatInt(s.Conv.TotalTokens()),
		util.FormatInt(s.Cfg.Chat.ContextTokens),
		s.Conv.ContextPercent(s.Cfg.Chat.ContextTokens))))
	if sys, ok := s.Conv.SystemTurn(); ok {
		fmt.Println(statusLine("System", util.TruncateRunes(sys.Content, 48)))
	}
	fmt.Println()

	fmt.Println(SectionStyle.Render("Session"))
	fmt.Println(statusLine("Duration", status.Duration.Round(time.Second).String()))
	if status.RemainingTime > 0 {
		fmt.Println(statusLine("Idle timeout", "in "+status.RemainingTime.Round(time.Second).String()))
	}

	var saved string
	switch {
	case s.Store == nil:
		saved = "history disabled"
	case s.Manager.IsDirty():
		saved = "unsaved changes"
	case s.Conv.ID() == "" || s.Conv.Len() <= 1:
		saved = "nothing yet"
	default:
		saved = shortID(s.Conv.ID())
	}
	fmt.Println(statusLine("Saved", saved))
	fmt.Println()
}

// =============================================================================
// SESSIONS
// =============================================================================

// directiveSave persists the conversation, optionally retitling it.
func (s *ChatSession) directiveSave(title string) error {
	if s.Store == nil {
		fmt.Println(WarningStyle.Render("History is disabled, nothing can be saved."))
		return nil
	}
	if s.Conv.Len() == 0 {
		fmt.Println(DimStyle.Render("Nothing to save yet."))
		return nil
	}

	if title != "" {
		s.Conv.SetTitle(title)
	}

	if err := s.saveCurrent(); err != nil {
		return err
	}
	s.Manager.MarkClean()

	fmt.Printf("%s %s\n", SuccessStyle.Render("Saved as"), shortID(s.Conv.ID()))
	return nil
}

// directiveLoad replaces the live conversation with a saved one.
func (s *ChatSession) directiveLoad(ref string) error {
	if s.Store == nil {
		fmt.Println(WarningStyle.Render("History is disabled, nothing to load."))
		return nil
	}

	tr, err := resolveTranscript(s.Store, ref)
	if err != nil {
		return err
	}

	conv := conversation.New()
	conv.SetModel(tr.Model)
	for _, turn := range tr.Turns {
		// The live log is untouched on failure. %v rather than %w so a
		// corrupt transcript reads as a load failure, not an invariant
		// violation that ends the session.
		if err := conv.Append(turn); err != nil {
			return fmt.Errorf("transcript %s is not a valid conversation: %v", shortID(tr.ID), err)
		}
	}
	conv.SetID(tr.ID)
	conv.SetTitle(tr.Title)

	s.Conv = conv
	s.Manager.MarkClean()

	if tr.Model != "" && tr.Model != s.Model {
		s.Model = tr.Model
		s.Client.SetModel(tr.Model)
	}

	fmt.Printf("%s %q (%d %s, %s)\n",
		SuccessStyle.Render("Loaded"), tr.Title,
		len(tr.Turns), pluralize(len(tr.Turns), "turn", "turns"),
		HighlightStyle.Render(s.Model))
	return nil
}

// directiveSessions lists saved conversations.
func (s *ChatSession) directiveSessions() error {
	if s.Store == nil {
		fmt.Println(WarningStyle.Render("History is disabled."))
		return nil
	}

	metas, err := s.Store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("No saved conversations yet. /save stores this one."))
		return nil
	}

	fmt.Println()
	printSessionRows(metas)
	fmt.Println()
	fmt.Println(DimStyle.Render("/load <#> resumes a conversation."))
	return nil
}

// directiveSearch searches saved conversations, preferring the session's
// open index and degrading to a title and preview match without it.
func (s *ChatSession) directiveSearch(query string) error {
	if s.Store == nil {
		fmt.Println(WarningStyle.Render("History is disabled."))
		return nil
	}

	if s.Index != nil {
		results, err := s.searchWithIndex(query)
		if err == nil {
			return printSearchResults(Args{}, query, results)
		}
		fmt.Fprintln(os.Stderr, DimStyle.Render("search index unavailable, falling back to title search"))
	}

	metas, err := s.Store.Search(query)
	if err != nil {
		return err
	}

	results := make([]index.SearchResult, 0, len(metas))
	for _, m := range metas {
		results = append(results, index.SearchResult{
			ConversationID: m.ID,
			Title:          m.Title,
			Model:          m.Model,
			Snippet:        m.Preview,
			UpdatedAt:      m.UpdatedAt,
		})
	}
	return printSearchResults(Args{}, query, results)
}

// searchWithIndex queries the session's index, building it on first use.
func (s *ChatSession) searchWithIndex(query string) ([]index.SearchResult, error) {
	if !s.Index.IsIndexed() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Index.Rebuild(ctx); err != nil {
			return nil, err
		}
	}
	return s.Index.Search(query, index.DefaultSearchOptions())
}

// directiveExport writes the live conversation to a file.
func (s *ChatSession) directiveExport(args []string) error {
	if s.Conv.Len() == 0 {
		fmt.Println(DimStyle.Render("Nothing to export yet."))
		return nil
	}

	format := strings.ToLower(args[0])
	opts := export.DefaultOptions()
	if len(args) > 1 {
		opts.OutputPath = args[1]
	}

	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return ErrUnsupportedFormat(format, []string{"markdown", "md", "json"})
	}

	s.Conv.SetModel(s.Model)
	path, err := export.ExportToFile(storage.Snapshot(s.Conv), exporter, opts)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", SuccessStyle.Render("Exported to"), path)
	return nil
}

// =============================================================================
// WORKSPACE
// =============================================================================

// directiveFileGen runs /write or /modify. Ctrl+C cancels generation
// the same way it cancels a chat response; nothing touches disk until
// the diff is confirmed.
func (s *ChatSession) directiveFileGen(target, prompt string, modify bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.setCancel(cancel)
	defer func() {
		s.setCancel(nil)
		cancel()
	}()

	var err error
	if modify {
		err = RunFileModify(ctx, s.Client, s.Model, s.Shell.WorkDir(), target, prompt)
	} else {
		err = RunFileWrite(ctx, s.Client, s.Model, s.Shell.WorkDir(), target, prompt)
	}

	if err != nil && ctx.Err() != nil {
		fmt.Println(DimStyle.Render("Generation cancelled, nothing written."))
		return nil
	}
	return err
}

// directiveRun executes a shell command in the session working
// directory. The cd builtin persists for later /run and @mention
// resolution stays on the original directory.
func (s *ChatSession) directiveRun(command string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.setCancel(cancel)
	defer func() {
		s.setCancel(nil)
		cancel()
	}()

	res, err := s.Shell.Run(ctx, command)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Println(DimStyle.Render("Command cancelled."))
			return nil
		}
		return err
	}

	if res.Output != "" {
		fmt.Print(res.Output)
		if !strings.HasSuffix(res.Output, "\n") {
			fmt.Println()
		}
	}
	if res.Truncated {
		fmt.Println(DimStyle.Render("[output truncated]"))
	}

	switch {
	case res.TimedOut:
		fmt.Println(WarningStyle.Render(fmt.Sprintf("[timed out after %s]", res.Duration.Round(time.Second))))
	case res.ExitCode != 0:
		fmt.Println(WarningStyle.Render(fmt.Sprintf("[exit %d]", res.ExitCode)))
	}
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// directiveConfig shows or changes configuration from inside the chat.
// Changes are written to the config file, like the config command.
func (s *ChatSession) directiveConfig(args []string) error {
	action := "list"
	if len(args) > 0 {
		action = strings.ToLower(args[0])
	}

	switch action {
	case "list":
		s.printConfigList()
		return nil

	case "path":
		fmt.Println(configFileLabel())
		return nil

	case "get":
		if len(args) < 2 {
			fmt.Println(DimStyle.Render("Usage: /config get <key>"))
			return nil
		}
		key := normalizeConfigKey(args[1])
		value, err := s.Cfg.Get(key)
		if err != nil {
			return NewValidationErrorWithExample("key", args[1], "unknown configuration key",
				"run /config list for all keys")
		}
		fmt.Printf("%s = %s\n", key, formatConfigValue(value))
		return nil

	case "set":
		if len(args) < 3 {
			fmt.Println(DimStyle.Render("Usage: /config set <key> <value>"))
			return nil
		}
		return s.setConfigValue(normalizeConfigKey(args[1]), strings.Join(args[2:], " "))
	}

	return nil
}

// printConfigList prints all keys grouped by section.
func (s *ChatSession) printConfigList() {
	fmt.Println()
	lastSection := ""
	for _, key := range sortedConfigKeys() {
		section := "general"
		if i := strings.Index(key, "."); i >= 0 {
			section = key[:i]
		}
		if section != lastSection {
			if lastSection != "" {
				fmt.Println()
			}
			fmt.Println(SectionStyle.Render("[" + section + "]"))
			lastSection = section
		}

		value, err := s.Cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("  %s%s\n",
			LabelStyle.Copy().Width(26).Render(key+":"),
			ValueStyle.Render(formatConfigValue(value)))
	}
	fmt.Println()
}

// setConfigValue validates and persists one key, then reflects it onto
// the live session. A rejected value leaves the live config alone.
func (s *ChatSession) setConfigValue(key, value string) error {
	updated := *s.Cfg
	if err := updated.Set(key, value); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(),
			"run /config list for all keys")
	}
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("invalid configuration value: %w", err)
	}
	if err := config.Save(&updated); err != nil {
		return WrapError(err, "failed to save config")
	}

	s.Cfg = &updated
	config.SetGlobal(s.Cfg)
	s.applyConfigChange(key)

	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), key, value)
	return nil
}

// applyConfigChange reflects a changed key onto the running session
// where that is safe. Generation parameters under chat.* are read at
// request time and need no handling here.
func (s *ChatSession) applyConfigChange(key string) {
	switch {
	case strings.HasPrefix(key, "ui."):
		s.Render = ResolveRenderOptions(s.Cfg, s.Quiet)
	case strings.HasPrefix(key, "history.") || strings.HasPrefix(key, "session."):
		fmt.Println(DimStyle.Render("Storage and session settings take effect on the next session."))
	case key == "default_model" || strings.HasPrefix(key, "server."):
		fmt.Println(DimStyle.Render("Applies to new sessions. /model and /server change this one."))
	}
}
