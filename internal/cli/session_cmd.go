// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Saved conversation management commands.
//
// Command: sessions [subcommand]
// Short:   Manage saved conversations
// Aliases: session
//
// Subcommands:
//   list (default)      List saved conversations (alias: ls)
//   show <id|index>     Print a saved conversation
//   delete <id|index>   Delete a saved conversation (alias: rm)
//   export <id|index>   Export a transcript to markdown or JSON
//   search <query>      Full-text search across conversations
//
// Examples:
//   ollama-cli sessions                       List saved conversations
//   ollama-cli sessions show 1                Show first conversation
//   ollama-cli sessions show 4f9a             Show by ID prefix
//   ollama-cli sessions export 1 --format md  Export as Markdown
//   ollama-cli sessions export 1 --format json --output out.json
//   ollama-cli sessions delete 1 --confirm    Delete without prompting
//   ollama-cli sessions search "goroutine leak"
//
// Flags:
//   --format FORMAT     Export format: markdown (md), json
//   --output PATH       Export destination file
//   --confirm           Skip the delete confirmation prompt
//   --json              Output in JSON format

package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jordanhubbard/ollama-cli/internal/config"
	"github.com/jordanhubbard/ollama-cli/internal/conversation"
	"github.com/jordanhubbard/ollama-cli/internal/export"
	"github.com/jordanhubbard/ollama-cli/internal/index"
	"github.com/jordanhubbard/ollama-cli/internal/storage"
	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// SESSIONS COMMAND HANDLER
// =============================================================================

// HandleSessions handles the "sessions" command and its subcommands.
func HandleSessions(args Args) error {
	cfg := loadConfigOrDefault(args)

	store, err := openStore(cfg)
	if err != nil {
		return WrapError(err, "failed to open conversation storage")
	}

	parser := NewArgParser(args.Rest)

	switch args.Subcommand {
	case "", "list", "ls":
		return handleSessionsList(args, store)
	case "show":
		return handleSessionsShow(args, parser, store)
	case "delete", "rm":
		return handleSessionsDelete(args, parser, store)
	case "export":
		return handleSessionsExport(args, parser, store)
	case "search":
		return handleSessionsSearch(args, parser, cfg, store)
	default:
		return NewValidationError("subcommand", args.Subcommand,
			"must be one of: list, show, delete, export, search")
	}
}

// =============================================================================
// SESSIONS LIST
// =============================================================================

// handleSessionsList lists all saved conversations.
func handleSessionsList(args Args, store *storage.Store) error {
	metas, err := store.List()
	if err != nil {
		return WrapError(err, "failed to list conversations")
	}

	if args.JSON {
		return printSessionListJSON(metas)
	}

	return printSessionListTable(metas)
}

// printSessionListJSON outputs the conversation list in the JSON envelope.
func printSessionListJSON(metas []storage.Meta) error {
	data := SessionListData{
		Sessions: make([]SessionEntry, 0, len(metas)),
		Count:    len(metas),
	}

	for i, m := range metas {
		data.Sessions = append(data.Sessions, SessionEntry{
			Index:     i + 1,
			ID:        m.ID,
			Title:     m.Title,
			Model:     m.Model,
			Turns:     m.TurnCount,
			UpdatedAt: m.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	return NewJSONResponse("sessions list", data).Print()
}

// printSessionListTable outputs the conversation list as a table.
func printSessionListTable(metas []storage.Meta) error {
	if len(metas) == 0 {
		fmt.Println()
		fmt.Println("No saved conversations.")
		fmt.Println(DimStyle.Render("Conversations are saved with /save during a chat."))
		fmt.Println()
		return nil
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Saved Conversations"))

	printSessionRows(metas)

	fmt.Println()
	fmt.Printf("Total: %d %s\n", len(metas), pluralize(len(metas), "conversation", "conversations"))
	fmt.Println(DimStyle.Render("Use 'ollama-cli sessions show <#>' to view one."))
	fmt.Println()

	return nil
}

// printSessionRows prints the numbered conversation table shared by the
// sessions subcommand and the /sessions directive.
func printSessionRows(metas []storage.Meta) {
	fmt.Printf("%-4s %-24s %-18s %-6s %-12s\n", "#", "Title", "Model", "Turns", "Updated")
	fmt.Println(strings.Repeat("-", 68))

	for i, m := range metas {
		title := util.TruncateRunes(m.Title, 22)
		model := util.TruncateRunes(m.Model, 16)

		updated := formatTimeAgo(m.UpdatedAt)
		if len(updated) > 12 {
			updated = m.UpdatedAt.Format("2006-01-02")
		}

		fmt.Printf("%-4d %-24s %-18s %-6d %-12s\n",
			i+1, title, model, m.TurnCount, updated)
	}
}

// =============================================================================
// SESSIONS SHOW
// =============================================================================

// handleSessionsShow prints one saved conversation.
func handleSessionsShow(args Args, parser *ArgParser, store *storage.Store) error {
	ref := parser.Positional(0)
	if ref == "" {
		return ErrMissingArgument("id", "ollama-cli sessions show <id|index>")
	}

	tr, err := resolveTranscript(store, ref)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("sessions show", tr).Print()
	}

	printTranscript(tr)
	return nil
}

// printTranscript renders a transcript for terminal reading.
func printTranscript(tr *storage.Transcript) {
	fmt.Println()
	fmt.Println(TitleStyle.Render(tr.Title))

	fmt.Println(statusLine("ID", tr.ID))
	fmt.Println(statusLine("Model", tr.Model))
	fmt.Println(statusLine("Turns", strconv.Itoa(len(tr.Turns))))
	fmt.Println(statusLine("Created", tr.CreatedAt.Format(time.RFC1123)))
	fmt.Println(statusLine("Updated", tr.UpdatedAt.Format(time.RFC1123)))
	fmt.Println()
	fmt.Println(RenderSeparator(68))

	for _, turn := range tr.Turns {
		label := turn.Role.DisplayName()
		switch turn.Role {
		case conversation.RoleUser:
			fmt.Println(PromptStyle.Render(label + ":"))
		case conversation.RoleAssistant:
			fmt.Println(AssistantLabelStyle.Render(label + ":"))
		default:
			fmt.Println(DimStyle.Render(label + ":"))
		}

		content := turn.Content
		if turn.Truncated {
			content += DimStyle.Render(" [truncated]")
		}
		fmt.Println(content)
		fmt.Println()
	}
}

// =============================================================================
// SESSIONS DELETE
// =============================================================================

// handleSessionsDelete deletes one saved conversation.
func handleSessionsDelete(args Args, parser *ArgParser, store *storage.Store) error {
	ref := parser.Positional(0)
	if ref == "" {
		return ErrMissingArgument("id", "ollama-cli sessions delete <id|index>")
	}

	// Resolve first so the prompt can name what is being deleted.
	tr, err := resolveTranscript(store, ref)
	if err != nil {
		return err
	}

	confirmed, err := RequireConfirmation(
		fmt.Sprintf("delete conversation %q", tr.Title),
		ConfirmationOptions{
			ConfirmFlag: parser.BoolFlag("confirm"),
			JSONMode:    args.JSON,
		})
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := store.Delete(tr.ID); err != nil {
		return WrapError(err, "failed to delete conversation")
	}

	if args.JSON {
		return NewJSONResponse("sessions delete", map[string]interface{}{
			"deleted": true,
			"id":      tr.ID,
			"title":   tr.Title,
		}).Print()
	}

	fmt.Printf("Deleted conversation %q (%s).\n", tr.Title, shortID(tr.ID))
	return nil
}

// =============================================================================
// SESSIONS EXPORT
// =============================================================================

// handleSessionsExport writes one saved conversation to a file.
func handleSessionsExport(args Args, parser *ArgParser, store *storage.Store) error {
	ref := parser.Positional(0)
	if ref == "" {
		return ErrMissingArgument("id", "ollama-cli sessions export <id|index>")
	}

	format := strings.ToLower(parser.FlagOrDefault("format", "markdown"))

	opts := export.DefaultOptions()
	opts.OutputPath = parser.Flag("output")

	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return ErrUnsupportedFormat(format, []string{"markdown", "md", "json"})
	}

	tr, err := resolveTranscript(store, ref)
	if err != nil {
		return err
	}

	path, err := export.ExportToFile(tr, exporter, opts)
	if err != nil {
		return WrapError(err, "failed to export conversation")
	}

	if args.JSON {
		return NewJSONResponse("sessions export", map[string]interface{}{
			"exported": true,
			"id":       tr.ID,
			"format":   format,
			"path":     path,
		}).Print()
	}

	fmt.Printf("Exported %q to %s\n", tr.Title, path)
	return nil
}

// =============================================================================
// SESSIONS SEARCH
// =============================================================================

// handleSessionsSearch searches saved conversations. The indexed path
// searches turn content with snippets; without an index it falls back
// to a title and preview match.
func handleSessionsSearch(args Args, parser *ArgParser, cfg *config.Config, store *storage.Store) error {
	query := strings.Join(parser.PositionalFrom(0), " ")
	if query == "" {
		return ErrMissingArgument("query", "ollama-cli sessions search <query>")
	}

	if cfg.History.IndexEnabled {
		results, err := searchIndexed(cfg, store, query)
		if err == nil {
			return printSearchResults(args, query, results)
		}
		// Index failures degrade to the metadata scan.
		fmt.Fprintln(os.Stderr, DimStyle.Render("search index unavailable, falling back to title search"))
	}

	metas, err := store.Search(query)
	if err != nil {
		return WrapError(err, "search failed")
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

	return printSearchResults(args, query, results)
}

// searchIndexed runs the query against the SQLite full-text index.
func searchIndexed(cfg *config.Config, store *storage.Store, query string) ([]index.SearchResult, error) {
	dbPath, err := config.IndexPath()
	if err != nil {
		return nil, err
	}

	idx, err := index.New(store, &index.Config{
		DatabasePath: dbPath,
		EnableWatch:  false,
	})
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	if !idx.IsIndexed() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := idx.Rebuild(ctx); err != nil {
			return nil, err
		}
	}

	return idx.Search(query, index.DefaultSearchOptions())
}

// printSearchResults renders search hits.
func printSearchResults(args Args, query string, results []index.SearchResult) error {
	if args.JSON {
		return NewJSONResponse("sessions search", map[string]interface{}{
			"query":   query,
			"results": results,
			"count":   len(results),
		}).Print()
	}

	if len(results) == 0 {
		fmt.Printf("No conversations match %q.\n", query)
		return nil
	}

	fmt.Println()
	fmt.Printf("%d %s for %q:\n", len(results), pluralize(len(results), "match", "matches"), query)
	fmt.Println()

	for _, r := range results {
		header := fmt.Sprintf("%s (%s, %s)",
			r.Title, r.Model, formatTimeAgo(r.UpdatedAt))
		fmt.Println("  " + HighlightStyle.Render(header))
		if r.Snippet != "" {
			fmt.Println("    " + DimStyle.Render(r.Snippet))
		}
		fmt.Println("    " + DimStyle.Render("id: "+shortID(r.ConversationID)))
		fmt.Println()
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// resolveTranscript loads a transcript by 1-based list index or by ID
// (full or unambiguous prefix).
func resolveTranscript(store *storage.Store, ref string) (*storage.Transcript, error) {
	if idx, err := strconv.Atoi(ref); err == nil {
		tr, err := store.LoadByIndex(idx - 1)
		if err != nil {
			return nil, NewNotFoundError("conversation", fmt.Sprintf("#%d", idx))
		}
		return tr, nil
	}

	tr, err := store.Resolve(ref)
	if err != nil {
		return nil, NewNotFoundError("conversation", ref)
	}
	return tr, nil
}

// shortID returns the first 8 characters of a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
