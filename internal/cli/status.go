// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation.
//
// Command: status
// Short:   Display server, model, and configuration status
// Aliases: s
//
// Examples:
//   ollama-cli status             Show status
//   ollama-cli status --json      Status in JSON format
//
// Status Sections:
//   Server:        URL, reachability, server version
//   Model:         Active model, availability, installed count
//   Conversations: Saved transcripts, directory, auto-save, search index
//   Config:        File location, system prompt, context budget
//
// The interactive /status directive shares the section renderers.

package cli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jordanhubbard/ollama-cli/internal/config"
	"github.com/jordanhubbard/ollama-cli/internal/ollama"
	"github.com/jordanhubbard/ollama-cli/internal/storage"
	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	statusLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")). // Light gray
				Width(16)

	statusValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")) // Off-white
)

// statusCheckTimeout bounds each individual probe so a hung server
// cannot stall the whole status display.
const statusCheckTimeout = 3 * time.Second

// =============================================================================
// HANDLE STATUS
// =============================================================================

// HandleStatus handles the "status" command.
func HandleStatus(args Args) error {
	cfg := loadConfigOrDefault(args)
	client := newClient(cfg)

	if args.JSON {
		return handleStatusJSON(cfg, client)
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("ollama-cli status"))
	fmt.Println(RenderSeparator(46))

	fmt.Println(formatServerSection(cfg, client))
	fmt.Println(formatModelSection(cfg, client))
	fmt.Println(formatConversationSection(cfg))
	fmt.Println(formatConfigSection(cfg))

	return nil
}

// handleStatusJSON outputs status in the JSON envelope.
func handleStatusJSON(cfg *config.Config, client *ollama.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), statusCheckTimeout)
	defer cancel()

	server := StatusServerInfo{URL: cfg.Server.URL}
	if err := client.CheckRunning(ctx); err != nil {
		server.Reachable = false
		server.Error = err.Error()
	} else {
		server.Reachable = true
		server.Version = getOllamaVersion()
	}

	model := StatusModelInfo{Name: cfg.DefaultModel}
	if server.Reachable {
		modelCtx, modelCancel := context.WithTimeout(context.Background(), statusCheckTimeout)
		defer modelCancel()
		if models, err := client.ListModels(modelCtx); err == nil {
			model.Count = len(models)
			for _, m := range models {
				if m.Name == cfg.DefaultModel {
					model.Available = true
					break
				}
			}
		}
	}

	historyDir, _ := cfg.HistoryDir()
	data := StatusData{
		Server: server,
		Model:  model,
		Config: StatusConfigInfo{
			Path:          configFileLabel(),
			SystemPrompt:  cfg.Chat.SystemPrompt != "",
			ContextTokens: cfg.Chat.ContextTokens,
			HistoryDir:    historyDir,
			AutoSave:      cfg.History.AutoSave,
		},
	}

	return NewJSONResponse("status", data).Print()
}

// =============================================================================
// SECTION FORMATTERS
// =============================================================================

// statusLine renders one "  label: value" row.
func statusLine(label, value string) string {
	return "  " + statusLabelStyle.Render(label+":") + statusValueStyle.Render(value)
}

// formatServerSection reports server reachability and version.
func formatServerSection(cfg *config.Config, client *ollama.Client) string {
	var lines []string
	lines = append(lines, SectionStyle.Render("Server"))
	lines = append(lines, statusLine("URL", cfg.Server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), statusCheckTimeout)
	defer cancel()

	if err := client.CheckRunning(ctx); err != nil {
		lines = append(lines, statusLine("Status", ErrorStyle.Render("unreachable")))
		lines = append(lines, statusLine("", DimStyle.Render("start it with: ollama serve")))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, statusLine("Status", SuccessStyle.Render("running")))
	if version := getOllamaVersion(); version != "" {
		lines = append(lines, statusLine("Version", version))
	}

	return strings.Join(lines, "\n")
}

// formatModelSection reports the active model and what is installed.
func formatModelSection(cfg *config.Config, client *ollama.Client) string {
	var lines []string
	lines = append(lines, SectionStyle.Render("Model"))
	lines = append(lines, statusLine("Active", cfg.DefaultModel))

	ctx, cancel := context.WithTimeout(context.Background(), statusCheckTimeout)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		lines = append(lines, statusLine("Installed", DimStyle.Render("unknown (server unreachable)")))
		return strings.Join(lines, "\n")
	}

	available := false
	for _, m := range models {
		if m.Name == cfg.DefaultModel {
			available = true
			break
		}
	}

	if available {
		lines = append(lines, statusLine("Available", SuccessStyle.Render("yes")))
	} else {
		lines = append(lines, statusLine("Available",
			WarningStyle.Render(fmt.Sprintf("no (pull it with: ollama pull %s)", cfg.DefaultModel))))
	}
	lines = append(lines, statusLine("Installed",
		fmt.Sprintf("%d %s", len(models), pluralize(len(models), "model", "models"))))

	return strings.Join(lines, "\n")
}

// formatConversationSection reports saved transcript state.
func formatConversationSection(cfg *config.Config) string {
	var lines []string
	lines = append(lines, SectionStyle.Render("Conversations"))

	if !cfg.History.Enabled {
		lines = append(lines, statusLine("History", DimStyle.Render("disabled")))
		return strings.Join(lines, "\n")
	}

	store, err := openStore(cfg)
	if err != nil {
		lines = append(lines, statusLine("History", ErrorStyle.Render(err.Error())))
		return strings.Join(lines, "\n")
	}

	metas, err := store.List()
	if err != nil {
		lines = append(lines, statusLine("Saved", DimStyle.Render("unknown")))
	} else {
		lines = append(lines, statusLine("Saved",
			fmt.Sprintf("%d %s", len(metas), pluralize(len(metas), "conversation", "conversations"))))
	}

	lines = append(lines, statusLine("Directory", store.BaseDir))

	autoSave := "off"
	if cfg.History.AutoSave {
		autoSave = "on"
	}
	lines = append(lines, statusLine("Auto-save", autoSave))

	if store.Encrypted() {
		lines = append(lines, statusLine("Encryption", SuccessStyle.Render("on")))
	}

	return strings.Join(lines, "\n")
}

// formatConfigSection reports resolved configuration highlights.
func formatConfigSection(cfg *config.Config) string {
	var lines []string
	lines = append(lines, SectionStyle.Render("Config"))
	lines = append(lines, statusLine("File", configFileLabel()))

	system := "(not set)"
	if cfg.Chat.SystemPrompt != "" {
		system = util.TruncateRunes(cfg.Chat.SystemPrompt, 48)
	}
	lines = append(lines, statusLine("System prompt", system))
	lines = append(lines, statusLine("Context", util.FormatInt(cfg.Chat.ContextTokens)+" tokens"))

	return strings.Join(lines, "\n")
}

// =============================================================================
// HELPERS
// =============================================================================

// openStore opens the transcript store honoring the configured
// directory and encryption settings.
func openStore(cfg *config.Config) (*storage.Store, error) {
	var store *storage.Store
	var err error

	if cfg.History.Dir != "" {
		store, err = storage.NewStoreWithDir(cfg.History.Dir)
	} else {
		store, err = storage.NewStore()
	}
	if err != nil {
		return nil, err
	}

	if cfg.History.Encrypt {
		passphrase := configPassphrase()
		if passphrase == "" {
			return nil, fmt.Errorf("history.encrypt is on but OLLAMA_CLI_PASSPHRASE is not set")
		}
		if err := store.EnableEncryption(passphrase); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// getOllamaVersion asks the local ollama binary for its version.
// Returns empty string when the binary is not installed.
func getOllamaVersion() string {
	ctx, cancel := context.WithTimeout(context.Background(), statusCheckTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ollama", "--version").Output()
	if err != nil {
		return ""
	}

	// Output looks like "ollama version is 0.3.12"
	version := strings.TrimSpace(string(out))
	if i := strings.LastIndex(version, " "); i >= 0 {
		version = version[i+1:]
	}
	return version
}
