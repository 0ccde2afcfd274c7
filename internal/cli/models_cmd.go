// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models_cmd.go - Models command implementation.
//
// Command: models
// Short:   List models installed on the Ollama server
//
// Flags:
//   --json              Output in JSON format
//
// The interactive /models directive shares the table renderer.

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jordanhubbard/ollama-cli/internal/ollama"
	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// modelListTimeout bounds the tags request; listing models should be
// nearly instant against a local server.
const modelListTimeout = 10 * time.Second

// HandleModels handles the "models" command.
func HandleModels(args Args) error {
	cfg := loadConfigOrDefault(args)
	client := newClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), modelListTimeout)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		if args.JSON {
			NewJSONErrorResponse("models", err).Print()
		}
		return WrapError(err, "failed to list models")
	}

	if args.JSON {
		return printModelsJSON(models)
	}

	printModelsTable(models, cfg.DefaultModel)
	return nil
}

// printModelsJSON outputs the model list in the JSON envelope.
func printModelsJSON(models []ollama.ModelInfo) error {
	entries := make([]ModelEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, ModelEntry{
			Name:          m.Name,
			Size:          m.Size,
			SizeHuman:     ollama.FormatSize(m.Size),
			ParameterSize: m.Details.ParameterSize,
			Quantization:  m.Details.QuantizationLevel,
			Family:        m.Details.Family,
			ModifiedAt:    m.ModifiedAt.Format(time.RFC3339),
		})
	}

	data := ModelsData{Models: entries, Count: len(entries)}
	return NewJSONResponse("models", data).Print()
}

// printModelsTable renders the installed models as a table, marking
// the active model.
func printModelsTable(models []ollama.ModelInfo, current string) {
	if len(models) == 0 {
		fmt.Println("No models installed.")
		fmt.Println(DimStyle.Render("Pull one with: ollama pull llama3"))
		return
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("Installed models (%d)", len(models))))

	header := fmt.Sprintf("  %-30s %-9s %-8s %-10s %s",
		"NAME", "SIZE", "PARAMS", "QUANT", "MODIFIED")
	fmt.Println(DimStyle.Render(header))
	fmt.Println(SeparatorStyle.Render("  " + strings.Repeat("-", 72)))

	for _, m := range models {
		// Styling would break %-30s padding, so only the marker is colored
		marker := " "
		if m.Name == current {
			marker = HighlightStyle.Render("*")
		}

		fmt.Printf("%s %-30s %-9s %-8s %-10s %s\n",
			marker,
			util.TruncateRunes(m.Name, 28),
			ollama.FormatSize(m.Size),
			m.Details.ParameterSize,
			m.Details.QuantizationLevel,
			formatTimeAgo(m.ModifiedAt))
	}

	fmt.Println()
	fmt.Printf("%s\n", DimStyle.Render("* active model"))
	fmt.Println()
}
