// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// filegen.go - Model-assisted file generation for /write and /modify.
//
// Both directives ask the model for a JSON object with a files array,
// preview the result as a unified diff, and only touch disk after the
// user confirms. The model response may arrive wrapped in a fenced
// code block; extraction tolerates that.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jordanhubbard/ollama-cli/internal/diff"
	"github.com/jordanhubbard/ollama-cli/internal/ollama"
	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// GENERATION PROTOCOL
// =============================================================================

const writeSystemPrompt = `You are acting as a backend service for a CLI that writes files.
Return only a raw JSON object of the form:
{"files": [{"path": "filename", "content": "file content"}]}
Do not use markdown. Do not add commentary outside the JSON object.`

const modifySystemPrompt = `You are modifying an existing file based on intent.
Return only a raw JSON object of the form:
{"files": [{"path": "filename", "content": "complete new file content"}]}
Return the full rewritten content, not a fragment or a diff.
Do not use markdown. Do not add commentary outside the JSON object.`

// GeneratedFile is one file returned by the model.
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// fileGenResponse is the JSON envelope the model is asked to produce.
type fileGenResponse struct {
	Files []GeneratedFile `json:"files"`
}

// fencedJSONPattern matches a JSON object wrapped in a fenced code
// block, which models emit despite instructions not to.
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// extractJSONObject pulls the JSON object out of a model response,
// unwrapping a fenced code block or leading prose when present.
func extractJSONObject(output string) string {
	output = strings.TrimSpace(output)

	if m := fencedJSONPattern.FindStringSubmatch(output); m != nil {
		return strings.TrimSpace(m[1])
	}

	// Fall back to the outermost brace pair.
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start >= 0 && end > start {
		return output[start : end+1]
	}

	return output
}

// parseGeneratedFiles decodes the model response into files.
func parseGeneratedFiles(output string) ([]GeneratedFile, error) {
	payload := extractJSONObject(output)

	var resp fileGenResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("model did not return valid JSON: %w", err)
	}

	if len(resp.Files) == 0 {
		return nil, fmt.Errorf("model returned no files")
	}

	for _, f := range resp.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("model returned a file without a path")
		}
	}

	return resp.Files, nil
}

// =============================================================================
// MODEL CALL
// =============================================================================

// generateFiles sends the generation request and collects the full
// response. The request streams so long generations are not cut off
// by the non-streaming request timeout, but nothing is printed until
// the response is complete.
func generateFiles(ctx context.Context, client *ollama.Client, model, systemPrompt, userPrompt string) ([]GeneratedFile, error) {
	messages := []ollama.Message{
		ollama.NewSystemMessage(systemPrompt),
		ollama.NewUserMessage(userPrompt),
	}

	acc := ollama.NewStreamAccumulator()
	acc.Begin()

	err := client.ChatStream(ctx, model, messages, func(chunk ollama.StreamChunk) {
		acc.Add(chunk)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	if accErr := acc.GetError(); accErr != nil {
		return nil, accErr
	}

	return parseGeneratedFiles(acc.GetContent())
}

// =============================================================================
// DIRECTIVE HANDLERS
// =============================================================================

// RunFileWrite implements /write: generate content for a target file,
// preview it, confirm, write.
func RunFileWrite(ctx context.Context, client *ollama.Client, model, workDir, target, prompt string) error {
	userPrompt := fmt.Sprintf("Write the file %q.\n\nIntent:\n%s", target, prompt)

	fmt.Println(DimStyle.Render(fmt.Sprintf("Generating %s with %s...", target, model)))

	files, err := generateFiles(ctx, client, model, writeSystemPrompt, userPrompt)
	if err != nil {
		return err
	}

	return previewAndWrite(workDir, target, files)
}

// RunFileModify implements /modify: rewrite an existing file per the
// prompt, preview the unified diff, confirm, write.
func RunFileModify(ctx context.Context, client *ollama.Client, model, workDir, target, prompt string) error {
	path, err := resolveWorkspacePath(workDir, target)
	if err != nil {
		return err
	}

	current, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewNotFoundError("file", target)
		}
		return fmt.Errorf("read %s: %w", target, err)
	}

	userPrompt := fmt.Sprintf("Modify the file %q.\n\nIntent:\n%s\n\nCurrent content:\n%s",
		target, prompt, string(current))

	fmt.Println(DimStyle.Render(fmt.Sprintf("Rewriting %s with %s...", target, model)))

	files, err := generateFiles(ctx, client, model, modifySystemPrompt, userPrompt)
	if err != nil {
		return err
	}

	return previewAndWrite(workDir, target, files)
}

// previewAndWrite shows diffs for every generated file and writes them
// after a single confirmation. Nothing is written when any path is
// rejected or the user declines.
func previewAndWrite(workDir, target string, files []GeneratedFile) error {
	type plannedWrite struct {
		display string
		path    string
		content string
	}

	plans := make([]plannedWrite, 0, len(files))
	for _, f := range files {
		display := f.Path
		if display == "" {
			display = target
		}
		path, err := resolveWorkspacePath(workDir, display)
		if err != nil {
			return err
		}

		old := ""
		if data, err := os.ReadFile(path); err == nil {
			old = string(data)
		}

		d := diff.Compute(display, old, f.Content)
		if !d.Changed() {
			fmt.Printf("%s: no changes\n", display)
			continue
		}

		fmt.Println()
		fmt.Println(renderDiff(d))
		fmt.Println(DimStyle.Render(d.Summary()))

		plans = append(plans, plannedWrite{display: display, path: path, content: f.Content})
	}

	if len(plans) == 0 {
		return nil
	}

	fmt.Println()
	if !PromptYesNo(fmt.Sprintf("Write %d %s?", len(plans), pluralize(len(plans), "file", "files"))) {
		fmt.Println("Cancelled. No files written.")
		return nil
	}

	for _, p := range plans {
		if dir := filepath.Dir(p.path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create directory for %s: %w", p.display, err)
			}
		}
		if err := util.AtomicWriteFile(p.path, []byte(p.content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", p.display, err)
		}
		fmt.Printf("Wrote %s\n", p.display)
	}

	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// resolveWorkspacePath resolves a model-supplied path against the
// working directory and rejects escapes. Generated files never land
// outside the workspace.
func resolveWorkspacePath(workDir, p string) (string, error) {
	if p == "" {
		return "", NewValidationError("path", p, "path is empty")
	}
	if filepath.IsAbs(p) {
		return "", NewValidationError("path", p, "absolute paths are not allowed")
	}

	cleaned := filepath.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", NewValidationError("path", p, "path escapes the working directory")
	}

	return filepath.Join(workDir, cleaned), nil
}

// renderDiff colorizes a unified diff for the terminal.
func renderDiff(d *diff.FileDiff) string {
	unified := d.Unified()
	if !ColorsEnabled() {
		return strings.TrimRight(unified, "\n")
	}

	lines := strings.Split(strings.TrimRight(unified, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = DimStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = InfoStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = SuccessStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = ErrorStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
