// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation handling for destructive actions.
//
// One pattern everywhere:
//  1. If --confirm flag is present, proceed without prompting
//  2. If --json mode, require --confirm (no interactive prompts in JSON mode)
//  3. If stdin is not a TTY, require --confirm (can't prompt)
//  4. Otherwise, show an interactive [y/N] prompt

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ConfirmationOptions configures RequireConfirmation at call sites.
type ConfirmationOptions struct {
	// ConfirmFlag indicates --confirm was passed (skip interactive prompt)
	ConfirmFlag bool
	// JSONMode indicates --json was passed (requires ConfirmFlag)
	JSONMode bool
}

// RequireConfirmation checks whether the user has confirmed a
// destructive action, prompting interactively when possible.
//
// Returns true if confirmed, false if declined, and an error when
// confirmation is required but cannot be obtained (JSON mode or
// redirected stdin without --confirm).
func RequireConfirmation(action string, opts ConfirmationOptions) (bool, error) {
	if opts.ConfirmFlag {
		return true, nil
	}

	if opts.JSONMode {
		return false, fmt.Errorf("JSON mode requires --confirm for destructive actions (action: %s)", action)
	}

	if !IsTTY() {
		return false, fmt.Errorf("cannot prompt for confirmation (stdin is not a terminal); use --confirm to %s", action)
	}

	return PromptYesNo(fmt.Sprintf("Are you sure you want to %s?", action)), nil
}

// PromptYesNo shows a [y/N] prompt and reads one line from stdin.
// Anything other than y/yes declines. The default is no.
func PromptYesNo(question string) bool {
	fmt.Printf("%s %s ", question, DimStyle.Render("[y/N]"))

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
