// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - Command suggestion for typo correction.
package cli

import (
	"strings"
)

// validCommands is the list of all valid top-level commands,
// including aliases, as Parse accepts them.
var validCommands = []string{
	"chat",
	"ask",
	"tui",
	"models",
	"status",
	"config",
	"sessions",
	"version",
	"help",
	// Aliases
	"list",    // models
	"s",       // status
	"session", // sessions
}

// SuggestCommand returns a suggested command if the input is close to a
// valid command. Returns empty string if no good match is found.
func SuggestCommand(input string) string {
	return closestMatch(strings.ToLower(input), validCommands)
}

// closestMatch finds the candidate with the smallest edit distance,
// within a threshold scaled to the input length:
//   - 2-3 chars: 1 edit
//   - 4-8 chars: 2 edits (catches transpositions like "hepl" -> "help")
//   - longer: 3 edits
func closestMatch(input string, candidates []string) string {
	// Very short inputs are likely intentional
	if len(input) < 2 {
		return ""
	}

	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	bestMatch := ""
	bestDistance := -1

	for _, c := range candidates {
		distance := levenshteinDistance(input, c)

		if distance == 0 {
			return ""
		}

		if distance <= maxDistance && (bestDistance == -1 || distance < bestDistance) {
			bestDistance = distance
			bestMatch = c
		}
	}

	return bestMatch
}

// levenshteinDistance calculates the edit distance between two strings:
// the minimum number of single-character insertions, deletions, or
// substitutions required to change one into the other.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	rows := len(s1) + 1
	cols := len(s2) + 1

	// Two rows instead of the full matrix
	prev := make([]int, cols)
	curr := make([]int, cols)

	for j := 0; j < cols; j++ {
		prev[j] = j
	}

	for i := 1; i < rows; i++ {
		curr[0] = i

		for j := 1; j < cols; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}

			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}

		prev, curr = curr, prev
	}

	return prev[cols-1]
}

// min3 returns the minimum of three integers.
func min3(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
