// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diff computes line diffs for /modify and /write previews.
package diff

import (
	"fmt"
	"strings"
)

// =============================================================================
// LINE TYPES
// =============================================================================

// Kind classifies one diff line.
type Kind int

const (
	// KindContext is an unchanged line present on both sides
	KindContext Kind = iota
	// KindAdded is a line present only in the new content
	KindAdded
	// KindRemoved is a line present only in the old content
	KindRemoved
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindContext:
		return "context"
	case KindAdded:
		return "added"
	case KindRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Prefix returns the unified diff marker for this kind.
func (k Kind) Prefix() string {
	switch k {
	case KindAdded:
		return "+"
	case KindRemoved:
		return "-"
	default:
		return " "
	}
}

// Line is a single diff line. OldNo is 0 for added lines and NewNo is
// 0 for removed lines; both are 1-based otherwise.
type Line struct {
	Kind  Kind
	Text  string
	OldNo int
	NewNo int
}

// Hunk is one contiguous run of changes with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// =============================================================================
// FILE DIFF
// =============================================================================

// Mode says what happened to the file as a whole.
type Mode int

const (
	// ModeModified means both sides have content
	ModeModified Mode = iota
	// ModeCreated means the old side is empty
	ModeCreated
	// ModeDeleted means the new side is empty
	ModeDeleted
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeCreated:
		return "created"
	case ModeDeleted:
		return "deleted"
	default:
		return "modified"
	}
}

// Stats counts changed lines.
type Stats struct {
	Added   int
	Removed int
}

// FileDiff is the computed diff for one file.
type FileDiff struct {
	Path  string
	Mode  Mode
	Stats Stats
	Hunks []Hunk
}

// Changed reports whether the two sides differ at all.
func (d *FileDiff) Changed() bool {
	return d.Stats.Added > 0 || d.Stats.Removed > 0
}

// Summary returns a one-line description like "Modified +3 -1".
func (d *FileDiff) Summary() string {
	if !d.Changed() {
		return "No changes"
	}

	var parts []string
	switch d.Mode {
	case ModeCreated:
		parts = append(parts, "New file")
	case ModeDeleted:
		parts = append(parts, "File deleted")
	default:
		parts = append(parts, "Modified")
	}

	if d.Stats.Added > 0 {
		parts = append(parts, fmt.Sprintf("+%d", d.Stats.Added))
	}
	if d.Stats.Removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d", d.Stats.Removed))
	}

	return strings.Join(parts, " ")
}

// Unified renders the diff in standard unified format.
func (d *FileDiff) Unified() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "--- a/%s\n", d.Path)
	fmt.Fprintf(&sb, "+++ b/%s\n", d.Path)

	for _, h := range d.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n",
			h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, line := range h.Lines {
			sb.WriteString(line.Kind.Prefix())
			sb.WriteString(line.Text)
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

// =============================================================================
// COMPUTATION
// =============================================================================

// Compute diffs old against new content for the named file.
func Compute(path, oldContent, newContent string) *FileDiff {
	d := &FileDiff{Path: path, Mode: ModeModified}
	if oldContent == "" && newContent != "" {
		d.Mode = ModeCreated
	} else if oldContent != "" && newContent == "" {
		d.Mode = ModeDeleted
	}

	lines := diffLines(splitLines(oldContent), splitLines(newContent))
	for _, line := range lines {
		switch line.Kind {
		case KindAdded:
			d.Stats.Added++
		case KindRemoved:
			d.Stats.Removed++
		}
	}
	d.Hunks = buildHunks(lines)

	return d
}

// splitLines drops the empty element a trailing newline would produce.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// diffLines walks an LCS table of line suffixes front to back, so equal
// runs bind early and removals precede additions inside a changed block.
func diffLines(a, b []string) []Line {
	m, n := len(a), len(b)

	// dp[i][j] is the LCS length of a[i:] and b[j:]
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else {
				dp[i][j] = max(dp[i+1][j], dp[i][j+1])
			}
		}
	}

	var lines []Line
	i, j := 0, 0
	for i < m && j < n {
		switch {
		case a[i] == b[j]:
			lines = append(lines, Line{Kind: KindContext, Text: a[i], OldNo: i + 1, NewNo: j + 1})
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			lines = append(lines, Line{Kind: KindRemoved, Text: a[i], OldNo: i + 1})
			i++
		default:
			lines = append(lines, Line{Kind: KindAdded, Text: b[j], NewNo: j + 1})
			j++
		}
	}
	for ; i < m; i++ {
		lines = append(lines, Line{Kind: KindRemoved, Text: a[i], OldNo: i + 1})
	}
	for ; j < n; j++ {
		lines = append(lines, Line{Kind: KindAdded, Text: b[j], NewNo: j + 1})
	}

	return lines
}

// =============================================================================
// HUNK GROUPING
// =============================================================================

// hunkContext is the number of unchanged lines kept around each change.
const hunkContext = 3

// buildHunks groups changes into hunks. Changes whose context windows
// touch share a hunk; a longer unchanged gap starts a new one.
func buildHunks(lines []Line) []Hunk {
	var changed []int
	for i, line := range lines {
		if line.Kind != KindContext {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	var hunks []Hunk
	start := max(0, changed[0]-hunkContext)
	end := min(len(lines), changed[0]+hunkContext+1)

	for _, c := range changed[1:] {
		cStart := max(0, c-hunkContext)
		if cStart <= end {
			end = min(len(lines), c+hunkContext+1)
			continue
		}
		hunks = append(hunks, makeHunk(lines[start:end]))
		start = cStart
		end = min(len(lines), c+hunkContext+1)
	}
	hunks = append(hunks, makeHunk(lines[start:end]))

	return hunks
}

// makeHunk derives the header counts from the lines it contains.
func makeHunk(lines []Line) Hunk {
	h := Hunk{Lines: lines}
	for _, line := range lines {
		if line.OldNo > 0 {
			h.OldCount++
			if h.OldStart == 0 {
				h.OldStart = line.OldNo
			}
		}
		if line.NewNo > 0 {
			h.NewCount++
			if h.NewStart == 0 {
				h.NewStart = line.NewNo
			}
		}
	}
	return h
}
