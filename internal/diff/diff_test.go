// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff

import (
	"fmt"
	"strings"
	"testing"
)

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line%d", i+1)
	}
	return lines
}

// =============================================================================
// COMPUTE TESTS
// =============================================================================

func TestCompute_NewFile(t *testing.T) {
	d := Compute("test.txt", "", "line1\nline2\nline3")

	if d.Mode != ModeCreated {
		t.Errorf("Expected mode created, got %s", d.Mode)
	}
	if d.Stats.Added != 3 {
		t.Errorf("Expected 3 added, got %d", d.Stats.Added)
	}
	if d.Stats.Removed != 0 {
		t.Errorf("Expected 0 removed, got %d", d.Stats.Removed)
	}
}

func TestCompute_DeletedFile(t *testing.T) {
	d := Compute("test.txt", "line1\nline2\nline3", "")

	if d.Mode != ModeDeleted {
		t.Errorf("Expected mode deleted, got %s", d.Mode)
	}
	if d.Stats.Added != 0 {
		t.Errorf("Expected 0 added, got %d", d.Stats.Added)
	}
	if d.Stats.Removed != 3 {
		t.Errorf("Expected 3 removed, got %d", d.Stats.Removed)
	}
}

func TestCompute_Modified(t *testing.T) {
	d := Compute("test.txt", "line1\nline2\nline3", "line1\nmodified\nline3\nline4")

	if d.Mode != ModeModified {
		t.Errorf("Expected mode modified, got %s", d.Mode)
	}
	if d.Stats.Added != 2 {
		t.Errorf("Expected 2 added, got %d", d.Stats.Added)
	}
	if d.Stats.Removed != 1 {
		t.Errorf("Expected 1 removed, got %d", d.Stats.Removed)
	}
	if !d.Changed() {
		t.Error("Changed() = false for differing content")
	}
}

func TestCompute_NoChanges(t *testing.T) {
	content := "line1\nline2\nline3"
	d := Compute("test.txt", content, content)

	if d.Changed() {
		t.Error("Changed() = true for identical content")
	}
	if len(d.Hunks) != 0 {
		t.Errorf("Expected no hunks, got %d", len(d.Hunks))
	}
	if d.Summary() != "No changes" {
		t.Errorf("Expected 'No changes', got %q", d.Summary())
	}
}

func TestCompute_TrailingNewlineEquivalent(t *testing.T) {
	// A final newline added or removed does not count as a line change
	d := Compute("test.txt", "line1\nline2", "line1\nline2\n")

	if d.Changed() {
		t.Errorf("Expected no change, got %s", d.Summary())
	}
}

// =============================================================================
// LINE WALK TESTS
// =============================================================================

func TestDiffLines_RemovalBeforeAddition(t *testing.T) {
	lines := diffLines([]string{"a", "x", "b"}, []string{"a", "y", "b"})

	want := []struct {
		kind Kind
		text string
	}{
		{KindContext, "a"},
		{KindRemoved, "x"},
		{KindAdded, "y"},
		{KindContext, "b"},
	}

	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d", len(want), len(lines))
	}
	for i, w := range want {
		if lines[i].Kind != w.kind || lines[i].Text != w.text {
			t.Errorf("Line %d: expected %s %q, got %s %q",
				i, w.kind, w.text, lines[i].Kind, lines[i].Text)
		}
	}
}

func TestDiffLines_LineNumbers(t *testing.T) {
	lines := diffLines([]string{"a", "x"}, []string{"a", "y"})

	if lines[0].OldNo != 1 || lines[0].NewNo != 1 {
		t.Errorf("Context line numbers = %d/%d, want 1/1", lines[0].OldNo, lines[0].NewNo)
	}
	if lines[1].OldNo != 2 || lines[1].NewNo != 0 {
		t.Errorf("Removed line numbers = %d/%d, want 2/0", lines[1].OldNo, lines[1].NewNo)
	}
	if lines[2].OldNo != 0 || lines[2].NewNo != 2 {
		t.Errorf("Added line numbers = %d/%d, want 0/2", lines[2].OldNo, lines[2].NewNo)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{"empty", "", nil},
		{"single line no newline", "line1", []string{"line1"}},
		{"single line with newline", "line1\n", []string{"line1"}},
		{"multiple lines", "line1\nline2\nline3", []string{"line1", "line2", "line3"}},
		{"trailing newline", "line1\nline2\n", []string{"line1", "line2"}},
		{"embedded blank line", "line1\n\nline3", []string{"line1", "", "line3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitLines(tt.content)
			if len(result) != len(tt.expected) {
				t.Fatalf("Expected %d lines, got %d", len(tt.expected), len(result))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("Line %d: expected %q, got %q", i, tt.expected[i], result[i])
				}
			}
		})
	}
}

// =============================================================================
// HUNK TESTS
// =============================================================================

func TestCompute_SplitsDistantChanges(t *testing.T) {
	old := numberedLines(20)
	modified := append([]string(nil), old...)
	modified[1] = "changed2"
	modified[17] = "changed18"

	d := Compute("test.txt", strings.Join(old, "\n"), strings.Join(modified, "\n"))

	if len(d.Hunks) != 2 {
		t.Fatalf("Expected 2 hunks, got %d", len(d.Hunks))
	}

	// Each hunk carries its own context, not the span between them
	total := 0
	for _, h := range d.Hunks {
		total += len(h.Lines)
	}
	if total >= 20 {
		t.Errorf("Hunks contain %d lines, unchanged middle was not skipped", total)
	}

	if d.Hunks[0].OldStart != 1 {
		t.Errorf("First hunk OldStart = %d, want 1", d.Hunks[0].OldStart)
	}
	if d.Hunks[1].OldStart != 15 {
		t.Errorf("Second hunk OldStart = %d, want 15", d.Hunks[1].OldStart)
	}
}

func TestCompute_MergesNearbyChanges(t *testing.T) {
	old := numberedLines(10)
	modified := append([]string(nil), old...)
	modified[2] = "changed3"
	modified[4] = "changed5"

	d := Compute("test.txt", strings.Join(old, "\n"), strings.Join(modified, "\n"))

	if len(d.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(d.Hunks))
	}
}

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestFileDiff_Unified(t *testing.T) {
	d := Compute("test.txt", "line1\nline2\nline3", "line1\nmodified\nline3")

	want := `--- a/test.txt
+++ b/test.txt
@@ -1,3 +1,3 @@
 line1
-line2
+modified
 line3
`
	if got := d.Unified(); got != want {
		t.Errorf("Unified() =\n%s\nwant:\n%s", got, want)
	}
}

func TestFileDiff_Unified_NewFile(t *testing.T) {
	d := Compute("new.txt", "", "line1\nline2")

	unified := d.Unified()
	if !strings.Contains(unified, "@@ -0,0 +1,2 @@") {
		t.Errorf("Expected new-file hunk header, got:\n%s", unified)
	}
	if !strings.Contains(unified, "+line1") {
		t.Errorf("Missing added line, got:\n%s", unified)
	}
}

func TestFileDiff_Summary(t *testing.T) {
	tests := []struct {
		name       string
		oldContent string
		newContent string
		expected   string
	}{
		{"new file", "", "line1\nline2", "New file +2"},
		{"deleted file", "line1\nline2", "", "File deleted -2"},
		{"modified file", "line1\nline2\nline3", "line1\nmodified\nline3\nline4", "Modified +2 -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Compute("test.txt", tt.oldContent, tt.newContent)
			if got := d.Summary(); got != tt.expected {
				t.Errorf("Expected summary %q, got %q", tt.expected, got)
			}
		})
	}
}

// =============================================================================
// TYPE TESTS
// =============================================================================

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindContext, "context"},
		{KindAdded, "added"},
		{KindRemoved, "removed"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func TestKind_Prefix(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindContext, " "},
		{KindAdded, "+"},
		{KindRemoved, "-"},
	}

	for _, tt := range tests {
		if got := tt.kind.Prefix(); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}

func TestMode_String(t *testing.T) {
	tests := []struct {
		mode     Mode
		expected string
	}{
		{ModeModified, "modified"},
		{ModeCreated, "created"},
		{ModeDeleted, "deleted"},
	}

	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}
