// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff_test

import (
	"fmt"

	"github.com/jordanhubbard/ollama-cli/internal/diff"
)

func ExampleCompute() {
	oldContent := "package main\n\nfunc main() {\n\tfmt.Println(\"Hello\")\n}\n"
	newContent := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"Hello, World!\")\n}\n"

	d := diff.Compute("main.go", oldContent, newContent)
	fmt.Println(d.Summary())

	// Output:
	// Modified +3 -1
}

func ExampleFileDiff_Unified() {
	d := diff.Compute("file.txt", "line1\nline2\nline3", "line1\nmodified\nline3")
	fmt.Println(d.Unified())

	// Output:
	// --- a/file.txt
	// +++ b/file.txt
	// @@ -1,3 +1,3 @@
	//  line1
	// -line2
	// +modified
	//  line3
}

func ExampleFileDiff_Summary_newFile() {
	d := diff.Compute("newfile.txt", "", "line1\nline2")

	fmt.Println(d.Summary())
	fmt.Println("Mode:", d.Mode)

	// Output:
	// New file +2
	// Mode: created
}

func ExampleFileDiff_Summary_deletedFile() {
	d := diff.Compute("oldfile.txt", "line1\nline2", "")

	fmt.Println(d.Summary())
	fmt.Println("Mode:", d.Mode)

	// Output:
	// File deleted -2
	// Mode: deleted
}

func ExampleFileDiff_Hunks() {
	oldContent := "line1\nline2\nline3\nline4\nline5"
	newContent := "line1\nmodified2\nline3\nmodified4\nline5"

	d := diff.Compute("file.txt", oldContent, newContent)
	for i, h := range d.Hunks {
		fmt.Printf("Hunk %d: @@ -%d,%d +%d,%d @@\n",
			i+1, h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	}

	// Output:
	// Hunk 1: @@ -1,5 +1,5 @@
}

func ExampleKind_Prefix() {
	fmt.Println("Added:", diff.KindAdded.Prefix())
	fmt.Println("Removed:", diff.KindRemoved.Prefix())
	fmt.Println("Context:", diff.KindContext.Prefix())

	// Output:
	// Added: +
	// Removed: -
	// Context:
}
