// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diff computes line diffs for /modify and /write previews.
//
// Before a generated file is written to disk, the front end shows the
// user what would change. Compute produces hunks with three lines of
// context in the usual unified layout; rendering and coloring belong
// to the caller.
//
//	d := diff.Compute("main.go", oldContent, newContent)
//	if !d.Changed() {
//		// model returned identical content
//	}
//	fmt.Println(d.Summary())
//	fmt.Println(d.Unified())
//
// # Key Types
//
//   - FileDiff: one file's hunks, stats, and mode (created, modified, deleted)
//   - Hunk: a run of changes with context and unified header counts
//   - Line: a single line with Kind and 1-based line numbers
package diff
