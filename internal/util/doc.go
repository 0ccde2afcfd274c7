// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for ollama-cli.
//
// This package contains the small cross-cutting pieces the rest of the
// application leans on: crash-safe file writing, UTF-8 aware truncation,
// and compact number/duration formatting for status output.
//
// # Key Functions
//
// File operations:
//   - AtomicWriteFile: temp file + fsync + rename, so transcripts and
//     configuration survive a crash mid-write
//
// String utilities:
//   - TruncateRunes / TruncateRunesNoEllipsis: character-count truncation
//   - TruncateWidth / StringWidth: display-cell truncation for CJK-safe
//     fixed-width layouts
//
// Formatting:
//   - FormatInt, FormatFloat, FormatDuration: stat rendering for the
//     status line and transcript listings
package util
