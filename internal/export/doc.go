// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders saved transcripts to files for use outside
// the CLI.
//
// Two formats are supported. Markdown produces a human-readable
// document with YAML frontmatter, per-turn headings, and generation
// statistics. JSON produces the exact stored transcript shape, so an
// exported file can be re-imported by dropping it into the
// conversation directory.
//
// # Key Types
//
//   - Exporter: Renders one transcript in one format
//   - Options: Metadata and output path configuration
//
// # Usage
//
// Export a transcript with a generated filename:
//
//	exporter, err := export.ForFormat("markdown", nil)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(tr, exporter, nil)
//
// Titles are sanitized for the filesystem, and YAML values are escaped
// so transcript content cannot break the frontmatter.
package export
