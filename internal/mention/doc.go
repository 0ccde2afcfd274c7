// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mention parses @path file mentions in chat text.
//
// A word starting with @ names a file to include with the message:
//
//	summarize @src/main.go briefly
//	compare @"old name.go" with @new.go
//
// The conversation stores the line exactly as typed; only the outgoing
// request carries the expansion, with each file wrapped in a
// <file path="..."> block inside <context>. Files over the size cap or
// missing from disk surface as per-mention errors so the front end can
// warn and fall back to sending the original text.
//
// # Key Types
//
//   - Mention: one parsed @path reference with its resolved content
//   - Resolver: reads mentioned files with size and line caps
//   - Expander: turns a chat line into request text with context inlined
//   - ExpansionResult: original, clean, and expanded forms plus errors
package mention
