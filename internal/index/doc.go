// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides the SQLite search index over saved transcripts.
//
// The index mirrors the transcript store into a small database so
// /search can scan every conversation's content without opening each
// JSON file. Matching is plain LIKE, ranked by conversation recency,
// one result per conversation with a snippet from its earliest
// matching turn.
//
// # Key Types
//
//   - TranscriptIndex: SQLite-backed index over a storage.Store
//   - SearchResult: One matching conversation with snippet and rank key
//   - FileWatcher: Keeps the index fresh while a session runs
//
// # Usage
//
// Open and populate the index:
//
//	idx, err := index.New(store, nil)
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//	err = idx.Rebuild(ctx)
//
// Search:
//
//	results, err := idx.Search("kubernetes", nil)
//	for _, r := range results {
//	    fmt.Printf("%s  %s\n", r.Title, r.Snippet)
//	}
//
// Rebuild starts a directory watcher (fsnotify, with a polling
// fallback) so saves and deletes from the running session land in the
// index without another rebuild.
package index
