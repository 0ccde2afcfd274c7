// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides the SQLite search index over saved transcripts.
package index

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for the transcript search index
const Schema = `
-- Metadata table for schema version and index state
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Conversations table: one row per saved transcript
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,        -- transcript UUID
    title TEXT NOT NULL,
    model TEXT,
    created_at INTEGER NOT NULL, -- Unix nanoseconds, ordering needs sub-second precision
    updated_at INTEGER NOT NULL,
    turn_count INTEGER NOT NULL,
    indexed_at INTEGER NOT NULL  -- Unix seconds
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
CREATE INDEX IF NOT EXISTS idx_conversations_title ON conversations(title);

-- Turns table: message content, one row per turn
CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL,
    position INTEGER NOT NULL,  -- turn order within the conversation
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL, -- Unix nanoseconds
    FOREIGN KEY(conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id);
CREATE INDEX IF NOT EXISTS idx_turns_role ON turns(role);
`

// InitMetadata initializes the metadata table with default values
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
INSERT OR IGNORE INTO metadata (key, value) VALUES ('last_full_index', '0');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('conversations_dir', '');
`
