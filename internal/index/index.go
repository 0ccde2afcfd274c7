// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides the SQLite search index over saved transcripts.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jordanhubbard/ollama-cli/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotIndexed    = errors.New("transcripts not indexed")
	ErrIndexing      = errors.New("indexing in progress")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// TRANSCRIPT INDEX
// =============================================================================

// TranscriptIndex maintains a SQLite search index over the transcripts
// in a store. Rebuild populates it from scratch; a file watcher keeps
// it fresh while a session runs.
type TranscriptIndex struct {
	db      *sql.DB
	store   *storage.Store
	watcher FileWatcher // fsnotify, or polling fallback
	mu      sync.RWMutex

	// Indexing state
	indexing          bool
	indexingMu        sync.Mutex
	lastIndexed       time.Time
	conversationCount int
	turnCount         int

	// Configuration
	config *Config
}

// Config holds index configuration
type Config struct {
	// DatabasePath is where to store the SQLite database.
	// Default: ~/.ollama-cli/index.db
	DatabasePath string

	// EnableWatch keeps the index fresh as transcript files change
	EnableWatch bool

	// WatchDebounce is the debounce duration for file change events
	WatchDebounce time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		EnableWatch:   true,
		WatchDebounce: 500 * time.Millisecond,
	}
}

// New opens the search index for a transcript store, creating the
// database on first use.
func New(store *storage.Store, config *Config) (*TranscriptIndex, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}

	if config.DatabasePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		config.DatabasePath = filepath.Join(home, ".ollama-cli", "index.db")
	}

	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	idx := &TranscriptIndex{
		db:     db,
		store:  store,
		config: config,
	}

	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	// Pick up counts from a previous run. Failure just means empty.
	idx.loadStats()

	return idx, nil
}

// initSchema creates the database schema
func (idx *TranscriptIndex) initSchema() error {
	if _, err := idx.db.Exec(Schema); err != nil {
		return err
	}

	if _, err := idx.db.Exec(InitMetadata); err != nil {
		return err
	}

	_, err := idx.db.Exec("UPDATE metadata SET value = ? WHERE key = 'conversations_dir'", idx.store.BaseDir)
	return err
}

// Close closes the index and releases resources
func (idx *TranscriptIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.watcher != nil {
		idx.watcher.Close()
		idx.watcher = nil
	}

	if idx.db != nil {
		return idx.db.Close()
	}

	return nil
}

// =============================================================================
// INDEXING
// =============================================================================

// Rebuild reindexes every transcript in the store from scratch and,
// when watching is enabled, starts the directory watcher.
func (idx *TranscriptIndex) Rebuild(ctx context.Context) error {
	idx.indexingMu.Lock()
	if idx.indexing {
		idx.indexingMu.Unlock()
		return ErrIndexing
	}
	idx.indexing = true
	idx.indexingMu.Unlock()

	defer func() {
		idx.indexingMu.Lock()
		idx.indexing = false
		idx.indexingMu.Unlock()
	}()

	startTime := time.Now()

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM turns"); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM conversations"); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}

	metas, err := idx.store.List()
	if err != nil {
		return fmt.Errorf("list transcripts: %w", err)
	}

	var conversationCount, turnCount int
	for _, meta := range metas {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tr, err := idx.store.Load(meta.ID)
		if err != nil {
			// Unreadable transcript, skip it
			continue
		}

		if err := indexTranscript(tx, tr); err != nil {
			continue
		}

		conversationCount++
		turnCount += len(tr.Turns)
	}

	now := time.Now().Unix()
	if _, err := tx.Exec("UPDATE metadata SET value = ? WHERE key = 'last_full_index'", now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	idx.mu.Lock()
	idx.lastIndexed = startTime
	idx.conversationCount = conversationCount
	idx.turnCount = turnCount
	idx.mu.Unlock()

	if idx.config.EnableWatch && idx.watcher == nil {
		// A watcher failure is non-fatal; search still works from this
		// rebuild, just without incremental freshness.
		_ = idx.startWatcher()
	}

	return nil
}

// Update reindexes one transcript by ID. Used by the watcher when a
// transcript file changes; a load failure removes the stale entry.
func (idx *TranscriptIndex) Update(id string) error {
	tr, err := idx.store.Load(id)
	if err != nil {
		return idx.Remove(id)
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if err := indexTranscript(tx, tr); err != nil {
		return err
	}

	return tx.Commit()
}

// Remove deletes a transcript from the index. Turn rows cascade.
func (idx *TranscriptIndex) Remove(id string) error {
	_, err := idx.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	return err
}

// indexTranscript writes one transcript's rows inside a transaction.
// Safe for both fresh inserts and reindexing an existing ID.
func indexTranscript(tx *sql.Tx, tr *storage.Transcript) error {
	if _, err := tx.Exec("DELETE FROM turns WHERE conversation_id = ?", tr.ID); err != nil {
		return err
	}

	_, err := tx.Exec(`
		INSERT OR REPLACE INTO conversations (id, title, model, created_at, updated_at, turn_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tr.ID, tr.Title, tr.Model, tr.CreatedAt.UnixNano(), tr.UpdatedAt.UnixNano(), len(tr.Turns), time.Now().Unix())
	if err != nil {
		return err
	}

	for i, turn := range tr.Turns {
		_, err := tx.Exec(`
			INSERT INTO turns (conversation_id, position, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, tr.ID, i, string(turn.Role), turn.Content, turn.Timestamp.UnixNano())
		if err != nil {
			return err
		}
	}

	return nil
}

// loadStats loads statistics from the database
func (idx *TranscriptIndex) loadStats() error {
	var lastIndexed int64
	err := idx.db.QueryRow("SELECT value FROM metadata WHERE key = 'last_full_index'").Scan(&lastIndexed)
	if err != nil {
		return err
	}

	if lastIndexed > 0 {
		idx.lastIndexed = time.Unix(lastIndexed, 0)
	}

	if err := idx.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&idx.conversationCount); err != nil {
		return err
	}

	return idx.db.QueryRow("SELECT COUNT(*) FROM turns").Scan(&idx.turnCount)
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats holds index statistics
type Stats struct {
	ConversationCount int
	TurnCount         int
	LastIndexed       time.Time
	IsIndexing        bool
	DatabaseSize      int64
}

// Stats returns current index statistics
func (idx *TranscriptIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.indexingMu.Lock()
	indexing := idx.indexing
	idx.indexingMu.Unlock()

	var dbSize int64
	if info, err := os.Stat(idx.config.DatabasePath); err == nil {
		dbSize = info.Size()
	}

	return Stats{
		ConversationCount: idx.conversationCount,
		TurnCount:         idx.turnCount,
		LastIndexed:       idx.lastIndexed,
		IsIndexing:        indexing,
		DatabaseSize:      dbSize,
	}
}

// IsIndexed returns true if a full rebuild has run at some point
func (idx *TranscriptIndex) IsIndexed() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return !idx.lastIndexed.IsZero()
}
