// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversation transcripts as JSON files.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jordanhubbard/ollama-cli/internal/conversation"
	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the on-disk form of one conversation.
type Transcript struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Turns []conversation.Turn `json:"turns"`
}

// Snapshot captures a live conversation as a transcript ready to save.
// The turn slice is already a copy, so later appends to the
// conversation do not leak into a transcript being written.
func Snapshot(c *conversation.Conversation) *Transcript {
	return &Transcript{
		ID:        c.ID(),
		Title:     c.Title(),
		Model:     c.Model(),
		CreatedAt: c.CreatedAt(),
		Turns:     c.Turns(),
	}
}

// Preview returns a one-line preview from the first user turn.
func (t *Transcript) Preview() string {
	for _, turn := range t.Turns {
		if turn.Role == conversation.RoleUser && turn.Content != "" {
			return turn.Preview(80)
		}
	}
	return ""
}

// Meta is the listing view of a transcript, cheap enough to show in
// tables and completions without carrying the full turn history.
type Meta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
	Preview   string    `json:"preview"`
}

// =============================================================================
// ERRORS
// =============================================================================

// TranscriptError is a storage-level failure tied to a transcript.
type TranscriptError struct {
	Message string
}

func (e *TranscriptError) Error() string {
	return e.Message
}

// Is supports errors.Is against the sentinel values below.
func (e *TranscriptError) Is(target error) bool {
	t, ok := target.(*TranscriptError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

var (
	// ErrNotFound is returned when no transcript has the given ID.
	ErrNotFound = &TranscriptError{Message: "transcript not found"}

	// ErrAmbiguousID is returned when an ID prefix matches several transcripts.
	ErrAmbiguousID = &TranscriptError{Message: "transcript id prefix is ambiguous"}

	// ErrEncrypted is returned when a transcript is encrypted and the
	// store has no key to read it with.
	ErrEncrypted = &TranscriptError{Message: "transcript is encrypted and no key is configured"}
)

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes transcripts in one directory, one JSON file
// per conversation.
type Store struct {
	// BaseDir holds the transcript files.
	// Default: ~/.ollama-cli/conversations/
	BaseDir string

	// MaxTranscripts caps stored transcripts (0 = unlimited). When the
	// cap is exceeded the oldest are deleted.
	MaxTranscripts int

	cipher *Cipher
}

// NewStore creates a store in the default location.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStoreWithDir(filepath.Join(homeDir, ".ollama-cli", "conversations"))
}

// NewStoreWithDir creates a store rooted at baseDir.
func NewStoreWithDir(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	return &Store{
		BaseDir:        baseDir,
		MaxTranscripts: 100,
	}, nil
}

// Encrypted reports whether saves are encrypted at rest.
func (s *Store) Encrypted() bool {
	return s.cipher != nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save persists a transcript and returns its ID. A missing ID, title,
// or creation time is filled in here so callers can hand over a bare
// snapshot of the conversation.
func (s *Store) Save(tr *Transcript) (string, error) {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	if tr.Title == "" {
		tr.Title = autoTitle(tr)
	}
	tr.UpdatedAt = time.Now()
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = tr.UpdatedAt
	}

	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return "", err
	}

	if s.cipher != nil {
		envelope, err := s.cipher.Encrypt(data)
		if err != nil {
			return "", fmt.Errorf("encrypt transcript: %w", err)
		}
		data = []byte(envelope)
	}

	if err := util.AtomicWriteFile(s.filePath(tr.ID), data, 0600); err != nil {
		return "", err
	}

	if s.MaxTranscripts > 0 {
		s.enforceLimit()
	}

	return tr.ID, nil
}

// autoTitle derives a title from the first user turn.
func autoTitle(tr *Transcript) string {
	for _, turn := range tr.Turns {
		if turn.Role == conversation.RoleUser && turn.Content != "" {
			return turn.Preview(50)
		}
	}
	return "New conversation"
}

// enforceLimit deletes the oldest transcripts over the cap.
func (s *Store) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxTranscripts {
		return
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.Before(metas[j].UpdatedAt)
	})

	excess := len(metas) - s.MaxTranscripts
	for i := 0; i < excess; i++ {
		s.Delete(metas[i].ID)
	}
}

// =============================================================================
// LOAD
// =============================================================================

// Load retrieves a transcript by exact ID.
func (s *Store) Load(id string) (*Transcript, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if IsEncrypted(data) {
		if s.cipher == nil {
			return nil, ErrEncrypted
		}
		data, err = s.cipher.Decrypt(string(data))
		if err != nil {
			return nil, fmt.Errorf("decrypt transcript %s: %w", id, err)
		}
	}

	var tr Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", id, err)
	}
	return &tr, nil
}

// LoadByIndex loads by position in the newest-first listing (0 = most
// recent), matching the numbering /sessions displays.
func (s *Store) LoadByIndex(index int) (*Transcript, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrNotFound
	}
	return s.Load(metas[index].ID)
}

// Resolve loads by exact ID first, then by unique ID prefix. IDs are
// UUIDs, so the first few characters are what users actually type.
func (s *Store) Resolve(ref string) (*Transcript, error) {
	if tr, err := s.Load(ref); err == nil {
		return tr, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	var match string
	for _, m := range metas {
		if strings.HasPrefix(m.ID, ref) {
			if match != "" {
				return nil, ErrAmbiguousID
			}
			match = m.ID
		}
	}
	if match == "" {
		return nil, ErrNotFound
	}
	return s.Load(match)
}

// =============================================================================
// LIST
// =============================================================================

// List returns metadata for every saved transcript, newest first.
// Unreadable files are skipped rather than failing the listing.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var metas []Meta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		tr, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}

		metas = append(metas, Meta{
			ID:        tr.ID,
			Title:     tr.Title,
			Model:     tr.Model,
			CreatedAt: tr.CreatedAt,
			UpdatedAt: tr.UpdatedAt,
			TurnCount: len(tr.Turns),
			Preview:   tr.Preview(),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})

	return metas, nil
}

// Search returns transcripts whose title or preview contains the query,
// case-insensitive. Full message-content search lives in the index
// package; this is the cheap path used for completions.
func (s *Store) Search(query string) ([]Meta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []Meta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}
	return results, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a transcript by exact ID.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Clear removes every saved transcript.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (s *Store) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}
