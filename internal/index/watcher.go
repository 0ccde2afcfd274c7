// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides the SQLite search index over saved transcripts.
package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// FILE WATCHER INTERFACE
// =============================================================================

// FileWatcher is the interface for file watching implementations
type FileWatcher interface {
	// Watch starts watching for transcript changes
	Watch() error

	// Close stops watching and releases resources
	Close() error
}

// transcriptID extracts the transcript ID from a file path, or ""
// for files the index does not track (the salt file, temp files).
func transcriptID(path string) string {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".json") {
		return ""
	}
	return strings.TrimSuffix(name, ".json")
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// FsnotifyWatcher implements FileWatcher using fsnotify. The transcript
// directory is flat, so a single watch covers it.
type FsnotifyWatcher struct {
	idx      *TranscriptIndex
	watcher  *fsnotify.Watcher
	debounce time.Duration
	mu       sync.Mutex
	pending  map[string]time.Time // transcript ID -> last change time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewFsnotifyWatcher creates a new fsnotify-based watcher
func NewFsnotifyWatcher(idx *TranscriptIndex, debounce time.Duration) (*FsnotifyWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FsnotifyWatcher{
		idx:      idx,
		watcher:  watcher,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}

	return fw, nil
}

// Watch starts watching the transcript directory
func (fw *FsnotifyWatcher) Watch() error {
	if err := fw.watcher.Add(fw.idx.store.BaseDir); err != nil {
		return err
	}

	go fw.processEvents()
	go fw.processPending()

	return nil
}

// processEvents processes file system events
func (fw *FsnotifyWatcher) processEvents() {
	defer func() {
		// A panic here must not take down the session
		recover()
	}()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			id := transcriptID(event.Name)
			if id == "" {
				continue
			}

			// Atomic saves surface as Create (rename over the target);
			// debounce both with direct writes
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				fw.mu.Lock()
				fw.pending[id] = time.Now()
				fw.mu.Unlock()
			}

			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				fw.idx.Remove(id)
			}

		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next rebuild catches up
		}
	}
}

// processPending reindexes pending transcripts once their changes settle
func (fw *FsnotifyWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			fw.mu.Lock()
			var toProcess []string
			for id, changeTime := range fw.pending {
				if now.Sub(changeTime) >= fw.debounce {
					toProcess = append(toProcess, id)
					delete(fw.pending, id)
				}
			}
			fw.mu.Unlock()

			for _, id := range toProcess {
				fw.idx.Update(id)
			}
		}
	}
}

// Close stops watching and releases resources
func (fw *FsnotifyWatcher) Close() error {
	fw.cancel()
	if fw.watcher != nil {
		return fw.watcher.Close()
	}
	return nil
}

// =============================================================================
// POLLING WATCHER (FALLBACK)
// =============================================================================

// PollingWatcher implements FileWatcher using periodic directory scans,
// for filesystems where fsnotify does not work (network mounts).
type PollingWatcher struct {
	idx      *TranscriptIndex
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	files    map[string]time.Time // transcript ID -> mod time
	mu       sync.Mutex
}

// NewPollingWatcher creates a new polling-based watcher
func NewPollingWatcher(idx *TranscriptIndex, interval time.Duration) *PollingWatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &PollingWatcher{
		idx:      idx,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		files:    make(map[string]time.Time),
	}
}

// Watch starts watching for transcript changes
func (pw *PollingWatcher) Watch() error {
	if err := pw.scan(); err != nil {
		return err
	}

	go pw.poll()

	return nil
}

// scan records the current transcripts and their modification times
func (pw *PollingWatcher) scan() error {
	entries, err := os.ReadDir(pw.idx.store.BaseDir)
	if err != nil {
		return err
	}

	newFiles := make(map[string]time.Time)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := transcriptID(entry.Name())
		if id == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		newFiles[id] = info.ModTime()
	}

	pw.mu.Lock()
	pw.files = newFiles
	pw.mu.Unlock()

	return nil
}

// poll periodically checks for transcript changes
func (pw *PollingWatcher) poll() {
	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pw.ctx.Done():
			return

		case <-ticker.C:
			pw.checkChanges()
		}
	}
}

// checkChanges diffs the directory against the last scan
func (pw *PollingWatcher) checkChanges() {
	pw.mu.Lock()
	oldFiles := make(map[string]time.Time, len(pw.files))
	for id, modTime := range pw.files {
		oldFiles[id] = modTime
	}
	pw.mu.Unlock()

	if err := pw.scan(); err != nil {
		return
	}

	pw.mu.Lock()
	currentFiles := make(map[string]time.Time, len(pw.files))
	for id, modTime := range pw.files {
		currentFiles[id] = modTime
	}
	pw.mu.Unlock()

	for id, modTime := range currentFiles {
		if oldTime, exists := oldFiles[id]; !exists || !oldTime.Equal(modTime) {
			pw.idx.Update(id)
		}
	}

	for id := range oldFiles {
		if _, exists := currentFiles[id]; !exists {
			pw.idx.Remove(id)
		}
	}
}

// Close stops watching
func (pw *PollingWatcher) Close() error {
	pw.cancel()
	return nil
}

// =============================================================================
// WATCHER FACTORY
// =============================================================================

// startWatcher starts the file watcher (fsnotify or polling fallback)
func (idx *TranscriptIndex) startWatcher() error {
	fw, err := NewFsnotifyWatcher(idx, idx.config.WatchDebounce)
	if err == nil {
		if err := fw.Watch(); err == nil {
			idx.watcher = fw
			return nil
		}
		fw.Close()
	}

	pw := NewPollingWatcher(idx, 5*time.Second)
	if err := pw.Watch(); err != nil {
		return err
	}

	idx.watcher = pw
	return nil
}
