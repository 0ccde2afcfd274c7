// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks session identity, idle timeout, and autosave state.
//
// Each interactive session gets a UUID, an activity clock, and a dirty
// flag. The manager watches idle time against a configurable timeout,
// warns shortly before expiry, and fires a save callback when the
// conversation has been dirty longer than the autosave interval.
//
// # Key Types
//
//   - Manager: Session state behind a mutex, safe for the REPL's
//     background goroutine and the TUI's update loop
//   - Config: Idle timeout, warning lead time, and autosave cadence
//   - Status: Point-in-time snapshot for the /status command
//
// # Usage
//
// Create a manager and start the background loop:
//
//	mgr := session.NewManager(session.DefaultConfig())
//	mgr.SetAutoSaveCallback(saveConversation)
//	go mgr.Run(ctx, time.Second)
//
// Record activity on every prompt read:
//
//	mgr.RecordActivity()
//	mgr.MarkDirty()
//
// An IdleTimeout of zero disables expiry entirely; autosave keeps
// running as long as the conversation is dirty.
//
// The Bubble Tea messages (TickMsg, TimeoutWarningMsg, TimeoutMsg,
// AutoSaveMsg) and HandleTick drive the same manager from the TUI.
package session
