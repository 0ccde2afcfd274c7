// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversation transcripts as JSON files.
//
// Each saved conversation is one pretty-printed JSON file named by its
// UUID under the store directory (default ~/.ollama-cli/conversations).
// Writes are atomic (temp file, fsync, rename) so a crash never leaves
// a half-written transcript. Listings are newest first; the store caps
// the number of transcripts and deletes the oldest past the cap.
//
// Encryption at rest is optional. EnableEncryption derives an
// AES-256-GCM key from a passphrase with PBKDF2-SHA-256 (the salt
// lives beside the transcripts) and wraps each file in an enc: base64
// envelope. Loads are transparent either way: plaintext files written
// before encryption was enabled keep loading, and re-encrypt on their
// next save.
//
// # Key Types
//
//   - Store: save, load, resolve, list, search, delete
//   - Transcript: the on-disk conversation form
//   - Meta: listing view without the turn history
//   - Cipher: the enc: envelope codec
package storage
