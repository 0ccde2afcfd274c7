// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversation transcripts as JSON files.
package storage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jordanhubbard/ollama-cli/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// keySize is the AES-256 key size in bytes
	keySize = 32

	// nonceSize is the AES-GCM nonce size (96 bits)
	nonceSize = 12

	// saltSize is the PBKDF2 salt size
	saltSize = 32

	// pbkdf2Iterations follows the OWASP recommendation for PBKDF2-SHA-256
	pbkdf2Iterations = 600000

	// encryptedPrefix marks an encrypted file: enc:base64(nonce|ciphertext|tag)
	encryptedPrefix = "enc:"

	// saltFileName sits beside the transcripts; one salt per store so
	// the key is derived once per process, not once per file
	saltFileName = ".salt"
)

// ErrBadPassphrase is returned when decryption fails authentication,
// which almost always means the passphrase is wrong.
var ErrBadPassphrase = errors.New("decryption failed: wrong passphrase or corrupted file")

// =============================================================================
// CIPHER
// =============================================================================

// Cipher seals and opens transcript files with AES-256-GCM using a
// passphrase-derived key.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a key from the passphrase and salt with
// PBKDF2-SHA-256 and prepares the AEAD.
func NewCipher(passphrase string, salt []byte) (*Cipher, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	if len(salt) != saltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", saltSize, len(salt))
	}

	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext into the enc: envelope.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an enc: envelope.
func (c *Cipher) Decrypt(envelope string) ([]byte, error) {
	if !strings.HasPrefix(envelope, encryptedPrefix) {
		return nil, errors.New("not an encrypted envelope")
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(strings.TrimPrefix(envelope, encryptedPrefix)))
	if err != nil {
		return nil, fmt.Errorf("invalid envelope encoding: %w", err)
	}
	if len(sealed) < nonceSize {
		return nil, errors.New("envelope too short")
	}

	plaintext, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, ErrBadPassphrase
	}
	return plaintext, nil
}

// IsEncrypted reports whether file content is an enc: envelope.
func IsEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, []byte(encryptedPrefix))
}

// =============================================================================
// STORE WIRING
// =============================================================================

// EnableEncryption turns on encryption at rest for this store. The
// first call creates a random salt beside the transcripts; later calls
// reuse it, so the same passphrase always derives the same key.
// Existing plaintext files stay readable and are re-encrypted on their
// next save.
func (s *Store) EnableEncryption(passphrase string) error {
	salt, err := s.loadOrCreateSalt()
	if err != nil {
		return err
	}

	c, err := NewCipher(passphrase, salt)
	if err != nil {
		return err
	}

	s.cipher = c
	return nil
}

// loadOrCreateSalt reads the store's salt file, creating it on first use.
func (s *Store) loadOrCreateSalt() ([]byte, error) {
	saltPath := filepath.Join(s.BaseDir, saltFileName)

	salt, err := os.ReadFile(saltPath)
	if err == nil {
		if len(salt) != saltSize {
			return nil, fmt.Errorf("salt file %s is corrupted", saltPath)
		}
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	salt = make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := util.AtomicWriteFile(saltPath, salt, 0600); err != nil {
		return nil, fmt.Errorf("save salt: %w", err)
	}
	return salt, nil
}
