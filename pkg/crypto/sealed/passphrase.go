// Package sealed provides authenticated encryption for export archives.
package sealed

import (
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for passphrase key derivation.
const (
	deriveTime    = 1
	deriveMemory  = 64 * 1024 // KiB
	deriveThreads = 4
	saltSize      = 16
)

// SealWithPassphrase encrypts plaintext with a key derived from the
// passphrase. The random salt is prepended to the output so that
// OpenWithPassphrase can re-derive the key.
func SealWithPassphrase(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	cipher, err := New(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	sealed, err := cipher.Encrypt(plaintext, salt)
	if err != nil {
		return nil, err
	}

	return append(salt, sealed...), nil
}

// OpenWithPassphrase decrypts data produced by SealWithPassphrase.
func OpenWithPassphrase(data []byte, passphrase string) ([]byte, error) {
	if len(data) < saltSize {
		return nil, errors.New("sealed data too short")
	}

	salt := data[:saltSize]
	cipher, err := New(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	return cipher.Decrypt(data[saltSize:], salt)
}

// deriveKey derives a 32-byte key from a passphrase using Argon2id.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, deriveTime, deriveMemory, deriveThreads, KeySize)
}
