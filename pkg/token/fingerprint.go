// Package token provides random token generation and fingerprinting.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Fingerprint computes the SHA-256 fingerprint of a token.
//
// Fingerprints stand in for token secrets in exports and logs; the
// secret itself cannot be recovered from them.
func Fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Verify checks a token against an expected fingerprint.
//
// Uses constant-time comparison to prevent timing attacks.
func Verify(token, expected string) bool {
	actual := Fingerprint(token)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}
