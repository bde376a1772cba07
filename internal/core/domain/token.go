// Package domain defines the core domain models for ClubMesh.
package domain

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/yndnr/clubmesh-go/pkg/token"
)

// Token constants.
const (
	// TokenPrefix is the prefix for clubhouse tokens (sensitive, uses underscore).
	TokenPrefix = "cmtk_"

	// TokenBytesLength is the number of random bytes for token generation.
	TokenBytesLength = 32

	// TokenBodyLength is the Base64 RawURL encoded length (32 bytes -> 43 chars).
	TokenBodyLength = 43

	// TokenLength is the total token length (prefix + body).
	TokenLength = 5 + TokenBodyLength // cmtk_ + 43 = 48
)

// Token is an opaque bearer token binding a principal to a clubhouse.
//
// The token ID is the secret: whoever holds it can redeem it. IDs are
// generated with a CSPRNG; legacy UUID-format IDs from older database
// files are accepted by lookups but never generated.
type Token struct {
	// ID is the opaque token value (format: cmtk_...).
	ID string `json:"token"`

	// PrincipalID identifies the user the token was issued to.
	PrincipalID string `json:"user_id"`

	// ResourceID identifies the clubhouse the token grants access to.
	ResourceID string `json:"clubhouse_id"`

	// Metadata is opaque caller-supplied data, stored as JSON.
	Metadata map[string]any `json:"metadata,omitempty"`

	// IssuedAt is the creation timestamp.
	IssuedAt time.Time `json:"created_at"`

	// ExpiresAt is the absolute expiration timestamp.
	ExpiresAt time.Time `json:"expires_at"`

	// LastUsedAt is updated on every successful validation.
	LastUsedAt time.Time `json:"last_used"`
}

// GenerateTokenID generates a cryptographically secure token ID.
//
// IMPORTANT: The token ID is a bearer secret. It is returned to the
// caller once at issuance; log it only through MaskToken.
func GenerateTokenID() (string, error) {
	body, err := token.GenerateWithLength(TokenBytesLength)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return TokenPrefix + body, nil
}

// ValidateTokenFormat checks if a string has valid generated-token format.
// A valid token has:
//   - Prefix: cmtk_
//   - Body: 43 characters of Base64 RawURL encoded data
//   - Total length: 48 characters
func ValidateTokenFormat(id string) bool {
	if len(id) != TokenLength {
		return false
	}
	if !strings.HasPrefix(id, TokenPrefix) {
		return false
	}

	body := id[len(TokenPrefix):]
	_, err := base64.RawURLEncoding.DecodeString(body)
	return err == nil
}

// ValidateLegacyTokenFormat reports whether id is a UUID-format token
// identifier. Databases created before the cmtk_ format hold such
// ids; they are accepted on every lookup path but never generated.
func ValidateLegacyTokenFormat(id string) bool {
	if len(id) != 36 {
		return false
	}
	for i, r := range id {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			if !isHexDigit(r) {
				return false
			}
		}
	}
	return true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// Expired reports whether the token has expired at the given instant.
// A token is valid strictly before its expiry, so it is already
// expired at the exact expiry instant. A zero ExpiresAt means the
// token never expires.
func (t *Token) Expired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// Valid reports whether the token is usable at the given instant.
func (t *Token) Valid(now time.Time) bool {
	return !t.Expired(now)
}

// Touch updates the last-used timestamp.
func (t *Token) Touch(now time.Time) {
	t.LastUsedAt = now
}

// Remaining returns the time left until expiry, or 0 if expired.
func (t *Token) Remaining(now time.Time) time.Duration {
	if t.ExpiresAt.IsZero() {
		return 0
	}
	remaining := t.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Fingerprint returns the SHA-256 fingerprint of the token ID.
// Used in exports, where the secret itself must not appear.
func (t *Token) Fingerprint() string {
	return token.Fingerprint(t.ID)
}

// Clone creates a deep copy of the token.
func (t *Token) Clone() *Token {
	clone := *t
	if t.Metadata != nil {
		clone.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Validate validates the token fields against constraints.
func (t *Token) Validate() error {
	if t.ID == "" {
		return ErrMissingArgument.WithDetails("token id is required")
	}
	if err := ValidatePrincipalID(t.PrincipalID); err != nil {
		return err
	}
	if err := ValidateResourceID(t.ResourceID); err != nil {
		return err
	}
	return nil
}

// MaskToken masks a token for safe logging.
// Example: cmtk_ABC...xyz
func MaskToken(id string) string {
	if len(id) < 10 {
		return "***REDACTED***"
	}
	if strings.HasPrefix(id, TokenPrefix) {
		body := id[len(TokenPrefix):]
		if len(body) > 6 {
			return TokenPrefix + body[:3] + "..." + body[len(body)-3:]
		}
		return TokenPrefix + "***"
	}
	// Legacy UUID-format token: show the first segment only.
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx] + "-..."
	}
	return "***REDACTED***"
}
