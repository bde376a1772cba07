// Package service implements the ClubMesh manager.
//
// This file contains the export/import operations.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
	"github.com/yndnr/clubmesh-go/pkg/crypto/sealed"
)

// ArchiveVersion is the current archive format version.
const ArchiveVersion = 1

// Archive is the portable snapshot produced by Export.
//
// Token secrets never leave the process: each token descriptor carries
// the SHA-256 fingerprint of its ID instead of the ID itself. A
// restored deployment must re-issue tokens; the follow graph round-
// trips intact.
type Archive struct {
	Version       int                    `json:"version"`
	ExportedAt    time.Time              `json:"exported_at"`
	Tokens        []*ArchivedToken       `json:"tokens"`
	Relationships []*domain.Relationship `json:"relationships"`
}

// ArchivedToken is a token descriptor without the secret.
type ArchivedToken struct {
	Fingerprint string         `json:"fingerprint"`
	PrincipalID string         `json:"user_id"`
	ResourceID  string         `json:"clubhouse_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IssuedAt    time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	LastUsedAt  time.Time      `json:"last_used"`
}

// Export snapshots the live tokens (fingerprinted) and every
// relationship row, inactive included.
func (m *Manager) Export(ctx context.Context) (*Archive, error) {
	now := m.clock.Now()

	tokens, err := m.store.LoadTokens(ctx, now)
	if err != nil {
		return nil, err
	}
	edges, err := m.store.LoadRelationships(ctx)
	if err != nil {
		return nil, err
	}

	archive := &Archive{
		Version:       ArchiveVersion,
		ExportedAt:    now,
		Tokens:        make([]*ArchivedToken, 0, len(tokens)),
		Relationships: edges,
	}
	for _, token := range tokens {
		archive.Tokens = append(archive.Tokens, &ArchivedToken{
			Fingerprint: token.Fingerprint(),
			PrincipalID: token.PrincipalID,
			ResourceID:  token.ResourceID,
			Metadata:    token.Metadata,
			IssuedAt:    token.IssuedAt,
			ExpiresAt:   token.ExpiresAt,
			LastUsedAt:  token.LastUsedAt,
		})
	}

	return archive, nil
}

// Import loads an archive's relationships into the store. Token
// descriptors carry fingerprints, not secrets, so they cannot be
// restored; each is skipped with a warning and must be re-issued.
func (m *Manager) Import(ctx context.Context, archive *Archive) error {
	if archive == nil || archive.Version != ArchiveVersion {
		return domain.ErrArchiveInvalid.WithDetails("unsupported archive version")
	}

	for _, token := range archive.Tokens {
		m.log.Warn("skipping archived token, re-issue required",
			"fingerprint", token.Fingerprint,
			"principal", token.PrincipalID,
		)
	}

	for _, edge := range archive.Relationships {
		if err := edge.Validate(); err != nil {
			return domain.ErrArchiveInvalid.WithCause(err)
		}
		if err := m.store.PutRelationship(ctx, edge); err != nil {
			return err
		}
	}

	// Rebuild the cache so the imported graph is immediately visible.
	tokens, err := m.store.LoadTokens(ctx, m.clock.Now())
	if err != nil {
		return err
	}
	edges, err := m.store.LoadRelationships(ctx)
	if err != nil {
		return err
	}
	m.cache.Load(tokens, edges)
	m.syncGauges()

	m.log.Info("archive imported", "relationships", len(archive.Relationships))

	return nil
}

// ============================================================================
// Sealed Archives
// ============================================================================

// ExportSealed exports an archive as JSON encrypted with a key derived
// from the passphrase.
func (m *Manager) ExportSealed(ctx context.Context, passphrase string) ([]byte, error) {
	archive, err := m.Export(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(archive)
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	return sealed.SealWithPassphrase(data, passphrase)
}

// ImportSealed decrypts and imports a sealed archive.
func (m *Manager) ImportSealed(ctx context.Context, data []byte, passphrase string) error {
	plaintext, err := sealed.OpenWithPassphrase(data, passphrase)
	if err != nil {
		return domain.ErrArchiveInvalid.WithDetails("cannot open sealed archive").WithCause(err)
	}
	var archive Archive
	if err := json.Unmarshal(plaintext, &archive); err != nil {
		return domain.ErrArchiveInvalid.WithCause(err)
	}
	return m.Import(ctx, &archive)
}
