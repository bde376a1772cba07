// Package service implements the ClubMesh manager.
//
// This file contains the token lifecycle operations: generate,
// validate, revoke, and sweep.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
	"github.com/yndnr/clubmesh-go/internal/core/event"
)

// maxGenerateAttempts bounds ID regeneration on collision. With 256
// bits of entropy a second collision in a row indicates a broken
// random source, not bad luck.
const maxGenerateAttempts = 5

// ============================================================================
// Token Generate Operation
// ============================================================================

// GenerateTokenRequest contains parameters for token generation.
type GenerateTokenRequest struct {
	PrincipalID string         // Required
	ResourceID  string         // Required
	TTL         time.Duration  // Required, >= 0; zero issues an already-expired token
	Metadata    map[string]any // Optional
}

// GenerateTokenResponse contains the result of token generation.
type GenerateTokenResponse struct {
	Token *domain.Token // The full token, including the secret ID
}

// GenerateToken issues a new token binding a principal to a resource.
//
// The secret ID is returned exactly once, here. Persist-then-cache:
// the durable row exists before the token is ever visible to lookups.
func (m *Manager) GenerateToken(ctx context.Context, req *GenerateTokenRequest) (*GenerateTokenResponse, error) {
	start := m.clock.Now()
	defer m.observe("generate_token", start)

	// 1. Validate arguments
	if err := domain.ValidatePrincipalID(req.PrincipalID); err != nil {
		return nil, err
	}
	if err := domain.ValidateResourceID(req.ResourceID); err != nil {
		return nil, err
	}
	if req.TTL < 0 {
		return nil, domain.ErrInvalidTTL.WithDetails("ttl must not be negative")
	}

	// 2. Per-principal issuance rate limiting
	if m.issueRate > 0 {
		limiter := m.limiters.GetOrCreate(req.PrincipalID, m.issueRate)
		if !limiter.Allow() {
			return nil, domain.ErrRateLimited.WithDetails(
				fmt.Sprintf("principal %s exceeded %d tokens/s", req.PrincipalID, m.issueRate),
			)
		}
	}

	// 3. Build the token
	now := m.clock.Now()
	token := &domain.Token{
		PrincipalID: req.PrincipalID,
		ResourceID:  req.ResourceID,
		Metadata:    req.Metadata,
		IssuedAt:    now,
		ExpiresAt:   now.Add(req.TTL),
		LastUsedAt:  now,
	}

	// 4. Generate the ID and persist, regenerating on collision
	for attempt := 0; ; attempt++ {
		id, err := domain.GenerateTokenID()
		if err != nil {
			return nil, domain.ErrInternal.WithCause(err)
		}
		token.ID = id

		if _, exists := m.cache.Token(id); exists {
			continue
		}

		unlock := m.locks.Lock(id)
		err = m.store.PutToken(ctx, token)
		if err == nil {
			m.cache.PutToken(token)
			unlock()
			break
		}
		unlock()

		if errors.Is(err, domain.ErrTokenCollision) && attempt < maxGenerateAttempts-1 {
			continue
		}
		return nil, err
	}

	if m.metrics != nil {
		m.metrics.TokensIssued.Inc()
	}
	m.syncGauges()

	m.log.Info("token issued",
		"token", domain.MaskToken(token.ID),
		"principal", token.PrincipalID,
		"resource", token.ResourceID,
		"expires_at", token.ExpiresAt,
	)

	m.publish(event.TokenCreated, map[string]any{
		"token":        domain.MaskToken(token.ID),
		"principal_id": token.PrincipalID,
		"resource_id":  token.ResourceID,
		"expires_at":   token.ExpiresAt,
	})

	return &GenerateTokenResponse{Token: token.Clone()}, nil
}

// ============================================================================
// Token Validate Operation
// ============================================================================

// ValidateTokenRequest contains parameters for token validation.
type ValidateTokenRequest struct {
	Token string // The token ID presented by the caller
}

// ValidateTokenResponse contains the result of token validation.
type ValidateTokenResponse struct {
	Valid bool          // Whether the token is valid
	Token *domain.Token // The token (only if Valid=true), with last_used updated
}

// ValidateToken checks a token and touches its last_used timestamp.
//
// An expired token is removed on the spot (durable delete, then cache
// remove) so a single call settles its fate. Validation is therefore
// never a pure read.
func (m *Manager) ValidateToken(ctx context.Context, req *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	start := m.clock.Now()
	defer m.observe("validate_token", start)

	// 1. Validate token format. Lookups also accept legacy UUID ids
	// from databases that predate the cmtk_ format.
	if !domain.ValidateTokenFormat(req.Token) && !domain.ValidateLegacyTokenFormat(req.Token) {
		m.countValidate("malformed")
		return &ValidateTokenResponse{Valid: false}, domain.ErrTokenMalformed
	}

	unlock := m.locks.Lock(req.Token)
	defer unlock()

	// 2. Cache lookup
	token, ok := m.cache.Token(req.Token)
	if !ok {
		m.countValidate("not_found")
		return &ValidateTokenResponse{Valid: false}, domain.ErrTokenNotFound
	}

	// 3. Lazy expiry: remove and report absent
	now := m.clock.Now()
	if token.Expired(now) {
		if _, err := m.store.DeleteToken(ctx, token.ID); err != nil {
			return nil, err
		}
		m.cache.RemoveToken(token.ID)
		m.syncGauges()
		m.countValidate("expired")

		m.log.Debug("token lazily expired", "token", domain.MaskToken(token.ID))

		return &ValidateTokenResponse{Valid: false}, domain.ErrTokenExpired
	}

	// 4. Touch last_used, durable then cache
	if err := m.store.TouchToken(ctx, token.ID, now); err != nil {
		return nil, err
	}
	m.cache.TouchToken(token.ID, now)
	token.Touch(now)

	m.countValidate("valid")

	m.publish(event.TokenUsed, map[string]any{
		"token":        domain.MaskToken(token.ID),
		"principal_id": token.PrincipalID,
		"resource_id":  token.ResourceID,
	})

	return &ValidateTokenResponse{Valid: true, Token: token}, nil
}

func (m *Manager) countValidate(result string) {
	if m.metrics != nil {
		m.metrics.TokenValidates.WithLabelValues(result).Inc()
	}
}

// ============================================================================
// Token Revoke Operations
// ============================================================================

// RevokeToken deletes a token. Returns ErrTokenNotFound if no such
// token exists in either the durable store or the cache.
func (m *Manager) RevokeToken(ctx context.Context, id string) error {
	start := m.clock.Now()
	defer m.observe("revoke_token", start)

	if !domain.ValidateTokenFormat(id) && !domain.ValidateLegacyTokenFormat(id) {
		return domain.ErrTokenMalformed
	}

	unlock := m.locks.Lock(id)
	defer unlock()

	deleted, err := m.store.DeleteToken(ctx, id)
	if err != nil {
		return err
	}
	_, cached := m.cache.RemoveToken(id)
	if !deleted && !cached {
		return domain.ErrTokenNotFound
	}

	if m.metrics != nil {
		m.metrics.TokensRevoked.Inc()
	}
	m.syncGauges()

	m.log.Info("token revoked", "token", domain.MaskToken(id))

	return nil
}

// RevokeAllForPrincipal deletes every token issued to the principal.
// Returns the number of durable rows deleted (expired uncached rows
// included).
func (m *Manager) RevokeAllForPrincipal(ctx context.Context, principal string) (int, error) {
	start := m.clock.Now()
	defer m.observe("revoke_all", start)

	if err := domain.ValidatePrincipalID(principal); err != nil {
		return 0, err
	}

	deleted, err := m.store.DeleteTokensByPrincipal(ctx, principal)
	if err != nil {
		return 0, err
	}
	m.cache.RemoveTokensByPrincipal(principal)

	if m.metrics != nil {
		m.metrics.TokensRevoked.Add(float64(deleted))
	}
	m.syncGauges()

	m.log.Info("tokens revoked for principal", "principal", principal, "count", deleted)

	return deleted, nil
}

// ============================================================================
// Token Sweep Operation
// ============================================================================

// SweepExpired removes every expired token, durable rows first. The
// end state matches what per-token lazy expiry would have produced.
// Returns the number of durable rows deleted.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	start := m.clock.Now()
	defer m.observe("sweep_expired", start)

	now := m.clock.Now()

	deleted, err := m.store.DeleteExpiredTokens(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, id := range m.cache.ExpiredTokenIDs(now) {
		m.cache.RemoveToken(id)
	}

	if m.metrics != nil {
		m.metrics.TokensSwept.Add(float64(deleted))
	}
	m.syncGauges()

	if deleted > 0 {
		m.log.Info("expired tokens swept", "count", deleted)
	}

	return deleted, nil
}
