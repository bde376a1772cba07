// Package service implements the ClubMesh manager.
//
// This file contains the follow graph operations.
package service

import (
	"context"
	"errors"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
	"github.com/yndnr/clubmesh-go/internal/core/event"
)

// ============================================================================
// Follow Operation
// ============================================================================

// FollowViaToken redeems a token to follow the token's principal.
//
// The token is validated with its usual side effects (touch, or lazy
// expiry). Returns true when the follower now follows the principal,
// including the already-following no-op case; false when the token is
// invalid, the follower id is bad, or the follow would be a
// self-follow.
func (m *Manager) FollowViaToken(ctx context.Context, follower, tokenID string) (bool, error) {
	start := m.clock.Now()
	defer m.observe("follow_via_token", start)

	// 1. Validate follower
	if err := domain.ValidatePrincipalID(follower); err != nil {
		return false, err
	}

	// 2. Validate the token, side effects included
	resp, err := m.ValidateToken(ctx, &ValidateTokenRequest{Token: tokenID})
	if err != nil {
		return false, err
	}
	following := resp.Token.PrincipalID

	// 3. Reject self-follow
	if follower == following {
		return false, domain.ErrSelfFollow
	}

	unlock := m.locks.Lock(pairKey(follower, following))
	defer unlock()

	// 4. Already active: idempotent no-op
	if _, active := m.cache.ActiveEdge(follower, following); active {
		return true, nil
	}

	// 5. Create or reactivate, durable first
	now := m.clock.Now()
	edge := domain.NewFollow(follower, following, tokenID, now)
	if err := edge.Validate(); err != nil {
		return false, err
	}

	err = m.store.PutRelationship(ctx, edge)
	if err != nil {
		// A concurrent winner on another stripe; the durable state is
		// already active, so mirror it.
		if errors.Is(err, domain.ErrRelationshipExists) {
			m.cache.AddEdge(edge)
			return true, nil
		}
		return false, err
	}
	m.cache.AddEdge(edge)

	if m.metrics != nil {
		m.metrics.FollowsCreated.Inc()
	}
	m.syncGauges()

	m.log.Info("follow created",
		"follower", follower,
		"following", following,
		"via", domain.MaskToken(tokenID),
	)

	m.publish(event.FollowCreated, map[string]any{
		"follower_id":  follower,
		"following_id": following,
		"via_token":    domain.MaskToken(tokenID),
	})

	return true, nil
}

// ============================================================================
// Unfollow Operation
// ============================================================================

// Unfollow deactivates the follower's edge to following. The edge row
// survives as inactive so a later re-follow reactivates it. Returns
// false when no active edge exists.
func (m *Manager) Unfollow(ctx context.Context, follower, following string) (bool, error) {
	start := m.clock.Now()
	defer m.observe("unfollow", start)

	if err := domain.ValidatePrincipalID(follower); err != nil {
		return false, err
	}
	if err := domain.ValidatePrincipalID(following); err != nil {
		return false, err
	}

	unlock := m.locks.Lock(pairKey(follower, following))
	defer unlock()

	if _, active := m.cache.ActiveEdge(follower, following); !active {
		return false, nil
	}

	changed, err := m.store.SetRelationshipStatus(ctx, follower, following, domain.StatusInactive, m.clock.Now())
	if err != nil {
		return false, err
	}
	m.cache.RemoveEdge(follower, following)

	if changed {
		if m.metrics != nil {
			m.metrics.FollowsRemoved.Inc()
		}
		m.syncGauges()

		m.log.Info("follow removed", "follower", follower, "following", following)

		m.publish(event.FollowUpdated, map[string]any{
			"follower_id":  follower,
			"following_id": following,
			"status":       domain.StatusInactive,
		})
	}

	return changed, nil
}

// ============================================================================
// Graph Query Operations
// ============================================================================

// ListFollowing returns the principals that principal actively
// follows, sorted by principal id.
func (m *Manager) ListFollowing(principal string) ([]*domain.Relationship, error) {
	if err := domain.ValidatePrincipalID(principal); err != nil {
		return nil, err
	}
	return m.cache.Outgoing(principal), nil
}

// ListFollowers returns the principals actively following principal,
// sorted by principal id.
func (m *Manager) ListFollowers(principal string) ([]*domain.Relationship, error) {
	if err := domain.ValidatePrincipalID(principal); err != nil {
		return nil, err
	}
	return m.cache.Incoming(principal), nil
}
