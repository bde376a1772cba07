// Package service implements the ClubMesh manager.
//
// This file contains the aggregate query operations.
package service

import (
	"context"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
)

// ============================================================================
// Resource Info Operation
// ============================================================================

// ResourceInfoResponse describes a resource through its most recent
// active token.
type ResourceInfoResponse struct {
	ResourceID string `json:"clubhouse_id"`

	// PrincipalID is the holder of the most recent active token for
	// the resource.
	PrincipalID string `json:"user_id"`

	// Followers and Following count the active edges of PrincipalID.
	Followers int `json:"followers"`
	Following int `json:"following"`

	// ActiveTokens counts the live tokens naming the resource.
	ActiveTokens int `json:"active_tokens"`
}

// ResourceInfo describes a resource. The describing principal is the
// holder of the resource's most recent active token: latest issued_at,
// ties broken by the lexicographically smallest token id. Returns
// ErrInvalidResource for a malformed id and (nil, nil) when no active
// token names the resource.
func (m *Manager) ResourceInfo(ctx context.Context, resource string) (*ResourceInfoResponse, error) {
	if err := domain.ValidateResourceID(resource); err != nil {
		return nil, err
	}

	now := m.clock.Now()

	var latest *domain.Token
	active := 0
	for _, token := range m.cache.TokensByResource(resource) {
		if token.Expired(now) {
			continue
		}
		active++
		if latest == nil {
			latest = token
			continue
		}
		if token.IssuedAt.After(latest.IssuedAt) ||
			(token.IssuedAt.Equal(latest.IssuedAt) && token.ID < latest.ID) {
			latest = token
		}
	}
	if latest == nil {
		return nil, nil
	}

	return &ResourceInfoResponse{
		ResourceID:   resource,
		PrincipalID:  latest.PrincipalID,
		Followers:    len(m.cache.Incoming(latest.PrincipalID)),
		Following:    len(m.cache.Outgoing(latest.PrincipalID)),
		ActiveTokens: active,
	}, nil
}

// ============================================================================
// Statistics Operation
// ============================================================================

// Statistics aggregates counters over tokens and the follow graph.
type Statistics struct {
	// ActiveTokens counts cached (live) tokens; TotalTokens counts
	// durable rows, expired-but-unswept included.
	ActiveTokens int `json:"active_tokens"`
	TotalTokens  int `json:"total_tokens"`

	// ActiveRelationships counts active edges; TotalRelationships
	// counts durable rows, inactive included.
	ActiveRelationships int `json:"active_relationships"`
	TotalRelationships  int `json:"total_relationships"`

	// DistinctPrincipals counts principals holding at least one live
	// token.
	DistinctPrincipals int `json:"distinct_principals"`
}

// Stats computes aggregate statistics. Totals come from durable count
// queries; active counts come from the cache.
func (m *Manager) Stats(ctx context.Context) (*Statistics, error) {
	totalTokens, err := m.store.CountTokens(ctx)
	if err != nil {
		return nil, err
	}
	totalEdges, err := m.store.CountRelationships(ctx)
	if err != nil {
		return nil, err
	}

	return &Statistics{
		ActiveTokens:        m.cache.TokenCount(),
		TotalTokens:         totalTokens,
		ActiveRelationships: m.cache.EdgeCount(),
		TotalRelationships:  totalEdges,
		DistinctPrincipals:  m.cache.DistinctPrincipals(),
	}, nil
}
