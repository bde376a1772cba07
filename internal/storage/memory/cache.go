// Package memory provides the in-memory cache for ClubMesh.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
	"github.com/yndnr/clubmesh-go/pkg/cmap"
)

// Cache mirrors the durable store in memory: non-expired tokens with
// secondary indexes, plus the active follow graph.
type Cache struct {
	// Primary index: TokenID -> Token
	tokens *cmap.Map[*domain.Token]

	// Secondary index: PrincipalID -> set of TokenIDs
	principalIndex *KeyIndex

	// Secondary index: ResourceID -> set of TokenIDs
	resourceIndex *KeyIndex

	// Global lock for operations requiring atomicity across indexes
	mu sync.RWMutex

	graph *graph
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		tokens:         cmap.New[*domain.Token](),
		principalIndex: NewKeyIndex(),
		resourceIndex:  NewKeyIndex(),
		graph:          newGraph(),
	}
}

// ============================================================================
// Token Operations
// ============================================================================

// PutToken stores a token and updates both secondary indexes.
// The caller has already persisted the token durably.
func (c *Cache) PutToken(token *domain.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := token.Clone()
	c.tokens.Set(token.ID, clone)
	c.principalIndex.Add(token.PrincipalID, token.ID)
	c.resourceIndex.Add(token.ResourceID, token.ID)
}

// Token retrieves a token by ID. Returns a clone.
func (c *Cache) Token(id string) (*domain.Token, bool) {
	token, ok := c.tokens.Get(id)
	if !ok {
		return nil, false
	}
	return token.Clone(), true
}

// TouchToken updates the last-used timestamp of a cached token.
func (c *Cache) TouchToken(id string, lastUsed time.Time) {
	token, ok := c.tokens.Get(id)
	if !ok {
		return
	}
	// Update in place (atomic write of a single field)
	token.LastUsedAt = lastUsed
}

// RemoveToken removes a token and cleans up the indexes.
// Returns the removed token and true if it was cached.
func (c *Cache) RemoveToken(id string) (*domain.Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, ok := c.tokens.Pop(id)
	if !ok {
		return nil, false
	}

	c.principalIndex.Remove(token.PrincipalID, id)
	c.resourceIndex.Remove(token.ResourceID, id)

	return token, true
}

// RemoveTokensByPrincipal removes every token issued to a principal.
// Returns the removed tokens.
func (c *Cache) RemoveTokensByPrincipal(principal string) []*domain.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.principalIndex.Get(principal)
	if len(ids) == 0 {
		return nil
	}

	removed := make([]*domain.Token, 0, len(ids))
	for _, id := range ids {
		token, ok := c.tokens.Pop(id)
		if !ok {
			continue
		}
		c.resourceIndex.Remove(token.ResourceID, id)
		removed = append(removed, token)
	}

	c.principalIndex.Clear(principal)

	return removed
}

// TokensByPrincipal returns all cached tokens issued to a principal.
func (c *Cache) TokensByPrincipal(principal string) []*domain.Token {
	return c.tokensByIndex(c.principalIndex, principal)
}

// TokensByResource returns all cached tokens naming a clubhouse.
func (c *Cache) TokensByResource(resource string) []*domain.Token {
	return c.tokensByIndex(c.resourceIndex, resource)
}

func (c *Cache) tokensByIndex(index *KeyIndex, key string) []*domain.Token {
	ids := index.Get(key)
	if len(ids) == 0 {
		return nil
	}

	tokens := make([]*domain.Token, 0, len(ids))
	for _, id := range ids {
		token, ok := c.tokens.Get(id)
		if !ok {
			continue // removed between index read and map read
		}
		tokens = append(tokens, token.Clone())
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })
	return tokens
}

// ExpiredTokenIDs returns the IDs of all cached tokens expired at now.
func (c *Cache) ExpiredTokenIDs(now time.Time) []string {
	var expired []string
	c.tokens.Range(func(id string, token *domain.Token) bool {
		if token.Expired(now) {
			expired = append(expired, id)
		}
		return true
	})
	sort.Strings(expired)
	return expired
}

// TokenCount returns the number of cached tokens.
func (c *Cache) TokenCount() int {
	return c.tokens.Count()
}

// DistinctPrincipals returns the number of principals holding at least
// one cached token.
func (c *Cache) DistinctPrincipals() int {
	return len(c.principalIndex.Keys())
}

// ============================================================================
// Rebuild
// ============================================================================

// Load clears the cache and rebuilds it from durable-store state.
// Called once at startup; the durable store is the only source.
func (c *Cache) Load(tokens []*domain.Token, edges []*domain.Relationship) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens.Clear()
	c.principalIndex = NewKeyIndex()
	c.resourceIndex = NewKeyIndex()

	for _, token := range tokens {
		clone := token.Clone()
		c.tokens.Set(token.ID, clone)
		c.principalIndex.Add(token.PrincipalID, token.ID)
		c.resourceIndex.Add(token.ResourceID, token.ID)
	}

	c.graph.load(edges)
}
