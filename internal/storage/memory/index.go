// Package memory provides the in-memory cache for ClubMesh.
package memory

import (
	"sync"

	"github.com/yndnr/clubmesh-go/pkg/cmap"
)

// TokenSet is a concurrent-safe set of token IDs.
type TokenSet struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// NewTokenSet creates a new token set.
func NewTokenSet() *TokenSet {
	return &TokenSet{
		items: make(map[string]struct{}),
	}
}

// Add adds a token ID to the set.
func (s *TokenSet) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = struct{}{}
}

// Remove removes a token ID from the set.
func (s *TokenSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Contains checks if a token ID is in the set.
func (s *TokenSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Len returns the number of items in the set.
func (s *TokenSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of all token IDs.
func (s *TokenSet) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]string, 0, len(s.items))
	for id := range s.items {
		items = append(items, id)
	}
	return items
}

// KeyIndex maps an owner key (principal or clubhouse) to the set of
// token IDs issued under it.
type KeyIndex struct {
	index *cmap.Map[*TokenSet]
}

// NewKeyIndex creates a new key index.
func NewKeyIndex() *KeyIndex {
	return &KeyIndex{
		index: cmap.New[*TokenSet](),
	}
}

// Add adds a token to the key's set.
func (i *KeyIndex) Add(key, tokenID string) {
	set, _ := i.index.GetOrSet(key, NewTokenSet())
	set.Add(tokenID)
}

// Remove removes a token from the key's set.
func (i *KeyIndex) Remove(key, tokenID string) {
	set, ok := i.index.Get(key)
	if !ok {
		return
	}

	set.Remove(tokenID)

	// Clean up empty sets
	if set.Len() == 0 {
		i.index.Delete(key)
	}
}

// Get returns all token IDs for a key.
func (i *KeyIndex) Get(key string) []string {
	set, ok := i.index.Get(key)
	if !ok {
		return nil
	}
	return set.Items()
}

// Count returns the number of tokens for a key.
func (i *KeyIndex) Count(key string) int {
	set, ok := i.index.Get(key)
	if !ok {
		return 0
	}
	return set.Len()
}

// Keys returns every key with at least one token.
func (i *KeyIndex) Keys() []string {
	return i.index.Keys()
}

// Clear removes all tokens for a key.
func (i *KeyIndex) Clear(key string) {
	i.index.Delete(key)
}
