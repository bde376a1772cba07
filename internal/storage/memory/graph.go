// Package memory provides the in-memory cache for ClubMesh.
package memory

import (
	"sort"
	"sync"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
)

// graph holds the active follow edges as a forward adjacency map.
// Inactive edges live only in the durable store.
type graph struct {
	mu sync.RWMutex

	// outgoing: FollowerID -> FollowingID -> edge
	outgoing map[string]map[string]*domain.Relationship
}

func newGraph() *graph {
	return &graph{
		outgoing: make(map[string]map[string]*domain.Relationship),
	}
}

// ============================================================================
// Edge Operations (exported via Cache)
// ============================================================================

// AddEdge caches an active edge. The caller has already persisted it.
func (c *Cache) AddEdge(edge *domain.Relationship) {
	c.graph.mu.Lock()
	defer c.graph.mu.Unlock()

	peers, ok := c.graph.outgoing[edge.FollowerID]
	if !ok {
		peers = make(map[string]*domain.Relationship)
		c.graph.outgoing[edge.FollowerID] = peers
	}
	peers[edge.FollowingID] = edge.Clone()
}

// RemoveEdge drops an active edge from the cache.
// Returns true if the edge was cached.
func (c *Cache) RemoveEdge(follower, following string) bool {
	c.graph.mu.Lock()
	defer c.graph.mu.Unlock()

	peers, ok := c.graph.outgoing[follower]
	if !ok {
		return false
	}
	if _, ok := peers[following]; !ok {
		return false
	}

	delete(peers, following)
	if len(peers) == 0 {
		delete(c.graph.outgoing, follower)
	}
	return true
}

// ActiveEdge returns the active edge for an ordered pair, if cached.
func (c *Cache) ActiveEdge(follower, following string) (*domain.Relationship, bool) {
	c.graph.mu.RLock()
	defer c.graph.mu.RUnlock()

	peers, ok := c.graph.outgoing[follower]
	if !ok {
		return nil, false
	}
	edge, ok := peers[following]
	if !ok {
		return nil, false
	}
	return edge.Clone(), true
}

// Outgoing returns all active edges where the principal is the follower,
// sorted by the followed principal's ID.
func (c *Cache) Outgoing(principal string) []*domain.Relationship {
	c.graph.mu.RLock()
	defer c.graph.mu.RUnlock()

	peers := c.graph.outgoing[principal]
	if len(peers) == 0 {
		return nil
	}

	edges := make([]*domain.Relationship, 0, len(peers))
	for _, edge := range peers {
		edges = append(edges, edge.Clone())
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].FollowingID < edges[j].FollowingID })
	return edges
}

// Incoming returns all active edges where the principal is being
// followed, sorted by follower ID. This scans the forward index; the
// dataset is a single community's follow graph, so the scan stays small.
func (c *Cache) Incoming(principal string) []*domain.Relationship {
	c.graph.mu.RLock()
	defer c.graph.mu.RUnlock()

	var edges []*domain.Relationship
	for _, peers := range c.graph.outgoing {
		if edge, ok := peers[principal]; ok {
			edges = append(edges, edge.Clone())
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].FollowerID < edges[j].FollowerID })
	return edges
}

// EdgeCount returns the number of active cached edges.
func (c *Cache) EdgeCount() int {
	c.graph.mu.RLock()
	defer c.graph.mu.RUnlock()

	count := 0
	for _, peers := range c.graph.outgoing {
		count += len(peers)
	}
	return count
}

// load rebuilds the graph from durable-store state. Inactive edges are
// skipped: only active edges are cached.
func (g *graph) load(edges []*domain.Relationship) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.outgoing = make(map[string]map[string]*domain.Relationship)
	for _, edge := range edges {
		if !edge.Active() {
			continue
		}
		peers, ok := g.outgoing[edge.FollowerID]
		if !ok {
			peers = make(map[string]*domain.Relationship)
			g.outgoing[edge.FollowerID] = peers
		}
		peers[edge.FollowingID] = edge.Clone()
	}
}
