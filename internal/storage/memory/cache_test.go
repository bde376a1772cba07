package memory

import (
	"testing"
	"time"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
)

func newToken(id, principal, resource string, expiresAt time.Time) *domain.Token {
	return &domain.Token{
		ID:          id,
		PrincipalID: principal,
		ResourceID:  resource,
		IssuedAt:    time.Now(),
		ExpiresAt:   expiresAt,
	}
}

func TestCache_PutTokenAndLookup(t *testing.T) {
	c := New()
	tok := newToken("cmtk_1", "alice", "club-1", time.Now().Add(time.Hour))

	c.PutToken(tok)

	got, ok := c.Token("cmtk_1")
	if !ok {
		t.Fatal("token not cached")
	}
	if got.PrincipalID != "alice" {
		t.Fatalf("PrincipalID = %q, want alice", got.PrincipalID)
	}

	byPrincipal := c.TokensByPrincipal("alice")
	if len(byPrincipal) != 1 || byPrincipal[0].ID != "cmtk_1" {
		t.Fatalf("TokensByPrincipal = %v", byPrincipal)
	}

	byResource := c.TokensByResource("club-1")
	if len(byResource) != 1 || byResource[0].ID != "cmtk_1" {
		t.Fatalf("TokensByResource = %v", byResource)
	}

	if c.TokenCount() != 1 {
		t.Fatalf("TokenCount = %d, want 1", c.TokenCount())
	}
}

func TestCache_CloneAtBoundary(t *testing.T) {
	c := New()
	tok := newToken("cmtk_1", "alice", "club-1", time.Now().Add(time.Hour))
	tok.Metadata = map[string]any{"k": "v"}
	c.PutToken(tok)

	// Mutating the caller's token must not affect the cache.
	tok.PrincipalID = "mallory"

	got, _ := c.Token("cmtk_1")
	if got.PrincipalID != "alice" {
		t.Fatal("cache shared state with the caller")
	}

	// Mutating a returned token must not affect the cache either.
	got.Metadata["k"] = "changed"
	again, _ := c.Token("cmtk_1")
	if again.Metadata["k"] != "v" {
		t.Fatal("cache shared metadata with a reader")
	}
}

func TestCache_RemoveToken(t *testing.T) {
	c := New()
	c.PutToken(newToken("cmtk_1", "alice", "club-1", time.Now().Add(time.Hour)))

	removed, ok := c.RemoveToken("cmtk_1")
	if !ok || removed.ID != "cmtk_1" {
		t.Fatalf("RemoveToken = %v, %v", removed, ok)
	}

	if _, ok := c.Token("cmtk_1"); ok {
		t.Fatal("token still cached after remove")
	}
	if got := c.TokensByPrincipal("alice"); len(got) != 0 {
		t.Fatal("principal index not cleaned up")
	}
	if got := c.TokensByResource("club-1"); len(got) != 0 {
		t.Fatal("resource index not cleaned up")
	}

	if _, ok := c.RemoveToken("cmtk_1"); ok {
		t.Fatal("second remove should miss")
	}
}

func TestCache_RemoveTokensByPrincipal(t *testing.T) {
	c := New()
	c.PutToken(newToken("cmtk_1", "alice", "club-1", time.Now().Add(time.Hour)))
	c.PutToken(newToken("cmtk_2", "alice", "club-2", time.Now().Add(time.Hour)))
	c.PutToken(newToken("cmtk_3", "bob", "club-1", time.Now().Add(time.Hour)))

	removed := c.RemoveTokensByPrincipal("alice")
	if len(removed) != 2 {
		t.Fatalf("removed %d tokens, want 2", len(removed))
	}
	if c.TokenCount() != 1 {
		t.Fatalf("TokenCount = %d, want 1", c.TokenCount())
	}
	if got := c.TokensByResource("club-2"); len(got) != 0 {
		t.Fatal("resource index not cleaned up for removed tokens")
	}
	if got := c.TokensByResource("club-1"); len(got) != 1 {
		t.Fatal("bob's token should survive")
	}
}

func TestCache_ExpiredTokenIDs(t *testing.T) {
	now := time.Now()
	c := New()
	c.PutToken(newToken("cmtk_live", "alice", "club-1", now.Add(time.Hour)))
	c.PutToken(newToken("cmtk_dead", "bob", "club-1", now.Add(-time.Minute)))

	expired := c.ExpiredTokenIDs(now)
	if len(expired) != 1 || expired[0] != "cmtk_dead" {
		t.Fatalf("ExpiredTokenIDs = %v", expired)
	}
}

func TestCache_DistinctPrincipals(t *testing.T) {
	c := New()
	c.PutToken(newToken("cmtk_1", "alice", "club-1", time.Now().Add(time.Hour)))
	c.PutToken(newToken("cmtk_2", "alice", "club-2", time.Now().Add(time.Hour)))
	c.PutToken(newToken("cmtk_3", "bob", "club-1", time.Now().Add(time.Hour)))

	if got := c.DistinctPrincipals(); got != 2 {
		t.Fatalf("DistinctPrincipals = %d, want 2", got)
	}
}

func TestCache_Load(t *testing.T) {
	c := New()
	c.PutToken(newToken("cmtk_stale", "old", "club-0", time.Now().Add(time.Hour)))
	c.AddEdge(domain.NewFollow("old-a", "old-b", "cmtk_stale", time.Now()))

	tokens := []*domain.Token{
		newToken("cmtk_1", "alice", "club-1", time.Now().Add(time.Hour)),
	}
	edges := []*domain.Relationship{
		domain.NewFollow("bob", "alice", "cmtk_1", time.Now()),
		{FollowerID: "carol", FollowingID: "alice", Status: domain.StatusInactive,
			Type: domain.RelationshipTypeFollow},
	}

	c.Load(tokens, edges)

	if _, ok := c.Token("cmtk_stale"); ok {
		t.Fatal("Load should clear previous tokens")
	}
	if _, ok := c.Token("cmtk_1"); !ok {
		t.Fatal("loaded token missing")
	}
	if c.EdgeCount() != 1 {
		t.Fatalf("EdgeCount = %d, want 1 (inactive edges are not cached)", c.EdgeCount())
	}
	if _, ok := c.ActiveEdge("old-a", "old-b"); ok {
		t.Fatal("Load should clear previous edges")
	}
}

func TestGraph_AddRemoveEdge(t *testing.T) {
	c := New()
	now := time.Now()

	c.AddEdge(domain.NewFollow("alice", "bob", "cmtk_1", now))

	if _, ok := c.ActiveEdge("alice", "bob"); !ok {
		t.Fatal("edge not cached")
	}
	if _, ok := c.ActiveEdge("bob", "alice"); ok {
		t.Fatal("edges are directed; reverse pair should not exist")
	}

	if !c.RemoveEdge("alice", "bob") {
		t.Fatal("RemoveEdge should report the edge existed")
	}
	if c.RemoveEdge("alice", "bob") {
		t.Fatal("second RemoveEdge should miss")
	}
}

func TestGraph_OutgoingIncoming(t *testing.T) {
	c := New()
	now := time.Now()

	c.AddEdge(domain.NewFollow("alice", "bob", "cmtk_1", now))
	c.AddEdge(domain.NewFollow("alice", "carol", "cmtk_2", now))
	c.AddEdge(domain.NewFollow("dave", "bob", "cmtk_3", now))

	out := c.Outgoing("alice")
	if len(out) != 2 {
		t.Fatalf("Outgoing(alice) = %d edges, want 2", len(out))
	}
	if out[0].FollowingID != "bob" || out[1].FollowingID != "carol" {
		t.Fatalf("Outgoing not sorted: %s, %s", out[0].FollowingID, out[1].FollowingID)
	}

	in := c.Incoming("bob")
	if len(in) != 2 {
		t.Fatalf("Incoming(bob) = %d edges, want 2", len(in))
	}
	if in[0].FollowerID != "alice" || in[1].FollowerID != "dave" {
		t.Fatalf("Incoming not sorted: %s, %s", in[0].FollowerID, in[1].FollowerID)
	}

	if c.EdgeCount() != 3 {
		t.Fatalf("EdgeCount = %d, want 3", c.EdgeCount())
	}
}
