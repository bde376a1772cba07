package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(Config{Path: filepath.Join(t.TempDir(), "clubmesh.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func testToken(id, principal, resource string, now time.Time) *domain.Token {
	return &domain.Token{
		ID:          id,
		PrincipalID: principal,
		ResourceID:  resource,
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Hour),
		LastUsedAt:  now,
	}
}

func TestStorePutAndLoadToken(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	token := testToken("cmtk_load", "alice", "clubhouse-1", now)
	token.Metadata = map[string]any{"device": "ios"}

	if err := store.PutToken(ctx, token); err != nil {
		t.Fatalf("PutToken() error = %v", err)
	}

	tokens, err := store.LoadTokens(ctx, now)
	if err != nil {
		t.Fatalf("LoadTokens() error = %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("LoadTokens() returned %d tokens, want 1", len(tokens))
	}

	got := tokens[0]
	if got.ID != token.ID {
		t.Errorf("ID = %q, want %q", got.ID, token.ID)
	}
	if got.PrincipalID != "alice" {
		t.Errorf("PrincipalID = %q, want alice", got.PrincipalID)
	}
	if got.ResourceID != "clubhouse-1" {
		t.Errorf("ResourceID = %q, want clubhouse-1", got.ResourceID)
	}
	if !got.ExpiresAt.Equal(token.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, token.ExpiresAt)
	}
	if got.Metadata["device"] != "ios" {
		t.Errorf("Metadata = %v, want device=ios", got.Metadata)
	}
}

func TestStorePutTokenDuplicate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	token := testToken("cmtk_dup", "alice", "clubhouse-1", now)
	if err := store.PutToken(ctx, token); err != nil {
		t.Fatalf("PutToken() error = %v", err)
	}

	err := store.PutToken(ctx, token)
	if !errors.Is(err, domain.ErrTokenCollision) {
		t.Fatalf("PutToken() duplicate error = %v, want ErrTokenCollision", err)
	}
}

func TestStoreLoadTokensSkipsExpired(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	live := testToken("cmtk_live", "alice", "clubhouse-1", now.Add(time.Hour))
	dead := testToken("cmtk_dead", "bob", "clubhouse-1", now.Add(-2*time.Hour))

	for _, token := range []*domain.Token{live, dead} {
		if err := store.PutToken(ctx, token); err != nil {
			t.Fatalf("PutToken(%s) error = %v", token.ID, err)
		}
	}

	tokens, err := store.LoadTokens(ctx, now)
	if err != nil {
		t.Fatalf("LoadTokens() error = %v", err)
	}
	if len(tokens) != 1 || tokens[0].ID != "cmtk_live" {
		t.Fatalf("LoadTokens() = %v, want only cmtk_live", tokens)
	}

	// Expired rows remain on disk until swept.
	count, err := store.CountTokens(ctx)
	if err != nil {
		t.Fatalf("CountTokens() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountTokens() = %d, want 2", count)
	}
}

func TestStoreTouchToken(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	token := testToken("cmtk_touch", "alice", "clubhouse-1", now)
	if err := store.PutToken(ctx, token); err != nil {
		t.Fatalf("PutToken() error = %v", err)
	}

	used := now.Add(10 * time.Minute)
	if err := store.TouchToken(ctx, token.ID, used); err != nil {
		t.Fatalf("TouchToken() error = %v", err)
	}

	tokens, err := store.LoadTokens(ctx, now)
	if err != nil {
		t.Fatalf("LoadTokens() error = %v", err)
	}
	if !tokens[0].LastUsedAt.Equal(used) {
		t.Errorf("LastUsedAt = %v, want %v", tokens[0].LastUsedAt, used)
	}
}

func TestStoreDeleteToken(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	token := testToken("cmtk_del", "alice", "clubhouse-1", now)
	if err := store.PutToken(ctx, token); err != nil {
		t.Fatalf("PutToken() error = %v", err)
	}

	deleted, err := store.DeleteToken(ctx, token.ID)
	if err != nil {
		t.Fatalf("DeleteToken() error = %v", err)
	}
	if !deleted {
		t.Error("DeleteToken() = false, want true")
	}

	deleted, err = store.DeleteToken(ctx, token.ID)
	if err != nil {
		t.Fatalf("DeleteToken() second call error = %v", err)
	}
	if deleted {
		t.Error("DeleteToken() on missing token = true, want false")
	}
}

func TestStoreDeleteTokensByPrincipal(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"cmtk_a1", "cmtk_a2"} {
		if err := store.PutToken(ctx, testToken(id, "alice", "clubhouse-1", now)); err != nil {
			t.Fatalf("PutToken(%s) error = %v", id, err)
		}
	}
	if err := store.PutToken(ctx, testToken("cmtk_b1", "bob", "clubhouse-1", now)); err != nil {
		t.Fatalf("PutToken(cmtk_b1) error = %v", err)
	}

	deleted, err := store.DeleteTokensByPrincipal(ctx, "alice")
	if err != nil {
		t.Fatalf("DeleteTokensByPrincipal() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteTokensByPrincipal() = %d, want 2", deleted)
	}

	count, err := store.CountTokens(ctx)
	if err != nil {
		t.Fatalf("CountTokens() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountTokens() = %d, want 1", count)
	}
}

func TestStoreDeleteExpiredTokens(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	dead := testToken("cmtk_dead", "alice", "clubhouse-1", now.Add(-2*time.Hour))
	// Expiry is exclusive: a token is gone at the exact expiry instant.
	boundary := testToken("cmtk_edge", "alice", "clubhouse-1", now)
	live := testToken("cmtk_live", "alice", "clubhouse-1", now.Add(time.Hour))
	forever := testToken("cmtk_forever", "alice", "clubhouse-1", now.Add(-48*time.Hour))
	forever.ExpiresAt = time.Time{}

	for _, token := range []*domain.Token{dead, boundary, live, forever} {
		if err := store.PutToken(ctx, token); err != nil {
			t.Fatalf("PutToken(%s) error = %v", token.ID, err)
		}
	}

	deleted, err := store.DeleteExpiredTokens(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredTokens() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteExpiredTokens() = %d, want 2", deleted)
	}

	tokens, err := store.LoadTokens(ctx, now)
	if err != nil {
		t.Fatalf("LoadTokens() error = %v", err)
	}
	if len(tokens) != 2 {
		t.Errorf("LoadTokens() returned %d tokens, want 2 (non-expiring survives)", len(tokens))
	}
}

func TestStorePutRelationship(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	edge := domain.NewFollow("alice", "bob", "cmtk_via", now)
	if err := store.PutRelationship(ctx, edge); err != nil {
		t.Fatalf("PutRelationship() error = %v", err)
	}

	err := store.PutRelationship(ctx, edge)
	if !errors.Is(err, domain.ErrRelationshipExists) {
		t.Fatalf("PutRelationship() on active edge error = %v, want ErrRelationshipExists", err)
	}
}

func TestStoreRelationshipReactivation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	edge := domain.NewFollow("alice", "bob", "cmtk_first", now)
	if err := store.PutRelationship(ctx, edge); err != nil {
		t.Fatalf("PutRelationship() error = %v", err)
	}

	changed, err := store.SetRelationshipStatus(ctx, "alice", "bob", domain.StatusInactive, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("SetRelationshipStatus() error = %v", err)
	}
	if !changed {
		t.Fatal("SetRelationshipStatus() = false, want true")
	}

	// Re-following reactivates the same row with the new token.
	refollow := domain.NewFollow("alice", "bob", "cmtk_second", now.Add(2*time.Minute))
	if err := store.PutRelationship(ctx, refollow); err != nil {
		t.Fatalf("PutRelationship() reactivation error = %v", err)
	}

	edges, err := store.LoadRelationships(ctx)
	if err != nil {
		t.Fatalf("LoadRelationships() error = %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("LoadRelationships() returned %d edges, want 1", len(edges))
	}

	got := edges[0]
	if got.Status != domain.StatusActive {
		t.Errorf("Status = %q, want active", got.Status)
	}
	if got.ViaToken != "cmtk_second" {
		t.Errorf("ViaToken = %q, want cmtk_second", got.ViaToken)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want original %v", got.CreatedAt, now)
	}
	if !got.UpdatedAt.Equal(refollow.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, refollow.UpdatedAt)
	}
}

func TestStorePutInactiveEdgeKeepsExistingRow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	edge := domain.NewFollow("alice", "bob", "cmtk_first", now)
	if err := store.PutRelationship(ctx, edge); err != nil {
		t.Fatalf("PutRelationship() error = %v", err)
	}
	if _, err := store.SetRelationshipStatus(ctx, "alice", "bob", domain.StatusInactive, now.Add(time.Minute)); err != nil {
		t.Fatalf("SetRelationshipStatus() error = %v", err)
	}

	// An unfollowed-then-restored edge stays unfollowed.
	restored := domain.NewFollow("alice", "bob", "cmtk_old", now.Add(2*time.Minute))
	restored.Status = domain.StatusInactive
	if err := store.PutRelationship(ctx, restored); err != nil {
		t.Fatalf("PutRelationship() inactive edge error = %v", err)
	}

	edges, err := store.LoadRelationships(ctx)
	if err != nil {
		t.Fatalf("LoadRelationships() error = %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("LoadRelationships() returned %d edges, want 1", len(edges))
	}
	if edges[0].Status != domain.StatusInactive {
		t.Errorf("Status = %q, want inactive", edges[0].Status)
	}
	if edges[0].ViaToken != "cmtk_first" {
		t.Errorf("ViaToken = %q, want cmtk_first (row untouched)", edges[0].ViaToken)
	}

	// Nor does an inactive edge demote an active pair.
	if _, err := store.SetRelationshipStatus(ctx, "alice", "bob", domain.StatusActive, now.Add(3*time.Minute)); err != nil {
		t.Fatalf("SetRelationshipStatus() error = %v", err)
	}
	if err := store.PutRelationship(ctx, restored); err != nil {
		t.Fatalf("PutRelationship() inactive edge over active error = %v", err)
	}
	edges, err = store.LoadRelationships(ctx)
	if err != nil {
		t.Fatalf("LoadRelationships() error = %v", err)
	}
	if edges[0].Status != domain.StatusActive {
		t.Errorf("Status = %q, want active", edges[0].Status)
	}
}

func TestStoreSetRelationshipStatusNoop(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	changed, err := store.SetRelationshipStatus(ctx, "alice", "bob", domain.StatusInactive, now)
	if err != nil {
		t.Fatalf("SetRelationshipStatus() error = %v", err)
	}
	if changed {
		t.Error("SetRelationshipStatus() on missing edge = true, want false")
	}

	edge := domain.NewFollow("alice", "bob", "cmtk_via", now)
	if err := store.PutRelationship(ctx, edge); err != nil {
		t.Fatalf("PutRelationship() error = %v", err)
	}

	changed, err = store.SetRelationshipStatus(ctx, "alice", "bob", domain.StatusActive, now)
	if err != nil {
		t.Fatalf("SetRelationshipStatus() error = %v", err)
	}
	if changed {
		t.Error("SetRelationshipStatus() to same status = true, want false")
	}
}

func TestStoreCountRelationships(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.PutRelationship(ctx, domain.NewFollow("alice", "bob", "cmtk_v", now)); err != nil {
		t.Fatalf("PutRelationship() error = %v", err)
	}
	if err := store.PutRelationship(ctx, domain.NewFollow("bob", "alice", "cmtk_v", now)); err != nil {
		t.Fatalf("PutRelationship() error = %v", err)
	}
	if _, err := store.SetRelationshipStatus(ctx, "bob", "alice", domain.StatusInactive, now); err != nil {
		t.Fatalf("SetRelationshipStatus() error = %v", err)
	}

	count, err := store.CountRelationships(ctx)
	if err != nil {
		t.Fatalf("CountRelationships() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountRelationships() = %d, want 2 (inactive included)", count)
	}
}

func TestStoreReopen(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "clubmesh.db")

	store, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.PutToken(ctx, testToken("cmtk_persist", "alice", "clubhouse-1", now)); err != nil {
		t.Fatalf("PutToken() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open() after close error = %v", err)
	}
	defer reopened.Close()

	tokens, err := reopened.LoadTokens(ctx, now)
	if err != nil {
		t.Fatalf("LoadTokens() error = %v", err)
	}
	if len(tokens) != 1 || tokens[0].ID != "cmtk_persist" {
		t.Fatalf("LoadTokens() after reopen = %v, want cmtk_persist", tokens)
	}
}

func TestParseTimeLegacyFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"empty", "", time.Time{}},
		{"offset", "2024-03-01T12:00:00.500000+00:00", time.Date(2024, 3, 1, 12, 0, 0, 500000000, time.UTC)},
		{"legacy naive", "2024-03-01T12:00:00.500000", time.Date(2024, 3, 1, 12, 0, 0, 500000000, time.UTC)},
		{"legacy no fraction", "2024-03-01T12:00:00", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.input)
			if err != nil {
				t.Fatalf("parseTime(%q) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatTimeRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC)

	got, err := parseTime(formatTime(now))
	if err != nil {
		t.Fatalf("parseTime(formatTime()) error = %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("round trip = %v, want %v", got, now)
	}

	if formatTime(time.Time{}) != "" {
		t.Errorf("formatTime(zero) = %q, want empty", formatTime(time.Time{}))
	}
}
