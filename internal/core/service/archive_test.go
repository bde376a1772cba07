package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
)

func TestExport(t *testing.T) {
	m, _, _ := newTestManager(t)

	token := mustGenerate(t, m, "alice", "clubhouse-1", time.Hour)
	if _, err := m.FollowViaToken(context.Background(), "bob", token.ID); err != nil {
		t.Fatalf("FollowViaToken() error = %v", err)
	}

	archive, err := m.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if archive.Version != ArchiveVersion {
		t.Errorf("Version = %d, want %d", archive.Version, ArchiveVersion)
	}
	if len(archive.Tokens) != 1 {
		t.Fatalf("exported %d tokens, want 1", len(archive.Tokens))
	}
	if len(archive.Relationships) != 1 {
		t.Fatalf("exported %d relationships, want 1", len(archive.Relationships))
	}

	// The secret is replaced by its fingerprint.
	exported := archive.Tokens[0]
	if exported.Fingerprint != token.Fingerprint() {
		t.Errorf("Fingerprint = %q, want %q", exported.Fingerprint, token.Fingerprint())
	}
	if strings.Contains(exported.Fingerprint, token.ID) {
		t.Error("exported descriptor contains the token secret")
	}
}

func TestImportRoundTrip(t *testing.T) {
	m, _, _ := newTestManager(t)

	token := mustGenerate(t, m, "alice", "clubhouse-1", time.Hour)
	for _, follower := range []string{"bob", "carol"} {
		if _, err := m.FollowViaToken(context.Background(), follower, token.ID); err != nil {
			t.Fatalf("FollowViaToken(%s) error = %v", follower, err)
		}
	}
	if _, err := m.Unfollow(context.Background(), "carol", "alice"); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}

	archive, err := m.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	// Import into a fresh deployment.
	fresh, _, _ := newTestManager(t)
	if err := fresh.Import(context.Background(), archive); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	followers, err := fresh.ListFollowers("alice")
	if err != nil {
		t.Fatalf("ListFollowers() error = %v", err)
	}
	if got := followerIDs(followers); len(got) != 1 || got[0] != "bob" {
		t.Errorf("ListFollowers(alice) after import = %v, want [bob]", got)
	}

	// Tokens are not restorable from fingerprints.
	stats, err := fresh.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalTokens != 0 {
		t.Errorf("TotalTokens after import = %d, want 0", stats.TotalTokens)
	}
	if stats.TotalRelationships != 2 {
		t.Errorf("TotalRelationships after import = %d, want 2", stats.TotalRelationships)
	}
}

func TestImportInactiveEdgeStaysInactive(t *testing.T) {
	m, _, _ := newTestManager(t)

	token := mustGenerate(t, m, "alice", "clubhouse-1", time.Hour)
	if _, err := m.FollowViaToken(context.Background(), "bob", token.ID); err != nil {
		t.Fatalf("FollowViaToken() error = %v", err)
	}
	if _, err := m.Unfollow(context.Background(), "bob", "alice"); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}

	archive, err := m.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	// Re-importing a snapshot of the unfollowed graph must not bring
	// the edge back to life.
	if err := m.Import(context.Background(), archive); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	followers, err := m.ListFollowers("alice")
	if err != nil {
		t.Fatalf("ListFollowers() error = %v", err)
	}
	if len(followers) != 0 {
		t.Errorf("ListFollowers(alice) after import = %v, want none", followerIDs(followers))
	}

	stats, err := m.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.ActiveRelationships != 0 {
		t.Errorf("ActiveRelationships = %d, want 0", stats.ActiveRelationships)
	}
}

func TestImportRejectsBadArchive(t *testing.T) {
	m, _, _ := newTestManager(t)

	err := m.Import(context.Background(), nil)
	if !errors.Is(err, domain.ErrArchiveInvalid) {
		t.Errorf("Import(nil) error = %v, want ErrArchiveInvalid", err)
	}

	err = m.Import(context.Background(), &Archive{Version: 99})
	if !errors.Is(err, domain.ErrArchiveInvalid) {
		t.Errorf("Import(bad version) error = %v, want ErrArchiveInvalid", err)
	}
}

func TestSealedArchiveRoundTrip(t *testing.T) {
	m, _, _ := newTestManager(t)

	token := mustGenerate(t, m, "alice", "clubhouse-1", time.Hour)
	if _, err := m.FollowViaToken(context.Background(), "bob", token.ID); err != nil {
		t.Fatalf("FollowViaToken() error = %v", err)
	}

	data, err := m.ExportSealed(context.Background(), "correct horse battery staple")
	if err != nil {
		t.Fatalf("ExportSealed() error = %v", err)
	}
	if strings.Contains(string(data), "alice") {
		t.Error("sealed archive leaks plaintext")
	}

	fresh, _, _ := newTestManager(t)
	if err := fresh.ImportSealed(context.Background(), data, "correct horse battery staple"); err != nil {
		t.Fatalf("ImportSealed() error = %v", err)
	}

	followers, _ := fresh.ListFollowers("alice")
	if got := followerIDs(followers); len(got) != 1 || got[0] != "bob" {
		t.Errorf("ListFollowers(alice) after sealed import = %v, want [bob]", got)
	}
}

func TestSealedArchiveWrongPassphrase(t *testing.T) {
	m, _, _ := newTestManager(t)

	data, err := m.ExportSealed(context.Background(), "right")
	if err != nil {
		t.Fatalf("ExportSealed() error = %v", err)
	}

	fresh, _, _ := newTestManager(t)
	err = fresh.ImportSealed(context.Background(), data, "wrong")
	if !errors.Is(err, domain.ErrArchiveInvalid) {
		t.Errorf("ImportSealed() with wrong passphrase error = %v, want ErrArchiveInvalid", err)
	}
}
