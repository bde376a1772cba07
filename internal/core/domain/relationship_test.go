package domain

import (
	"testing"
	"time"
)

func TestNewFollow(t *testing.T) {
	now := time.Now()
	r := NewFollow("alice", "bob", "cmtk_x", now)

	if r.FollowerID != "alice" || r.FollowingID != "bob" {
		t.Fatalf("edge = %s -> %s, want alice -> bob", r.FollowerID, r.FollowingID)
	}
	if r.Type != RelationshipTypeFollow {
		t.Fatalf("Type = %q, want %q", r.Type, RelationshipTypeFollow)
	}
	if !r.Active() {
		t.Fatal("new follow should be active")
	}
	if !r.CreatedAt.Equal(now) || !r.UpdatedAt.Equal(now) {
		t.Fatal("timestamps should be set to now")
	}
}

func TestRelationship_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		edge    *Relationship
		wantErr *DomainError
	}{
		{"valid", NewFollow("alice", "bob", "cmtk_x", now), nil},
		{"self follow", NewFollow("alice", "alice", "cmtk_x", now), ErrSelfFollow},
		{"empty follower", NewFollow("", "bob", "cmtk_x", now), ErrInvalidPrincipal},
		{"bad status", &Relationship{FollowerID: "a", FollowingID: "b", Status: "paused"}, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edge.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !IsDomainError(err, tt.wantErr.Code) {
				t.Fatalf("Validate err = %v, want code %s", err, tt.wantErr.Code)
			}
		})
	}
}

func TestRelationship_Clone(t *testing.T) {
	r := NewFollow("alice", "bob", "cmtk_x", time.Now())
	clone := r.Clone()
	clone.Status = StatusInactive

	if r.Status != StatusActive {
		t.Fatal("Clone should not share state")
	}
}
