// Package domain defines the core domain models for ClubMesh.
package domain

import "time"

// Relationship status values. Unfollow never deletes a row; it flips
// the edge to inactive so history survives and a later re-follow
// reactivates the same row.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// RelationshipTypeFollow is the canonical relationship type. The model
// is generic over types so future edge kinds (block, mute) reuse the
// same storage; "follow" is the only type the manager creates today.
const RelationshipTypeFollow = "follow"

// Relationship is a directed edge between two principals.
//
// At most one edge exists per ordered (follower, following) pair
// regardless of status; the durable store enforces this with a unique
// constraint.
type Relationship struct {
	// FollowerID is the principal who follows.
	FollowerID string `json:"follower_id"`

	// FollowingID is the principal being followed.
	FollowingID string `json:"following_id"`

	// ViaToken is the token redeemed to create (or reactivate) the edge.
	ViaToken string `json:"followed_via_token"`

	// Type is the relationship type (currently always "follow").
	Type string `json:"relationship_type"`

	// Status is active or inactive.
	Status string `json:"status"`

	// CreatedAt is when the edge was first created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the edge last changed status.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFollow creates an active follow edge.
func NewFollow(follower, following, viaToken string, now time.Time) *Relationship {
	return &Relationship{
		FollowerID:  follower,
		FollowingID: following,
		ViaToken:    viaToken,
		Type:        RelationshipTypeFollow,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Active reports whether the edge is currently active.
func (r *Relationship) Active() bool {
	return r.Status == StatusActive
}

// Clone creates a copy of the relationship.
func (r *Relationship) Clone() *Relationship {
	clone := *r
	return &clone
}

// Validate validates the edge fields against constraints.
func (r *Relationship) Validate() error {
	if err := ValidatePrincipalID(r.FollowerID); err != nil {
		return err
	}
	if err := ValidatePrincipalID(r.FollowingID); err != nil {
		return err
	}
	if r.FollowerID == r.FollowingID {
		return ErrSelfFollow
	}
	if r.Status != StatusActive && r.Status != StatusInactive {
		return ErrInvalidArgument.WithDetails("status must be active or inactive")
	}
	return nil
}
