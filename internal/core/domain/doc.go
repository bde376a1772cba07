// Package domain defines the core domain models for ClubMesh.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Token: bearer token binding a principal to a clubhouse resource
//   - Relationship: directed follow edge between two principals
//   - Errors: domain-specific error definitions
//
// All entities clone at storage boundaries so callers can never
// mutate cached state.
package domain
