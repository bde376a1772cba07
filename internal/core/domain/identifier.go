// Package domain defines the core domain models for ClubMesh.
package domain

// Identifier constraints.
const (
	MaxPrincipalIDLength = 128
	MaxResourceIDLength  = 128
)

// ValidatePrincipalID validates a principal (user) identifier.
func ValidatePrincipalID(id string) error {
	if id == "" {
		return ErrInvalidPrincipal.WithDetails("principal id is required")
	}
	if len(id) > MaxPrincipalIDLength {
		return ErrInvalidPrincipal.WithDetails("principal id exceeds 128 characters")
	}
	if !validIdentifier(id) {
		return ErrInvalidPrincipal.WithDetails("principal id contains invalid characters")
	}
	return nil
}

// ValidateResourceID validates a clubhouse identifier.
func ValidateResourceID(id string) error {
	if id == "" {
		return ErrInvalidResource.WithDetails("clubhouse id is required")
	}
	if len(id) > MaxResourceIDLength {
		return ErrInvalidResource.WithDetails("clubhouse id exceeds 128 characters")
	}
	if !validIdentifier(id) {
		return ErrInvalidResource.WithDetails("clubhouse id contains invalid characters")
	}
	return nil
}

// validIdentifier accepts alphanumerics plus the separators that appear
// in existing deployments (dots, dashes, underscores, at-signs).
func validIdentifier(id string) bool {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == '@':
		default:
			return false
		}
	}
	return true
}
