package domain

import (
	"fmt"
	"strings"
)

// Role is the coarse permission class supplied by the identity provider.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDriver Role = "driver"
	RoleClient Role = "client"
)

// ParseRole validates a role claim. Matching is case-insensitive; anything
// outside the closed set is rejected.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleDriver, RoleClient:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// Principal is the authenticated caller of a request.
// Subject is the identity provider's stable user id.
type Principal struct {
	Subject string
	Role    Role
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
