package auth

import "github.com/isdelr/pitchzone-be/internal/models"

// Capability is what a route requires of its caller.
type Capability uint8

const (
	CapAuthenticated Capability = iota
	CapEntrepreneur
	CapInvestor
	CapAdmin
)

func (c Capability) String() string {
	switch c {
	case CapAuthenticated:
		return "Authentication"
	case CapEntrepreneur:
		return "Entrepreneur role"
	case CapInvestor:
		return "Investor role"
	case CapAdmin:
		return "Admin role"
	}
	return "Unknown capability"
}

// Allows reports whether a user with role holds capability c.
func Allows(role models.Role, c Capability) bool {
	switch role {
	case models.RoleEntrepreneur:
		return c == CapAuthenticated || c == CapEntrepreneur
	case models.RoleInvestor:
		return c == CapAuthenticated || c == CapInvestor
	case models.RoleAdmin:
		return c == CapAuthenticated || c == CapAdmin
	}
	return false
}
