package identity

import "github.com/nerrad567/homelink-core/internal/token"

// Principal is an authenticated caller: either the administrator or a
// paired client. It is resolved fresh on every request; nothing about it
// is cached between requests.
type Principal struct {
	// ID is the admin username or the client ID.
	ID string

	// Role is the verified role from the token, never the peeked one.
	Role token.Role

	// Areas holds the client's current area assignments. Empty for
	// administrators, who are not area-scoped.
	Areas []string

	// TokenID is the ledger row backing a client principal. Empty for
	// administrators.
	TokenID string
}

// IsAdmin reports whether the principal is the administrator.
func (p *Principal) IsAdmin() bool {
	return p.Role == token.RoleAdmin
}

// HasArea reports whether the principal may observe the given area.
// Administrators see everything.
func (p *Principal) HasArea(areaID string) bool {
	if p.IsAdmin() {
		return true
	}
	for _, id := range p.Areas {
		if id == areaID {
			return true
		}
	}
	return false
}
