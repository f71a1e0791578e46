// Package access holds the portfolio (carteira) entitlement rule shared by the
// read path, the delivery report, the websocket subscriptions and the
// notification fan-out.
package access

import (
	"strings"

	"github.com/welldanyogia/svp-backend/internal/models"
)

// Viewer is the identity a request acts on behalf of
type Viewer struct {
	UserID    uint
	Role      models.Role
	Portfolio *string
}

// ViewerOf returns the Viewer for a stored user
func ViewerOf(u models.User) Viewer {
	return Viewer{UserID: u.ID, Role: u.Role, Portfolio: u.Portfolio}
}

// IsElevated reports whether role sees every portfolio
func IsElevated(role models.Role) bool {
	switch role {
	case models.RoleCEO, models.RoleSupervisor, models.RoleAdministrator:
		return true
	}
	return false
}

// IsEntitled reports whether v may see data belonging to a condominium with the
// given portfolio. Condominiums without a portfolio are visible to elevated
// roles only.
func IsEntitled(v Viewer, portfolio *string) bool {
	return ScopeFor(v).Allows(portfolio)
}

// Scope is the resolved visibility of a viewer, usable both as a predicate and
// to build query filters.
type Scope struct {
	unrestricted bool
	portfolio    string
}

// ScopeFor resolves the scope of v. Unknown roles and collaborators without a
// portfolio see nothing.
func ScopeFor(v Viewer) Scope {
	if IsElevated(v.Role) {
		return Scope{unrestricted: true}
	}
	if v.Role == models.RoleCollaborator {
		return Scope{portfolio: normalize(v.Portfolio)}
	}
	return Scope{}
}

// Unrestricted reports whether every portfolio is visible
func (s Scope) Unrestricted() bool { return s.unrestricted }

// Portfolio returns the single visible portfolio; empty means none.
func (s Scope) Portfolio() string { return s.portfolio }

// Empty reports whether nothing is visible
func (s Scope) Empty() bool { return !s.unrestricted && s.portfolio == "" }

// Allows reports whether a condominium with portfolio p is visible
func (s Scope) Allows(p *string) bool {
	if s.unrestricted {
		return true
	}
	if s.portfolio == "" {
		return false
	}
	return normalize(p) == s.portfolio
}

func normalize(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
