package domain

// Role is the authority level an account holds in the network.
type Role string

const (
	RoleMember        Role = "member"
	RoleRegionalAdmin Role = "regional_admin"
	RoleCentralAdmin  Role = "central_admin"
	RoleFinanceAdmin  Role = "finance_admin"
)

// ParseRole validates and returns a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleMember, RoleRegionalAdmin, RoleCentralAdmin, RoleFinanceAdmin:
		return Role(s), true
	}
	return "", false
}

// Global reports whether the role's authority spans all regions.
func (r Role) Global() bool {
	return r == RoleCentralAdmin || r == RoleFinanceAdmin
}

func (r Role) String() string { return string(r) }
