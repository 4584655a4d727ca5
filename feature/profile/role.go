package profile

// Role is the closed set of membership roles.
type Role string

const (
	RoleEB     Role = "EB"
	RoleEC     Role = "EC"
	RoleCore   Role = "Core"
	RoleMember Role = "Member"
)

// Roles lists every valid role.
var Roles = []Role{RoleEB, RoleEC, RoleCore, RoleMember}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEB, RoleEC, RoleCore, RoleMember:
		return true
	}
	return false
}

// ParseRole returns the Role named s, defaulting to RoleMember when s is empty.
func ParseRole(s string) (Role, bool) {
	if s == "" {
		return RoleMember, true
	}
	r := Role(s)
	return r, r.Valid()
}
