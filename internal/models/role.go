package models

// Role is an access tier. Stored as text on the role assignment rows.
type Role string

const (
	// RoleAPIUser may create and modify regular resources.
	RoleAPIUser Role = "API_USER"
	// RoleSystemAdmin manages users and the administrative namespace.
	RoleSystemAdmin Role = "SYSTEM_ADMIN"
	// RoleDatabaseManager manages joke data and sources.
	RoleDatabaseManager Role = "DATABASE_MANAGER"
)

// AllRoles lists every assignable role.
var AllRoles = []Role{RoleAPIUser, RoleSystemAdmin, RoleDatabaseManager}

func (r Role) Valid() bool {
	switch r {
	case RoleAPIUser, RoleSystemAdmin, RoleDatabaseManager:
		return true
	}
	return false
}

// Supersedes reports whether holding r satisfies a requirement for other.
// The administrative tiers cover API_USER; neither covers the other.
func (r Role) Supersedes(other Role) bool {
	if r == other {
		return true
	}
	if other == RoleAPIUser {
		return r == RoleSystemAdmin || r == RoleDatabaseManager
	}
	return false
}
