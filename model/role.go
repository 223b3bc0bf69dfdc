package model

// Role identifiers assigned to patient accounts.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Permission strings required by routes.
const (
	RightGetUsers       = "getUsers"
	RightManageUsers    = "manageUsers"
	RightGetPatients    = "getPatients"
	RightManagePatients = "managePatients"
)

// roleRights maps each role to the set of rights it grants. It is built once
// and never mutated at runtime.
var roleRights = map[string][]string{
	RoleUser:  {},
	RoleAdmin: {RightGetUsers, RightManageUsers, RightGetPatients, RightManagePatients},
}

// Roles returns the known role identifiers.
func Roles() []string {
	roles := make([]string, 0, len(roleRights))
	for r := range roleRights {
		roles = append(roles, r)
	}
	return roles
}

// IsValidRole reports whether role is a known role identifier.
func IsValidRole(role string) bool {
	_, ok := roleRights[role]
	return ok
}

// RoleRights returns the rights granted to a role. An unknown role yields an
// empty set so authorization fails closed.
func RoleRights(role string) []string {
	rights, ok := roleRights[role]
	if !ok {
		return nil
	}
	out := make([]string, len(rights))
	copy(out, rights)
	return out
}

// RoleHasRights reports whether the role's right set contains every required
// right.
func RoleHasRights(role string, required []string) bool {
	granted := roleRights[role]
	for _, req := range required {
		found := false
		for _, g := range granted {
			if g == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
