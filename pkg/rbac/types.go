package rbac

// Role is the coarse access level stored per account. There are exactly
// three; anything unknown degrades to RoleUser.
type Role string

const (
	RoleUser      Role = "user"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

// ParseRole normalizes a stored role string. Absent or unrecognized values
// resolve to RoleUser, which is also the default for unregistered emails.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleLibrarian, RoleAdmin:
		return Role(s)
	default:
		return RoleUser
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleLibrarian || r == RoleAdmin
}

// CanManageCatalog reports whether the role may create or edit books.
// Admin is a strict superset of librarian everywhere in the API.
func (r Role) CanManageCatalog() bool {
	return r == RoleLibrarian || r == RoleAdmin
}
