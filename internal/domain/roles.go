package domain

import "strings"

// Role is the id of an entry in the fixed role catalog. The numeric values
// match the seeded rows of the roles table.
type Role int

const (
	// RoleAny is not a catalog entry: in a required set it admits any
	// authenticated user.
	RoleAny Role = 0

	RoleAdmin     Role = 1
	RoleEditor    Role = 2
	RoleSupport   Role = 3
	RoleViewer    Role = 4
	RoleDeveloper Role = 5
)

// DefaultRole is assigned on registration.
const DefaultRole = RoleViewer

// RoleInfo is a row of the role catalog.
type RoleInfo struct {
	ID          Role
	Name        string
	Description string
}

var catalog = []RoleInfo{
	{RoleAdmin, "ADMIN", "Full access to every account operation"},
	{RoleEditor, "EDITOR", "Can edit content"},
	{RoleSupport, "SUPPORT", "Can assist users with their accounts"},
	{RoleViewer, "VIEWER", "Read-only access"},
	{RoleDeveloper, "DEVELOPER", "Access to developer tooling"},
}

// Roles returns a copy of the role catalog ordered by id.
func Roles() []RoleInfo {
	out := make([]RoleInfo, len(catalog))
	copy(out, catalog)
	return out
}

// Valid reports whether r is a catalog role. RoleAny is not.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleSupport, RoleViewer, RoleDeveloper:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case RoleAny:
		return "ANY"
	case RoleAdmin:
		return "ADMIN"
	case RoleEditor:
		return "EDITOR"
	case RoleSupport:
		return "SUPPORT"
	case RoleViewer:
		return "VIEWER"
	case RoleDeveloper:
		return "DEVELOPER"
	default:
		return "UNKNOWN"
	}
}

// ParseRole accepts a catalog name, case-insensitively. "ANY" is rejected.
func ParseRole(s string) (Role, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, ri := range catalog {
		if ri.Name == name {
			return ri.ID, true
		}
	}
	return 0, false
}

// JoinRoles renders a role set for error metadata and logs.
func JoinRoles(rs []Role) string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.String()
	}
	return strings.Join(names, ",")
}
