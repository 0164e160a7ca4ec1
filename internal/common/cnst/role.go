package cnst

// Role is the privilege level stored on a user
type Role string

const (
	RoleUser       Role = "User"
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "Super Admin"
)

// Rank orders roles from least to most privileged. Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	default:
		return 0
	}
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Satisfies reports whether r meets the minimum role required
func (r Role) Satisfies(required Role) bool {
	return r.Valid() && r.Rank() >= required.Rank()
}

func (r Role) String() string {
	return string(r)
}
