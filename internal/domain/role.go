package domain

// Role constants define the allowed user roles.
const (
	RoleCustomer = "customer"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// ValidRoles returns the set of valid user roles.
func ValidRoles() []string {
	return []string{RoleCustomer, RoleManager, RoleAdmin}
}

// IsValidRole checks whether the given role string is a valid user role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role grants catalog and order management access.
func IsStaff(role string) bool {
	return role == RoleManager || role == RoleAdmin
}
