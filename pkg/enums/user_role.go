package enums

import "fmt"

// UserRole controls which API surfaces an account may reach.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleSupport  UserRole = "support"
	UserRoleManager  UserRole = "manager"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleSupport,
	UserRoleManager,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to back-office personnel.
func (r UserRole) IsStaff() bool {
	switch r {
	case UserRoleSupport, UserRoleManager, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
