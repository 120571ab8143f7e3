package enums

import "fmt"

// StaffRole is the permission level carried by admin api tokens.
type StaffRole string

const (
	StaffRoleModerator StaffRole = "moderator"
	StaffRoleOrganizer StaffRole = "organizer"
)

var validStaffRoles = []StaffRole{
	StaffRoleModerator,
	StaffRoleOrganizer,
}

// String implements fmt.Stringer.
func (r StaffRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StaffRole.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanModerate reports whether the role may approve or reject registrations.
func (r StaffRole) CanModerate() bool {
	switch r {
	case StaffRoleModerator, StaffRoleOrganizer:
		return true
	default:
		return false
	}
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
