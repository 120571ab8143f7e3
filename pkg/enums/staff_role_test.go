package enums

import "testing"

func TestParseStaffRole(t *testing.T) {
	role, err := ParseStaffRole("organizer")
	if err != nil || role != StaffRoleOrganizer || !role.CanModerate() {
		t.Fatalf("unexpected parse result %q, %v", role, err)
	}
	if _, err := ParseStaffRole("admin"); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
	if StaffRole("").CanModerate() {
		t.Fatalf("empty role must not moderate")
	}
}
