package enums

import "testing"

func TestRegistrationStatusParse(t *testing.T) {
	for _, status := range RegistrationStatuses() {
		parsed, err := ParseRegistrationStatus(status.String())
		if err != nil {
			t.Fatalf("parse %s: %v", status, err)
		}
		if parsed != status || !parsed.IsValid() {
			t.Fatalf("unexpected parse result %q", parsed)
		}
	}
	if _, err := ParseRegistrationStatus("Approved"); err == nil {
		t.Fatalf("status parsing is case sensitive")
	}
}

func TestRegistrationStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to RegistrationStatus
		want     bool
	}{
		{RegistrationStatusPending, RegistrationStatusApproved, true},
		{RegistrationStatusPending, RegistrationStatusRejected, true},
		{RegistrationStatusPending, RegistrationStatusPending, false},
		{RegistrationStatusApproved, RegistrationStatusPending, false},
		{RegistrationStatusApproved, RegistrationStatusRejected, true},
		{RegistrationStatusRejected, RegistrationStatusPending, false},
		{RegistrationStatusRejected, RegistrationStatusApproved, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestRegistrationStatusActiveAndEmoji(t *testing.T) {
	if !RegistrationStatusPending.IsActive() || !RegistrationStatusApproved.IsActive() {
		t.Fatalf("pending and approved are active")
	}
	if RegistrationStatusRejected.IsActive() {
		t.Fatalf("rejected is not active")
	}
	if RegistrationStatusApproved.Emoji() != "✅" || RegistrationStatus("unknown").Emoji() != "❔" {
		t.Fatalf("unexpected emoji mapping")
	}
}

func TestActiveRegistrationStatuses(t *testing.T) {
	active := ActiveRegistrationStatuses()
	if len(active) != 2 || active[0] != RegistrationStatusPending || active[1] != RegistrationStatusApproved {
		t.Fatalf("unexpected active statuses %v", active)
	}
}
