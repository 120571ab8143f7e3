package enums

import "fmt"

// RegistrationStatus maps to the registration_requests.status column.
type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "pending"
	RegistrationStatusApproved RegistrationStatus = "approved"
	RegistrationStatusRejected RegistrationStatus = "rejected"
)

var validRegistrationStatuses = []RegistrationStatus{
	RegistrationStatusPending,
	RegistrationStatusApproved,
	RegistrationStatusRejected,
}

// RegistrationStatuses returns every status in display order.
func RegistrationStatuses() []RegistrationStatus {
	return append([]RegistrationStatus(nil), validRegistrationStatuses...)
}

// ActiveRegistrationStatuses returns the statuses that block a new submission.
func ActiveRegistrationStatuses() []RegistrationStatus {
	var active []RegistrationStatus
	for _, status := range validRegistrationStatuses {
		if status.IsActive() {
			active = append(active, status)
		}
	}
	return active
}

// String implements fmt.Stringer.
func (s RegistrationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known registration status.
func (s RegistrationStatus) IsValid() bool {
	for _, candidate := range validRegistrationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the status blocks a new submission.
func (s RegistrationStatus) IsActive() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusApproved:
		return true
	case RegistrationStatusRejected:
		return false
	default:
		return false
	}
}

// CanTransitionTo reports whether a record in s may move to next.
func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	switch s {
	case RegistrationStatusPending:
		return next == RegistrationStatusApproved || next == RegistrationStatusRejected
	case RegistrationStatusApproved:
		// approved records only leave through deletion (unregister) or supersede.
		return next == RegistrationStatusRejected
	case RegistrationStatusRejected:
		return false
	default:
		return false
	}
}

// Emoji is the status marker used in chat listings.
func (s RegistrationStatus) Emoji() string {
	switch s {
	case RegistrationStatusPending:
		return "⏳"
	case RegistrationStatusApproved:
		return "✅"
	case RegistrationStatusRejected:
		return "❌"
	default:
		return "❔"
	}
}

// ParseRegistrationStatus converts raw input into RegistrationStatus.
func ParseRegistrationStatus(value string) (RegistrationStatus, error) {
	for _, candidate := range validRegistrationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid registration status %q", value)
}
