package enums

import "fmt"

// RegistrationEventType names the lifecycle events published after a commit.
type RegistrationEventType string

const (
	RegistrationEventSubmitted    RegistrationEventType = "registration.submitted"
	RegistrationEventApproved     RegistrationEventType = "registration.approved"
	RegistrationEventRejected     RegistrationEventType = "registration.rejected"
	RegistrationEventUnregistered RegistrationEventType = "registration.unregistered"
)

var validRegistrationEventTypes = []RegistrationEventType{
	RegistrationEventSubmitted,
	RegistrationEventApproved,
	RegistrationEventRejected,
	RegistrationEventUnregistered,
}

// String implements fmt.Stringer.
func (e RegistrationEventType) String() string {
	return string(e)
}

// IsValid reports whether the value matches a known event type.
func (e RegistrationEventType) IsValid() bool {
	for _, candidate := range validRegistrationEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseRegistrationEventType converts raw input into RegistrationEventType.
func ParseRegistrationEventType(value string) (RegistrationEventType, error) {
	for _, candidate := range validRegistrationEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid registration event type %q", value)
}
