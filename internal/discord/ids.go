package discord

import "strings"

// Component and modal identifiers. Per-user identifiers carry the target user
// id after an underscore, for example approve-registration_1234.
const (
	ButtonApproveRegistration = "approve-registration"
	ButtonRejectRegistration  = "reject-registration"
	ButtonRegisterTeam        = "register-team"

	ModalRegistration    = "registration-modal"
	ModalRejectionReason = "rejection-reason-modal"

	FieldFullName        = "fullName"
	FieldTeamName        = "teamName"
	FieldRejectionReason = "rejectionReason"

	idSeparator = "_"
)

// UserScopedID builds a custom id bound to one user.
func UserScopedID(prefix, userID string) string {
	return prefix + idSeparator + userID
}

// ParseCustomID splits a custom id into its prefix and optional user id.
func ParseCustomID(customID string) (prefix, userID string) {
	prefix, userID, _ = strings.Cut(customID, idSeparator)
	return prefix, userID
}
