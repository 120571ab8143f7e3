package registrations

import (
	"fmt"
	"strings"
)

const (
	msgAlreadyPending = "You already have a pending registration request. Please wait for a moderator to review it."
	msgNoPending      = "No pending registration request found for this user. They may have already been approved or rejected."
	msgNotRegistered  = "You're not currently registered with any team."
)

func msgAlreadyApproved(team string) string {
	return fmt.Sprintf("You're already registered with team %s!", team)
}

func msgThrottled(seconds int) string {
	unit := "seconds"
	if seconds == 1 {
		unit = "second"
	}
	return fmt.Sprintf("Please wait %d %s before trying to register again.", seconds, unit)
}

func msgNoTeamMatch(input string) string {
	return fmt.Sprintf("No matching team found. Please try again with a valid team name. You entered: \"%s\"", input)
}

func msgSuggestion(team, input string) string {
	return fmt.Sprintf("Did you mean to join team **%s**? Your entry \"%s\" was similar but not exact.\n\n"+
		"Please use the `/register` command again and enter the team name shown above if you want to join this team.", team, input)
}

// SubmittedMessage confirms a new pending request to its submitter.
func SubmittedMessage(team string) string {
	return fmt.Sprintf("Your registration request for team **%s** has been submitted! A moderator will review it shortly.", team)
}

// UnregisteredMessage confirms that the user left their team.
func UnregisteredMessage(team string) string {
	return fmt.Sprintf("You have successfully left team **%s**. You can register for a new team with the `/register` command.", team)
}

// ModerationRequestText is the body of the moderator notification for a pending request.
func ModerationRequestText(mention string, notice ModerationNotice) string {
	if mention == "" {
		mention = "@Moderators"
	}
	return fmt.Sprintf("%s New registration request:\n\n**User:** <@%s>\n**Name:** %s\n**Team:** %s",
		mention, notice.UserID, notice.FullName, notice.TeamName)
}

func approvalDM(team, voiceChannelID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Congratulations! Your registration for team **%s** has been approved.", team)
	if voiceChannelID != "" {
		fmt.Fprintf(&b, "\n\nYou can join your team's voice channel here: <#%s>", voiceChannelID)
	}
	return b.String()
}

func rejectionDM(team, reason string) string {
	return fmt.Sprintf("Your registration request for team **%s** has been rejected.\n\n**Reason:** %s\n\n"+
		"You can register for a different team using the `/register` command.", team, reason)
}

// ApprovedLogText is the terminal rendering of an approved moderator notice.
func ApprovedLogText(userID, fullName, team, moderatorID string) string {
	return fmt.Sprintf("Registration request for <@%s> (%s) for team **%s** has been **APPROVED** by <@%s>.",
		userID, fullName, team, moderatorID)
}

func rejectedLogText(userID, fullName, team, moderatorID, reason string) string {
	return fmt.Sprintf("Registration request for <@%s> (%s) for team **%s** has been **REJECTED** by <@%s>.\n\n**Reason:** %s",
		userID, fullName, team, moderatorID, reason)
}

// ApprovedFallbackMessage tells the moderator the approval committed even though
// the notice could not be rewritten.
func ApprovedFallbackMessage(userID, team string) string {
	return fmt.Sprintf("Failed to update the original message, but registration for <@%s> (team **%s**) has been approved.", userID, team)
}
