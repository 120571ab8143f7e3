package discord

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/bwmarrin/discordgo"

	"github.com/angelmondragon/hackbot/internal/registrations"
	"github.com/angelmondragon/hackbot/internal/teams"
	"github.com/angelmondragon/hackbot/pkg/db/models"
)

const (
	embedColor      = 0x0099ff
	fieldValueLimit = 1000
)

func registrationModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: ModalRegistration,
		Title:    "Team Registration",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    FieldFullName,
					Label:       "Full Name",
					Style:       discordgo.TextInputShort,
					Placeholder: "Enter your full name",
					Required:    true,
					MinLength:   registrations.FullNameMinLength,
					MaxLength:   registrations.FullNameMaxLength,
				},
			}},
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    FieldTeamName,
					Label:       "Team Name",
					Style:       discordgo.TextInputShort,
					Placeholder: "Enter your team name",
					Required:    true,
					MinLength:   1,
					MaxLength:   100,
				},
			}},
		},
	}
}

func rejectionModal(userID string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: UserScopedID(ModalRejectionReason, userID),
		Title:    "Rejection Reason",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    FieldRejectionReason,
					Label:       "Reason for Rejection",
					Style:       discordgo.TextInputParagraph,
					Placeholder: "Please provide a reason for rejecting this registration",
					Required:    true,
					MinLength:   registrations.ReasonMinLength,
					MaxLength:   registrations.ReasonMaxLength,
				},
			}},
		},
	}
}

func moderatorButtons(userID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Approve",
				Style:    discordgo.SuccessButton,
				CustomID: UserScopedID(ButtonApproveRegistration, userID),
			},
			discordgo.Button{
				Label:    "Reject",
				Style:    discordgo.DangerButton,
				CustomID: UserScopedID(ButtonRejectRegistration, userID),
			},
		}},
	}
}

// RegistrationPanel is the pinned message with the "Register for a Team" button.
func RegistrationPanel(roster []string) *discordgo.MessageSend {
	fields := []*discordgo.MessageEmbedField{{
		Name:  "🔍 Available Teams",
		Value: "Here are all available teams you can join. You can copy one of these names or use a similar name.",
	}}
	fields = append(fields, teamListFields(roster, "Team List (copy one of these)")...)
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "📝 Team Registration",
			Description: "Register for a hackathon team by clicking the button below. You will be prompted to enter your details.",
			Color:       embedColor,
			Fields:      fields,
			Footer:      &discordgo.MessageEmbedFooter{Text: "If you make a typo, we'll suggest the closest team name"},
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Register for a Team",
					Style:    discordgo.PrimaryButton,
					CustomID: ButtonRegisterTeam,
				},
			}},
		},
	}
}

func welcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Welcome to the Hackathon Discord Server!",
		Description: "We're excited to have you join us for this event!",
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Getting Started",
				Value: "Please register for a team using the `/register` command or by visiting the registration channel.",
			},
			{
				Name:  "Team Registration",
				Value: "You'll be able to choose from available teams. Once approved by a moderator, you'll get access to your team's private voice channel.",
			},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Hackathon Bot"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func rosterEmbed(roster []string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🔍 Available Hackathon Teams",
		Description: "Here are all teams available for registration. You can use these names when registering.",
		Color:       embedColor,
		Fields:      teamListFields(roster, "Teams"),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func teamSummaryEmbed(rows []teams.Summary) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Hackathon Teams",
		Description: "Current team information and member counts",
		Color:       embedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Use /teams list_all:true to see all available teams"},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if len(rows) == 0 {
		embed.Description = "No team has members yet."
	}
	for _, row := range rows {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   row.TeamName,
			Value:  fmt.Sprintf("%d members", row.MemberCount),
			Inline: true,
		})
	}
	return embed
}

func statsEmbed(stats *registrations.Stats) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Registration Statistics",
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total Registrations", Value: fmt.Sprint(stats.Total), Inline: true},
			{Name: "Pending", Value: fmt.Sprint(stats.Pending), Inline: true},
			{Name: "Approved", Value: fmt.Sprint(stats.Approved), Inline: true},
			{Name: "Rejected", Value: fmt.Sprint(stats.Rejected), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if len(stats.Recent) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Recent Registrations",
			Value: recentLines(stats.Recent),
		})
	}
	return embed
}

func recentLines(rows []models.RegistrationRequest) string {
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%s <@%s> - **%s** - Team: **%s**\n", row.Status.Emoji(), row.UserID, row.FullName, row.TeamName)
	}
	return b.String()
}

// teamListFields renders the sorted roster as embed fields whose values stay
// under the platform's field size limit.
func teamListFields(roster []string, title string) []*discordgo.MessageEmbedField {
	chunks := chunkTeamList(roster, fieldValueLimit)
	fields := make([]*discordgo.MessageEmbedField, 0, len(chunks))
	for i, chunk := range chunks {
		name := title
		if len(chunks) > 1 {
			name = fmt.Sprintf("%s (Part %d/%d)", title, i+1, len(chunks))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: name, Value: chunk})
	}
	return fields
}

func chunkTeamList(roster []string, limit int) []string {
	sorted := append([]string(nil), roster...)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i]) < strings.ToLower(sorted[j])
	})

	var chunks []string
	var current strings.Builder
	for _, team := range sorted {
		entry := "`" + team + "`\n"
		if current.Len() > 0 && current.Len()+len(entry) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(entry)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// PrettyTeamName joins the capitalised words of a team name: "code crusaders" -> "CodeCrusaders".
func PrettyTeamName(team string) string {
	var b strings.Builder
	for _, word := range strings.Fields(team) {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

func modalValue(data discordgo.ModalSubmitInteractionData, field string) string {
	for _, row := range data.Components {
		actions, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actions.Components {
			if input, ok := component.(*discordgo.TextInput); ok && input.CustomID == field {
				return input.Value
			}
		}
	}
	return ""
}
