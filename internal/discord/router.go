package discord

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/angelmondragon/hackbot/internal/registrations"
	"github.com/angelmondragon/hackbot/internal/teams"
	pkgerrors "github.com/angelmondragon/hackbot/pkg/errors"
	"github.com/angelmondragon/hackbot/pkg/logger"
)

const (
	interactionTimeout = 60 * time.Second

	msgRegistrationFailed = "An error occurred while processing your registration. Please try again later."
	msgUnregisterFailed   = "An error occurred while trying to unregister. Please try again later."
	msgCommandFailed      = "There was an error while executing this command!"
	msgModerationFailed   = "There was an error processing your request."
	msgModeratorsOnly     = "Only moderators can review registration requests."
	msgRejected           = "Registration request has been rejected."
	msgInvalidRejection   = "Invalid rejection modal"
)

type responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type moderatorRoleLookup interface {
	RoleByName(ctx context.Context, name string) (*discordgo.Role, error)
}

// Router dispatches slash commands, button clicks and modal submissions.
type Router struct {
	rest          responder
	registrations registrations.Service
	teams         teams.Service
	db            pinger
	roles         moderatorRoleLookup
	moderatorRole string
	latency       func() time.Duration
	started       time.Time
	logg          *logger.Logger
}

// RouterDeps lists the collaborators of a Router. DB and Latency are optional.
type RouterDeps struct {
	Rest          responder
	Registrations registrations.Service
	Teams         teams.Service
	DB            pinger
	Roles         moderatorRoleLookup
	ModeratorRole string
	Latency       func() time.Duration
	Logger        *logger.Logger
}

// NewRouter builds the interaction router.
func NewRouter(deps RouterDeps) (*Router, error) {
	if deps.Rest == nil {
		return nil, fmt.Errorf("interaction responder required")
	}
	if deps.Registrations == nil {
		return nil, fmt.Errorf("registration service required")
	}
	if deps.Teams == nil {
		return nil, fmt.Errorf("team service required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Latency == nil {
		deps.Latency = func() time.Duration { return 0 }
	}
	return &Router{
		rest:          deps.Rest,
		registrations: deps.Registrations,
		teams:         deps.Teams,
		db:            deps.DB,
		roles:         deps.Roles,
		moderatorRole: deps.ModeratorRole,
		latency:       deps.Latency,
		started:       time.Now(),
		logg:          deps.Logger,
	}, nil
}

// Handle is registered with the gateway session for InteractionCreate events.
func (r *Router) Handle(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	r.Dispatch(ctx, ic.Interaction)
}

// Dispatch routes one interaction to its handler.
func (r *Router) Dispatch(ctx context.Context, i *discordgo.Interaction) {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"interaction_id": i.ID,
		"request_id":     uuid.NewString(),
	})
	ctx = r.logg.WithUserID(ctx, invokerID(i))

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		r.handleButton(ctx, i)
	case discordgo.InteractionModalSubmit:
		r.handleModal(ctx, i)
	}
}

func (r *Router) handleCommand(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	ctx = r.logg.WithField(ctx, "command", data.Name)

	switch data.Name {
	case CommandRegister:
		r.openRegistration(ctx, i)
	case CommandUnregister:
		r.unregister(ctx, i)
	case CommandTeams:
		listAll := false
		for _, opt := range data.Options {
			if opt.Name == optionListAll {
				listAll = opt.BoolValue()
			}
		}
		r.listTeams(ctx, i, listAll)
	case CommandRegistrations:
		r.showStats(ctx, i)
	case CommandHealth:
		r.health(ctx, i)
	case CommandPing:
		r.replyEphemeral(ctx, i, fmt.Sprintf("🏓 Pong! Gateway latency: %dms", r.latency().Milliseconds()))
	default:
		r.logg.Warn(ctx, "unknown command")
	}
}

func (r *Router) handleButton(ctx context.Context, i *discordgo.Interaction) {
	prefix, userID := ParseCustomID(i.MessageComponentData().CustomID)
	switch prefix {
	case ButtonRegisterTeam:
		r.openRegistration(ctx, i)
	case ButtonApproveRegistration:
		r.approve(ctx, i, userID)
	case ButtonRejectRegistration:
		r.openRejection(ctx, i, userID)
	default:
		r.logg.Warn(r.logg.WithField(ctx, "custom_id", prefix), "unknown button")
	}
}

func (r *Router) handleModal(ctx context.Context, i *discordgo.Interaction) {
	data := i.ModalSubmitData()
	prefix, userID := ParseCustomID(data.CustomID)
	switch prefix {
	case ModalRegistration:
		r.submitRegistration(ctx, i, data)
	case ModalRejectionReason:
		r.submitRejection(ctx, i, data, userID)
	default:
		r.logg.Warn(r.logg.WithField(ctx, "custom_id", prefix), "unknown modal")
	}
}

func (r *Router) openRegistration(ctx context.Context, i *discordgo.Interaction) {
	if err := r.registrations.PreCheck(ctx, invokerID(i)); err != nil {
		r.replyError(ctx, i, err, msgRegistrationFailed)
		return
	}
	r.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: registrationModal(),
	})
}

func (r *Router) submitRegistration(ctx context.Context, i *discordgo.Interaction, data discordgo.ModalSubmitInteractionData) {
	r.deferEphemeral(ctx, i)

	record, err := r.registrations.Submit(ctx, registrations.SubmitInput{
		UserID:    invokerID(i),
		FullName:  modalValue(data, FieldFullName),
		TeamInput: modalValue(data, FieldTeamName),
		IsAdmin:   hasPermission(i, discordgo.PermissionAdministrator),
	})
	if err != nil {
		r.editReply(ctx, i, userMessage(err, msgRegistrationFailed))
		return
	}
	r.editReply(ctx, i, registrations.SubmittedMessage(record.TeamName))
}

func (r *Router) unregister(ctx context.Context, i *discordgo.Interaction) {
	team, err := r.registrations.Unregister(ctx, invokerID(i))
	if err != nil {
		r.replyError(ctx, i, err, msgUnregisterFailed)
		return
	}
	r.replyEphemeral(ctx, i, registrations.UnregisteredMessage(team))
}

func (r *Router) approve(ctx context.Context, i *discordgo.Interaction, userID string) {
	if !r.isModerator(ctx, i) {
		r.replyEphemeral(ctx, i, msgModeratorsOnly)
		return
	}
	r.respond(ctx, i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate})

	record, err := r.registrations.Approve(ctx, userID, invokerID(i))
	if err != nil {
		r.followUp(ctx, i, userMessage(err, msgModerationFailed))
		return
	}
	text := registrations.ApprovedLogText(record.UserID, record.FullName, record.TeamName, invokerID(i))
	if err := r.closeNotice(ctx, i, text); err != nil {
		r.logg.WarnErr(ctx, "moderation notice update failed", err)
		r.followUp(ctx, i, registrations.ApprovedFallbackMessage(record.UserID, record.TeamName))
	}
}

// closeNotice rewrites the message that carried the buttons and drops them.
func (r *Router) closeNotice(ctx context.Context, i *discordgo.Interaction, text string) error {
	edit := &discordgo.WebhookEdit{Content: &text, Components: &[]discordgo.MessageComponent{}}
	_, err := r.rest.InteractionResponseEdit(i, edit, discordgo.WithContext(ctx))
	return err
}

func (r *Router) openRejection(ctx context.Context, i *discordgo.Interaction, userID string) {
	if !r.isModerator(ctx, i) {
		r.replyEphemeral(ctx, i, msgModeratorsOnly)
		return
	}
	r.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: rejectionModal(userID),
	})
}

func (r *Router) submitRejection(ctx context.Context, i *discordgo.Interaction, data discordgo.ModalSubmitInteractionData, userID string) {
	if userID == "" {
		r.replyEphemeral(ctx, i, msgInvalidRejection)
		return
	}
	if !r.isModerator(ctx, i) {
		r.replyEphemeral(ctx, i, msgModeratorsOnly)
		return
	}
	r.deferEphemeral(ctx, i)

	_, err := r.registrations.Reject(ctx, registrations.RejectInput{
		UserID:      userID,
		ModeratorID: invokerID(i),
		Reason:      modalValue(data, FieldRejectionReason),
	})
	if err != nil {
		r.editReply(ctx, i, userMessage(err, msgModerationFailed))
		return
	}
	r.editReply(ctx, i, msgRejected)
}

func (r *Router) listTeams(ctx context.Context, i *discordgo.Interaction, listAll bool) {
	if listAll {
		r.replyEmbed(ctx, i, rosterEmbed(r.teams.Roster()), true)
		return
	}
	rows, err := r.teams.Summaries(ctx)
	if err != nil {
		r.replyError(ctx, i, err, msgCommandFailed)
		return
	}
	r.replyEmbed(ctx, i, teamSummaryEmbed(rows), false)
}

func (r *Router) showStats(ctx context.Context, i *discordgo.Interaction) {
	stats, err := r.registrations.Stats(ctx)
	if err != nil {
		r.replyError(ctx, i, err, msgCommandFailed)
		return
	}
	r.replyEmbed(ctx, i, statsEmbed(stats), true)
}

func (r *Router) health(ctx context.Context, i *discordgo.Interaction) {
	gateway := r.latency()
	dbStatus, dbLatency := "⚪ Not configured", "N/A"
	if r.db != nil {
		started := time.Now()
		if err := r.db.Ping(ctx); err != nil {
			r.logg.WarnErr(ctx, "database ping failed", err)
			dbStatus = "🔴 Error"
		} else {
			dbStatus = "🟢 Connected"
			dbLatency = fmt.Sprintf("%dms", time.Since(started).Milliseconds())
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	embed := &discordgo.MessageEmbed{
		Title: "Bot Health Status",
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Discord API", Value: fmt.Sprintf("%s (%dms)", latencyStatus(gateway), gateway.Milliseconds()), Inline: true},
			{Name: "Database", Value: fmt.Sprintf("%s (%s)", dbStatus, dbLatency), Inline: true},
			{Name: "Bot Uptime", Value: time.Since(r.started).Truncate(time.Second).String(), Inline: true},
			{Name: "System Memory", Value: fmt.Sprintf("%.2f MB", float64(mem.HeapAlloc)/1024/1024), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	r.replyEmbed(ctx, i, embed, false)
}

func latencyStatus(d time.Duration) string {
	switch {
	case d < 200*time.Millisecond:
		return "🟢 Good"
	case d < 500*time.Millisecond:
		return "🟡 Degraded"
	default:
		return "🔴 Poor"
	}
}

// isModerator accepts administrators, members who can manage roles, and
// holders of the configured moderator role.
func (r *Router) isModerator(ctx context.Context, i *discordgo.Interaction) bool {
	if hasPermission(i, discordgo.PermissionAdministrator) || hasPermission(i, discordgo.PermissionManageRoles) {
		return true
	}
	if i.Member == nil || r.roles == nil || r.moderatorRole == "" {
		return false
	}
	role, err := r.roles.RoleByName(ctx, r.moderatorRole)
	if err != nil {
		r.logg.WarnErr(ctx, "moderator role lookup failed", err)
		return false
	}
	if role == nil {
		return false
	}
	for _, id := range i.Member.Roles {
		if id == role.ID {
			return true
		}
	}
	return false
}

func (r *Router) respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) {
	if err := r.rest.InteractionRespond(i, resp, discordgo.WithContext(ctx)); err != nil {
		r.logg.WarnErr(ctx, "interaction response failed", err)
	}
}

func (r *Router) replyEphemeral(ctx context.Context, i *discordgo.Interaction, content string) {
	r.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (r *Router) replyEmbed(ctx context.Context, i *discordgo.Interaction, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	r.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (r *Router) replyError(ctx context.Context, i *discordgo.Interaction, err error, fallback string) {
	if !pkgerrors.IsExpected(err) {
		r.logg.Error(ctx, "interaction failed", err)
	}
	r.replyEphemeral(ctx, i, userMessage(err, fallback))
}

func (r *Router) deferEphemeral(ctx context.Context, i *discordgo.Interaction) {
	r.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (r *Router) editReply(ctx context.Context, i *discordgo.Interaction, content string) {
	if _, err := r.rest.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &content}, discordgo.WithContext(ctx)); err != nil {
		r.logg.WarnErr(ctx, "interaction edit failed", err)
	}
}

func (r *Router) followUp(ctx context.Context, i *discordgo.Interaction, content string) {
	params := &discordgo.WebhookParams{Content: content, Flags: discordgo.MessageFlagsEphemeral}
	if _, err := r.rest.FollowupMessageCreate(i, false, params, discordgo.WithContext(ctx)); err != nil {
		r.logg.WarnErr(ctx, "interaction follow-up failed", err)
	}
}

// userMessage returns the text shown to the invoking user: the error's own
// message when the outcome is expected, the fallback otherwise.
func userMessage(err error, fallback string) string {
	if !pkgerrors.IsExpected(err) {
		return fallback
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return fallback
}

func invokerID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func hasPermission(i *discordgo.Interaction, perm int64) bool {
	return i.Member != nil && i.Member.Permissions&perm == perm
}
