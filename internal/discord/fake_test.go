package discord

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/angelmondragon/hackbot/pkg/config"
	"github.com/angelmondragon/hackbot/pkg/outbound"
)

type sentMessage struct {
	channelID string
	content   string
	data      *discordgo.MessageSend
}

type roleChange struct {
	add    bool
	userID string
	roleID string
}

type fakeRest struct {
	mu sync.Mutex

	roles    []*discordgo.Role
	channels []*discordgo.Channel

	sent      []sentMessage
	edits     []*discordgo.MessageEdit
	roleCalls []roleChange
	dmErr     error
	roleErr   error
	listCalls int

	responses    []*discordgo.InteractionResponse
	edited       []string
	webhookEdits []*discordgo.WebhookEdit
	editErr      error
	followups []string

	nextID int
}

func (f *fakeRest) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeRest) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dmErr != nil {
		return nil, f.dmErr
	}
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (f *fakeRest) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: content})
	return &discordgo.Message{ID: f.id("msg"), ChannelID: channelID, Content: content}, nil
}

func (f *fakeRest) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: data.Content, data: data})
	return &discordgo.Message{ID: f.id("msg"), ChannelID: channelID, Content: data.Content}, nil
}

func (f *fakeRest) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeRest) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.roles, nil
}

func (f *fakeRest) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.channels, nil
}

func (f *fakeRest) GuildMemberRoleAdd(_, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleErr != nil {
		return f.roleErr
	}
	f.roleCalls = append(f.roleCalls, roleChange{add: true, userID: userID, roleID: roleID})
	return nil
}

func (f *fakeRest) GuildMemberRoleRemove(_, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleCalls = append(f.roleCalls, roleChange{add: false, userID: userID, roleID: roleID})
	return nil
}

func (f *fakeRest) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeRest) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.webhookEdits = append(f.webhookEdits, edit)
	if edit.Content != nil {
		f.edited = append(f.edited, *edit.Content)
	}
	return &discordgo.Message{}, nil
}

func (f *fakeRest) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, params *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, params.Content)
	return &discordgo.Message{}, nil
}

func (f *fakeRest) ApplicationCommandBulkOverwrite(_, _ string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	return commands, nil
}

func testGuild() *fakeRest {
	return &fakeRest{
		roles: []*discordgo.Role{
			{ID: "role-mod", Name: "Moderator"},
			{ID: "role-phoenix", Name: "Team-Phoenix"},
			{ID: "role-crusaders", Name: "Team-Code Crusaders"},
		},
		channels: []*discordgo.Channel{
			{ID: "ch-modlog", Name: "mod-log", Type: discordgo.ChannelTypeGuildText},
			{ID: "ch-audit", Name: "bot-audit", Type: discordgo.ChannelTypeGuildText},
			{ID: "ch-general", Name: "general", Type: discordgo.ChannelTypeGuildText},
			{ID: "vc-crusaders", Name: "🔊 CodeCrusaders", Type: discordgo.ChannelTypeGuildVoice},
			{ID: "tc-crusaders", Name: "🔊 CodeCrusaders", Type: discordgo.ChannelTypeGuildText},
		},
	}
}

func testDiscordConfig() config.DiscordConfig {
	return config.DiscordConfig{
		GuildID:            "guild-1",
		ModLogChannel:      "mod-log",
		AuditChannel:       "bot-audit",
		ModeratorRole:      "Moderator",
		ParticipantRoleID:  "role-participant",
		TeamRolePrefix:     "Team-",
		VoiceChannelPrefix: "🔊 ",
		WelcomeDM:          true,
	}
}

func testExecutor() *outbound.Executor {
	return outbound.New(config.OutboundConfig{
		RequestsPerSecond: 1000,
		Burst:             10,
		MaxRetries:        2,
		MaxElapsed:        time.Second,
		CallTimeout:       time.Second,
	}, outbound.WithInitialInterval(time.Millisecond), outbound.WithClassifier(Retryable))
}

func testBot(rest *fakeRest) *Bot {
	return newBot(testDiscordConfig(), nil, rest, testExecutor(), NewAuditWriter(), nil)
}

var errClosedDMs = errors.New("cannot send messages to this user")

func httpResponse(status int) *http.Response {
	return &http.Response{StatusCode: status}
}
