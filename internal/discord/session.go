package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	gocache "github.com/patrickmn/go-cache"

	"github.com/angelmondragon/hackbot/pkg/outbound"
)

const directoryTTL = 5 * time.Minute

// restClient is the subset of *discordgo.Session the bot calls over REST.
type restClient interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

var _ restClient = (*discordgo.Session)(nil)

// directory resolves guild roles and channels by name, caching the listings briefly.
type directory struct {
	rest    restClient
	exec    *outbound.Executor
	guildID string
	cache   *gocache.Cache
}

func newDirectory(rest restClient, exec *outbound.Executor, guildID string) *directory {
	return &directory{
		rest:    rest,
		exec:    exec,
		guildID: guildID,
		cache:   gocache.New(directoryTTL, 2*directoryTTL),
	}
}

const (
	keyRoles    = "roles"
	keyChannels = "channels"
)

// roles returns the guild roles and whether they came from the cache.
func (d *directory) roles(ctx context.Context) ([]*discordgo.Role, bool, error) {
	if cached, ok := d.cache.Get(keyRoles); ok {
		return cached.([]*discordgo.Role), true, nil
	}
	roles, err := outbound.Call(ctx, d.exec, "guild_roles", func(ctx context.Context) ([]*discordgo.Role, error) {
		return d.rest.GuildRoles(d.guildID, discordgo.WithContext(ctx))
	})
	if err != nil {
		return nil, false, err
	}
	d.cache.SetDefault(keyRoles, roles)
	return roles, false, nil
}

// channels returns the guild channels and whether they came from the cache.
func (d *directory) channels(ctx context.Context) ([]*discordgo.Channel, bool, error) {
	if cached, ok := d.cache.Get(keyChannels); ok {
		return cached.([]*discordgo.Channel), true, nil
	}
	channels, err := outbound.Call(ctx, d.exec, "guild_channels", func(ctx context.Context) ([]*discordgo.Channel, error) {
		return d.rest.GuildChannels(d.guildID, discordgo.WithContext(ctx))
	})
	if err != nil {
		return nil, false, err
	}
	d.cache.SetDefault(keyChannels, channels)
	return channels, false, nil
}

// RoleByName returns the role with the given name, or nil when none exists.
// A miss against a cached listing refetches once.
func (d *directory) RoleByName(ctx context.Context, name string) (*discordgo.Role, error) {
	for {
		roles, cached, err := d.roles(ctx)
		if err != nil {
			return nil, err
		}
		for _, role := range roles {
			if role.Name == name {
				return role, nil
			}
		}
		if !cached {
			return nil, nil
		}
		d.cache.Delete(keyRoles)
	}
}

// TextChannelByName matches a guild text channel by name, ignoring case.
func (d *directory) TextChannelByName(ctx context.Context, name string) (*discordgo.Channel, error) {
	return d.channelByName(ctx, name, discordgo.ChannelTypeGuildText)
}

// VoiceChannelByName matches a guild voice channel by name, ignoring case.
func (d *directory) VoiceChannelByName(ctx context.Context, name string) (*discordgo.Channel, error) {
	return d.channelByName(ctx, name, discordgo.ChannelTypeGuildVoice)
}

func (d *directory) channelByName(ctx context.Context, name string, kind discordgo.ChannelType) (*discordgo.Channel, error) {
	for {
		channels, cached, err := d.channels(ctx)
		if err != nil {
			return nil, err
		}
		for _, ch := range channels {
			if ch.Type == kind && strings.EqualFold(ch.Name, name) {
				return ch, nil
			}
		}
		if !cached {
			return nil, nil
		}
		d.cache.Delete(keyChannels)
	}
}

func (d *directory) requireTextChannel(ctx context.Context, name string) (*discordgo.Channel, error) {
	ch, err := d.TextChannelByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %q not found in guild %s", name, d.guildID)
	}
	return ch, nil
}

// Invalidate drops cached listings so the next lookup refetches them.
func (d *directory) Invalidate() {
	d.cache.Flush()
}
