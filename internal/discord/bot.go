package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/angelmondragon/hackbot/pkg/config"
	"github.com/angelmondragon/hackbot/pkg/logger"
	"github.com/angelmondragon/hackbot/pkg/outbound"
)

const welcomeTimeout = 30 * time.Second

var welcomeFallbackChannels = []string{"general", "welcome", "chat"}

// Bot owns the gateway session and the platform adapters built on it.
type Bot struct {
	cfg      config.DiscordConfig
	session  *discordgo.Session
	rest     restClient
	exec     *outbound.Executor
	dir      *directory
	notifier *Notifier
	access   *Access
	audit    *AuditWriter
	logg     *logger.Logger
}

// New creates the gateway session without connecting it.
func New(cfg config.DiscordConfig, exec *outbound.Executor, audit *AuditWriter, logg *logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token required")
	}
	if exec == nil {
		return nil, fmt.Errorf("outbound executor required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	return newBot(cfg, session, session, exec, audit, logg), nil
}

func newBot(cfg config.DiscordConfig, session *discordgo.Session, rest restClient, exec *outbound.Executor, audit *AuditWriter, logg *logger.Logger) *Bot {
	if logg == nil {
		logg = logger.Nop()
	}
	dir := newDirectory(rest, exec, cfg.GuildID)
	return &Bot{
		cfg:      cfg,
		session:  session,
		rest:     rest,
		exec:     exec,
		dir:      dir,
		notifier: newNotifier(rest, exec, dir, cfg.ModLogChannel, cfg.ModeratorRole),
		access: &Access{
			rest:              rest,
			exec:              exec,
			dir:               dir,
			guildID:           cfg.GuildID,
			teamRolePrefix:    cfg.TeamRolePrefix,
			participantRoleID: cfg.ParticipantRoleID,
			voicePrefix:       cfg.VoiceChannelPrefix,
		},
		audit: audit,
		logg:  logg,
	}
}

// Notifier returns the DM and moderation-log adapter.
func (b *Bot) Notifier() *Notifier { return b.notifier }

// Access returns the role and voice channel adapter.
func (b *Bot) Access() *Access { return b.access }

// Session exposes the underlying gateway session.
func (b *Bot) Session() *discordgo.Session { return b.session }

// NewRouter builds an interaction router wired to this bot's session.
func (b *Bot) NewRouter(deps RouterDeps) (*Router, error) {
	deps.Rest = b.session
	deps.Roles = b.dir
	deps.ModeratorRole = b.cfg.ModeratorRole
	deps.Latency = b.session.HeartbeatLatency
	if deps.Logger == nil {
		deps.Logger = b.logg
	}
	return NewRouter(deps)
}

// Open registers handlers, connects to the gateway and binds the audit channel.
func (b *Bot) Open(ctx context.Context, router *Router) error {
	if router == nil {
		return fmt.Errorf("interaction router required")
	}
	b.session.AddHandler(router.Handle)
	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.logg.Info(b.logg.WithField(context.Background(), "bot_user", r.User.Username), "discord session ready")
	})
	b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.GuildRoleCreate) { b.dir.Invalidate() })
	b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.GuildRoleUpdate) { b.dir.Invalidate() })
	b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.ChannelCreate) { b.dir.Invalidate() })
	b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.ChannelUpdate) { b.dir.Invalidate() })
	if b.cfg.WelcomeDM {
		b.session.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
			ctx, cancel := context.WithTimeout(context.Background(), welcomeTimeout)
			defer cancel()
			b.Welcome(ctx, m.User.ID)
		})
	}

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	b.bindAudit(ctx)
	return nil
}

func (b *Bot) bindAudit(ctx context.Context) {
	if b.audit == nil || b.cfg.AuditChannel == "" {
		return
	}
	ch, err := b.dir.TextChannelByName(ctx, b.cfg.AuditChannel)
	if err != nil {
		b.logg.WarnErr(ctx, "audit channel lookup failed", err)
		return
	}
	if ch == nil {
		b.logg.Info(b.logg.WithField(ctx, "channel", b.cfg.AuditChannel), "audit channel not found, mirroring disabled")
		return
	}
	b.audit.Bind(b.rest, ch.ID)
}

// Welcome DMs registration instructions to a new member, falling back to a
// public greeting when DMs are closed.
func (b *Bot) Welcome(ctx context.Context, userID string) {
	ctx = b.logg.WithUserID(ctx, userID)
	err := b.notifier.sendEmbed(ctx, userID, welcomeEmbed())
	if err == nil {
		b.logg.Info(ctx, "welcome dm sent")
		return
	}
	b.logg.WarnErr(ctx, "welcome dm failed", err)

	for _, name := range welcomeFallbackChannels {
		ch, lookupErr := b.dir.TextChannelByName(ctx, name)
		if lookupErr != nil || ch == nil {
			continue
		}
		sendErr := b.exec.Do(ctx, "welcome_fallback", func(ctx context.Context) error {
			_, err := b.rest.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
				Content: fmt.Sprintf("Welcome <@%s>!", userID),
				Embeds:  []*discordgo.MessageEmbed{welcomeEmbed()},
			}, discordgo.WithContext(ctx))
			return err
		})
		if sendErr != nil {
			b.logg.WarnErr(ctx, "welcome fallback failed", sendErr)
		}
		return
	}
}

// PostPanel posts the registration panel with the roster to the named text channel.
func (b *Bot) PostPanel(ctx context.Context, channelName string, roster []string) (string, error) {
	ch, err := b.dir.requireTextChannel(ctx, channelName)
	if err != nil {
		return "", err
	}
	msg, err := outbound.Call(ctx, b.exec, "post_panel", func(ctx context.Context) (*discordgo.Message, error) {
		return b.rest.ChannelMessageSendComplex(ch.ID, RegistrationPanel(roster), discordgo.WithContext(ctx))
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	if b.session == nil {
		return nil
	}
	return b.session.Close()
}
