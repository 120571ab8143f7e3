package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/angelmondragon/hackbot/internal/registrations"
	"github.com/angelmondragon/hackbot/pkg/outbound"
)

// Notifier sends direct messages and moderator notices through the guild.
type Notifier struct {
	rest          restClient
	exec          *outbound.Executor
	dir           *directory
	modLogChannel string
	moderatorRole string
}

var _ registrations.Notifier = (*Notifier)(nil)

func newNotifier(rest restClient, exec *outbound.Executor, dir *directory, modLogChannel, moderatorRole string) *Notifier {
	return &Notifier{
		rest:          rest,
		exec:          exec,
		dir:           dir,
		modLogChannel: modLogChannel,
		moderatorRole: moderatorRole,
	}
}

// NotifyUser opens a DM channel with the user and posts message there.
func (n *Notifier) NotifyUser(ctx context.Context, userID, message string) error {
	return n.exec.Do(ctx, "notify_user", func(ctx context.Context) error {
		ch, err := n.rest.UserChannelCreate(userID, discordgo.WithContext(ctx))
		if err != nil {
			return err
		}
		_, err = n.rest.ChannelMessageSend(ch.ID, message, discordgo.WithContext(ctx))
		return err
	})
}

func (n *Notifier) sendEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	return n.exec.Do(ctx, "notify_user", func(ctx context.Context) error {
		ch, err := n.rest.UserChannelCreate(userID, discordgo.WithContext(ctx))
		if err != nil {
			return err
		}
		_, err = n.rest.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{embed},
		}, discordgo.WithContext(ctx))
		return err
	})
}

// PostModeration posts the request to the moderation log with approve and
// reject buttons. The returned reference is "<channelID>/<messageID>".
func (n *Notifier) PostModeration(ctx context.Context, notice registrations.ModerationNotice) (string, error) {
	ch, err := n.dir.requireTextChannel(ctx, n.modLogChannel)
	if err != nil {
		return "", err
	}

	mention := ""
	role, err := n.dir.RoleByName(ctx, n.moderatorRole)
	if err != nil {
		return "", err
	}
	if role != nil {
		mention = "<@&" + role.ID + ">"
	}

	msg, err := outbound.Call(ctx, n.exec, "modlog_post", func(ctx context.Context) (*discordgo.Message, error) {
		return n.rest.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
			Content:    registrations.ModerationRequestText(mention, notice),
			Components: moderatorButtons(notice.UserID),
		}, discordgo.WithContext(ctx))
	})
	if err != nil {
		return "", err
	}
	return ch.ID + "/" + msg.ID, nil
}

// FinalizeModeration rewrites the moderator notice and removes its buttons.
func (n *Notifier) FinalizeModeration(ctx context.Context, ref, text string) error {
	channelID, messageID, ok := strings.Cut(ref, "/")
	if !ok || channelID == "" || messageID == "" {
		return fmt.Errorf("malformed moderation reference %q", ref)
	}
	return n.exec.Do(ctx, "modlog_finalize", func(ctx context.Context) error {
		edit := discordgo.NewMessageEdit(channelID, messageID).SetContent(text)
		edit.Components = &[]discordgo.MessageComponent{}
		_, err := n.rest.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
		return err
	})
}
