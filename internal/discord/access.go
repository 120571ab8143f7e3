package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/angelmondragon/hackbot/internal/registrations"
	"github.com/angelmondragon/hackbot/pkg/outbound"
)

// Access grants and revokes team roles, and locates team voice channels.
type Access struct {
	rest              restClient
	exec              *outbound.Executor
	dir               *directory
	guildID           string
	teamRolePrefix    string
	participantRoleID string
	voicePrefix       string
}

var (
	_ registrations.AccessGranter       = (*Access)(nil)
	_ registrations.VoiceChannelLocator = (*Access)(nil)
)

// Grant adds the team role, and the participant role when one is configured.
func (a *Access) Grant(ctx context.Context, userID, teamName string) error {
	roleName := a.teamRolePrefix + teamName
	role, err := a.dir.RoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	if role == nil {
		return fmt.Errorf("team role %q not found", roleName)
	}

	roleIDs := []string{role.ID}
	if a.participantRoleID != "" {
		roleIDs = append(roleIDs, a.participantRoleID)
	}
	for _, roleID := range roleIDs {
		err := a.exec.Do(ctx, "grant_role", func(ctx context.Context) error {
			return a.rest.GuildMemberRoleAdd(a.guildID, userID, roleID, discordgo.WithContext(ctx))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Revoke removes the team role. A missing role is not an error.
func (a *Access) Revoke(ctx context.Context, userID, teamName string) error {
	role, err := a.dir.RoleByName(ctx, a.teamRolePrefix+teamName)
	if err != nil || role == nil {
		return err
	}
	return a.exec.Do(ctx, "revoke_role", func(ctx context.Context) error {
		return a.rest.GuildMemberRoleRemove(a.guildID, userID, role.ID, discordgo.WithContext(ctx))
	})
}

// VoiceChannelID returns the id of the team's voice channel, or "" when it does not exist.
func (a *Access) VoiceChannelID(ctx context.Context, teamName string) (string, error) {
	ch, err := a.dir.VoiceChannelByName(ctx, a.voicePrefix+PrettyTeamName(teamName))
	if err != nil || ch == nil {
		return "", err
	}
	return ch.ID, nil
}
