package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/angelmondragon/hackbot/pkg/outbound"
)

const (
	CommandRegister      = "register"
	CommandUnregister    = "unregister"
	CommandTeams         = "teams"
	CommandRegistrations = "registrations"
	CommandHealth        = "health"
	CommandPing          = "ping"

	optionListAll = "list_all"
)

var manageRoles int64 = discordgo.PermissionManageRoles

// Commands returns the slash commands the bot answers.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: CommandRegister, Description: "Register for a hackathon team"},
		{Name: CommandUnregister, Description: "Leave your current hackathon team"},
		{
			Name:        CommandTeams,
			Description: "List teams participating in the hackathon",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        optionListAll,
				Description: "List all available teams (default: false)",
			}},
		},
		{
			Name:                     CommandRegistrations,
			Description:              "Show registration statistics",
			DefaultMemberPermissions: &manageRoles,
		},
		{Name: CommandHealth, Description: "Check the health status of the bot and database"},
		{Name: CommandPing, Description: "Check if the bot is online and responsive"},
	}
}

type commandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// RegisterCommands replaces the guild's slash commands with Commands().
func RegisterCommands(ctx context.Context, rest commandRegistrar, exec *outbound.Executor, appID, guildID string) (int, error) {
	if appID == "" {
		return 0, fmt.Errorf("application id required")
	}
	created, err := outbound.Call(ctx, exec, "register_commands", func(ctx context.Context) ([]*discordgo.ApplicationCommand, error) {
		return rest.ApplicationCommandBulkOverwrite(appID, guildID, Commands(), discordgo.WithContext(ctx))
	})
	if err != nil {
		return 0, err
	}
	return len(created), nil
}
