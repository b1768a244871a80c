package bot

import (
	"fmt"

	"broadcaster/models"

	"github.com/bwmarrin/discordgo"
)

var minPayment = float64(1)

// applicationCommands returns the slash commands the bot serves
func applicationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "credits",
			Description: "Check your broadcast credits",
		},
		{
			Name:        "history",
			Description: "Show your recent credit transactions",
		},
		{
			Name:        "pay",
			Description: "Buy broadcast credits with ProBot credits",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "ProBot credits you will transfer",
					Required:    true,
					MinValue:    &minPayment,
				},
			},
		},
		{
			Name:        "broadcast",
			Description: "DM a message to members of this server (one credit per delivered message)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "The message to send",
					Required:    true,
					MaxLength:   2000,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "target",
					Description: "Who receives the message",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Everyone", Value: string(models.TargetTypeAll)},
						{Name: "Online members", Value: string(models.TargetTypeOnline)},
						{Name: "Offline members", Value: string(models.TargetTypeOffline)},
						{Name: "Members with a role", Value: string(models.TargetTypeRole)},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role to target when target is role",
					Required:    false,
				},
			},
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	for _, cmd := range applicationCommands() {
		created, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
		b.commands = append(b.commands, created)
	}
	return nil
}
