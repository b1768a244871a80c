package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"broadcaster/bot/common"
	"broadcaster/models"
	"broadcaster/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (f *Feature) handleBroadcast(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	if i.GuildID == "" {
		common.RespondWithError(s, i, "Broadcasts can only be sent from a server.")
		return
	}

	discordID, user, err := common.InteractionDiscordID(i)
	if err != nil {
		log.Errorf("Error resolving interaction user: %v", err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	var (
		message string
		target  = models.TargetTypeAll
		roleID  string
	)
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "message":
			message = strings.TrimSpace(opt.StringValue())
		case "target":
			target = models.TargetType(opt.StringValue())
		case "role":
			roleID = opt.RoleValue(s, i.GuildID).ID
		}
	}

	if message == "" || len(message) > maxMessageLength {
		common.RespondWithError(s, i, fmt.Sprintf("Message must be between 1 and %d characters.", maxMessageLength))
		return
	}
	if target == models.TargetTypeRole && roleID == "" {
		common.RespondWithError(s, i, "Pick a role to target.")
		return
	}

	if _, err := f.accountService.Upsert(ctx, models.AccountProfile{
		DiscordID: discordID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL(""),
	}); err != nil {
		log.Errorf("Error upserting account %d: %v", discordID, err)
		common.RespondWithError(s, i, "Unable to start the broadcast. Please try again.")
		return
	}

	// Sending can take a while
	if err := common.DeferResponse(s, i, true); err != nil {
		log.Errorf("Error deferring broadcast response: %v", err)
		return
	}

	members, err := fetchMembers(s, i.GuildID)
	if err != nil {
		log.Errorf("Error listing members of guild %s: %v", i.GuildID, err)
		common.FollowUpWithError(s, i, "Unable to list server members.")
		return
	}

	recipients := selectRecipients(members, target, roleID, user.ID, presenceChecker(s, i.GuildID))
	if len(recipients) == 0 {
		common.FollowUpWithError(s, i, "No members match that target.")
		return
	}

	guildName := i.GuildID
	if guild, err := s.State.Guild(i.GuildID); err == nil && guild.Name != "" {
		guildName = guild.Name
	}

	result, err := f.executor.Execute(ctx, Request{
		SenderID:   discordID,
		GuildID:    i.GuildID,
		GuildName:  guildName,
		Message:    message,
		TargetType: target,
		Recipients: recipients,
	})
	if err != nil {
		log.Errorf("Error executing broadcast for %d: %v", discordID, err)
		switch {
		case errors.Is(err, service.ErrInsufficientCredits):
			common.FollowUpWithError(s, i, "Your balance does not cover this broadcast. Use `/pay` to buy more.")
		default:
			common.FollowUpWithError(s, i, "The broadcast could not be completed.")
		}
		return
	}

	common.FollowUpWithEmbed(s, i, buildResultEmbed(result), true)
}

func buildResultEmbed(result *Result) *discordgo.MessageEmbed {
	b := result.Broadcast
	embed := &discordgo.MessageEmbed{
		Title: "📣 Broadcast Complete",
		Color: common.ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Sent", Value: common.FormatCredits(b.MessagesSent), Inline: true},
			{Name: "Failed", Value: common.FormatCredits(b.MessagesFailed), Inline: true},
			{Name: "Credits Used", Value: common.FormatCredits(b.CreditsUsed), Inline: true},
		},
	}
	if result.Skipped > 0 {
		embed.Description = fmt.Sprintf("%s members were skipped because your balance ran out.", common.FormatCredits(int64(result.Skipped)))
		embed.Color = common.ColorDanger
	}
	return embed
}
