package credits

import (
	"context"
	"fmt"

	"broadcaster/bot/common"
	"broadcaster/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (f *Feature) handleCredits(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	discordID, user, err := common.InteractionDiscordID(i)
	if err != nil {
		log.Errorf("Error resolving interaction user: %v", err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	// First contact creates the account
	if _, err := f.accountService.Upsert(ctx, models.AccountProfile{
		DiscordID: discordID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL(""),
	}); err != nil {
		log.Errorf("Error upserting account %d: %v", discordID, err)
		common.RespondWithError(s, i, "Unable to retrieve credits. Please try again.")
		return
	}

	stats, err := f.statsService.UserStats(ctx, discordID)
	if err != nil {
		log.Errorf("Error getting stats for %d: %v", discordID, err)
		common.RespondWithError(s, i, "Unable to retrieve credits. Please try again.")
		return
	}

	common.RespondWithEmbed(s, i, buildCreditsEmbed(user.Username, stats), true)
}

func buildCreditsEmbed(username string, stats *models.UserStats) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "💳 Broadcast Credits",
		Description: fmt.Sprintf("%s, you have **%s credits**. One credit sends one message.", username, common.FormatCredits(stats.Credits)),
		Color:       common.ColorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Credits Spent", Value: common.FormatCredits(stats.TotalSpent), Inline: true},
			{Name: "Messages Sent", Value: common.FormatCredits(stats.TotalMessagesSent), Inline: true},
			{Name: "Broadcasts", Value: common.FormatCredits(stats.TotalBroadcasts), Inline: true},
		},
	}
}
