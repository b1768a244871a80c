package history

import (
	"context"
	"fmt"
	"strings"

	"broadcaster/bot/common"
	"broadcaster/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (f *Feature) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	discordID, _, err := common.InteractionDiscordID(i)
	if err != nil {
		log.Errorf("Error resolving interaction user: %v", err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	txs, err := f.ledgerService.ListTransactions(ctx, discordID, pageSize)
	if err != nil {
		log.Errorf("Error listing transactions for %d: %v", discordID, err)
		common.RespondWithError(s, i, "Unable to load your history. Please try again.")
		return
	}

	common.RespondWithEmbed(s, i, buildHistoryEmbed(txs), true)
}

func buildHistoryEmbed(txs []*models.Transaction) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "📜 Recent Transactions",
		Color: common.ColorPrimary,
	}

	if len(txs) == 0 {
		embed.Description = "No transactions yet. Use `/pay` to buy credits."
		return embed
	}

	var sb strings.Builder
	for _, tx := range txs {
		sb.WriteString(formatTransactionLine(tx))
		sb.WriteString("\n")
	}
	embed.Description = sb.String()
	return embed
}

func formatTransactionLine(tx *models.Transaction) string {
	sign := "+"
	if !tx.Type.IsInflow() {
		sign = "-"
	}
	return fmt.Sprintf("%s `%s%s` %s %s",
		common.FormatDiscordTimestamp(tx.CreatedAt, common.TimestampRelative),
		sign, common.FormatCredits(tx.Amount),
		tx.Type, tx.Description)
}
