package pay

import (
	"context"
	"errors"
	"fmt"

	"broadcaster/bot/common"
	"broadcaster/models"
	"broadcaster/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (f *Feature) handlePay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	discordID, user, err := common.InteractionDiscordID(i)
	if err != nil {
		log.Errorf("Error resolving interaction user: %v", err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	var amount int64
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "amount" {
			amount = opt.IntValue()
		}
	}

	credits := f.ledgerService.ConvertExternalAmount(amount)
	if credits <= 0 {
		common.RespondWithError(s, i, "That amount is too small to buy a single credit.")
		return
	}

	if _, err := f.accountService.Upsert(ctx, models.AccountProfile{
		DiscordID: discordID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL(""),
	}); err != nil {
		log.Errorf("Error upserting account %d: %v", discordID, err)
		common.RespondWithError(s, i, "Unable to start the payment. Please try again.")
		return
	}

	payment, err := f.paymentService.CreateExpectation(ctx, discordID, amount)
	if err != nil {
		log.Errorf("Error creating payment expectation for %d: %v", discordID, err)
		message := "Unable to start the payment. Please try again."
		if errors.Is(err, service.ErrInvalidAmount) {
			message = "Amount must be positive."
		}
		common.RespondWithError(s, i, message)
		return
	}

	common.RespondWithEmbed(s, i, buildPaymentEmbed(payment, credits, f.recipientID), true)
}

func buildPaymentEmbed(payment *models.Payment, credits int64, recipientID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "💸 Payment Started",
		Description: fmt.Sprintf(
			"Send exactly **%s** ProBot credits to <@%s> with:\n`#credit <@%s> %d`\n\nYou will receive **%s broadcast credits** once the transfer is seen.",
			common.FormatCredits(payment.Amount), recipientID, recipientID, payment.Amount, common.FormatCredits(credits),
		),
		Color: common.ColorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Expires", Value: common.FormatDiscordTimestamp(payment.ExpiresAt, common.TimestampRelative), Inline: true},
		},
	}
}
