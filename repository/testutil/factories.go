package testutil

import (
	"time"

	"broadcaster/models"
)

// CreateTestProfile creates an account profile with a derived username
func CreateTestProfile(discordID int64, username string) models.AccountProfile {
	return models.AccountProfile{
		DiscordID: discordID,
		Username:  username,
		AvatarURL: "https://cdn.discordapp.com/avatars/" + username + ".png",
	}
}

// CreateTestTransaction creates an unsaved ledger entry
func CreateTestTransaction(discordID int64, txType models.TransactionType, amount int64) *models.Transaction {
	return &models.Transaction{
		DiscordID:   discordID,
		Type:        txType,
		Amount:      amount,
		Description: "test " + string(txType),
	}
}

// CreateTestBroadcast creates an unsaved broadcast for a guild
func CreateTestBroadcast(discordID int64, sent, failed int64) *models.Broadcast {
	return &models.Broadcast{
		DiscordID:      discordID,
		GuildID:        "123456789012345678",
		GuildName:      "Test Guild",
		Message:        "hello everyone",
		TargetType:     models.TargetTypeAll,
		MessagesSent:   sent,
		MessagesFailed: failed,
		CreditsUsed:    sent,
	}
}

// CreateTestPayment creates an unsaved pending payment opened at createdAt
func CreateTestPayment(discordID int64, amount int64, createdAt time.Time, window time.Duration) *models.Payment {
	return &models.Payment{
		DiscordID: discordID,
		Amount:    amount,
		Status:    models.PaymentStatusPending,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(window),
	}
}
