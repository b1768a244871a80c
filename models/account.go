package models

import (
	"time"
)

// Account represents a Discord user's broadcast credit wallet
type Account struct {
	DiscordID         int64     `db:"discord_id" bson:"discord_id"`
	Username          string    `db:"username" bson:"username"`
	AvatarURL         string    `db:"avatar_url" bson:"avatar_url"`
	Credits           int64     `db:"credits" bson:"credits"`
	TotalSpent        int64     `db:"total_spent" bson:"total_spent"`
	TotalMessagesSent int64     `db:"total_messages_sent" bson:"total_messages_sent"`
	TotalBroadcasts   int64     `db:"total_broadcasts" bson:"total_broadcasts"`
	IsAdmin           bool      `db:"is_admin" bson:"is_admin"`
	CreatedAt         time.Time `db:"created_at" bson:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" bson:"updated_at"`
}

// AccountProfile is the identity data supplied by Discord on first contact or refresh
type AccountProfile struct {
	DiscordID int64
	Username  string
	AvatarURL string
}
