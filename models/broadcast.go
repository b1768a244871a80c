package models

import (
	"time"
)

// TargetType is how the broadcast executor selected recipients
type TargetType string

const (
	TargetTypeAll     TargetType = "all"
	TargetTypeOnline  TargetType = "online"
	TargetTypeOffline TargetType = "offline"
	TargetTypeRole    TargetType = "role"
)

// Broadcast is the record of a single send attempt
type Broadcast struct {
	ID             string     `db:"id" bson:"-"`
	DiscordID      int64      `db:"discord_id" bson:"discord_id"`
	GuildID        string     `db:"guild_id" bson:"guild_id"`
	GuildName      string     `db:"guild_name" bson:"guild_name"`
	Message        string     `db:"message" bson:"message"`
	TargetType     TargetType `db:"target_type" bson:"target_type"`
	MessagesSent   int64      `db:"messages_sent" bson:"messages_sent"`
	MessagesFailed int64      `db:"messages_failed" bson:"messages_failed"`
	CreditsUsed    int64      `db:"credits_used" bson:"credits_used"`
	CreatedAt      time.Time  `db:"created_at" bson:"created_at"`
}

// BroadcastRecord carries the outcome of a broadcast to be recorded
type BroadcastRecord struct {
	DiscordID      int64
	GuildID        string
	GuildName      string
	Message        string
	TargetType     TargetType
	MessagesSent   int64
	MessagesFailed int64
	CreditsUsed    int64
}

// Broadcast converts the record into an unsaved Broadcast row
func (r BroadcastRecord) Broadcast() *Broadcast {
	return &Broadcast{
		DiscordID:      r.DiscordID,
		GuildID:        r.GuildID,
		GuildName:      r.GuildName,
		Message:        r.Message,
		TargetType:     r.TargetType,
		MessagesSent:   r.MessagesSent,
		MessagesFailed: r.MessagesFailed,
		CreditsUsed:    r.CreditsUsed,
	}
}
