package repository

import (
	"context"

	"broadcaster/database"
	"broadcaster/models"
)

// BroadcastRepository implements the BroadcastRepository interface
type BroadcastRepository struct {
	q queryable
}

// NewBroadcastRepository creates a new broadcast repository
func NewBroadcastRepository(db *database.DB) *BroadcastRepository {
	return &BroadcastRepository{q: db.Pool}
}

// newBroadcastRepositoryWithTx creates a new broadcast repository with a transaction
func newBroadcastRepositoryWithTx(tx queryable) *BroadcastRepository {
	return &BroadcastRepository{q: tx}
}

// Create inserts a broadcast record
func (r *BroadcastRepository) Create(ctx context.Context, broadcast *models.Broadcast) error {
	query := `
		INSERT INTO broadcasts (
			discord_id, guild_id, guild_name, message, target_type,
			messages_sent, messages_failed, credits_used
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text, created_at
	`

	err := r.q.QueryRow(ctx, query,
		broadcast.DiscordID,
		broadcast.GuildID,
		broadcast.GuildName,
		broadcast.Message,
		broadcast.TargetType,
		broadcast.MessagesSent,
		broadcast.MessagesFailed,
		broadcast.CreditsUsed,
	).Scan(&broadcast.ID, &broadcast.CreatedAt)
	if err != nil {
		return wrapErr(err, "failed to create broadcast for %d", broadcast.DiscordID)
	}

	return nil
}

// ListByUser returns a user's broadcasts newest first
func (r *BroadcastRepository) ListByUser(ctx context.Context, discordID int64, limit int) ([]*models.Broadcast, error) {
	query := `
		SELECT id::text, discord_id, guild_id, guild_name, message, target_type,
			messages_sent, messages_failed, credits_used, created_at
		FROM broadcasts
		WHERE discord_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, discordID, limit)
	if err != nil {
		return nil, wrapErr(err, "failed to list broadcasts for %d", discordID)
	}
	defer rows.Close()

	var broadcasts []*models.Broadcast
	for rows.Next() {
		var b models.Broadcast
		err := rows.Scan(
			&b.ID,
			&b.DiscordID,
			&b.GuildID,
			&b.GuildName,
			&b.Message,
			&b.TargetType,
			&b.MessagesSent,
			&b.MessagesFailed,
			&b.CreditsUsed,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, wrapErr(err, "failed to scan broadcast")
		}
		broadcasts = append(broadcasts, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "error iterating broadcasts")
	}

	return broadcasts, nil
}

func (r *BroadcastRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM broadcasts`).Scan(&count); err != nil {
		return 0, wrapErr(err, "failed to count broadcasts")
	}
	return count, nil
}
