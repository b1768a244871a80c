package repository

import (
	"context"
	"errors"
	"fmt"

	"broadcaster/database"
	"broadcaster/models"

	"github.com/jackc/pgx/v5"
)

// TopUpKeyRepository implements the TopUpKeyRepository interface
type TopUpKeyRepository struct {
	q queryable
}

// NewTopUpKeyRepository creates a new top-up key repository
func NewTopUpKeyRepository(db *database.DB) *TopUpKeyRepository {
	return &TopUpKeyRepository{q: db.Pool}
}

// newTopUpKeyRepositoryWithTx creates a new top-up key repository with a transaction
func newTopUpKeyRepositoryWithTx(tx queryable) *TopUpKeyRepository {
	return &TopUpKeyRepository{q: tx}
}

// Reserve inserts the key unless it exists. A concurrent reservation of the
// same key blocks on the primary key until the first one commits or aborts.
func (r *TopUpKeyRepository) Reserve(ctx context.Context, key string, discordID int64) (bool, error) {
	query := `
		INSERT INTO top_up_keys (key, discord_id)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, key, discordID)
	if err != nil {
		return false, wrapErr(err, "failed to reserve top-up key %q", key)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *TopUpKeyRepository) Get(ctx context.Context, key string) (*models.TopUpKey, error) {
	query := `
		SELECT key, discord_id, COALESCE(transaction_id::text, ''), created_at
		FROM top_up_keys
		WHERE key = $1
	`

	var k models.TopUpKey
	err := r.q.QueryRow(ctx, query, key).Scan(&k.Key, &k.DiscordID, &k.TransactionID, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get top-up key %q", key)
	}

	return &k, nil
}

func (r *TopUpKeyRepository) AttachTransaction(ctx context.Context, key string, transactionID string) error {
	query := `UPDATE top_up_keys SET transaction_id = $2 WHERE key = $1`

	tag, err := r.q.Exec(ctx, query, key, transactionID)
	if err != nil {
		return wrapErr(err, "failed to attach transaction to top-up key %q", key)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("top-up key %q not found", key)
	}

	return nil
}
