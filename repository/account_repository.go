package repository

import (
	"context"
	"errors"

	"broadcaster/database"
	"broadcaster/models"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `discord_id, username, avatar_url, credits, total_spent,
	total_messages_sent, total_broadcasts, is_admin, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row, extra ...any) (*models.Account, error) {
	var account models.Account
	dest := []any{
		&account.DiscordID,
		&account.Username,
		&account.AvatarURL,
		&account.Credits,
		&account.TotalSpent,
		&account.TotalMessagesSent,
		&account.TotalBroadcasts,
		&account.IsAdmin,
		&account.CreatedAt,
		&account.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &account, nil
}

// Upsert creates the account or refreshes its username and avatar.
// Empty profile fields keep the stored value. Credits and counters are never touched.
func (r *AccountRepository) Upsert(ctx context.Context, profile models.AccountProfile) (*models.Account, bool, error) {
	query := `
		INSERT INTO accounts (discord_id, username, avatar_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (discord_id) DO UPDATE SET
			username = COALESCE(NULLIF(EXCLUDED.username, ''), accounts.username),
			avatar_url = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), accounts.avatar_url),
			updated_at = NOW()
		RETURNING ` + accountColumns + `, (xmax = 0) AS inserted
	`

	var inserted bool
	account, err := scanAccount(r.q.QueryRow(ctx, query, profile.DiscordID, profile.Username, profile.AvatarURL), &inserted)
	if err != nil {
		return nil, false, wrapErr(err, "failed to upsert account %d", profile.DiscordID)
	}

	return account, inserted, nil
}

// GetByDiscordID retrieves an account by its Discord ID
func (r *AccountRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE discord_id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get account %d", discordID)
	}

	return account, nil
}

// AddCredits increments the balance in place
func (r *AccountRepository) AddCredits(ctx context.Context, discordID int64, amount int64) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET credits = credits + $2, updated_at = NOW()
		WHERE discord_id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID, amount))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to add %d credits to account %d", amount, discordID)
	}

	return account, nil
}

// DeductCredits decrements the balance only when it covers the amount.
// The row lock taken by UPDATE serializes concurrent spends, and the
// WHERE clause is re-evaluated against the committed balance.
func (r *AccountRepository) DeductCredits(ctx context.Context, discordID int64, amount int64) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET credits = credits - $2,
			total_spent = total_spent + $2,
			updated_at = NOW()
		WHERE discord_id = $1 AND credits >= $2
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID, amount))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to deduct %d credits from account %d", amount, discordID)
	}

	return account, nil
}

// IncrementBroadcastCounters bumps usage counters after a broadcast
func (r *AccountRepository) IncrementBroadcastCounters(ctx context.Context, discordID int64, messagesSent int64) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET total_messages_sent = total_messages_sent + $2,
			total_broadcasts = total_broadcasts + 1,
			updated_at = NOW()
		WHERE discord_id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID, messagesSent))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to update broadcast counters for account %d", discordID)
	}

	return account, nil
}

// List returns accounts newest first
func (r *AccountRepository) List(ctx context.Context, limit, skip int) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		ORDER BY created_at DESC, discord_id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.q.Query(ctx, query, limit, skip)
	if err != nil {
		return nil, wrapErr(err, "failed to list accounts")
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, wrapErr(err, "failed to scan account")
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "error iterating accounts")
	}

	return accounts, nil
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return 0, wrapErr(err, "failed to count accounts")
	}
	return count, nil
}

func (r *AccountRepository) SumCredits(ctx context.Context) (int64, error) {
	var sum int64
	if err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(credits), 0)::BIGINT FROM accounts`).Scan(&sum); err != nil {
		return 0, wrapErr(err, "failed to sum credits")
	}
	return sum, nil
}
