package repository

import (
	"context"
	"errors"
	"fmt"

	"broadcaster/database"
	"broadcaster/models"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id::text, discord_id, type, amount, description, created_at`

// TransactionRepository implements the TransactionRepository interface.
// Rows are only ever inserted.
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.DiscordID,
		&tx.Type,
		&tx.Amount,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Append inserts a ledger entry and fills in its ID and timestamp
func (r *TransactionRepository) Append(ctx context.Context, tx *models.Transaction) (string, error) {
	if !tx.Type.IsValid() {
		return "", fmt.Errorf("invalid transaction type %q", tx.Type)
	}
	if tx.Amount <= 0 {
		return "", fmt.Errorf("transaction amount must be positive, got %d", tx.Amount)
	}

	query := `
		INSERT INTO transactions (discord_id, type, amount, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at
	`

	err := r.q.QueryRow(ctx, query, tx.DiscordID, tx.Type, tx.Amount, tx.Description).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return "", wrapErr(err, "failed to append %s transaction for %d", tx.Type, tx.DiscordID)
	}

	return tx.ID, nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	if !validID(id) {
		return nil, nil
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get transaction %s", id)
	}

	return tx, nil
}

// ListByUser returns a user's transactions newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, discordID int64, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE discord_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	return r.list(ctx, query, discordID, limit)
}

// ListAll returns every transaction newest first
func (r *TransactionRepository) ListAll(ctx context.Context, limit, skip int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	return r.list(ctx, query, limit, skip)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "failed to list transactions")
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, wrapErr(err, "failed to scan transaction")
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "error iterating transactions")
	}

	return txs, nil
}

func (r *TransactionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, wrapErr(err, "failed to count transactions")
	}
	return count, nil
}

// SumsByUser totals inflows and spends for reconciliation
func (r *TransactionRepository) SumsByUser(ctx context.Context, discordID int64) (int64, int64, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type IN ('credit', 'refund')), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE type = 'spend'), 0)::BIGINT
		FROM transactions
		WHERE discord_id = $1
	`

	var credited, spent int64
	if err := r.q.QueryRow(ctx, query, discordID).Scan(&credited, &spent); err != nil {
		return 0, 0, wrapErr(err, "failed to sum transactions for %d", discordID)
	}
	return credited, spent, nil
}
