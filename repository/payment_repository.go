package repository

import (
	"context"
	"errors"
	"time"

	"broadcaster/database"
	"broadcaster/models"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id::text, discord_id, amount, status, created_at, expires_at, confirmed_at`

// PaymentRepository implements the PaymentRepository interface
type PaymentRepository struct {
	q queryable
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{q: db.Pool}
}

// newPaymentRepositoryWithTx creates a new payment repository with a transaction
func newPaymentRepositoryWithTx(tx queryable) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID,
		&p.DiscordID,
		&p.Amount,
		&p.Status,
		&p.CreatedAt,
		&p.ExpiresAt,
		&p.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a payment expectation
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO payments (discord_id, amount, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`

	err := r.q.QueryRow(ctx, query,
		payment.DiscordID,
		payment.Amount,
		payment.Status,
		payment.CreatedAt,
		payment.ExpiresAt,
	).Scan(&payment.ID)
	if err != nil {
		return wrapErr(err, "failed to create payment for %d", payment.DiscordID)
	}

	return nil
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	if !validID(id) {
		return nil, nil
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get payment %s", id)
	}

	return payment, nil
}

// FindActive returns the oldest pending match that has not expired at now
func (r *PaymentRepository) FindActive(ctx context.Context, discordID int64, amount int64, now time.Time) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE discord_id = $1
			AND amount = $2
			AND status = 'pending'
			AND expires_at > $3
		ORDER BY created_at, id
		LIMIT 1
	`

	payment, err := scanPayment(r.q.QueryRow(ctx, query, discordID, amount, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to find active payment for %d", discordID)
	}

	return payment, nil
}

// MarkConfirmed moves a pending payment to confirmed. It reports false when
// the payment is unknown or was already confirmed.
func (r *PaymentRepository) MarkConfirmed(ctx context.Context, id string, now time.Time) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	query := `
		UPDATE payments
		SET status = 'confirmed', confirmed_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.q.Exec(ctx, query, id, now)
	if err != nil {
		return false, wrapErr(err, "failed to confirm payment %s", id)
	}

	return tag.RowsAffected() == 1, nil
}

// Claim confirms the oldest active match in one statement. Rows locked by a
// concurrent claim are skipped, so each expectation is consumed at most once.
func (r *PaymentRepository) Claim(ctx context.Context, discordID int64, amount int64, now time.Time) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = 'confirmed', confirmed_at = $3
		WHERE status = 'pending' AND id = (
			SELECT id FROM payments
			WHERE discord_id = $1
				AND amount = $2
				AND status = 'pending'
				AND expires_at > $3
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + paymentColumns

	payment, err := scanPayment(r.q.QueryRow(ctx, query, discordID, amount, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to claim payment for %d", discordID)
	}

	return payment, nil
}
