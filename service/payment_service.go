package service

import (
	"context"
	"fmt"
	"time"

	"broadcaster/events"
	"broadcaster/models"

	log "github.com/sirupsen/logrus"
)

type paymentService struct {
	uowFactory   UnitOfWorkFactory
	window       time.Duration
	exchangeRate int64
	now          func() time.Time
}

// NewPaymentService creates a new payment monitor. Non-positive values fall
// back to models.DefaultPaymentWindow and DefaultExchangeRate.
func NewPaymentService(uowFactory UnitOfWorkFactory, window time.Duration, exchangeRate int64) PaymentService {
	return newPaymentServiceWithClock(uowFactory, window, exchangeRate, time.Now)
}

func newPaymentServiceWithClock(uowFactory UnitOfWorkFactory, window time.Duration, exchangeRate int64, now func() time.Time) *paymentService {
	if window <= 0 {
		window = models.DefaultPaymentWindow
	}
	if exchangeRate <= 0 {
		exchangeRate = DefaultExchangeRate
	}
	return &paymentService{
		uowFactory:   uowFactory,
		window:       window,
		exchangeRate: exchangeRate,
		now:          now,
	}
}

// CreateExpectation opens a payment window for the user
func (s *paymentService) CreateExpectation(ctx context.Context, discordID int64, amount int64) (*models.Payment, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var payment *models.Payment
	err := retryOnConflict(ctx, "create_payment", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		account, err := uow.AccountRepository().GetByDiscordID(ctx, discordID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		if account == nil {
			return ErrUserNotFound
		}

		now := s.now().UTC()
		payment = &models.Payment{
			DiscordID: discordID,
			Amount:    amount,
			Status:    models.PaymentStatusPending,
			CreatedAt: now,
			ExpiresAt: now.Add(s.window),
		}

		if err := uow.PaymentRepository().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment expectation: %w", err)
		}

		uow.EventBus().Publish(events.PaymentExpectedEvent{
			PaymentID: payment.ID,
			DiscordID: discordID,
			Amount:    amount,
		})

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"paymentID": payment.ID,
		"discordID": discordID,
		"amount":    amount,
		"expiresAt": payment.ExpiresAt,
	}).Info("Created payment expectation")

	return payment, nil
}

// FindActive returns the oldest pending, unexpired payment matching the user and amount
func (s *paymentService) FindActive(ctx context.Context, discordID int64, amount int64) (*models.Payment, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	payment, err := uow.PaymentRepository().FindActive(ctx, discordID, amount, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to find active payment: %w", err)
	}
	return payment, nil
}

// Confirm marks a payment confirmed. Confirming twice is not an error and
// emits the confirmation event only once.
func (s *paymentService) Confirm(ctx context.Context, paymentID string) (bool, error) {
	var found, transitioned bool
	err := retryOnConflict(ctx, "confirm_payment", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		transitioned, err = uow.PaymentRepository().MarkConfirmed(ctx, paymentID, s.now().UTC())
		if err != nil {
			return fmt.Errorf("failed to confirm payment: %w", err)
		}

		payment, err := uow.PaymentRepository().GetByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("failed to get payment: %w", err)
		}
		found = payment != nil
		if !found {
			return nil
		}

		if transitioned {
			uow.EventBus().Publish(events.PaymentConfirmedEvent{
				PaymentID: payment.ID,
				DiscordID: payment.DiscordID,
				Amount:    payment.Amount,
			})
		}

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
	if err != nil || !found {
		return false, err
	}

	log.WithFields(log.Fields{
		"paymentID":    paymentID,
		"transitioned": transitioned,
	}).Info("Confirmed payment")

	return true, nil
}

// Claim atomically confirms the oldest active match. It returns nil when
// nothing matched, including when another watcher claimed it first.
func (s *paymentService) Claim(ctx context.Context, discordID int64, amount int64) (*models.Payment, error) {
	var payment *models.Payment
	err := retryOnConflict(ctx, "claim_payment", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		payment, err = s.claim(ctx, uow, discordID, amount)
		if err != nil || payment == nil {
			return err
		}

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ClaimAndCredit claims an expectation and credits the converted amount as
// one unit of work. It returns nil values when no expectation matched.
func (s *paymentService) ClaimAndCredit(ctx context.Context, discordID int64, amount int64) (*models.Payment, *models.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, nil, err
	}

	credits, err := creditsFor(amount, s.exchangeRate)
	if err != nil {
		return nil, nil, err
	}

	var (
		payment *models.Payment
		tx      *models.Transaction
	)
	err = retryOnConflict(ctx, "claim_and_credit", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		payment, err = s.claim(ctx, uow, discordID, amount)
		if err != nil || payment == nil {
			tx = nil
			return err
		}

		description := fmt.Sprintf("Payment confirmed - %d ProBot credits", amount)
		if tx, err = applyCredit(ctx, uow, discordID, models.TransactionTypeCredit, credits, description); err != nil {
			return err
		}

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, nil
	}

	log.WithFields(log.Fields{
		"paymentID": payment.ID,
		"discordID": discordID,
		"amount":    amount,
		"credits":   credits,
	}).Info("Credited confirmed payment")

	return payment, tx, nil
}

func (s *paymentService) claim(ctx context.Context, uow UnitOfWork, discordID int64, amount int64) (*models.Payment, error) {
	payment, err := uow.PaymentRepository().Claim(ctx, discordID, amount, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to claim payment: %w", err)
	}
	if payment == nil {
		log.WithFields(log.Fields{
			"discordID": discordID,
			"amount":    amount,
		}).Debug("No active payment expectation matched")
		return nil, nil
	}

	uow.EventBus().Publish(events.PaymentConfirmedEvent{
		PaymentID: payment.ID,
		DiscordID: payment.DiscordID,
		Amount:    payment.Amount,
	})

	return payment, nil
}
