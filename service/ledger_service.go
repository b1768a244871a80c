package service

import (
	"context"
	"fmt"

	"broadcaster/models"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultExchangeRate is how many external currency units buy one credit
	DefaultExchangeRate int64 = 500

	// DefaultTransactionListLimit is the page size for a user's transaction history
	DefaultTransactionListLimit = 20
)

type ledgerService struct {
	uowFactory   UnitOfWorkFactory
	exchangeRate int64
}

// NewLedgerService creates a new ledger service. A non-positive exchange rate
// falls back to DefaultExchangeRate.
func NewLedgerService(uowFactory UnitOfWorkFactory, exchangeRate int64) LedgerService {
	if exchangeRate <= 0 {
		exchangeRate = DefaultExchangeRate
	}
	return &ledgerService{
		uowFactory:   uowFactory,
		exchangeRate: exchangeRate,
	}
}

// ConvertExternalAmount converts external currency into credits using floor division
func (s *ledgerService) ConvertExternalAmount(external int64) int64 {
	return convertExternal(external, s.exchangeRate)
}

func convertExternal(external, rate int64) int64 {
	if external <= 0 || rate <= 0 {
		return 0
	}
	return external / rate
}

// creditsFor converts a positive external amount, rejecting amounts worth no credits
func creditsFor(external, rate int64) (int64, error) {
	credits := convertExternal(external, rate)
	if credits == 0 {
		return 0, fmt.Errorf("%w: %d is below the rate of %d", ErrAmountTooSmall, external, rate)
	}
	return credits, nil
}

func (s *ledgerService) Credit(ctx context.Context, discordID int64, amount int64, description string) (*models.Transaction, error) {
	return s.addCredits(ctx, discordID, models.TransactionTypeCredit, amount, description)
}

// Refund returns credits to the user. Total spent is left unchanged.
func (s *ledgerService) Refund(ctx context.Context, discordID int64, amount int64, description string) (*models.Transaction, error) {
	return s.addCredits(ctx, discordID, models.TransactionTypeRefund, amount, description)
}

func (s *ledgerService) addCredits(ctx context.Context, discordID int64, txType models.TransactionType, amount int64, description string) (*models.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var tx *models.Transaction
	err := retryOnConflict(ctx, string(txType), func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		if tx, err = applyCredit(ctx, uow, discordID, txType, amount, description); err != nil {
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

	log.WithFields(log.Fields{
		"discordID": discordID,
		"type":      txType,
		"amount":    amount,
	}).Info("Credited account")

	return tx, nil
}

// Spend deducts credits. The balance check and the decrement are a single
// conditional update, so concurrent spends can never overdraw the account.
func (s *ledgerService) Spend(ctx context.Context, discordID int64, amount int64, description string) (*models.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var tx *models.Transaction
	err := retryOnConflict(ctx, "spend", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		if tx, err = applySpend(ctx, uow, discordID, amount, description); err != nil {
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

	log.WithFields(log.Fields{
		"discordID": discordID,
		"amount":    amount,
	}).Info("Spent credits")

	return tx, nil
}

// TopUp credits a manual top-up exactly once per idempotency key. Replaying
// a key returns the original transaction and credits nothing.
func (s *ledgerService) TopUp(ctx context.Context, req TopUpRequest) (*TopUpResult, error) {
	if err := validateAmount(req.ExternalAmount); err != nil {
		return nil, err
	}
	if req.IdempotencyKey == "" {
		return nil, ErrMissingIdempotencyKey
	}

	credits, err := creditsFor(req.ExternalAmount, s.exchangeRate)
	if err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Manual credit addition - %d ProBot credits", req.ExternalAmount)
	}

	var result *TopUpResult
	err = retryOnConflict(ctx, "top_up", func() error {
		var err error
		result, err = s.topUpOnce(ctx, req, credits, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result.Duplicate {
		return result, nil
	}

	log.WithFields(log.Fields{
		"discordID":      req.DiscordID,
		"externalAmount": req.ExternalAmount,
		"credits":        credits,
		"key":            req.IdempotencyKey,
	}).Info("Applied manual top-up")

	return result, nil
}

func (s *ledgerService) topUpOnce(ctx context.Context, req TopUpRequest, credits int64, description string) (*TopUpResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByDiscordID(ctx, req.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrUserNotFound
	}

	reserved, err := uow.TopUpKeyRepository().Reserve(ctx, req.IdempotencyKey, req.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if !reserved {
		return s.replayTopUp(ctx, uow, req)
	}

	tx, err := applyCredit(ctx, uow, req.DiscordID, models.TransactionTypeCredit, credits, description)
	if err != nil {
		return nil, err
	}

	if err := uow.TopUpKeyRepository().AttachTransaction(ctx, req.IdempotencyKey, tx.ID); err != nil {
		return nil, fmt.Errorf("failed to attach transaction to idempotency key: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &TopUpResult{
		Transaction: tx,
		Credits:     credits,
	}, nil
}

func (s *ledgerService) replayTopUp(ctx context.Context, uow UnitOfWork, req TopUpRequest) (*TopUpResult, error) {
	existing, err := uow.TopUpKeyRepository().Get(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load idempotency key: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("idempotency key %q vanished after conflict", req.IdempotencyKey)
	}
	if existing.DiscordID != req.DiscordID {
		return nil, fmt.Errorf("idempotency key %q already used for user %d", req.IdempotencyKey, existing.DiscordID)
	}

	result := &TopUpResult{Duplicate: true}
	if existing.TransactionID != "" {
		tx, err := uow.TransactionRepository().GetByID(ctx, existing.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load original transaction: %w", err)
		}
		result.Transaction = tx
		if tx != nil {
			result.Credits = tx.Amount
		}
	}

	log.WithFields(log.Fields{
		"discordID": req.DiscordID,
		"key":       req.IdempotencyKey,
	}).Warn("Ignoring replayed manual top-up")

	return result, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, discordID int64, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionListLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txs, err := uow.TransactionRepository().ListByUser(ctx, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}
