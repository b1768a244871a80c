package service

import (
	"context"
	"fmt"

	"broadcaster/events"
	"broadcaster/models"

	log "github.com/sirupsen/logrus"
)

// applyCredit raises the balance and appends the matching credit or refund
// transaction inside the caller's unit of work.
func applyCredit(ctx context.Context, uow UnitOfWork, discordID int64, txType models.TransactionType, amount int64, description string) (*models.Transaction, error) {
	account, err := uow.AccountRepository().AddCredits(ctx, discordID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to add credits: %w", err)
	}
	if account == nil {
		return nil, ErrUserNotFound
	}

	return recordBalanceChange(ctx, uow, account, txType, amount, description)
}

// applySpend lowers the balance with a single conditional update and appends
// a spend transaction inside the caller's unit of work.
func applySpend(ctx context.Context, uow UnitOfWork, discordID int64, amount int64, description string) (*models.Transaction, error) {
	account, err := uow.AccountRepository().DeductCredits(ctx, discordID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to deduct credits: %w", err)
	}
	if account == nil {
		// The conditional update matched nothing; find out why
		existing, err := uow.AccountRepository().GetByDiscordID(ctx, discordID)
		if err != nil {
			return nil, fmt.Errorf("failed to check account: %w", err)
		}
		if existing == nil {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientCredits, existing.Credits, amount)
	}

	return recordBalanceChange(ctx, uow, account, models.TransactionTypeSpend, amount, description)
}

// recordBalanceChange appends the ledger entry and stages the balance change event.
// Every balance mutation goes through here so the log and the balance never diverge.
func recordBalanceChange(ctx context.Context, uow UnitOfWork, account *models.Account, txType models.TransactionType, amount int64, description string) (*models.Transaction, error) {
	tx := &models.Transaction{
		DiscordID:   account.DiscordID,
		Type:        txType,
		Amount:      amount,
		Description: description,
	}

	if _, err := uow.TransactionRepository().Append(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to append %s transaction: %w", txType, err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		DiscordID:       account.DiscordID,
		TransactionID:   tx.ID,
		TransactionType: txType,
		Amount:          amount,
		NewBalance:      account.Credits,
	})

	log.WithFields(log.Fields{
		"discordID":  account.DiscordID,
		"type":       txType,
		"amount":     amount,
		"newBalance": account.Credits,
	}).Debug("Recorded balance change")

	return tx, nil
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	return nil
}
