package service

import (
	"context"
	"fmt"

	"broadcaster/events"
	"broadcaster/models"

	log "github.com/sirupsen/logrus"
)

type accountService struct {
	uowFactory UnitOfWorkFactory
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory) AccountService {
	return &accountService{
		uowFactory: uowFactory,
	}
}

// Upsert creates the account on first contact or refreshes its display metadata.
// Balance and counters of an existing account are never touched.
func (s *accountService) Upsert(ctx context.Context, profile models.AccountProfile) (*models.Account, error) {
	if profile.DiscordID == 0 {
		return nil, fmt.Errorf("discord ID is required")
	}

	var (
		account *models.Account
		created bool
	)
	err := retryOnConflict(ctx, "upsert_account", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		account, created, err = uow.AccountRepository().Upsert(ctx, profile)
		if err != nil {
			return fmt.Errorf("failed to upsert account: %w", err)
		}

		if created {
			uow.EventBus().Publish(events.AccountCreatedEvent{
				DiscordID: account.DiscordID,
				Username:  account.Username,
			})
		}

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.WithFields(log.Fields{
			"discordID": account.DiscordID,
			"username":  account.Username,
		}).Info("Created account")
	}

	return account, nil
}

// Get returns the account or ErrUserNotFound
func (s *accountService) Get(ctx context.Context, discordID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrUserNotFound
	}

	return account, nil
}
