package service

import (
	"context"
	"fmt"

	"broadcaster/models"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultAccountListLimit is the page size for the admin account listing
	DefaultAccountListLimit = 100
)

type statsService struct {
	uowFactory UnitOfWorkFactory
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory) StatsService {
	return &statsService{
		uowFactory: uowFactory,
	}
}

// SystemStats computes totals on demand
func (s *statsService) SystemStats(ctx context.Context) (*models.SystemStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stats := &models.SystemStats{}
	var err error

	if stats.TotalUsers, err = uow.AccountRepository().Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	if stats.TotalTransactions, err = uow.TransactionRepository().Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	if stats.TotalBroadcasts, err = uow.BroadcastRepository().Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count broadcasts: %w", err)
	}
	if stats.TotalCreditsInCirculation, err = uow.AccountRepository().SumCredits(ctx); err != nil {
		return nil, fmt.Errorf("failed to sum credits: %w", err)
	}

	return stats, nil
}

// UserStats returns zeros for an unknown account
func (s *statsService) UserStats(ctx context.Context, discordID int64) (*models.UserStats, error) {
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
		return &models.UserStats{}, nil
	}

	return &models.UserStats{
		Credits:           account.Credits,
		TotalSpent:        account.TotalSpent,
		TotalMessagesSent: account.TotalMessagesSent,
		TotalBroadcasts:   account.TotalBroadcasts,
	}, nil
}

func (s *statsService) ListAccounts(ctx context.Context, limit, skip int) ([]*models.Account, error) {
	if limit <= 0 {
		limit = DefaultAccountListLimit
	}
	if skip < 0 {
		skip = 0
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts, err := uow.AccountRepository().List(ctx, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *statsService) ListTransactions(ctx context.Context, limit, skip int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionListLimit
	}
	if skip < 0 {
		skip = 0
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txs, err := uow.TransactionRepository().ListAll(ctx, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// Reconcile verifies credits == Σ(credit+refund) − Σ(spend) and
// total_spent == Σ(spend) for one account.
func (s *statsService) Reconcile(ctx context.Context, discordID int64) error {
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

	credited, spent, err := uow.TransactionRepository().SumsByUser(ctx, discordID)
	if err != nil {
		return fmt.Errorf("failed to sum transactions: %w", err)
	}

	if account.Credits != credited-spent || account.TotalSpent != spent {
		log.WithFields(log.Fields{
			"discordID":  discordID,
			"credits":    account.Credits,
			"totalSpent": account.TotalSpent,
			"credited":   credited,
			"spent":      spent,
		}).Error("Ledger does not reconcile")
		return fmt.Errorf("%w: user %d has %d credits and %d spent, log says %d and %d",
			ErrInvariantViolation, discordID, account.Credits, account.TotalSpent, credited-spent, spent)
	}

	return nil
}
