package service

import (
	"context"
	"fmt"

	"broadcaster/events"
	"broadcaster/models"

	log "github.com/sirupsen/logrus"
)

// DefaultBroadcastListLimit is the page size for a user's broadcast history
const DefaultBroadcastListLimit = 10

type broadcastService struct {
	uowFactory UnitOfWorkFactory
}

// NewBroadcastService creates a new broadcast accounting service
func NewBroadcastService(uowFactory UnitOfWorkFactory) BroadcastService {
	return &broadcastService{
		uowFactory: uowFactory,
	}
}

// RecordBroadcast records the attempt and bumps the user's usage counters.
// Credits are not deducted here.
func (s *broadcastService) RecordBroadcast(ctx context.Context, record models.BroadcastRecord) (*models.Broadcast, error) {
	if err := validateBroadcastRecord(record); err != nil {
		return nil, err
	}

	var broadcast *models.Broadcast
	err := retryOnConflict(ctx, "record_broadcast", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		if broadcast, err = recordBroadcast(ctx, uow, record); err != nil {
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

	return broadcast, nil
}

// ChargeAndRecord spends the record's credits and records the broadcast in one
// unit of work. Either both land or neither does.
func (s *broadcastService) ChargeAndRecord(ctx context.Context, record models.BroadcastRecord) (*models.Broadcast, *models.Transaction, error) {
	if err := validateBroadcastRecord(record); err != nil {
		return nil, nil, err
	}

	var (
		broadcast *models.Broadcast
		tx        *models.Transaction
	)
	err := retryOnConflict(ctx, "charge_broadcast", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		tx = nil
		if record.CreditsUsed > 0 {
			description := fmt.Sprintf("Broadcast to %s (%d sent, %d failed)", guildLabel(record), record.MessagesSent, record.MessagesFailed)

			var err error
			if tx, err = applySpend(ctx, uow, record.DiscordID, record.CreditsUsed, description); err != nil {
				return err
			}
		}

		var err error
		if broadcast, err = recordBroadcast(ctx, uow, record); err != nil {
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

	return broadcast, tx, nil
}

func (s *broadcastService) ListBroadcasts(ctx context.Context, discordID int64, limit int) ([]*models.Broadcast, error) {
	if limit <= 0 {
		limit = DefaultBroadcastListLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	broadcasts, err := uow.BroadcastRepository().ListByUser(ctx, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list broadcasts: %w", err)
	}
	return broadcasts, nil
}

func recordBroadcast(ctx context.Context, uow UnitOfWork, record models.BroadcastRecord) (*models.Broadcast, error) {
	account, err := uow.AccountRepository().IncrementBroadcastCounters(ctx, record.DiscordID, record.MessagesSent)
	if err != nil {
		return nil, fmt.Errorf("failed to update broadcast counters: %w", err)
	}
	if account == nil {
		return nil, ErrUserNotFound
	}

	broadcast := record.Broadcast()
	if err := uow.BroadcastRepository().Create(ctx, broadcast); err != nil {
		return nil, fmt.Errorf("failed to create broadcast: %w", err)
	}

	uow.EventBus().Publish(events.BroadcastRecordedEvent{
		BroadcastID:    broadcast.ID,
		DiscordID:      broadcast.DiscordID,
		GuildID:        broadcast.GuildID,
		MessagesSent:   broadcast.MessagesSent,
		MessagesFailed: broadcast.MessagesFailed,
		CreditsUsed:    broadcast.CreditsUsed,
	})

	log.WithFields(log.Fields{
		"discordID":      record.DiscordID,
		"guildID":        record.GuildID,
		"messagesSent":   record.MessagesSent,
		"messagesFailed": record.MessagesFailed,
		"creditsUsed":    record.CreditsUsed,
	}).Info("Recorded broadcast")

	return broadcast, nil
}

func validateBroadcastRecord(record models.BroadcastRecord) error {
	if record.DiscordID == 0 {
		return fmt.Errorf("discord ID is required")
	}
	if record.GuildID == "" {
		return fmt.Errorf("guild ID is required")
	}
	if record.MessagesSent < 0 || record.MessagesFailed < 0 || record.CreditsUsed < 0 {
		return fmt.Errorf("broadcast counts cannot be negative")
	}
	return nil
}

func guildLabel(record models.BroadcastRecord) string {
	if record.GuildName != "" {
		return record.GuildName
	}
	return record.GuildID
}
