package cmd

import (
	"context"
	"fmt"

	"broadcaster/bot"
	"broadcaster/config"
	"broadcaster/database"
	"broadcaster/events"
	"broadcaster/repository"
	"broadcaster/repository/mongorepo"
	"broadcaster/service"

	log "github.com/sirupsen/logrus"
)

// Store is the configured persistence backend
type Store struct {
	Factory service.UnitOfWorkFactory
	close   func(ctx context.Context)
}

// Close releases the backend's connections
func (s *Store) Close(ctx context.Context) {
	if s.close != nil {
		s.close(ctx)
	}
}

// OpenStore connects to the backend selected by STORE_BACKEND
func OpenStore(ctx context.Context, cfg *config.Config, eventBus *events.Bus) (*Store, error) {
	switch cfg.StoreBackend {
	case "mongo":
		log.Info("Connecting to MongoDB...")
		store, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		log.WithField("database", cfg.MongoDatabase).Info("MongoDB connection established successfully")

		return &Store{
			Factory: mongorepo.NewUnitOfWorkFactory(store, eventBus),
			close: func(ctx context.Context) {
				if err := store.Close(ctx); err != nil {
					log.WithError(err).Error("Error closing MongoDB connection")
				}
			},
		}, nil

	default:
		log.Info("Connecting to database...")
		db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("Database connection established successfully")

		return &Store{
			Factory: repository.NewUnitOfWorkFactory(db, eventBus),
			close:   func(context.Context) { db.Close() },
		}, nil
	}
}

// NewServices wires the ledger services around the unit of work factory
func NewServices(cfg *config.Config, factory service.UnitOfWorkFactory) bot.Services {
	return bot.Services{
		Account:   service.NewAccountService(factory),
		Ledger:    service.NewLedgerService(factory, cfg.ExchangeRate),
		Broadcast: service.NewBroadcastService(factory),
		Payment:   service.NewPaymentService(factory, cfg.PaymentWindow, cfg.ExchangeRate),
		Stats:     service.NewStatsService(factory),
	}
}
