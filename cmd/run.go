package cmd

import (
	"context"
	"fmt"
	"time"

	"broadcaster/application"
	"broadcaster/bot"
	"broadcaster/config"
	"broadcaster/events"
	"broadcaster/infrastructure"
	"broadcaster/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting broadcaster bot...")

	cfg := config.Get()
	cfg.ConfigureLogging()

	if cfg.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}

	// Metrics
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	eventBus := events.NewBus()
	eventBus.SubscribeAll(metrics.HandleEvent)

	store, err := OpenStore(ctx, cfg, eventBus)
	if err != nil {
		return err
	}

	// NATS event export is optional
	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		natsClient, err = connectNATS(ctx, cfg.NATSServers, eventBus, metrics)
		if err != nil {
			store.Close(context.Background())
			return err
		}
	} else {
		log.Info("NATS_SERVERS not set, event export disabled")
	}

	services := NewServices(cfg, store.Factory)

	reporter := application.NewStatsReporterWorker(services.Stats, metrics)
	stopReporter, err := reporter.Start(ctx, cfg.StatsReportSchedule)
	if err != nil {
		shutdown(natsClient, store, metrics)
		return err
	}

	log.Info("Initializing Discord bot...")
	discordBot, err := bot.New(bot.Config{
		Token:              cfg.DiscordToken,
		GuildID:            cfg.DiscordGuildID,
		PaymentChannelID:   cfg.PaymentChannelID,
		PaymentRecipientID: cfg.PaymentRecipientID,
		ProBotID:           cfg.ProBotID,
	}, services)
	if err != nil {
		stopReporter()
		shutdown(natsClient, store, metrics)
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}

	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down bot...")

	if err := discordBot.Close(); err != nil {
		log.Errorf("Error closing Discord bot: %v", err)
	}
	stopReporter()
	shutdown(natsClient, store, metrics)

	log.Info("Shutdown completed")
	return nil
}

func connectNATS(ctx context.Context, servers string, eventBus *events.Bus, metrics *observability.MetricsProvider) (*infrastructure.NATSClient, error) {
	client := infrastructure.NewNATSClient(servers)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, err
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := infrastructure.EnsureEventStream(client, mapper); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	infrastructure.NewNATSEventPublisher(client, mapper, metrics).Attach(eventBus)
	return client, nil
}

// shutdown releases infrastructure in reverse start order
func shutdown(natsClient *infrastructure.NATSClient, store *Store, metrics *observability.MetricsProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Errorf("Error closing NATS connection: %v", err)
		}
	}

	log.Info("Closing store connection...")
	store.Close(ctx)

	if err := metrics.Shutdown(ctx); err != nil {
		log.Errorf("Error shutting down metrics: %v", err)
	}
}
