package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"broadcaster/database"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken       string `mapstructure:"DISCORD_TOKEN"`
	DiscordGuildID     string `mapstructure:"DISCORD_GUILD_ID"`
	PaymentChannelID   string `mapstructure:"PAYMENT_CHANNEL_ID"`   // Channel where ProBot transfer receipts appear
	PaymentRecipientID string `mapstructure:"PAYMENT_RECIPIENT_ID"` // Account that receives ProBot transfers
	ProBotID           string `mapstructure:"PROBOT_ID"`

	// Store configuration
	StoreBackend  string `mapstructure:"STORE_BACKEND"` // "postgres" or "mongo"
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DatabaseName  string `mapstructure:"DATABASE_NAME"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	// NATS configuration (empty disables event export)
	NATSServers string `mapstructure:"NATS_SERVERS"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `mapstructure:"OTEL_ENABLED"`
	OTelServiceName          string `mapstructure:"OTEL_SERVICE_NAME"`
	OTelExporterType         string `mapstructure:"OTEL_EXPORTER_TYPE"` // "console", "otlp" or "none"
	OTelOTLPEndpoint         string `mapstructure:"OTEL_OTLP_ENDPOINT"`
	OTelExportIntervalMillis int    `mapstructure:"OTEL_EXPORT_INTERVAL_MS"`

	// Ledger configuration
	ExchangeRate        int64         `mapstructure:"EXCHANGE_RATE"` // External currency units per credit
	PaymentWindow       time.Duration `mapstructure:"PAYMENT_WINDOW"`
	StatsReportSchedule string        `mapstructure:"STATS_REPORT_SCHEDULE"`

	// Environment
	Environment string `mapstructure:"ENVIRONMENT"` // "development", "production" or "test"
	LogLevel    string `mapstructure:"LOG_LEVEL"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

var keys = []string{
	"DISCORD_TOKEN", "DISCORD_GUILD_ID", "PAYMENT_CHANNEL_ID", "PAYMENT_RECIPIENT_ID", "PROBOT_ID",
	"STORE_BACKEND", "DATABASE_URL", "DATABASE_NAME", "MONGO_URI", "MONGO_DATABASE",
	"NATS_SERVERS",
	"OTEL_ENABLED", "OTEL_SERVICE_NAME", "OTEL_EXPORTER_TYPE", "OTEL_OTLP_ENDPOINT", "OTEL_EXPORT_INTERVAL_MS",
	"EXCHANGE_RATE", "PAYMENT_WINDOW", "STATS_REPORT_SCHEDULE",
	"ENVIRONMENT", "LOG_LEVEL",
}

// Load reads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PROBOT_ID", "282859044593598464")
	v.SetDefault("STORE_BACKEND", "postgres")
	v.SetDefault("MONGO_DATABASE", "discord_broadcaster")
	v.SetDefault("OTEL_SERVICE_NAME", "broadcaster")
	v.SetDefault("OTEL_EXPORTER_TYPE", "none")
	v.SetDefault("OTEL_EXPORT_INTERVAL_MS", 30000)
	v.SetDefault("EXCHANGE_RATE", 500)
	v.SetDefault("PAYMENT_WINDOW", "30m")
	v.SetDefault("STATS_REPORT_SCHEDULE", "@every 5m")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.WithError(err).Warn("Failed to read .env file, using environment values")
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.StoreBackend = strings.ToLower(strings.TrimSpace(config.StoreBackend))
	if config.ExchangeRate <= 0 {
		return nil, fmt.Errorf("EXCHANGE_RATE must be positive, got %d", config.ExchangeRate)
	}
	if config.PaymentWindow <= 0 {
		return nil, fmt.Errorf("PAYMENT_WINDOW must be positive, got %s", config.PaymentWindow)
	}

	switch config.StoreBackend {
	case "postgres", "mongo":
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND: %s", config.StoreBackend)
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.StoreBackend == "postgres" && config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.StoreBackend == "mongo" && config.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required")
		}
	}

	return config, nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetDatabaseURL returns the database URL with the configured database name applied
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// ConfigureLogging applies the configured log level to logrus
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("logLevel", c.LogLevel).Warn("Unknown log level, defaulting to info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	}
}
