package bot

import (
	"fmt"

	"broadcaster/bot/features/broadcast"
	"broadcaster/bot/features/credits"
	"broadcaster/bot/features/history"
	"broadcaster/bot/features/pay"
	"broadcaster/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token              string
	GuildID            string // registers commands for one guild; empty means global
	PaymentChannelID   string
	PaymentRecipientID string
	ProBotID           string
}

// Services bundles the ledger services the bot drives
type Services struct {
	Account   service.AccountService
	Ledger    service.LedgerService
	Broadcast service.BroadcastService
	Payment   service.PaymentService
	Stats     service.StatsService
}

// commandHandler is implemented by every feature
type commandHandler interface {
	HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate)
}

type Bot struct {
	config   Config
	session  *discordgo.Session
	features map[string]commandHandler
	watcher  *PaymentWatcher
	commands []*discordgo.ApplicationCommand
}

func New(config Config, services Services) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	executor := broadcast.NewExecutor(dg, services.Account, services.Ledger, services.Broadcast)

	bot := &Bot{
		config:  config,
		session: dg,
		features: map[string]commandHandler{
			"credits":   credits.New(services.Account, services.Stats),
			"history":   history.New(services.Ledger),
			"pay":       pay.New(services.Account, services.Ledger, services.Payment, config.PaymentRecipientID),
			"broadcast": broadcast.New(services.Account, executor),
		},
		watcher: NewPaymentWatcher(services.Payment, config.ProBotID, config.PaymentChannelID, config.PaymentRecipientID),
	}

	dg.AddHandler(bot.handleCommands)
	dg.AddHandler(bot.watcher.HandleMessageCreate)

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	log.WithField("guildID", config.GuildID).Info("Discord bot connected")
	return bot, nil
}

// Close removes guild-scoped commands and closes the gateway connection
func (b *Bot) Close() error {
	if b.config.GuildID != "" {
		for _, cmd := range b.commands {
			if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.config.GuildID, cmd.ID); err != nil {
				log.Warnf("Failed to delete command %s: %v", cmd.Name, err)
			}
		}
	}
	return b.session.Close()
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	feature, ok := b.features[name]
	if !ok {
		log.Warnf("Unknown command %q", name)
		return
	}
	feature.HandleCommand(s, i)
}
