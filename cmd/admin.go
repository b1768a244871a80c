package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"broadcaster/bot"
	"broadcaster/config"
	"broadcaster/events"
	"broadcaster/models"
	"broadcaster/service"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// recentTransactionCount is how many transactions add-credits prints afterwards
const recentTransactionCount = 20

// addCreditsArgs are the parsed arguments of the add-credits command
type addCreditsArgs struct {
	discordID      int64
	externalAmount int64
	description    string
	key            string
	generatedKey   bool
}

// parseAddCreditsArgs accepts: <discord_id> <probot_amount> [description...] [--key K]
func parseAddCreditsArgs(args []string) (addCreditsArgs, error) {
	var (
		parsed     addCreditsArgs
		positional []string
	)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--key" || arg == "-key":
			if i+1 >= len(args) {
				return parsed, fmt.Errorf("--key needs a value")
			}
			i++
			parsed.key = args[i]
		case strings.HasPrefix(arg, "--key="):
			parsed.key = strings.TrimPrefix(arg, "--key=")
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) < 2 {
		return parsed, fmt.Errorf("usage: broadcaster add-credits <discord_id> <probot_amount> [description] [--key K]")
	}

	var err error
	parsed.discordID, err = strconv.ParseInt(positional[0], 10, 64)
	if err != nil {
		return parsed, fmt.Errorf("invalid discord id %q", positional[0])
	}
	parsed.externalAmount, err = strconv.ParseInt(positional[1], 10, 64)
	if err != nil {
		return parsed, fmt.Errorf("invalid amount %q", positional[1])
	}
	parsed.description = strings.Join(positional[2:], " ")

	if parsed.key == "" {
		parsed.key = "manual_" + uuid.NewString()
		parsed.generatedKey = true
	}
	return parsed, nil
}

// withServices opens the configured store for a one-shot command
func withServices(ctx context.Context, fn func(services bot.Services) error) error {
	cfg := config.Get()
	cfg.ConfigureLogging()

	store, err := OpenStore(ctx, cfg, events.NewBus())
	if err != nil {
		return err
	}
	defer store.Close(context.WithoutCancel(ctx))

	return fn(NewServices(cfg, store.Factory))
}

// AddCredits applies a manual top-up and prints the recent transaction log
func AddCredits(ctx context.Context, args []string, out io.Writer) error {
	parsed, err := parseAddCreditsArgs(args)
	if err != nil {
		return err
	}

	return withServices(ctx, func(services bot.Services) error {
		return addCredits(ctx, services, parsed, out)
	})
}

func addCredits(ctx context.Context, services bot.Services, parsed addCreditsArgs, out io.Writer) error {
	// The top-up may commit even when we see an error, so the key must be known before trying
	if parsed.generatedKey {
		fmt.Fprintf(out, "Using idempotency key %s. Pass --key %s when retrying this top-up.\n", parsed.key, parsed.key)
	}

	result, err := services.Ledger.TopUp(ctx, service.TopUpRequest{
		DiscordID:      parsed.discordID,
		ExternalAmount: parsed.externalAmount,
		Description:    parsed.description,
		IdempotencyKey: parsed.key,
	})
	if err != nil {
		return fmt.Errorf("failed to add credits (retry with --key %s): %w", parsed.key, err)
	}

	if result.Duplicate {
		fmt.Fprintf(out, "Key %s was already applied, nothing credited.\n", parsed.key)
	} else {
		fmt.Fprintf(out, "Added %d broadcast credits for %d ProBot credits (key %s).\n",
			result.Credits, parsed.externalAmount, parsed.key)
	}

	account, err := services.Account.Get(ctx, parsed.discordID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	fmt.Fprintf(out, "Balance for %d: %d credits\n\n", account.DiscordID, account.Credits)

	txs, err := services.Stats.ListTransactions(ctx, recentTransactionCount, 0)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}
	return writeTransactions(out, txs)
}

// Stats prints the system rollup
func Stats(ctx context.Context, out io.Writer) error {
	return withServices(ctx, func(services bot.Services) error {
		stats, err := services.Stats.SystemStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		return writeStats(out, stats)
	})
}

func writeStats(out io.Writer, stats *models.SystemStats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Users\t%d\n", stats.TotalUsers)
	fmt.Fprintf(w, "Transactions\t%d\n", stats.TotalTransactions)
	fmt.Fprintf(w, "Broadcasts\t%d\n", stats.TotalBroadcasts)
	fmt.Fprintf(w, "Credits in circulation\t%d\n", stats.TotalCreditsInCirculation)
	return w.Flush()
}

func writeTransactions(out io.Writer, txs []*models.Transaction) error {
	if len(txs) == 0 {
		fmt.Fprintln(out, "No transactions yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tUSER\tTYPE\tAMOUNT\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%d\t%s\t%+d\t%s\n",
			tx.CreatedAt.UTC().Format("2006-01-02 15:04:05"), tx.DiscordID, tx.Type, tx.SignedAmount(), tx.Description)
	}
	if err := w.Flush(); err != nil {
		log.WithError(err).Error("Failed to write transactions")
		return err
	}
	return nil
}
