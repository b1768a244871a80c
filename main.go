package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"broadcaster/cmd"
	"broadcaster/config"
	"broadcaster/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) > 1 {
		if err := runSubcommand(ctx, os.Args[1], os.Args[2:]); err != nil {
			log.Fatalf("%s error: %v", os.Args[1], err)
		}
		return
	}

	go func() {
		<-ctx.Done()
		log.Info("Received shutdown signal, shutting down gracefully...")
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error: ", err)
	}
}

func runSubcommand(ctx context.Context, name string, args []string) error {
	switch name {
	case "migrate":
		return handleMigrationCommand(args)
	case "add-credits":
		return cmd.AddCredits(ctx, args, os.Stdout)
	case "stats":
		return cmd.Stats(ctx, os.Stdout)
	default:
		return fmt.Errorf("unknown command %q (want migrate, add-credits or stats)", name)
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: broadcaster migrate [up|down|status] [args...]")
	}

	cfg := config.Get()
	if cfg.StoreBackend != "postgres" {
		return fmt.Errorf("migrations apply to the postgres backend; mongo indexes are created on startup")
	}
	databaseURL := cfg.GetDatabaseURL()

	switch args[0] {
	case "up":
		return database.MigrateUp(databaseURL)
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(databaseURL, steps)
	case "status":
		return database.MigrateStatus(databaseURL)
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}
