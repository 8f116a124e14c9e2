package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"farmledger/application"
	"farmledger/cmd"
	"farmledger/config"
	"farmledger/database"
	"farmledger/domain/entities"
	"farmledger/infrastructure"
)

func main() {
	// .env is optional; real deployments configure via the environment
	_ = godotenv.Load()

	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error:", err)
		}
		return
	}

	// Check for balance adjustment subcommands
	if len(os.Args) > 1 && os.Args[1] == "adjust-balance" {
		if err := handleBalanceAdjustment(); err != nil {
			log.Fatal("Balance adjustment error:", err)
		}
		return
	}

	// Normal service operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Run the application
	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error:", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: farmledger migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

// handleBalanceAdjustment records an operator adjustment. It goes through
// the same ingress as every other transaction so the ledger stays the
// source of truth; there is no direct balance write path.
func handleBalanceAdjustment() error {
	if len(os.Args) < 5 {
		return fmt.Errorf("usage: farmledger adjust-balance telegram-id currency signed-amount [note]")
	}

	telegramID, err := strconv.ParseInt(os.Args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram id %q: %w", os.Args[2], err)
	}
	currency := entities.Currency(os.Args[3])
	amount, err := decimal.NewFromString(os.Args[4])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", os.Args[4], err)
	}
	note := "operator adjustment"
	if len(os.Args) > 5 {
		note = os.Args[5]
	}

	ctx := context.Background()
	cfg := config.Get()

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Admin commands log events locally instead of publishing them
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, infrastructure.NewNoopEventPublisher())
	ledgerService := application.NewLedgerService(uowFactory, cfg)

	user, err := ledgerService.GetOrCreateUser(ctx, telegramID, "")
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	result, err := ledgerService.RecordTransaction(ctx, entities.NewManualAdjustment(user.ID, currency, amount, note))
	if err != nil {
		return fmt.Errorf("failed to record adjustment: %w", err)
	}

	balance, err := ledgerService.GetBalance(ctx, user.ID, currency)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	log.Printf("Recorded adjustment %d for user %d: %s %s, new balance %s",
		result.Transaction.ID, user.ID, amount.String(), currency, balance.String())
	return nil
}
