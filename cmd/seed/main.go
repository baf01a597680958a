package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/tradesim/orderexec/internal/config"
	"github.com/tradesim/orderexec/internal/db"
	"github.com/tradesim/orderexec/internal/models"
)

// Seed the database with demo users and accounts
func main() {
	ctx := context.Background()
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required for seeding")
	}

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Skip if demo data already exists
	existing, err := database.ListAccounts(ctx)
	if err != nil {
		log.Fatalf("Failed to check accounts: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("Database already has %d accounts. No need to seed.\n", len(existing))
		os.Exit(0)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	trader1, err := database.CreateUser(ctx, "trader1", string(hash))
	if err != nil {
		log.Fatalf("Failed to create trader1: %v", err)
	}
	trader2, err := database.CreateUser(ctx, "trader2", string(hash))
	if err != nil {
		log.Fatalf("Failed to create trader2: %v", err)
	}

	seedAccounts := []models.Account{
		{
			AccountNumber:    "ACC-10001",
			UserID:           trader1.ID,
			Balance:          decimal.RequireFromString("100000.00"),
			AvailableBalance: decimal.RequireFromString("100000.00"),
			Status:           models.AccountActive,
		},
		{
			AccountNumber:    "ACC-10002",
			UserID:           trader1.ID,
			Balance:          decimal.RequireFromString("50000.00"),
			AvailableBalance: decimal.RequireFromString("50000.00"),
			Status:           models.AccountActive,
		},
		{
			AccountNumber:    "ACC-10003",
			UserID:           trader2.ID,
			Balance:          decimal.RequireFromString("75000.00"),
			AvailableBalance: decimal.RequireFromString("75000.00"),
			Status:           models.AccountActive,
		},
		{
			AccountNumber:    "ACC-10004",
			UserID:           trader2.ID,
			Balance:          decimal.RequireFromString("25000.00"),
			AvailableBalance: decimal.RequireFromString("25000.00"),
			Status:           models.AccountFrozen,
		},
	}

	for _, account := range seedAccounts {
		if _, err := database.CreateAccount(ctx, &account); err != nil {
			log.Fatalf("Failed to create account %s: %v", account.AccountNumber, err)
		}
	}

	fmt.Println("Successfully seeded the database with demo users and accounts!")
}
