package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the service configuration
type Config struct {
	ListenAddr     string
	DatabaseURL    string // empty means the in-memory store
	JWTSecret      string
	InitialDeposit decimal.Decimal // opening balance for newly registered accounts
	PriceSeed      int64           // 0 means time-seeded market prices
}

// Default returns the development defaults
func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		DatabaseURL:    "",
		JWTSecret:      "dev-secret",
		InitialDeposit: decimal.RequireFromString("100000.00"),
	}
}

// Load reads configuration from a .env file (if present) and environment
// variables. Priority: ENV > .env file > defaults.
func Load() Config {
	cfg := Default()

	_ = godotenv.Load()

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("INITIAL_DEPOSIT"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			cfg.InitialDeposit = d
		}
	}
	if v := os.Getenv("PRICE_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.PriceSeed = n
		}
	}
	return cfg
}
