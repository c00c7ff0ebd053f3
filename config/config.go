package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	PGURL                  string
	Port                   string
	ConcentrationThreshold decimal.Decimal
}

// Load reads configuration from a .env file (if present) and environment
// variables.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	pgURL := os.Getenv("PG_URL")
	if pgURL == "" {
		return nil, fmt.Errorf("PG_URL environment variable is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	threshold := decimal.RequireFromString("0.20")
	if raw := os.Getenv("CONCENTRATION_THRESHOLD"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CONCENTRATION_THRESHOLD %q: %w", raw, err)
		}
		if parsed.LessThanOrEqual(decimal.Zero) || parsed.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("CONCENTRATION_THRESHOLD must be in (0, 1], got %s", parsed)
		}
		threshold = parsed
	}

	return &Config{
		PGURL:                  pgURL,
		Port:                   port,
		ConcentrationThreshold: threshold,
	}, nil
}
