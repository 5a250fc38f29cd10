// Package config reads tracker settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/erazemk/poetrack/internal/model"
)

// Prefix of all environment variables, e.g. POETRACK_DB_PATH.
const Prefix = "poetrack"

// Config holds the tracker settings.
type Config struct {
	// DBPath is the SQLite database holding the item list and its backups.
	DBPath string `envconfig:"DB_PATH" default:"poetrack.sqlite3"`

	// StorageKey is the key the item list is stored under.
	StorageKey string `envconfig:"STORAGE_KEY" default:"poe2_tracker_items"`

	// StorageQuotaBytes caps the total size of stored documents. Zero disables the cap.
	StorageQuotaBytes int64 `envconfig:"STORAGE_QUOTA_BYTES" default:"5242880"`

	// MaxImportBytes is the largest import file accepted.
	MaxImportBytes int64 `envconfig:"MAX_IMPORT_BYTES" default:"10485760"`

	// BackupsKept is how many backups are retained before an import.
	BackupsKept int `envconfig:"BACKUPS_KEPT" default:"3"`

	// Rates maps currency names to their value in chaos, used for statistics.
	Rates map[string]string `envconfig:"RATES" default:"divine:200,exalted:150,chaos:1"`

	// LogPath is an optional log file, rotated when it grows large.
	LogPath string `envconfig:"LOG_PATH"`
}

// Parse loads an optional .env file from the working directory and reads
// the configuration from the environment.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if cfg.StorageKey == "" {
		return nil, errors.New("parsing configuration: storage key must not be empty")
	}
	if _, err := cfg.ExchangeRates(); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	return &cfg, nil
}

// ExchangeRates converts the configured rates. Currencies left out keep
// their default rate.
func (c *Config) ExchangeRates() (model.Rates, error) {
	rates := model.DefaultRates()
	for name, value := range c.Rates {
		currency, ok := model.ParseCurrency(name)
		if !ok {
			return nil, fmt.Errorf("unknown currency %q in rates", name)
		}
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", currency, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", currency)
		}
		rates[currency] = rate
	}
	return rates, nil
}

// Usage prints the supported environment variables to stdout.
func Usage() error {
	return envconfig.Usage(Prefix, &Config{})
}
