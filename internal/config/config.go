// Package config loads daemon configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/hmkt/market/internal/core/domain"
)

type Config struct {
	// DBDriver selects the database/sql driver: "mysql" or "sqlite".
	DBDriver string `env:"DB_DRIVER" envDefault:"mysql"`
	DBDSN    string `env:"DB_DSN" envDefault:"root:root@tcp(localhost:3306)/market?parseTime=true"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// QueueSize bounds the storage worker's queue; a full queue blocks
	// submitters.
	QueueSize int `env:"QUEUE_SIZE" envDefault:"1024"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`

	// System-market fees.
	MarketListingFee      float64 `env:"MARKET_LISTING_FEE" envDefault:"100"`
	MarketTaxPercent      float64 `env:"MARKET_TAX_PERCENT" envDefault:"5"`
	MarketStorageBase     float64 `env:"MARKET_STORAGE_BASE" envDefault:"10"`
	MarketStoragePercent  float64 `env:"MARKET_STORAGE_PERCENT" envDefault:"1"`
	MarketStorageFreeDays int     `env:"MARKET_STORAGE_FREE_DAYS" envDefault:"7"`
	MarketSlotLimit       int     `env:"MARKET_SLOT_LIMIT" envDefault:"27"`

	// Signshop defaults, used for any market without a persisted override.
	SignshopListingFee      float64 `env:"SIGNSHOP_LISTING_FEE" envDefault:"20"`
	SignshopTaxPercent      float64 `env:"SIGNSHOP_TAX_PERCENT" envDefault:"10"`
	SignshopStorageBase     float64 `env:"SIGNSHOP_STORAGE_BASE" envDefault:"5"`
	SignshopStoragePercent  float64 `env:"SIGNSHOP_STORAGE_PERCENT" envDefault:"2"`
	SignshopStorageFreeDays int     `env:"SIGNSHOP_STORAGE_FREE_DAYS" envDefault:"3"`
	SignshopSlotLimit       int     `env:"SIGNSHOP_SLOT_LIMIT" envDefault:"9"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// SystemMarketConfig returns the static system-market fee configuration.
func (c Config) SystemMarketConfig() domain.MarketConfig {
	return domain.MarketConfig{
		Market:            domain.SystemMarketID,
		ListingFee:        c.MarketListingFee,
		TaxRatePercent:    c.MarketTaxPercent,
		StorageFeeBase:    c.MarketStorageBase,
		StorageFeePercent: c.MarketStoragePercent,
		StorageFreeDays:   c.MarketStorageFreeDays,
		SlotLimit:         c.MarketSlotLimit,
	}
}

// SignshopConfig returns the fallback configuration for signshop markets.
func (c Config) SignshopConfig() domain.MarketConfig {
	return domain.MarketConfig{
		ListingFee:        c.SignshopListingFee,
		TaxRatePercent:    c.SignshopTaxPercent,
		StorageFeeBase:    c.SignshopStorageBase,
		StorageFeePercent: c.SignshopStoragePercent,
		StorageFreeDays:   c.SignshopStorageFreeDays,
		SlotLimit:         c.SignshopSlotLimit,
	}
}
