package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	// StoreDriver selects the ledger backend: postgres, sqlite, or memory.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"stockledger.db"`

	// AllowNegativeStock treats oversold positions as backorders instead of
	// rejecting the issue.
	AllowNegativeStock bool `env:"ALLOW_NEGATIVE_STOCK" envDefault:"true"`

	// CheckpointMinReplay is the replay length above which the valuation
	// engine caches a checkpoint for the pair. Zero disables checkpointing.
	CheckpointMinReplay int `env:"CHECKPOINT_MIN_REPLAY" envDefault:"256"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required for the postgres store")
	}
	return &cfg, nil
}
