// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// ListenAddr is the bind address for the collaborator HTTP surface.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// DatabaseURL selects the postgres store when set; the in-memory
	// store is used otherwise.
	DatabaseURL string `env:"DATABASE_URL"`

	// KafkaBrokers enables the ledger event publisher when non-empty.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"ledger_recorded"`

	// AutomationSchedule is a 5-field cron expression for the sweep.
	AutomationSchedule string `env:"AUTOMATION_SCHEDULE" envDefault:"0 0 * * *"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env if present, then parses the environment.
func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
