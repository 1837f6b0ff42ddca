package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/ledger/internal/config"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT"             envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL"        envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// Store selects the account store: "postgres" or "memory".
	Store    string `env:"LEDGER_STORE" envDefault:"postgres"`
	Postgres config.PostgresConfig
}
