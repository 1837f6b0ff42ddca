package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"                envDefault:""`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS"     envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS"     envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME"  envDefault:"30m"`
	// LockTimeout bounds the wait for a row lock. Zero waits forever.
	LockTimeout time.Duration `env:"PG_LOCK_TIMEOUT" envDefault:"0s"`
}
