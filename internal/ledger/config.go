package ledger

import (
	"errors"
	"time"

	"github.com/forgeci/pubforge/internal/platform/env"
)

// Config drives the optional Postgres run ledger. The ledger is off
// unless a DSN is configured.
type Config struct {
	DSN             string
	PingTimeout     time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c Config) Enabled() bool { return c.DSN != "" }

func ConfigFromEnv() (Config, error) {
	pingTimeout, err := env.Duration("PUBFORGE_LEDGER_PING_TIMEOUT", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	maxOpenConns, err := env.Int("PUBFORGE_LEDGER_MAX_OPEN_CONNS", 4)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := env.Int("PUBFORGE_LEDGER_MAX_IDLE_CONNS", 2)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := env.Duration("PUBFORGE_LEDGER_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DSN:             env.String("PUBFORGE_LEDGER_DSN", ""),
		PingTimeout:     pingTimeout,
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
	}
	if !cfg.Enabled() {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.PingTimeout <= 0 {
		return errors.New("PUBFORGE_LEDGER_PING_TIMEOUT must be positive")
	}
	if c.MaxOpenConns < 1 {
		return errors.New("PUBFORGE_LEDGER_MAX_OPEN_CONNS must be >= 1")
	}
	if c.MaxIdleConns < 0 {
		return errors.New("PUBFORGE_LEDGER_MAX_IDLE_CONNS must be >= 0")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("PUBFORGE_LEDGER_MAX_IDLE_CONNS must be <= PUBFORGE_LEDGER_MAX_OPEN_CONNS")
	}
	if c.ConnMaxLifetime < 0 {
		return errors.New("PUBFORGE_LEDGER_CONN_MAX_LIFETIME must be >= 0")
	}
	return nil
}
