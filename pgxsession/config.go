package pgxsession

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const defaultHealthCheckTimeout = 5 * time.Second

// Config captures PostgreSQL settings for the pool and the sessions opened
// over it. All fields are optional except DSN; zero values trigger sensible
// defaults.
type Config struct {
	DSN                string
	MaxConns           int32
	MinConns           int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	HealthCheckTimeout time.Duration
	Isolation          string
	MetricsEnabled     *bool
}

// Sanitize validates mandatory fields and applies default values. It returns
// a new Config instance, leaving the original untouched.
func (c Config) Sanitize() (Config, error) {
	if strings.TrimSpace(c.DSN) == "" {
		return Config{}, errors.New("pgxsession: dsn is required")
	}

	s := c
	s.DSN = strings.TrimSpace(c.DSN)

	if s.HealthCheckTimeout <= 0 {
		s.HealthCheckTimeout = defaultHealthCheckTimeout
	}
	if s.Isolation == "" {
		s.Isolation = "read_committed"
	}

	return s, nil
}

func (c Config) metricsEnabled() bool {
	if c.MetricsEnabled != nil {
		return *c.MetricsEnabled
	}
	return true
}

func parseIsolation(value string) pgx.TxIsoLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "serializable", "serial":
		return pgx.Serializable
	case "repeatable_read", "repeatable-read":
		return pgx.RepeatableRead
	case "read_uncommitted", "read-uncommitted":
		return pgx.ReadUncommitted
	case "read_committed", "read-committed", "":
		fallthrough
	default:
		return pgx.ReadCommitted
	}
}
