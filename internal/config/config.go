package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	DBSource    string
	StoreDriver string
	Port        string
	Env         string
	LogLevel    string

	LockTimeout  time.Duration
	TxTimeout    time.Duration
	SweepWorkers int

	// Location is the zone in which "today" is evaluated for scheduling.
	Location *time.Location
}

// Load reads the configuration from the environment. A .env file in the
// working directory, if present, fills in variables that are not set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBSource:    os.Getenv("DB_SOURCE"),
		StoreDriver: getEnvOrDefault("STORE_DRIVER", DriverPostgres),
		Port:        getEnvOrDefault("SERVER_PORT", "8080"),
		Env:         getEnvOrDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DBSource == "" {
			return nil, fmt.Errorf("DB_SOURCE environment variable is required")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, cfg.StoreDriver)
	}

	var err error
	if cfg.LockTimeout, err = getEnvAsDuration("LOCK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.TxTimeout, err = getEnvAsDuration("TX_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.SweepWorkers, err = getEnvAsInt("SWEEP_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.SweepWorkers < 1 {
		return nil, fmt.Errorf("SWEEP_WORKERS must be at least 1")
	}

	tz := getEnvOrDefault("LEDGER_TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid LEDGER_TIMEZONE %q: %w", tz, err)
	}

	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getEnvAsInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
