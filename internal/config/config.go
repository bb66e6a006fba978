package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port             string
	AllowedOrigins   []string
	CatalogPath      string
	EnforceTurnOrder bool
	OutboxSize       int
	LogLevel         string
	LogDev           bool
	ShutdownTimeout  time.Duration
}

// Load reads configuration from the environment. A .env file, if present,
// is loaded by the caller before this runs.
func Load() (Config, error) {
	cfg := Config{
		Port:           getenv("PORT", "4000"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "localhost:3000")),
		CatalogPath:    os.Getenv("CATALOG_PATH"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.EnforceTurnOrder, err = parseBool("ENFORCE_TURN_ORDER", false); err != nil {
		return Config{}, err
	}
	if cfg.LogDev, err = parseBool("LOG_DEV", false); err != nil {
		return Config{}, err
	}
	if cfg.OutboxSize, err = parseInt("OUTBOX_SIZE", 32); err != nil {
		return Config{}, err
	}
	if cfg.OutboxSize <= 0 {
		return Config{}, fmt.Errorf("OUTBOX_SIZE must be positive, got %d", cfg.OutboxSize)
	}
	if cfg.ShutdownTimeout, err = parseDuration("SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Addr() string { return ":" + c.Port }

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func parseInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
