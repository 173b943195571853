package main

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment (and an optional .env file).
type Config struct {
	Port string `envconfig:"PORT" default:"8787"`

	SaltConfigURL string        `envconfig:"SALT_CONFIG_URL" default:"https://raw.githubusercontent.com/UIGF-org/mihoyo-api-collect/main/other/salt_config.json"`
	SaltCacheTTL  time.Duration `envconfig:"SALT_CACHE_TTL" default:"1h"`
	SaltFetchWait time.Duration `envconfig:"SALT_FETCH_TIMEOUT" default:"5s"`
	SaltCache     string        `envconfig:"SALT_CACHE" default:"memory"` // memory | leveldb | redis
	SaltCachePath string        `envconfig:"SALT_CACHE_PATH" default:"salt-cache"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SaltPrewarm   string        `envconfig:"SALT_PREWARM" default:"@every 30m"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	PageDelay      time.Duration `envconfig:"PAGE_DELAY" default:"200ms"`
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`
	ProxyFile      string        `envconfig:"PROXY_FILE"`

	RateLimitPerMinute float64 `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
	RateLimitBurst     int     `envconfig:"RATE_LIMIT_BURST" default:"10"`

	LogFile string `envconfig:"LOG_FILE"`
	Debug   bool   `envconfig:"DEBUG" default:"false"`
}

// LoadConfig loads .env (if present) and then binds the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return cfg, nil
}
