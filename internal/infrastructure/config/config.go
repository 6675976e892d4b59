package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// Metrics (empty disables the textfile export)
	MetricsFile string `env:"METRICS_FILE" envDefault:""`

	// Redis report publishing (empty URL disables it)
	RedisURL          string        `env:"REDIS_URL"           envDefault:""`
	RedisKeyPrefix    string        `env:"REDIS_KEY_PREFIX"    envDefault:"txledger:"`
	RedisReportTTL    time.Duration `env:"REDIS_REPORT_TTL"    envDefault:"24h"`
	RedisTimeout      time.Duration `env:"REDIS_TIMEOUT"       envDefault:"5s"`
	PublishMaxRetries int           `env:"PUBLISH_MAX_RETRIES" envDefault:"3"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
