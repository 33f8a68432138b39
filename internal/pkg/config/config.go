package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/V4T54L/reqnotify/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`

	ServerAddr  string `env:"SERVER_ADDR" envDefault:":8080"`
	AdminAddr   string `env:"ADMIN_ADDR" envDefault:":9091"`
	UpstreamURL string `env:"UPSTREAM_URL"`

	NotifierURL          string            `env:"NOTIFIER_URL"`
	NotifierBody         string            `env:"NOTIFIER_BODY"`
	NotifierHeaders      map[string]string `env:"NOTIFIER_HEADERS" envSeparator:"," envKeyValSeparator:":"`
	NotifierConfigFile   string            `env:"NOTIFIER_CONFIG_FILE"`
	NotifierTimeout      time.Duration     `env:"NOTIFIER_TIMEOUT" envDefault:"10s"`
	NotifierMaxInFlight  int               `env:"NOTIFIER_MAX_IN_FLIGHT" envDefault:"0"`
	NotifierDrainTimeout time.Duration     `env:"NOTIFIER_DRAIN_TIMEOUT" envDefault:"5s"`

	RedisAddr           string `env:"REDIS_ADDR"`
	OutcomeStream       string `env:"OUTCOME_STREAM" envDefault:"webhook_outcomes"`
	OutcomeStreamMaxLen int64  `env:"OUTCOME_STREAM_MAXLEN" envDefault:"100000"`
	OutcomeDLQStream    string `env:"OUTCOME_DLQ_STREAM" envDefault:"webhook_outcomes_dlq"`

	KafkaBrokers []string `env:"OUTCOME_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"OUTCOME_KAFKA_TOPIC" envDefault:"webhook-outcomes"`

	PostgresURL    string        `env:"POSTGRES_URL"`
	AdminAPIKeys   []string      `env:"ADMIN_API_KEYS" envSeparator:","`
	AdminJWTSecret string        `env:"ADMIN_JWT_SECRET"`
	APIKeyCacheTTL time.Duration `env:"API_KEY_CACHE_TTL" envDefault:"5m"`
	RedactHeaders  []string      `env:"REDACT_HEADERS" envSeparator:","`

	ArchiverRetryCount   int           `env:"ARCHIVER_RETRY_COUNT" envDefault:"3"`
	ArchiverRetryBackoff time.Duration `env:"ARCHIVER_RETRY_BACKOFF" envDefault:"1s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.NotifierTimeout <= 0 {
		return nil, fmt.Errorf("NOTIFIER_TIMEOUT must be positive, got %s", cfg.NotifierTimeout)
	}
	if cfg.NotifierMaxInFlight < 0 {
		return nil, fmt.Errorf("NOTIFIER_MAX_IN_FLIGHT must not be negative, got %d", cfg.NotifierMaxInFlight)
	}

	return cfg, nil
}

// Notifier returns the webhook notifier configuration. A configured
// NOTIFIER_CONFIG_FILE takes precedence over the NOTIFIER_URL/BODY/HEADERS variables.
func (c *Config) Notifier() (domain.NotifierConfig, error) {
	if c.NotifierConfigFile != "" {
		return LoadNotifierFile(c.NotifierConfigFile)
	}

	nc := domain.NotifierConfig{URL: c.NotifierURL}
	if c.NotifierBody != "" {
		body := c.NotifierBody
		nc.Body = &body
	}
	if len(c.NotifierHeaders) > 0 {
		nc.Headers = make(map[string]string, len(c.NotifierHeaders))
		for k, v := range c.NotifierHeaders {
			// Names are kept verbatim so PrepareNotifier can reject malformed ones.
			nc.Headers[k] = strings.TrimSpace(v)
		}
	}
	return nc, nil
}

// LoadNotifierFile reads a notifier configuration with keys url, body and headers.
// Files ending in .json are decoded as JSON, anything else as YAML.
func LoadNotifierFile(path string) (domain.NotifierConfig, error) {
	var nc domain.NotifierConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return nc, fmt.Errorf("failed to read notifier config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &nc)
	} else {
		err = yaml.Unmarshal(data, &nc)
	}
	if err != nil {
		return nc, fmt.Errorf("failed to parse notifier config %s: %w", path, err)
	}
	return nc, nil
}
