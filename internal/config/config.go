package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ROSILIAS_"

// Config is the merged view of configs/*.yaml, .env and the process environment.
type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	Database struct {
		URL             string        `koanf:"url"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"database"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Stripe struct {
		SecretKey     string        `koanf:"secret_key"`
		WebhookSecret string        `koanf:"webhook_secret"`
		Currency      string        `koanf:"currency"`
		Timeout       time.Duration `koanf:"timeout"`
	} `koanf:"stripe"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		TokenTTL  time.Duration `koanf:"token_ttl"`
	} `koanf:"security"`

	Kafka struct {
		Brokers []string `koanf:"brokers"`
		Topic   string   `koanf:"topic"`
	} `koanf:"kafka"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Idle struct {
		QuietPeriod time.Duration `koanf:"quiet_period"`
	} `koanf:"idle"`

	Storefront struct {
		APIBaseURL string `koanf:"api_base_url"`
		ReturnURL  string `koanf:"return_url"`
	} `koanf:"storefront"`
}

// legacyEnv maps the un-prefixed variable names used by earlier deployments
// onto config keys. They win over the YAML file but lose to ROSILIAS_* values.
var legacyEnv = map[string]string{
	"DATABASE_URL":          "database.url",
	"JWT_SECRET":            "security.jwt_secret",
	"STRIPE_SECRET_KEY":     "stripe.secret_key",
	"STRIPE_WEBHOOK_SECRET": "stripe.webhook_secret",
	"REDIS_ADDR":            "redis.addr",
	"HTTP_ADDR":             "app.http_addr",
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":                   "rosilias-store",
		"app.http_addr":              ":8080",
		"app.log_level":              "info",
		"app.log_file":               "./logs/app.log",
		"database.max_open_conns":    16,
		"database.max_idle_conns":    16,
		"database.conn_max_lifetime": "30m",
		"stripe.currency":            "BRL",
		"stripe.timeout":             "10s",
		"security.token_ttl":         "72h",
		"kafka.topic":                "order-status-changed",
		"idempotency.ttl":            "72h",
		"idle.quiet_period":          "3m",
		"storefront.api_base_url":    "http://localhost:8080",
		"storefront.return_url":      "http://localhost:8080/checkout",
	}
}

// Load builds the configuration. path may be empty, in which case ROSILIAS_CONFIG
// and then configs/base.yaml are tried; a missing file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return Config{}, fmt.Errorf("defaults: %w", err)
		}
	}

	if path == "" {
		path = os.Getenv("ROSILIAS_CONFIG")
	}
	if path == "" {
		path = "configs/base.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("stat %s: %w", path, err)
	}

	for name, key := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			if err := k.Set(key, v); err != nil {
				return Config{}, fmt.Errorf("legacy env %s: %w", name, err)
			}
		}
	}

	// ROSILIAS_DATABASE__URL -> database.url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	return cfg, nil
}

// Validate checks what the HTTP server cannot start without. Stripe keys are
// checked per request by the payment handlers.
func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url required (DATABASE_URL)")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required (JWT_SECRET)")
	}
	return nil
}
