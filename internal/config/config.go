// Package config loads runtime configuration from a YAML file and
// environment variables, later sources overriding earlier ones.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// CREDITTOKEN_DATABASE_URL -> database.url.
const EnvPrefix = "CREDITTOKEN_"

// envKeys maps variable names under EnvPrefix to koanf paths. The table is
// explicit because underscores appear both as section separators and inside
// key names, so the path cannot be derived from the variable mechanically.
var envKeys = map[string]string{
	"ENVIRONMENT":                  "environment",
	"HTTP_ADDR":                    "http.addr",
	"HTTP_CORS_ORIGINS":            "http.cors_origins",
	"HTTP_SHUTDOWN_TIMEOUT":        "http.shutdown_timeout",
	"DATABASE_URL":                 "database.url",
	"ADMIN_TOKEN":                  "admin.token",
	"PRICING_TOKEN_COST_CENTS":     "pricing.token_cost_cents",
	"PRICING_REFUND_FULL_CENTS":    "pricing.refund_full_cents",
	"PRICING_REFUND_PARTIAL_CENTS": "pricing.refund_partial_cents",
	"PRICING_FULL_REFUND_WINDOW":   "pricing.full_refund_window",
	"RATE_LIMIT_ISSUE_PER_MINUTE":  "rate_limit.issue_per_minute",
	"RATE_LIMIT_ISSUE_BURST":       "rate_limit.issue_burst",
	"LOG_LEVEL":                    "log.level",
}

// Config is the root configuration for the API server.
type Config struct {
	Environment string          `koanf:"environment"`
	HTTP        HTTPConfig      `koanf:"http"`
	Database    DatabaseConfig  `koanf:"database"`
	Admin       AdminConfig     `koanf:"admin"`
	Pricing     PricingConfig   `koanf:"pricing"`
	RateLimit   RateLimitConfig `koanf:"rate_limit"`
	Log         LogConfig       `koanf:"log"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AdminConfig configures the privileged admin surface.
type AdminConfig struct {
	// Token is the bearer token required on /admin routes. The admin
	// surface is disabled when empty.
	Token string `koanf:"token"`
}

// PricingConfig holds the issuance cost and the refund policy. Refund
// amounts are fixed by policy rather than derived from the issuance cost,
// since policy may diverge from price over time.
type PricingConfig struct {
	TokenCostCents     int64         `koanf:"token_cost_cents"`
	RefundFullCents    int64         `koanf:"refund_full_cents"`
	RefundPartialCents int64         `koanf:"refund_partial_cents"`
	FullRefundWindow   time.Duration `koanf:"full_refund_window"`
}

// RateLimitConfig configures per-key throttling of issuance requests.
type RateLimitConfig struct {
	IssuePerMinute int `koanf:"issue_per_minute"`
	IssueBurst     int `koanf:"issue_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `koanf:"level"`
}

// Default configuration values.
const (
	DefaultHTTPAddr           = ":8080"
	DefaultShutdownTimeout    = 10 * time.Second
	DefaultTokenCostCents     = 250
	DefaultRefundFullCents    = 250
	DefaultRefundPartialCents = 125
	DefaultFullRefundWindow   = 10 * time.Minute
	DefaultIssuePerMinute     = 6
	DefaultIssueBurst         = 3
	DefaultLogLevel           = "info"
)

// Default returns the baseline configuration before file and env overrides.
func Default() Config {
	return Config{
		Environment: "development",
		HTTP: HTTPConfig{
			Addr:            DefaultHTTPAddr,
			CORSOrigins:     []string{"http://localhost:5173"},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Pricing: PricingConfig{
			TokenCostCents:     DefaultTokenCostCents,
			RefundFullCents:    DefaultRefundFullCents,
			RefundPartialCents: DefaultRefundPartialCents,
			FullRefundWindow:   DefaultFullRefundWindow,
		},
		RateLimit: RateLimitConfig{
			IssuePerMinute: DefaultIssuePerMinute,
			IssueBurst:     DefaultIssueBurst,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Load reads configuration from the optional YAML file at path, then from
// CREDITTOKEN_* environment variables, on top of the defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Unknown variables map to "" and are skipped by the provider.
	envTransformer := func(s string) string {
		return envKeys[strings.TrimPrefix(s, EnvPrefix)]
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformer), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Verify(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Verify validates the configuration.
func Verify(cfg Config) error {
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Pricing.TokenCostCents <= 0 {
		return errors.New("pricing.token_cost_cents must be positive")
	}
	if cfg.Pricing.RefundFullCents < 0 || cfg.Pricing.RefundPartialCents < 0 {
		return errors.New("refund amounts must not be negative")
	}
	if cfg.Pricing.FullRefundWindow <= 0 {
		return errors.New("pricing.full_refund_window must be positive")
	}
	if cfg.RateLimit.IssuePerMinute < 0 || cfg.RateLimit.IssueBurst < 0 {
		return errors.New("rate limits must not be negative")
	}
	return nil
}
