package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CREDITTOKEN_DATABASE_URL", "postgres://localhost:5432/credittoken")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, int64(250), cfg.Pricing.TokenCostCents)
	assert.Equal(t, int64(250), cfg.Pricing.RefundFullCents)
	assert.Equal(t, int64(125), cfg.Pricing.RefundPartialCents)
	assert.Equal(t, 10*time.Minute, cfg.Pricing.FullRefundWindow)
	assert.Equal(t, 6, cfg.RateLimit.IssuePerMinute)
	assert.Equal(t, 3, cfg.RateLimit.IssueBurst)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Admin.Token)
}

func TestLoad_File(t *testing.T) {
	// Setenv registers the restore; the variable itself must be absent so
	// the file value wins.
	t.Setenv("CREDITTOKEN_DATABASE_URL", "ignored")
	os.Unsetenv("CREDITTOKEN_DATABASE_URL")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
http:
  addr: ":9090"
database:
  url: postgres://db:5432/credittoken
admin:
  token: super-secret
pricing:
  token_cost_cents: 300
log:
  level: warn
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "postgres://db:5432/credittoken", cfg.Database.URL)
	assert.Equal(t, "super-secret", cfg.Admin.Token)
	assert.Equal(t, int64(300), cfg.Pricing.TokenCostCents)
	assert.Equal(t, "warn", cfg.Log.Level)
	// Values the file does not mention keep their defaults.
	assert.Equal(t, int64(125), cfg.Pricing.RefundPartialCents)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  url: postgres://db:5432/credittoken
http:
  addr: ":9090"
`), 0o600))

	t.Setenv("CREDITTOKEN_HTTP_ADDR", ":7070")
	t.Setenv("CREDITTOKEN_ENVIRONMENT", "production")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoad_EnvMultiWordKeys(t *testing.T) {
	t.Setenv("CREDITTOKEN_DATABASE_URL", "postgres://localhost:5432/credittoken")
	t.Setenv("CREDITTOKEN_PRICING_TOKEN_COST_CENTS", "999")
	t.Setenv("CREDITTOKEN_PRICING_REFUND_PARTIAL_CENTS", "70")
	t.Setenv("CREDITTOKEN_RATE_LIMIT_ISSUE_PER_MINUTE", "42")
	t.Setenv("CREDITTOKEN_HTTP_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(999), cfg.Pricing.TokenCostCents)
	assert.Equal(t, int64(70), cfg.Pricing.RefundPartialCents)
	assert.Equal(t, 42, cfg.RateLimit.IssuePerMinute)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	// Untouched keys keep their defaults.
	assert.Equal(t, int64(250), cfg.Pricing.RefundFullCents)
	assert.Equal(t, 3, cfg.RateLimit.IssueBurst)
}

func TestLoad_UnknownEnvVarIgnored(t *testing.T) {
	t.Setenv("CREDITTOKEN_DATABASE_URL", "postgres://localhost:5432/credittoken")
	t.Setenv("CREDITTOKEN_NO_SUCH_KEY", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Pricing, cfg.Pricing)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	valid := Default()
	valid.Database.URL = "postgres://localhost:5432/credittoken"

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing database url", func(c *Config) { c.Database.URL = "" }, "database.url is required"},
		{"zero token cost", func(c *Config) { c.Pricing.TokenCostCents = 0 }, "pricing.token_cost_cents must be positive"},
		{"negative refund", func(c *Config) { c.Pricing.RefundPartialCents = -1 }, "refund amounts must not be negative"},
		{"zero refund window", func(c *Config) { c.Pricing.FullRefundWindow = 0 }, "pricing.full_refund_window must be positive"},
		{"negative rate limit", func(c *Config) { c.RateLimit.IssuePerMinute = -1 }, "rate limits must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tc.mutate(&cfg)
			err := Verify(cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.wantErr)
			}
		})
	}
}
