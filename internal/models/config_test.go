package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.False(t, config.Server.TLSEnabled)

	assert.Equal(t, StorageTypeJSON, config.Storage.Type)
	assert.Equal(t, "./data/storefront.json", config.Storage.Path)
	assert.NotNil(t, config.Storage.Options)

	assert.True(t, config.Security.EnableAuth)
	assert.Empty(t, config.Security.BootstrapKey)
	assert.True(t, config.Security.RateLimit.Enabled)
	assert.Equal(t, RateLimitBackendMemory, config.Security.RateLimit.Backend)
	assert.Equal(t, 5, config.Security.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, config.Security.RateLimit.Window)
	assert.Equal(t, 5*time.Minute, config.Security.RateLimit.CleanupInterval)

	assert.True(t, config.Referral.CookieSecure)
	assert.Contains(t, config.Referral.ExcludedPaths, "/api/")

	assert.Equal(t, "info", config.Logging.Level)
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, "storefront", config.Observability.ServiceName)

	require.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"tls without cert", func(c *Config) { c.Server.TLSEnabled = true }, "TLS cert"},
		{"unknown storage", func(c *Config) { c.Storage.Type = "mongo" }, "invalid storage type"},
		{"postgres without dsn", func(c *Config) { c.Storage.Type = StorageTypePostgres }, "DSN"},
		{"memory storage ok", func(c *Config) { c.Storage.Type = StorageTypeMemory; c.Storage.Path = "" }, ""},
		{"zero max requests", func(c *Config) { c.Security.RateLimit.MaxRequests = 0 }, "max requests"},
		{"zero window", func(c *Config) { c.Security.RateLimit.Window = 0 }, "window"},
		{"redis without addr", func(c *Config) { c.Security.RateLimit.Backend = RateLimitBackendRedis }, "redis address"},
		{"disabled limiter skips checks", func(c *Config) {
			c.Security.RateLimit.Enabled = false
			c.Security.RateLimit.Window = 0
		}, ""},
		{"unknown backend", func(c *Config) { c.Security.RateLimit.Backend = "memcached" }, "backend"},
		{"relative excluded path", func(c *Config) { c.Referral.ExcludedPaths = []string{"api"} }, "excluded path"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "log level"},
		{"file output without path", func(c *Config) { c.Logging.Output = "file" }, "file path"},
		{"metrics port", func(c *Config) { c.Metrics.Port = 70000 }, "metrics port"},
		{"otlp without endpoint", func(c *Config) {
			c.Observability.Tracing.Enabled = true
			c.Observability.Tracing.Exporter = "otlp"
		}, "OTLP endpoint"},
		{"sample rate", func(c *Config) {
			c.Observability.Tracing.Enabled = true
			c.Observability.Tracing.SampleRate = 2
		}, "sample rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
