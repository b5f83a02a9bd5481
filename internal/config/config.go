// Package config loads the storefront service configuration: defaults first,
// then an optional YAML file, then STOREFRONT_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"storefront/internal/models"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STOREFRONT_"

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// deprecatedConfig mirrors removed config fields for detecting stale operator configs.
type deprecatedConfig struct {
	Security struct {
		RateLimit struct {
			RequestsPerMinute int `yaml:"requests_per_minute"`
			BurstSize         int `yaml:"burst_size"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Referral struct {
		CookieMaxAge string `yaml:"cookie_max_age"`
	} `yaml:"referral"`
}

// warnDeprecatedKeys logs a warning for each removed config key found in the YAML data.
// The service still starts; the main decoder ignores these keys.
func warnDeprecatedKeys(data []byte) {
	var dep deprecatedConfig
	if err := yaml.Unmarshal(data, &dep); err != nil {
		return
	}
	if dep.Security.RateLimit.RequestsPerMinute != 0 {
		slog.Warn("Config key is no longer supported; use max_requests and window.", "config_key", "security.rate_limit.requests_per_minute")
	}
	if dep.Security.RateLimit.BurstSize != 0 {
		slog.Warn("Config key is no longer supported; the limiter uses fixed windows without bursts.", "config_key", "security.rate_limit.burst_size")
	}
	if dep.Referral.CookieMaxAge != "" {
		slog.Warn("Config key is no longer supported; the referral cookie lifetime matches the 90 day attribution window.", "config_key", "referral.cookie_max_age")
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	warnDeprecatedKeys(data)
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func envString(name string, dst *string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		} else {
			slog.Warn("Ignoring malformed integer environment variable", "name", EnvPrefix+name, "value", v)
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = strings.ToLower(v) == "true"
	}
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		} else {
			slog.Warn("Ignoring malformed duration environment variable", "name", EnvPrefix+name, "value", v)
		}
	}
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envList(name string, dst *[]string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	// Server
	envInt("PORT", &config.Server.Port)
	envString("HOST", &config.Server.Host)
	envDuration("READ_TIMEOUT", &config.Server.ReadTimeout)
	envDuration("WRITE_TIMEOUT", &config.Server.WriteTimeout)
	envDuration("IDLE_TIMEOUT", &config.Server.IdleTimeout)
	envBool("TLS_ENABLED", &config.Server.TLSEnabled)
	envString("TLS_CERT_FILE", &config.Server.TLSCertFile)
	envString("TLS_KEY_FILE", &config.Server.TLSKeyFile)
	envBool("CORS_ENABLED", &config.Server.CORS.Enabled)
	envList("CORS_ALLOWED_ORIGINS", &config.Server.CORS.AllowedOrigins)

	// Storage
	envString("STORAGE_TYPE", &config.Storage.Type)
	envString("STORAGE_PATH", &config.Storage.Path)
	envString("DATABASE_DSN", &config.Storage.Database.DSN)
	envInt("DATABASE_MAX_OPEN_CONNS", &config.Storage.Database.MaxOpenConns)
	envInt("DATABASE_MAX_IDLE_CONNS", &config.Storage.Database.MaxIdleConns)
	envDuration("DATABASE_CONN_MAX_LIFETIME", &config.Storage.Database.ConnMaxLifetime)

	// Security
	envBool("ENABLE_AUTH", &config.Security.EnableAuth)
	envString("BOOTSTRAP_KEY", &config.Security.BootstrapKey)

	rl := &config.Security.RateLimit
	envBool("RATE_LIMIT_ENABLED", &rl.Enabled)
	envString("RATE_LIMIT_BACKEND", &rl.Backend)
	envInt("RATE_LIMIT_MAX_REQUESTS", &rl.MaxRequests)
	envInt("RATE_LIMIT_TRACK_MAX_REQUESTS", &rl.TrackMaxRequests)
	envDuration("RATE_LIMIT_WINDOW", &rl.Window)
	envDuration("RATE_LIMIT_CLEANUP_INTERVAL", &rl.CleanupInterval)
	envString("REDIS_ADDR", &rl.Redis.Addr)
	envString("REDIS_PASSWORD", &rl.Redis.Password)
	envInt("REDIS_DB", &rl.Redis.DB)
	envInt("REDIS_POOL_SIZE", &rl.Redis.PoolSize)
	envString("REDIS_PREFIX", &rl.Redis.Prefix)

	// Referral cookies
	envBool("COOKIE_SECURE", &config.Referral.CookieSecure)
	envString("COOKIE_DOMAIN", &config.Referral.CookieDomain)
	envList("REFERRAL_EXCLUDED_PATHS", &config.Referral.ExcludedPaths)

	// Logging
	envString("LOG_LEVEL", &config.Logging.Level)
	envString("LOG_FORMAT", &config.Logging.Format)
	envString("LOG_OUTPUT", &config.Logging.Output)
	envString("LOG_FILE_PATH", &config.Logging.FilePath)

	// Metrics and tracing
	envBool("METRICS_ENABLED", &config.Metrics.Enabled)
	envString("METRICS_PATH", &config.Metrics.Path)
	envInt("METRICS_PORT", &config.Metrics.Port)
	envString("SERVICE_NAME", &config.Observability.ServiceName)
	envBool("TRACING_ENABLED", &config.Observability.Tracing.Enabled)
	envString("TRACING_EXPORTER", &config.Observability.Tracing.Exporter)
	envString("OTLP_ENDPOINT", &config.Observability.Tracing.OTLPEndpoint)
	envFloat("TRACING_SAMPLE_RATE", &config.Observability.Tracing.SampleRate)
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()
	config.Security.BootstrapKey = models.APIKeyPrefix + "your-bootstrap-key-here"
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"
	config.Security.RateLimit.Redis.Addr = "localhost:6379"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
