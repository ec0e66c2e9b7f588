package config

import (
	"time"

	"github.com/bffagent/bffagent/internal/provider"
)

// Config represents the complete application configuration.
// Values come from defaults, the user config file, then {PREFIX}* environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Store     StoreConfig     `mapstructure:"store"`
	Client    ClientConfig    `mapstructure:"client"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// TrustedProxies are addresses or CIDR ranges whose forwarding headers are honored.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// ProviderConfig describes the upstream chat-completion service.
//
// APIKey is read from the environment in deployments; it is never logged.
type ProviderConfig struct {
	BaseURL           string                 `mapstructure:"base_url"`
	APIKey            string                 `mapstructure:"api_key"`
	Model             string                 `mapstructure:"model"`
	Timeout           time.Duration          `mapstructure:"timeout"`
	RequestsPerSecond float64                `mapstructure:"requests_per_second"`
	Burst             int                    `mapstructure:"burst"`
	Breaker           provider.BreakerConfig `mapstructure:"breaker"`
}

// Rate limit storage backends.
const (
	BackendMemory = "memory"
	BackendLibsql = "libsql"
)

// RateLimitConfig controls the per-client request window.
type RateLimitConfig struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`

	// Backend is "memory" (default) or "libsql".
	Backend string `mapstructure:"backend"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// ClientConfig is what the chat client needs to reach a proxy.
type ClientConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	AccessKey string `mapstructure:"access_key"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}
