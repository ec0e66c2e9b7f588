package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		v := viper.New()
		SetDefaults(v)

		cfg, err := Load(ctx, v)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		// Verify provider defaults
		assert.Equal(t, "gpt-4", cfg.Provider.Model)
		assert.Equal(t, 45*time.Second, cfg.Provider.Timeout)
		assert.Equal(t, uint32(5), cfg.Provider.Breaker.MaxFailures)
		assert.Equal(t, 30*time.Second, cfg.Provider.Breaker.Timeout)

		// Verify rate limit defaults
		assert.Equal(t, time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, 30, cfg.RateLimit.MaxRequests)
		assert.Equal(t, BackendMemory, cfg.RateLimit.Backend)

		// Verify store defaults
		assert.Equal(t, "libsql", cfg.Store.Driver)
		assert.NotEmpty(t, cfg.Store.Path)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)

		assert.Same(t, cfg, GetConfig())
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("BFFAGENT_PORT", "9100")
		t.Setenv("BFFAGENT_RATE_LIMIT_MAX_REQUESTS", "5")
		t.Setenv("BFFAGENT_PROVIDER_MODEL", "gpt-4o-mini")
		t.Setenv("BFFAGENT_RATE_LIMIT_WINDOW", "2m")

		v := viper.New()
		SetDefaults(v)

		cfg, err := Load(ctx, v)
		require.NoError(t, err)

		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
		assert.Equal(t, "gpt-4o-mini", cfg.Provider.Model)
		assert.Equal(t, 2*time.Minute, cfg.RateLimit.Window)
	})

	t.Run("ExplicitStoreURLKeepsPathEmpty", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("store.url", "libsql://db.example.turso.io")

		cfg, err := Load(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, "", cfg.Store.Path)
	})
}

func TestDecode(t *testing.T) {
	t.Run("Durations", func(t *testing.T) {
		cfg, err := Decode(map[string]any{
			"provider": map[string]any{
				"timeout":             "3s",
				"requests_per_second": "2.5",
				"breaker":             map[string]any{"max_failures": 2, "interval": "1m"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, cfg.Provider.Timeout)
		assert.Equal(t, 2.5, cfg.Provider.RequestsPerSecond)
		assert.Equal(t, uint32(2), cfg.Provider.Breaker.MaxFailures)
		assert.Equal(t, time.Minute, cfg.Provider.Breaker.Interval)
	})

	t.Run("RejectsUnknownBackend", func(t *testing.T) {
		_, err := Decode(map[string]any{
			"rate_limit": map[string]any{"backend": "redis"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate_limit.backend")
	})
}

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{name: "valid", cfg: ClientConfig{BaseURL: "https://proxy.local", AccessKey: "k-123"}},
		{name: "missing url", cfg: ClientConfig{AccessKey: "k-123"}, wantErr: true},
		{name: "missing key", cfg: ClientConfig{BaseURL: "https://proxy.local"}, wantErr: true},
		{name: "placeholder url", cfg: ClientConfig{BaseURL: "https://your-project.supabase.co", AccessKey: "k"}, wantErr: true},
		{name: "angle placeholder key", cfg: ClientConfig{BaseURL: "https://proxy.local", AccessKey: "<access key>"}, wantErr: true},
		{name: "changeme key", cfg: ClientConfig{BaseURL: "https://proxy.local", AccessKey: "CHANGEME"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrClientNotConfigured))
				return
			}
			require.NoError(t, err)
		})
	}
}
