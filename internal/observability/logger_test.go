package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"trace":   "TRACE",
		"DEBUG":   "DEBUG",
		" info ":  "INFO",
		"warning": "WARN",
		"warn":    "WARN",
		"error":   "ERROR",
		"verbose": "INFO",
		"":        "INFO",
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), "level %q", in)
	}
}

func TestServerLoggerConfig(t *testing.T) {
	t.Run("structured by default", func(t *testing.T) {
		cfg := serverLoggerConfig("bffagent", ServerLogOptions{Level: "debug", Namespace: "bff"})
		assert.Equal(t, logging.ProfileStructured, cfg.Profile)
		assert.Equal(t, "DEBUG", cfg.DefaultLevel)
		assert.Equal(t, "bff", cfg.StaticFields["namespace"])
		require.Len(t, cfg.Middleware, 1)
		assert.Equal(t, "correlation", cfg.Middleware[0].Name)
		require.Len(t, cfg.Sinks, 1)
		assert.Equal(t, "json", cfg.Sinks[0].Format)
		assert.Equal(t, "stderr", cfg.Sinks[0].Console.Stream)
	})

	t.Run("simple profile", func(t *testing.T) {
		cfg := serverLoggerConfig("bffagent", ServerLogOptions{Profile: "Simple"})
		assert.Equal(t, logging.ProfileSimple, cfg.Profile)
		assert.Equal(t, "INFO", cfg.DefaultLevel)
		assert.Empty(t, cfg.Middleware)
		assert.Empty(t, cfg.StaticFields)
		require.Len(t, cfg.Sinks, 1)
		assert.Equal(t, "console", cfg.Sinks[0].Format)
	})
}

func TestInitLoggers(t *testing.T) {
	InitCLILogger("test-service", true)
	require.NotNil(t, CLILogger)
	CLILogger.Debug("cli logger ready", zap.String("test", "value"))

	for _, profile := range []string{"structured", "simple"} {
		InitServerLogger("test-service", ServerLogOptions{Level: "info", Profile: profile})
		require.NotNil(t, ServerLogger, profile)
		ServerLogger.Info("server logger ready", zap.String("profile", profile))
	}
}

func TestEmbeddedCrucible(t *testing.T) {
	version := crucible.GetVersion()
	assert.NotEmpty(t, version.Gofulmen)
	assert.NotEmpty(t, version.Crucible)
	assert.NotEmpty(t, crucible.GetVersionString())
}
