package cmd

import (
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/config"
	errwrap "github.com/bffagent/bffagent/internal/errors"
	"github.com/bffagent/bffagent/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify configuration for the proxy and the chat client before starting either.",
	Run: func(cmd *cobra.Command, args []string) {
		observability.CLILogger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		observability.CLILogger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration invalid", errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid"))
			return
		}
		observability.CLILogger.Info("✅ Configuration loaded")

		warnings := 0
		if strings.TrimSpace(cfg.Provider.APIKey) == "" {
			warnings++
			observability.CLILogger.Warn("⚠️  Provider API key not set; the proxy will answer with a server configuration error")
		} else {
			observability.CLILogger.Info("✅ Provider API key set", zap.String("model", cfg.Provider.Model))
		}

		if err := cfg.Client.Validate(); err != nil {
			warnings++
			observability.CLILogger.Warn("⚠️  Chat client not configured", zap.Error(err))
		} else {
			observability.CLILogger.Info("✅ Chat client configured", zap.String("proxy", cfg.Client.BaseURL))
		}

		if cfg.RateLimit.Backend == config.BackendLibsql {
			db, err := openStore(cmd.Context(), cfg.Store)
			if err != nil {
				ExitWithCode(observability.CLILogger, foundry.ExitFailure, "Rate limit store unavailable", errwrap.WrapDatabaseError(cmd.Context(), err, "rate limit store unavailable"))
				return
			}
			_ = db.Close()
			observability.CLILogger.Info("✅ Rate limit store reachable")
		}

		observability.CLILogger.Info("")
		if warnings > 0 {
			observability.CLILogger.Info("Health check finished with warnings", zap.Int("warnings", warnings))
			return
		}
		observability.CLILogger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
