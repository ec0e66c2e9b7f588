package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/sony/gobreaker/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/config"
	errwrap "github.com/bffagent/bffagent/internal/errors"
	"github.com/bffagent/bffagent/internal/metrics"
	"github.com/bffagent/bffagent/internal/observability"
	"github.com/bffagent/bffagent/internal/provider"
	"github.com/bffagent/bffagent/internal/provider/openai"
	"github.com/bffagent/bffagent/internal/proxy"
	"github.com/bffagent/bffagent/internal/ratelimit"
	"github.com/bffagent/bffagent/internal/server"
	"github.com/bffagent/bffagent/internal/server/handlers"
	"github.com/bffagent/bffagent/internal/store"
)

var (
	serverPort int
	serverHost string
)

// signalHealthChecker implements HealthChecker for signal system
type signalHealthChecker struct{}

func (s signalHealthChecker) CheckHealth(ctx context.Context) error {
	return nil
}

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker validates app identity metadata
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (i identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case i.binaryName == "":
		return errwrap.NewConfigInvalidError("app identity missing binary name")
	case i.envPrefix == "":
		return errwrap.NewConfigInvalidError("app identity missing env prefix")
	case i.configName == "":
		return errwrap.NewConfigInvalidError("app identity missing config name")
	}
	return nil
}

// providerHealthChecker reports unhealthy while the provider circuit is open
type providerHealthChecker struct {
	breaker *provider.Breaker
}

func (p providerHealthChecker) CheckHealth(ctx context.Context) error {
	if p.breaker != nil && p.breaker.State() == gobreaker.StateOpen {
		return errwrap.NewInternalError(fmt.Sprintf("provider %s circuit open", p.breaker.Name()))
	}
	return nil
}

// storeHealthChecker pings the rate limit database
type storeHealthChecker struct {
	db *store.Store
}

func (s storeHealthChecker) CheckHealth(ctx context.Context) error {
	if err := s.db.DB.PingContext(ctx); err != nil {
		return errwrap.WrapDatabaseError(ctx, err, "rate limit store unreachable")
	}
	return nil
}

// buildCompleter stacks pacing and the circuit breaker over the HTTP provider client.
func buildCompleter(cfg config.ProviderConfig) *provider.Breaker {
	client := openai.NewClient(cfg.BaseURL, cfg.APIKey)
	client.Timeout = cfg.Timeout
	return provider.NewBreaker(provider.NewThrottle(client, cfg.RequestsPerSecond, cfg.Burst), cfg.Breaker)
}

// buildLimiter picks the counter backend. The returned store is nil for the memory backend.
func buildLimiter(ctx context.Context, cfg *config.Config) (*ratelimit.Limiter, *store.Store, error) {
	if cfg.RateLimit.Backend != config.BackendLibsql {
		return ratelimit.New(ratelimit.NewMemoryStore(), cfg.RateLimit.Window, cfg.RateLimit.MaxRequests), nil, nil
	}

	db, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	return ratelimit.New(db, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests), db, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat proxy",
	Long: `Start the chat proxy HTTP server with graceful shutdown support.

Chat requests are accepted on POST /functions/v1/chat and POST /chat.
The provider API key is read from provider.api_key (or OPENAI_API_KEY).

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read the config file (limits and provider settings apply on restart)

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get app identity for telemetry namespace
		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid")
		}

		observability.InitServerLogger(identity.BinaryName, observability.ServerLogOptions{
			Level:     cfg.Logging.Level,
			Profile:   cfg.Logging.Profile,
			Namespace: namespace,
		})

		metricsPort := 0
		if cfg.Metrics.Enabled {
			metricsPort = cfg.Metrics.Port
			if metricsPort == 0 {
				metricsPort = observability.DefaultMetricsPort
			}
			if err := observability.InitMetrics(identity.BinaryName, metricsPort, namespace); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
			metricsPort = observability.GetMetricsPort()
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", metricsPort),
			zap.String("model", cfg.Provider.Model),
			zap.String("rate_limit_backend", cfg.RateLimit.Backend),
			zap.Duration("rate_limit_window", cfg.RateLimit.Window),
			zap.Int("rate_limit_max", cfg.RateLimit.MaxRequests))

		if cfg.Provider.APIKey == "" {
			observability.ServerLogger.Warn("Provider API key not set; chat requests will fail with a server configuration error")
		}

		limiter, db, err := buildLimiter(cmd.Context(), cfg)
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "rate limit store unavailable")
		}
		completer := buildCompleter(cfg.Provider)
		chat := handlers.NewChatHandler(proxy.NewService(limiter, completer, cfg.Provider.Model))

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("signal_handlers", signalHealthChecker{})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}
		hm.RegisterChecker("app_identity", identityHealthChecker{
			binaryName: identity.BinaryName,
			envPrefix:  identity.EnvPrefix,
			configName: identity.ConfigName,
		})
		hm.RegisterChecker("provider", providerHealthChecker{breaker: completer})
		if db != nil {
			hm.RegisterChecker("rate_limit_store", storeHealthChecker{db: db})
		}

		// Create server
		srv := server.New(cfg.Server.Host, cfg.Server.Port, chat)
		srv.SetTimeouts(server.Timeouts{
			Read:  cfg.Server.ReadTimeout,
			Write: cfg.Server.WriteTimeout,
			Idle:  cfg.Server.IdleTimeout,
		})
		if err := srv.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid server.trusted_proxies")
		}

		// Set app identity for handlers
		handlers.SetAppIdentity(identity)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Stop the metrics exporter
		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.StopMetrics(); err != nil {
				observability.ServerLogger.Warn("Metrics exporter did not stop cleanly", zap.Error(err))
			}
			return nil
		})

		// Handler 3: Stop the sweeper and close the store
		sweepCtx, stopSweep := context.WithCancel(context.Background())
		go limiter.Run(sweepCtx)
		signals.OnShutdown(func(ctx context.Context) error {
			stopSweep()
			if db == nil {
				return nil
			}
			if err := db.Close(); err != nil {
				return errwrap.WrapDatabaseError(ctx, err, "store close failed")
			}
			return nil
		})

		// Handler 4: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Register config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			// Attempt to reload configuration
			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))

			// Limits and provider settings are fixed at startup; a restart applies them.
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		metrics.SetServerStartTime(time.Now().Unix())

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
