package server

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/appid"
	"github.com/bffagent/bffagent/internal/observability"
	"github.com/bffagent/bffagent/internal/server/handlers"
	servermw "github.com/bffagent/bffagent/internal/server/middleware"
)

// Chat endpoint paths. The first matches the hosted-function URL clients already use.
var chatPaths = []string{"/functions/v1/chat", "/chat"}

// Admin signal endpoint limits, per minute.
const (
	adminSignalRate  = 10
	adminSignalBurst = 5
)

func (s *Server) registerRoutes() {
	if s.chat != nil {
		s.router.Group(func(r chi.Router) {
			r.Use(servermw.CORS)
			for _, path := range chatPaths {
				r.Post(path, s.chat.ServeHTTP)
				r.Options(path, handlers.Preflight)
			}
		})
	}

	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)
	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	if token := adminToken(); token != "" {
		s.registerAdminEndpoint(token)
	}
}

// adminToken reads {PREFIX}ADMIN_TOKEN. An empty token keeps /admin/signal unregistered.
func adminToken() string {
	prefix := "BFFAGENT_"
	if identity, _ := appid.Get(context.Background()); identity != nil && identity.EnvPrefix != "" {
		prefix = identity.EnvPrefix
	}
	return os.Getenv(prefix + "ADMIN_TOKEN")
}

// registerAdminEndpoint exposes POST /admin/signal for remote shutdown and reload, behind a bearer token.
func (s *Server) registerAdminEndpoint(token string) {
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: token,
		RateLimit: adminSignalRate,
		RateBurst: adminSignalBurst,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger := observability.ServerLogger; logger != nil {
		logger.Warn("Admin signal endpoint enabled; keep this port off the public internet",
			zap.String("path", "/admin/signal"),
			zap.Int("rate_per_minute", adminSignalRate),
			zap.Int("burst", adminSignalBurst))
	}
}
