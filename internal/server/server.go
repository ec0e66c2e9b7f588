// Package server hosts the chat proxy's HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/bffagent/bffagent/internal/errors"
	"github.com/bffagent/bffagent/internal/observability"
	"github.com/bffagent/bffagent/internal/server/handlers"
	servermw "github.com/bffagent/bffagent/internal/server/middleware"
)

// Timeouts bound the HTTP server's connection phases. Zero fields keep the defaults.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// DefaultTimeouts leave room for a slow provider completion inside Write.
var DefaultTimeouts = Timeouts{
	Read:  30 * time.Second,
	Write: 60 * time.Second,
	Idle:  120 * time.Second,
}

// Server is the proxy HTTP server.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	chat     http.Handler
	host     string
	port     int
	timeouts Timeouts

	mu      sync.RWMutex
	trusted []netip.Prefix
}

// New builds the router. A nil chat handler leaves the chat routes unregistered.
func New(host string, port int, chat http.Handler) *Server {
	r := chi.NewRouter()
	s := &Server{
		router:   r,
		chat:     chat,
		host:     host,
		port:     port,
		timeouts: DefaultTimeouts,
	}

	r.Use(servermw.TrustedRealIP(s.trustedProxies))
	r.Use(servermw.RequestID)      // correlation for everything below
	r.Use(servermw.RequestMetrics) // sees the 500 written by Recovery
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	handlers.SetHTTPErrorResponder(HandleError)
	s.registerRoutes()

	return s
}

// HandleError writes err as the standard JSON error envelope.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// SetTimeouts overrides the non-zero fields of t. Call before Start.
func (s *Server) SetTimeouts(t Timeouts) {
	if t.Read > 0 {
		s.timeouts.Read = t.Read
	}
	if t.Write > 0 {
		s.timeouts.Write = t.Write
	}
	if t.Idle > 0 {
		s.timeouts.Idle = t.Idle
	}
}

// SetTrustedProxies lists the peers allowed to set X-Forwarded-For and X-Real-IP.
// With none listed the client key is always the socket address.
func (s *Server) SetTrustedProxies(entries []string) error {
	prefixes, err := servermw.ParseTrustedProxies(entries)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.trusted = prefixes
	s.mu.Unlock()
	return nil
}

func (s *Server) trustedProxies() []netip.Prefix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trusted
}

// Start listens on host:port and blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       s.timeouts.Read,
		ReadHeaderTimeout: s.timeouts.Read,
		WriteTimeout:      s.timeouts.Write,
		IdleTimeout:       s.timeouts.Idle,
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("addr", addr),
		zap.Duration("write_timeout", s.timeouts.Write))

	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	observability.ServerLogger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Port() int {
	return s.port
}
