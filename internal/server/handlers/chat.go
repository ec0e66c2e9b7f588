package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/chat"
	apperrors "github.com/bffagent/bffagent/internal/errors"
	"github.com/bffagent/bffagent/internal/observability"
	"github.com/bffagent/bffagent/internal/proxy"
	"github.com/bffagent/bffagent/internal/server/middleware"
)

// maxChatBodyBytes bounds request bodies; 50 messages of 1000 characters fit comfortably.
const maxChatBodyBytes = 1 << 20

// ChatCompleter runs one chat request through the proxy pipeline.
type ChatCompleter interface {
	Complete(ctx context.Context, clientKey string, body []byte) (string, error)
}

// ChatHandler adapts HTTP to the proxy service.
type ChatHandler struct {
	Service ChatCompleter
}

// NewChatHandler returns a handler for svc.
func NewChatHandler(svc ChatCompleter) *ChatHandler {
	return &ChatHandler{Service: svc}
}

// ServeHTTP handles POST requests. An unreadable body is passed on empty so the
// rate limit still applies before validation rejects it.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := readChatBody(w, r)
	if err != nil && observability.ServerLogger != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			observability.ServerLogger.Warn("Chat request body too large",
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.Int64("limit_bytes", tooLarge.Limit),
				zap.Int64("content_length", r.ContentLength))
		} else {
			observability.ServerLogger.Warn("Failed to read chat request body",
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.Error(err))
		}
	}

	reply, err := h.Service.Complete(r.Context(), ClientKey(r), body)
	if err != nil {
		var perr *proxy.Error
		if !errors.As(err, &perr) {
			perr = &proxy.Error{Code: apperrors.CodeInternal, Message: proxy.MessageInternal, Err: err}
		}
		if perr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(perr.RetryAfter))
		}
		apperrors.RespondChatError(w, r, perr.Envelope(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(chat.ChatResponse{Response: reply}); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write chat response", zap.Error(err))
	}
}

// readChatBody returns nil with the read error when the body is unreadable or
// exceeds maxChatBodyBytes.
func readChatBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Preflight answers CORS preflight requests with 200 and an empty body.
func Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ClientKey identifies the caller by network address without port.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
