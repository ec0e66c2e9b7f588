package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bffagent/bffagent/internal/chat"
	apperrors "github.com/bffagent/bffagent/internal/errors"
	"github.com/bffagent/bffagent/internal/provider"
	"github.com/bffagent/bffagent/internal/proxy"
	"github.com/bffagent/bffagent/internal/ratelimit"
	"github.com/bffagent/bffagent/internal/server/handlers"
)

type echoProvider struct{}

func (echoProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	last := req.Messages[len(req.Messages)-1]
	return &provider.Response{Content: "echo: " + last.Content}, nil
}

func (echoProvider) Name() string { return "echo" }

func newChatServer(maxRequests int) *Server {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), time.Minute, maxRequests)
	svc := proxy.NewService(limiter, echoProvider{}, "")
	return New("127.0.0.1", 0, handlers.NewChatHandler(svc))
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New("127.0.0.1", 0, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.NotEmpty(t, body.Error.RequestID)
}

func TestServerWithoutChatHandler(t *testing.T) {
	srv := New("127.0.0.1", 0, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetTimeoutsKeepsDefaultsForZeroFields(t *testing.T) {
	srv := New("127.0.0.1", 0, nil)
	srv.SetTimeouts(Timeouts{Write: 90 * time.Second})

	assert.Equal(t, DefaultTimeouts.Read, srv.timeouts.Read)
	assert.Equal(t, 90*time.Second, srv.timeouts.Write)
	assert.Equal(t, DefaultTimeouts.Idle, srv.timeouts.Idle)
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := New("127.0.0.1", 0, nil)
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestChatRoutesServeBothPaths(t *testing.T) {
	srv := newChatServer(30)

	for _, path := range []string{"/functions/v1/chat", "/chat"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"messages":[{"sender":"user","text":" hi "}]}`))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

			var body chat.ChatResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "echo: hi", body.Response)
		})
	}
}

func TestChatPreflightReturnsEmptyOK(t *testing.T) {
	srv := newChatServer(30)

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestChatRateLimitCarriesRetryAfterAndCORS(t *testing.T) {
	srv := newChatServer(1)
	body := `{"messages":[{"sender":"user","text":"hi"}]}`

	first := httptest.NewRecorder()
	srv.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	srv.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, "*", second.Header().Get("Access-Control-Allow-Origin"))

	var errBody chat.ErrorResponse
	require.NoError(t, json.NewDecoder(second.Body).Decode(&errBody))
	assert.Equal(t, "RateLimitError", errBody.Type)
	assert.Contains(t, errBody.Error, "Rate limit exceeded. Please try again in")
}

func postChat(srv *Server, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"messages":[{"sender":"user","text":"hi"}]}`))
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec.Code
}

func TestChatRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	srv := newChatServer(30)

	for i := 0; i < 30; i++ {
		require.Equal(t, http.StatusOK, postChat(srv, "203.0.113.7:5555", fmt.Sprintf("10.0.0.%d", i)), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, postChat(srv, "203.0.113.7:5555", "10.0.0.200"))
	assert.Equal(t, http.StatusTooManyRequests, postChat(srv, "203.0.113.7:5556", ""))
}

func TestChatRateLimitHonorsForwardedForFromTrustedProxy(t *testing.T) {
	srv := newChatServer(1)
	require.NoError(t, srv.SetTrustedProxies([]string{"192.168.1.0/24"}))

	assert.Equal(t, http.StatusOK, postChat(srv, "192.168.1.10:4000", "198.51.100.1"))
	assert.Equal(t, http.StatusOK, postChat(srv, "192.168.1.10:4000", "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, postChat(srv, "192.168.1.11:4000", "198.51.100.1"))
}

func TestSetTrustedProxiesRejectsGarbage(t *testing.T) {
	srv := New("127.0.0.1", 0, nil)
	assert.Error(t, srv.SetTrustedProxies([]string{"not-an-ip"}))
	assert.Error(t, srv.SetTrustedProxies([]string{"10.0.0.0/99"}))
	assert.NoError(t, srv.SetTrustedProxies([]string{" ", "10.0.0.1", "fd00::/8"}))
}

func TestChatValidationErrorBody(t *testing.T) {
	srv := newChatServer(30)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"messages":"hi"}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errBody chat.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
	assert.Equal(t, chat.ErrorResponse{Error: "Messages must be an array", Type: "ValidationError"}, errBody)
}

func TestChatRejectsOtherMethods(t *testing.T) {
	srv := newChatServer(30)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
