package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminSignalEndpointRequiresToken(t *testing.T) {
	t.Setenv("BFFAGENT_ADMIN_TOKEN", "")
	srv := New("127.0.0.1", 0, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/signal", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminSignalEndpointRejectsMissingBearer(t *testing.T) {
	t.Setenv("BFFAGENT_ADMIN_TOKEN", "s3cret")
	srv := New("127.0.0.1", 0, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/signal", nil))
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
