package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandler(t *testing.T) {
	SetVersionInfo("1.2.3", "abcd123", "2026-03-01T12:00:00Z")
	SetAppIdentity(nil)
	t.Cleanup(func() { SetAppIdentity(nil) })

	get := func() VersionResponse {
		rec := httptest.NewRecorder()
		VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp VersionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	resp := get()
	assert.Equal(t, "bffagent", resp.App.Name)
	assert.Equal(t, "1.2.3", resp.App.Version)
	assert.Equal(t, "abcd123", resp.App.Commit)
	assert.NotEmpty(t, resp.App.GoVersion)
	assert.NotEmpty(t, resp.Dependencies.Gofulmen)
	assert.NotEmpty(t, resp.Dependencies.Crucible)
	assert.Positive(t, resp.Runtime.NumCPU)

	SetAppIdentity(&appidentity.Identity{BinaryName: "bff-staging"})
	assert.Equal(t, "bff-staging", get().App.Name)
}
