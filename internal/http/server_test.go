package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muxarr/muxarr/internal/config"
	"github.com/muxarr/muxarr/internal/http/middleware"
	"github.com/muxarr/muxarr/internal/testutil"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8410}, testutil.Logger(), "test")
}

func TestServer_MetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServer_RequestIDAssignedAndEchoed(t *testing.T) {
	server := newTestServer(t)
	server.Router().Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.RequestIDHeader, "fixed-id")
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get(middleware.RequestIDHeader))
}

func TestServer_OpenAPIDocument(t *testing.T) {
	server := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "muxarr API")
}
