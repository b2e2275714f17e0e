package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharepath/internal/config"
	"sharepath/internal/handlers"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ServerAddr:     "127.0.0.1:0",
		DBPath:         filepath.Join(t.TempDir(), "data.db"),
		DraftTTL:       time.Hour,
		Location:       time.UTC,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		AllowedOrigins: []string{"http://localhost:5173"},
	}
}

func startServer(t *testing.T) string {
	t.Helper()
	srv, err := New(testConfig(t))
	require.NoError(t, err)

	addr, err := srv.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return "http://" + addr
}

func TestServerStartAndHealth(t *testing.T) {
	base := startServer(t)

	resp, err := http.Get(base + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServerRoutes(t *testing.T) {
	base := startServer(t)

	resp, err := http.Post(base+"/api/v1/drafts", "application/json", strings.NewReader(`{"title": "Oaxaca"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created handlers.DraftResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "Oaxaca", created.Draft.Title)

	resp2, err := http.Get(base + "/api/v1/drafts/" + created.Draft.ID)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(base + "/api/v1/unknown")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
	var notFound handlers.ErrorResponse
	require.NoError(t, json.NewDecoder(resp3.Body).Decode(&notFound))
	assert.Equal(t, "NOT_FOUND", notFound.Error.Code)
}

func TestServerCORS(t *testing.T) {
	base := startServer(t)

	req, err := http.NewRequest(http.MethodOptions, base+"/api/v1/trips", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := New(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}
