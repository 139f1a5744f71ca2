package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"shutterhub/internal/config"
	"shutterhub/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

// edgeApp is the global middleware stack in front of a few stub routes.
func edgeApp(limit int) *fiber.App {
	srv := &Server{config: &config.Config{AllowedOrigins: testOrigin, GlobalRateLimit: limit}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/api/photos", ok)
	app.Post("/api/photos", ok)
	app.Get("/health/live", ok)
	return app
}

func send(t *testing.T, app *fiber.App, method, path string, header map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Origin", testOrigin)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSetupMiddleware_GlobalLimitAnswersWithQuotaError(t *testing.T) {
	app := edgeApp(3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, fiber.StatusOK, send(t, app, http.MethodGet, "/api/photos", nil).StatusCode)
	}
	resp := send(t, app, http.MethodGet, "/api/photos", nil)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeQuotaExceeded, body.Code)
}

func TestSetupMiddleware_ProbesAndPreflightsSkipLimiter(t *testing.T) {
	app := edgeApp(1)

	assert.Equal(t, fiber.StatusOK, send(t, app, http.MethodPost, "/api/photos", nil).StatusCode)
	assert.Equal(t, fiber.StatusTooManyRequests, send(t, app, http.MethodPost, "/api/photos", nil).StatusCode)

	for i := 0; i < 3; i++ {
		assert.Equal(t, fiber.StatusOK, send(t, app, http.MethodGet, "/health/live", nil).StatusCode)
	}

	preflight := send(t, app, http.MethodOptions, "/api/photos", map[string]string{
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "authorization,content-type",
	})
	assert.Equal(t, fiber.StatusNoContent, preflight.StatusCode)
	assert.Equal(t, testOrigin, preflight.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestSetupMiddleware_CORS(t *testing.T) {
	app := edgeApp(0)

	resp := send(t, app, http.MethodGet, "/api/photos", nil)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), "X-RateLimit-Remaining")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/photos", nil)
	req.Header.Set("Origin", "https://evil.example")
	foreign, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = foreign.Body.Close() }()
	assert.Equal(t, fiber.StatusOK, foreign.StatusCode)
	assert.Empty(t, foreign.Header.Get("Access-Control-Allow-Origin"))
}
