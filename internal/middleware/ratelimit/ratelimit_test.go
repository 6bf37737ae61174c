package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(rl *RateLimiter) *fiber.App {
	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestAllowsWithinLimit(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 5, WindowDuration: time.Minute, Logger: zap.NewNop()})
	defer rl.Stop()
	app := newTestApp(rl)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestBlocksOverLimit(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 2, WindowDuration: time.Minute, Logger: zap.NewNop()})
	defer rl.Stop()
	app := newTestApp(rl)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestSessionsLimitedIndependently(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1, WindowDuration: time.Minute, Logger: zap.NewNop()})
	defer rl.Stop()
	app := newTestApp(rl)

	first := httptest.NewRequest("GET", "/", nil)
	first.Header.Set("X-Session-ID", "session-a")
	resp, err := app.Test(first)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	blocked := httptest.NewRequest("GET", "/", nil)
	blocked.Header.Set("X-Session-ID", "session-a")
	resp, err = app.Test(blocked)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	other := httptest.NewRequest("GET", "/", nil)
	other.Header.Set("X-Session-ID", "session-b")
	resp, err = app.Test(other)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
