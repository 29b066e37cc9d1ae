package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subfoxapp/SubFox/internal/pkg/usercontext"
)

func newAuthTestApp(loggedIn, admin bool, handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if loggedIn {
			c.Locals(usercontext.KeyFromProtected, true)
			c.Locals(usercontext.KeyIsAdmin, admin)
		}
		return c.Next()
	})

	chain := append(handlers, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/guarded", chain...)
	return app
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	app := newAuthTestApp(false, false, RequireAuth)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuthPassesLoggedIn(t *testing.T) {
	app := newAuthTestApp(true, false, RequireAuth)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	app := newAuthTestApp(true, false, RequireAuth, RequireAdmin)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireAdminRejectsAnonymous(t *testing.T) {
	app := newAuthTestApp(false, false, RequireAdmin)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAdminPassesAdmin(t *testing.T) {
	app := newAuthTestApp(true, true, RequireAuth, RequireAdmin)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
