package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchelocal/server/internal/models"
	"github.com/marchelocal/server/pkg/auth"
)

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user": UserID(c), "role": Role(c)})
	})
	app.Get("/", handlers...)
	return app
}

func do(t *testing.T, app *fiber.App, header map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthRequired(t *testing.T) {
	issuer := auth.NewIssuer("secret", 15, 7)
	pair, err := issuer.Pair(9, "vendor")
	require.NoError(t, err)
	app := newApp(AuthRequired(issuer))

	assert.Equal(t, http.StatusUnauthorized, do(t, app, nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do(t, app, map[string]string{"Authorization": "Token abc"}).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do(t, app, map[string]string{"Authorization": "Bearer " + pair.RefreshToken}).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, app, map[string]string{"Authorization": "Bearer " + pair.AccessToken}).StatusCode)
}

func TestRoleRequired(t *testing.T) {
	issuer := auth.NewIssuer("secret", 15, 7)
	app := newApp(AuthRequired(issuer), RoleRequired(models.RoleVendor))

	for role, want := range map[models.Role]int{
		models.RoleConsumer: http.StatusForbidden,
		models.RoleVendor:   http.StatusOK,
		models.RoleAdmin:    http.StatusOK,
	} {
		pair, err := issuer.Pair(1, string(role))
		require.NoError(t, err)
		resp := do(t, app, map[string]string{"Authorization": "Bearer " + pair.AccessToken})
		assert.Equal(t, want, resp.StatusCode, role)
	}
}

func TestOptionalAuthIgnoresBadTokens(t *testing.T) {
	app := newApp(OptionalAuth(auth.NewIssuer("secret", 15, 7)))

	assert.Equal(t, http.StatusOK, do(t, app, nil).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, app, map[string]string{"Authorization": "Bearer junk"}).StatusCode)
}

func TestAPIKeyRequired(t *testing.T) {
	app := newApp(APIKeyRequired("k3y"))

	assert.Equal(t, http.StatusUnauthorized, do(t, app, nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do(t, app, map[string]string{"X-API-Key": "nope"}).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, app, map[string]string{"X-API-Key": "k3y"}).StatusCode)

	// an unset key never authorizes
	empty := newApp(APIKeyRequired(""))
	assert.Equal(t, http.StatusUnauthorized, do(t, empty, map[string]string{"X-API-Key": ""}).StatusCode)
}

func TestRequestID(t *testing.T) {
	app := newApp(RequestID())

	resp := do(t, app, nil)
	_, err := uuid.Parse(resp.Header.Get(HeaderRequestID))
	assert.NoError(t, err)

	given := uuid.NewString()
	resp = do(t, app, map[string]string{HeaderRequestID: given})
	assert.Equal(t, given, resp.Header.Get(HeaderRequestID))

	resp = do(t, app, map[string]string{HeaderRequestID: "<script>"})
	assert.NotEqual(t, "<script>", resp.Header.Get(HeaderRequestID))
}

func TestInternalOnly(t *testing.T) {
	direct := newApp(InternalOnly(false))
	assert.Equal(t, http.StatusForbidden, do(t, direct, map[string]string{"X-Real-IP": "10.0.0.5"}).StatusCode)

	proxied := newApp(InternalOnly(true))
	assert.Equal(t, http.StatusOK, do(t, proxied, map[string]string{"X-Real-IP": "10.0.0.5"}).StatusCode)
	assert.Equal(t, http.StatusForbidden, do(t, proxied, map[string]string{"X-Real-IP": "8.8.8.8"}).StatusCode)
}

func TestPrometheusMiddlewareLabelsByRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(PrometheusMiddleware())
	app.Get("/v1/markets/:id", func(c *fiber.Ctx) error {
		return c.SendString(c.Params("id"))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/markets/:id", "200"))
	for _, id := range []string{"1", "2", "3"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/markets/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/markets/:id", "200"))
	assert.Equal(t, 3.0, after-before)
	assert.Zero(t, testutil.ToFloat64(httpInFlight))
}
