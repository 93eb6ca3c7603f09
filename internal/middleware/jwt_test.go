package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflow/eduflow-api/internal/utils"
)

const testSecret = "test-secret"

func runProtected(t *testing.T, authHeader string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	g := e.Group("/v1", mws...)
	g.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id": c.Get(CtxUserID),
			"role":    c.Get(CtxRole),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, secret, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, 7, "alice@example.com", role, ttl)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec := runProtected(t, "", JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthMalformedToken(t *testing.T) {
	rec := runProtected(t, "Bearer garbage", JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	rec := runProtected(t, bearer(t, "other-secret", "student", time.Minute), JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthExpiredTokenIs401Not403(t *testing.T) {
	rec := runProtected(t, bearer(t, testSecret, "student", -time.Minute), JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestJWTAuthValidTokenPassesClaims(t *testing.T) {
	rec := runProtected(t, bearer(t, testSecret, "lecturer", time.Minute), JWTAuth(testSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":7`)
	assert.Contains(t, rec.Body.String(), `"role":"lecturer"`)
}

func TestRequireRoleAllowsMember(t *testing.T) {
	rec := runProtected(t, bearer(t, testSecret, "admin", time.Minute),
		JWTAuth(testSecret), RequireRole("admin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleRejectsNonMember(t *testing.T) {
	rec := runProtected(t, bearer(t, testSecret, "student", time.Minute),
		JWTAuth(testSecret), RequireRole("admin"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleRejectsMissingRole(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireRole("admin"))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleMultipleRoles(t *testing.T) {
	rec := runProtected(t, bearer(t, testSecret, "lecturer", time.Minute),
		JWTAuth(testSecret), RequireRole("admin", "lecturer"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
