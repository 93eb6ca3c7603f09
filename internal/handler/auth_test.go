package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflow/eduflow-api/internal/apperr"
	"github.com/eduflow/eduflow-api/internal/config"
	"github.com/eduflow/eduflow-api/internal/model"
	"github.com/eduflow/eduflow-api/internal/service"
)

// stubAuth scripts the service layer so handler tests cover only HTTP
// concerns: status mapping, cookie handling, body shapes.
type stubAuth struct {
	pair      *service.TokenPair
	user      *model.User
	err       error
	gotToken  string // refresh token the handler extracted
	gotUserID uint64
}

func (s *stubAuth) Register(_ context.Context, username, email, _, role string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.User{ID: 1, Username: username, Email: email, Role: role}, nil
}
func (s *stubAuth) VerifyUser(_ context.Context, token string) error {
	s.gotToken = token
	return s.err
}
func (s *stubAuth) Login(context.Context, string, string) (*service.TokenPair, *model.User, error) {
	return s.pair, s.user, s.err
}
func (s *stubAuth) Refresh(_ context.Context, token string) (*service.TokenPair, error) {
	s.gotToken = token
	if s.err != nil {
		return nil, s.err
	}
	return s.pair, nil
}
func (s *stubAuth) Logout(_ context.Context, token string) error {
	s.gotToken = token
	return s.err
}
func (s *stubAuth) ForgotPassword(context.Context, string) error      { return s.err }
func (s *stubAuth) VerifyResetToken(context.Context, string) error    { return s.err }
func (s *stubAuth) ResetPassword(context.Context, string, string) error { return s.err }
func (s *stubAuth) DeleteUser(_ context.Context, id uint64) error {
	s.gotUserID = id
	return s.err
}

func testPair() *service.TokenPair {
	return &service.TokenPair{
		AccessToken:  "access-jwt",
		AccessExp:    time.Now().Add(time.Minute),
		RefreshToken: "refresh-jwt",
		RefreshExp:   time.Now().Add(time.Hour),
		ExpiresIn:    900,
	}
}

func newTestHandler(stub *stubAuth) (*echo.Echo, *AuthHandler) {
	h := NewAuthHandler(config.Config{Env: "test"}, stub)
	e := echo.New()
	return e, h
}

func doJSON(e *echo.Echo, h echo.HandlerFunc, method, target, body string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = h(c)
	return rec
}

func TestRegisterReturns201(t *testing.T) {
	stub := &stubAuth{}
	e, h := newTestHandler(stub)
	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"Secret123!","role":"student"}`, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterMapsTypedErrors(t *testing.T) {
	stub := &stubAuth{err: apperr.Conflict("email already exists")}
	e, h := newTestHandler(stub)
	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"Secret123!","role":"student"}`, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already exists")
}

func TestLoginSetsHTTPOnlyRefreshCookie(t *testing.T) {
	stub := &stubAuth{pair: testPair(), user: &model.User{ID: 1, Username: "alice", Email: "alice@example.com", Role: "student", IsVerified: true}}
	e, h := newTestHandler(stub)
	rec := doJSON(e, h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"alice@example.com","password":"Secret123!"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token":"access-jwt"`)
	assert.Contains(t, rec.Body.String(), `"expires_in":900`)
	// the refresh token must never appear in the JSON body
	assert.NotContains(t, rec.Body.String(), "refresh-jwt")

	res := rec.Result()
	var cookie *http.Cookie
	for _, ck := range res.Cookies() {
		if ck.Name == refreshCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie, "refresh cookie must be set")
	assert.Equal(t, "refresh-jwt", cookie.Value)
	assert.True(t, cookie.HttpOnly, "cookie must be inaccessible to page scripts")
}

func TestLoginBadCredentials(t *testing.T) {
	stub := &stubAuth{err: apperr.Unauthorized("invalid credentials")}
	e, h := newTestHandler(stub)
	rec := doJSON(e, h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"alice@example.com","password":"nope1234"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshReadsCookie(t *testing.T) {
	stub := &stubAuth{pair: testPair()}
	e, h := newTestHandler(stub)
	rec := doJSON(e, h.Refresh, http.MethodPost, "/v1/auth/refresh", "", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: refreshCookie, Value: "cookie-token"})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cookie-token", stub.gotToken)
}

func TestRefreshFallsBackToBody(t *testing.T) {
	stub := &stubAuth{pair: testPair()}
	e, h := newTestHandler(stub)
	rec := doJSON(e, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"body-token"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body-token", stub.gotToken)
}

func TestRefreshMissingToken(t *testing.T) {
	stub := &stubAuth{err: apperr.BadRequest("refresh token required")}
	e, h := newTestHandler(stub)
	rec := doJSON(e, h.Refresh, http.MethodPost, "/v1/auth/refresh", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, stub.gotToken)
}

func TestLogoutClearsCookie(t *testing.T) {
	stub := &stubAuth{}
	e, h := newTestHandler(stub)
	rec := doJSON(e, h.Logout, http.MethodPost, "/v1/auth/logout", "", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: refreshCookie, Value: "cookie-token"})
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "cookie-token", stub.gotToken)

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == refreshCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestVerifyPassesPathToken(t *testing.T) {
	stub := &stubAuth{}
	e, h := newTestHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/verify/tok123", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("token")
	c.SetParamValues("tok123")
	require.NoError(t, h.Verify(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok123", stub.gotToken)
}

func TestForgotPasswordRequiresEmail(t *testing.T) {
	stub := &stubAuth{}
	e, h := newTestHandler(stub)
	rec := doJSON(e, h.ForgotPassword, http.MethodPost, "/v1/auth/forgot-password", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgotPasswordUnknownEmailIs404(t *testing.T) {
	stub := &stubAuth{err: apperr.NotFound("user not found")}
	e, h := newTestHandler(stub)
	rec := doJSON(e, h.ForgotPassword, http.MethodPost, "/v1/auth/forgot-password",
		`{"email":"nobody@example.com"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUserParsesID(t *testing.T) {
	stub := &stubAuth{}
	e, h := newTestHandler(stub)

	req := httptest.NewRequest(http.MethodDelete, "/v1/users/42", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")
	require.NoError(t, h.DeleteUser(c))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(42), stub.gotUserID)
}

func TestDeleteUserRejectsBadID(t *testing.T) {
	stub := &stubAuth{}
	e, h := newTestHandler(stub)

	req := httptest.NewRequest(http.MethodDelete, "/v1/users/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	require.NoError(t, h.DeleteUser(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
