package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eduflow/eduflow-api/internal/apperr"
	"github.com/eduflow/eduflow-api/internal/config"
	"github.com/eduflow/eduflow-api/internal/middleware"
	"github.com/eduflow/eduflow-api/internal/model"
	"github.com/eduflow/eduflow-api/internal/service"
)

// refreshCookie is the HTTP-only cookie carrying the refresh token.  Page
// scripts must never be able to read it, so it is not echoed in any JSON
// body.
const refreshCookie = "refresh_token"

// AuthCore is the slice of the auth service the HTTP layer consumes.
type AuthCore interface {
	Register(ctx context.Context, username, email, password, role string) (*model.User, error)
	VerifyUser(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (*service.TokenPair, *model.User, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	DeleteUser(ctx context.Context, id uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg  config.Config
	Auth AuthCore
}

func NewAuthHandler(cfg config.Config, auth AuthCore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // student | lecturer
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type emailReq struct {
	Email string `json:"email"`
}
type resetTokenReq struct {
	Token string `json:"token"`
}
type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type userPart struct {
	ID         uint64 `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

type loginResp struct {
	User        userPart `json:"user"`
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
}

type refreshResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func toUserPart(u *model.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, IsVerified: u.IsVerified}
}

// respondErr maps the typed error taxonomy onto an HTTP response.  Unknown
// errors become a generic 500 so internals never leak.
func respondErr(c echo.Context, err error) error {
	return c.JSON(apperr.StatusOf(err), echo.Map{"error": apperr.MessageOf(err)})
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Register creates an unverified account and queues the verification mail.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": toUserPart(u)})
}

// Verify is the link target embedded in the verification mail.
func (h *AuthHandler) Verify(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.VerifyUser(ctx, c.Param("token")); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account verified"})
}

// Login exchanges credentials for a token pair.  The access token travels
// in the JSON body; the refresh token only ever rides the HTTP-only cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, u, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respondErr(c, err)
	}
	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExp)
	return c.JSON(http.StatusOK, loginResp{
		User:        toUserPart(u),
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   pair.ExpiresIn,
	})
}

// Refresh rotates the refresh token.  The presented token is read from the
// cookie; non-browser clients may send it in the JSON body instead.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, h.presentedRefreshToken(c))
	if err != nil {
		return respondErr(c, err)
	}
	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExp)
	return c.JSON(http.StatusOK, refreshResp{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   pair.ExpiresIn,
	})
}

// Logout revokes the presented refresh token and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, h.presentedRefreshToken(c)); err != nil {
		return respondErr(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword issues a reset token and queues the reset mail.  Note:
// responding 404 for unknown addresses discloses account existence; a
// hardened deployment can return 200 unconditionally here.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, req.Email); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset email sent"})
}

// VerifyResetToken lets a reset form validate its token before submission.
func (h *AuthHandler) VerifyResetToken(c echo.Context) error {
	var req resetTokenReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.VerifyResetToken(ctx, req.Token); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "token valid"})
}

// ResetPassword consumes a reset token and stores the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Me returns the authenticated caller's claims.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": c.Get(middleware.CtxUserID),
		"email":   c.Get(middleware.CtxEmail),
		"role":    c.Get(middleware.CtxRole),
	})
}

func (h *AuthHandler) presentedRefreshToken(c echo.Context) string {
	if ck, err := c.Cookie(refreshCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req refreshReq
	_ = c.Bind(&req)
	return strings.TrimSpace(req.RefreshToken)
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Expires:  exp,
		Path:     "/v1/auth",
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		MaxAge:   -1,
		Path:     "/v1/auth",
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
}
