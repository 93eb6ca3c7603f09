package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/eduflow/eduflow-api/internal/config"
	"github.com/eduflow/eduflow-api/internal/handler"
	"github.com/eduflow/eduflow-api/internal/middleware"
)

// Register wires every route onto the provided Echo instance.
//
// Unauthenticated session operations live under /v1/auth and sit behind the
// Redis token bucket so credential stuffing is throttled.  Protected
// endpoints live under /v1 behind JWTAuth; admin-only endpoints add a
// RequireRole check on top.  The public role listing goes through the
// response cache, never any auth endpoint.
func Register(e *echo.Echo, cfg config.Config, a *handler.AuthHandler, roles *handler.RoleHandler, rdb *redis.Client) {
	// Liveness probe for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.GET("/verify/:token", a.Verify) // link target embedded in the verification mail
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/verify-reset-token", a.VerifyResetToken)
	g.POST("/reset-password", a.ResetPassword)

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	e.GET("/v1/roles", roles.List, cache)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(cfg.AccessSecret))
	auth.GET("/me", a.Me)

	admin := auth.Group("/users")
	admin.Use(middleware.RequireRole(config.RoleAdmin))
	admin.DELETE("/:id", a.DeleteUser)
}
