package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/classmint/classmint-server/internal/config"
	"github.com/classmint/classmint-server/internal/handler"
	"github.com/classmint/classmint-server/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication:
// the health check and the read-only public views.  The leaderboard
// and shop listing are the hot read paths of the system, so they sit
// behind the Redis response cache when a client is available.
func RegisterRoutes(e *echo.Echo, w *handler.WalletHandler, s *handler.ShopHandler, l *handler.LedgerHandler, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	e.GET("/v1/leaderboard", w.Leaderboard, cache)
	e.GET("/v1/shop/items", s.ListItems, cache)

	// Anyone may audit the chain; verification takes no secrets.
	e.GET("/v1/ledger/verify", l.Verify)
	e.GET("/v1/ledger/status", l.Status)
	e.GET("/v1/ledger/blocks", l.Blocks)
	e.GET("/v1/ledger/tx/:id", l.Block)
}

// RegisterAuth registers authentication routes.  Unauthenticated
// operations live under /v1/auth; /v1/auth/me and /v1/auth/logout
// additionally work with a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1/auth", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterTeacher registers TEACHER-scoped endpoints under /v1.
// All routes require a valid JWT and the TEACHER role.
func RegisterTeacher(e *echo.Echo, t *handler.TokenHandler, w *handler.WalletHandler, s *handler.ShopHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("TEACHER"),
	)

	// ---- Tokens ----
	g.POST("/tokens", t.Issue)
	g.GET("/tokens", t.List)
	g.GET("/tokens/stats", t.Stats)
	g.DELETE("/tokens/:id", t.Void)

	// ---- Class overview ----
	g.GET("/claims", w.RecentClaims)
	g.GET("/students", w.Students)

	// ---- Shop management ----
	g.POST("/shop/items", s.CreateItem)
	g.PUT("/shop/items/:id", s.UpdateItem)
	g.PATCH("/shop/items/:id", s.UpdateItem)
	g.DELETE("/shop/items/:id", s.DeactivateItem)
	g.GET("/shop/purchases", s.AllPurchases)
}

// RegisterStudent registers STUDENT-scoped endpoints under /v1.
// The claim endpoint carries the token-bucket limiter: a room of
// students redeeming codes in the same minute is the expected load
// profile and brute-forcing token strings must stay expensive.
func RegisterStudent(e *echo.Echo, w *handler.WalletHandler, s *handler.ShopHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("STUDENT"),
	)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	g.POST("/claims", w.Claim, limiter)

	g.GET("/wallet", w.Wallet)
	g.POST("/shop/purchases", s.Purchase)
	g.GET("/purchases", s.MyPurchases)
}
