package http

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/metrics"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	Chat    *ChatHandler
	Metrics *metrics.Metrics
	// Auth guards the chat routes when non-nil.
	Auth *AuthHandler
	// WebSocket serves the streaming socket when non-nil.
	WebSocket echo.HandlerFunc

	RateLimitPerMinute int
}

func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(MetricsMiddleware(cfg.Metrics))
	if cfg.RateLimitPerMinute > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(float64(cfg.RateLimitPerMinute) / 60),
				Burst: cfg.RateLimitPerMinute,
			},
		)))
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"X-API-Key",
			"X-API-Secret",
		},
		MaxAge: 86400,
	}))
	e.Use(middleware.BodyLimit("1MB"))

	e.GET("/", Index)
	e.GET("/metrics", echo.WrapHandler(cfg.Metrics.Handler()))

	api := e.Group("/api")
	api.GET("/health", cfg.Chat.HealthCheck)

	chat := api.Group("/chat")
	if cfg.Auth != nil {
		api.POST("/auth/token", cfg.Auth.GenerateJWT)
		chat.Use(cfg.Auth.JWTMiddleware)
	}
	chat.POST("", cfg.Chat.Chat)
	if cfg.WebSocket != nil {
		chat.GET("/ws", cfg.WebSocket)
	}

	return e
}
