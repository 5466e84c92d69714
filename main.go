package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chathttp "github.com/satriahrh/cocoa-fruit/ragchat/adapters/http"
	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/llm"
	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/metrics"
	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/websocket"
	"github.com/satriahrh/cocoa-fruit/ragchat/config"
	"github.com/satriahrh/cocoa-fruit/ragchat/usecase"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"go.uber.org/zap"
)

func main() {
	defer log.Sync()

	cfg := config.Load()

	generator, err := llm.New(cfg)
	if err != nil {
		log.With().Fatal("Failed to create llm provider", zap.Error(err))
	}
	svc := usecase.NewChatService(generator, usecase.TemplateFromConfig(cfg))

	m := metrics.NewMetrics()
	wsServer := websocket.NewServer(svc, m)

	var auth *chathttp.AuthHandler
	if cfg.JWTSecret != "" {
		auth = chathttp.NewAuthHandler(cfg.JWTSecret, cfg.APIKey, cfg.APISecret)
	}

	e := chathttp.NewRouter(chathttp.RouterConfig{
		Chat:               chathttp.NewChatHandler(svc, m, cfg.ResponseMode),
		Metrics:            m,
		Auth:               auth,
		WebSocket:          wsServer.Handler,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	e.Server.ReadHeaderTimeout = 10 * time.Second

	addr := ":" + cfg.Port
	log.With(
		zap.String("addr", addr),
		zap.String("provider", string(cfg.Provider)),
		zap.String("model", cfg.ModelID()),
		zap.String("response_mode", string(cfg.ResponseMode)),
		zap.Bool("auth", auth != nil),
	).Info("Starting server")
	log.With().Info("Available endpoints",
		zap.Strings("routes", []string{
			"GET  /                 - Chat page",
			"GET  /api/health       - Health check",
			"POST /api/auth/token   - Get JWT token (when JWT_SECRET is set)",
			"POST /api/chat         - Chat, streamed or buffered (?mode=)",
			"GET  /api/chat/ws      - Chat over WebSocket",
			"GET  /metrics          - Prometheus metrics",
		}),
	)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.With().Fatal("Server stopped", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.With().Info("Shutting down...")

	wsServer.GetHub().CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.With().Error("Graceful shutdown failed", zap.Error(err))
	}
}
