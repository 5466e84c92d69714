package log

import (
	"context"
	"os"

	"go.uber.org/zap"
)

var logger *zap.Logger

func init() {
	logger = build(os.Getenv("DEBUG") == "true")
}

func build(debug bool) *zap.Logger {
	var l *zap.Logger
	if debug {
		l, _ = zap.NewDevelopment()
	} else {
		l, _ = zap.NewProduction()
	}
	return l
}

// SetDebug rebuilds the process logger. Call it during startup, before
// any goroutine logs, once settings from .env are known.
func SetDebug(debug bool) {
	logger = build(debug)
}

func DebugEnabled() bool {
	return logger.Core().Enabled(zap.DebugLevel)
}

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	providerKey  ctxKey = "provider"
)

// WithRequestID returns a copy of ctx whose logger carries the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey, provider)
}

func WithCtx(ctx context.Context) *zap.Logger {
	fields := []zap.Field{}

	if v := ctx.Value(requestIDKey); v != nil {
		fields = append(fields, zap.Any("request_id", v))
	}
	if v := ctx.Value(providerKey); v != nil {
		fields = append(fields, zap.Any("provider", v))
	}

	return logger.With(fields...)
}

func With(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}

func Sync() error {
	return logger.Sync()
}
