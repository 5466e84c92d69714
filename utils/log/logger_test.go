package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCtx_AddsRequestFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	original := logger
	logger = zap.New(core)
	defer func() { logger = original }()

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithProvider(ctx, "bedrock")
	WithCtx(ctx).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "bedrock", fields["provider"])
	}
}

func TestWithCtx_NoFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	original := logger
	logger = zap.New(core)
	defer func() { logger = original }()

	WithCtx(context.Background()).Info("bare")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Empty(t, entries[0].ContextMap())
	}
}

func TestSetDebug(t *testing.T) {
	original := logger
	defer func() { logger = original }()

	SetDebug(true)
	assert.True(t, DebugEnabled())

	SetDebug(false)
	assert.False(t, DebugEnabled())
}
