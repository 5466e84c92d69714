package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LLM_PROVIDER", "CHAT_RESPONSE_MODE", "AWS_REGION", "AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY", "BEDROCK_MODEL_ID", "KNOWLEDGE_BASE_ID", "LLM_TEMPERATURE",
		"LLM_MAX_TOKENS", "LLM_SYSTEM_PROMPT", "JWT_SECRET", "RATE_LIMIT_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, domain.ProviderBedrock, cfg.Provider)
	assert.Equal(t, ModeStream, cfg.ResponseMode)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Empty(t, cfg.AWSAccessKeyID)
	assert.Empty(t, cfg.AWSSecretAccessKey)
	assert.Equal(t, "anthropic.claude-v2:1", cfg.BedrockModelID)
	assert.Equal(t, "anthropic.claude-v2:1", cfg.ModelID())
	assert.Equal(t, int32(1000), cfg.Generation.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Generation.Temperature, 0.0001)
	assert.Equal(t, 20, cfg.RateLimitPerMinute)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GEMINI_MODEL", "gemini-pro")
	t.Setenv("CHAT_RESPONSE_MODE", "BUFFERED")
	t.Setenv("LLM_MAX_TOKENS", "256")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_SYSTEM_PROMPT", "You are terse.")

	cfg := Load()

	assert.Equal(t, domain.ProviderGemini, cfg.Provider)
	assert.Equal(t, "gemini-pro", cfg.ModelID())
	assert.Equal(t, ModeBuffered, cfg.ResponseMode)
	assert.Equal(t, int32(256), cfg.Generation.MaxTokens)
	assert.InDelta(t, 0.2, cfg.Generation.Temperature, 0.0001)
	assert.Equal(t, "You are terse.", cfg.Generation.SystemPrompt)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("LLM_MAX_TOKENS", "lots")
	t.Setenv("LLM_TEMPERATURE", "warm")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "-x")

	cfg := Load()

	assert.Equal(t, int32(1000), cfg.Generation.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Generation.Temperature, 0.0001)
	assert.Equal(t, 20, cfg.RateLimitPerMinute)
}

func TestParseResponseMode(t *testing.T) {
	assert.Equal(t, ModeStream, ParseResponseMode(" stream ", ModeBuffered))
	assert.Equal(t, ModeBuffered, ParseResponseMode("buffered", ModeStream))
	assert.Equal(t, ModeBuffered, ParseResponseMode("", ModeBuffered))
	assert.Equal(t, ModeStream, ParseResponseMode("sse", ModeStream))
}

func TestLoad_DebugFromDotEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DEBUG=true\n"), 0o600))
	require.NoError(t, os.Chdir(dir))

	t.Setenv("DEBUG", "")
	os.Unsetenv("DEBUG")
	t.Cleanup(func() {
		os.Chdir(wd)
		log.SetDebug(false)
	})

	cfg := Load()

	assert.True(t, cfg.Debug)
	assert.True(t, log.DebugEnabled())
}
