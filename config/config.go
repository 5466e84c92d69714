package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

type ResponseMode string

const (
	ModeStream   ResponseMode = "stream"
	ModeBuffered ResponseMode = "buffered"
)

// Config is read once at startup and passed by value afterwards.
type Config struct {
	Port string

	Provider     domain.ProviderKind
	ResponseMode ResponseMode

	// AWS credentials fall back to empty strings and are only checked by the provider.
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	BedrockModelID        string
	KnowledgeBaseID       string
	KnowledgeBaseModelARN string
	GeminiModel           string

	Generation Generation

	JWTSecret          string
	APIKey             string
	APISecret          string
	RateLimitPerMinute int

	Debug bool
}

// Generation holds the fixed parameters merged into every request.
type Generation struct {
	Temperature  float32
	MaxTokens    int32
	SystemPrompt string
}

// Load reads .env (without overriding the environment), then the
// environment. DEBUG from either source switches the process logger.
func Load() Config {
	gotenv.Load()

	debug := getEnv("DEBUG", "false") == "true"
	log.SetDebug(debug)

	return Config{
		Port:         getEnv("PORT", "8080"),
		Provider:     domain.ProviderKind(strings.ToLower(getEnv("LLM_PROVIDER", string(domain.ProviderBedrock)))),
		ResponseMode: ParseResponseMode(getEnv("CHAT_RESPONSE_MODE", string(ModeStream)), ModeStream),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		BedrockModelID:        getEnv("BEDROCK_MODEL_ID", "anthropic.claude-v2:1"),
		KnowledgeBaseID:       getEnv("KNOWLEDGE_BASE_ID", ""),
		KnowledgeBaseModelARN: getEnv("KNOWLEDGE_BASE_MODEL_ARN", "arn:aws:bedrock:us-east-1::foundation-model/anthropic.claude-v2:1"),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),

		Generation: Generation{
			Temperature:  float32(getEnvFloat("LLM_TEMPERATURE", 0.7)),
			MaxTokens:    int32(getEnvInt("LLM_MAX_TOKENS", 1000)),
			SystemPrompt: getEnv("LLM_SYSTEM_PROMPT", ""),
		},

		JWTSecret:          getEnv("JWT_SECRET", ""),
		APIKey:             getEnv("API_KEY", ""),
		APISecret:          getEnv("API_SECRET", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),

		Debug: debug,
	}
}

// ModelID returns the model identifier the configured provider talks to.
func (c Config) ModelID() string {
	switch c.Provider {
	case domain.ProviderGemini:
		return c.GeminiModel
	case domain.ProviderKnowledgeBase:
		return c.KnowledgeBaseModelARN
	default:
		return c.BedrockModelID
	}
}

// ParseResponseMode maps s to a known mode, returning fallback otherwise.
func ParseResponseMode(s string, fallback ResponseMode) ResponseMode {
	switch ResponseMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStream:
		return ModeStream
	case ModeBuffered:
		return ModeBuffered
	default:
		return fallback
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.With(zap.String("key", key), zap.String("value", raw)).Warn("invalid integer, using default", zap.Int("default", defaultValue))
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		log.With(zap.String("key", key), zap.String("value", raw)).Warn("invalid number, using default", zap.Float64("default", defaultValue))
		return defaultValue
	}
	return v
}
