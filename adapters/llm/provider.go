package llm

import (
	"fmt"

	"github.com/satriahrh/cocoa-fruit/ragchat/config"
	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
)

// New returns the generator selected by cfg.Provider.
func New(cfg config.Config) (domain.Generator, error) {
	creds := AWSCredentials{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	}

	switch cfg.Provider {
	case domain.ProviderBedrock:
		return NewBedrockClient(creds), nil
	case domain.ProviderKnowledgeBase:
		return NewKnowledgeBaseClient(creds), nil
	case domain.ProviderGemini:
		return NewGeminiClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
