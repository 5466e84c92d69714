package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/satriahrh/cocoa-fruit/ragchat/config"
	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"go.uber.org/zap"
)

// RequestTemplate is the fixed part of every generation request.
type RequestTemplate struct {
	Provider        domain.ProviderKind
	ModelID         string
	KnowledgeBaseID string
	Generation      config.Generation
}

func TemplateFromConfig(cfg config.Config) RequestTemplate {
	return RequestTemplate{
		Provider:        cfg.Provider,
		ModelID:         cfg.ModelID(),
		KnowledgeBaseID: cfg.KnowledgeBaseID,
		Generation:      cfg.Generation,
	}
}

// BuildRequest merges prompt into tmpl. The prompt must contain something
// other than whitespace; it is otherwise passed through untouched.
func BuildRequest(tmpl RequestTemplate, prompt string) (domain.GenerationRequest, error) {
	if strings.TrimSpace(prompt) == "" {
		return domain.GenerationRequest{}, domain.NewError(domain.KindValidation, "build request", domain.ErrEmptyPrompt)
	}
	if tmpl.Provider == domain.ProviderKnowledgeBase && tmpl.KnowledgeBaseID == "" {
		return domain.GenerationRequest{}, domain.NewError(domain.KindUnknown, "build request", domain.ErrMissingSource)
	}

	return domain.GenerationRequest{
		Prompt:          prompt,
		ModelID:         tmpl.ModelID,
		Temperature:     tmpl.Generation.Temperature,
		MaxTokens:       tmpl.Generation.MaxTokens,
		SystemPrompt:    tmpl.Generation.SystemPrompt,
		KnowledgeBaseID: tmpl.KnowledgeBaseID,
	}, nil
}

type ChatService struct {
	llm  domain.Generator
	tmpl RequestTemplate
}

func NewChatService(gen domain.Generator, tmpl RequestTemplate) *ChatService {
	return &ChatService{llm: gen, tmpl: tmpl}
}

// Complete invokes the provider exactly once and waits for the full reply.
func (s *ChatService) Complete(ctx context.Context, prompt string) (domain.Document, error) {
	req, err := BuildRequest(s.tmpl, prompt)
	if err != nil {
		return domain.Document{}, err
	}

	ctx = log.WithProvider(ctx, string(s.tmpl.Provider))
	log.WithCtx(ctx).Debug("Invoking provider",
		zap.String("model", req.ModelID),
		zap.Int("prompt_length", len(req.Prompt)))

	doc, err := s.llm.Generate(ctx, req)
	if err != nil {
		return domain.Document{}, fmt.Errorf("generate: %w", err)
	}
	return doc, nil
}

// Stream opens a streamed reply. An error here means nothing has been sent yet.
func (s *ChatService) Stream(ctx context.Context, prompt string) (domain.FragmentSeq, error) {
	req, err := BuildRequest(s.tmpl, prompt)
	if err != nil {
		return nil, err
	}

	ctx = log.WithProvider(ctx, string(s.tmpl.Provider))
	log.WithCtx(ctx).Debug("Opening provider stream",
		zap.String("model", req.ModelID),
		zap.Int("prompt_length", len(req.Prompt)))

	seq, err := s.llm.GenerateStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate stream: %w", err)
	}
	if seq == nil {
		return nil, fmt.Errorf("generate stream: provider returned no stream")
	}
	return seq, nil
}

func (s *ChatService) Provider() domain.ProviderKind {
	return s.tmpl.Provider
}
