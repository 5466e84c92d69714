package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
)

type GeminiClient struct {
	newClient func(ctx context.Context) (*genai.Client, error)
}

// NewGeminiClient talks to the Gemini API. The API key is picked up by the
// SDK from GOOGLE_API_KEY or GEMINI_API_KEY.
func NewGeminiClient() domain.Generator {
	return &GeminiClient{
		newClient: func(ctx context.Context) (*genai.Client, error) {
			return genai.NewClient(ctx, &genai.ClientConfig{
				HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
			})
		},
	}
}

func geminiConfig(req domain.GenerationRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: req.MaxTokens,
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	return cfg
}

func (g *GeminiClient) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Document, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return domain.Document{}, domain.NewError(domain.KindUnknown, "creating genai client", err)
	}

	resp, err := client.Models.GenerateContent(ctx, req.ModelID, genai.Text(req.Prompt), geminiConfig(req))
	if err != nil {
		return domain.Document{}, classifyGeminiError("generate content", err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return domain.Document{}, domain.NewError(domain.KindUnknown, "generate content", fmt.Errorf("encoding response: %w", err))
	}
	return domain.Document{Text: resp.Text(), Raw: raw}, nil
}

func (g *GeminiClient) GenerateStream(ctx context.Context, req domain.GenerationRequest) (domain.FragmentSeq, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, domain.NewError(domain.KindUnknown, "creating genai client", err)
	}

	responses := client.Models.GenerateContentStream(ctx, req.ModelID, genai.Text(req.Prompt), geminiConfig(req))
	return func(yield func(domain.Fragment, error) bool) {
		for resp, err := range responses {
			if err != nil {
				yield(domain.Fragment{}, classifyGeminiError("reading stream", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(domain.Fragment{Text: text}, nil) {
				return
			}
		}
	}, nil
}

func classifyGeminiError(op string, err error) error {
	kind := domain.KindUnknown
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest:
			kind = domain.KindValidation
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = domain.KindAuthorization
		}
	}
	return domain.NewError(kind, op, err)
}
