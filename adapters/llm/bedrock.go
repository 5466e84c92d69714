package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"go.uber.org/zap"
)

const anthropicVersion = "bedrock-2023-05-31"

type runtimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// BedrockClient invokes an Anthropic model hosted on Amazon Bedrock.
type BedrockClient struct {
	newClient func(ctx context.Context) (runtimeAPI, error)
}

// NewBedrockClient builds a fresh SDK client for every call from creds.
func NewBedrockClient(creds AWSCredentials) domain.Generator {
	return &BedrockClient{
		newClient: func(ctx context.Context) (runtimeAPI, error) {
			cfg, err := creds.load(ctx)
			if err != nil {
				return nil, err
			}
			return bedrockruntime.NewFromConfig(cfg), nil
		},
	}
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int32           `json:"max_tokens"`
	Temperature      float32         `json:"temperature"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

func encodeClaudeRequest(req domain.GenerationRequest) ([]byte, error) {
	payload := claudeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		System:           req.SystemPrompt,
		Messages: []claudeMessage{
			{
				Role:    "user",
				Content: []claudeContent{{Type: "text", Text: req.Prompt}},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	return body, nil
}

func decodeClaudeResponse(body []byte) (domain.Document, error) {
	var resp claudeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Document{}, fmt.Errorf("decoding response: %w", err)
	}
	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return domain.Document{Text: sb.String(), Raw: json.RawMessage(body)}, nil
}

// decodeClaudeChunk reports ok=false for events that carry no text.
func decodeClaudeChunk(b []byte) (domain.Fragment, bool, error) {
	var ev claudeStreamEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return domain.Fragment{}, false, fmt.Errorf("decoding chunk: %w", err)
	}
	if ev.Type != "content_block_delta" || ev.Delta.Type != "text_delta" {
		return domain.Fragment{}, false, nil
	}
	return domain.Fragment{Text: ev.Delta.Text}, true, nil
}

func (b *BedrockClient) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Document, error) {
	client, err := b.newClient(ctx)
	if err != nil {
		return domain.Document{}, domain.NewError(domain.KindUnknown, "creating bedrock client", err)
	}
	body, err := encodeClaudeRequest(req)
	if err != nil {
		return domain.Document{}, domain.NewError(domain.KindValidation, "invoke model", err)
	}

	out, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return domain.Document{}, classifyAWSError("invoke model", err)
	}

	doc, err := decodeClaudeResponse(out.Body)
	if err != nil {
		return domain.Document{}, domain.NewError(domain.KindUnknown, "invoke model", err)
	}
	return doc, nil
}

func (b *BedrockClient) GenerateStream(ctx context.Context, req domain.GenerationRequest) (domain.FragmentSeq, error) {
	client, err := b.newClient(ctx)
	if err != nil {
		return nil, domain.NewError(domain.KindUnknown, "creating bedrock client", err)
	}
	body, err := encodeClaudeRequest(req)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "invoke model stream", err)
	}

	out, err := client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(req.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, classifyAWSError("invoke model stream", err)
	}

	stream := out.GetStream()
	if stream == nil {
		return nil, domain.NewError(domain.KindUnknown, "invoke model stream", errNoStream)
	}

	return eventSeq(ctx, stream.Events(), stream, func(ev types.ResponseStream) (domain.Fragment, bool, error) {
		switch v := ev.(type) {
		case *types.ResponseStreamMemberChunk:
			return decodeClaudeChunk(v.Value.Bytes)
		default:
			log.WithCtx(ctx).Debug("Skipping bedrock stream event", zap.String("type", fmt.Sprintf("%T", v)))
			return domain.Fragment{}, false, nil
		}
	}), nil
}
