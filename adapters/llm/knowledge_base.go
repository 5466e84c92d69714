package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"go.uber.org/zap"
)

type agentRuntimeAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
	RetrieveAndGenerateStream(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateStreamInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateStreamOutput, error)
}

// KnowledgeBaseClient answers prompts through a Bedrock knowledge base
// (retrieval followed by generation with the configured model).
type KnowledgeBaseClient struct {
	newClient func(ctx context.Context) (agentRuntimeAPI, error)
}

func NewKnowledgeBaseClient(creds AWSCredentials) domain.Generator {
	return &KnowledgeBaseClient{
		newClient: func(ctx context.Context) (agentRuntimeAPI, error) {
			cfg, err := creds.load(ctx)
			if err != nil {
				return nil, err
			}
			return bedrockagentruntime.NewFromConfig(cfg), nil
		},
	}
}

// kbDocument is the buffered reply relayed to the browser.
type kbDocument struct {
	Output struct {
		Text string `json:"text"`
	} `json:"output"`
	Citations []domain.Citation `json:"citations,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
}

func retrieveAndGenerateConfig(req domain.GenerationRequest) *types.RetrieveAndGenerateConfiguration {
	gen := &types.GenerationConfiguration{
		InferenceConfig: &types.InferenceConfig{
			TextInferenceConfig: &types.TextInferenceConfig{
				Temperature: aws.Float32(req.Temperature),
				MaxTokens:   aws.Int32(req.MaxTokens),
			},
		},
	}
	if req.SystemPrompt != "" {
		gen.PromptTemplate = &types.PromptTemplate{
			TextPromptTemplate: aws.String(req.SystemPrompt + "\n\n$search_results$\n\n$output_format_instructions$"),
		}
	}

	return &types.RetrieveAndGenerateConfiguration{
		Type: types.RetrieveAndGenerateTypeKnowledgeBase,
		KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
			KnowledgeBaseId:         aws.String(req.KnowledgeBaseID),
			ModelArn:                aws.String(req.ModelID),
			GenerationConfiguration: gen,
		},
	}
}

func convertCitations(in []types.Citation) []domain.Citation {
	var out []domain.Citation
	for _, c := range in {
		for _, ref := range c.RetrievedReferences {
			out = append(out, convertReference(ref))
		}
	}
	return out
}

func convertReference(ref types.RetrievedReference) domain.Citation {
	var cit domain.Citation
	if ref.Content != nil {
		cit.Text = aws.ToString(ref.Content.Text)
	}
	if loc := ref.Location; loc != nil {
		switch {
		case loc.S3Location != nil:
			cit.Location = aws.ToString(loc.S3Location.Uri)
		case loc.WebLocation != nil:
			cit.Location = aws.ToString(loc.WebLocation.Url)
		}
	}
	return cit
}

func (k *KnowledgeBaseClient) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Document, error) {
	client, err := k.newClient(ctx)
	if err != nil {
		return domain.Document{}, domain.NewError(domain.KindUnknown, "creating agent runtime client", err)
	}

	out, err := client.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input:                            &types.RetrieveAndGenerateInput{Text: aws.String(req.Prompt)},
		RetrieveAndGenerateConfiguration: retrieveAndGenerateConfig(req),
	})
	if err != nil {
		return domain.Document{}, classifyAWSError("retrieve and generate", err)
	}

	var doc kbDocument
	if out.Output != nil {
		doc.Output.Text = aws.ToString(out.Output.Text)
	}
	doc.Citations = convertCitations(out.Citations)
	doc.SessionID = aws.ToString(out.SessionId)

	raw, err := json.Marshal(doc)
	if err != nil {
		return domain.Document{}, domain.NewError(domain.KindUnknown, "retrieve and generate", fmt.Errorf("encoding document: %w", err))
	}
	return domain.Document{Text: doc.Output.Text, Citations: doc.Citations, Raw: raw}, nil
}

func (k *KnowledgeBaseClient) GenerateStream(ctx context.Context, req domain.GenerationRequest) (domain.FragmentSeq, error) {
	client, err := k.newClient(ctx)
	if err != nil {
		return nil, domain.NewError(domain.KindUnknown, "creating agent runtime client", err)
	}

	out, err := client.RetrieveAndGenerateStream(ctx, &bedrockagentruntime.RetrieveAndGenerateStreamInput{
		Input:                            &types.RetrieveAndGenerateInput{Text: aws.String(req.Prompt)},
		RetrieveAndGenerateConfiguration: retrieveAndGenerateConfig(req),
	})
	if err != nil {
		return nil, classifyAWSError("retrieve and generate stream", err)
	}

	stream := out.GetStream()
	if stream == nil {
		return nil, domain.NewError(domain.KindUnknown, "retrieve and generate stream", errNoStream)
	}

	return eventSeq(ctx, stream.Events(), stream, func(ev types.RetrieveAndGenerateStreamResponseOutput) (domain.Fragment, bool, error) {
		return decodeKnowledgeBaseEvent(ctx, ev)
	}), nil
}

func decodeKnowledgeBaseEvent(ctx context.Context, ev types.RetrieveAndGenerateStreamResponseOutput) (domain.Fragment, bool, error) {
	switch v := ev.(type) {
	case *types.RetrieveAndGenerateStreamResponseOutputMemberOutput:
		text := aws.ToString(v.Value.Text)
		return domain.Fragment{Text: text}, text != "", nil
	case *types.RetrieveAndGenerateStreamResponseOutputMemberCitation:
		var cits []domain.Citation
		if v.Value.Citation != nil {
			cits = convertCitations([]types.Citation{*v.Value.Citation})
		}
		log.WithCtx(ctx).Debug("Knowledge base citation", zap.Int("references", len(cits)))
		return domain.Fragment{Citations: cits}, len(cits) > 0, nil
	default:
		return domain.Fragment{}, false, nil
	}
}
