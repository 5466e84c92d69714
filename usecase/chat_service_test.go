package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/llm/llmtest"
	"github.com/satriahrh/cocoa-fruit/ragchat/config"
	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTemplate = RequestTemplate{
	Provider: domain.ProviderBedrock,
	ModelID:  "anthropic.claude-v2:1",
	Generation: config.Generation{
		Temperature:  0.5,
		MaxTokens:    1000,
		SystemPrompt: "You are helpful.",
	},
}

func TestBuildRequest_MergesTemplate(t *testing.T) {
	req, err := BuildRequest(testTemplate, "hello")
	require.NoError(t, err)

	assert.Equal(t, domain.GenerationRequest{
		Prompt:       "hello",
		ModelID:      "anthropic.claude-v2:1",
		Temperature:  0.5,
		MaxTokens:    1000,
		SystemPrompt: "You are helpful.",
	}, req)
}

func TestBuildRequest_RejectsBlankPrompt(t *testing.T) {
	for _, prompt := range []string{"", "   ", "\n\t"} {
		_, err := BuildRequest(testTemplate, prompt)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEmptyPrompt)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	}
}

func TestBuildRequest_KnowledgeBaseNeedsID(t *testing.T) {
	tmpl := testTemplate
	tmpl.Provider = domain.ProviderKnowledgeBase

	_, err := BuildRequest(tmpl, "hello")
	assert.ErrorIs(t, err, domain.ErrMissingSource)
	assert.Equal(t, domain.KindUnknown, domain.KindOf(err))

	tmpl.KnowledgeBaseID = "KB123"
	req, err := BuildRequest(tmpl, "hello")
	require.NoError(t, err)
	assert.Equal(t, "KB123", req.KnowledgeBaseID)
}

func TestTemplateFromConfig(t *testing.T) {
	cfg := config.Config{
		Provider:              domain.ProviderKnowledgeBase,
		KnowledgeBaseID:       "KB1",
		KnowledgeBaseModelARN: "arn:model",
		Generation:            config.Generation{MaxTokens: 10},
	}
	tmpl := TemplateFromConfig(cfg)
	assert.Equal(t, "arn:model", tmpl.ModelID)
	assert.Equal(t, "KB1", tmpl.KnowledgeBaseID)
	assert.Equal(t, int32(10), tmpl.Generation.MaxTokens)
}

func TestComplete_CallsProviderOnce(t *testing.T) {
	gen := &llmtest.Generator{Doc: domain.Document{Text: "Hi!"}}
	svc := NewChatService(gen, testTemplate)

	doc, err := svc.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", doc.Text)
	assert.Len(t, gen.Requests(), 1)
}

func TestComplete_InvalidPromptSkipsProvider(t *testing.T) {
	gen := &llmtest.Generator{}
	svc := NewChatService(gen, testTemplate)

	_, err := svc.Complete(context.Background(), " ")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Empty(t, gen.Requests())
}

func TestComplete_KeepsProviderClassification(t *testing.T) {
	cause := domain.NewError(domain.KindAuthorization, "invoke", errors.New("denied"))
	gen := &llmtest.Generator{DocErr: cause}
	svc := NewChatService(gen, testTemplate)

	_, err := svc.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
}

func TestStream_YieldsFragments(t *testing.T) {
	gen := &llmtest.Generator{Fragments: llmtest.Texts("He", "llo ", "there")}
	svc := NewChatService(gen, testTemplate)

	seq, err := svc.Stream(context.Background(), "hello")
	require.NoError(t, err)

	text, err := domain.Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)
	assert.Len(t, gen.Requests(), 1)
}

func TestStream_InitFailure(t *testing.T) {
	gen := &llmtest.Generator{InitErr: errors.New("no credentials")}
	svc := NewChatService(gen, testTemplate)

	seq, err := svc.Stream(context.Background(), "hello")
	assert.Nil(t, seq)
	assert.EqualError(t, err, "generate stream: no credentials")
}
