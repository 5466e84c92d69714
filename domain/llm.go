package domain

import (
	"context"
	"encoding/json"
	"iter"
)

// Generator abstracts any text generation provider.
type Generator interface {
	// Generate sends one request and waits for the complete reply.
	Generate(ctx context.Context, req GenerationRequest) (Document, error)
	// GenerateStream starts a streamed reply. The returned error covers
	// failures before the first fragment; errors yielded by the sequence
	// happen mid-stream.
	GenerateStream(ctx context.Context, req GenerationRequest) (FragmentSeq, error)
}

// FragmentSeq yields fragments in arrival order until the provider closes the
// stream or yields a non-nil error.
type FragmentSeq = iter.Seq2[Fragment, error]

type ProviderKind string

const (
	ProviderBedrock       ProviderKind = "bedrock"
	ProviderKnowledgeBase ProviderKind = "bedrock-kb"
	ProviderGemini        ProviderKind = "gemini"
)

// GenerationRequest is built fresh for every call and never stored.
type GenerationRequest struct {
	Prompt          string
	ModelID         string
	Temperature     float32
	MaxTokens       int32
	SystemPrompt    string
	KnowledgeBaseID string
}

// Document is a complete provider reply.
type Document struct {
	Text      string
	Citations []Citation
	// Raw is the provider payload as received, relayed verbatim in buffered mode.
	Raw json.RawMessage
}

// Fragment is one incremental piece of a streamed reply.
type Fragment struct {
	Text      string
	Citations []Citation
}

type Citation struct {
	Text     string `json:"text"`
	Location string `json:"location,omitempty"`
}

// Collect drains seq and concatenates its text, stopping at the first error.
func Collect(seq FragmentSeq) (string, error) {
	var text []byte
	for frag, err := range seq {
		if err != nil {
			return string(text), err
		}
		text = append(text, frag.Text...)
	}
	return string(text), nil
}
