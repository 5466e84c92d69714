// Package llmtest provides an in-memory domain.Generator for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
)

type Generator struct {
	Doc     domain.Document
	DocErr  error
	InitErr error

	Fragments []domain.Fragment
	// StreamErr is yielded after all fragments when non-nil.
	StreamErr error

	mu       sync.Mutex
	requests []domain.GenerationRequest
}

// Texts builds fragments from plain strings.
func Texts(parts ...string) []domain.Fragment {
	frags := make([]domain.Fragment, len(parts))
	for i, p := range parts {
		frags[i] = domain.Fragment{Text: p}
	}
	return frags
}

func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Document, error) {
	g.record(req)
	if g.DocErr != nil {
		return domain.Document{}, g.DocErr
	}
	return g.Doc, nil
}

func (g *Generator) GenerateStream(ctx context.Context, req domain.GenerationRequest) (domain.FragmentSeq, error) {
	g.record(req)
	if g.InitErr != nil {
		return nil, g.InitErr
	}
	frags := append([]domain.Fragment(nil), g.Fragments...)
	streamErr := g.StreamErr
	return func(yield func(domain.Fragment, error) bool) {
		for _, f := range frags {
			if !yield(f, nil) {
				return
			}
		}
		if streamErr != nil {
			yield(domain.Fragment{}, streamErr)
		}
	}, nil
}

func (g *Generator) Requests() []domain.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.GenerationRequest(nil), g.requests...)
}

func (g *Generator) record(req domain.GenerationRequest) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
}
