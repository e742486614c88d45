// Package translatortest provides an in-memory Gateway for tests.
package translatortest

import (
	"context"
	"sync"

	"github.com/ownlingo/gamelingo/translator"
)

// Handler produces the raw response text for one request.
type Handler func(ctx context.Context, req *translator.CompletionRequest) (string, error)

// Gateway records every request and answers through Handler.
type Gateway struct {
	Handler Handler

	mu       sync.Mutex
	requests []translator.CompletionRequest
}

// New returns a gateway answering with h.
func New(h Handler) *Gateway {
	return &Gateway{Handler: h}
}

func (g *Gateway) Name() string { return "fake" }

func (g *Gateway) Complete(ctx context.Context, req *translator.CompletionRequest) (*translator.CompletionResponse, error) {
	g.mu.Lock()
	g.requests = append(g.requests, *req)
	g.mu.Unlock()

	text, err := g.Handler(ctx, req)
	if err != nil {
		return nil, err
	}
	return &translator.CompletionResponse{Text: text, Provider: g.Name()}, nil
}

// Calls returns how many requests were made.
func (g *Gateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// Requests returns a copy of every request made so far.
func (g *Gateway) Requests() []translator.CompletionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]translator.CompletionRequest(nil), g.requests...)
}
