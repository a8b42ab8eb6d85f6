package provider

import (
	"context"
	"net/http"
)

// Decoding holds sampling parameters. Evaluations run greedy: temperature 0, top_p 1.
type Decoding struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Greedy returns the deterministic decoding used for every evaluation call.
func Greedy(maxTokens int) Decoding {
	return Decoding{Temperature: 0, TopP: 1, MaxTokens: maxTokens}
}

// Request is one stateless completion call.
type Request struct {
	Prompt   string
	Decoding Decoding
}

// Completion is the backend's text plus the token usage it reported.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Client is the single capability every backend variant offers.
// Implementations keep no state between calls beyond the returned completion.
type Client interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (Completion, error)

// Complete calls fn.
func (fn ClientFunc) Complete(ctx context.Context, req Request) (Completion, error) {
	return fn(ctx, req)
}

// HTTPDoer abstracts HTTP clients used by providers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
