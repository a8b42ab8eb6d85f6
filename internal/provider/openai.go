package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI wraps the go-openai chat completions client. BaseURL may point at
// any OpenAI-compatible endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI constructs an OpenAI client with explicit settings.
func NewOpenAI(model, apiKey, baseURL string, client HTTPDoer) (*OpenAI, error) {
	if strings.TrimSpace(model) == "" {
		return nil, Fatalf(ProviderOpenAI, "model is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, Fatalf(ProviderOpenAI, "api key is required")
	}
	config := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if client != nil {
		config.HTTPClient = client
	}
	return &OpenAI{client: openai.NewClientWithConfig(config), model: model}, nil
}

// Complete sends the prompt as a single user message.
func (p *OpenAI) Complete(ctx context.Context, req Request) (Completion, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: wireTemperature(req.Decoding.Temperature),
		TopP:        float32(req.Decoding.TopP),
		MaxTokens:   req.Decoding.MaxTokens,
	})
	if err != nil {
		return Completion{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, &TransientError{Provider: ProviderOpenAI, Err: fmt.Errorf("response contained no choices")}
	}
	return Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// wireTemperature keeps a zero temperature on the wire; go-openai drops a
// literal 0 through omitempty and the API then applies its default of 1.
func wireTemperature(value float64) float32 {
	if value == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(value)
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(ProviderOpenAI, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return statusError(ProviderOpenAI, reqErr.HTTPStatusCode, reqErr.Error())
	}
	return transportError(ProviderOpenAI, err)
}
