package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// defaultOpenRouterBaseURL is the default OpenRouter API base URL.
const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter talks to the OpenRouter chat completions API over plain HTTP.
type OpenRouter struct {
	APIKey  string
	BaseURL string
	Client  HTTPDoer
	Model   string
	Referer string
	Title   string
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	TopP        float64             `json:"top_p"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openRouterResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenRouter constructs an OpenRouter client with explicit settings.
func NewOpenRouter(model, apiKey, baseURL string, client HTTPDoer) (*OpenRouter, error) {
	if strings.TrimSpace(model) == "" {
		return nil, Fatalf(ProviderOpenRouter, "model is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, Fatalf(ProviderOpenRouter, "api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenRouter{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		Model:   model,
		Referer: "https://github.com/forgetbench",
		Title:   "forgetbench",
	}, nil
}

// Complete sends the prompt as a single user message.
func (p *OpenRouter) Complete(ctx context.Context, req Request) (Completion, error) {
	payload, err := json.Marshal(openRouterRequest{
		Model:       p.Model,
		Messages:    []openRouterMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Decoding.Temperature,
		TopP:        req.Decoding.TopP,
		MaxTokens:   req.Decoding.MaxTokens,
	})
	if err != nil {
		return Completion{}, Fatalf(ProviderOpenRouter, "marshal request: %v", err)
	}

	endpoint := p.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Completion{}, Fatalf(ProviderOpenRouter, "create request: %v", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if p.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", p.Referer)
	}
	if p.Title != "" {
		httpReq.Header.Set("X-Title", p.Title)
	}

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return Completion{}, transportError(ProviderOpenRouter, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, transportError(ProviderOpenRouter, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Completion{}, statusError(ProviderOpenRouter, resp.StatusCode, string(body))
	}

	var decoded openRouterResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Completion{}, &TransientError{Provider: ProviderOpenRouter, Err: fmt.Errorf("decode response: %w", err)}
	}
	if decoded.Error != nil {
		// OpenRouter reports upstream failures inside a 200 body.
		return Completion{}, embeddedError(decoded.Error.Code, decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return Completion{}, &TransientError{Provider: ProviderOpenRouter, Err: fmt.Errorf("response contained no choices")}
	}
	return Completion{
		Text:             decoded.Choices[0].Message.Content,
		PromptTokens:     decoded.Usage.PromptTokens,
		CompletionTokens: decoded.Usage.CompletionTokens,
	}, nil
}

func embeddedError(code any, message string) error {
	status := 0
	if number, ok := code.(float64); ok {
		status = int(number)
	}
	if status == 0 {
		return &TransientError{Provider: ProviderOpenRouter, Err: fmt.Errorf("%s", summarizeBody(message))}
	}
	return statusError(ProviderOpenRouter, status, message)
}
