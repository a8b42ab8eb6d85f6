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

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicAPIVersion     = "2023-06-01"
	defaultMaxTokens        = 512
)

// Anthropic talks to the Anthropic Messages API over plain HTTP.
type Anthropic struct {
	APIKey  string
	BaseURL string
	Client  HTTPDoer
	Model   string
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropic constructs an Anthropic client with explicit settings.
func NewAnthropic(model, apiKey, baseURL string, client HTTPDoer) (*Anthropic, error) {
	if strings.TrimSpace(model) == "" {
		return nil, Fatalf(ProviderAnthropic, "model is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, Fatalf(ProviderAnthropic, "api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultAnthropicBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Anthropic{APIKey: apiKey, BaseURL: strings.TrimRight(baseURL, "/"), Client: client, Model: model}, nil
}

// Complete sends the prompt as a single user turn.
func (p *Anthropic) Complete(ctx context.Context, req Request) (Completion, error) {
	maxTokens := req.Decoding.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := req.Decoding.Temperature
	body := anthropicRequest{
		Model:       p.Model,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
	if req.Decoding.TopP > 0 && req.Decoding.TopP < 1 {
		topP := req.Decoding.TopP
		body.TopP = &topP
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Completion{}, Fatalf(ProviderAnthropic, "marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return Completion{}, Fatalf(ProviderAnthropic, "create request: %v", err)
	}
	httpReq.Header.Set("x-api-key", p.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return Completion{}, transportError(ProviderAnthropic, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, transportError(ProviderAnthropic, err)
	}
	// 529 is Anthropic's "overloaded" status and falls in the transient 5xx range.
	if resp.StatusCode != http.StatusOK {
		return Completion{}, statusError(ProviderAnthropic, resp.StatusCode, string(raw))
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Completion{}, &TransientError{Provider: ProviderAnthropic, Err: fmt.Errorf("decode response: %w", err)}
	}
	var text strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return Completion{
		Text:             text.String(),
		PromptTokens:     decoded.Usage.InputTokens,
		CompletionTokens: decoded.Usage.OutputTokens,
	}, nil
}
