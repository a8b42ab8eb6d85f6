package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func lookupFrom(values map[string]string) LookupFunc {
	return func(key string) string { return values[key] }
}

// TestNewRequiresCredential verifies a missing API key is fatal before any call.
func TestNewRequiresCredential(t *testing.T) {
	_, err := New(Config{Provider: ProviderOpenRouter, Model: "m", APIKeyEnv: "OPENROUTER_API_KEY"}, lookupFrom(nil), nil)
	if !IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	_, err = New(Config{Provider: "palm", Model: "m", APIKeyEnv: "K"}, lookupFrom(map[string]string{"K": "x"}), nil)
	if !IsFatal(err) {
		t.Fatalf("expected fatal error for unsupported provider, got %v", err)
	}
}

// TestOpenRouterCompleteParsesResponse verifies request shape and usage parsing.
func TestOpenRouterCompleteParsesResponse(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.Header.Get("X-Title") == "" {
			t.Errorf("expected X-Title header")
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"Final Answer: B"}}],"usage":{"prompt_tokens":42,"completion_tokens":7}}`)
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{Provider: ProviderOpenRouter, Model: "anthropic/claude-3.5-sonnet", BaseURL: server.URL, APIKeyEnv: "K"},
		lookupFrom(map[string]string{"K": "key"}), server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	completion, err := client.Complete(context.Background(), Request{Prompt: "hi", Decoding: Greedy(512)})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completion.Text != "Final Answer: B" || completion.PromptTokens != 42 || completion.CompletionTokens != 7 {
		t.Fatalf("unexpected completion: %+v", completion)
	}
	if captured["temperature"] != float64(0) || captured["top_p"] != float64(1) {
		t.Fatalf("expected greedy decoding on the wire, got %+v", captured)
	}
	if captured["model"] != "anthropic/claude-3.5-sonnet" {
		t.Fatalf("unexpected model %v", captured["model"])
	}
}

// TestStatusClassification verifies HTTP statuses map onto transient and fatal errors.
func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{529, true},
		{http.StatusRequestTimeout, true},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"error":{"message":"nope"}}`)
			}))
			t.Cleanup(server.Close)
			for _, name := range []string{ProviderOpenRouter, ProviderAnthropic} {
				client, err := New(Config{Provider: name, Model: "m", BaseURL: server.URL, APIKeyEnv: "K"},
					lookupFrom(map[string]string{"K": "key"}), server.Client())
				if err != nil {
					t.Fatalf("new %s: %v", name, err)
				}
				_, err = client.Complete(context.Background(), Request{Prompt: "x", Decoding: Greedy(16)})
				if IsTransient(err) != tc.transient || IsFatal(err) == tc.transient {
					t.Fatalf("%s status %d: unexpected classification %v", name, tc.status, err)
				}
			}
		})
	}
}

// TestAnthropicCompleteJoinsTextBlocks verifies headers, max tokens and usage mapping.
func TestAnthropicCompleteJoinsTextBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "key" || r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Errorf("missing anthropic headers: %v", r.Header)
		}
		var body anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.MaxTokens != defaultMaxTokens || body.Temperature == nil || *body.Temperature != 0 || body.TopP != nil {
			t.Errorf("unexpected request body: %+v", body)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"Reasoning.\n"},{"type":"text","text":"Final Answer: C"}],"usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewAnthropic("claude", "key", server.URL, server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	completion, err := client.Complete(context.Background(), Request{Prompt: "q", Decoding: Greedy(0)})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completion.Text != "Reasoning.\nFinal Answer: C" || completion.PromptTokens != 10 || completion.CompletionTokens != 5 {
		t.Fatalf("unexpected completion: %+v", completion)
	}
}

// TestOpenAICompleteUsesCompatibleEndpoint verifies the go-openai variant and its error mapping.
func TestOpenAICompleteUsesCompatibleEndpoint(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if temp, ok := body["temperature"].(float64); !ok || temp > 1e-6 {
			t.Errorf("expected near-zero temperature on the wire, got %v", body["temperature"])
		}
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"B"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewOpenAI("gpt-4.1", "key", server.URL, server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Complete(context.Background(), Request{Prompt: "q", Decoding: Greedy(16)})
	var transient *TransientError
	if !errors.As(err, &transient) || transient.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected transient 429, got %v", err)
	}
	completion, err := client.Complete(context.Background(), Request{Prompt: "q", Decoding: Greedy(16)})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if strings.TrimSpace(completion.Text) != "B" || completion.PromptTokens != 3 {
		t.Fatalf("unexpected completion: %+v", completion)
	}
}

// TestTransportErrorClassification verifies connection failures are transient and cancellation passes through.
func TestTransportErrorClassification(t *testing.T) {
	if err := transportError("x", context.DeadlineExceeded); !IsTransient(err) {
		t.Fatalf("expected deadline to be transient, got %v", err)
	}
	if err := transportError("x", io.ErrUnexpectedEOF); !IsTransient(err) {
		t.Fatalf("expected unexpected EOF to be transient, got %v", err)
	}
	if err := transportError("x", context.Canceled); !errors.Is(err, context.Canceled) || IsTransient(err) || IsFatal(err) {
		t.Fatalf("expected cancellation to pass through, got %v", err)
	}
	if err := transportError("x", errors.New("unsupported protocol scheme")); !IsFatal(err) {
		t.Fatalf("expected unknown transport error to be fatal, got %v", err)
	}
}
