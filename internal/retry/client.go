package retry

import (
	"context"

	"forgetbench/internal/provider"
)

// Client decorates a provider.Client with retries.
type Client struct {
	next   provider.Client
	policy Policy
	opts   []Option
}

// Wrap composes retries around next explicitly.
func Wrap(next provider.Client, policy Policy, opts ...Option) *Client {
	return &Client{next: next, policy: policy, opts: opts}
}

// Complete implements provider.Client.
func (c *Client) Complete(ctx context.Context, req provider.Request) (provider.Completion, error) {
	completion, _, err := c.CompleteCounted(ctx, req)
	return completion, err
}

// CompleteCounted is Complete plus the number of attempts made.
func (c *Client) CompleteCounted(ctx context.Context, req provider.Request, extra ...Option) (provider.Completion, int, error) {
	var completion provider.Completion
	opts := append(append([]Option{}, c.opts...), extra...)
	attempts, err := Do(ctx, c.policy, func(callCtx context.Context) error {
		result, err := c.next.Complete(callCtx, req)
		if err != nil {
			return err
		}
		completion = result
		return nil
	}, opts...)
	if err != nil {
		return provider.Completion{}, attempts, err
	}
	return completion, attempts, nil
}
