// Package claude is the Anthropic chat backend.
package claude

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

type Client struct {
	client *anthropic.Client
	model  string
}

// New creates a Claude backend. baseURL may be empty for the public API.
func New(apiKey, model, baseURL string) *Client {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Client{client: anthropic.NewClient(apiKey, opts...), model: model}
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    system,
		Messages:  []anthropic.Message{anthropic.NewUserTextMessage(user)},
		MaxTokens: 1024,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}
	return resp.GetFirstContentText(), nil
}
