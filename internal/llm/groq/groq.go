// Package groq is the Groq chat backend. Groq speaks the OpenAI chat
// completions protocol, so the langchaingo OpenAI client is pointed at it.
package groq

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const DefaultBaseURL = "https://api.groq.com/openai/v1"

type Client struct {
	llm         llms.Model
	temperature float64
	maxTokens   int
	topP        float64
}

type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL sets a custom base URL (for testing or proxying).
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func New(apiKey, model string, opts ...Option) (*Client, error) {
	o := options{baseURL: DefaultBaseURL, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithBaseURL(o.baseURL),
		openai.WithHTTPClient(o.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create groq client: %w", err)
	}

	return &Client{
		llm:         llm,
		temperature: 0.7,
		maxTokens:   1024,
		topP:        0.95,
	}, nil
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := c.llm.GenerateContent(ctx, content,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
		llms.WithTopP(c.topP),
	)
	if err != nil {
		return "", fmt.Errorf("failed to call groq: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
