// Package gemini diagnoses crop photos with the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/genai"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/vision"
)

const DefaultModel = "gemini-2.0-flash-lite"

type Diagnoser struct {
	client *genai.Client
	model  string
	prompt vision.PromptFunc
}

type Option func(*genai.ClientConfig)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(c *genai.ClientConfig) { c.HTTPOptions.BaseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *genai.ClientConfig) { c.HTTPClient = hc }
}

func New(ctx context.Context, apiKey, model string, prompt vision.PromptFunc, opts ...Option) (*Diagnoser, error) {
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Diagnoser{client: client, model: model, prompt: prompt}, nil
}

func (d *Diagnoser) Diagnose(ctx context.Context, r io.Reader, mimeType string) (*vision.Report, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(d.prompt()),
			genai.NewPartFromBytes(imageData, vision.NormaliseMIME(mimeType)),
		}, genai.RoleUser),
	}

	resp, err := d.client.Models.GenerateContent(ctx, d.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.4),
		MaxOutputTokens: 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}

	return &vision.Report{Text: resp.Text(), Source: domain.SourceGemini}, nil
}
