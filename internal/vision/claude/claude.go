package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/vision"
)

// Diagnoser sends crop photos to the Anthropic Messages API.
type Diagnoser struct {
	client *anthropic.Client
	model  string
	prompt vision.PromptFunc
}

// New creates a Diagnoser. An empty baseURL uses the public API.
func New(apiKey, model, baseURL string, prompt vision.PromptFunc) *Diagnoser {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Diagnoser{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
		prompt: prompt,
	}
}

func (d *Diagnoser) Diagnose(ctx context.Context, r io.Reader, mimeType string) (*vision.Report, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := d.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(d.model),
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					vision.NormaliseMIME(mimeType),
					base64.StdEncoding.EncodeToString(imageData),
				)),
				anthropic.NewTextMessageContent(d.prompt()),
			},
		}},
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	return &vision.Report{Text: resp.GetFirstContentText(), Source: domain.SourceClaude}, nil
}
