package ollama

import (
	"context"
	"fmt"
	"io"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/vision"
)

// Diagnoser runs the crop prompt against a local multimodal Ollama model.
type Diagnoser struct {
	llm    *ollama.LLM
	prompt vision.PromptFunc
}

func New(host, model string, prompt vision.PromptFunc) (*Diagnoser, error) {
	llm, err := ollama.New(ollama.WithServerURL(host), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &Diagnoser{llm: llm, prompt: prompt}, nil
}

// Diagnose returns an error, never a panic, when the server answers with a
// status and no body; the client library dereferences the missing message.
func (d *Diagnoser) Diagnose(ctx context.Context, r io.Reader, mimeType string) (report *vision.Report, err error) {
	defer func() {
		if p := recover(); p != nil {
			report, err = nil, fmt.Errorf("ollama client failed: %v", p)
		}
	}()

	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := d.llm.GenerateContent(ctx, []llms.MessageContent{{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.BinaryPart(vision.NormaliseMIME(mimeType), imageData),
			llms.TextPart(d.prompt()),
		},
	}}, llms.WithTemperature(0.4))
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ollama returned no choices")
	}

	return &vision.Report{Text: resp.Choices[0].Content, Source: domain.SourceOllama}, nil
}
