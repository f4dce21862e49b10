package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sashabaranov/go-openai"

	"github.com/vbonduro/farmguide/internal/domain"
)

// Transcriber turns recorded audio into text for browsers without speech
// recognition.
type Transcriber interface {
	Transcribe(ctx context.Context, r io.Reader, filename string, lang domain.Language) (string, error)
}

// Whisper calls the Groq OpenAI-compatible audio transcription endpoint.
type Whisper struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

func NewWhisper(apiKey, model, baseURL string, logger *slog.Logger) *Whisper {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &Whisper{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

func (w *Whisper) Transcribe(ctx context.Context, r io.Reader, filename string, lang domain.Language) (string, error) {
	audio, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}
	w.logger.Debug("sending audio for transcription", "size", humanize.Bytes(uint64(len(audio))), "model", w.model)

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: string(lang),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call whisper: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
