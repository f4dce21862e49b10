package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Chain tries a remote diagnoser first and falls back to a local one when
// the remote is not configured, errors, or returns no text.
type Chain struct {
	primary  Diagnoser
	fallback Diagnoser
	logger   *slog.Logger
}

// NewChain builds a Chain. primary may be nil.
func NewChain(primary, fallback Diagnoser, logger *slog.Logger) *Chain {
	return &Chain{primary: primary, fallback: fallback, logger: logger}
}

func (c *Chain) Diagnose(ctx context.Context, r io.Reader, mimeType string) (*Report, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	if c.primary != nil {
		remoteData, remoteMIME, err := remoteImage(imageData, mimeType)
		if err != nil {
			c.logger.Warn("cannot convert image for vision analysis, falling back locally", "mime_type", mimeType, "error", err)
			return c.fallback.Diagnose(ctx, bytes.NewReader(imageData), mimeType)
		}
		report, err := c.primary.Diagnose(ctx, bytes.NewReader(remoteData), remoteMIME)
		switch {
		case err != nil:
			c.logger.Error("vision analysis failed, falling back locally", "error", err)
		case report == nil || strings.TrimSpace(report.Text) == "":
			c.logger.Warn("vision analysis returned empty text, falling back locally")
		default:
			return report, nil
		}
	}

	return c.fallback.Diagnose(ctx, bytes.NewReader(imageData), mimeType)
}

// remoteImage re-encodes BMP and TIFF photos as PNG, which every remote
// backend accepts. Other formats pass through unchanged.
func remoteImage(data []byte, mimeType string) ([]byte, string, error) {
	if mimeType != "image/bmp" && mimeType != "image/tiff" {
		return data, mimeType, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", mimeType, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}
