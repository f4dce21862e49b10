package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/vbonduro/farmguide/internal/domain"
)

// Diagnoser produces a free-text diagnosis report for a crop or soil photo.
type Diagnoser interface {
	Diagnose(ctx context.Context, r io.Reader, mimeType string) (*Report, error)
}

type Report struct {
	Text   string
	Source domain.DiagnosisSource
}

// PromptFunc returns the instruction sent alongside the image. It is called
// per request so a reloaded prompt catalog takes effect immediately.
type PromptFunc func() string

// StaticPrompt returns a PromptFunc that always yields p.
func StaticPrompt(p string) PromptFunc {
	return func() string { return p }
}

// DecodeBase64Image accepts raw base64 or a data URL ("data:image/png;base64,...")
// and returns the image bytes plus the MIME type embedded in the URL, if any.
func DecodeBase64Image(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	mimeType := ""
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return data, mimeType, nil
}

// NormaliseMIME maps browser MIME types to the set vision APIs accept.
// Unknown types are coerced to jpeg.
func NormaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
