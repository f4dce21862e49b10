package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/vbonduro/farmguide/internal/domain"
)

func TestDecodeBase64Image(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantData string
		wantMIME string
		wantErr  bool
	}{
		{name: "raw base64", input: "aGVsbG8=", wantData: "hello"},
		{name: "data url", input: "data:image/png;base64,aGVsbG8=", wantData: "hello", wantMIME: "image/png"},
		{name: "surrounding whitespace", input: "  aGVsbG8=\n", wantData: "hello"},
		{name: "malformed data url", input: "data:image/png;base64", wantErr: true},
		{name: "invalid base64", input: "%%%", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mimeType, err := DecodeBase64Image(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, string(data))
			assert.Equal(t, tt.wantMIME, mimeType)
		})
	}
}

func TestNormaliseMIME(t *testing.T) {
	assert.Equal(t, "image/png", NormaliseMIME("image/png"))
	assert.Equal(t, "image/webp", NormaliseMIME("image/webp"))
	assert.Equal(t, "image/jpeg", NormaliseMIME("image/heic"))
	assert.Equal(t, "image/jpeg", NormaliseMIME(""))
}

type stubDiagnoser struct {
	report   *Report
	err      error
	seen     []byte
	seenMIME string
	calls    int
}

func (s *stubDiagnoser) Diagnose(_ context.Context, r io.Reader, mimeType string) (*Report, error) {
	s.calls++
	s.seen, _ = io.ReadAll(r)
	s.seenMIME = mimeType
	return s.report, s.err
}

func TestChain(t *testing.T) {
	local := &Report{Text: "local", Source: domain.SourceHeuristic}
	remote := &Report{Text: "remote", Source: domain.SourceGemini}

	tests := []struct {
		name       string
		primary    *stubDiagnoser
		want       *Report
		wantCalled int
	}{
		{name: "primary succeeds", primary: &stubDiagnoser{report: remote}, want: remote},
		{name: "primary errors", primary: &stubDiagnoser{err: errors.New("quota")}, want: local, wantCalled: 1},
		{name: "primary empty text", primary: &stubDiagnoser{report: &Report{Text: "  "}}, want: local, wantCalled: 1},
		{name: "no primary", want: local, wantCalled: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallback := &stubDiagnoser{report: local}
			var primary Diagnoser
			if tt.primary != nil {
				primary = tt.primary
			}

			chain := NewChain(primary, fallback, slog.Default())
			got, err := chain.Diagnose(context.Background(), bytes.NewReader([]byte("img")), "image/png")
			require.NoError(t, err)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalled, fallback.calls)
			if tt.primary != nil {
				assert.Equal(t, "img", string(tt.primary.seen))
			}
			if tt.wantCalled > 0 {
				assert.Equal(t, "img", string(fallback.seen))
			}
		})
	}
}

func TestChainConvertsBMPForRemote(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	original := buf.Bytes()

	primary := &stubDiagnoser{report: &Report{Text: "remote", Source: domain.SourceGemini}}
	chain := NewChain(primary, &stubDiagnoser{}, slog.Default())
	_, err := chain.Diagnose(context.Background(), bytes.NewReader(original), "image/bmp")
	require.NoError(t, err)

	assert.Equal(t, "image/png", primary.seenMIME)
	decoded, format, err := image.Decode(bytes.NewReader(primary.seen))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestChainUndecodableBMPSkipsRemote(t *testing.T) {
	primary := &stubDiagnoser{report: &Report{Text: "remote"}}
	fallback := &stubDiagnoser{report: &Report{Text: "local", Source: domain.SourceHeuristic}}
	chain := NewChain(primary, fallback, slog.Default())

	got, err := chain.Diagnose(context.Background(), bytes.NewReader([]byte("BMtruncated")), "image/bmp")
	require.NoError(t, err)
	assert.Equal(t, "local", got.Text)
	assert.Zero(t, primary.calls)
	assert.Equal(t, "image/bmp", fallback.seenMIME)
}
