package heuristic

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/vbonduro/farmguide/internal/domain"
)

var (
	leafGreen   = color.RGBA{R: 30, G: 160, B: 40, A: 255}
	wiltYellow  = color.RGBA{R: 200, G: 200, B: 50, A: 255}
	blightBrown = color.RGBA{R: 120, G: 40, B: 30, A: 255}
)

// encodePNG paints a w×h image where each column is coloured by fill(x).
func encodePNG(t *testing.T, w, h int, fill func(x int) color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(c color.Color) func(int) color.Color {
	return func(int) color.Color { return c }
}

func TestAnalyzeSolidColours(t *testing.T) {
	tests := []struct {
		name  string
		fill  color.Color
		risk  Risk
		check func(t *testing.T, p Profile)
	}{
		{"healthy green", leafGreen, RiskLow, func(t *testing.T, p Profile) {
			assert.InDelta(t, 100, p.Green, 0.01)
			assert.Zero(t, p.Yellow)
			assert.Zero(t, p.Brown)
		}},
		{"yellowing", wiltYellow, RiskHigh, func(t *testing.T, p Profile) {
			assert.InDelta(t, 100, p.Yellow, 0.01)
			assert.Zero(t, p.Green)
		}},
		{"blight", blightBrown, RiskHigh, func(t *testing.T, p Profile) {
			assert.InDelta(t, 100, p.Brown, 0.01)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Analyze(encodePNG(t, 64, 48, solid(tt.fill)))
			require.NoError(t, err)
			tt.check(t, p)
			assert.Equal(t, tt.risk, p.Risk())
		})
	}
}

func TestAnalyzeHalfGreenHalfYellow(t *testing.T) {
	data := encodePNG(t, 320, 160, func(x int) color.Color {
		if x < 160 {
			return leafGreen
		}
		return wiltYellow
	})

	p, err := Analyze(data)
	require.NoError(t, err)

	assert.InDelta(t, 50, p.Green, 2)
	assert.InDelta(t, 50, p.Yellow, 2)
	assert.Equal(t, RiskMedium, p.Risk())
}

func TestAnalyzeUndecodable(t *testing.T) {
	_, err := Analyze([]byte("not an image"))
	assert.Error(t, err)
}

func TestRiskThresholds(t *testing.T) {
	assert.Equal(t, RiskLow, Profile{Green: 60.1}.Risk())
	assert.Equal(t, RiskMedium, Profile{Green: 60}.Risk())
	assert.Equal(t, RiskMedium, Profile{Green: 40.1}.Risk())
	assert.Equal(t, RiskHigh, Profile{Green: 40}.Risk())
}

func TestHints(t *testing.T) {
	assert.Equal(t, []string{"No obvious severe issues detected visually. Monitor regularly."}, Profile{Yellow: 8, Brown: 4}.Hints())

	hints := Profile{Yellow: 8.5, Brown: 4.5}.Hints()
	require.Len(t, hints, 2)
	assert.Contains(t, hints[0], "nitrogen deficiency")
	assert.Contains(t, hints[1], "fungal/bacterial")
}

func TestMessage(t *testing.T) {
	msg := Profile{Green: 70}.Message()

	assert.Contains(t, msg, "Hindi:\n• समग्र जोखिम: Low")
	assert.Contains(t, msg, "English:\n• Overall risk: Low")
	assert.Contains(t, msg, "• Hints: No obvious severe issues detected visually. Monitor regularly.")
	assert.Contains(t, msg, "consider neem oil spray if pests suspected.")
}

func TestDiagnoserNeverFailsOnBadImage(t *testing.T) {
	d := NewDiagnoser(slog.Default())

	report, err := d.Diagnose(context.Background(), bytes.NewReader([]byte("garbage")), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, domain.SourceHeuristic, report.Source)
	assert.Equal(t, Profile{}.Message(), report.Text)
	assert.Contains(t, report.Text, "Overall risk: High")
}

func TestAnalyzeDecodesBMPAndTIFF(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, leafGreen)
		}
	}

	var bmpBuf, tiffBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, img))
	require.NoError(t, tiff.Encode(&tiffBuf, img, nil))

	for name, data := range map[string][]byte{"bmp": bmpBuf.Bytes(), "tiff": tiffBuf.Bytes()} {
		t.Run(name, func(t *testing.T) {
			p, err := Analyze(data)
			require.NoError(t, err)
			assert.InDelta(t, 100, p.Green, 0.01)
		})
	}
}
