// Package heuristic is the offline crop-health estimate used when no vision
// API is available. It buckets pixel colours of a downscaled photo into
// green, yellow and brown and turns the ratios into a risk level.
package heuristic

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"math"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/vision"
)

const sampleWidth = 160

type Risk string

const (
	RiskLow    Risk = "Low"
	RiskMedium Risk = "Medium"
	RiskHigh   Risk = "High"
)

// Profile holds the share of sampled pixels, in percent, that fell into
// each colour bucket. Buckets may overlap.
type Profile struct {
	Green  float64
	Yellow float64
	Brown  float64
}

func (p Profile) Risk() Risk {
	switch {
	case p.Green > 60:
		return RiskLow
	case p.Green > 40:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func (p Profile) Hints() []string {
	var hints []string
	if p.Yellow > 8 {
		hints = append(hints, "Yellowing may indicate nitrogen deficiency or water stress.")
	}
	if p.Brown > 4 {
		hints = append(hints, "Brown/necrotic spots may indicate fungal/bacterial disease or pest damage.")
	}
	if len(hints) == 0 {
		hints = append(hints, "No obvious severe issues detected visually. Monitor regularly.")
	}
	return hints
}

// Message renders the bilingual bullet report for p.
func (p Profile) Message() string {
	overall := p.Risk()
	hints := strings.Join(p.Hints(), " ")

	return fmt.Sprintf(`Hindi:
• समग्र जोखिम: %[1]s
• संकेत: %[2]s
• सुझाव: सिंचाई/उर्वरक संतुलित रखें, प्रभावित पत्तियों का निरीक्षण करें, ज़रूरत पर नीम तेल छिड़काव करें।

English:
• Overall risk: %[1]s
• Hints: %[2]s
• Tips: Balance irrigation/fertilizer, inspect affected leaves, consider neem oil spray if pests suspected.`, overall, hints)
}

// Analyze decodes an image and measures its colour profile on a copy
// scaled to sampleWidth pixels wide.
func Analyze(data []byte) (Profile, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Profile{}, fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Profile{}, fmt.Errorf("empty image")
	}
	h := int(math.Round(float64(b.Dy()) / float64(b.Dx()) * sampleWidth))
	if h == 0 {
		h = sampleWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, sampleWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	return classify(dst), nil
}

func classify(img *image.RGBA) Profile {
	var green, yellow, brown, total int
	for i := 0; i+3 < len(img.Pix); i += 4 {
		r, g, b := int(img.Pix[i]), int(img.Pix[i+1]), int(img.Pix[i+2])
		if g > r+15 && g > b+10 {
			green++
		}
		if r > 140 && g > 140 && b < 100 {
			yellow++
		}
		if r > 80 && g < 60 && b < 60 {
			brown++
		}
		total++
	}
	if total == 0 {
		return Profile{}
	}
	pct := func(n int) float64 { return float64(n) / float64(total) * 100 }
	return Profile{Green: pct(green), Yellow: pct(yellow), Brown: pct(brown)}
}

// Diagnoser adapts the heuristic to vision.Diagnoser. It never fails on bad
// image data: an undecodable photo yields the zero-profile report.
type Diagnoser struct {
	logger *slog.Logger
}

func NewDiagnoser(logger *slog.Logger) *Diagnoser {
	return &Diagnoser{logger: logger}
}

func (d *Diagnoser) Diagnose(_ context.Context, r io.Reader, _ string) (*vision.Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	profile, err := Analyze(data)
	if err != nil {
		d.logger.Error("local analysis failed", "error", err)
		profile = Profile{}
	}
	d.logger.Debug("local analysis complete",
		"green_pct", profile.Green, "yellow_pct", profile.Yellow, "brown_pct", profile.Brown)

	return &vision.Report{Text: profile.Message(), Source: domain.SourceHeuristic}, nil
}
