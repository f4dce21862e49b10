// Package speech holds the server side of the voice features. Recognition
// and synthesis run in the browser; this package picks locales, prepares
// text for synthesis and maps recognition errors to user messages.
package speech

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"

	"github.com/vbonduro/farmguide/internal/domain"
)

// RestartDelay is how long the browser waits before restarting continuous
// recognition after a no-speech error.
const RestartDelay = time.Second

var (
	hindiIndia = language.MustParse("hi-IN")
	englishUS  = language.MustParse("en-US")

	matcher = language.NewMatcher([]language.Tag{hindiIndia, englishUS})
)

// Locale returns the BCP-47 tag used for recognition and synthesis in lang.
func Locale(lang domain.Language) language.Tag {
	if lang == domain.English {
		return englishUS
	}
	return hindiIndia
}

// LanguageFromLocale maps a browser locale such as "en-GB" or "hi" back to
// a supported Language. Unsupported locales resolve to Hindi.
func LanguageFromLocale(locale string) domain.Language {
	tag, err := language.Parse(locale)
	if err != nil {
		return domain.Hindi
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No || idx == 0 {
		return domain.Hindi
	}
	return domain.English
}

// DetectLanguage reports Hindi when text contains any Devanagari letter.
func DetectLanguage(text string) domain.Language {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return domain.Hindi
		}
	}
	return domain.English
}

var (
	boldRe   = regexp.MustCompile(`\*\*`)
	italicRe = regexp.MustCompile(`\*`)
	linkRe   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headerRe = regexp.MustCompile(`#{1,6}\s`)
	codeRe   = regexp.MustCompile("`([^`]+)`")
)

// CleanForSpeech strips markdown so a synthesiser does not read markup aloud.
func CleanForSpeech(text string) string {
	text = boldRe.ReplaceAllString(text, "")
	text = italicRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = headerRe.ReplaceAllString(text, "")
	text = codeRe.ReplaceAllString(text, "$1")
	return text
}

var recognitionErrors = map[string]string{
	"no-speech":     "No speech detected. Please try again.",
	"audio-capture": "Microphone not available. Please check permissions.",
	"not-allowed":   "Microphone permission denied. Please allow access.",
	"network":       "Network error. Please check your connection.",
	"aborted":       "Speech recognition aborted.",
}

// ErrorMessage returns the user-facing text for a recognition error code.
func ErrorMessage(code string) string {
	if msg, ok := recognitionErrors[code]; ok {
		return msg
	}
	return fmt.Sprintf("Speech recognition error: %s", code)
}

// ShouldRestart reports whether recognition restarts itself after code.
func ShouldRestart(code string, continuous bool) bool {
	return code == "no-speech" && continuous
}

// Utterance is a reply prepared for browser synthesis.
type Utterance struct {
	Text   string `json:"speech"`
	Locale string `json:"locale"`
}

// Prepare cleans reply for synthesis and picks its locale from its script.
func Prepare(reply string) Utterance {
	return Utterance{
		Text:   strings.TrimSpace(CleanForSpeech(reply)),
		Locale: Locale(DetectLanguage(reply)).String(),
	}
}
