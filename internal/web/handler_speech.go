package web

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/vbonduro/farmguide/internal/speech"
)

const maxAudioSize = 25 << 20

// recordingTypes are container formats browsers use for MediaRecorder output
// that do not sniff as audio/*.
var recordingTypes = []string{"video/webm", "video/mp4", "application/ogg"}

// allowedAudioMIME reports whether data looks like recorded audio and
// returns a file extension for it.
func allowedAudioMIME(data []byte) (string, bool) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return mt.Extension(), true
		}
	}
	for _, t := range recordingTypes {
		if mt.Is(t) {
			return mt.Extension(), true
		}
	}
	return "", false
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		http.Error(w, "transcription not configured", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioSize)

	file, _, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "audio file required", http.StatusBadRequest)
		return
	}
	defer closeWithLog(file, "audio upload", s.logger)

	audio, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read audio", http.StatusBadRequest)
		return
	}
	ext, ok := allowedAudioMIME(audio)
	if !ok {
		http.Error(w, "unsupported audio format", http.StatusBadRequest)
		return
	}

	lang := readPreferences(r).Lang
	if v := r.FormValue("lang"); v != "" {
		lang = speech.LanguageFromLocale(v)
	}

	text, err := s.transcriber.Transcribe(r.Context(), bytes.NewReader(audio), "recording"+ext, lang)
	if err != nil {
		http.Error(w, "transcription failed", http.StatusBadGateway)
		s.logger.Error("transcription failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text, "lang": string(lang)})
}

func (s *Server) handleCleanSpeech(w http.ResponseWriter, r *http.Request) {
	text := r.FormValue("text")
	if strings.TrimSpace(text) == "" {
		http.Error(w, "text required", http.StatusBadRequest)
		return
	}
	if len([]rune(text)) > maxMessageLen {
		http.Error(w, "text too long", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, speech.Prepare(text))
}

// recognitionError maps a browser recognition error to the reply sent back
// over the voice channel.
func recognitionError(code string, continuous bool) voiceReply {
	reply := voiceReply{Error: speech.ErrorMessage(code)}
	if speech.ShouldRestart(code, continuous) {
		reply.Restart = true
		reply.RestartMS = speech.RestartDelay.Milliseconds()
	}
	return reply
}
