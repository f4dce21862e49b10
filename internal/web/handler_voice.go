package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/service"
)

const (
	voiceModeInventory = "inventory"
	voiceReadTimeout   = 5 * time.Minute
	voiceWriteTimeout  = 10 * time.Second

	// A frame holds one transcript of up to maxMessageLen runes plus its
	// JSON envelope.
	voiceFrameLimit = maxMessageLen*4 + 1024
)

// voiceFrame is one message from the browser's recognition loop.
type voiceFrame struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
	Mode       string `json:"mode"`
	Lang       string `json:"lang"`
	Context    string `json:"context"`
	Error      string `json:"error"`
	Continuous bool   `json:"continuous"`
}

// handleVoiceSocket upgrades to a websocket carrying recognition results.
// Final transcripts are answered with a spoken reply; interim ones are dropped.
func (s *Server) handleVoiceSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer closeWithLog(conn, "voice socket", s.logger)

	sid := sessionID(r)
	prefs := readPreferences(r)
	logger := s.logger.With("session_id", sid)
	logger.Debug("voice socket opened")

	conn.SetReadLimit(voiceFrameLimit)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(voiceReadTimeout))
		var frame voiceFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("voice socket read failed", "error", err)
			}
			logger.Debug("voice socket closed")
			return
		}

		reply, ok := s.answerFrame(r.Context(), sid, prefs, frame)
		if !ok {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(voiceWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			logger.Warn("voice socket write failed", "error", err)
			return
		}
	}
}

// answerFrame turns a frame into a reply. ok is false when nothing should be
// sent back.
func (s *Server) answerFrame(ctx context.Context, sid string, prefs preferences, f voiceFrame) (voiceReply, bool) {
	if f.Error != "" {
		return recognitionError(f.Error, f.Continuous), true
	}
	transcript := strings.TrimSpace(f.Transcript)
	if !f.Final || transcript == "" {
		return voiceReply{}, false
	}
	if len([]rune(transcript)) > maxMessageLen {
		return voiceReply{Transcript: transcript, Error: "transcript too long"}, true
	}

	if f.Mode == voiceModeInventory {
		reply, err := s.applyVoice(ctx, transcript)
		if err != nil {
			s.logger.Error("voice command failed", "error", err)
			return voiceReply{Transcript: transcript, Error: "failed to apply voice command"}, true
		}
		return reply, true
	}

	fc := prefs.Context
	if f.Context != "" {
		fc = domain.ParseFarmingContext(f.Context)
	}
	ex, err := s.chat.Send(ctx, sid, transcript, fc)
	if errors.Is(err, service.ErrEmptyMessage) {
		return voiceReply{}, false
	}
	if err != nil {
		s.logger.Error("voice chat failed", "session_id", sid, "error", err)
		return voiceReply{Transcript: transcript, Error: "failed to send message"}, true
	}
	reply := newReply(ex.Answer.Content)
	reply.Transcript = transcript
	return reply, true
}
