package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/service"
)

const maxMessageLen = 4000

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	messages, err := s.chat.History(r.Context(), sessionID(r))
	if err != nil {
		http.Error(w, "failed to load messages", http.StatusInternalServerError)
		s.logger.Error("list messages failed", "session_id", sessionID(r), "error", err)
		return
	}

	if err := s.renderPage(w,
		s.newPage(r, "chat", messages),
		"base.html", "pages/chat.html", "partials/message.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// exchangeView is what partials/exchange.html renders.
type exchangeView struct {
	Lang     domain.Language
	Messages []*domain.Message
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	content := r.FormValue("message")
	if len([]rune(content)) > maxMessageLen {
		http.Error(w, "message too long", http.StatusBadRequest)
		return
	}

	prefs := readPreferences(r)
	fc := prefs.Context
	if v := r.FormValue("context"); v != "" {
		fc = domain.ParseFarmingContext(v)
	}

	ex, err := s.chat.Send(r.Context(), sessionID(r), content, fc)
	if errors.Is(err, service.ErrEmptyMessage) {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		s.logger.Error("send message failed", "session_id", sessionID(r), "error", err)
		return
	}

	view := exchangeView{Lang: prefs.Lang, Messages: []*domain.Message{ex.Question, ex.Answer}}
	if err := s.renderPartial(w, "partials/exchange.html", view); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Clear(r.Context(), sessionID(r)); err != nil {
		http.Error(w, "failed to clear messages", http.StatusInternalServerError)
		s.logger.Error("clear messages failed", "session_id", sessionID(r), "error", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
