package web

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/inventory"
	"github.com/vbonduro/farmguide/internal/service"
	"github.com/vbonduro/farmguide/internal/speech"
)

// Services bundles what the HTTP layer calls into. Transcriber may be nil
// when no Groq key is configured.
type Services struct {
	Chat        *service.ChatService
	Inventory   *service.InventoryService
	Diagnosis   *service.DiagnosisService
	Transcriber speech.Transcriber
}

type Server struct {
	chat        *service.ChatService
	inventory   *service.InventoryService
	diagnosis   *service.DiagnosisService
	transcriber speech.Transcriber
	templates   embed.FS
	mux         *http.ServeMux
	tmplFuncs   template.FuncMap
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

func NewServer(svc Services, tmpl embed.FS, logger *slog.Logger) *Server {
	s := &Server{
		chat:        svc.Chat,
		inventory:   svc.Inventory,
		diagnosis:   svc.Diagnosis,
		transcriber: svc.Transcriber,
		templates:   tmpl,
		mux:         http.NewServeMux(),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		tmplFuncs: template.FuncMap{
			"t":             translate,
			"ago":           humanize.Time,
			"qty":           inventory.FormatQuantity,
			"categoryLabel": categoryLabel,
			"categoryIcon":  categoryIcon,
			"speech":        speech.Prepare,
			"row": func(lang domain.Language, item *domain.InventoryItem) itemView {
				return itemView{Lang: lang, Item: item}
			},
			"diag": func(lang domain.Language, d *domain.Diagnosis) diagnosisView {
				return diagnosisView{Lang: lang, Diagnosis: d}
			},
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
	})
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("POST /preferences", s.handlePreferences)

	s.mux.HandleFunc("GET /chat", s.handleChatPage)
	s.mux.HandleFunc("POST /chat/messages", s.handleSendMessage)
	s.mux.HandleFunc("DELETE /chat/messages", s.handleClearMessages)

	s.mux.HandleFunc("GET /inventory", s.handleInventoryPage)
	s.mux.HandleFunc("POST /inventory/items", s.handleCreateItem)
	s.mux.HandleFunc("PATCH /inventory/items/{id}", s.handleUpdateItem)
	s.mux.HandleFunc("DELETE /inventory/items/{id}", s.handleDeleteItem)
	s.mux.HandleFunc("POST /inventory/voice", s.handleVoiceCommand)
	s.mux.HandleFunc("GET /inventory/search", s.handleSearch)

	s.mux.HandleFunc("GET /diagnose", s.handleDiagnosePage)
	s.mux.HandleFunc("POST /diagnose", s.handleDiagnose)
	s.mux.HandleFunc("GET /diagnoses/{id}/photo", s.handleGetPhoto)
	s.mux.HandleFunc("DELETE /diagnoses/{id}", s.handleDeleteDiagnosis)

	s.mux.HandleFunc("POST /speech/transcribe", s.handleTranscribe)
	s.mux.HandleFunc("POST /speech/clean", s.handleCleanSpeech)
	s.mux.HandleFunc("GET /ws/voice", s.handleVoiceSocket)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "microphone=(self), camera=(self)")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; "+
				"font-src https://fonts.gstatic.com; "+
				"img-src 'self' data: blob:; "+
				"media-src 'self' blob:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type sessionKey struct{}

const (
	sessionCookie = "farmguide_session"
	langCookie    = "farmguide_lang"
	contextCookie = "farmguide_context"
	cookieMaxAge  = 365 * 24 * 60 * 60
)

// withSession makes sure every browser carries a session id cookie and puts
// it in the request context.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(sessionCookie); err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   cookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}

// preferences are the language and farming context chosen in the header.
type preferences struct {
	Lang    domain.Language
	Context domain.FarmingContext
}

func readPreferences(r *http.Request) preferences {
	p := preferences{Lang: domain.Hindi, Context: domain.ContextDiagnosis}
	if c, err := r.Cookie(langCookie); err == nil {
		p.Lang = domain.ParseLanguage(c.Value)
	}
	if c, err := r.Cookie(contextCookie); err == nil {
		p.Context = domain.ParseFarmingContext(c.Value)
	}
	return p
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	p := readPreferences(r)
	if v := r.FormValue("lang"); v != "" {
		p.Lang = domain.ParseLanguage(v)
	}
	if v := r.FormValue("context"); v != "" {
		p.Context = domain.ParseFarmingContext(v)
	}
	for name, value := range map[string]string{langCookie: string(p.Lang), contextCookie: string(p.Context)} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			MaxAge:   cookieMaxAge,
			SameSite: http.SameSiteLaxMode,
		})
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	target := "/chat"
	if ref, err := url.Parse(r.Header.Get("Referer")); err == nil && ref.Host == r.Host && strings.HasPrefix(ref.Path, "/") {
		target = ref.Path
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(withSession(s.mux))).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// page is the data every full page template receives.
type page struct {
	preferences
	ActiveNav string
	Data      any
}

func (s *Server) newPage(r *http.Request, nav string, data any) page {
	return page{preferences: readPreferences(r), ActiveNav: nav, Data: data}
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses and executes a single named partial template.
// The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// ParseFS registers both the file-basename template and any {{define}} blocks.
	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			return t.Execute(w, data)
		}
	}
	return tmpl.ExecuteTemplate(w, basename, data)
}

// translate picks the Hindi or English string for lang.
func translate(lang domain.Language, hi, en string) string {
	if lang == domain.English {
		return en
	}
	return hi
}

var categoryLabels = map[domain.Category][2]string{
	domain.CategoryFertilizer: {"उर्वरक", "Fertilizer"},
	domain.CategorySeed:       {"बीज", "Seeds"},
	domain.CategoryCrop:       {"फसल", "Crops"},
	domain.CategoryPesticide:  {"कीटनाशक", "Pesticides"},
	domain.CategoryEquipment:  {"उपकरण", "Equipment"},
}

func categoryLabel(lang domain.Language, c domain.Category) string {
	l, ok := categoryLabels[c]
	if !ok {
		return string(c)
	}
	return translate(lang, l[0], l[1])
}

func categoryIcon(c domain.Category) string {
	switch c {
	case domain.CategoryFertilizer:
		return "🧪"
	case domain.CategorySeed:
		return "🌱"
	case domain.CategoryCrop:
		return "🌾"
	case domain.CategoryPesticide:
		return "🐛"
	case domain.CategoryEquipment:
		return "🚜"
	default:
		return "📦"
	}
}
