package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/farmguide/internal/config"
	"github.com/vbonduro/farmguide/internal/db"
	"github.com/vbonduro/farmguide/internal/llm"
	claudechat "github.com/vbonduro/farmguide/internal/llm/claude"
	"github.com/vbonduro/farmguide/internal/llm/groq"
	"github.com/vbonduro/farmguide/internal/photostore/local"
	"github.com/vbonduro/farmguide/internal/prompts"
	"github.com/vbonduro/farmguide/internal/service"
	"github.com/vbonduro/farmguide/internal/speech"
	"github.com/vbonduro/farmguide/internal/store"
	"github.com/vbonduro/farmguide/internal/vision"
	claudevision "github.com/vbonduro/farmguide/internal/vision/claude"
	geminivision "github.com/vbonduro/farmguide/internal/vision/gemini"
	"github.com/vbonduro/farmguide/internal/vision/heuristic"
	ollamavision "github.com/vbonduro/farmguide/internal/vision/ollama"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	database *sql.DB
	messages *store.MessageStore

	chat        *service.ChatService
	inventory   *service.InventoryService
	diagnosis   *service.DiagnosisService
	diagnoser   vision.Diagnoser
	transcriber speech.Transcriber

	closers []func()
}

// newApp opens the database and wires stores, backends and services.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.database = database
	a.closers = append(a.closers, func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	})

	src, err := newPromptSource(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	photos, err := local.New(cfg.PhotoPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize photo store: %w", err)
	}

	assistant := llm.NewAssistant(newChatBackend(cfg, logger), src, logger)
	visionPrompt := func() string { return src.Current().Vision }
	a.diagnoser = vision.NewChain(newVisionBackend(ctx, cfg, visionPrompt, logger), heuristic.NewDiagnoser(logger), logger)

	a.messages = store.NewMessageStore(database)
	a.chat = service.NewChatService(a.messages, assistant, logger)
	a.inventory = service.NewInventoryService(store.NewInventoryStore(database), assistant, logger)
	a.diagnosis = service.NewDiagnosisService(store.NewDiagnosisStore(database), a.diagnoser, photos, logger)

	if cfg.GroqAPIKey != "" {
		a.transcriber = speech.NewWhisper(cfg.GroqAPIKey, cfg.WhisperModel, cfg.GroqBaseURL, logger)
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newPromptSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (prompts.Source, error) {
	if cfg.PromptsFile == "" {
		return prompts.Fixed(prompts.Default()), nil
	}
	w, err := prompts.NewWatcher(ctx, cfg.PromptsFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	logger.Info("watching prompt catalog", "path", cfg.PromptsFile)
	return w, nil
}

// newChatBackend returns nil when no key is configured, which makes the
// assistant answer from canned fallback replies.
func newChatBackend(cfg *config.Config, logger *slog.Logger) llm.Completer {
	switch cfg.ChatBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Warn("CLAUDE_API_KEY not set, chat will use fallback responses")
			return nil
		}
		logger.Info("using Claude chat backend", "model", cfg.ClaudeModel)
		return claudechat.New(cfg.ClaudeAPIKey, cfg.ClaudeModel, "")
	default:
		if cfg.GroqAPIKey == "" {
			logger.Warn("GROQ_API_KEY not set, chat will use fallback responses")
			return nil
		}
		c, err := groq.New(cfg.GroqAPIKey, cfg.GroqModel, groq.WithBaseURL(cfg.GroqBaseURL))
		if err != nil {
			logger.Error("failed to create Groq client, chat will use fallback responses", "error", err)
			return nil
		}
		logger.Info("using Groq chat backend", "model", cfg.GroqModel)
		return c
	}
}

// newVisionBackend returns nil when the selected backend is unusable; the
// chain then answers from the colour heuristic alone.
func newVisionBackend(ctx context.Context, cfg *config.Config, prompt vision.PromptFunc, logger *slog.Logger) vision.Diagnoser {
	switch cfg.VisionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Warn("CLAUDE_API_KEY not set, diagnosis will use colour analysis only")
			return nil
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.New(cfg.ClaudeAPIKey, cfg.ClaudeModel, "", prompt)
	case "ollama":
		d, err := ollamavision.New(cfg.OllamaHost, cfg.OllamaModel, prompt)
		if err != nil {
			logger.Error("failed to create Ollama client", "error", err)
			return nil
		}
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return d
	case "heuristic":
		logger.Info("using colour analysis for diagnosis")
		return nil
	default:
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, diagnosis will use colour analysis only")
			return nil
		}
		d, err := geminivision.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, prompt)
		if err != nil {
			logger.Error("failed to create Gemini client", "error", err)
			return nil
		}
		logger.Info("using Gemini vision backend", "model", cfg.GeminiModel)
		return d
	}
}
