// Package llm answers farmer questions through a chat-completion backend and
// falls back to canned bilingual replies when the backend is missing or fails.
package llm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/prompts"
)

// Completer sends one system+user exchange to a chat model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Assistant struct {
	backend Completer
	prompts prompts.Source
	logger  *slog.Logger
}

// NewAssistant returns an Assistant. backend may be nil, in which case every
// query is answered from the fallback replies.
func NewAssistant(backend Completer, src prompts.Source, logger *slog.Logger) *Assistant {
	return &Assistant{backend: backend, prompts: src, logger: logger}
}

// Configured reports whether a real backend is wired in.
func (a *Assistant) Configured() bool { return a.backend != nil }

// Prompts exposes the prompt catalog currently in effect.
func (a *Assistant) Prompts() *prompts.Catalog { return a.prompts.Current() }

// Query never fails: any backend problem degrades to a fallback reply.
func (a *Assistant) Query(ctx context.Context, message string, fc domain.FarmingContext) string {
	catalog := a.prompts.Current()

	if a.backend == nil {
		a.logger.Warn("chat backend not configured, using fallback response", "context", fc)
		return Fallback(catalog, message, fc)
	}

	reply, err := a.backend.Complete(ctx, catalog.SystemPrompt(fc), message)
	if err != nil {
		a.logger.Error("chat completion failed", "context", fc, "error", err)
		return Fallback(catalog, message, fc)
	}
	if strings.TrimSpace(reply) == "" {
		a.logger.Warn("chat completion returned empty reply", "context", fc)
		return Fallback(catalog, message, fc)
	}
	return reply
}

// Fallback picks a canned reply by context and simple keyword matching.
func Fallback(c *prompts.Catalog, query string, fc domain.FarmingContext) string {
	lower := strings.ToLower(query)

	switch fc {
	case domain.ContextDiagnosis:
		switch {
		case containsAny(lower, "पत्त", "leaf", "पीला"):
			return c.Fallback.LeafYellowing
		case containsAny(lower, "कीट", "pest", "insect"):
			return c.Fallback.PestAttack
		default:
			return c.Fallback.DiagnosisDetails
		}
	case domain.ContextInventory:
		return c.Fallback.Inventory
	default:
		return c.Fallback.General
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
