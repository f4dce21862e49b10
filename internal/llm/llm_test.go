package llm

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/prompts"
)

type stubCompleter struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
}

func (s *stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.lastSystem = system
	s.lastUser = user
	return s.reply, s.err
}

func TestFallback(t *testing.T) {
	c := prompts.Default()

	tests := []struct {
		name  string
		query string
		fc    domain.FarmingContext
		want  string
	}{
		{"english leaf", "My LEAF is turning pale", domain.ContextDiagnosis, c.Fallback.LeafYellowing},
		{"hindi yellow", "गेहूं पीला पड़ रहा है", domain.ContextDiagnosis, c.Fallback.LeafYellowing},
		{"hindi leaves", "पत्तियों पर धब्बे", domain.ContextDiagnosis, c.Fallback.LeafYellowing},
		{"pest", "insects on cotton", domain.ContextDiagnosis, c.Fallback.PestAttack},
		{"hindi pest", "धान में कीट लगे हैं", domain.ContextDiagnosis, c.Fallback.PestAttack},
		{"leaf wins over pest", "pest on leaf", domain.ContextDiagnosis, c.Fallback.LeafYellowing},
		{"diagnosis other", "my crop looks bad", domain.ContextDiagnosis, c.Fallback.DiagnosisDetails},
		{"inventory", "leaf", domain.ContextInventory, c.Fallback.Inventory},
		{"general", "hello", domain.ContextGeneral, c.Fallback.General},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fallback(c, tt.query, tt.fc))
		})
	}
}

func TestAssistantQuery_UsesBackendWithContextPrompt(t *testing.T) {
	backend := &stubCompleter{reply: "Use neem oil"}
	a := NewAssistant(backend, prompts.Fixed(prompts.Default()), slog.Default())

	got := a.Query(context.Background(), "aphids on mustard", domain.ContextGeneral)

	assert.Equal(t, "Use neem oil", got)
	assert.Equal(t, "aphids on mustard", backend.lastUser)
	assert.Contains(t, backend.lastSystem, "PM-KISAN")
	assert.True(t, a.Configured())
}

func TestAssistantQuery_NoBackend(t *testing.T) {
	a := NewAssistant(nil, prompts.Fixed(prompts.Default()), slog.Default())

	got := a.Query(context.Background(), "pest", domain.ContextDiagnosis)

	assert.Equal(t, prompts.Default().Fallback.PestAttack, got)
	assert.False(t, a.Configured())
}

func TestAssistantQuery_BackendError(t *testing.T) {
	a := NewAssistant(&stubCompleter{err: errors.New("502")}, prompts.Fixed(prompts.Default()), slog.Default())

	got := a.Query(context.Background(), "hello", domain.ContextGeneral)

	assert.Equal(t, prompts.Default().Fallback.General, got)
}

func TestAssistantQuery_EmptyReply(t *testing.T) {
	a := NewAssistant(&stubCompleter{reply: "  \n"}, prompts.Fixed(prompts.Default()), slog.Default())

	got := a.Query(context.Background(), "add urea", domain.ContextInventory)

	assert.Equal(t, prompts.Default().Fallback.Inventory, got)
}
