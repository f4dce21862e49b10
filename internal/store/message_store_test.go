package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/farmguide/internal/domain"
)

func TestMessageStoreAddAndList(t *testing.T) {
	msgs := NewMessageStore(openTestDB(t))
	ctx := context.Background()

	first, err := msgs.Add(ctx, "s1", domain.RoleUser, "गेहूं में पीली पत्तियाँ", domain.ContextDiagnosis)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = msgs.Add(ctx, "s1", domain.RoleAssistant, "नाइट्रोजन की कमी हो सकती है", domain.ContextDiagnosis)
	require.NoError(t, err)
	_, err = msgs.Add(ctx, "s2", domain.RoleUser, "hello", domain.ContextGeneral)
	require.NoError(t, err)

	list, err := msgs.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.RoleUser, list[0].Role)
	assert.Equal(t, domain.RoleAssistant, list[1].Role)
	assert.Equal(t, domain.ContextDiagnosis, list[1].Context)
}

func TestMessageStoreIDsAreUnique(t *testing.T) {
	msgs := NewMessageStore(openTestDB(t))
	ctx := context.Background()

	a, err := msgs.Add(ctx, "s1", domain.RoleUser, "a", domain.ContextGeneral)
	require.NoError(t, err)
	b, err := msgs.Add(ctx, "s1", domain.RoleUser, "b", domain.ContextGeneral)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMessageStoreClear(t *testing.T) {
	msgs := NewMessageStore(openTestDB(t))
	ctx := context.Background()

	_, err := msgs.Add(ctx, "s1", domain.RoleUser, "hi", domain.ContextGeneral)
	require.NoError(t, err)
	_, err = msgs.Add(ctx, "s2", domain.RoleUser, "hi", domain.ContextGeneral)
	require.NoError(t, err)

	require.NoError(t, msgs.Clear(ctx, "s1"))

	list, err := msgs.ListBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, list)

	other, err := msgs.ListBySession(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestMessageStoreDeleteOlderThan(t *testing.T) {
	msgs := NewMessageStore(openTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	msgs.now = func() time.Time { return base }
	_, err := msgs.Add(ctx, "s1", domain.RoleUser, "old", domain.ContextGeneral)
	require.NoError(t, err)

	msgs.now = func() time.Time { return base.Add(48 * time.Hour) }
	_, err = msgs.Add(ctx, "s1", domain.RoleUser, "new", domain.ContextGeneral)
	require.NoError(t, err)

	n, err := msgs.DeleteOlderThan(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := msgs.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].Content)
}
