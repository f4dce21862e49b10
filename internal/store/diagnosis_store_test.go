package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/farmguide/internal/domain"
)

func TestDiagnosisStoreCreateAndGet(t *testing.T) {
	diags := NewDiagnosisStore(openTestDB(t))
	ctx := context.Background()

	d, err := diags.Create(ctx, "diagnosis_1.jpg", "image/jpeg", domain.SourceGemini, "• Leaf blight")
	require.NoError(t, err)
	assert.NotZero(t, d.ID)
	assert.Equal(t, domain.SourceGemini, d.Source)

	got, err := diags.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "• Leaf blight", got.Report)
	assert.Equal(t, "diagnosis_1.jpg", got.StorageKey)
}

func TestDiagnosisStoreGetByID_Missing(t *testing.T) {
	diags := NewDiagnosisStore(openTestDB(t))

	got, err := diags.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDiagnosisStoreListRecent(t *testing.T) {
	diags := NewDiagnosisStore(openTestDB(t))
	ctx := context.Background()

	for _, key := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		_, err := diags.Create(ctx, key, "image/jpeg", domain.SourceHeuristic, "report")
		require.NoError(t, err)
	}

	recent, err := diags.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c.jpg", recent[0].StorageKey)
	assert.Equal(t, "b.jpg", recent[1].StorageKey)
}

func TestDiagnosisStoreDelete(t *testing.T) {
	diags := NewDiagnosisStore(openTestDB(t))
	ctx := context.Background()

	d, err := diags.Create(ctx, "a.jpg", "image/jpeg", domain.SourceHeuristic, "report")
	require.NoError(t, err)

	require.NoError(t, diags.Delete(ctx, d.ID))
	assert.ErrorIs(t, diags.Delete(ctx, d.ID), ErrNotFound)
}
