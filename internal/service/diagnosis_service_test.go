package service

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/photostore"
	"github.com/vbonduro/farmguide/internal/store"
	"github.com/vbonduro/farmguide/internal/vision"
)

type stubDiagnoser struct {
	report *vision.Report
	err    error
}

func (s *stubDiagnoser) Diagnose(_ context.Context, r io.Reader, _ string) (*vision.Report, error) {
	_, _ = io.ReadAll(r)
	return s.report, s.err
}

func newDiagnosisService(t *testing.T, d vision.Diagnoser) (*DiagnosisService, *stubPhotoStore) {
	t.Helper()
	photos := newStubPhotoStore()
	return NewDiagnosisService(store.NewDiagnosisStore(openTestDB(t)), d, photos, quiet()), photos
}

func TestDiagnosisServiceDiagnose(t *testing.T) {
	svc, photos := newDiagnosisService(t, &stubDiagnoser{
		report: &vision.Report{Text: "• Leaf blight", Source: domain.SourceGemini},
	})
	ctx := context.Background()

	d, err := svc.Diagnose(ctx, []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)

	assert.NotZero(t, d.ID)
	assert.Equal(t, "• Leaf blight", d.Report)
	assert.Equal(t, domain.SourceGemini, d.Source)
	assert.Equal(t, "image/jpeg", d.MimeType)
	assert.Equal(t, []byte("jpeg-bytes"), photos.saved[d.StorageKey])

	recent, err := svc.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, d.ID, recent[0].ID)
}

func TestDiagnosisServiceDiagnose_DiagnoserError(t *testing.T) {
	svc, photos := newDiagnosisService(t, &stubDiagnoser{err: errBoom})

	_, err := svc.Diagnose(context.Background(), []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, photos.saved)
}

func TestDiagnosisServiceDiagnose_SaveError(t *testing.T) {
	svc, photos := newDiagnosisService(t, &stubDiagnoser{
		report: &vision.Report{Text: "ok", Source: domain.SourceHeuristic},
	})
	photos.saveErr = errBoom

	_, err := svc.Diagnose(context.Background(), []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, errBoom)

	recent, err := svc.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestDiagnosisServicePhoto(t *testing.T) {
	svc, _ := newDiagnosisService(t, &stubDiagnoser{
		report: &vision.Report{Text: "ok", Source: domain.SourceHeuristic},
	})
	ctx := context.Background()

	d, err := svc.Diagnose(ctx, []byte("png-bytes"), "image/png")
	require.NoError(t, err)

	rc, mimeType, err := svc.Photo(ctx, d.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", mimeType)

	_, _, err = svc.Photo(ctx, 9999)
	assert.ErrorIs(t, err, photostore.ErrNotFound)
}

func TestDiagnosisServiceDelete(t *testing.T) {
	svc, photos := newDiagnosisService(t, &stubDiagnoser{
		report: &vision.Report{Text: "ok", Source: domain.SourceHeuristic},
	})
	ctx := context.Background()

	d, err := svc.Diagnose(ctx, []byte("x"), "image/jpeg")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, d.ID))
	assert.Empty(t, photos.saved)

	got, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, svc.Delete(ctx, d.ID), photostore.ErrNotFound)
}
