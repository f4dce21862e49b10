package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/photostore"
	"github.com/vbonduro/farmguide/internal/vision"
)

// diagnosisRepository is the subset of store.DiagnosisStore that DiagnosisService requires.
type diagnosisRepository interface {
	Create(ctx context.Context, storageKey, mimeType string, source domain.DiagnosisSource, report string) (*domain.Diagnosis, error)
	GetByID(ctx context.Context, id int64) (*domain.Diagnosis, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Diagnosis, error)
	Delete(ctx context.Context, id int64) error
}

type DiagnosisService struct {
	diagnoses diagnosisRepository
	diagnoser vision.Diagnoser
	photos    photostore.PhotoStore
	logger    *slog.Logger
}

func NewDiagnosisService(
	diagnoses diagnosisRepository,
	diagnoser vision.Diagnoser,
	photos photostore.PhotoStore,
	logger *slog.Logger,
) *DiagnosisService {
	return &DiagnosisService{
		diagnoses: diagnoses,
		diagnoser: diagnoser,
		photos:    photos,
		logger:    logger,
	}
}

// Diagnose analyzes the photo, saves it and records the report.
func (s *DiagnosisService) Diagnose(ctx context.Context, imageData []byte, mimeType string) (*domain.Diagnosis, error) {
	s.logger.Info("diagnosis started", "mime_type", mimeType, "size", humanize.Bytes(uint64(len(imageData))))

	report, err := s.diagnoser.Diagnose(ctx, bytes.NewReader(imageData), mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to diagnose image: %w", err)
	}
	s.logger.Info("diagnosis complete", "source", report.Source)

	storageKey, err := s.photos.Save(ctx, "diagnosis", mimeType, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "storage_key", storageKey)

	d, err := s.diagnoses.Create(ctx, storageKey, mimeType, report.Source, report.Text)
	if err != nil {
		if delErr := s.photos.Delete(ctx, storageKey); delErr != nil {
			s.logger.Error("failed to roll back photo file", "storage_key", storageKey, "error", delErr)
		}
		return nil, fmt.Errorf("failed to record diagnosis: %w", err)
	}
	return d, nil
}

func (s *DiagnosisService) Get(ctx context.Context, id int64) (*domain.Diagnosis, error) {
	return s.diagnoses.GetByID(ctx, id)
}

func (s *DiagnosisService) ListRecent(ctx context.Context, limit int) ([]*domain.Diagnosis, error) {
	return s.diagnoses.ListRecent(ctx, limit)
}

// Photo opens the stored photo of a diagnosis. A missing diagnosis returns
// photostore.ErrNotFound.
func (s *DiagnosisService) Photo(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	d, err := s.diagnoses.GetByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get diagnosis: %w", err)
	}
	if d == nil {
		return nil, "", photostore.ErrNotFound
	}
	rc, _, err := s.photos.Get(ctx, d.StorageKey)
	if err != nil {
		return nil, "", err
	}
	return rc, d.MimeType, nil
}

// Delete removes the record first; a failure to remove the file is logged.
func (s *DiagnosisService) Delete(ctx context.Context, id int64) error {
	d, err := s.diagnoses.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get diagnosis: %w", err)
	}
	if d == nil {
		return photostore.ErrNotFound
	}
	if err := s.diagnoses.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete diagnosis: %w", err)
	}
	if err := s.photos.Delete(ctx, d.StorageKey); err != nil {
		s.logger.Error("failed to delete photo file", "storage_key", d.StorageKey, "error", err)
	}
	return nil
}
