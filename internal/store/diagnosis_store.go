package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/farmguide/internal/domain"
)

type DiagnosisStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewDiagnosisStore(db *sql.DB) *DiagnosisStore {
	return &DiagnosisStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *DiagnosisStore) Create(ctx context.Context, storageKey, mimeType string, source domain.DiagnosisSource, report string) (*domain.Diagnosis, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO diagnoses (storage_key, mime_type, source, report, created_at) VALUES (?, ?, ?, ?, ?)
	`, storageKey, mimeType, source, report, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create diagnosis: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *DiagnosisStore) GetByID(ctx context.Context, id int64) (*domain.Diagnosis, error) {
	d := &domain.Diagnosis{}
	var source string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, storage_key, mime_type, source, report, created_at FROM diagnoses WHERE id = ?
	`, id).Scan(&d.ID, &d.StorageKey, &d.MimeType, &source, &d.Report, &d.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnosis: %w", err)
	}

	d.Source = domain.DiagnosisSource(source)
	return d, nil
}

// ListRecent returns up to limit diagnoses, newest first.
func (s *DiagnosisStore) ListRecent(ctx context.Context, limit int) ([]*domain.Diagnosis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, storage_key, mime_type, source, report, created_at FROM diagnoses
		ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnoses: %w", err)
	}
	defer closeRows(rows)

	var out []*domain.Diagnosis
	for rows.Next() {
		d := &domain.Diagnosis{}
		var source string
		if err := rows.Scan(&d.ID, &d.StorageKey, &d.MimeType, &source, &d.Report, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan diagnosis: %w", err)
		}
		d.Source = domain.DiagnosisSource(source)
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diagnoses: %w", err)
	}

	return out, nil
}

func (s *DiagnosisStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM diagnoses WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete diagnosis: %w", err)
	}

	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to delete diagnosis %d: %w", id, err)
	}
	return nil
}
