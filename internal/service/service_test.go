package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/farmguide/internal/db"
	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/photostore"
	"github.com/vbonduro/farmguide/internal/prompts"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })
	return d
}

// stubAssistant answers every query with reply and records what it was asked.
type stubAssistant struct {
	reply   string
	queries []string
	ctxs    []domain.FarmingContext
}

func (s *stubAssistant) Query(_ context.Context, message string, fc domain.FarmingContext) string {
	s.queries = append(s.queries, message)
	s.ctxs = append(s.ctxs, fc)
	return s.reply
}

func (s *stubAssistant) Prompts() *prompts.Catalog { return prompts.Default() }

// stubPhotoStore is a minimal in-memory photostore.PhotoStore for tests.
type stubPhotoStore struct {
	saved   map[string][]byte
	saveErr error
}

func newStubPhotoStore() *stubPhotoStore {
	return &stubPhotoStore{saved: make(map[string][]byte)}
}

func (s *stubPhotoStore) Save(_ context.Context, prefix, _ string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, _ := io.ReadAll(r)
	key := prefix + "/photo.jpg"
	s.saved[key] = data
	return key, nil
}

func (s *stubPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := s.saved[key]
	if !ok {
		return nil, "", photostore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "image/jpeg", nil
}

func (s *stubPhotoStore) Delete(_ context.Context, key string) error {
	if _, ok := s.saved[key]; !ok {
		return photostore.ErrNotFound
	}
	delete(s.saved, key)
	return nil
}

var errBoom = errors.New("boom")

func quiet() *slog.Logger { return slog.New(slog.DiscardHandler) }
