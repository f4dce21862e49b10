package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/photostore"
	"github.com/vbonduro/farmguide/internal/vision"
)

const (
	maxPhotoSize    = 20 << 20
	recentDiagnoses = 20
)

// allowedImageTypes is the set of MIME types the colour analysis can decode.
// Remote backends that reject BMP or TIFF fall back to it.
var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff"}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	mt := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if mt.Is(allowed) {
			return allowed, true
		}
	}
	return "", false
}

func (s *Server) handleDiagnosePage(w http.ResponseWriter, r *http.Request) {
	history, err := s.diagnosis.ListRecent(r.Context(), recentDiagnoses)
	if err != nil {
		http.Error(w, "failed to list diagnoses", http.StatusInternalServerError)
		s.logger.Error("list diagnoses failed", "error", err)
		return
	}

	if err := s.renderPage(w,
		s.newPage(r, "diagnose", history),
		"base.html", "pages/diagnose.html", "partials/diagnosis.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// diagnosisView is what partials/diagnosis.html renders.
type diagnosisView struct {
	Lang      domain.Language
	Diagnosis *domain.Diagnosis
}

// readImage takes the photo from a multipart "image" file or, failing that,
// from an "image_base64" form field holding raw base64 or a data URL.
func readImage(r *http.Request, logger *slog.Logger) ([]byte, error) {
	file, _, err := r.FormFile("image")
	if err == nil {
		defer closeWithLog(file, "upload file", logger)
		return io.ReadAll(file)
	}
	if b64 := r.FormValue("image_base64"); b64 != "" {
		data, _, err := vision.DecodeBase64Image(b64)
		return data, err
	}
	return nil, errors.New("image required")
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)

	imageData, err := readImage(r, s.logger)
	if err != nil {
		http.Error(w, "image required", http.StatusBadRequest)
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		http.Error(w, "unsupported image format", http.StatusBadRequest)
		return
	}

	d, err := s.diagnosis.Diagnose(r.Context(), imageData, mimeType)
	if err != nil {
		http.Error(w, "failed to diagnose photo", http.StatusInternalServerError)
		s.logger.Error("diagnose failed", "error", err)
		return
	}

	view := diagnosisView{Lang: readPreferences(r).Lang, Diagnosis: d}
	if err := s.renderPartial(w, "partials/diagnosis.html", view); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid diagnosis id", http.StatusBadRequest)
		return
	}

	reader, mimeType, err := s.diagnosis.Photo(r.Context(), id)
	if errors.Is(err, photostore.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to load photo", http.StatusInternalServerError)
		s.logger.Error("load photo failed", "diagnosis_id", id, "error", err)
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "diagnosis_id", id, "error", err)
	}
}

func (s *Server) handleDeleteDiagnosis(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid diagnosis id", http.StatusBadRequest)
		return
	}

	err = s.diagnosis.Delete(r.Context(), id)
	if errors.Is(err, photostore.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to delete diagnosis", http.StatusInternalServerError)
		s.logger.Error("delete diagnosis failed", "diagnosis_id", id, "error", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
