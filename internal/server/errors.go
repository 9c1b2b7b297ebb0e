package server

import (
	"errors"
	"net/http"

	"github.com/spigell/skillsync/internal/ai"
	"github.com/spigell/skillsync/internal/analysis"
	"github.com/spigell/skillsync/internal/extract"
	"github.com/spigell/skillsync/internal/storage"
)

// statusFor maps a pipeline error to an HTTP status and the detail shown to
// clients. fallback is the detail of unclassified errors.
func statusFor(err error, fallback string) (int, string) {
	var unsupported *extract.UnsupportedError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &unsupported):
		return http.StatusBadRequest, unsupported.Error()
	case errors.Is(err, extract.ErrUnsupported):
		return http.StatusBadRequest, "Unsupported file type"
	case errors.Is(err, extract.ErrNoText):
		return http.StatusBadRequest, "No text found in document"
	case errors.Is(err, extract.ErrExtraction):
		return http.StatusBadRequest, "Failed to extract text from document"
	case errors.As(err, &tooLarge):
		return http.StatusBadRequest, "File is too large"
	case errors.Is(err, analysis.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid input"
	case errors.Is(err, ai.ErrEmptyResponse):
		return http.StatusServiceUnavailable, "No response from AI analysis"
	case errors.Is(err, ai.ErrUnavailable):
		return http.StatusServiceUnavailable, "AI analysis service unavailable"
	case errors.Is(err, storage.ErrDisabled):
		return http.StatusNotImplemented, "Status checks require a configured database"
	default:
		return http.StatusInternalServerError, fallback
	}
}
