package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skillsync/internal/logger"
	"github.com/spigell/skillsync/internal/storage"
)

const (
	resumeField       = "resume"
	multipartMemory   = 32 << 20
	analyzeFailed     = "Failed to analyze resume"
	statusFailed      = "Failed to process status check"
	multipartOverhead = 1 << 20
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

func (s *Server) handleInternships(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.catalog.All())
}

func (s *Server) handleAnalyzeResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusBadRequest, "File is too large")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "Expected a multipart form with a resume file")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(resumeField)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Missing resume file")
		return
	}
	defer file.Close()

	log := s.logger.With(logger.DocumentFields(header.Filename, "")...)

	if _, err := s.uploads.Detect(header.Filename); err != nil {
		status, detail := statusFor(err, analyzeFailed)
		log.Info("resume rejected", zap.Int("status", status), zap.Error(err))
		s.errorResponse(w, status, detail)
		return
	}

	if header.Size > s.maxUpload {
		s.errorResponse(w, http.StatusBadRequest, "File is too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	result, err := s.analyzer.AnalyzeDocument(r.Context(), header.Filename, data)
	if err != nil {
		status, detail := statusFor(err, analyzeFailed)
		if status >= http.StatusInternalServerError {
			log.Error("error analyzing resume", zap.Int("status", status), zap.Error(err))
		} else {
			log.Info("resume rejected", zap.Int("status", status), zap.Error(err))
		}
		s.errorResponse(w, status, detail)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

type createStatusRequest struct {
	ClientName string `json:"client_name" validate:"required,max=256"`
}

func (s *Server) handleCreateStatus(w http.ResponseWriter, r *http.Request) {
	var req createStatusRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	req.ClientName = strings.TrimSpace(req.ClientName)

	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid status check: %v", err))
		return
	}

	check, err := s.status.CreateStatusCheck(r.Context(), req.ClientName)
	if err != nil {
		s.storageError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, check)
}

func (s *Server) handleListStatus(w http.ResponseWriter, r *http.Request) {
	checks, err := s.status.ListStatusChecks(r.Context(), storage.MaxStatusChecks)
	if err != nil {
		s.storageError(w, err)
		return
	}
	if checks == nil {
		checks = []storage.StatusCheck{}
	}

	s.jsonResponse(w, http.StatusOK, checks)
}

func (s *Server) storageError(w http.ResponseWriter, err error) {
	status, detail := statusFor(err, statusFailed)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		s.logger.Error("status check storage failed", zap.Error(err))
	}
	s.errorResponse(w, status, detail)
}
