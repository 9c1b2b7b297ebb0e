package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/skillsync/internal/ai"
	"github.com/spigell/skillsync/internal/analysis"
	"github.com/spigell/skillsync/internal/catalog"
	"github.com/spigell/skillsync/internal/evaluation"
	"github.com/spigell/skillsync/internal/extract"
	"github.com/spigell/skillsync/internal/recommend"
	"github.com/spigell/skillsync/internal/storage"
)

type stubAnalyzer struct {
	result   analysis.Result
	err      error
	filename string
	data     []byte
}

func (s *stubAnalyzer) AnalyzeDocument(_ context.Context, filename string, data []byte) (analysis.Result, error) {
	s.filename = filename
	s.data = data
	return s.result, s.err
}

type stubStatusStore struct {
	checks []storage.StatusCheck
	err    error
}

func (s *stubStatusStore) CreateStatusCheck(_ context.Context, clientName string) (storage.StatusCheck, error) {
	if s.err != nil {
		return storage.StatusCheck{}, s.err
	}
	check := storage.StatusCheck{ID: uuid.New(), ClientName: clientName, Timestamp: time.Now().UTC()}
	s.checks = append(s.checks, check)
	return check, nil
}

func (s *stubStatusStore) ListStatusChecks(_ context.Context, limit int) ([]storage.StatusCheck, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.checks) > limit {
		return s.checks[:limit], nil
	}
	return s.checks, nil
}

func testResult() analysis.Result {
	recs := recommend.Recommend(evaluation.Fallback("raw"), "python", []catalog.Opportunity{
		{ID: 1, Title: "Backend", SkillsRequired: catalog.Skills("Python"), ScoreRange: catalog.ScoreRange{Low: 5, High: 8}},
	})
	return analysis.Result{Analysis: evaluation.Fallback("raw"), Recommendations: recs}
}

func newTestServer(analyzer DocumentAnalyzer, status storage.StatusStore) http.Handler {
	return New(Config{MaxUploadBytes: 1024}, Deps{
		Analyzer: analyzer,
		Catalog:  catalog.Load("", nil),
		Status:   status,
		Version:  "test",
	}).Handler()
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-resume", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["detail"]
}

func TestRootAndHealth(t *testing.T) {
	t.Parallel()

	h := newTestServer(&stubAnalyzer{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "SkillSync API - AI-Based Internship Recommendation Engine") {
		t.Fatalf("unexpected root response: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"version":"test"`) {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer(&stubAnalyzer{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/analyze-resume", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") != "*" {
		t.Fatal("expected allow-methods header")
	}
}

func TestInternships(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer(&stubAnalyzer{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/internships", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 12 {
		t.Fatalf("expected the builtin catalog, got %d entries", len(items))
	}
	if _, ok := items[0]["skills_required"]; !ok {
		t.Fatalf("expected snake_case fields, got %v", items[0])
	}
}

func TestAnalyzeResumeSuccess(t *testing.T) {
	t.Parallel()

	analyzer := &stubAnalyzer{result: testResult()}
	rec := httptest.NewRecorder()
	newTestServer(analyzer, nil).ServeHTTP(rec, uploadRequest(t, "resume", "Resume.PDF", []byte("%PDF-1.4 data")))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if analyzer.filename != "Resume.PDF" || string(analyzer.data) != "%PDF-1.4 data" {
		t.Fatalf("unexpected upload forwarded: %q %q", analyzer.filename, analyzer.data)
	}

	var body struct {
		Analysis        map[string]any   `json:"analysis"`
		Recommendations []map[string]any `json:"recommendations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Analysis["overall_rating"] != 6.0 {
		t.Fatalf("unexpected analysis: %v", body.Analysis)
	}
	if len(body.Recommendations) != 1 || len(body.Recommendations) > recommend.DefaultLimit {
		t.Fatalf("unexpected recommendations: %v", body.Recommendations)
	}
	if body.Recommendations[0]["match_percentage"] != 100.0 {
		t.Fatalf("unexpected recommendation: %v", body.Recommendations[0])
	}
}

func TestAnalyzeResumeErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{name: "unsupported", err: &extract.UnsupportedError{Filename: "a.doc", Allowed: []extract.Kind{extract.KindPDF}}, wantStatus: http.StatusBadRequest, wantDetail: "Only PDF files are supported"},
		{name: "no text", err: extract.ErrNoText, wantStatus: http.StatusBadRequest, wantDetail: "No text found in document"},
		{name: "extraction", err: fmt.Errorf("%w from PDF: bad xref", extract.ErrExtraction), wantStatus: http.StatusBadRequest, wantDetail: "Failed to extract text from document"},
		{name: "unavailable", err: fmt.Errorf("%w: timeout", ai.ErrUnavailable), wantStatus: http.StatusServiceUnavailable, wantDetail: "AI analysis service unavailable"},
		{name: "empty", err: ai.ErrEmptyResponse, wantStatus: http.StatusServiceUnavailable, wantDetail: "No response from AI analysis"},
		{name: "unexpected", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantDetail: "Failed to analyze resume"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			newTestServer(&stubAnalyzer{err: tc.err}, nil).ServeHTTP(rec, uploadRequest(t, "resume", "resume.pdf", []byte("data")))

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if got := decodeDetail(t, rec); got != tc.wantDetail {
				t.Fatalf("expected detail %q, got %q", tc.wantDetail, got)
			}
		})
	}
}

func TestAnalyzeResumeRejectsBadUploads(t *testing.T) {
	t.Parallel()

	t.Run("missing field", func(t *testing.T) {
		t.Parallel()

		analyzer := &stubAnalyzer{}
		rec := httptest.NewRecorder()
		newTestServer(analyzer, nil).ServeHTTP(rec, uploadRequest(t, "file", "resume.pdf", []byte("data")))

		if rec.Code != http.StatusBadRequest || decodeDetail(t, rec) != "Missing resume file" {
			t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
		}
		if analyzer.filename != "" {
			t.Fatal("analyzer must not be called")
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()

		analyzer := &stubAnalyzer{}
		rec := httptest.NewRecorder()
		newTestServer(analyzer, nil).ServeHTTP(rec, uploadRequest(t, "resume", "resume.docx", []byte("data")))

		if rec.Code != http.StatusBadRequest || decodeDetail(t, rec) != "Only PDF files are supported" {
			t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
		}
		if analyzer.filename != "" {
			t.Fatal("analyzer must not be called")
		}
	})

	t.Run("extension enabled by extractor", func(t *testing.T) {
		t.Parallel()

		analyzer := &stubAnalyzer{result: testResult()}
		h := New(Config{MaxUploadBytes: 1024}, Deps{
			Analyzer: analyzer,
			Uploads:  extract.New(extract.Options{AllowDOCX: true}),
			Catalog:  catalog.Load("", nil),
		}).Handler()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, uploadRequest(t, "resume", "resume.docx", []byte("data")))

		if rec.Code != http.StatusOK || analyzer.filename != "resume.docx" {
			t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/analyze-resume", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		newTestServer(&stubAnalyzer{}, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		newTestServer(&stubAnalyzer{}, nil).ServeHTTP(rec, uploadRequest(t, "resume", "resume.pdf", bytes.Repeat([]byte("a"), 4096)))

		if rec.Code != http.StatusBadRequest || decodeDetail(t, rec) != "File is too large" {
			t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
		}
	})
}

func TestStatusChecks(t *testing.T) {
	t.Parallel()

	store := &stubStatusStore{}
	h := newTestServer(&stubAnalyzer{}, store)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", strings.NewReader(`{"client_name": " probe "}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var created storage.StatusCheck
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ClientName != "probe" || created.ID == uuid.Nil {
		t.Fatalf("unexpected status check: %+v", created)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var listed []storage.StatusCheck
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", listed)
	}
}

func TestStatusCheckValidation(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"missing name": `{}`,
		"blank name":   `{"client_name": "   "}`,
		"invalid json": `{"client_name":`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := &stubStatusStore{}
			rec := httptest.NewRecorder()
			newTestServer(&stubAnalyzer{}, store).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", strings.NewReader(body)))

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rec.Code)
			}
			if len(store.checks) != 0 {
				t.Fatal("nothing must be stored")
			}
		})
	}
}

func TestStatusChecksWithoutDatabase(t *testing.T) {
	t.Parallel()

	h := newTestServer(&stubAnalyzer{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", strings.NewReader(`{"client_name":"probe"}`)))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}

func TestStatusStorageFailure(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer(&stubAnalyzer{}, &stubStatusStore{err: errors.New("db down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusInternalServerError || decodeDetail(t, rec) != "Failed to process status check" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer(&stubAnalyzer{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
