// Package analysis runs a resume through extraction, model evaluation,
// normalization and ranking.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skillsync/internal/ai"
	"github.com/spigell/skillsync/internal/audit"
	"github.com/spigell/skillsync/internal/catalog"
	"github.com/spigell/skillsync/internal/evaluation"
	"github.com/spigell/skillsync/internal/extract"
	"github.com/spigell/skillsync/internal/logger"
	"github.com/spigell/skillsync/internal/recommend"
)

// ErrInvalidInput reports a request the pipeline cannot start on.
var ErrInvalidInput = errors.New("invalid input")

// Result is the response of one analysis.
type Result struct {
	Analysis        evaluation.Evaluation      `json:"analysis"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

// Dispatcher receives an audit record for every completed analysis.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec audit.Record) error
}

// Deps are the collaborators of a Service. Analyzer and Catalog are required.
type Deps struct {
	Analyzer   ai.Analyzer
	Catalog    *catalog.Store
	Extractor  *extract.Extractor
	Normalizer *evaluation.Normalizer
	Ranker     *recommend.Ranker
	Audit      Dispatcher
	Logger     *zap.Logger
}

type Service struct {
	analyzer   ai.Analyzer
	catalog    *catalog.Store
	extractor  *extract.Extractor
	normalizer *evaluation.Normalizer
	ranker     *recommend.Ranker
	audit      Dispatcher
	logger     *zap.Logger
}

func New(deps Deps) (*Service, error) {
	if deps.Analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("catalog is required")
	}

	log := logger.OrNop(deps.Logger)
	if d, ok := deps.Analyzer.(ai.Describer); ok {
		log = logger.WithCommonFields(log, d.Provider(), d.Model())
	}

	s := &Service{
		analyzer:   deps.Analyzer,
		catalog:    deps.Catalog,
		extractor:  deps.Extractor,
		normalizer: deps.Normalizer,
		ranker:     deps.Ranker,
		audit:      deps.Audit,
		logger:     log,
	}
	if s.extractor == nil {
		s.extractor = extract.New(extract.Options{})
	}
	if s.normalizer == nil {
		s.normalizer = evaluation.NewNormalizer(log, 0)
	}
	if s.ranker == nil {
		s.ranker = recommend.New(recommend.DefaultLimit)
	}

	return s, nil
}

// Catalog returns the opportunities recommendations are drawn from.
func (s *Service) Catalog() *catalog.Store {
	return s.catalog
}

// Extractor returns the document extractor, so callers can validate uploads early.
func (s *Service) Extractor() *extract.Extractor {
	return s.extractor
}

// AnalyzeDocument extracts the text of an uploaded file and analyzes it.
// The original document is attached to the audit record.
func (s *Service) AnalyzeDocument(ctx context.Context, filename string, data []byte) (Result, error) {
	doc, err := s.extractor.Extract(filename, data)
	if err != nil {
		return Result{}, err
	}

	result, err := s.run(ctx, doc.Text)
	if err != nil {
		return Result{}, err
	}

	rec := audit.NewRecord(filename, result.Analysis, len(result.Recommendations))
	rec.Document = data
	rec.ContentType = doc.Kind.ContentType()
	s.record(ctx, rec)

	return result, nil
}

// AnalyzeText analyzes resume text that was already extracted.
func (s *Service) AnalyzeText(ctx context.Context, source, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: resume text is empty", ErrInvalidInput)
	}

	result, err := s.run(ctx, text)
	if err != nil {
		return Result{}, err
	}

	s.record(ctx, audit.NewRecord(source, result.Analysis, len(result.Recommendations)))
	return result, nil
}

func (s *Service) run(ctx context.Context, text string) (Result, error) {
	started := time.Now()

	raw, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return Result{}, classify(err)
	}
	if strings.TrimSpace(raw) == "" {
		return Result{}, ai.ErrEmptyResponse
	}

	ev := s.normalizer.Normalize(raw)
	recs, stats := s.ranker.Rank(ev, text, s.catalog.All())

	s.logger.Info("resume analyzed",
		zap.Float64("overall_rating", ev.OverallRating),
		zap.Int("catalog", stats.Catalog),
		zap.Int("in_range", stats.InRange),
		zap.Int("included", stats.Included),
		zap.Int("returned", stats.Returned),
		zap.Duration("elapsed", time.Since(started)),
	)

	return Result{Analysis: ev, Recommendations: recs}, nil
}

func (s *Service) record(ctx context.Context, rec audit.Record) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Dispatch(ctx, rec); err != nil {
		s.logger.Warn("audit record dropped",
			append(logger.DocumentFields(rec.Filename, rec.ID.String()), zap.Error(err))...,
		)
	}
}

// classify makes sure every analyzer failure matches one of the ai sentinels.
func classify(err error) error {
	if errors.Is(err, ai.ErrUnavailable) || errors.Is(err, ai.ErrEmptyResponse) {
		return err
	}
	return fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
}
