package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skillsync/internal/ai"
	"github.com/spigell/skillsync/internal/evaluation"
)

const (
	keyPrefix  = "skillsync:evaluation:"
	DefaultTTL = 24 * time.Hour
)

// Key identifies a resume for a given model. Surrounding whitespace is ignored.
func Key(model, resumeText string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(resumeText)))
	return keyPrefix + model + ":" + hex.EncodeToString(sum[:])
}

// Analyzer serves repeated resumes from a Store and delegates the rest.
// Store failures are logged and never fail an analysis. Errors and answers
// that would not normalize are not cached.
type Analyzer struct {
	next   ai.Analyzer
	store  Store
	model  string
	ttl    time.Duration
	logger *zap.Logger
}

var _ ai.Analyzer = (*Analyzer)(nil)

func NewAnalyzer(next ai.Analyzer, store Store, model string, ttl time.Duration, logger *zap.Logger) *Analyzer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{next: next, store: store, model: model, ttl: ttl, logger: logger}
}

func (a *Analyzer) Analyze(ctx context.Context, resumeText string) (string, error) {
	key := Key(a.model, resumeText)

	cached, ok, err := a.store.Get(ctx, key)
	switch {
	case err != nil:
		a.logger.Warn("evaluation cache lookup failed", zap.Error(err))
	case ok && strings.TrimSpace(cached) != "":
		a.logger.Debug("evaluation cache hit", zap.String("key", key))
		return cached, nil
	}

	raw, err := a.next.Analyze(ctx, resumeText)
	if err != nil {
		return "", err
	}

	if !evaluation.Valid(raw) {
		a.logger.Debug("evaluation not cached, response is malformed", zap.String("key", key))
		return raw, nil
	}

	if err := a.store.Set(ctx, key, raw, a.ttl); err != nil {
		a.logger.Warn("evaluation cache store failed", zap.Error(err))
	}

	return raw, nil
}

func (a *Analyzer) Provider() string {
	if d, ok := a.next.(ai.Describer); ok {
		return d.Provider()
	}
	return ""
}

func (a *Analyzer) Model() string { return a.model }
