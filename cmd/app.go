package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skillsync/internal/ai"
	"github.com/spigell/skillsync/internal/ai/gemini"
	"github.com/spigell/skillsync/internal/analysis"
	"github.com/spigell/skillsync/internal/audit"
	"github.com/spigell/skillsync/internal/cache"
	"github.com/spigell/skillsync/internal/catalog"
	"github.com/spigell/skillsync/internal/evaluation"
	"github.com/spigell/skillsync/internal/extract"
	"github.com/spigell/skillsync/internal/logger"
	"github.com/spigell/skillsync/internal/recommend"
	"github.com/spigell/skillsync/internal/secrets"
	"github.com/spigell/skillsync/internal/storage"
)

const connectTimeout = 10 * time.Second

// application holds the wired collaborators shared by the commands.
type application struct {
	catalog    *catalog.Store
	service    *analysis.Service
	status     storage.StatusStore
	dispatcher *audit.Dispatcher
	closers    []func()
	logger     *zap.Logger
}

func newApplication(ctx context.Context, config *Config, log *zap.Logger) (*application, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	a := &application{logger: log, status: storage.Disabled{}}

	a.catalog = catalog.Load(config.Catalog, log)
	if a.catalog.Len() == 0 {
		log.Warn("catalog is empty, no recommendations will be produced", zap.String("catalog", config.Catalog))
	}

	analyzer, err := newAnalyzer(ctx, config.AI, a.catalog.SkillVocabulary(), log)
	if err != nil {
		return nil, err
	}
	analyzer = a.withCache(ctx, config.Cache, analyzer, log)

	sinks, err := a.auditSinks(ctx, config.Audit, log)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	var timeout time.Duration
	if config.Audit != nil {
		timeout = config.Audit.Timeout
	}
	a.dispatcher = audit.NewDispatcher(log, timeout, sinks...)

	limit := recommend.DefaultLimit
	if config.Recommend != nil {
		limit = config.Recommend.Limit
	}

	var maxLogLength int
	if config.AI != nil && config.AI.Gemini != nil {
		maxLogLength = config.AI.Gemini.MaxLogLength
	}

	a.service, err = analysis.New(analysis.Deps{
		Analyzer:   analyzer,
		Catalog:    a.catalog,
		Extractor:  extract.New(config.Extract),
		Normalizer: evaluation.NewNormalizer(log, maxLogLength),
		Ranker:     recommend.New(limit),
		Audit:      a.dispatcher,
		Logger:     log,
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	log.Info("application ready",
		zap.Int("catalog_size", a.catalog.Len()),
		zap.Strings("audit_sinks", a.dispatcher.Sinks()),
	)

	return a, nil
}

func newAnalyzer(ctx context.Context, cfg *AIConfig, vocabulary []string, log *zap.Logger) (ai.Analyzer, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file)", err)
	}

	genLogger := logger.WithCommonFields(log, "gemini", cfg.Gemini.Model).With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, gemini.Options{
		MaxRetries: cfg.Gemini.MaxRetries,
		Timeout:    cfg.Gemini.Timeout,
		Logger:     genLogger,
	})
	if err != nil {
		return nil, err
	}

	return gemini.NewAnalyzer(generator, vocabulary, log, cfg.Gemini.MaxLogLength), nil
}

// withCache wraps analyzer with the Redis cache. The cache is an optimisation,
// so an unreachable server only produces a warning.
func (a *application) withCache(ctx context.Context, cfg *CacheConfig, analyzer ai.Analyzer, log *zap.Logger) ai.Analyzer {
	if cfg == nil || strings.TrimSpace(cfg.RedisURL) == "" {
		return analyzer
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	redis, err := cache.NewRedis(connectCtx, cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, evaluation cache disabled", zap.Error(err))
		return analyzer
	}
	a.closers = append(a.closers, func() { _ = redis.Close() })

	var model string
	if d, ok := analyzer.(ai.Describer); ok {
		model = d.Model()
	}

	return cache.NewAnalyzer(analyzer, redis, model, cfg.TTL, log)
}

func (a *application) auditSinks(ctx context.Context, cfg *AuditConfig, log *zap.Logger) ([]audit.Sink, error) {
	if cfg == nil {
		return nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var sinks []audit.Sink

	if url := strings.TrimSpace(cfg.DatabaseURL); url != "" {
		db, err := storage.Connect(connectCtx, url)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		if err := db.Migrate(connectCtx); err != nil {
			return nil, err
		}

		a.status = db
		sinks = append(sinks, audit.NewPostgresSink(db))
	}

	if cfg.AMQP != nil && strings.TrimSpace(cfg.AMQP.URL) != "" {
		sink, err := audit.NewAMQPSink(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = sink.Close() })
		sinks = append(sinks, sink)
	}

	if cfg.S3.Enabled() {
		archive, err := audit.NewS3Archive(connectCtx, cfg.S3)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, archive)
	}

	if len(sinks) == 0 {
		log.Debug("no audit sinks configured")
	}

	return sinks, nil
}

// Close waits for pending audit deliveries and releases connections.
func (a *application) Close(ctx context.Context) {
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil {
			a.logger.Warn("closing audit dispatcher", zap.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
