package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spigell/skillsync/internal/storage"
)

type analysisInserter interface {
	InsertAnalysis(ctx context.Context, a storage.Analysis) error
}

// PostgresSink stores the evaluation summary in the resume_analyses table.
type PostgresSink struct {
	db analysisInserter
}

func NewPostgresSink(db *storage.Postgres) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec.Evaluation)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}

	return s.db.InsertAnalysis(ctx, storage.Analysis{
		ID:                   rec.ID,
		Filename:             rec.Filename,
		Evaluation:           payload,
		RecommendationsCount: rec.RecommendationsCount,
		CreatedAt:            rec.Timestamp,
	})
}
