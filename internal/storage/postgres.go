// Package storage provides PostgreSQL persistence for analyses and status checks.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDisabled is returned by Disabled when no database is configured.
var ErrDisabled = errors.New("storage is not configured")

// MaxStatusChecks bounds a status check listing.
const MaxStatusChecks = 1000

const schema = `
CREATE TABLE IF NOT EXISTS resume_analyses (
	id UUID PRIMARY KEY,
	filename TEXT NOT NULL,
	analysis JSONB NOT NULL,
	recommendations_count INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS status_checks (
	id UUID PRIMARY KEY,
	client_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Analysis is a stored summary of one resume analysis.
type Analysis struct {
	ID                   uuid.UUID
	Filename             string
	Evaluation           []byte // JSON document
	RecommendationsCount int
	CreatedAt            time.Time
}

// StatusCheck is a client heartbeat record.
type StatusCheck struct {
	ID         uuid.UUID `json:"id"`
	ClientName string    `json:"client_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatusStore is the status check subset used by the HTTP layer.
type StatusStore interface {
	CreateStatusCheck(ctx context.Context, clientName string) (StatusCheck, error)
	ListStatusChecks(ctx context.Context, limit int) ([]StatusCheck, error)
}

// Postgres wraps a PostgreSQL connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ StatusStore = (*Postgres)(nil)

// Connect creates and verifies a pgxpool connection pool.
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Migrate creates the tables when they do not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// InsertAnalysis stores an analysis summary. Inserting the same id twice is a no-op.
func (p *Postgres) InsertAnalysis(ctx context.Context, a Analysis) error {
	if a.ID == uuid.Nil {
		return errors.New("analysis id is required")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO resume_analyses (id, filename, analysis, recommendations_count, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		a.ID, a.Filename, a.Evaluation, a.RecommendationsCount, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// CreateStatusCheck stores a status check for clientName and returns it.
func (p *Postgres) CreateStatusCheck(ctx context.Context, clientName string) (StatusCheck, error) {
	check, err := newStatusCheck(clientName)
	if err != nil {
		return StatusCheck{}, err
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO status_checks (id, client_name, created_at) VALUES ($1, $2, $3)`,
		check.ID, check.ClientName, check.Timestamp,
	)
	if err != nil {
		return StatusCheck{}, fmt.Errorf("failed to create status check: %w", err)
	}
	return check, nil
}

// ListStatusChecks returns up to limit status checks, oldest first.
func (p *Postgres) ListStatusChecks(ctx context.Context, limit int) ([]StatusCheck, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, client_name, created_at FROM status_checks ORDER BY created_at LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list status checks: %w", err)
	}
	defer rows.Close()

	checks := make([]StatusCheck, 0)
	for rows.Next() {
		var c StatusCheck
		if err := rows.Scan(&c.ID, &c.ClientName, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan status check: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list status checks: %w", err)
	}

	return checks, nil
}

func newStatusCheck(clientName string) (StatusCheck, error) {
	clientName = strings.TrimSpace(clientName)
	if clientName == "" {
		return StatusCheck{}, errors.New("client name is required")
	}
	return StatusCheck{
		ID:         uuid.New(),
		ClientName: clientName,
		Timestamp:  time.Now().UTC(),
	}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxStatusChecks {
		return MaxStatusChecks
	}
	return limit
}

// Disabled stands in for a database that was not configured.
type Disabled struct{}

var _ StatusStore = Disabled{}

func (Disabled) CreateStatusCheck(context.Context, string) (StatusCheck, error) {
	return StatusCheck{}, ErrDisabled
}

func (Disabled) ListStatusChecks(context.Context, int) ([]StatusCheck, error) {
	return nil, ErrDisabled
}
