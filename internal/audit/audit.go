// Package audit records completed analyses in the configured sinks.
package audit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/skillsync/internal/evaluation"
	"github.com/spigell/skillsync/internal/logger"
)

// DefaultTimeout bounds the delivery of one record to all sinks.
const DefaultTimeout = 10 * time.Second

// Record describes one completed analysis.
type Record struct {
	ID                   uuid.UUID
	Filename             string
	Evaluation           evaluation.Evaluation
	RecommendationsCount int
	Timestamp            time.Time

	// Document is the uploaded file. Sinks that do not archive documents ignore it.
	Document    []byte
	ContentType string
}

// NewRecord stamps a record with a fresh id and the current time.
func NewRecord(filename string, ev evaluation.Evaluation, recommendations int) Record {
	return Record{
		ID:                   uuid.New(),
		Filename:             filename,
		Evaluation:           ev,
		RecommendationsCount: recommendations,
		Timestamp:            time.Now().UTC(),
	}
}

func (r Record) clone() Record {
	r.Document = slices.Clone(r.Document)
	r.Evaluation.Strengths = slices.Clone(r.Evaluation.Strengths)
	r.Evaluation.Weaknesses = slices.Clone(r.Evaluation.Weaknesses)
	r.Evaluation.Suggestions = slices.Clone(r.Evaluation.Suggestions)
	return r
}

// Sink persists or forwards records.
type Sink interface {
	Name() string
	Write(ctx context.Context, rec Record) error
}

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("audit dispatcher is closed")

// Dispatcher delivers records to every sink in the background. Delivery
// failures are logged and never reported to the caller.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(log *zap.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		sinks:   slices.DeleteFunc(slices.Clone(sinks), func(s Sink) bool { return s == nil }),
		timeout: timeout,
		logger:  logger.OrNop(log),
	}
}

// Sinks returns the names of the configured sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch copies rec and returns immediately. Values of ctx are kept, its
// cancellation is not.
func (d *Dispatcher) Dispatch(ctx context.Context, rec Record) error {
	if len(d.sinks) == 0 {
		return nil
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	rec = rec.clone()
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		d.deliver(ctx, rec)
	}()

	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, rec Record) {
	log := d.logger.With(logger.DocumentFields(rec.Filename, rec.ID.String())...)
	started := time.Now()

	var g errgroup.Group
	for _, sink := range d.sinks {
		g.Go(func() error {
			if err := sink.Write(ctx, rec); err != nil {
				log.Warn("audit sink failed", zap.String("sink", sink.Name()), zap.Error(err))
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("audit record was not fully delivered", zap.Error(err))
		return
	}

	log.Debug("audit record delivered",
		zap.Strings("sinks", d.Sinks()),
		zap.Duration("elapsed", time.Since(started)),
	)
}

// Close stops accepting records and waits for in-flight deliveries or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for audit deliveries: %w", ctx.Err())
	}
}
