package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"drug-info/providers"

	"go.uber.org/zap"
)

// ErrBatchRunning wird geliefert, wenn bereits ein Batch läuft.
var ErrBatchRunning = errors.New("a batch is already running")

// SourceFactory baut die konfigurierte Standardquelle für einen Lauf.
type SourceFactory func() (providers.Source, error)

// BatchRunner stellt sicher, dass Cron, CLI und API nie zwei Batches gleichzeitig starten.
type BatchRunner struct {
	Pipeline      *Pipeline
	DefaultSource SourceFactory
	Logger        *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

func NewBatchRunner(pipeline *Pipeline, defaultSource SourceFactory, logger *zap.Logger) *BatchRunner {
	return &BatchRunner{Pipeline: pipeline, DefaultSource: defaultSource, Logger: logger}
}

// Running meldet, ob gerade ein Batch läuft.
func (r *BatchRunner) Running() bool {
	return r.running.Load()
}

func (r *BatchRunner) resolveSource(source providers.Source) (providers.Source, error) {
	if source != nil {
		return source, nil
	}
	if r.DefaultSource == nil {
		return nil, errors.New("no default source configured")
	}
	src, err := r.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("build source: %w", err)
	}
	return src, nil
}

// RunOnce führt einen Batch synchron aus. Ohne source wird die Standardquelle verwendet.
func (r *BatchRunner) RunOnce(ctx context.Context, source providers.Source) (*Report, error) {
	src, err := r.resolveSource(source)
	if err != nil {
		return nil, err
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBatchRunning
	}
	defer r.running.Store(false)
	return r.Pipeline.Run(ctx, src)
}

// Start führt einen Batch im Hintergrund aus und gibt sofort dessen RunID zurück.
// Der Lauf hängt nicht am Kontext des Aufrufers (z.B. einem HTTP-Request).
func (r *BatchRunner) Start(ctx context.Context, source providers.Source) (string, error) {
	src, err := r.resolveSource(source)
	if err != nil {
		return "", err
	}
	if !r.running.CompareAndSwap(false, true) {
		return "", ErrBatchRunning
	}

	runID := r.Pipeline.NewRunID()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)
		if _, err := r.Pipeline.RunAs(context.WithoutCancel(ctx), runID, src); err != nil {
			r.Logger.Error("Hintergrund-Batch abgebrochen", zap.String("run_id", runID), zap.Error(err))
		}
	}()
	return runID, nil
}

// Wait blockiert, bis alle mit Start begonnenen Batches beendet sind.
func (r *BatchRunner) Wait() {
	r.wg.Wait()
}
