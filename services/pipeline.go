package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"drug-info/models"
	"drug-info/providers"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// RecordLoader schreibt die Zeilen eines Datensatzes. *Loader ist die Standardimplementierung.
type RecordLoader interface {
	Load(ctx context.Context, drugID string, rows NormalizedRowSet) (LoadResult, error)
}

// Pipeline orchestriert Quelle -> Validator -> Normalizer -> IdentityResolver -> Loader.
type Pipeline struct {
	Lookup        DrugLookup
	Loader        RecordLoader
	Logger        *zap.Logger
	Workers       int
	IdentityCheck IdentityCheck
	Sinks         []ReportSink
	NewRunID      func() string
}

// NewPipeline verdrahtet die Pipeline gegen eine gorm-Datenbank.
func NewPipeline(db *gorm.DB, logger *zap.Logger, storeTimeout time.Duration, workers int, sinks ...ReportSink) *Pipeline {
	return &Pipeline{
		Lookup:        &GormDrugLookup{DB: db, Timeout: storeTimeout},
		Loader:        NewLoader(db, logger, storeTimeout),
		Logger:        logger,
		Workers:       workers,
		IdentityCheck: DefaultIdentityCheck,
		Sinks:         append([]ReportSink{&LogSink{Logger: logger}}, sinks...),
		NewRunID:      uuid.NewString,
	}
}

// collector sammelt die Ergebnisse paralleler Worker.
type collector struct {
	mu     sync.Mutex
	report *Report
}

func (c *collector) ingested(res LoadResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Ingested++
	c.report.AlternateIdentifiersInserted += res.AlternateIdentifiersInserted
	c.report.GeneActionsInserted += res.GeneActionsInserted
	if res.DrugCreated {
		c.report.DrugsCreated++
	}
}

func (c *collector) reject(idx int, raw models.RawRecord, err *RecordError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err.Kind == KindLoadConstraint {
		c.report.RejectedByLoad++
	} else {
		c.report.RejectedByValidation++
	}
	reason := err.Reason
	if err.Err != nil {
		reason += ": " + err.Err.Error()
	}
	c.report.Rejections = append(c.report.Rejections, Rejection{
		Index:    idx,
		Origin:   raw.Origin,
		Identity: raw.Identity,
		Kind:     err.Kind,
		Stage:    err.Stage,
		Field:    err.Field,
		Reason:   reason,
	})
}

// Run verarbeitet einen kompletten Batch. Fehler einzelner Datensätze landen im Report;
// ein systemischer Fehler bricht ab und wird zusätzlich zurückgegeben.
func (p *Pipeline) Run(ctx context.Context, source providers.Source) (*Report, error) {
	return p.RunAs(ctx, p.NewRunID(), source)
}

// RunAs ist Run mit vorgegebener RunID.
func (p *Pipeline) RunAs(ctx context.Context, runID string, source providers.Source) (*Report, error) {
	report := &Report{
		RunID:     runID,
		Source:    source.Name(),
		State:     StateRunning,
		StartedAt: time.Now().UTC(),
	}
	log := p.Logger.With(zap.String("run_id", report.RunID), zap.String("source", report.Source))
	log.Info("Starte Batch.")

	records, err := source.Fetch(ctx)
	if err != nil {
		return p.finish(ctx, report, &SystemicError{Stage: StageSource, Err: err})
	}
	report.Total = len(records)
	log.Info("Quelle hat Datensätze geliefert", zap.Int("count", len(records)))

	resolver := NewIdentityResolver(p.Lookup, NewIdentityCache(), log)
	c := &collector{report: report}

	if p.Workers <= 1 {
		for i, raw := range records {
			if err := ctx.Err(); err != nil {
				return p.finish(ctx, report, &SystemicError{Stage: StageSource, Err: err})
			}
			if err := p.process(ctx, resolver, c, i, raw); err != nil {
				return p.finish(ctx, report, err)
			}
		}
		return p.finish(ctx, report, nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for i, raw := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Nach einem Abbruch wird kein neuer Datensatz mehr begonnen.
			if gctx.Err() != nil {
				return nil
			}
			return p.process(context.WithoutCancel(gctx), resolver, c, i, raw)
		})
	}
	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		err = &SystemicError{Stage: StageSource, Err: ctx.Err()}
	}
	return p.finish(ctx, report, err)
}

// process führt einen Datensatz durch alle Stufen. Rückgabe ist nur bei systemischen Fehlern != nil.
func (p *Pipeline) process(ctx context.Context, resolver *IdentityResolver, c *collector, idx int, raw models.RawRecord) error {
	rec, err := ValidateWith(raw, p.IdentityCheck)
	if err != nil {
		return p.handle(c, idx, raw, err)
	}

	rows := Normalize(rec)

	resolution, err := resolver.Resolve(ctx, rows.Drug)
	if err != nil {
		return p.handle(c, idx, raw, err)
	}

	res, err := p.Loader.Load(ctx, resolution.DrugID, rows)
	if err != nil {
		return p.handle(c, idx, raw, err)
	}
	c.ingested(res)
	return nil
}

func (p *Pipeline) handle(c *collector, idx int, raw models.RawRecord, err error) error {
	var recErr *RecordError
	if errors.As(err, &recErr) {
		c.reject(idx, raw, recErr)
		return nil
	}
	if IsSystemic(err) {
		return err
	}
	return &SystemicError{Stage: StageLoad, Err: err}
}

func (p *Pipeline) finish(ctx context.Context, report *Report, runErr error) (*Report, error) {
	report.FinishedAt = time.Now().UTC()
	report.sortRejections()
	if runErr != nil {
		report.State = StateAborted
		report.AbortReason = runErr.Error()
	} else {
		report.State = StateCompleted
	}

	batchRunsCounter.WithLabelValues(string(report.State)).Inc()
	recordsIngestedCounter.Add(float64(report.Ingested))
	for _, rej := range report.Rejections {
		recordsRejectedCounter.WithLabelValues(string(rej.Kind)).Inc()
	}
	rowsInsertedCounter.WithLabelValues("drugs").Add(float64(report.DrugsCreated))
	rowsInsertedCounter.WithLabelValues("alternate_identifiers").Add(float64(report.AlternateIdentifiersInserted))
	rowsInsertedCounter.WithLabelValues("gene_actions").Add(float64(report.GeneActionsInserted))

	emitCtx := context.WithoutCancel(ctx)
	for _, sink := range p.Sinks {
		if err := sink.Emit(emitCtx, report); err != nil {
			p.Logger.Warn("Report konnte nicht ausgegeben werden", zap.String("run_id", report.RunID), zap.Error(err))
		}
	}
	return report, runErr
}
