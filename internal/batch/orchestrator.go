package batch

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-engine/internal/metrics"
	"github.com/sells-group/lead-engine/internal/model"
)

// DefaultChunkSize bounds in-flight items when no chunk size is configured.
const DefaultChunkSize = 10

// ErrFatal matches every error wrapped with Fatal.
var ErrFatal = eris.New("batch: fatal")

// ErrInterrupted is the terminal error of a job whose context was cancelled.
var ErrInterrupted = eris.New("batch: interrupted")

type fatalError struct{ err error }

func (e *fatalError) Error() string        { return e.err.Error() }
func (e *fatalError) Unwrap() error        { return e.err }
func (e *fatalError) Is(target error) bool { return target == ErrFatal }

// Fatal marks err as job-fatal: the chunk in flight finishes, no further
// chunks start and the job fails. Nil stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// Item is one unit of work.
type Item struct {
	ID    string
	Label string
}

// Source lists the items of a job. A source error fails the job.
type Source interface {
	Items(ctx context.Context) ([]Item, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Item, error)

// Items calls f.
func (f SourceFunc) Items(ctx context.Context) ([]Item, error) { return f(ctx) }

// Processor handles one item. Returned errors count as item failures unless
// wrapped with Fatal.
type Processor interface {
	Process(ctx context.Context, item Item) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, item Item) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, item Item) error { return f(ctx, item) }

// StatusWriter records each item's outcome. A write failure is job-fatal.
type StatusWriter interface {
	SetItemStatus(ctx context.Context, item Item, status model.EnrichmentStatus, reason string) error
}

// Orchestrator drives jobs chunk by chunk.
type Orchestrator struct {
	chunkSize int
	status    StatusWriter
	metrics   *metrics.Recorder
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStatusWriter records per-item outcomes through w.
func WithStatusWriter(w StatusWriter) Option {
	return func(o *Orchestrator) { o.status = w }
}

// WithMetrics records job and item counters.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = r }
}

// NewOrchestrator creates an orchestrator running chunkSize items at a time.
func NewOrchestrator(chunkSize int, opts ...Option) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	o := &Orchestrator{chunkSize: chunkSize, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ChunkSize returns the concurrency bound.
func (o *Orchestrator) ChunkSize() int {
	return o.chunkSize
}

// Run executes job to completion and returns its terminal progress. The
// error is non-nil only when the job FAILED.
func (o *Orchestrator) Run(ctx context.Context, job *Job, src Source, proc Processor) (model.BatchJobProgress, error) {
	log := zap.L().With(zap.String("job_id", job.ID()))
	o.metrics.JobStarted()
	job.begin(o.now().UTC())

	items, err := src.Items(ctx)
	if err != nil {
		err = eris.Wrap(err, "batch: load items")
		log.Error("batch: source unreadable", zap.Error(err))
		return o.finish(job, model.JobFailed, err), err
	}

	job.setTotal(len(items))
	log.Info("batch: started", zap.Int("items", len(items)), zap.Int("chunk_size", o.chunkSize))

	var fatal error
	for start := 0; start < len(items); start += o.chunkSize {
		if job.Aborted() {
			log.Info("batch: aborted", zap.Int("remaining", len(items)-start))
			break
		}
		if ctx.Err() != nil {
			fatal = ErrInterrupted
			break
		}

		end := min(start+o.chunkSize, len(items))
		fatal = o.runChunk(ctx, job, items[start:end], proc)
		job.publish()
		if fatal != nil {
			break
		}
	}

	if fatal == nil && ctx.Err() != nil && job.Snapshot().ProcessedItems < len(items) {
		fatal = ErrInterrupted
	}
	if fatal != nil {
		log.Error("batch: failed", zap.Error(fatal))
		return o.finish(job, model.JobFailed, fatal), fatal
	}

	final := o.finish(job, model.JobCompleted, nil)
	log.Info("batch: complete",
		zap.Int("succeeded", final.SuccessfulItems),
		zap.Int("failed", final.FailedItems),
		zap.Bool("aborted", final.Aborted),
	)
	return final, nil
}

// runChunk processes items concurrently and returns the first job-fatal
// error. Every item in the chunk runs to completion regardless.
func (o *Orchestrator) runChunk(ctx context.Context, job *Job, items []Item, proc Processor) error {
	var g errgroup.Group
	for _, item := range items {
		g.Go(func() error {
			job.setCurrent(item.Label)
			return o.runItem(ctx, job, item, proc)
		})
	}
	return g.Wait()
}

func (o *Orchestrator) runItem(ctx context.Context, job *Job, item Item, proc Processor) error {
	log := zap.L().With(zap.String("job_id", job.ID()), zap.String("contact_id", item.ID))

	err := safeProcess(ctx, proc, item)
	if IsFatal(err) {
		job.record(false)
		o.metrics.ObserveItem("failed")
		return err
	}

	status, reason := model.EnrichmentCompleted, ""
	if err != nil {
		status, reason = model.EnrichmentFailed, err.Error()
		log.Warn("batch: item failed", zap.Error(err))
	}

	if o.status != nil {
		if werr := o.status.SetItemStatus(context.WithoutCancel(ctx), item, status, reason); werr != nil {
			job.record(false)
			o.metrics.ObserveItem("failed")
			return Fatal(eris.Wrapf(werr, "batch: record status of %s", item.ID))
		}
	}

	job.record(err == nil)
	if err == nil {
		o.metrics.ObserveItem("succeeded")
	} else {
		o.metrics.ObserveItem("failed")
	}
	return nil
}

// safeProcess converts a processor panic into an item error.
func safeProcess(ctx context.Context, proc Processor, item Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("batch: item %s panicked: %v", item.ID, r)
		}
	}()
	return proc.Process(ctx, item)
}

func (o *Orchestrator) finish(job *Job, status model.JobStatus, err error) model.BatchJobProgress {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	o.metrics.JobFinished(string(status))
	return job.finish(status, msg, o.now().UTC())
}
