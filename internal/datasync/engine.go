// Package datasync rebuilds the local copy of a class from the remote store.
package datasync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
)

var (
	// ErrRemoteFetch is returned when the remote store cannot provide the data a sync needs.
	ErrRemoteFetch = errors.New("remote fetch failed")
	// ErrValidationFailed is returned when the stored class data is inconsistent.
	ErrValidationFailed = errors.New("validation failed")
	ErrCancelled        = errors.New("sync cancelled")
)

// ClassStore is the part of the local store the sync engine writes to.
type ClassStore interface {
	SaveClassData(ctx context.Context, record content.ClassRecord) error
	GetClassData(ctx context.Context, classID string) (*content.ClassRecord, error)
}

// Result summarizes one sync run.
// A successful run may still carry errors for the parts of the class it could not read.
type Result struct {
	Success  bool                  `json:"success" yaml:"success"`
	Metadata *content.Metadata     `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Duration time.Duration         `json:"duration" yaml:"duration"`
	Errors   []content.ErrorRecord `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Engine syncs classes from the remote store into the local store.
type Engine struct {
	collector *Collector
	store     ClassStore
	emitter   telemetry.Emitter
	now       func() time.Time
}

func NewEngine(collector *Collector, store ClassStore, emitter telemetry.Emitter) *Engine {
	if emitter == nil {
		emitter = telemetry.Nop
	}
	return &Engine{
		collector: collector,
		store:     store,
		emitter:   emitter,
		now:       time.Now,
	}
}

func (e *Engine) reporter(ctx context.Context, classID string, progress content.ProgressFunc) content.ProgressFunc {
	return func(p content.Progress) {
		progress.Report(p.Step, p.Progress, p.Message)

		level := slog.LevelInfo
		if p.Step == content.StepError {
			level = slog.LevelError
		}
		e.emitter.Emit(ctx, telemetry.Event{
			Component: "sync",
			ClassID:   classID,
			Step:      p.Step,
			Progress:  p.Progress,
			Message:   p.Message,
			Level:     level,
		})
	}
}

// Sync fetches the class from the remote store and replaces its local copy.
//
// Failures of single chapters or questions are listed in Result.Errors and do not fail the run.
// A failure to read the subjects, a class without any chapter or a failed save ends the run with
// Result.Success false and the returned error.
func (e *Engine) Sync(ctx context.Context, classID string, progress content.ProgressFunc) (*Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "datasync.Sync", trace.WithAttributes(attribute.String("quizsync.class_id", classID)))
	defer span.End()

	start := e.now()
	report := e.reporter(ctx, classID, progress)

	ds, err := e.collector.Collect(ctx, classID, report)
	if err != nil {
		return e.fail(ctx, report, start, ds.Errors, err)
	}

	report.Report(StepSaving, 0, "Saving to local store...")
	now := e.now()
	metadata, chunks := content.Assemble(ds, content.SourceSync, now)
	record := content.ClassRecord{
		ClassID:     classID,
		Metadata:    metadata,
		Chunks:      chunks,
		InstalledAt: now,
	}
	if err := e.collector.policy(ctx, classID, StepSaving).Do(ctx, func(ctx context.Context) error {
		return e.store.SaveClassData(ctx, record)
	}); err != nil {
		if ctx.Err() != nil {
			err = cancelled(ctx)
		} else {
			err = fmt.Errorf("store.SaveClassData() > %w", err)
		}
		return e.fail(ctx, report, start, ds.Errors, err)
	}
	report.Report(StepSaving, 100, fmt.Sprintf("Saved %d chunks", len(chunks)))

	if len(ds.Errors) > 0 {
		e.emitter.Emit(ctx, telemetry.Event{
			Component: "sync",
			ClassID:   classID,
			Step:      content.StepComplete,
			Progress:  100,
			Message:   fmt.Sprintf("Completed with %d errors", len(ds.Errors)),
			Level:     slog.LevelWarn,
		})
	}
	report.Report(content.StepComplete, 100, fmt.Sprintf("Sync complete! %d questions saved", metadata.Stats.Questions))

	return &Result{
		Success:  true,
		Metadata: &metadata,
		Duration: e.now().Sub(start),
		Errors:   ds.Errors,
	}, nil
}

func (e *Engine) fail(
	ctx context.Context,
	report content.ProgressFunc,
	start time.Time,
	collected []content.ErrorRecord,
	err error,
) (*Result, error) {
	trace.SpanFromContext(ctx).RecordError(err)

	if errors.Is(err, ErrCancelled) {
		report.Report(content.StepCancelled, 0, "Sync cancelled")
	} else {
		report.Report(content.StepError, 0, fmt.Sprintf("Sync failed: %s", err))
	}
	errs := append(append([]content.ErrorRecord(nil), collected...), content.ErrorRecord{
		Type:  ErrorTypeFatal,
		Error: err.Error(),
	})
	return &Result{
		Success:  false,
		Duration: e.now().Sub(start),
		Errors:   errs,
	}, err
}

// ValidationReport describes a class that passed validation.
type ValidationReport struct {
	Metadata   content.Metadata `json:"metadata" yaml:"metadata"`
	ChunkCount int              `json:"chunkCount" yaml:"chunk_count"`
}

// Validate reads the stored class back and checks that its metadata and chunks agree.
func (e *Engine) Validate(ctx context.Context, classID string) (*ValidationReport, error) {
	return Validate(ctx, e.store, classID)
}

// Validate checks the stored copy of a class. Inconsistent data is reported with ErrValidationFailed.
func Validate(ctx context.Context, store ClassStore, classID string) (*ValidationReport, error) {
	record, err := store.GetClassData(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("store.GetClassData() > %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: no data found for %s", ErrValidationFailed, classID)
	}
	if err := record.Check(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return &ValidationReport{
		Metadata:   record.Metadata,
		ChunkCount: len(record.Chunks),
	}, nil
}
