// Package installer downloads the exported files of a class and stores them for offline use.
package installer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/at-ishikawa/quizsync/internal/config"
	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
)

var (
	ErrManifestMissing = errors.New("manifest missing")
	ErrMetadataInvalid = errors.New("metadata invalid")
	ErrChunkMissing    = errors.New("chunk missing")
	ErrIncompleteData  = errors.New("incomplete data")
	ErrCancelled       = errors.New("installation cancelled")
)

const defaultBatchSize = 6

// DefaultWeights splits progress into 0-15 manifest, 15-85 download, 85-90 validation and 90-100 save.
var DefaultWeights = config.ProgressWeights{Manifest: 15, Download: 70, Validate: 5, Save: 10}

// Store is the part of the local store an install writes to.
type Store interface {
	SaveClassData(ctx context.Context, record content.ClassRecord) error
	EnqueueDownload(ctx context.Context, classID string) (int64, error)
	FailDownload(ctx context.Context, id int64, message string) error
	CompleteDownload(ctx context.Context, id int64) error
}

type Installer struct {
	source    Source
	store     Store
	batchSize int
	weights   config.ProgressWeights
	validate  *validator.Validate
	emitter   telemetry.Emitter
	now       func() time.Time
}

type Option func(*Installer)

// WithBatchSize sets how many chunks are downloaded at the same time.
func WithBatchSize(size int) Option {
	return func(in *Installer) {
		if size > 0 {
			in.batchSize = size
		}
	}
}

func WithWeights(weights config.ProgressWeights) Option {
	return func(in *Installer) {
		if weights.Total() == 100 {
			in.weights = weights
		}
	}
}

func WithEmitter(emitter telemetry.Emitter) Option {
	return func(in *Installer) {
		if emitter != nil {
			in.emitter = emitter
		}
	}
}

func New(source Source, store Store, opts ...Option) *Installer {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	in := &Installer{
		source:    source,
		store:     store,
		batchSize: defaultBatchSize,
		weights:   DefaultWeights,
		validate:  validate,
		emitter:   telemetry.Nop,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Result describes a finished install run.
type Result struct {
	ClassID  string            `json:"classId" yaml:"class_id"`
	State    State             `json:"state" yaml:"state"`
	Metadata *content.Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	// History lists every state the run went through, starting with Idle.
	History []State `json:"history" yaml:"history"`
}

type run struct {
	installer *Installer
	classID   string
	progress  content.ProgressFunc
	machine   *stateMachine
}

func (r *run) report(ctx context.Context, step string, progress int, message string) {
	r.progress.Report(step, progress, message)
	r.installer.emitter.Emit(ctx, telemetry.Event{
		Component: "installer",
		ClassID:   r.classID,
		Step:      step,
		Progress:  progress,
		Message:   message,
		Level:     slog.LevelInfo,
	})
}

func (r *run) enter(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.machine.enter(next)
}

// Install runs CheckingManifest, LoadingMetadata, Downloading, Validating and Saving for a class.
//
// Any failure is fatal and is not retried. The last progress event of a failed run is
// {step: "error", progress: 0} with the error message, or {step: "cancelled"} when ctx ended the run.
// Nothing is stored unless every chunk listed in the manifest was downloaded and validated.
func (in *Installer) Install(ctx context.Context, classID string, progress content.ProgressFunc) (*Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "installer.Install", trace.WithAttributes(attribute.String("quizsync.class_id", classID)))
	defer span.End()

	r := &run{
		installer: in,
		classID:   classID,
		progress:  progress,
		machine:   newStateMachine(),
	}

	queueID, err := in.store.EnqueueDownload(ctx, classID)
	if err != nil {
		in.emitter.Emit(ctx, telemetry.Event{
			Component: "installer",
			ClassID:   classID,
			Step:      string(StateIdle),
			Message:   "failed to record the download",
			Level:     slog.LevelWarn,
			Err:       err,
		})
	}

	metadata, err := r.execute(ctx)
	if err != nil {
		span.RecordError(err)
		err = r.fail(ctx, err)
		if queueID > 0 {
			if qerr := in.store.FailDownload(context.WithoutCancel(ctx), queueID, err.Error()); qerr != nil {
				slog.WarnContext(ctx, "failed to mark download as failed", "class_id", classID, "error", qerr)
			}
		}
		return &Result{ClassID: classID, State: r.machine.current, History: r.machine.history}, err
	}

	if queueID > 0 {
		if err := in.store.CompleteDownload(ctx, queueID); err != nil {
			slog.WarnContext(ctx, "failed to remove finished download", "class_id", classID, "error", err)
		}
	}
	return &Result{
		ClassID:  classID,
		State:    r.machine.current,
		Metadata: &metadata,
		History:  r.machine.history,
	}, nil
}

func (r *run) execute(ctx context.Context) (content.Metadata, error) {
	in := r.installer
	w := in.weights

	if err := r.enter(ctx, StateCheckingManifest); err != nil {
		return content.Metadata{}, err
	}
	r.report(ctx, string(StateCheckingManifest), 0, "Checking for data files...")
	body, err := in.source.FetchManifest(ctx, r.classID)
	if err != nil {
		return content.Metadata{}, err
	}

	if err := r.enter(ctx, StateLoadingMetadata); err != nil {
		return content.Metadata{}, err
	}
	r.report(ctx, string(StateLoadingMetadata), w.Manifest*2/3, "Loading metadata...")
	metadata, err := in.decodeMetadata(body)
	if err != nil {
		return content.Metadata{}, err
	}

	if err := r.enter(ctx, StateDownloading); err != nil {
		return content.Metadata{}, err
	}
	total := len(metadata.ChunksList)
	r.report(ctx, string(StateDownloading), w.Manifest, fmt.Sprintf("Downloading data (0/%d)...", total))
	registry, err := r.download(ctx, metadata.ChunksList)
	if err != nil {
		return content.Metadata{}, err
	}

	if err := r.enter(ctx, StateValidating); err != nil {
		return content.Metadata{}, err
	}
	r.report(ctx, string(StateValidating), w.Manifest+w.Download, "Validating data...")
	if err := validateChunks(metadata.ChunksList, registry); err != nil {
		return content.Metadata{}, err
	}
	r.report(ctx, string(StateValidating), w.Manifest+w.Download+w.Validate, "All chunks validated")

	if err := r.enter(ctx, StateSaving); err != nil {
		return content.Metadata{}, err
	}
	now := in.now()
	record := content.ClassRecord{
		ClassID:     r.classID,
		Metadata:    metadata,
		Chunks:      registry,
		InstalledAt: now,
	}
	if err := in.store.SaveClassData(ctx, record); err != nil {
		return content.Metadata{}, fmt.Errorf("store.SaveClassData() > %w", err)
	}

	if err := r.machine.enter(StateDone); err != nil {
		return content.Metadata{}, err
	}
	r.report(ctx, content.StepComplete, 100, fmt.Sprintf("Installation complete! %s is ready to use offline.", r.classID))
	return metadata, nil
}

// fail moves the run to Failed or Cancelled and reports a progress reset.
func (r *run) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		if !errors.Is(err, ErrCancelled) {
			err = fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		if terr := r.machine.enter(StateCancelled); terr != nil {
			err = errors.Join(err, terr)
		}
		r.report(ctx, content.StepCancelled, 0, "Installation cancelled")
		return err
	}

	if terr := r.machine.enter(StateFailed); terr != nil {
		err = errors.Join(err, terr)
	}
	r.progress.Report(content.StepError, 0, err.Error())
	r.installer.emitter.Emit(ctx, telemetry.Event{
		Component: "installer",
		ClassID:   r.classID,
		Step:      content.StepError,
		Message:   err.Error(),
		Level:     slog.LevelError,
		Err:       err,
	})
	return err
}

func (in *Installer) decodeMetadata(body []byte) (content.Metadata, error) {
	var metadata content.Metadata
	if err := content.Decode(body, &metadata); err != nil {
		return content.Metadata{}, fmt.Errorf("%w: metadata not loaded properly: %w", ErrMetadataInvalid, err)
	}

	if err := in.validate.Struct(metadata); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return content.Metadata{}, fmt.Errorf("%w: %w", ErrMetadataInvalid, err)
		}
		messages := make([]string, 0, len(validationErrors))
		for _, fe := range validationErrors {
			switch fe.Tag() {
			case "required":
				messages = append(messages, fe.Field()+" is required")
			case "min":
				messages = append(messages, fe.Field()+" must not be empty")
			default:
				messages = append(messages, fe.Field()+" is invalid")
			}
		}
		return content.Metadata{}, fmt.Errorf("%w: %s", ErrMetadataInvalid, strings.Join(messages, ", "))
	}
	return metadata, nil
}

// download fetches the chunks batchSize at a time. A batch is finished before the next one starts,
// and the first failure cancels the rest of its batch.
func (r *run) download(ctx context.Context, names []string) (map[string]content.Chunk, error) {
	in := r.installer
	registry := make(map[string]content.Chunk, len(names))

	var mu sync.Mutex
	completed := 0
	for start := 0; start < len(names); start += in.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := names[start:min(start+in.batchSize, len(names))]

		g, gctx := errgroup.WithContext(ctx)
		for _, name := range batch {
			g.Go(func() error {
				chunk, err := in.fetchChunk(gctx, r.classID, name)
				if err != nil {
					return err
				}

				mu.Lock()
				defer mu.Unlock()
				registry[name] = chunk
				completed++
				progress := in.weights.Manifest + completed*in.weights.Download/len(names)
				r.report(ctx, string(StateDownloading), progress, fmt.Sprintf("Downloaded %d/%d chunks...", completed, len(names)))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (in *Installer) fetchChunk(ctx context.Context, classID, name string) (content.Chunk, error) {
	if err := in.source.ChunkExists(ctx, classID, name); err != nil {
		return content.Chunk{}, err
	}
	body, err := in.source.FetchChunk(ctx, classID, name)
	if err != nil {
		return content.Chunk{}, err
	}

	var chunk content.Chunk
	if err := content.Decode(body, &chunk); err != nil {
		return content.Chunk{}, fmt.Errorf("%w: data not found for %s: %w", ErrIncompleteData, name, err)
	}
	return chunk, nil
}

func validateChunks(chunksList []string, registry map[string]content.Chunk) error {
	if missing := content.MissingChunks(chunksList, registry); len(missing) > 0 {
		return fmt.Errorf("%w: some chunks failed to load: %s. Please try again", ErrIncompleteData, strings.Join(missing, ", "))
	}
	for _, name := range chunksList {
		if err := registry[name].Check(); err != nil {
			return fmt.Errorf("%w: chunk %s: %w", ErrIncompleteData, name, err)
		}
	}
	return nil
}
