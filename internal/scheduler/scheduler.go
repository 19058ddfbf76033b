// Package scheduler re-syncs installed classes in the background.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/datasync"
)

type Syncer interface {
	Sync(ctx context.Context, classID string, progress content.ProgressFunc) (*datasync.Result, error)
}

type ClassLister interface {
	GetInstalledClasses(ctx context.Context) ([]string, error)
}

// RunResult is the outcome of syncing one class during a tick.
type RunResult struct {
	ClassID string
	Result  *datasync.Result
	Err     error
}

type Scheduler struct {
	spec     string
	schedule cron.Schedule
	classes  ClassLister
	syncer   Syncer
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New validates spec, a standard five-field cron expression or a descriptor such as "@hourly".
// An empty spec gives a scheduler that never runs on its own.
func New(spec string, classes ClassLister, syncer Syncer, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		spec:    spec,
		classes: classes,
		syncer:  syncer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if spec != "" {
		schedule, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("cron.ParseStandard(%s) > %w", spec, err)
		}
		s.schedule = schedule
	}
	return s, nil
}

// Enabled reports whether Start schedules anything.
func (s *Scheduler) Enabled() bool {
	return s.schedule != nil
}

// RunOnce syncs every installed class one after another. Failures are logged and do not stop the run.
func (s *Scheduler) RunOnce(ctx context.Context) []RunResult {
	classIDs, err := s.classes.GetInstalledClasses(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list installed classes", "error", err)
		return nil
	}

	results := make([]RunResult, 0, len(classIDs))
	for _, classID := range classIDs {
		if ctx.Err() != nil {
			break
		}
		result, err := s.syncer.Sync(ctx, classID, nil)
		if err != nil {
			s.logger.ErrorContext(ctx, "scheduled sync failed", "class_id", classID, "error", err)
		} else {
			s.logger.InfoContext(ctx, "scheduled sync finished",
				"class_id", classID,
				"errors", len(result.Errors),
				"duration", result.Duration,
			)
		}
		results = append(results, RunResult{ClassID: classID, Result: result, Err: err})
	}
	return results
}

// Start runs RunOnce on the schedule until ctx is done or Stop is called.
// A tick that is still running when the next one is due makes the next one skip.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.Enabled() {
		s.logger.InfoContext(ctx, "scheduled sync is disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}

	logger := cronLogger{logger: s.logger}
	s.cron = cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.RunOnce(ctx)
	}))
	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduled sync started", "schedule", s.spec)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop stops scheduling and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// cronLogger writes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
