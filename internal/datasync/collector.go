package datasync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/remote"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
)

// Progress steps reported while collecting.
const (
	StepSubjects     = "subjects"
	StepChapters     = "chapters"
	StepQuestions    = "questions"
	StepWordMeanings = "wordMeanings"
	StepSaving       = "saving"
)

// Error record types.
const (
	ErrorTypeChapterFetch    = "chapter_fetch"
	ErrorTypeQuestionFetch   = "question_fetch"
	ErrorTypeWMSubjectFetch  = "wm_subject_fetch"
	ErrorTypeWMChapterFetch  = "wm_chapter_fetch"
	ErrorTypeWMPageFetch     = "wm_page_fetch"
	ErrorTypeWMQuestionFetch = "wm_question_fetch"
	ErrorTypeFatal           = "fatal"
)

const defaultQuestionBatchSize = 5

// Collector reads the content of one class from the remote store.
// A failed chapter, page or question read is recorded in the dataset and replaced by an empty list.
type Collector struct {
	reader              remote.Reader
	retry               RetryPolicy
	matcher             SubjectMatcher
	questionBatchSize   int
	includeWordMeanings bool
	emitter             telemetry.Emitter
	component           string
}

type CollectorOption func(*Collector)

func WithRetryPolicy(policy RetryPolicy) CollectorOption {
	return func(c *Collector) {
		c.retry = policy
	}
}

func WithSubjectMatcher(matcher SubjectMatcher) CollectorOption {
	return func(c *Collector) {
		c.matcher = matcher
	}
}

// WithQuestionBatchSize limits how many question lists are read at the same time.
func WithQuestionBatchSize(size int) CollectorOption {
	return func(c *Collector) {
		if size > 0 {
			c.questionBatchSize = size
		}
	}
}

func WithWordMeanings(enabled bool) CollectorOption {
	return func(c *Collector) {
		c.includeWordMeanings = enabled
	}
}

func WithEmitter(emitter telemetry.Emitter) CollectorOption {
	return func(c *Collector) {
		if emitter != nil {
			c.emitter = emitter
		}
	}
}

// WithComponent sets the component name attached to emitted events.
func WithComponent(name string) CollectorOption {
	return func(c *Collector) {
		c.component = name
	}
}

func NewCollector(reader remote.Reader, opts ...CollectorOption) *Collector {
	c := &Collector{
		reader:            reader,
		retry:             DefaultRetryPolicy(),
		matcher:           NewSubjectMatcher(true),
		questionBatchSize: defaultQuestionBatchSize,
		emitter:           telemetry.Nop,
		component:         "sync",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listFunc func(ctx context.Context, parentID string) ([]content.Entity, error)

type fetchResult struct {
	entities []content.Entity
	err      error
}

// collection gathers the results of one Collect call.
type collection struct {
	classID string
	report  content.ProgressFunc
	errors  []content.ErrorRecord
}

func (col *collection) record(errorType string, err error, fill func(*content.ErrorRecord)) {
	rec := content.ErrorRecord{Type: errorType, Error: err.Error()}
	fill(&rec)
	col.errors = append(col.errors, rec)
}

func (c *Collector) warn(ctx context.Context, classID, step, message string, err error) {
	c.emitter.Emit(ctx, telemetry.Event{
		Component: c.component,
		ClassID:   classID,
		Step:      step,
		Message:   message,
		Level:     slog.LevelWarn,
		Err:       err,
	})
}

func (c *Collector) policy(ctx context.Context, classID, step string) RetryPolicy {
	policy := c.retry
	observer := policy.OnDelay
	policy.OnDelay = func(n uint, delay time.Duration, err error) {
		c.warn(ctx, classID, step, fmt.Sprintf("Retry attempt %d. Waiting %s", n+1, delay), err)
		if observer != nil {
			observer(n, delay, err)
		}
	}
	return policy
}

// fetch calls list with retries and always returns a non-nil slice.
func (c *Collector) fetch(ctx context.Context, policy RetryPolicy, list listFunc, parentID string) ([]content.Entity, error) {
	var entities []content.Entity
	err := policy.Do(ctx, func(ctx context.Context) error {
		var err error
		entities, err = list(ctx, parentID)
		return err
	})
	if err != nil || entities == nil {
		return []content.Entity{}, err
	}
	return entities, nil
}

// fetchAll reads the children of every parent, width at a time. Each wave finishes before the next one
// starts. A width of 0 or less reads all parents at once. onDone is called once per parent, serialized.
func (c *Collector) fetchAll(
	ctx context.Context,
	policy RetryPolicy,
	parents []content.Entity,
	width int,
	list listFunc,
	onDone func(i, done int, result fetchResult),
) []fetchResult {
	results := make([]fetchResult, len(parents))
	if width <= 0 || width > len(parents) {
		width = len(parents)
	}

	var mu sync.Mutex
	done := 0
	for start := 0; start < len(parents); start += width {
		if ctx.Err() != nil {
			break
		}
		end := min(start+width, len(parents))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				entities, err := c.fetch(ctx, policy, list, parents[i].ID())
				result := fetchResult{entities: entities, err: err}

				mu.Lock()
				defer mu.Unlock()
				results[i] = result
				done++
				if onDone != nil {
					onDone(i, done, result)
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return (done*100 + total/2) / total
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}

func displayName(e content.Entity) string {
	if name := e.Name(); name != "" {
		return name
	}
	return e.ID()
}

// Collect fetches subjects, chapters and questions of a class, plus word meanings when enabled.
// On error the returned dataset still carries the error records gathered so far.
func (c *Collector) Collect(ctx context.Context, classID string, report content.ProgressFunc) (content.Dataset, error) {
	col := &collection{classID: classID, report: report}
	ds := content.Dataset{
		ClassID:   classID,
		Chapters:  make(map[string][]content.Entity),
		Questions: make(map[string][]content.Entity),
	}

	subjects, err := c.collectSubjects(ctx, col)
	if err != nil {
		ds.Errors = col.errors
		return ds, err
	}
	ds.Subjects = subjects

	chapters := c.collectChapters(ctx, col, subjects, ds.Chapters)
	if ctx.Err() != nil {
		ds.Errors = col.errors
		return ds, cancelled(ctx)
	}
	if len(chapters) == 0 {
		ds.Errors = col.errors
		return ds, fmt.Errorf("%w: no chapters available to fetch questions from", ErrRemoteFetch)
	}

	c.collectQuestions(ctx, col, chapters, ds.Questions)
	if ctx.Err() != nil {
		ds.Errors = col.errors
		return ds, cancelled(ctx)
	}

	if c.includeWordMeanings {
		ds.WordMeaning = c.collectWordMeanings(ctx, col)
		if ctx.Err() != nil {
			ds.Errors = col.errors
			return ds, cancelled(ctx)
		}
	}

	ds.Errors = col.errors
	return ds, nil
}

func (c *Collector) collectSubjects(ctx context.Context, col *collection) ([]content.Entity, error) {
	col.report.Report(StepSubjects, 0, "Fetching subjects...")

	policy := c.policy(ctx, col.classID, StepSubjects)
	all, err := c.fetch(ctx, policy, func(ctx context.Context, _ string) ([]content.Entity, error) {
		return c.reader.GetAllSubjects(ctx)
	}, "")
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		return nil, fmt.Errorf("%w: reader.GetAllSubjects() > %w", ErrRemoteFetch, err)
	}

	subjects, rule := c.matcher.Match(all, col.classID)
	switch rule {
	case RuleAllSubjects:
		c.warn(ctx, col.classID, StepSubjects, fmt.Sprintf("No subjects found for %s, using ALL subjects", col.classID), nil)
	case "":
		c.warn(ctx, col.classID, StepSubjects, fmt.Sprintf("No subjects found for %s", col.classID), nil)
	}

	col.report.Report(StepSubjects, 100, fmt.Sprintf("Found %d subjects", len(subjects)))
	return subjects, nil
}

// collectChapters reads the chapters of every subject at once and returns all chapters in subject order.
func (c *Collector) collectChapters(ctx context.Context, col *collection, subjects []content.Entity, into map[string][]content.Entity) []content.Entity {
	col.report.Report(StepChapters, 0, "Fetching chapters...")

	policy := c.policy(ctx, col.classID, StepChapters)
	results := c.fetchAll(ctx, policy, subjects, 0, c.reader.GetChaptersBySubject, func(i, done int, result fetchResult) {
		if result.err != nil {
			return
		}
		col.report.Report(StepChapters, percent(done, len(subjects)),
			fmt.Sprintf("Fetched chapters for %s (%d chapters)", subjects[i].Name(), len(result.entities)))
	})

	var all []content.Entity
	for i, subject := range subjects {
		result := results[i]
		if result.err != nil {
			if ctx.Err() != nil {
				return nil
			}
			col.record(ErrorTypeChapterFetch, result.err, func(r *content.ErrorRecord) {
				r.Subject = subject.Name()
			})
			c.warn(ctx, col.classID, StepChapters, fmt.Sprintf("Failed to fetch chapters for %s", subject.Name()), result.err)
		}
		into[subject.ID()] = result.entities
		all = append(all, result.entities...)
	}

	col.report.Report(StepChapters, 100, fmt.Sprintf("Found %d total chapters", len(all)))
	return all
}

func (c *Collector) collectQuestions(ctx context.Context, col *collection, chapters []content.Entity, into map[string][]content.Entity) {
	col.report.Report(StepQuestions, 0, "Fetching questions...")

	policy := c.policy(ctx, col.classID, StepQuestions)
	results := c.fetchAll(ctx, policy, chapters, c.questionBatchSize, c.reader.GetQuestionsByChapter, func(_, done int, _ fetchResult) {
		if done%c.questionBatchSize == 0 || done == len(chapters) {
			col.report.Report(StepQuestions, percent(done, len(chapters)),
				fmt.Sprintf("Fetched questions: %d/%d chapters", done, len(chapters)))
		}
	})

	total := 0
	for i, chapter := range chapters {
		result := results[i]
		if result.err != nil {
			if ctx.Err() != nil {
				return
			}
			col.record(ErrorTypeQuestionFetch, result.err, func(r *content.ErrorRecord) {
				r.Chapter = displayName(chapter)
			})
			c.warn(ctx, col.classID, StepQuestions, fmt.Sprintf("Failed to fetch questions for %s", displayName(chapter)), result.err)
		}
		into[chapter.ID()] = result.entities
		total += len(result.entities)
	}

	col.report.Report(StepQuestions, 100, fmt.Sprintf("Found %d total questions", total))
}

// collectWordMeanings returns nil when the word-meaning subjects cannot be read.
func (c *Collector) collectWordMeanings(ctx context.Context, col *collection) *content.WordMeaningDataset {
	col.report.Report(StepWordMeanings, 0, "Fetching word meanings...")
	policy := c.policy(ctx, col.classID, StepWordMeanings)

	all, err := c.fetch(ctx, policy, func(ctx context.Context, _ string) ([]content.Entity, error) {
		return c.reader.GetWordMeaningSubjects(ctx)
	}, "")
	if err != nil {
		if ctx.Err() == nil {
			col.record(ErrorTypeWMSubjectFetch, err, func(*content.ErrorRecord) {})
			c.warn(ctx, col.classID, StepWordMeanings, "Failed to fetch word-meaning subjects", err)
		}
		return nil
	}

	// Word meanings never fall back to every subject.
	subjects, _ := SubjectMatcher{Rules: c.matcher.Rules}.Match(all, col.classID)
	wm := &content.WordMeaningDataset{
		Subjects:  subjects,
		Chapters:  make(map[string][]content.Entity),
		Pages:     make(map[string][]content.Entity),
		Questions: make(map[string][]content.Entity),
	}
	col.report.Report(StepWordMeanings, 25, fmt.Sprintf("Found %d word-meaning subjects", len(subjects)))

	var chapters []content.Entity
	for i, result := range c.fetchAll(ctx, policy, subjects, 0, c.reader.GetWordMeaningChapters, nil) {
		if result.err != nil {
			if ctx.Err() != nil {
				return wm
			}
			col.record(ErrorTypeWMChapterFetch, result.err, func(r *content.ErrorRecord) {
				r.Subject = displayName(subjects[i])
			})
		}
		wm.Chapters[subjects[i].ID()] = result.entities
		chapters = append(chapters, result.entities...)
	}
	col.report.Report(StepWordMeanings, 50, fmt.Sprintf("Found %d word-meaning chapters", len(chapters)))

	var pages []content.Entity
	for i, result := range c.fetchAll(ctx, policy, chapters, 0, c.reader.GetWordMeaningPages, nil) {
		if result.err != nil {
			if ctx.Err() != nil {
				return wm
			}
			col.record(ErrorTypeWMPageFetch, result.err, func(r *content.ErrorRecord) {
				r.Chapter = displayName(chapters[i])
			})
		}
		wm.Pages[chapters[i].ID()] = result.entities
		pages = append(pages, result.entities...)
	}
	col.report.Report(StepWordMeanings, 75, fmt.Sprintf("Found %d word-meaning pages", len(pages)))

	total := 0
	results := c.fetchAll(ctx, policy, pages, c.questionBatchSize, c.reader.GetWordMeaningQuestionsByPage, nil)
	for i, result := range results {
		if result.err != nil {
			if ctx.Err() != nil {
				return wm
			}
			col.record(ErrorTypeWMQuestionFetch, result.err, func(r *content.ErrorRecord) {
				r.Page = displayName(pages[i])
			})
		}
		wm.Questions[pages[i].ID()] = result.entities
		total += len(result.entities)
	}
	col.report.Report(StepWordMeanings, 100, fmt.Sprintf("Found %d word-meaning questions", total))
	return wm
}
