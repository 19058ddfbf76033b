package datasync

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/localstore"
	mock_remote "github.com/at-ishikawa/quizsync/internal/mocks/remote"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
	"github.com/at-ishikawa/quizsync/internal/testutil"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{
		InitialDelay: time.Millisecond,
		Multiplier:   2,
		MaxDelay:     4 * time.Millisecond,
		Attempts:     3,
	}
}

func openStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.Open(context.Background(), filepath.Join(t.TempDir(), "quizsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (r *recordingEmitter) Emit(_ context.Context, event telemetry.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var messages []string
	for _, e := range r.events {
		messages = append(messages, e.Message)
	}
	return messages
}

type progressLog struct {
	mu     sync.Mutex
	events []content.Progress
}

func (p *progressLog) report(event content.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *progressLog) last() content.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

// assertMonotonic checks that progress never goes backwards within a step.
func (p *progressLog) assertMonotonic(t *testing.T) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	current := map[string]int{}
	for _, e := range p.events {
		if e.Step == content.StepError || e.Step == content.StepCancelled {
			continue
		}
		assert.GreaterOrEqual(t, e.Progress, current[e.Step], "step %s went backwards", e.Step)
		current[e.Step] = e.Progress
	}
}

func TestEngine_Sync(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	reader := mock_remote.NewMockReader(ctrl)
	fixture := testutil.NewClassFixture("11th")
	fixture.ExpectReads(reader)
	store := openStore(t)

	engine := NewEngine(NewCollector(reader, WithRetryPolicy(fastRetry())), store, nil)

	var progress progressLog
	got, err := engine.Sync(ctx, "11th", progress.report)
	require.NoError(t, err)

	assert.True(t, got.Success)
	assert.Empty(t, got.Errors)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, content.Stats{Subjects: 2, Chapters: 6, Questions: 60, ChunksCount: 2}, got.Metadata.Stats)
	assert.Equal(t, []string{"quiz_11th-s1", "quiz_11th-s2"}, got.Metadata.ChunksList)
	assert.Equal(t, content.SourceSync, got.Metadata.Source)
	assert.Equal(t, content.Progress{Step: content.StepComplete, Progress: 100, Message: "Sync complete! 60 questions saved"}, progress.last())
	progress.assertMonotonic(t)

	installed, err := store.GetInstalledClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"11th"}, installed)

	report, err := engine.Validate(ctx, "11th")
	require.NoError(t, err)
	assert.Equal(t, 2, report.ChunkCount)

	t.Run("second sync of unchanged data gives the same stats", func(t *testing.T) {
		again, err := engine.Sync(ctx, "11th", nil)
		require.NoError(t, err)
		assert.Equal(t, got.Metadata.Stats, again.Metadata.Stats)
		assert.Equal(t, got.Metadata.ChunksList, again.Metadata.ChunksList)

		installed, err := store.GetInstalledClasses(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"11th"}, installed)
	})
}

func TestEngine_Sync_DegradedSuccess(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(reader *mock_remote.MockReader)
		wantErrors    []content.ErrorRecord
		wantStats     content.Stats
		emptyChapter  string
		emptyChapters string
	}{
		{
			name: "one chapter fails every attempt",
			setup: func(reader *mock_remote.MockReader) {
				reader.EXPECT().GetQuestionsByChapter(gomock.Any(), "11th-s1-c2").
					Return(nil, errors.New("deadline exceeded")).Times(3)
			},
			wantErrors: []content.ErrorRecord{
				{Type: ErrorTypeQuestionFetch, Chapter: "Chapter 2", Error: "deadline exceeded"},
			},
			wantStats:    content.Stats{Subjects: 2, Chapters: 6, Questions: 50, ChunksCount: 2},
			emptyChapter: "11th-s1-c2",
		},
		{
			name: "one chapter recovers on the second attempt",
			setup: func(reader *mock_remote.MockReader) {
				reader.EXPECT().GetQuestionsByChapter(gomock.Any(), "11th-s1-c2").
					Return(nil, errors.New("unavailable")).Times(1)
			},
			wantStats: content.Stats{Subjects: 2, Chapters: 6, Questions: 60, ChunksCount: 2},
		},
		{
			name: "chapters of one subject fail",
			setup: func(reader *mock_remote.MockReader) {
				reader.EXPECT().GetChaptersBySubject(gomock.Any(), "11th-s2").
					Return(nil, errors.New("permission denied")).Times(3)
			},
			wantErrors: []content.ErrorRecord{
				{Type: ErrorTypeChapterFetch, Subject: "Subject 2", Error: "permission denied"},
			},
			wantStats:     content.Stats{Subjects: 2, Chapters: 3, Questions: 30, ChunksCount: 2},
			emptyChapters: "11th-s2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ctrl := gomock.NewController(t)
			reader := mock_remote.NewMockReader(ctrl)
			// Specific expectations are registered first so that they are matched first.
			tt.setup(reader)
			testutil.NewClassFixture("11th").ExpectReads(reader)
			store := openStore(t)

			engine := NewEngine(NewCollector(reader, WithRetryPolicy(fastRetry())), store, nil)
			got, err := engine.Sync(ctx, "11th", nil)
			require.NoError(t, err)

			assert.True(t, got.Success)
			assert.Equal(t, tt.wantErrors, got.Errors)
			assert.Equal(t, tt.wantStats, got.Metadata.Stats)
			assert.Equal(t, tt.wantErrors, got.Metadata.Errors)

			record, err := store.GetClassData(ctx, "11th")
			require.NoError(t, err)
			require.NotNil(t, record)
			assert.NoError(t, record.Check())
			if tt.emptyChapter != "" {
				questions, ok := record.Chunks["quiz_11th-s1"].Questions[tt.emptyChapter]
				assert.True(t, ok)
				assert.Empty(t, questions)
			}
			if tt.emptyChapters != "" {
				assert.Empty(t, record.Chunks["quiz_"+tt.emptyChapters].Chapters)
			}
		})
	}
}

func TestEngine_Sync_Fatal(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(reader *mock_remote.MockReader)
		wantErr    error
		wantStep   string
		wantFatal  string
		wantErrors int
	}{
		{
			name: "subjects cannot be read",
			setup: func(reader *mock_remote.MockReader) {
				reader.EXPECT().GetAllSubjects(gomock.Any()).Return(nil, errors.New("offline")).Times(3)
			},
			wantErr:    ErrRemoteFetch,
			wantStep:   content.StepError,
			wantFatal:  "remote fetch failed: reader.GetAllSubjects() > offline",
			wantErrors: 1,
		},
		{
			name: "class without chapters",
			setup: func(reader *mock_remote.MockReader) {
				reader.EXPECT().GetAllSubjects(gomock.Any()).
					Return([]content.Entity{{"id": "s1", "name": "Physics", "classId": "11th"}}, nil)
				reader.EXPECT().GetChaptersBySubject(gomock.Any(), "s1").Return([]content.Entity{}, nil)
			},
			wantErr:    ErrRemoteFetch,
			wantStep:   content.StepError,
			wantFatal:  "remote fetch failed: no chapters available to fetch questions from",
			wantErrors: 1,
		},
		{
			name: "every chapter list fails",
			setup: func(reader *mock_remote.MockReader) {
				reader.EXPECT().GetAllSubjects(gomock.Any()).
					Return([]content.Entity{{"id": "s1", "name": "Physics", "classId": "11th"}}, nil)
				reader.EXPECT().GetChaptersBySubject(gomock.Any(), "s1").Return(nil, errors.New("boom")).Times(3)
			},
			wantErr:    ErrRemoteFetch,
			wantStep:   content.StepError,
			wantFatal:  "remote fetch failed: no chapters available to fetch questions from",
			wantErrors: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ctrl := gomock.NewController(t)
			reader := mock_remote.NewMockReader(ctrl)
			tt.setup(reader)
			store := openStore(t)

			engine := NewEngine(NewCollector(reader, WithRetryPolicy(fastRetry())), store, nil)
			var progress progressLog
			got, err := engine.Sync(ctx, "11th", progress.report)

			assert.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, got)
			assert.False(t, got.Success)
			assert.Nil(t, got.Metadata)
			require.Len(t, got.Errors, tt.wantErrors)
			assert.Equal(t, content.ErrorRecord{Type: ErrorTypeFatal, Error: tt.wantFatal}, got.Errors[len(got.Errors)-1])
			assert.Equal(t, content.Progress{Step: tt.wantStep, Progress: 0, Message: "Sync failed: " + tt.wantFatal}, progress.last())

			installed, err := store.IsClassInstalled(ctx, "11th")
			require.NoError(t, err)
			assert.False(t, installed)
		})
	}
}

func TestEngine_Sync_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := gomock.NewController(t)
	reader := mock_remote.NewMockReader(ctrl)
	reader.EXPECT().GetAllSubjects(gomock.Any()).
		Return([]content.Entity{{"id": "s1", "name": "Physics", "classId": "11th"}}, nil)
	reader.EXPECT().GetChaptersBySubject(gomock.Any(), "s1").
		DoAndReturn(func(ctx context.Context, _ string) ([]content.Entity, error) {
			cancel()
			return nil, ctx.Err()
		})
	store := openStore(t)

	engine := NewEngine(NewCollector(reader, WithRetryPolicy(fastRetry())), store, nil)
	var progress progressLog
	got, err := engine.Sync(ctx, "11th", progress.report)

	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, got.Success)
	assert.Equal(t, content.Progress{Step: content.StepCancelled, Progress: 0, Message: "Sync cancelled"}, progress.last())
}

func TestEngine_Sync_SubjectFallback(t *testing.T) {
	subjects := []content.Entity{
		{"id": "s1", "name": "Physics", "classId": "10th"},
		{"id": "s2", "name": "Chemistry", "classId": "10th"},
	}

	tests := []struct {
		name          string
		fallbackToAll bool
		wantErr       error
		wantSubjects  int
	}{
		{
			name:          "unmatched class uses every subject",
			fallbackToAll: true,
			wantSubjects:  2,
		},
		{
			name:          "fallback disabled leaves nothing to sync",
			fallbackToAll: false,
			wantErr:       ErrRemoteFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			reader := mock_remote.NewMockReader(ctrl)
			reader.EXPECT().GetAllSubjects(gomock.Any()).Return(subjects, nil)
			reader.EXPECT().GetChaptersBySubject(gomock.Any(), gomock.Any()).
				Return([]content.Entity{{"id": "c1", "name": "Motion"}}, nil).AnyTimes()
			reader.EXPECT().GetQuestionsByChapter(gomock.Any(), "c1").
				Return([]content.Entity{{"id": "q1"}}, nil).AnyTimes()

			emitter := &recordingEmitter{}
			collector := NewCollector(reader,
				WithRetryPolicy(fastRetry()),
				WithSubjectMatcher(NewSubjectMatcher(tt.fallbackToAll)),
				WithEmitter(emitter),
			)
			got, err := NewEngine(collector, openStore(t), nil).Sync(context.Background(), "11th", nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, emitter.messages(), "No subjects found for 11th")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubjects, got.Metadata.Stats.Subjects)
			assert.Contains(t, emitter.messages(), "No subjects found for 11th, using ALL subjects")
		})
	}
}

func TestCollector_QuestionBatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mock_remote.NewMockReader(ctrl)
	fixture := testutil.NewClassFixture("11th", testutil.WithSubjects(1), testutil.WithChaptersPerSubject(12), testutil.WithQuestionsPerChapter(1))
	reader.EXPECT().GetAllSubjects(gomock.Any()).Return(fixture.Subjects, nil)
	reader.EXPECT().GetChaptersBySubject(gomock.Any(), "11th-s1").Return(fixture.Chapters["11th-s1"], nil)

	var inFlight, maxInFlight atomic.Int32
	reader.EXPECT().GetQuestionsByChapter(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, chapterID string) ([]content.Entity, error) {
			current := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				seen := maxInFlight.Load()
				if current <= seen || maxInFlight.CompareAndSwap(seen, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return fixture.Questions[chapterID], nil
		}).Times(12)

	var progress progressLog
	ds, err := NewCollector(reader, WithQuestionBatchSize(5)).Collect(context.Background(), "11th", progress.report)
	require.NoError(t, err)

	assert.LessOrEqual(t, maxInFlight.Load(), int32(5))
	assert.Len(t, ds.Questions, 12)

	var questionMessages []string
	for _, e := range progress.events {
		if e.Step == StepQuestions {
			questionMessages = append(questionMessages, e.Message)
		}
	}
	assert.Equal(t, []string{
		"Fetching questions...",
		"Fetched questions: 5/12 chapters",
		"Fetched questions: 10/12 chapters",
		"Fetched questions: 12/12 chapters",
		"Found 12 total questions",
	}, questionMessages)
}

func TestCollector_WordMeanings(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mock_remote.NewMockReader(ctrl)
	fixture := testutil.NewClassFixture("11th", testutil.WithSubjects(1), testutil.WithChaptersPerSubject(1))
	reader.EXPECT().GetWordMeaningQuestionsByPage(gomock.Any(), "p2").
		Return(nil, errors.New("not found")).Times(3)
	fixture.ExpectReads(reader)

	reader.EXPECT().GetWordMeaningSubjects(gomock.Any()).Return([]content.Entity{
		{"id": "wm1", "name": "Vocabulary", "class": "11th"},
		{"id": "wm2", "name": "Idioms", "class": "12th"},
	}, nil)
	reader.EXPECT().GetWordMeaningChapters(gomock.Any(), "wm1").
		Return([]content.Entity{{"id": "wc1", "name": "Unit 1"}}, nil)
	reader.EXPECT().GetWordMeaningPages(gomock.Any(), "wc1").
		Return([]content.Entity{{"id": "p1"}, {"id": "p2"}}, nil)
	reader.EXPECT().GetWordMeaningQuestionsByPage(gomock.Any(), "p1").
		Return([]content.Entity{{"id": "w1", "word": "abate"}, {"id": "w2", "word": "brevity"}}, nil)

	store := openStore(t)
	collector := NewCollector(reader, WithRetryPolicy(fastRetry()), WithWordMeanings(true))
	got, err := NewEngine(collector, store, nil).Sync(context.Background(), "11th", nil)
	require.NoError(t, err)

	assert.True(t, got.Success)
	assert.Equal(t, []string{"quiz_11th-s1", "wm_wm1"}, got.Metadata.ChunksList)
	assert.Equal(t, []content.ErrorRecord{
		{Type: ErrorTypeWMQuestionFetch, Page: "p2", Error: "not found"},
	}, got.Errors)

	record, err := store.GetClassData(context.Background(), "11th")
	require.NoError(t, err)
	chunk := record.Chunks["wm_wm1"]
	assert.Equal(t, content.ChunkTypeWordMeaning, chunk.Type)
	assert.Len(t, chunk.Pages["wc1"], 2)
	assert.Len(t, chunk.Questions["p1"], 2)
	assert.Empty(t, chunk.Questions["p2"])
	assert.NoError(t, record.Check())
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		setup   func(t *testing.T, store *localstore.Store)
		wantErr string
	}{
		{
			name:    "class not installed",
			setup:   func(*testing.T, *localstore.Store) {},
			wantErr: "validation failed: no data found for 11th",
		},
		{
			name: "consistent class",
			setup: func(t *testing.T, store *localstore.Store) {
				require.NoError(t, store.SaveClassData(ctx, testutil.NewClassFixture("11th").Record(now)))
			},
		},
		{
			name: "listed chunk is missing",
			setup: func(t *testing.T, store *localstore.Store) {
				record := testutil.NewClassFixture("11th").Record(now)
				delete(record.Chunks, "quiz_11th-s2")
				require.NoError(t, store.SaveClassData(ctx, record))
			},
			wantErr: "validation failed: missing chunks: quiz_11th-s2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := openStore(t)
			tt.setup(t, store)

			got, err := Validate(ctx, store, "11th")
			if tt.wantErr != "" {
				assert.ErrorIs(t, err, ErrValidationFailed)
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, got.ChunkCount)
			assert.Equal(t, "11th", got.Metadata.ClassID)
		})
	}
}
