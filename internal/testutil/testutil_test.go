package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/quizsync/internal/config"
	"github.com/at-ishikawa/quizsync/internal/content"
	mock_remote "github.com/at-ishikawa/quizsync/internal/mocks/remote"
)

func TestSetupTestConfig(t *testing.T) {
	tmpDir := t.TempDir()
	got := SetupTestConfig(t, tmpDir)

	assert.Equal(t, filepath.Join(tmpDir, "config.yml"), got)

	for _, d := range []string{"storage", "export", "cache"} {
		info, err := os.Stat(filepath.Join(tmpDir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	// The generated file must pass config validation.
	loader, err := config.NewConfigLoader(got)
	require.NoError(t, err)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "storage", "quizsync.db"), cfg.Storage.Path)
	assert.Equal(t, "sqlite", cfg.Proxy.CacheStorage)
	assert.Equal(t, filepath.Join(tmpDir, "export"), cfg.Export.OutputDirectory)
	assert.Equal(t, time.Millisecond, cfg.Sync.Retry.InitialDelay)
}

func TestNewClassFixture(t *testing.T) {
	tests := []struct {
		name          string
		opts          []ClassFixtureOption
		wantSubjects  int
		wantChapters  int
		wantQuestions int
	}{
		{
			name:          "defaults",
			wantSubjects:  2,
			wantChapters:  6,
			wantQuestions: 60,
		},
		{
			name:          "custom size",
			opts:          []ClassFixtureOption{WithSubjects(1), WithChaptersPerSubject(4), WithQuestionsPerChapter(0)},
			wantSubjects:  1,
			wantChapters:  4,
			wantQuestions: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewClassFixture("11th", tt.opts...)
			record := f.Record(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

			assert.Equal(t, content.Stats{
				Subjects:    tt.wantSubjects,
				Chapters:    tt.wantChapters,
				Questions:   tt.wantQuestions,
				ChunksCount: tt.wantSubjects,
			}, record.Metadata.Stats)
			assert.NoError(t, record.Check())
			for _, subject := range f.Subjects {
				assert.Equal(t, "11th", subject.String("classId"))
			}
		})
	}
}

func TestClassFixture_ExpectReads(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mock_remote.NewMockReader(ctrl)
	f := NewClassFixture("12th")
	f.ExpectReads(reader)

	ctx := context.Background()
	subjects, err := reader.GetAllSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 2)

	chapters, err := reader.GetChaptersBySubject(ctx, subjects[0].ID())
	require.NoError(t, err)
	require.Len(t, chapters, 3)

	questions, err := reader.GetQuestionsByChapter(ctx, chapters[0].ID())
	require.NoError(t, err)
	assert.Len(t, questions, 10)

	unknown, err := reader.GetQuestionsByChapter(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, unknown)
}
