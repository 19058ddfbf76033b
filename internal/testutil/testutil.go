// Package testutil provides shared test helpers for creating config files and class content fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/quizsync/internal/content"
	mock_remote "github.com/at-ishikawa/quizsync/internal/mocks/remote"
)

// SetupTestConfig creates a minimal config file and all required directories for testing.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	dirs := []string{"storage", "export", "cache"}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, d), 0755))
	}

	configContent := fmt.Sprintf(`storage:
  path: %s
proxy:
  cache_storage: sqlite
  cache_path: %s
export:
  output_directory: %s
sync:
  retry:
    initial_delay: 1ms
    max_delay: 4ms
`,
		filepath.Join(tmpDir, "storage", "quizsync.db"),
		filepath.Join(tmpDir, "cache", "cache.db"),
		filepath.Join(tmpDir, "export"),
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// ClassFixture is the remote content of one class.
type ClassFixture struct {
	ClassID   string
	Subjects  []content.Entity
	Chapters  map[string][]content.Entity
	Questions map[string][]content.Entity
}

// ClassFixtureOption configures the size of a class fixture.
type ClassFixtureOption func(*classFixtureConfig)

type classFixtureConfig struct {
	subjects            int
	chaptersPerSubject  int
	questionsPerChapter int
}

func WithSubjects(n int) ClassFixtureOption {
	return func(cfg *classFixtureConfig) {
		cfg.subjects = n
	}
}

func WithChaptersPerSubject(n int) ClassFixtureOption {
	return func(cfg *classFixtureConfig) {
		cfg.chaptersPerSubject = n
	}
}

func WithQuestionsPerChapter(n int) ClassFixtureOption {
	return func(cfg *classFixtureConfig) {
		cfg.questionsPerChapter = n
	}
}

// NewClassFixture builds a class with 2 subjects of 3 chapters of 10 questions by default.
// Subjects carry the class id in their classId field.
func NewClassFixture(classID string, opts ...ClassFixtureOption) ClassFixture {
	cfg := classFixtureConfig{
		subjects:            2,
		chaptersPerSubject:  3,
		questionsPerChapter: 10,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := ClassFixture{
		ClassID:   classID,
		Chapters:  make(map[string][]content.Entity),
		Questions: make(map[string][]content.Entity),
	}
	for s := 1; s <= cfg.subjects; s++ {
		subjectID := fmt.Sprintf("%s-s%d", classID, s)
		f.Subjects = append(f.Subjects, content.Entity{
			"id":      subjectID,
			"name":    fmt.Sprintf("Subject %d", s),
			"classId": classID,
		})
		for c := 1; c <= cfg.chaptersPerSubject; c++ {
			chapterID := fmt.Sprintf("%s-c%d", subjectID, c)
			f.Chapters[subjectID] = append(f.Chapters[subjectID], content.Entity{
				"id":        chapterID,
				"name":      fmt.Sprintf("Chapter %d", c),
				"serial":    float64(c),
				"subjectId": subjectID,
			})
			questions := make([]content.Entity, 0, cfg.questionsPerChapter)
			for q := 1; q <= cfg.questionsPerChapter; q++ {
				questions = append(questions, content.Entity{
					"id":        fmt.Sprintf("%s-q%d", chapterID, q),
					"question":  fmt.Sprintf("Question %d", q),
					"options":   []any{"A", "B", "C", "D"},
					"answer":    "A",
					"chapterId": chapterID,
				})
			}
			f.Questions[chapterID] = questions
		}
	}
	return f
}

// ExpectReads serves the fixture from a mock reader for any number of calls.
func (f ClassFixture) ExpectReads(reader *mock_remote.MockReader) {
	reader.EXPECT().GetAllSubjects(gomock.Any()).Return(f.Subjects, nil).AnyTimes()
	reader.EXPECT().GetChaptersBySubject(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, subjectID string) ([]content.Entity, error) {
			return f.Chapters[subjectID], nil
		}).AnyTimes()
	reader.EXPECT().GetQuestionsByChapter(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, chapterID string) ([]content.Entity, error) {
			return f.Questions[chapterID], nil
		}).AnyTimes()
}

// Dataset returns the fixture as a collected dataset.
func (f ClassFixture) Dataset() content.Dataset {
	return content.Dataset{
		ClassID:   f.ClassID,
		Subjects:  f.Subjects,
		Chapters:  f.Chapters,
		Questions: f.Questions,
	}
}

// Record assembles the fixture into the record an install or sync would store.
func (f ClassFixture) Record(now time.Time) content.ClassRecord {
	metadata, chunks := content.Assemble(f.Dataset(), content.SourceExport, now)
	return content.ClassRecord{
		ClassID:     f.ClassID,
		Metadata:    metadata,
		Chunks:      chunks,
		InstalledAt: now,
	}
}
