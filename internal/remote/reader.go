// Package remote defines the contract of the remote document store that quiz content is read from.
package remote

import (
	"context"

	"github.com/at-ishikawa/quizsync/internal/content"
)

//go:generate mockgen -source=reader.go -destination=../mocks/remote/mock_reader.go -package=mock_remote

// Reader reads quiz content from the remote store. Every method returns an empty,
// non-nil slice when the parent has no children.
type Reader interface {
	GetAllSubjects(ctx context.Context) ([]content.Entity, error)
	// GetChaptersBySubject returns chapters ordered by their serial field.
	GetChaptersBySubject(ctx context.Context, subjectID string) ([]content.Entity, error)
	GetQuestionsByChapter(ctx context.Context, chapterID string) ([]content.Entity, error)

	GetWordMeaningSubjects(ctx context.Context) ([]content.Entity, error)
	GetWordMeaningChapters(ctx context.Context, subjectID string) ([]content.Entity, error)
	GetWordMeaningPages(ctx context.Context, chapterID string) ([]content.Entity, error)
	GetWordMeaningQuestionsByPage(ctx context.Context, pageID string) ([]content.Entity, error)
}

// Writer changes documents in the remote store. Failures are reported in the result
// rather than as an error so that admin tools can show them next to the edited row.
type Writer interface {
	Create(ctx context.Context, collection Collection, parentID string, data content.Entity) WriteResult
	Update(ctx context.Context, collection Collection, parentID, id string, data content.Entity) WriteResult
	Delete(ctx context.Context, collection Collection, parentID, id string) WriteResult
}

// Store is a remote backend that can be both read and written.
type Store interface {
	Reader
	Writer
}

type WriteResult struct {
	Success bool   `json:"success" yaml:"success"`
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed builds a failed WriteResult from err.
func Failed(err error) WriteResult {
	return WriteResult{Success: false, Error: err.Error()}
}
