// Package sqlstore keeps quiz content in a MySQL table, as an alternative to the realtime database.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/database"
	"github.com/at-ishikawa/quizsync/internal/remote"
)

type entityRow struct {
	ID   string          `db:"id"`
	Data json.RawMessage `db:"data"`
}

// Store implements remote.Store on top of the entities table.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ remote.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) list(ctx context.Context, collection remote.Collection, parentID string) ([]content.Entity, error) {
	if _, err := collection.Path(parentID); err != nil {
		return nil, fmt.Errorf("collection.Path() > %w", err)
	}

	var rows []entityRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT id, data FROM entities WHERE collection = ? AND parent_id = ? ORDER BY serial, id",
		string(collection), parentID,
	); err != nil {
		return nil, fmt.Errorf("db.SelectContext(%s) > %w", collection, err)
	}

	entities := make([]content.Entity, 0, len(rows))
	for _, row := range rows {
		entity := content.Entity{"id": row.ID}
		var fields map[string]any
		if err := json.Unmarshal(row.Data, &fields); err != nil {
			return nil, fmt.Errorf("json.Unmarshal(%s/%s) > %w", collection, row.ID, err)
		}
		for k, v := range fields {
			entity[k] = v
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (s *Store) GetAllSubjects(ctx context.Context) ([]content.Entity, error) {
	return s.list(ctx, remote.CollectionSubjects, "")
}

func (s *Store) GetChaptersBySubject(ctx context.Context, subjectID string) ([]content.Entity, error) {
	return s.list(ctx, remote.CollectionChapters, subjectID)
}

func (s *Store) GetQuestionsByChapter(ctx context.Context, chapterID string) ([]content.Entity, error) {
	return s.list(ctx, remote.CollectionQuestions, chapterID)
}

func (s *Store) GetWordMeaningSubjects(ctx context.Context) ([]content.Entity, error) {
	return s.list(ctx, remote.CollectionWordMeaningSubjects, "")
}

func (s *Store) GetWordMeaningChapters(ctx context.Context, subjectID string) ([]content.Entity, error) {
	return s.list(ctx, remote.CollectionWordMeaningChapters, subjectID)
}

func (s *Store) GetWordMeaningPages(ctx context.Context, chapterID string) ([]content.Entity, error) {
	return s.list(ctx, remote.CollectionWordMeaningPages, chapterID)
}

func (s *Store) GetWordMeaningQuestionsByPage(ctx context.Context, pageID string) ([]content.Entity, error) {
	return s.list(ctx, remote.CollectionWordMeaningQuestions, pageID)
}

func (s *Store) Create(ctx context.Context, collection remote.Collection, parentID string, data content.Entity) remote.WriteResult {
	if _, err := collection.Path(parentID); err != nil {
		return remote.Failed(err)
	}

	now := s.now()
	id := remote.NewID(now)
	entity := content.Entity{}
	for k, v := range data {
		entity[k] = v
	}
	entity["id"] = id
	entity["createdAt"] = now.UnixMilli()

	encoded, err := json.Marshal(entity)
	if err != nil {
		return remote.Failed(fmt.Errorf("json.Marshal() > %w", err))
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO entities (collection, parent_id, id, data, serial) VALUES (?, ?, ?, ?, ?)",
		string(collection), parentID, id, encoded, entity.Serial(),
	); err != nil {
		return remote.Failed(fmt.Errorf("db.ExecContext(insert) > %w", err))
	}
	return remote.WriteResult{Success: true, ID: id}
}

// Update merges data into the stored document.
func (s *Store) Update(ctx context.Context, collection remote.Collection, parentID, id string, data content.Entity) remote.WriteResult {
	if _, err := collection.Path(parentID); err != nil {
		return remote.Failed(err)
	}

	err := database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		var current json.RawMessage
		err := tx.GetContext(ctx, &current,
			"SELECT data FROM entities WHERE collection = ? AND parent_id = ? AND id = ? FOR UPDATE",
			string(collection), parentID, id,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s %q not found", collection, id)
		}
		if err != nil {
			return fmt.Errorf("tx.GetContext() > %w", err)
		}

		entity := content.Entity{}
		if err := json.Unmarshal(current, &entity); err != nil {
			return fmt.Errorf("json.Unmarshal() > %w", err)
		}
		for k, v := range data {
			entity[k] = v
		}
		encoded, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("json.Marshal() > %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE entities SET data = ?, serial = ? WHERE collection = ? AND parent_id = ? AND id = ?",
			encoded, entity.Serial(), string(collection), parentID, id,
		); err != nil {
			return fmt.Errorf("tx.ExecContext(update) > %w", err)
		}
		return nil
	})
	if err != nil {
		return remote.Failed(err)
	}
	return remote.WriteResult{Success: true, ID: id}
}

func (s *Store) Delete(ctx context.Context, collection remote.Collection, parentID, id string) remote.WriteResult {
	if _, err := collection.Path(parentID); err != nil {
		return remote.Failed(err)
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM entities WHERE collection = ? AND parent_id = ? AND id = ?",
		string(collection), parentID, id,
	); err != nil {
		return remote.Failed(fmt.Errorf("db.ExecContext(delete) > %w", err))
	}
	return remote.WriteResult{Success: true, ID: id}
}
