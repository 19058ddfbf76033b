package cacheproxy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/quizsync/internal/database"
)

// SQLiteStorage keeps caches in a SQLite database so they survive restarts.
type SQLiteStorage struct {
	db  *sqlx.DB
	now func() time.Time
}

type cacheRow struct {
	Status   int       `db:"status"`
	Header   string    `db:"header"`
	Body     []byte    `db:"body"`
	StoredAt time.Time `db:"stored_at"`
}

func OpenSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("database.OpenSQLite() > %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS caches (
			name       TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			cache_name  TEXT NOT NULL REFERENCES caches (name) ON DELETE CASCADE,
			request_key TEXT NOT NULL,
			status      INTEGER NOT NULL,
			header      TEXT NOT NULL,
			body        BLOB NOT NULL,
			stored_at   DATETIME NOT NULL,
			PRIMARY KEY (cache_name, request_key)
		)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create cache tables: %w", err)
		}
	}
	return &SQLiteStorage{db: db, now: time.Now}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Put(ctx context.Context, cache, key string, entry Entry) error {
	header, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("json.Marshal() > %w", err)
	}
	if entry.Body == nil {
		entry.Body = []byte{}
	}
	now := s.now().UTC()
	if entry.StoredAt.IsZero() {
		entry.StoredAt = now
	}

	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO caches (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING",
			cache, now,
		); err != nil {
			return fmt.Errorf("tx.ExecContext(caches) > %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cache_entries (cache_name, request_key, status, header, body, stored_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (cache_name, request_key) DO UPDATE SET
				status = excluded.status,
				header = excluded.header,
				body = excluded.body,
				stored_at = excluded.stored_at
		`, cache, key, entry.Status, string(header), entry.Body, entry.StoredAt.UTC()); err != nil {
			return fmt.Errorf("tx.ExecContext(cache_entries) > %w", err)
		}
		return nil
	})
}

func (s *SQLiteStorage) Match(ctx context.Context, cache, key string) (*Entry, error) {
	var row cacheRow
	err := s.db.GetContext(ctx, &row,
		"SELECT status, header, body, stored_at FROM cache_entries WHERE cache_name = ? AND request_key = ?",
		cache, key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext() > %w", err)
	}

	var header http.Header
	if err := json.Unmarshal([]byte(row.Header), &header); err != nil {
		return nil, fmt.Errorf("json.Unmarshal() > %w", err)
	}
	return &Entry{
		Status:   row.Status,
		Header:   header,
		Body:     row.Body,
		StoredAt: row.StoredAt,
	}, nil
}

func (s *SQLiteStorage) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names, "SELECT name FROM caches ORDER BY created_at, rowid"); err != nil {
		return nil, fmt.Errorf("db.SelectContext() > %w", err)
	}
	return names, nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, cache string) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM cache_entries WHERE cache_name = ?", cache); err != nil {
			return fmt.Errorf("tx.ExecContext(cache_entries) > %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM caches WHERE name = ?", cache); err != nil {
			return fmt.Errorf("tx.ExecContext(caches) > %w", err)
		}
		return nil
	})
}
