package localstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/quizsync/internal/database"
)

type migration struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, tx *sqlx.Tx) error
}

// MigrationRunner applies pending schema versions to the store database.
type MigrationRunner struct {
	db         *sqlx.DB
	migrations []migration
}

func NewMigrationRunner(db *sqlx.DB) *MigrationRunner {
	return &MigrationRunner{
		db: db,
		migrations: []migration{
			{Version: 1, Name: "records", Apply: migrateV001},
			{Version: 2, Name: "sequences", Apply: migrateV002},
		},
	}
}

// Run applies every migration that has not been recorded in schema_migrations yet,
// each one in its own transaction. Running it again is a no-op.
func (r *MigrationRunner) Run(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	current, err := r.Version(ctx)
	if err != nil {
		return err
	}
	for _, m := range r.migrations {
		if m.Version <= current {
			continue
		}
		err := database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
			if err := m.Apply(ctx, tx); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
				m.Version, m.Name,
			); err != nil {
				return fmt.Errorf("record migration: %w", err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// Version returns the highest applied schema version, or 0 for a fresh database.
func (r *MigrationRunner) Version(ctx context.Context) (int, error) {
	var version int
	if err := r.db.GetContext(ctx, &version, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func migrateV001(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE records (
			partition_name TEXT NOT NULL,
			record_key     TEXT NOT NULL,
			value          BLOB NOT NULL,
			updated_at     TEXT NOT NULL,
			PRIMARY KEY (partition_name, record_key)
		)
	`)
	return err
}

// migrateV002 adds never-reused counters for auto-keyed partitions.
func migrateV002(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE sequences (
			partition_name TEXT PRIMARY KEY,
			value          INTEGER NOT NULL
		)
	`)
	return err
}
