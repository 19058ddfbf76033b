package sqlstore

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/quizsync/internal/database"
)

const migrationsDir = "migrations"

// Migrate applies the .sql files of migrations in name order, skipping files already
// recorded in schema_migrations. It returns the names that were applied.
func Migrate(ctx context.Context, db *sqlx.DB, migrations fs.FS) ([]string, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
    name VARCHAR(191) PRIMARY KEY,
    applied_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3)
)`); err != nil {
		return nil, fmt.Errorf("db.ExecContext(schema_migrations) > %w", err)
	}

	entries, err := fs.ReadDir(migrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("fs.ReadDir() > %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	var applied []string
	if err := db.SelectContext(ctx, &applied, "SELECT name FROM schema_migrations"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(schema_migrations) > %w", err)
	}
	done := make(map[string]struct{}, len(applied))
	for _, name := range applied {
		done[name] = struct{}{}
	}

	var newlyApplied []string
	for _, file := range files {
		if _, ok := done[file]; ok {
			continue
		}
		body, err := fs.ReadFile(migrations, path.Join(migrationsDir, file))
		if err != nil {
			return newlyApplied, fmt.Errorf("fs.ReadFile(%s) > %w", file, err)
		}

		err = database.RunInTx(ctx, db, func(ctx context.Context, tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return fmt.Errorf("tx.ExecContext(%s) > %w", file, err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (name) VALUES (?)", file); err != nil {
				return fmt.Errorf("tx.ExecContext(record %s) > %w", file, err)
			}
			return nil
		})
		if err != nil {
			return newlyApplied, err
		}
		newlyApplied = append(newlyApplied, file)
	}
	return newlyApplied, nil
}
