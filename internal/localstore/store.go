// Package localstore persists installed classes, user preferences and the download queue
// in a versioned SQLite database.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/quizsync/internal/database"
)

// Partition is a named keyspace inside the store.
type Partition string

const (
	PartitionClassData     Partition = "classData"
	PartitionPreferences   Partition = "userPreferences"
	PartitionDownloadQueue Partition = "downloadQueue"
)

var partitions = map[Partition]struct{}{
	PartitionClassData:     {},
	PartitionPreferences:   {},
	PartitionDownloadQueue: {},
}

var (
	// ErrStorageUnavailable is returned when the database cannot be opened or read.
	ErrStorageUnavailable = errors.New("local storage unavailable")
	// ErrWrite is returned when a write fails, including when the quota would be exceeded.
	ErrWrite = errors.New("local storage write failed")
	// ErrUnknownPartition is returned for partition names the store does not define.
	ErrUnknownPartition = errors.New("unknown partition")
)

// Usage is an estimate of the space used by the store.
type Usage struct {
	UsedBytes  int64 `json:"usedBytes" yaml:"used_bytes"`
	QuotaBytes int64 `json:"quotaBytes" yaml:"quota_bytes"`
}

type Store struct {
	db         *sqlx.DB
	memory     bool
	quotaBytes int64
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Store)

// WithQuota limits the total size of stored values. Zero means unlimited.
func WithQuota(bytes int64) Option {
	return func(s *Store) {
		s.quotaBytes = bytes
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens the store at path and brings its schema up to date.
// Use database.MemoryDSN for a store that lives only as long as the process.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("%w: database.OpenSQLite() > %w", ErrStorageUnavailable, err)
	}

	s := &Store{
		db:     db,
		memory: path == database.MemoryDSN,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := NewMigrationRunner(db).Run(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: MigrationRunner.Run() > %w", ErrStorageUnavailable, err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func checkPartition(partition Partition) error {
	if _, ok := partitions[partition]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPartition, partition)
	}
	return nil
}

// Put stores value as JSON under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, partition Partition, key string, value any) error {
	if err := checkPartition(partition); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: json.Marshal() > %w", ErrWrite, err)
	}

	return writeError(database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.put(ctx, tx, partition, key, data)
	}))
}

// writeError makes sure every failed write can be matched with ErrWrite.
func writeError(err error) error {
	if err == nil || errors.Is(err, ErrWrite) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrWrite, err)
}

func (s *Store) put(ctx context.Context, tx *sqlx.Tx, partition Partition, key string, data []byte) error {
	if s.quotaBytes > 0 {
		var used int64
		if err := tx.GetContext(ctx, &used,
			"SELECT COALESCE(SUM(LENGTH(value)), 0) FROM records WHERE NOT (partition_name = ? AND record_key = ?)",
			string(partition), key,
		); err != nil {
			return fmt.Errorf("%w: tx.GetContext() > %w", ErrWrite, err)
		}
		if used+int64(len(data)) > s.quotaBytes {
			s.logger.Warn("write rejected by quota", "partition", partition, "key", key, "used", used, "size", len(data), "quota", s.quotaBytes)
			return fmt.Errorf("%w: quota of %d bytes exceeded", ErrWrite, s.quotaBytes)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO records (partition_name, record_key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (partition_name, record_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, string(partition), key, data, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("%w: tx.ExecContext() > %w", ErrWrite, err)
	}
	return nil
}

// Get decodes the value stored under key into dest and reports whether it was found.
func (s *Store) Get(ctx context.Context, partition Partition, key string, dest any) (bool, error) {
	if err := checkPartition(partition); err != nil {
		return false, err
	}

	var data []byte
	err := s.db.GetContext(ctx, &data, "SELECT value FROM records WHERE partition_name = ? AND record_key = ?", string(partition), key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: db.GetContext() > %w", ErrStorageUnavailable, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("json.Unmarshal(%s/%s) > %w", partition, key, err)
	}
	return true, nil
}

// GetAllKeys returns the keys of a partition in ascending order.
func (s *Store) GetAllKeys(ctx context.Context, partition Partition) ([]string, error) {
	if err := checkPartition(partition); err != nil {
		return nil, err
	}

	keys := []string{}
	if err := s.db.SelectContext(ctx, &keys, "SELECT record_key FROM records WHERE partition_name = ? ORDER BY record_key", string(partition)); err != nil {
		return nil, fmt.Errorf("%w: db.SelectContext() > %w", ErrStorageUnavailable, err)
	}
	return keys, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, partition Partition, key string) error {
	if err := checkPartition(partition); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE partition_name = ? AND record_key = ?", string(partition), key); err != nil {
		return fmt.Errorf("%w: db.ExecContext() > %w", ErrWrite, err)
	}
	return nil
}

// Clear removes every key of the given partitions in one transaction.
func (s *Store) Clear(ctx context.Context, partitions ...Partition) error {
	for _, partition := range partitions {
		if err := checkPartition(partition); err != nil {
			return err
		}
	}
	return writeError(database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, partition := range partitions {
			if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE partition_name = ?", string(partition)); err != nil {
				return fmt.Errorf("%w: tx.ExecContext() > %w", ErrWrite, err)
			}
		}
		return nil
	}))
}

// EstimateUsage returns the size of the database file and the configured quota.
// It returns nil for in-memory stores, which cannot be measured.
func (s *Store) EstimateUsage(ctx context.Context) (*Usage, error) {
	if s.memory {
		return nil, nil
	}

	var pageCount, pageSize int64
	if err := s.db.GetContext(ctx, &pageCount, "PRAGMA page_count"); err != nil {
		return nil, fmt.Errorf("%w: PRAGMA page_count > %w", ErrStorageUnavailable, err)
	}
	if err := s.db.GetContext(ctx, &pageSize, "PRAGMA page_size"); err != nil {
		return nil, fmt.Errorf("%w: PRAGMA page_size > %w", ErrStorageUnavailable, err)
	}
	return &Usage{
		UsedBytes:  pageCount * pageSize,
		QuotaBytes: s.quotaBytes,
	}, nil
}
