package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/quizsync/internal/database"
)

type DownloadStatus string

const (
	DownloadPending DownloadStatus = "pending"
	DownloadFailed  DownloadStatus = "failed"
)

// DownloadQueueEntry tracks one install run. Entries are removed when the run succeeds.
type DownloadQueueEntry struct {
	ID          int64          `json:"id" yaml:"id"`
	ClassID     string         `json:"classId" yaml:"class_id"`
	Status      DownloadStatus `json:"status" yaml:"status"`
	Error       string         `json:"error,omitempty" yaml:"error,omitempty"`
	RequestedAt time.Time      `json:"requestedAt" yaml:"requested_at"`
	UpdatedAt   time.Time      `json:"updatedAt" yaml:"updated_at"`
}

// queueKey pads ids so that key order matches insertion order.
func queueKey(id int64) string {
	return fmt.Sprintf("%012d", id)
}

// EnqueueDownload records a pending install of classID and returns its id.
// Ids are never reused, even after the entry is removed.
func (s *Store) EnqueueDownload(ctx context.Context, classID string) (int64, error) {
	now := s.now().UTC()
	var id int64
	err := database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &id, `
			INSERT INTO sequences (partition_name, value) VALUES (?, 1)
			ON CONFLICT (partition_name) DO UPDATE SET value = value + 1
			RETURNING value
		`, string(PartitionDownloadQueue)); err != nil {
			return fmt.Errorf("%w: next sequence > %w", ErrWrite, err)
		}

		entry := DownloadQueueEntry{
			ID:          id,
			ClassID:     classID,
			Status:      DownloadPending,
			RequestedAt: now,
			UpdatedAt:   now,
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("%w: json.Marshal() > %w", ErrWrite, err)
		}
		return s.put(ctx, tx, PartitionDownloadQueue, queueKey(id), data)
	})
	if err != nil {
		return 0, writeError(err)
	}
	return id, nil
}

// FailDownload marks an entry as failed with the given message.
func (s *Store) FailDownload(ctx context.Context, id int64, message string) error {
	var entry DownloadQueueEntry
	found, err := s.Get(ctx, PartitionDownloadQueue, queueKey(id), &entry)
	if err != nil {
		return fmt.Errorf("Get(%d) > %w", id, err)
	}
	if !found {
		return fmt.Errorf("%w: download %d is not queued", ErrWrite, id)
	}

	entry.Status = DownloadFailed
	entry.Error = message
	entry.UpdatedAt = s.now().UTC()
	if err := s.Put(ctx, PartitionDownloadQueue, queueKey(id), entry); err != nil {
		return fmt.Errorf("Put(%d) > %w", id, err)
	}
	return nil
}

// CompleteDownload removes an entry.
func (s *Store) CompleteDownload(ctx context.Context, id int64) error {
	if err := s.Delete(ctx, PartitionDownloadQueue, queueKey(id)); err != nil {
		return fmt.Errorf("Delete(%d) > %w", id, err)
	}
	return nil
}

// ListDownloadQueue returns queued entries, oldest first.
func (s *Store) ListDownloadQueue(ctx context.Context) ([]DownloadQueueEntry, error) {
	keys, err := s.GetAllKeys(ctx, PartitionDownloadQueue)
	if err != nil {
		return nil, fmt.Errorf("GetAllKeys() > %w", err)
	}

	entries := make([]DownloadQueueEntry, 0, len(keys))
	for _, key := range keys {
		var entry DownloadQueueEntry
		found, err := s.Get(ctx, PartitionDownloadQueue, key, &entry)
		if err != nil {
			return nil, fmt.Errorf("Get(%s) > %w", key, err)
		}
		if found {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// ClearDownloadQueue removes every queued entry.
func (s *Store) ClearDownloadQueue(ctx context.Context) error {
	if err := s.Clear(ctx, PartitionDownloadQueue); err != nil {
		return fmt.Errorf("Clear() > %w", err)
	}
	return nil
}
