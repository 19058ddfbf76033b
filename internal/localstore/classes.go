package localstore

import (
	"context"
	"fmt"

	"github.com/at-ishikawa/quizsync/internal/content"
)

// SaveClassData writes the whole record in one transaction, replacing any previous install.
func (s *Store) SaveClassData(ctx context.Context, record content.ClassRecord) error {
	if record.ClassID == "" {
		record.ClassID = record.Metadata.ClassID
	}
	if record.ClassID == "" {
		return fmt.Errorf("%w: class id is required", ErrWrite)
	}
	if record.InstalledAt.IsZero() {
		record.InstalledAt = s.now().UTC()
	}
	if err := s.Put(ctx, PartitionClassData, record.ClassID, record); err != nil {
		return fmt.Errorf("Put(%s) > %w", record.ClassID, err)
	}
	return nil
}

// GetClassData returns the installed record of a class, or nil when it is not installed.
func (s *Store) GetClassData(ctx context.Context, classID string) (*content.ClassRecord, error) {
	var record content.ClassRecord
	found, err := s.Get(ctx, PartitionClassData, classID, &record)
	if err != nil {
		return nil, fmt.Errorf("Get(%s) > %w", classID, err)
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

func (s *Store) IsClassInstalled(ctx context.Context, classID string) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM records WHERE partition_name = ? AND record_key = ?",
		string(PartitionClassData), classID,
	); err != nil {
		return false, fmt.Errorf("%w: db.GetContext() > %w", ErrStorageUnavailable, err)
	}
	return count > 0, nil
}

// GetInstalledClasses returns the installed class ids in ascending order.
func (s *Store) GetInstalledClasses(ctx context.Context) ([]string, error) {
	keys, err := s.GetAllKeys(ctx, PartitionClassData)
	if err != nil {
		return nil, fmt.Errorf("GetAllKeys() > %w", err)
	}
	return keys, nil
}

func (s *Store) DeleteClassData(ctx context.Context, classID string) error {
	if err := s.Delete(ctx, PartitionClassData, classID); err != nil {
		return fmt.Errorf("Delete(%s) > %w", classID, err)
	}
	return nil
}

// ClearAllData removes installed classes and preferences. The download queue is kept.
func (s *Store) ClearAllData(ctx context.Context) error {
	if err := s.Clear(ctx, PartitionClassData, PartitionPreferences); err != nil {
		return fmt.Errorf("Clear() > %w", err)
	}
	return nil
}

func (s *Store) SavePreference(ctx context.Context, key string, value any) error {
	if err := s.Put(ctx, PartitionPreferences, key, value); err != nil {
		return fmt.Errorf("Put(%s) > %w", key, err)
	}
	return nil
}

// GetPreference decodes the preference into dest and reports whether it was set.
func (s *Store) GetPreference(ctx context.Context, key string, dest any) (bool, error) {
	found, err := s.Get(ctx, PartitionPreferences, key, dest)
	if err != nil {
		return false, fmt.Errorf("Get(%s) > %w", key, err)
	}
	return found, nil
}

// ListPreferences returns every preference as raw decoded JSON values.
func (s *Store) ListPreferences(ctx context.Context) (map[string]any, error) {
	keys, err := s.GetAllKeys(ctx, PartitionPreferences)
	if err != nil {
		return nil, fmt.Errorf("GetAllKeys() > %w", err)
	}
	prefs := make(map[string]any, len(keys))
	for _, key := range keys {
		var value any
		if _, err := s.Get(ctx, PartitionPreferences, key, &value); err != nil {
			return nil, fmt.Errorf("Get(%s) > %w", key, err)
		}
		prefs[key] = value
	}
	return prefs, nil
}
