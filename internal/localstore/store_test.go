package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/database"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "store.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("reopening an existing store keeps data and schema version", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.db")

		store, err := Open(ctx, path)
		require.NoError(t, err)
		require.NoError(t, store.SavePreference(ctx, "theme", "dark"))
		require.NoError(t, store.Close())

		store, err = Open(ctx, path)
		require.NoError(t, err)
		defer store.Close()

		version, err := NewMigrationRunner(store.db).Version(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, version)

		var theme string
		found, err := store.GetPreference(ctx, "theme", &theme)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "dark", theme)
	})

	t.Run("unopenable path is reported as unavailable", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		_, err := Open(ctx, filepath.Join(file, "store.db"))
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	tests := []struct {
		name      string
		partition Partition
		key       string
		value     any
		wantErr   error
	}{
		{
			name:      "string preference",
			partition: PartitionPreferences,
			key:       "lastClass",
			value:     "11th",
		},
		{
			name:      "object value",
			partition: PartitionPreferences,
			key:       "settings",
			value:     map[string]any{"sound": true, "fontSize": float64(14)},
		},
		{
			name:      "unknown partition",
			partition: Partition("cache"),
			key:       "x",
			value:     1,
			wantErr:   ErrUnknownPartition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Put(ctx, tt.partition, tt.key, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			var got any
			found, err := store.Get(ctx, tt.partition, tt.key, &got)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, tt.value, got)
		})
	}

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, PartitionPreferences, "theme", "light"))
		require.NoError(t, store.Put(ctx, PartitionPreferences, "theme", "dark"))

		var got string
		_, err := store.Get(ctx, PartitionPreferences, "theme", &got)
		require.NoError(t, err)
		assert.Equal(t, "dark", got)
	})

	t.Run("missing key", func(t *testing.T) {
		var got string
		found, err := store.Get(ctx, PartitionPreferences, "missing", &got)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestStore_Quota(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, WithQuota(64))

	require.NoError(t, store.Put(ctx, PartitionPreferences, "small", "ok"))

	err := store.Put(ctx, PartitionPreferences, "large", string(make([]byte, 128)))
	assert.ErrorIs(t, err, ErrWrite)

	found, err := store.Get(ctx, PartitionPreferences, "large", new(string))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_GetAllKeysAndClear(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for _, key := range []string{"b", "c", "a"} {
		require.NoError(t, store.Put(ctx, PartitionPreferences, key, key))
	}
	keys, err := store.GetAllKeys(ctx, PartitionPreferences)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	require.NoError(t, store.Delete(ctx, PartitionPreferences, "b"))
	require.NoError(t, store.Delete(ctx, PartitionPreferences, "missing"))
	keys, err = store.GetAllKeys(ctx, PartitionPreferences)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys)

	require.NoError(t, store.Clear(ctx, PartitionPreferences))
	keys, err = store.GetAllKeys(ctx, PartitionPreferences)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_EstimateUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("file store", func(t *testing.T) {
		store := openTestStore(t, WithQuota(1<<20))
		usage, err := store.EstimateUsage(ctx)
		require.NoError(t, err)
		require.NotNil(t, usage)
		assert.Positive(t, usage.UsedBytes)
		assert.Equal(t, int64(1<<20), usage.QuotaBytes)
	})

	t.Run("in-memory store", func(t *testing.T) {
		store, err := Open(ctx, database.MemoryDSN)
		require.NoError(t, err)
		defer store.Close()

		usage, err := store.EstimateUsage(ctx)
		require.NoError(t, err)
		assert.Nil(t, usage)
	})
}

func newRecord(classID string) content.ClassRecord {
	return content.ClassRecord{
		ClassID: classID,
		Metadata: content.Metadata{
			Version:    content.SchemaVersion,
			ClassID:    classID,
			ChunksList: []string{"quiz_phy"},
			Stats:      content.Stats{Subjects: 1, Chapters: 1, Questions: 1, ChunksCount: 1},
		},
		Chunks: map[string]content.Chunk{
			"quiz_phy": {
				Type:      content.ChunkTypeQuiz,
				Subject:   content.Entity{"id": "phy"},
				Chapters:  []content.Entity{{"id": "p1"}},
				Questions: map[string][]content.Entity{"p1": {{"id": "q1"}}},
			},
		},
	}
}

func TestStore_ClassData(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := openTestStore(t, WithClock(func() time.Time { return now }))

	require.NoError(t, store.SaveClassData(ctx, newRecord("11th")))
	require.NoError(t, store.SaveClassData(ctx, newRecord("10th")))

	installed, err := store.GetInstalledClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10th", "11th"}, installed)

	ok, err := store.IsClassInstalled(ctx, "11th")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetClassData(ctx, "11th")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, now, got.InstalledAt)
	assert.Equal(t, []string{"quiz_phy"}, got.Metadata.ChunksList)
	assert.NoError(t, got.Check())

	require.NoError(t, store.DeleteClassData(ctx, "11th"))
	got, err = store.GetClassData(ctx, "11th")
	require.NoError(t, err)
	assert.Nil(t, got)
	ok, err = store.IsClassInstalled(ctx, "11th")
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("class id is required", func(t *testing.T) {
		err := store.SaveClassData(ctx, content.ClassRecord{})
		assert.ErrorIs(t, err, ErrWrite)
	})
}

func TestStore_ClearAllData(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.SaveClassData(ctx, newRecord("11th")))
	require.NoError(t, store.SavePreference(ctx, "theme", "dark"))
	_, err := store.EnqueueDownload(ctx, "9th")
	require.NoError(t, err)

	require.NoError(t, store.ClearAllData(ctx))

	installed, err := store.GetInstalledClasses(ctx)
	require.NoError(t, err)
	assert.Empty(t, installed)
	prefs, err := store.ListPreferences(ctx)
	require.NoError(t, err)
	assert.Empty(t, prefs)

	queue, err := store.ListDownloadQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 1)
}

func TestStore_DownloadQueue(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first, err := store.EnqueueDownload(ctx, "11th")
	require.NoError(t, err)
	second, err := store.EnqueueDownload(ctx, "12th")
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	require.NoError(t, store.FailDownload(ctx, second, "Missing chunks: quiz_phy"))
	require.NoError(t, store.CompleteDownload(ctx, first))

	entries, err := store.ListDownloadQueue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, second, entries[0].ID)
	assert.Equal(t, "12th", entries[0].ClassID)
	assert.Equal(t, DownloadFailed, entries[0].Status)
	assert.Equal(t, "Missing chunks: quiz_phy", entries[0].Error)

	third, err := store.EnqueueDownload(ctx, "11th")
	require.NoError(t, err)
	assert.Equal(t, second+1, third)

	err = store.FailDownload(ctx, 999, "boom")
	assert.ErrorIs(t, err, ErrWrite)

	require.NoError(t, store.ClearDownloadQueue(ctx))
	entries, err = store.ListDownloadQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
