package cacheproxy

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Entry is a stored response.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Storage holds named caches of responses keyed by request identity.
//
//go:generate mockgen -source=storage.go -destination=../mocks/cacheproxy/mock_storage.go -package=mock_cacheproxy
type Storage interface {
	// Put stores entry under key in the named cache, creating the cache when needed.
	Put(ctx context.Context, cache, key string, entry Entry) error
	// Match returns the entry stored under key in the named cache, or nil.
	Match(ctx context.Context, cache, key string) (*Entry, error)
	// Names returns the existing cache names in the order they were created.
	Names(ctx context.Context) ([]string, error)
	// Delete removes a cache and all of its entries.
	Delete(ctx context.Context, cache string) error
}

// MemoryStorage keeps caches in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	caches  map[string]map[string]Entry
	created map[string]int
	seq     int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		caches:  map[string]map[string]Entry{},
		created: map[string]int{},
	}
}

func (s *MemoryStorage) Put(_ context.Context, cache, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.caches[cache]
	if !ok {
		entries = map[string]Entry{}
		s.caches[cache] = entries
		s.seq++
		s.created[cache] = s.seq
	}
	entry.Header = entry.Header.Clone()
	entry.Body = append([]byte(nil), entry.Body...)
	entries[key] = entry
	return nil
}

func (s *MemoryStorage) Match(_ context.Context, cache, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.caches[cache][key]
	if !ok {
		return nil, nil
	}
	entry.Header = entry.Header.Clone()
	return &entry, nil
}

func (s *MemoryStorage) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return s.created[names[i]] < s.created[names[j]]
	})
	return names, nil
}

func (s *MemoryStorage) Delete(_ context.Context, cache string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.caches, cache)
	delete(s.created, cache)
	return nil
}
