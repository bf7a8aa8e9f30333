package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key is not found in the storage.
var ErrNotFound = errors.New("key not found")

// Storage is the key-value store holding mounted field state between events.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, exp time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	val []byte
	exp time.Time
}

// MemoryStorage provides an in-memory implementation of the Storage interface.
type MemoryStorage struct {
	store map[string]memoryEntry
	mu    sync.RWMutex
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryStorage creates a new in-memory storage that prunes expired
// entries every pruneEvery. A non-positive interval disables pruning;
// expired entries are still hidden from Get.
func NewMemoryStorage(pruneEvery time.Duration) *MemoryStorage {
	s := &MemoryStorage{
		store: make(map[string]memoryEntry),
		stop:  make(chan struct{}),
	}
	if pruneEvery > 0 {
		go s.pruneLoop(pruneEvery)
	}
	return s
}

// Get retrieves a copy of the value stored under key.
func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.store[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !entry.exp.IsZero() && time.Now().After(entry.exp) {
		s.mu.Lock()
		delete(s.store, key)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	valCopy := make([]byte, len(entry.val))
	copy(valCopy, entry.val)
	return valCopy, nil
}

// Set stores a copy of val. If exp is > 0, the entry expires after exp.
func (s *MemoryStorage) Set(_ context.Context, key string, val []byte, exp time.Duration) error {
	var expiresAt time.Time
	if exp > 0 {
		expiresAt = time.Now().Add(exp)
	}

	valCopy := make([]byte, len(val))
	copy(valCopy, val)

	s.mu.Lock()
	s.store[key] = memoryEntry{val: valCopy, exp: expiresAt}
	s.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.store, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.store)
}

// Close stops the prune loop.
func (s *MemoryStorage) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStorage) pruneLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.prune(time.Now())
		}
	}
}

func (s *MemoryStorage) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.store {
		if !entry.exp.IsZero() && now.After(entry.exp) {
			delete(s.store, key)
		}
	}
}
