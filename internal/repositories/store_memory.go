package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory implementation of Store. Records are kept
// JSON-encoded so callers never share memory with the store.
type MemoryStore struct {
	folders map[string]map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		folders: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) folder(name string) map[string][]byte {
	f, ok := s.folders[name]
	if !ok {
		f = make(map[string][]byte)
		s.folders[name] = f
	}
	return f
}

// Create stores a new record.
func (s *MemoryStore) Create(_ context.Context, folder, key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", folder, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.folder(folder)
	if _, ok := f[key]; ok {
		return fmt.Errorf("%s/%s: %w", folder, key, ErrAlreadyExists)
	}
	f[key] = data
	return nil
}

// Read decodes the record into dst.
func (s *MemoryStore) Read(_ context.Context, folder, key string, dst any) error {
	s.mu.RLock()
	data, ok := s.folders[folder][key]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%s/%s: %w", folder, key, ErrNotFound)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", folder, key, err)
	}
	return nil
}

// Update replaces an existing record.
func (s *MemoryStore) Update(_ context.Context, folder, key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", folder, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.folder(folder)
	if _, ok := f[key]; !ok {
		return fmt.Errorf("%s/%s: %w", folder, key, ErrNotFound)
	}
	f[key] = data
	return nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(_ context.Context, folder, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.folder(folder)
	if _, ok := f[key]; !ok {
		return fmt.Errorf("%s/%s: %w", folder, key, ErrNotFound)
	}
	delete(f, key)
	return nil
}

// List returns every key in folder in ascending order.
func (s *MemoryStore) List(ctx context.Context, folder string) ([]string, error) {
	return s.ListContaining(ctx, folder, "")
}

// ListContaining returns the keys in folder that contain substring.
func (s *MemoryStore) ListContaining(_ context.Context, folder, substring string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.folders[folder]))
	for k := range s.folders[folder] {
		if strings.Contains(k, substring) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// EnsureFolder creates folder if it does not exist.
func (s *MemoryStore) EnsureFolder(_ context.Context, folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folder(folder)
	return nil
}
