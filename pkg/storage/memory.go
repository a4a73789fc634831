package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStorage implements in-memory credential storage
type MemoryStorage struct {
	records map[string]Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new memory storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]Record),
	}
}

// Save stores a copy of record
func (m *MemoryStorage) Save(ctx context.Context, profile string, record *Record) error {
	if err := validate(profile, record); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[profile] = *record
	return nil
}

// Load retrieves the record for profile
func (m *MemoryStorage) Load(ctx context.Context, profile string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[profile]
	if !exists {
		return nil, ErrNotFound
	}
	return &record, nil
}

// Delete removes the record for profile
func (m *MemoryStorage) Delete(ctx context.Context, profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, profile)
	return nil
}

// Profiles lists the stored profiles in sorted order
func (m *MemoryStorage) Profiles(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profiles := make([]string, 0, len(m.records))
	for profile := range m.records {
		profiles = append(profiles, profile)
	}
	sort.Strings(profiles)
	return profiles, nil
}

// Close is a no-op for memory storage
func (m *MemoryStorage) Close() error {
	return nil
}
