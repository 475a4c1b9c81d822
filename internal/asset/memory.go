package asset

import (
	"context"
	"fmt"
	"sync"

	"flightledger/internal/fingerprint"
	"flightledger/pkg/platform/sentinel"
)

// MemoryStore is an in-process Store for tests and dev mode.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[fingerprint.Digest]Metadata
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[fingerprint.Digest]Metadata)}
}

func (m *MemoryStore) Save(_ context.Context, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[meta.Initial] = meta
	return nil
}

func (m *MemoryStore) Find(_ context.Context, initial fingerprint.Digest) (Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.records[initial]
	if !ok {
		return Metadata{}, fmt.Errorf("asset metadata for %s: %w", initial, sentinel.ErrNotFound)
	}
	return meta, nil
}

func (m *MemoryStore) FindMany(_ context.Context, initials []fingerprint.Digest) (map[fingerprint.Digest]Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[fingerprint.Digest]Metadata, len(initials))
	for _, fp := range initials {
		if meta, ok := m.records[fp]; ok {
			out[fp] = meta
		}
	}
	return out, nil
}
